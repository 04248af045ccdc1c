// Package apperr описывает классы прикладных ошибок, которые сервисы
// возбуждают в месте обнаружения, а HTTP-слой превращает в статус ответа.
package apperr

import "errors"

// Kind класс ошибки.
type Kind uint8

const (
	// KindInternal инфраструктурная или непредвиденная ошибка.
	KindInternal Kind = iota
	// KindValidation некорректные входные данные.
	KindValidation
	// KindUnauthorized отсутствующие или неверные учетные данные.
	KindUnauthorized
	// KindForbidden пользователь аутентифицирован, но прав недостаточно.
	KindForbidden
	// KindNotFound сущность не найдена.
	KindNotFound
	// KindConflict нарушение уникальности или недопустимый повтор операции.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error прикладная ошибка с сообщением, пригодным для показа пользователю.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation ошибка входных данных.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// Unauthorized ошибка аутентификации.
func Unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Msg: msg}
}

// Forbidden ошибка авторизации.
func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Msg: msg}
}

// NotFound ошибка отсутствия сущности.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// Conflict ошибка конфликта состояния.
func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Msg: msg}
}

// Wrap оборачивает причину err в прикладную ошибку заданного класса.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf возвращает класс ошибки; всё, что не является *Error, считается внутренней ошибкой.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Message возвращает сообщение для пользователя. Для внутренних ошибок детали не раскрываются.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Msg
	}
	return "internal server error"
}

// Is сообщает, относится ли err к классу kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
