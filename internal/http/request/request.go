// Package request разбирает общие параметры HTTP-запросов.
package request

import (
	"net/http"
	"strconv"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// DefaultLimit размер страницы списков по умолчанию.
const DefaultLimit = 20

// LimitOffset читает limit и offset из строки запроса.
// Отсутствующие значения заменяются значениями по умолчанию.
func LimitOffset(r *http.Request) (limit, offset int, err error) {
	limit, err = IntQuery(r, "limit", DefaultLimit)
	if err != nil {
		return 0, 0, err
	}
	offset, err = IntQuery(r, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

// IntQuery читает неотрицательное целое из строки запроса.
func IntQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperr.Validation(name + " must be a non-negative integer")
	}
	return v, nil
}

// Identity возвращает пользователя, положенного в контекст JWTMiddleware.
func Identity(r *http.Request) (models.Identity, error) {
	id, ok := middlewarectx.IdentityFrom(r.Context())
	if !ok {
		return models.Identity{}, apperr.Unauthorized("Unauthorized")
	}
	return id, nil
}
