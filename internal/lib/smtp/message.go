// Package smtp доставляет письма воркера рассылки: приглашения в семейные
// подписки и напоминания о продлении. Соединение с сервером всегда
// переводится в TLS через STARTTLS.
package smtp

import (
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"
)

// Message письмо в виде простого текста.
type Message struct {
	To      []string
	Subject string
	Body    string
}

func (m Message) validate() error {
	if len(m.To) == 0 {
		return errors.New("message without recipients")
	}
	for _, to := range m.To {
		if to == "" || strings.ContainsAny(to, "\r\n") {
			return fmt.Errorf("invalid recipient %q", to)
		}
	}
	if strings.ContainsAny(m.Subject, "\r\n") {
		return errors.New("subject must be a single line")
	}
	return nil
}

// Bytes собирает письмо с заголовками для отправителя from. Тема в UTF-8
// кодируется по RFC 2047, строки тела завершаются CRLF.
func (m Message) Bytes(from string, now time.Time) []byte {
	var b strings.Builder
	header := func(name, value string) {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}
	header("From", from)
	header("To", strings.Join(m.To, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	header("Date", now.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="UTF-8"`)
	b.WriteString("\r\n")

	body := strings.ReplaceAll(m.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
