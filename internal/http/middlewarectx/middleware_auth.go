// Package middlewarectx содержит HTTP middleware для аутентификации и авторизации.
//
// JWTMiddleware проверяет наличие и валидность JWT токена в заголовке Authorization
// и кладет в контекст UID пользователя и его роль. Остальные middleware
// читают их из контекста и проверяют права на подписку или роль администратора.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserUID ключ для UID пользователя в контексте
	UserUID Key = "user_uid"
	// Role ключ для роли пользователя в контексте
	Role Key = "role"
	// Access ключ для результата проверки доступа к подписке
	Access Key = "access"
)

// Service описывает интерфейс сервиса для валидации JWT токена.
type Service interface {
	ValidateToken(ctx context.Context, token string) (*models.Identity, error)
}

// WithIdentity кладет идентичность пользователя в контекст.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	ctx = context.WithValue(ctx, UserUID, id.UserUID)
	return context.WithValue(ctx, Role, id.Role)
}

// IdentityFrom достает идентичность пользователя из контекста.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	uid, _ := ctx.Value(UserUID).(string)
	role, _ := ctx.Value(Role).(models.Role)
	if uid == "" {
		return models.Identity{}, false
	}
	return models.Identity{UserUID: uid, Role: role}, true
}

// JWTMiddleware возвращает HTTP middleware, который проверяет JWT в заголовке Authorization.
//
// Если токен валиден, добавляет UID пользователя и роль в контекст запроса,
// иначе возвращает ошибку с HTTP статусом 401 Unauthorized.
func JWTMiddleware(authService Service, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				response.Fail(w, r, log, apperr.Unauthorized("Unauthorized"))
				return
			}
			tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if tokenStr == "" {
				response.Fail(w, r, log, apperr.Unauthorized("Unauthorized"))
				return
			}

			identity, err := authService.ValidateToken(r.Context(), tokenStr)
			if err != nil {
				response.Fail(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), *identity)))
		})
	}
}
