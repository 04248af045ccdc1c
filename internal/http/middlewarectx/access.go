package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	access "github.com/magabrotheeeer/subscription-tracker/internal/services/access"
)

// SubscriptionIDParam имя параметра маршрута с идентификатором подписки.
const SubscriptionIDParam = "subscriptionId"

// AccessEvaluator определяет отношение пользователя к подписке.
type AccessEvaluator interface {
	Check(ctx context.Context, userUID, subscriptionID string) (access.Result, error)
}

var deniedMessages = map[models.Capability]string{
	models.CapabilityAccess: "Access denied. You don't have permission to access this subscription",
	models.CapabilityOwner:  "Access denied. Only the subscription owner can perform this action",
	models.CapabilityMember: "Access denied. Only family members can perform this action",
}

// RequireAccess пропускает владельца подписки и активных участников семейной группы.
func RequireAccess(ev AccessEvaluator, log *slog.Logger) func(http.Handler) http.Handler {
	return require(ev, log, models.CapabilityAccess)
}

// RequireOwner пропускает только владельца подписки.
func RequireOwner(ev AccessEvaluator, log *slog.Logger) func(http.Handler) http.Handler {
	return require(ev, log, models.CapabilityOwner)
}

// RequireMember пропускает только активных участников, владелец не проходит.
func RequireMember(ev AccessEvaluator, log *slog.Logger) func(http.Handler) http.Handler {
	return require(ev, log, models.CapabilityMember)
}

func require(ev AccessEvaluator, log *slog.Logger, capability models.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.require"

			log := log.With(
				slog.String("op", op),
				slog.String("capability", capability.String()),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			identity, ok := IdentityFrom(r.Context())
			if !ok {
				response.Fail(w, r, log, apperr.Unauthorized("Unauthorized"))
				return
			}
			subscriptionID := chi.URLParam(r, SubscriptionIDParam)
			if subscriptionID == "" {
				response.Fail(w, r, log, apperr.Validation("Subscription ID is required"))
				return
			}

			res, err := ev.Check(r.Context(), identity.UserUID, subscriptionID)
			if err != nil {
				response.Fail(w, r, log, err)
				return
			}
			if !res.HasAccess || !res.AccessType.Satisfies(capability) {
				response.Fail(w, r, log, apperr.Forbidden(deniedMessages[capability]))
				return
			}

			ctx := context.WithValue(r.Context(), Access, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccessFrom возвращает результат проверки доступа, сохраненный guard-ом.
func AccessFrom(ctx context.Context) (access.Result, bool) {
	res, ok := ctx.Value(Access).(access.Result)
	return res, ok
}

// RequireAdmin пропускает только администраторов.
func RequireAdmin(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				response.Fail(w, r, log, apperr.Unauthorized("Unauthorized"))
				return
			}
			if identity.Role != models.RoleAdmin {
				response.Fail(w, r, log, apperr.Forbidden("Admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
