// Package removemember реализует исключение участника из семейной группы владельцем.
package removemember

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/request"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
)

// Handler обрабатывает запросы на исключение участника.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс исключения участника.
type Service interface {
	RemoveMember(ctx context.Context, requesterUID, subscriptionID, memberUID string) error
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Исключение участника
// @Description Повторное исключение уже исключенного участника завершается успешно.
// @Tags Family
// @Security BearerAuth
// @Produce  json
// @Param subscriptionId path string true "ID подписки"
// @Param memberId path string true "UID участника"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /family-subscriptions/{subscriptionId}/members/{memberId} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.family.removemember"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	requester, err := request.Identity(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	subscriptionID := chi.URLParam(r, middlewarectx.SubscriptionIDParam)
	memberUID := chi.URLParam(r, "memberId")
	if err := h.service.RemoveMember(r.Context(), requester.UserUID, subscriptionID, memberUID); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("family member removed", slog.String("subscription_id", subscriptionID), slog.String("member", memberUID))
	render.JSON(w, r, response.OK("Family member removed successfully", nil))
}
