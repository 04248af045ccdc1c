// Package remove реализует удаление семейной группы вместе с историей участников.
package remove

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

// Handler обрабатывает запросы на удаление группы.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс удаления группы.
type Service interface {
	Delete(ctx context.Context, requesterUID, subscriptionID string) error
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удаление семейной группы
// @Tags Family
// @Security BearerAuth
// @Produce  json
// @Param subscriptionId path string true "ID подписки"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /family-subscriptions/{subscriptionId} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.family.remove"

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
	if err := h.service.Delete(r.Context(), requester.UserUID, subscriptionID); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("family subscription deleted", slog.String("subscription_id", subscriptionID))
	render.JSON(w, r, response.OK("Family subscription deleted successfully", nil))
}
