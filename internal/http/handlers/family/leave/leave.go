// Package leave реализует выход участника из семейной группы.
package leave

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

// Handler обрабатывает запросы на выход из группы.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс выхода из группы.
type Service interface {
	Leave(ctx context.Context, requesterUID, subscriptionID string) error
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Выход из семейной группы
// @Tags Family
// @Security BearerAuth
// @Produce  json
// @Param subscriptionId path string true "ID подписки"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Владелец не может выйти"
// @Failure 403 {object} response.ErrorResponse
// @Router /family-subscriptions/{subscriptionId}/leave [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.family.leave"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	requester, err := request.Identity(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	if err := h.service.Leave(r.Context(), requester.UserUID, chi.URLParam(r, middlewarectx.SubscriptionIDParam)); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK("Successfully left family subscription", nil))
}
