// Package read реализует получение семейной группы подписки.
package read

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Handler обрабатывает запросы на чтение семейной группы.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс чтения семейной группы.
type Service interface {
	Get(ctx context.Context, subscriptionID string) (*models.FamilySubscription, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Семейная группа подписки
// @Tags Family
// @Security BearerAuth
// @Produce  json
// @Param subscriptionId path string true "ID подписки"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /family-subscriptions/{subscriptionId} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.family.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	family, err := h.service.Get(r.Context(), chi.URLParam(r, middlewarectx.SubscriptionIDParam))
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK("", family))
}
