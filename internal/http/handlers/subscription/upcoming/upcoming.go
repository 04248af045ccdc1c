// Package upcoming реализует получение активных подписок, продлевающихся в ближайшие дни.
package upcoming

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/request"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Handler обрабатывает запросы ближайших продлений.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс поиска ближайших продлений.
type Service interface {
	Upcoming(ctx context.Context, userUID string, days int) ([]*models.Subscription, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Ближайшие продления
// @Tags Subscriptions
// @Security BearerAuth
// @Produce  json
// @Param days query int false "Горизонт в днях (по умолчанию 7)"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Router /subscriptions/upcoming-renewals [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.upcoming"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	requester, err := request.Identity(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	days, err := request.IntQuery(r, "days", 0)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	subs, err := h.service.Upcoming(r.Context(), requester.UserUID, days)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK("", subs))
}
