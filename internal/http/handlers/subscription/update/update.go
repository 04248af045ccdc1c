// Package update реализует полное обновление подписки владельцем.
//
// Тело запроса проходит ту же нормализацию, что и при создании:
// дата продления пересчитывается, просроченная подписка становится неактивной.
package update

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Handler обрабатывает запросы на обновление подписки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс обновления подписки.
type Service interface {
	Update(ctx context.Context, id string, req models.DummySubscription) (*models.Subscription, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Обновление подписки
// @Tags Subscriptions
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param subscriptionId path string true "ID подписки"
// @Param request body models.DummySubscription true "Новые данные подписки"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /subscriptions/{subscriptionId} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.update"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummySubscription
	if err := response.Decode(r, h.validate, &req); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	sub, err := h.service.Update(r.Context(), chi.URLParam(r, middlewarectx.SubscriptionIDParam), req)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("subscription updated", slog.String("id", sub.ID))
	render.JSON(w, r, response.OK("Subscription updated successfully", sub))
}
