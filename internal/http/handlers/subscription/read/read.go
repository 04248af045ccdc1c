// Package read реализует HTTP-обработчик для получения подписки по ID.
// Доступ проверяется middleware RequireAccess до вызова обработчика.
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

// Handler обрабатывает запросы на получение подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики чтения подписки.
type Service interface {
	Read(ctx context.Context, id string) (*models.Subscription, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Получение подписки
// @Description Доступно владельцу и активным участникам семейной группы.
// @Tags Subscriptions
// @Security BearerAuth
// @Produce  json
// @Param subscriptionId path string true "ID подписки"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /subscriptions/{subscriptionId} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sub, err := h.service.Read(r.Context(), chi.URLParam(r, middlewarectx.SubscriptionIDParam))
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	accessType := models.AccessOwner
	if res, ok := middlewarectx.AccessFrom(r.Context()); ok {
		accessType = res.AccessType
	}
	render.JSON(w, r, response.OK("", map[string]any{
		"subscription": sub,
		"accessType":   accessType,
	}))
}
