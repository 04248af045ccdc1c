// Package create реализует создание семейной группы для подписки.
package create

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
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Handler обрабатывает запросы на создание семейной группы.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс создания семейной группы.
type Service interface {
	Create(ctx context.Context, requesterUID, subscriptionID string) (*models.FamilySubscription, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Создание семейной группы
// @Description Владелец активной подписки открывает к ней семейный доступ. Одна группа на подписку.
// @Tags Family
// @Security BearerAuth
// @Produce  json
// @Param subscriptionId path string true "ID подписки"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Подписка не активна"
// @Failure 403 {object} response.ErrorResponse "Не владелец"
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Группа уже существует"
// @Router /family-subscriptions/{subscriptionId} [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.family.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	requester, err := request.Identity(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	family, err := h.service.Create(r.Context(), requester.UserUID, chi.URLParam(r, middlewarectx.SubscriptionIDParam))
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("family subscription created", slog.String("family_id", family.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OK("Family subscription created successfully", family))
}
