// Package list реализует получение семейных групп пользователя: собственных и тех,
// где он активный участник.
package list

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

// Handler обрабатывает запросы списка семейных групп.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс получения групп пользователя.
type Service interface {
	ListForUser(ctx context.Context, userUID string) (*models.FamilyGroups, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Мои семейные группы
// @Tags Family
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} response.Response
// @Router /family-subscriptions [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.family.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	requester, err := request.Identity(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	groups, err := h.service.ListForUser(r.Context(), requester.UserUID)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK("", groups))
}
