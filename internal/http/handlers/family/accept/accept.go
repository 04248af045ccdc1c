// Package accept реализует принятие приглашения в семейную группу по токену.
package accept

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/request"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Handler обрабатывает запросы на принятие приглашения.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс принятия приглашения.
type Service interface {
	Accept(ctx context.Context, requesterUID, rawToken string) (*models.AcceptResult, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Принятие приглашения
// @Description Просроченный и несуществующий токен неразличимы.
// @Tags Family
// @Security BearerAuth
// @Produce  json
// @Param token path string true "Токен приглашения"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Чужое приглашение"
// @Failure 404 {object} response.ErrorResponse "Токен недействителен или истек"
// @Failure 409 {object} response.ErrorResponse "Приглашение уже принято"
// @Router /family-subscriptions/accept/{token} [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.family.accept"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	requester, err := request.Identity(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	token := chi.URLParam(r, "token")
	if token == "" {
		response.Fail(w, r, log, apperr.Validation("Invitation token is required"))
		return
	}

	res, err := h.service.Accept(r.Context(), requester.UserUID, token)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("invitation accepted", slog.String("uid", requester.UserUID))
	render.JSON(w, r, response.OK("Family invitation accepted successfully", res))
}
