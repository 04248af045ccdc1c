// Package invite реализует приглашение пользователя в семейную группу по email.
//
// Приглашение сохраняется до отправки письма: ошибка отправки не отменяет его.
package invite

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/request"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Request тело запроса приглашения.
type Request struct {
	Email string `json:"email" validate:"required,email"`
}

// Handler обрабатывает запросы на приглашение.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс приглашения участника.
type Service interface {
	Invite(ctx context.Context, requesterUID, subscriptionID, email string) (*models.InviteResult, error)
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
// @Summary Приглашение в семейную группу
// @Tags Family
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param subscriptionId path string true "ID подписки"
// @Param request body Request true "Email приглашаемого"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Лимит участников или приглашение себя"
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 409 {object} response.ErrorResponse "Уже приглашен или участник"
// @Router /family-subscriptions/{subscriptionId}/invite [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.family.invite"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	requester, err := request.Identity(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	var req Request
	if err := response.Decode(r, h.validate, &req); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	subscriptionID := chi.URLParam(r, middlewarectx.SubscriptionIDParam)
	res, err := h.service.Invite(r.Context(), requester.UserUID, subscriptionID, req.Email)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("family member invited", slog.String("subscription_id", subscriptionID), slog.String("invitee", res.InvitedUser.UUID))
	render.JSON(w, r, response.OK("Invitation sent successfully", res))
}
