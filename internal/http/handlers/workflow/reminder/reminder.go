// Package reminder реализует callback внешнего workflow напоминаний.
//
// Workflow вызывает этот обработчик в момент, когда пора напомнить о продлении.
// Если задан общий секрет, запрос должен нести его в заголовке X-Workflow-Secret.
package reminder

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	subscription "github.com/magabrotheeeer/subscription-tracker/internal/services/subscription"
)

// SecretHeader заголовок с общим секретом workflow.
const SecretHeader = "X-Workflow-Secret"

// Request тело callback-запроса.
type Request struct {
	SubscriptionID string `json:"subscriptionId" validate:"required"`
}

// Handler обрабатывает callback напоминания.
type Handler struct {
	log      *slog.Logger
	service  Service
	secret   string
	validate *validator.Validate
}

// Service описывает интерфейс отправки напоминания.
type Service interface {
	SendRenewalReminder(ctx context.Context, subscriptionID string) (*subscription.ReminderResult, error)
}

// New создает новый Handler. Пустой secret отключает проверку заголовка.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		secret:   secret,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Callback напоминания о продлении
// @Description Публикует напоминание, если подписка активна и дата продления впереди; иначе сообщает причину пропуска.
// @Tags Workflow
// @Accept  json
// @Produce  json
// @Param X-Workflow-Secret header string false "Общий секрет workflow"
// @Param request body Request true "ID подписки"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /workflow/subscriptions/reminder [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.workflow.reminder"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if h.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(h.secret)) != 1 {
		response.Fail(w, r, log, apperr.Unauthorized("Unauthorized"))
		return
	}

	var req Request
	if err := response.Decode(r, h.validate, &req); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	res, err := h.service.SendRenewalReminder(r.Context(), req.SubscriptionID)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	msg := "Reminder sent"
	if !res.Sent {
		msg = "Reminder skipped"
	}
	log.Info(msg, slog.String("subscription_id", req.SubscriptionID), slog.String("reason", res.Reason))
	render.JSON(w, r, response.OK(msg, res))
}
