// Package admin реализует создание администратора по секретному ключу.
package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Handler обрабатывает запросы на создание администратора.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс создания администратора.
type Service interface {
	CreateAdmin(ctx context.Context, req models.CreateAdminRequest) (*models.AuthResult, error)
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
// @Summary Создание администратора
// @Description Создает пользователя с ролью admin, если adminKey совпадает с ADMIN_CREATION_KEY.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body models.CreateAdminRequest true "Данные администратора"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse "Неверный ключ"
// @Failure 409 {object} response.ErrorResponse
// @Router /auth/admin [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.admin"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.CreateAdminRequest
	if err := response.Decode(r, h.validate, &req); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	res, err := h.service.CreateAdmin(r.Context(), req)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("admin created", slog.String("uid", res.User.UUID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OK("Admin user created successfully", res))
}
