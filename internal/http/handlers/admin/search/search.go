// Package search реализует административный поиск подписок по всем пользователям.
//
// Строка запроса разбирается по белому списку параметров: неизвестный параметр
// или некорректное значение дают 400. Результат содержит страницу подписок
// с данными владельца и сведения о пагинации.
package search

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/request"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	search "github.com/magabrotheeeer/subscription-tracker/internal/services/search"
)

// Handler обрабатывает запросы административного поиска.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс поиска подписок.
type Service interface {
	Search(ctx context.Context, requester models.Identity, f models.SearchFilter) (*models.SearchResult, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Поиск подписок (администратор)
// @Tags Admin
// @Security BearerAuth
// @Produce  json
// @Param userId query string false "UID владельца"
// @Param category query string false "Категории через запятую"
// @Param status query string false "Статусы через запятую"
// @Param currency query string false "Валюты через запятую"
// @Param frequency query string false "Частоты через запятую"
// @Param paymentMethod query string false "Способ оплаты (подстрока)"
// @Param userEmail query string false "Email владельца (подстрока)"
// @Param minPrice query number false "Минимальная цена"
// @Param maxPrice query number false "Максимальная цена"
// @Param startDate query string false "Дата начала не раньше"
// @Param endDate query string false "Дата начала не позже"
// @Param renewalStartDate query string false "Продление не раньше"
// @Param renewalEndDate query string false "Продление не позже"
// @Param page query int false "Страница (с 1)"
// @Param limit query int false "Размер страницы (до 100)"
// @Param sortBy query string false "Поле сортировки"
// @Param sortOrder query string false "asc или desc"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /admin/subscriptions/search [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.search"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	requester, err := request.Identity(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	filter, err := search.ParseQuery(r.URL.Query())
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	res, err := h.service.Search(r.Context(), requester, filter)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Debug("search completed", slog.Int("total", res.Pagination.TotalCount))
	render.JSON(w, r, response.OK("", res))
}
