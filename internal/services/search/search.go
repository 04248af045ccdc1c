// Package services реализует поиск подписок администратором и сводную статистику.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// AllowedParams имена параметров запроса, которые понимает поиск.
var AllowedParams = []string{
	"category", "status", "paymentMethod", "currency", "frequency",
	"minPrice", "maxPrice", "startDate", "endDate",
	"renewalStartDate", "renewalEndDate", "userId", "userEmail",
	"page", "limit", "sortBy", "sortOrder",
}

// ParseQuery разбирает параметры поиска. Неизвестные имена параметров и
// некорректные значения возвращают ошибку валидации до построения запроса.
func ParseQuery(q url.Values) (models.SearchFilter, error) {
	f := models.SearchFilter{
		Page:      models.DefaultPage,
		Limit:     models.DefaultLimit,
		SortBy:    models.DefaultSortBy,
		SortOrder: models.SortDesc,
	}

	var unknown []string
	for key := range q {
		if !slices.Contains(AllowedParams, key) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return f, apperr.Validation("Invalid query parameter(s): " + strings.Join(unknown, ", "))
	}

	var err error
	if f.Categories, err = setParam(q, "category", models.Categories); err != nil {
		return f, err
	}
	if f.Statuses, err = setParam(q, "status", models.Statuses); err != nil {
		return f, err
	}
	if f.Currencies, err = setParam(q, "currency", models.Currencies); err != nil {
		return f, err
	}
	if f.Frequencies, err = setParam(q, "frequency", models.Frequencies); err != nil {
		return f, err
	}

	f.PaymentMethod = strings.TrimSpace(q.Get("paymentMethod"))
	f.UserEmail = strings.TrimSpace(q.Get("userEmail"))
	if v := q.Get("userId"); v != "" {
		if _, err := uuid.Parse(v); err != nil {
			return f, apperr.Validation("userId must be a valid id")
		}
		f.UserUID = v
	}

	if f.MinPrice, err = priceParam(q, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = priceParam(q, "maxPrice"); err != nil {
		return f, err
	}
	if f.StartFrom, err = dateParam(q, "startDate", false); err != nil {
		return f, err
	}
	if f.StartTo, err = dateParam(q, "endDate", true); err != nil {
		return f, err
	}
	if f.RenewalFrom, err = dateParam(q, "renewalStartDate", false); err != nil {
		return f, err
	}
	if f.RenewalTo, err = dateParam(q, "renewalEndDate", true); err != nil {
		return f, err
	}

	if f.Page, err = positiveParam(q, "page", models.DefaultPage); err != nil {
		return f, err
	}
	if f.Page > models.MaxPage {
		return f, apperr.Validation(fmt.Sprintf("page must be at most %d", models.MaxPage))
	}
	if f.Limit, err = positiveParam(q, "limit", models.DefaultLimit); err != nil {
		return f, err
	}
	f.Limit = min(f.Limit, models.MaxLimit)

	if v := q.Get("sortBy"); v != "" {
		if !slices.Contains(models.SortFields, v) {
			return f, apperr.Validation("sortBy must be one of: " + strings.Join(models.SortFields, ", "))
		}
		f.SortBy = v
	}
	if v := q.Get("sortOrder"); v != "" {
		switch models.SortOrder(strings.ToLower(v)) {
		case models.SortAsc:
			f.SortOrder = models.SortAsc
		case models.SortDesc:
			f.SortOrder = models.SortDesc
		default:
			return f, apperr.Validation("sortOrder must be asc or desc")
		}
	}
	return f, nil
}

// setParam принимает одно значение, список через запятую или повторяющийся параметр.
func setParam(q url.Values, name string, allowed []string) ([]string, error) {
	var out []string
	for _, raw := range q[name] {
		for _, v := range strings.Split(raw, ",") {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if !slices.Contains(allowed, v) {
				return nil, apperr.Validation(fmt.Sprintf("%s must be one of: %s", name, strings.Join(allowed, ", ")))
			}
			if !slices.Contains(out, v) {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

func priceParam(q url.Values, name string) (*float64, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	p, err := strconv.ParseFloat(v, 64)
	if err != nil || p < 0 {
		return nil, apperr.Validation(name + " must be a non-negative number")
	}
	return &p, nil
}

// dateParam разбирает дату. Для верхней границы календарная дата без времени
// включает весь день.
func dateParam(q url.Values, name string, upper bool) (*time.Time, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := models.ParseDate(v)
	if err != nil {
		return nil, apperr.Validation(name + " must be a valid date")
	}
	if upper && len(v) == len(models.DateLayout) {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func positiveParam(q url.Values, name string, def int) (int, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, apperr.Validation(name + " must be a positive integer")
	}
	return n, nil
}

// Repository операции хранилища для поиска и статистики.
type Repository interface {
	SearchSubscriptions(ctx context.Context, f models.SearchFilter) ([]models.SubscriptionWithUser, int, error)
	SubscriptionStats(ctx context.Context) (*models.Statistics, error)
}

// SearchService поиск подписок по всем пользователям.
type SearchService struct {
	repo Repository
	log  *slog.Logger
}

// NewSearchService создает SearchService.
func NewSearchService(repo Repository, log *slog.Logger) *SearchService {
	return &SearchService{repo: repo, log: log}
}

// Search возвращает страницу подписок под фильтром. Пагинация считается по общему
// числу подходящих записей.
func (s *SearchService) Search(ctx context.Context, requester models.Identity, f models.SearchFilter) (*models.SearchResult, error) {
	const op = "services.search.Search"
	if requester.Role != models.RoleAdmin {
		return nil, apperr.Forbidden("Admin access required")
	}

	start := time.Now()
	items, total, err := s.repo.SearchSubscriptions(ctx, f)
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Debug("admin search",
		slog.String("op", op),
		slog.Int("total", total),
		slog.Int("page", f.Page),
	)
	return &models.SearchResult{
		Items:      items,
		Pagination: models.NewPagination(f.Page, f.Limit, total),
	}, nil
}

// Stats сводная статистика подписок.
func (s *SearchService) Stats(ctx context.Context, requester models.Identity) (*models.Statistics, error) {
	const op = "services.search.Stats"
	if requester.Role != models.RoleAdmin {
		return nil, apperr.Forbidden("Admin access required")
	}
	stats, err := s.repo.SubscriptionStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}
