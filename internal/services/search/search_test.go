package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	services "github.com/magabrotheeeer/subscription-tracker/internal/services/search"
)

func TestParseQuery_Defaults(t *testing.T) {
	f, err := services.ParseQuery(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, "createdAt", f.SortBy)
	assert.Equal(t, models.SortDesc, f.SortOrder)
	assert.Nil(t, f.MinPrice)
	assert.Empty(t, f.Categories)
}

func TestParseQuery_Filters(t *testing.T) {
	q := url.Values{
		"category":         {"basic,premium"},
		"status":           {"active", "inactive"},
		"paymentMethod":    {"card"},
		"userEmail":        {"@example.com"},
		"userId":           {"11111111-1111-1111-1111-111111111111"},
		"minPrice":         {"5"},
		"maxPrice":         {"20.5"},
		"startDate":        {"2025-01-01"},
		"endDate":          {"2025-01-31"},
		"renewalEndDate":   {"2025-02-01T10:00:00Z"},
		"renewalStartDate": {"2025-01-15"},
		"page":             {"3"},
		"limit":            {"500"},
		"sortBy":           {"price"},
		"sortOrder":        {"ASC"},
	}

	f, err := services.ParseQuery(q)
	require.NoError(t, err)
	assert.Equal(t, []string{"basic", "premium"}, f.Categories)
	assert.Equal(t, []string{"active", "inactive"}, f.Statuses)
	assert.Equal(t, "card", f.PaymentMethod)
	assert.Equal(t, 5.0, *f.MinPrice)
	assert.Equal(t, 20.5, *f.MaxPrice)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), *f.StartFrom)
	assert.Equal(t, time.Date(2025, 1, 31, 23, 59, 59, 999999999, time.UTC), *f.StartTo, "date-only upper bound covers the whole day")
	assert.Equal(t, time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC), *f.RenewalTo, "timestamps are taken as is")
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, models.MaxLimit, f.Limit)
	assert.Equal(t, "price", f.SortBy)
	assert.Equal(t, models.SortAsc, f.SortOrder)
}

func TestParseQuery_Errors(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		wantMsg string
	}{
		{name: "unknown params listed", query: url.Values{"foo": {"bar"}, "baz": {"1"}, "page": {"1"}}, wantMsg: "Invalid query parameter(s): baz, foo"},
		{name: "bad category", query: url.Values{"category": {"gold"}}},
		{name: "bad price", query: url.Values{"minPrice": {"cheap"}}},
		{name: "negative price", query: url.Values{"maxPrice": {"-1"}}},
		{name: "bad date", query: url.Values{"startDate": {"31-01-2025"}}},
		{name: "zero page", query: url.Values{"page": {"0"}}},
		{name: "page offset overflow", query: url.Values{"page": {"9223372036854775807"}, "limit": {"100"}}, wantMsg: "page must be at most 21474836"},
		{name: "page above max", query: url.Values{"page": {"21474837"}}},
		{name: "non numeric limit", query: url.Values{"limit": {"ten"}}},
		{name: "unknown sort field", query: url.Values{"sortBy": {"password"}}},
		{name: "bad sort order", query: url.Values{"sortOrder": {"up"}}},
		{name: "bad user id", query: url.Values{"userId": {"42"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := services.ParseQuery(tt.query)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindValidation))
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, apperr.Message(err))
			}
		})
	}
}

type RepoMock struct{ mock.Mock }

func (m *RepoMock) SearchSubscriptions(ctx context.Context, f models.SearchFilter) ([]models.SubscriptionWithUser, int, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]models.SubscriptionWithUser), args.Int(1), args.Error(2)
}

func (m *RepoMock) SubscriptionStats(ctx context.Context) (*models.Statistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Statistics), args.Error(1)
}

var (
	admin = models.Identity{UserUID: "admin", Role: models.RoleAdmin}
	user  = models.Identity{UserUID: "user", Role: models.RoleUser}
	nop   = slog.New(slog.NewTextHandler(io.Discard, nil))
)

func TestSearchService_Search(t *testing.T) {
	t.Run("pagination uses total count", func(t *testing.T) {
		repo := new(RepoMock)
		f := models.SearchFilter{Page: 3, Limit: 10}
		repo.On("SearchSubscriptions", mock.Anything, f).Return(make([]models.SubscriptionWithUser, 5), 25, nil).Once()

		res, err := services.NewSearchService(repo, nop).Search(context.Background(), admin, f)
		require.NoError(t, err)
		assert.Len(t, res.Items, 5)
		assert.Equal(t, models.Pagination{
			CurrentPage: 3,
			TotalPages:  3,
			TotalCount:  25,
			Limit:       10,
			HasNext:     false,
			HasPrev:     true,
		}, res.Pagination)
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		repo := new(RepoMock)
		_, err := services.NewSearchService(repo, nop).Search(context.Background(), user, models.SearchFilter{Page: 1, Limit: 10})
		assert.True(t, apperr.Is(err, apperr.KindForbidden))
		repo.AssertNotCalled(t, "SearchSubscriptions", mock.Anything, mock.Anything)
	})

	t.Run("storage error", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("SearchSubscriptions", mock.Anything, mock.Anything).Return(nil, 0, errors.New("db down")).Once()
		_, err := services.NewSearchService(repo, nop).Search(context.Background(), admin, models.SearchFilter{Page: 1, Limit: 10})
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	})
}

func TestSearchService_Stats(t *testing.T) {
	repo := new(RepoMock)
	stats := &models.Statistics{TotalUsers: 4, UsersWithSubscriptions: 3, UsersWithoutSubscriptions: 1}
	repo.On("SubscriptionStats", mock.Anything).Return(stats, nil).Once()
	svc := services.NewSearchService(repo, nop)

	got, err := svc.Stats(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, stats, got)

	_, err = svc.Stats(context.Background(), user)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}
