package repository

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

func TestSearchConditions(t *testing.T) {
	minPrice := 5.0
	f := models.SearchFilter{
		Categories: []string{"basic", "premium"},
		UserEmail:  "a_b%",
		MinPrice:   &minPrice,
	}

	sql, args, err := searchConditions(f).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "s.category IN (?,?)")
	assert.Contains(t, sql, "u.email ILIKE ?")
	assert.Contains(t, sql, "s.price >= ?")
	assert.Equal(t, []any{"basic", "premium", `%a\_b\%%`, 5.0}, args)
}

func TestSearchConditions_Empty(t *testing.T) {
	assert.Empty(t, searchConditions(models.SearchFilter{}))
}

func TestOrderBy(t *testing.T) {
	tests := []struct {
		name   string
		filter models.SearchFilter
		want   string
	}{
		{name: "default", filter: models.SearchFilter{}, want: "s.created_at DESC"},
		{name: "price asc", filter: models.SearchFilter{SortBy: "price", SortOrder: models.SortAsc}, want: "s.price ASC"},
		{name: "unknown falls back", filter: models.SearchFilter{SortBy: "password"}, want: "s.created_at DESC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderBy(tt.filter))
		})
	}
}

func searchRows(mock pgxmock.PgxPoolIface) *pgxmock.Rows {
	return mock.NewRows([]string{
		"id", "user_uid", "name", "price", "currency", "frequency", "category", "payment_method",
		"status", "start_date", "renewal_date", "created_at", "updated_at", "uid", "user_name", "email",
	})
}

func TestStorage_SearchSubscriptions(t *testing.T) {
	storage, mock := newMock(t)
	mock.MatchExpectationsInOrder(false)

	f := models.SearchFilter{
		Statuses:  []string{"active"},
		Page:      2,
		Limit:     10,
		SortBy:    "renewalDate",
		SortOrder: models.SortAsc,
	}

	mock.ExpectQuery(`(?s)SELECT s.id.*FROM subscriptions s JOIN users u ON u.uid = s.user_uid WHERE \(s.status IN \(\$1\)\) ORDER BY s.renewal_date ASC, s.id ASC LIMIT 10 OFFSET 10`).
		WithArgs("active").
		WillReturnRows(searchRows(mock).AddRow(
			"sub-1", "u1", "Netflix", 15.99, models.CurrencyUSD, models.FrequencyMonthly, models.CategoryPremium,
			models.PaymentPaypal, models.StatusActive, fixedTime, fixedTime.AddDate(0, 1, 0), fixedTime, fixedTime,
			"u1", "Ann", "ann@example.com"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM subscriptions s JOIN users u ON u.uid = s.user_uid WHERE \(s.status IN \(\$1\)\)`).
		WithArgs("active").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(11))

	items, total, err := storage.SearchSubscriptions(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Netflix", items[0].Name)
	assert.Equal(t, "ann@example.com", items[0].User.Email)
}
