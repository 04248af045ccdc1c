package stats

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Stats(ctx context.Context, requester models.Identity) (*models.Statistics, error) {
	args := m.Called(ctx, requester)
	st, _ := args.Get(0).(*models.Statistics)
	return st, args.Error(1)
}

func TestStatsHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	admin := models.Identity{UserUID: "a1", Role: models.RoleAdmin}

	t.Run("ok", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Stats", mock.Anything, admin).Return(&models.Statistics{
			ByStatus:                  []models.StatusStat{},
			TotalUsers:                3,
			UsersWithSubscriptions:    2,
			UsersWithoutSubscriptions: 1,
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/admin/subscriptions/stats", nil)
		req = req.WithContext(middlewarectx.WithIdentity(req.Context(), admin))
		w := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"totalUsers":3`)
		assert.Contains(t, w.Body.String(), `"usersWithoutSubscriptions":1`)
		svc.AssertExpectations(t)
	})

	t.Run("storage failure is hidden", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Stats", mock.Anything, admin).Return(nil, errors.New("pg: connection reset"))

		req := httptest.NewRequest(http.MethodGet, "/admin/subscriptions/stats", nil)
		req = req.WithContext(middlewarectx.WithIdentity(req.Context(), admin))
		w := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "internal server error")
		assert.NotContains(t, w.Body.String(), "connection reset")
	})
}
