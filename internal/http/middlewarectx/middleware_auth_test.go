package middlewarectx_test

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
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) ValidateToken(ctx context.Context, token string) (*models.Identity, error) {
	args := m.Called(ctx, token)
	id, _ := args.Get(0).(*models.Identity)
	return id, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestJWTMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		authHeader     string
		setupMock      func(*AuthServiceMock)
		wantStatusCode int
		wantCalled     bool
		wantBody       string
	}{
		{
			name:           "missing Authorization header",
			setupMock:      func(*AuthServiceMock) {},
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       `{"success":false,"message":"Unauthorized"}`,
		},
		{
			name:           "invalid Authorization header prefix",
			authHeader:     "Basic sometoken",
			setupMock:      func(*AuthServiceMock) {},
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       `{"success":false,"message":"Unauthorized"}`,
		},
		{
			name:           "empty bearer token",
			authHeader:     "Bearer ",
			setupMock:      func(*AuthServiceMock) {},
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       `{"success":false,"message":"Unauthorized"}`,
		},
		{
			name:       "token rejected",
			authHeader: "Bearer token",
			setupMock: func(m *AuthServiceMock) {
				m.On("ValidateToken", mock.Anything, "token").Return(nil, apperr.Unauthorized("Unauthorized"))
			},
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       `{"success":false,"message":"Unauthorized"}`,
		},
		{
			name:       "storage failure",
			authHeader: "Bearer token",
			setupMock: func(m *AuthServiceMock) {
				m.On("ValidateToken", mock.Anything, "token").Return(nil, errors.New("db down"))
			},
			wantStatusCode: http.StatusInternalServerError,
			wantBody:       `{"success":false,"message":"internal server error"}`,
		},
		{
			name:       "valid token",
			authHeader: "Bearer validtoken",
			setupMock: func(m *AuthServiceMock) {
				m.On("ValidateToken", mock.Anything, "validtoken").
					Return(&models.Identity{UserUID: "user-1", Role: models.RoleAdmin}, nil)
			},
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authMock := new(AuthServiceMock)
			tt.setupMock(authMock)

			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				id, ok := middlewarectx.IdentityFrom(r.Context())
				assert.True(t, ok)
				assert.Equal(t, "user-1", id.UserUID)
				assert.Equal(t, models.RoleAdmin, id.Role)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			middlewarectx.JWTMiddleware(authMock, newNoopLogger())(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatusCode, rr.Code)
			assert.Equal(t, tt.wantCalled, called)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rr.Body.String())
			}
			authMock.AssertExpectations(t)
		})
	}
}

func TestIdentityFromEmptyContext(t *testing.T) {
	_, ok := middlewarectx.IdentityFrom(context.Background())
	assert.False(t, ok)
}
