package invite

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Invite(ctx context.Context, requesterUID, subscriptionID, email string) (*models.InviteResult, error) {
	args := m.Called(ctx, requesterUID, subscriptionID, email)
	res, _ := args.Get(0).(*models.InviteResult)
	return res, args.Error(1)
}

func TestInviteHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	owner := models.Identity{UserUID: "owner-1", Role: models.RoleUser}

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "invited",
			body: `{"email":"bob@example.com"}`,
			setupMock: func(m *MockService) {
				m.On("Invite", mock.Anything, "owner-1", "sub-1", "bob@example.com").Return(&models.InviteResult{
					InvitedUser: models.UserSummary{UUID: "bob", Name: "Bob", Email: "bob@example.com"},
					ExpiresAt:   time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"invitedUser":{"id":"bob","name":"Bob","email":"bob@example.com"}`,
		},
		{
			name:           "invalid email",
			body:           `{"email":"bob"}`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `field Email must be a valid email`,
		},
		{
			name: "unknown invitee",
			body: `{"email":"ghost@example.com"}`,
			setupMock: func(m *MockService) {
				m.On("Invite", mock.Anything, "owner-1", "sub-1", "ghost@example.com").
					Return(nil, apperr.NotFound("User not found with this email"))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `User not found with this email`,
		},
		{
			name: "already a member",
			body: `{"email":"bob@example.com"}`,
			setupMock: func(m *MockService) {
				m.On("Invite", mock.Anything, "owner-1", "sub-1", "bob@example.com").
					Return(nil, apperr.Conflict("User is already an active family member"))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `User is already an active family member`,
		},
		{
			name: "family is full",
			body: `{"email":"bob@example.com"}`,
			setupMock: func(m *MockService) {
				m.On("Invite", mock.Anything, "owner-1", "sub-1", "bob@example.com").
					Return(nil, apperr.Validation("Maximum 5 family members allowed"))
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `Maximum 5 family members allowed`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/family-subscriptions/sub-1/invite", strings.NewReader(tt.body))
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add(middlewarectx.SubscriptionIDParam, "sub-1")
			ctx := middlewarectx.WithIdentity(req.Context(), owner)
			req = req.WithContext(context.WithValue(ctx, chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			assert.NotContains(t, w.Body.String(), "token")
			svc.AssertExpectations(t)
		})
	}
}
