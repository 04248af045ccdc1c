package reminder

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	subscription "github.com/magabrotheeeer/subscription-tracker/internal/services/subscription"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) SendRenewalReminder(ctx context.Context, subscriptionID string) (*subscription.ReminderResult, error) {
	args := m.Called(ctx, subscriptionID)
	res, _ := args.Get(0).(*subscription.ReminderResult)
	return res, args.Error(1)
}

func TestReminderHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		secret         string
		header         string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "reminder published",
			secret: "s3cret",
			header: "s3cret",
			body:   `{"subscriptionId":"sub-1"}`,
			setupMock: func(m *MockService) {
				m.On("SendRenewalReminder", mock.Anything, "sub-1").Return(&subscription.ReminderResult{Sent: true, DaysBefore: 3}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"message":"Reminder sent"`,
		},
		{
			name: "skipped for inactive subscription",
			body: `{"subscriptionId":"sub-1"}`,
			setupMock: func(m *MockService) {
				m.On("SendRenewalReminder", mock.Anything, "sub-1").
					Return(&subscription.ReminderResult{Reason: "subscription is not active"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"reason":"subscription is not active"`,
		},
		{
			name:           "wrong secret",
			secret:         "s3cret",
			header:         "guess",
			body:           `{"subscriptionId":"sub-1"}`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "missing subscription id",
			body:           `{}`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `field SubscriptionID is a required field`,
		},
		{
			name: "unknown subscription",
			body: `{"subscriptionId":"sub-404"}`,
			setupMock: func(m *MockService) {
				m.On("SendRenewalReminder", mock.Anything, "sub-404").Return(nil, apperr.NotFound("Subscription not found"))
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/workflow/subscriptions/reminder", strings.NewReader(tt.body))
			if tt.header != "" {
				req.Header.Set(SecretHeader, tt.header)
			}
			w := httptest.NewRecorder()
			New(logger, svc, tt.secret).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
