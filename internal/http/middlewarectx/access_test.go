package middlewarectx_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	access "github.com/magabrotheeeer/subscription-tracker/internal/services/access"
)

type EvaluatorMock struct {
	mock.Mock
}

func (m *EvaluatorMock) Check(ctx context.Context, userUID, subscriptionID string) (access.Result, error) {
	args := m.Called(ctx, userUID, subscriptionID)
	return args.Get(0).(access.Result), args.Error(1)
}

var (
	ownerResult  = access.Result{HasAccess: true, AccessType: models.AccessOwner}
	memberResult = access.Result{HasAccess: true, AccessType: models.AccessMember, Family: &models.FamilySubscription{ID: "fam-1"}}
	noneResult   = access.Result{AccessType: models.AccessNone}
)

func guardedRequest(subscriptionID string, identity *models.Identity) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/subscriptions/"+subscriptionID, nil)
	ctx := req.Context()
	if identity != nil {
		ctx = middlewarectx.WithIdentity(ctx, *identity)
	}
	rctx := chi.NewRouteContext()
	if subscriptionID != "" {
		rctx.URLParams.Add(middlewarectx.SubscriptionIDParam, subscriptionID)
	}
	return req.WithContext(context.WithValue(ctx, chi.RouteCtxKey, rctx))
}

func TestAccessGuards(t *testing.T) {
	user := &models.Identity{UserUID: "user-1", Role: models.RoleUser}

	type guard func(middlewarectx.AccessEvaluator) func(http.Handler) http.Handler
	requireAccess := func(ev middlewarectx.AccessEvaluator) func(http.Handler) http.Handler {
		return middlewarectx.RequireAccess(ev, newNoopLogger())
	}
	requireOwner := func(ev middlewarectx.AccessEvaluator) func(http.Handler) http.Handler {
		return middlewarectx.RequireOwner(ev, newNoopLogger())
	}
	requireMember := func(ev middlewarectx.AccessEvaluator) func(http.Handler) http.Handler {
		return middlewarectx.RequireMember(ev, newNoopLogger())
	}

	tests := []struct {
		name       string
		guard      guard
		subID      string
		identity   *models.Identity
		result     access.Result
		checkErr   error
		wantStatus int
		wantCalled bool
	}{
		{name: "access: owner passes", guard: requireAccess, subID: "sub-1", identity: user, result: ownerResult, wantStatus: http.StatusOK, wantCalled: true},
		{name: "access: member passes", guard: requireAccess, subID: "sub-1", identity: user, result: memberResult, wantStatus: http.StatusOK, wantCalled: true},
		{name: "access: stranger denied", guard: requireAccess, subID: "sub-1", identity: user, result: noneResult, wantStatus: http.StatusForbidden},
		{name: "owner: owner passes", guard: requireOwner, subID: "sub-1", identity: user, result: ownerResult, wantStatus: http.StatusOK, wantCalled: true},
		{name: "owner: member denied", guard: requireOwner, subID: "sub-1", identity: user, result: memberResult, wantStatus: http.StatusForbidden},
		{name: "member: member passes", guard: requireMember, subID: "sub-1", identity: user, result: memberResult, wantStatus: http.StatusOK, wantCalled: true},
		{name: "member: owner denied", guard: requireMember, subID: "sub-1", identity: user, result: ownerResult, wantStatus: http.StatusForbidden},
		{name: "lookup error is a server error", guard: requireAccess, subID: "sub-1", identity: user, checkErr: errors.New("db down"), wantStatus: http.StatusInternalServerError},
		{name: "missing subscription id", guard: requireAccess, identity: user, wantStatus: http.StatusBadRequest},
		{name: "missing identity", guard: requireOwner, subID: "sub-1", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := new(EvaluatorMock)
			if tt.identity != nil && tt.subID != "" {
				ev.On("Check", mock.Anything, tt.identity.UserUID, tt.subID).Return(tt.result, tt.checkErr)
			}

			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				res, ok := middlewarectx.AccessFrom(r.Context())
				assert.True(t, ok)
				assert.Equal(t, tt.result, res)
				w.WriteHeader(http.StatusOK)
			})

			rr := httptest.NewRecorder()
			tt.guard(ev)(next).ServeHTTP(rr, guardedRequest(tt.subID, tt.identity))

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCalled, called)
			ev.AssertExpectations(t)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		identity   *models.Identity
		wantStatus int
	}{
		{"admin passes", &models.Identity{UserUID: "a", Role: models.RoleAdmin}, http.StatusOK},
		{"user denied", &models.Identity{UserUID: "u", Role: models.RoleUser}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.identity != nil {
				req = req.WithContext(middlewarectx.WithIdentity(req.Context(), *tt.identity))
			}
			rr := httptest.NewRecorder()
			middlewarectx.RequireAdmin(newNoopLogger())(next).ServeHTTP(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}
