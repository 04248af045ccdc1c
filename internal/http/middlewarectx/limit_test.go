package middlewarectx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if called != nil {
			*called = true
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("allows requests within rate limit", func(t *testing.T) {
		mw := middlewarectx.RateLimitMiddleware(newNoopLogger(), rate.NewLimiter(10, 10))
		for range 10 {
			w := httptest.NewRecorder()
			mw(okHandler(nil)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})

	t.Run("blocks requests exceeding rate limit", func(t *testing.T) {
		mw := middlewarectx.RateLimitMiddleware(newNoopLogger(), rate.NewLimiter(1, 1))

		w := httptest.NewRecorder()
		mw(okHandler(nil)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		var called bool
		w = httptest.NewRecorder()
		mw(okHandler(&called)).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/other", nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.False(t, called)
		assert.JSONEq(t, `{"success":false,"message":"too many requests"}`, w.Body.String())
	})

	t.Run("allows requests after rate limit reset", func(t *testing.T) {
		mw := middlewarectx.RateLimitMiddleware(newNoopLogger(), rate.NewLimiter(5, 1))

		w := httptest.NewRecorder()
		mw(okHandler(nil)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		mw(okHandler(nil)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		time.Sleep(300 * time.Millisecond)

		w = httptest.NewRecorder()
		mw(okHandler(nil)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
