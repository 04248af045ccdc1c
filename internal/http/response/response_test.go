package response

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
)

func TestOK(t *testing.T) {
	data := map[string]string{"key": "value"}
	resp := OK("done", data)

	assert.True(t, resp.Success)
	assert.Equal(t, "done", resp.Message)
	assert.Equal(t, data, resp.Data)
}

func TestError(t *testing.T) {
	resp := Error("something went wrong")

	assert.False(t, resp.Success)
	assert.Equal(t, "something went wrong", resp.Message)
	assert.Nil(t, resp.Data)
}

func TestValidationError(t *testing.T) {
	type TestStruct struct {
		Name  string `validate:"required"`
		Email string `validate:"email"`
		Kind  string `validate:"oneof=a b"`
	}

	err := validator.New().Struct(TestStruct{Email: "nope", Kind: "c"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "field Name is a required field")
	assert.Contains(t, resp.Message, "field Email must be a valid email")
	assert.Contains(t, resp.Message, "field Kind must be one of: a b")
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.Validation("bad"), http.StatusBadRequest},
		{apperr.Unauthorized("who"), http.StatusUnauthorized},
		{apperr.Forbidden("no"), http.StatusForbidden},
		{apperr.NotFound("gone"), http.StatusNotFound},
		{apperr.Conflict("dup"), http.StatusConflict},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusCode(tt.err), tt.err.Error())
	}
}

func TestFailHidesInternalDetails(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	Fail(w, req, log, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"internal server error"}`, w.Body.String())
}

func TestFailBusinessError(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	Fail(w, req, log, apperr.NotFound("Subscription not found"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Subscription not found"}`, w.Body.String())
}

func TestDecode(t *testing.T) {
	type body struct {
		Email string `json:"email" validate:"required,email"`
	}
	v := validator.New()

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.io"}`))
		var dst body
		require.NoError(t, Decode(req, v, &dst))
		assert.Equal(t, "a@b.io", dst.Email)
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		var dst body
		err := Decode(req, v, &dst)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
		assert.Equal(t, "invalid request body", apperr.Message(err))
	})

	t.Run("failed validation", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"x"}`))
		var dst body
		err := Decode(req, v, &dst)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
		assert.Contains(t, apperr.Message(err), "must be a valid email")
	})
}
