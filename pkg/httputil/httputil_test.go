package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Mark-AImagineers/NoteKo/pkg/errors"
	"github.com/Mark-AImagineers/NoteKo/pkg/logger"
	"github.com/Mark-AImagineers/NoteKo/pkg/validator"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) *ErrorResponse {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.NotNil(t, env.Error)
	return env.Error
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"email": "alice@example.com"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"email":"alice@example.com"}`, rec.Body.String())
}

func TestWriteError_AppError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithRequestID(req.Context(), "req-1"))
	rec := httptest.NewRecorder()

	WriteError(rec, req, apperrors.New("DUPLICATE_EMAIL", "email already registered", http.StatusConflict, nil), logger.Discard())

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, rec.Header().Get("WWW-Authenticate"))
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "DUPLICATE_EMAIL", body.Code)
	assert.Equal(t, "email already registered", body.Message)
	assert.Equal(t, "req-1", body.RequestID)
}

func TestWriteError_UnauthorizedSetsChallenge(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	WriteError(rec, req, fmt.Errorf("verify: %w", apperrors.Unauthorized("could not validate credentials")), logger.Discard())

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}

func TestWriteError_Sentinels(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("x: %w", apperrors.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("x: %w", apperrors.ErrAlreadyExists), http.StatusConflict, "ALREADY_EXISTS"},
		{fmt.Errorf("x: %w", apperrors.ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT"},
		{apperrors.ErrTooManyRequests, http.StatusTooManyRequests, "RATE_LIMITED"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err, logger.Discard())
		assert.Equal(t, tt.status, rec.Code)
		assert.Equal(t, tt.code, decodeEnvelope(t, rec).Code)
	}
}

func TestWriteError_InternalIsLoggedAndHidden(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter("test", "info", &buf)
	rec := httptest.NewRecorder()

	WriteError(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil), errors.New("pool exhausted"), l)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
	assert.NotContains(t, body.Message, "pool exhausted")
	assert.Contains(t, buf.String(), "pool exhausted")
	assert.Contains(t, buf.String(), "/v1/auth/login")
}

func TestWriteError_Validation(t *testing.T) {
	type in struct {
		Email string `json:"email" validate:"required,email"`
	}
	verr := validator.Validate(in{Email: "nope"})
	require.Error(t, verr)

	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodPost, "/", nil), verr, logger.Discard())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Equal(t, "must be a valid email address", body.Fields["email"])
}

func TestWriteBadRequest(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteBadRequest(rec, httptest.NewRequest(http.MethodPost, "/", nil), errors.New("decode request body: unexpected EOF"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decodeEnvelope(t, rec).Code)
}
