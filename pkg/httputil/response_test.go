package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"eventId": "evt-1"}

	err := WriteJSON(w, http.StatusOK, data)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"eventId":"evt-1"}`, w.Body.String())
}

func TestWriteJSON_EmptySlice(t *testing.T) {
	w := httptest.NewRecorder()

	assert.NoError(t, WriteSuccess(w, []string{}))
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "error",
			write:      func(w http.ResponseWriter) { WriteError(w, http.StatusConflict, errors.New("duplicate")) },
			wantStatus: http.StatusConflict,
			wantBody:   `{"error":"duplicate"}`,
		},
		{
			name:       "validation",
			write:      func(w http.ResponseWriter) { WriteValidationError(w, "invalid event type") },
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"invalid event type"}`,
		},
		{
			name:       "bad request",
			write:      func(w http.ResponseWriter) { WriteBadRequest(w, "bad") },
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"bad"}`,
		},
		{
			name:       "not found",
			write:      func(w http.ResponseWriter) { WriteNotFoundError(w, "audit event not found") },
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"audit event not found"}`,
		},
		{
			name:       "internal",
			write:      func(w http.ResponseWriter) { WriteInternalError(w) },
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"internal server error"}`,
		},
		{
			name:       "too many requests",
			write:      func(w http.ResponseWriter) { WriteTooManyRequests(w, "rate limit exceeded") },
			wantStatus: http.StatusTooManyRequests,
			wantBody:   `{"error":"rate limit exceeded"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestWriteCreated(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteCreated(w, map[string]string{"eventId": "evt-1"})

	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "evt-1")
}
