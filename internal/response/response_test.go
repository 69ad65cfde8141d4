package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, map[string]int{"count": 2}, http.StatusCreated)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var env struct {
		Success bool           `json:"success"`
		Data    map[string]int `json:"data"`
		Error   *Error         `json:"error"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	assert.True(t, env.Success)
	assert.Equal(t, 2, env.Data["count"])
	assert.Nil(t, env.Error)
}

func TestFailHelpers(t *testing.T) {
	tests := []struct {
		name     string
		write    func(w http.ResponseWriter)
		wantCode int
		wantErr  string
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "nope") }, http.StatusBadRequest, CodeBadRequest},
		{"unauthorized", func(w http.ResponseWriter) { Unauthorized(w, "nope") }, http.StatusUnauthorized, CodeUnauthorized},
		{"forbidden", func(w http.ResponseWriter) { Forbidden(w, "nope") }, http.StatusForbidden, CodeForbidden},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "nope") }, http.StatusNotFound, CodeNotFound},
		{"internal", func(w http.ResponseWriter) { Internal(w, "nope") }, http.StatusInternalServerError, CodeInternal},
		{"conflict", func(w http.ResponseWriter) { Conflict(w, "nope") }, http.StatusConflict, CodeConflict},
		{"validation", func(w http.ResponseWriter) { Validation(w, "nope") }, http.StatusBadRequest, CodeValidation},
		{"rate limited", func(w http.ResponseWriter) { Fail(w, http.StatusTooManyRequests, CodeTooManyRequests, "nope") }, http.StatusTooManyRequests, CodeTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.wantCode, w.Code)
			var env Envelope
			require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantErr, env.Error.Code)
			assert.Equal(t, "nope", env.Error.Message)
		})
	}
}
