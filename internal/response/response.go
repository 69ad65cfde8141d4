// Package response writes the JSON envelope shared by every API endpoint.
package response

import (
	"encoding/json"
	"net/http"
)

// Error codes carried in the envelope.
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeValidation      = "VALIDATION_ERROR"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
	CodeInternal        = "INTERNAL_SERVER_ERROR"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error describes a failed request.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSON writes data wrapped in a success envelope.
func JSON(w http.ResponseWriter, data interface{}, status int) {
	write(w, status, Envelope{Success: true, Data: data})
}

// Fail writes an error envelope.
func Fail(w http.ResponseWriter, status int, code, msg string) {
	write(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: msg}})
}

// BadRequest writes a 400 error envelope.
func BadRequest(w http.ResponseWriter, msg string) {
	Fail(w, http.StatusBadRequest, CodeBadRequest, msg)
}

// Unauthorized writes a 401 error envelope.
func Unauthorized(w http.ResponseWriter, msg string) {
	Fail(w, http.StatusUnauthorized, CodeUnauthorized, msg)
}

// Forbidden writes a 403 error envelope.
func Forbidden(w http.ResponseWriter, msg string) {
	Fail(w, http.StatusForbidden, CodeForbidden, msg)
}

// NotFound writes a 404 error envelope.
func NotFound(w http.ResponseWriter, msg string) {
	Fail(w, http.StatusNotFound, CodeNotFound, msg)
}

// Validation writes a 400 envelope for input that failed domain checks.
func Validation(w http.ResponseWriter, msg string) {
	Fail(w, http.StatusBadRequest, CodeValidation, msg)
}

// Conflict writes a 409 error envelope.
func Conflict(w http.ResponseWriter, msg string) {
	Fail(w, http.StatusConflict, CodeConflict, msg)
}

// Internal writes a 500 error envelope.
func Internal(w http.ResponseWriter, msg string) {
	Fail(w, http.StatusInternalServerError, CodeInternal, msg)
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		http.Error(w, `{"success":false,"error":{"code":"INTERNAL_SERVER_ERROR","message":"encode failed"}}`, http.StatusInternalServerError)
	}
}
