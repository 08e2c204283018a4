// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for JSON responses. Every ledger
// and goal endpoint answers with the same envelope: {success, data} on
// success and {success:false, error, code} on failure.

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"salesbook/internal/middleware/ratelimit"
)

// Error codes carried in failure envelopes.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeNotFound          = "NOT_FOUND"
	CodeDuplicate         = "DUPLICATE_ENTRY"
	CodeReplaceIncomplete = "REPLACE_INCOMPLETE"
	CodeImport            = "IMPORT_ERROR"
	CodeRateLimited       = "RATE_LIMITED"
	CodeTimeout           = "TIMEOUT"
	CodeStore             = "STORE_ERROR"
)

// envelope is the body of every ledger and goal response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a response header.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Data wraps v in a success envelope.
func (b *ResponseBuilder) Data(v any) *ResponseBuilder {
	b.body = envelope{Success: true, Data: v}
	return b
}

// Fail sets a failure envelope.
func (b *ResponseBuilder) Fail(code, message string) *ResponseBuilder {
	b.body = envelope{Success: false, Error: message, Code: code}
	return b
}

// Details attaches extra data to a failure envelope.
func (b *ResponseBuilder) Details(v any) *ResponseBuilder {
	if env, ok := b.body.(envelope); ok {
		env.Details = v
		b.body = env
	}
	return b
}

// Raw sends v as the body without an envelope.
func (b *ResponseBuilder) Raw(v any) *ResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Error("Failed to encode JSON response", "error", err, "status_code", b.statusCode)
	}
}

// ErrorResponse creates a failure envelope with the given status.
func ErrorResponse(statusCode int, code, message string) *ResponseBuilder {
	return NewJSONResponse().Status(statusCode).Fail(code, message)
}

// BadRequestError creates a 400 validation failure.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, CodeValidation, message)
}

// UnauthorizedError creates a 401 response for requests without an owner.
func UnauthorizedError() *ResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, CodeUnauthorized, "로그인이 필요합니다")
}

// NotFoundError creates a 404 response.
func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, CodeNotFound, message)
}

// InternalServerError creates a 500 store failure.
func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, CodeStore, message)
}

// TooManyRequestsError creates a 429 response with Retry-After.
func TooManyRequestsError(retryAfter time.Duration) *ResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, CodeRateLimited, "요청이 너무 많습니다. 잠시 후 다시 시도해주세요").
		Header("Retry-After", ratelimit.RetryAfterSeconds(retryAfter))
}
