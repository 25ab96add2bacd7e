// Package handlers provides the API operations as runtime-neutral
// invoke.Handler values, so the same code serves gin and Lambda.
//
// This file defines the standard response utilities used across all endpoints,
// including the structured error envelope and the shared success bodies.
//
// Conventions:
//   - All error responses return an ErrorResponse with a stable `code`.
//   - `fail()` centralizes error logging and formatting; 5xx responses are
//     logged with the request-scoped logger carried in the context.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "User not found"
//	}
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-user-records/internal/invoke"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
//
// Fields:
//   - RequestID: correlation ID, echoed from X-Request-ID (server) or the
//     gateway request id (Lambda).
//   - Code: a stable, machine-readable string (see errors.go constants).
//   - Message: a human-readable error description, safe for display to users.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"User not found"`
}

// MessageResponse is the body of populate and delete.
type MessageResponse struct {
	Message string `json:"message" example:"Created 10 users"`
}

// HealthResponse reports liveness and the active runtime.
type HealthResponse struct {
	Status      string    `json:"status" example:"healthy"`
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment" example:"Docker" enums:"Docker,AWS Lambda"`
}

// fail builds an error response and logs server-side errors.
func fail(ctx context.Context, req invoke.Request, status int, code, msg string) invoke.Response {
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(ctx).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	return invoke.JSON(status, ErrorResponse{
		RequestID: req.RequestID,
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail(). Its shape matches invoke.ErrorFunc
// minus the code, which is derived from the status.
func Fail(ctx context.Context, req invoke.Request, status int, msg string) invoke.Response {
	return fail(ctx, req, status, codeForStatus(status), msg)
}

// ok writes a success JSON response.
func ok(body any) invoke.Response {
	return invoke.JSON(http.StatusOK, body)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrCodeBadRequest
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusMethodNotAllowed:
		return ErrCodeMethodNotAllowed
	case http.StatusRequestEntityTooLarge:
		return ErrCodePayloadTooLarge
	case http.StatusTooManyRequests:
		return ErrCodeRateLimited
	}
	if status >= http.StatusInternalServerError {
		return ErrCodeInternal
	}
	return ErrCodeBadRequest
}
