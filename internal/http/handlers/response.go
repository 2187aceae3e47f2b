// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all endpoints,
// including structured error envelopes, consistent JSON serialization, and
// helpers for common HTTP patterns. The goal is to guarantee uniform responses
// for both success and failure cases, making the API predictable and
// machine-friendly.
//
// Conventions:
//   - All error responses must return an ErrorResponse with a stable `code`.
//   - `fail()` centralizes error logging and formatting, ensuring 5xx responses
//     are logged with request context for observability.
//   - `ok()` writes success responses in a consistent shape across handlers.
//   - When StatusEcho is installed, bodies also carry the HTTP status in a
//     `status` field. Only the boundary decides this; services never see it.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "error": "result not found or expired"
//	}
//
// Example success response:
//
//	HTTP/1.1 200 OK
//	{ "id": "k3x9q0", "success": true }
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-subtext-backend/internal/http/middleware"
)

// ctxKeyEchoStatus marks requests whose bodies should carry their status.
const ctxKeyEchoStatus = "resp.echoStatus"

// ErrorResponse is the standard error envelope returned by all endpoints.
//
// Fields:
//   - RequestID: Optional correlation ID, echoed from X-Request-ID header, used
//     to correlate server logs with client-side errors.
//   - Code: A stable, machine-readable string (see errors.go constants).
//   - Message: A human-readable error description, safe for display to users.
//   - Reason: Optional discriminant for policy and generation failures.
//   - RetryAfterSeconds: Set on rate-limited auth attempts.
//   - Status: HTTP status, only present when StatusEcho is installed.
//
// This struct is used in OpenAPI documentation via Swagger annotations.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"error" example:"result not found or expired"`
	// Why content was refused, e.g. "personal_info" or "safety filter"
	Reason string `json:"reason,omitempty" example:"personal_info"`
	// Seconds until the email gate accepts attempts again
	RetryAfterSeconds int `json:"retry_after_seconds,omitempty" example:"1800"`
	// Echoed HTTP status (test mode only)
	Status int `json:"status,omitempty" example:"404"`
}

// StatusEcho returns a middleware that makes every envelope written by this
// package include its HTTP status. The router installs it in test mode.
func StatusEcho() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxKeyEchoStatus, true)
		c.Next()
	}
}

// echoedStatus returns status when StatusEcho is active, else zero so the
// field is omitted.
func echoedStatus(c *gin.Context, status int) int {
	if c.GetBool(ctxKeyEchoStatus) {
		return status
	}
	return 0
}

// fail aborts the request with a structured error and logs server-side errors.
//
// Server errors (>=500) are logged using the request-scoped logger from middleware.
func fail(c *gin.Context, status int, code, msg string) {
	abort(c, status, ErrorResponse{Code: code, Message: msg})
}

// abort fills the request ID and echoed status of resp, logs 5xx responses
// and writes the envelope.
func abort(c *gin.Context, status int, resp ErrorResponse) {
	resp.RequestID = c.Writer.Header().Get("X-Request-ID")
	resp.Status = echoedStatus(c, status)
	middleware.SetErrorCode(c, resp.Code)

	// Log 5xx (server-side) with request-scoped logger
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", resp.Code).
			Str("reason", resp.Reason).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail().
//
// External packages (e.g., router setup) should call Fail to return
// consistent error envelopes without directly depending on unexported helpers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
