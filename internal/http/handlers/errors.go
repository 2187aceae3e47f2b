// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP responses
// (via the `fail()` helper in this package). These codes provide clients with a stable,
// machine-readable error taxonomy that supplements human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless explicitly noted.
//   - Generic codes (e.g., bad_request, not_found) mirror common HTTP status
//     semantics to aid interoperability.
//   - Domain-specific codes (e.g., quota_exceeded, save_failed) are reserved for
//     business logic errors that cannot be conveyed by status alone.
//   - All error responses must include both an HTTP status and one of these codes.
//
// Example response:
//   {
//     "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//     "code": "content_rejected",
//     "error": "personal information such as phone numbers is not allowed",
//     "reason": "personal_info"
//   }

package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests" // edge limiter, written by middleware
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeInvalidInput      = "invalid_input"
	ErrCodeEmailNotAllowed   = "email_not_allowed"
	ErrCodeTooManyAttempts   = "too_many_attempts"
	ErrCodeAuthStore         = "auth_store_error"
	ErrCodeContentRejected   = "content_rejected"
	ErrCodeSafetyBlocked     = "safety_blocked"
	ErrCodeQuotaExceeded     = "quota_exceeded"
	ErrCodeGenerationFailed  = "generation_failed"
	ErrCodeEmptyResult       = "empty_result"
	ErrCodeSaveFailed        = "save_failed"
	ErrCodeResultUnavailable = "result_unavailable"
)
