// Email gate HTTP handler.
//
// This file exposes:
//   - POST /auth         (check an address and record an attempt)
//   - POST /email-auth   (alias kept for older clients)
//
// A malformed or disallowed address is refused before the limiter is consulted,
// so it never counts as an attempt.
package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-subtext-backend/internal/ratelimit"
	"github.com/tbourn/go-subtext-backend/internal/services"
)

// AuthRequest is the JSON payload for the email gate.
type AuthRequest struct {
	// Email must belong to one of the allowed domains.
	Email string `json:"email" example:"someone@gmail.com"`
}

// AuthResponse is returned when the attempt is allowed.
type AuthResponse struct {
	OK     bool `json:"ok" example:"true"`
	Status int  `json:"status,omitempty" example:"200"`
}

// Auth godoc
// @ID          emailAuth
// @Summary     Email gate
// @Description Accepts addresses from the allowed domains and throttles repeated
// @Description attempts: after 3 attempts within 10 minutes the address is blocked
// @Description for 30 minutes.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.AuthRequest  true  "Email address"
// @Success     200   {object}  handlers.AuthResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Malformed or disallowed address"
// @Failure     429   {object}  handlers.ErrorResponse  "Too many attempts"
// @Failure     500   {object}  handlers.ErrorResponse  "Attempt store unavailable"
// @Router      /auth [post]
func (h *Handlers) Auth(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeInvalidInput, "email must be a string")
		return
	}

	dec, err := h.authSvc.Authenticate(c.Request.Context(), req.Email)
	switch {
	case errors.Is(err, services.ErrEmailNotAllowed):
		fail(c, http.StatusBadRequest, ErrCodeEmailNotAllowed, "only supported email domains are accepted")
		return
	case errors.Is(err, ratelimit.ErrStoreUnavailable):
		fail(c, http.StatusInternalServerError, ErrCodeAuthStore, "authentication store unavailable")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		return
	}

	if !dec.Allowed {
		secs := int(math.Ceil(dec.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		abort(c, http.StatusTooManyRequests, ErrorResponse{
			Code:              ErrCodeTooManyAttempts,
			Message:           "too many attempts in a short time, try again later",
			RetryAfterSeconds: secs,
		})
		return
	}

	ok(c, http.StatusOK, AuthResponse{OK: true, Status: echoedStatus(c, http.StatusOK)})
}
