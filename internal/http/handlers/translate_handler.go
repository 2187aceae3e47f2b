// Translate HTTP handler.
//
// POST /translate accepts either the three-field form {sender, receiver, body}
// or the single-field form {text}. The service runs the content filter, the
// generation cache and the provider; this file only maps its outcomes to
// statuses and envelopes.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-subtext-backend/internal/domain"
	"github.com/tbourn/go-subtext-backend/internal/policy"
	"github.com/tbourn/go-subtext-backend/internal/services"
)

// TranslateRequest is the JSON payload for a rewrite.
//
// Fields are pointers so that a missing field can be told apart from an empty
// string. Non-string values fail decoding.
type TranslateRequest struct {
	Sender   *string `json:"sender" example:"Kim, team lead"`
	Receiver *string `json:"receiver" example:"Lee"`
	Body     *string `json:"body" example:"Please send the report by Friday."`
	// Text selects the single-field form when Body is absent.
	Text *string `json:"text,omitempty" example:"Thanks for your hard work."`
}

// TranslateResponse carries the rewrite.
type TranslateResponse struct {
	Result string `json:"result" example:"(I need that report. Friday. No excuses.)"`
	Cached bool   `json:"cached,omitempty" example:"true"`
	Status int    `json:"status,omitempty" example:"200"`
}

// input converts the payload into a service input, or reports false when the
// shape is wrong.
func (r TranslateRequest) input() (services.TranslateInput, bool) {
	if r.Body == nil && r.Text != nil {
		return services.TranslateInput{Single: true, Text: *r.Text}, true
	}
	if r.Sender == nil || r.Receiver == nil || r.Body == nil {
		return services.TranslateInput{}, false
	}
	return services.TranslateInput{Sender: *r.Sender, Receiver: *r.Receiver, Body: *r.Body}, true
}

// Translate godoc
// @ID          translate
// @Summary     Rewrite an email as its subtext
// @Description Rejects overlong input and input containing phone numbers. Identical
// @Description requests within 5 minutes are served from cache with cached=true.
// @Tags        Translate
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.TranslateRequest  true  "Email fields or a single text"
// @Success     200   {object}  handlers.TranslateResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid input, rejected content or safety block"
// @Failure     429   {object}  handlers.ErrorResponse  "Provider quota exhausted"
// @Failure     500   {object}  handlers.ErrorResponse  "Generation failed or returned nothing"
// @Router      /translate [post]
func (h *Handlers) Translate(c *gin.Context) {
	var req TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeInvalidInput, "sender, receiver and body must be strings")
		return
	}
	in, valid := req.input()
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeInvalidInput, "sender, receiver and body must be strings")
		return
	}

	out, err := h.translateSvc.Translate(c.Request.Context(), in)
	if err != nil {
		h.translateError(c, err)
		return
	}
	ok(c, http.StatusOK, TranslateResponse{
		Result: out.Text,
		Cached: out.Cached,
		Status: echoedStatus(c, http.StatusOK),
	})
}

// translateError maps service errors onto envelopes.
func (h *Handlers) translateError(c *gin.Context, err error) {
	var rej *policy.Rejection
	switch {
	case errors.As(err, &rej):
		abort(c, http.StatusBadRequest, ErrorResponse{
			Code:    ErrCodeContentRejected,
			Message: rej.Message,
			Reason:  rej.Kind,
		})
	case errors.Is(err, services.ErrInvalidInput):
		fail(c, http.StatusBadRequest, ErrCodeInvalidInput, err.Error())
	case errors.Is(err, services.ErrQuotaExceeded):
		abort(c, http.StatusTooManyRequests, ErrorResponse{
			Code:    ErrCodeQuotaExceeded,
			Message: "the generation service is over quota, try again later",
			Reason:  domain.ReasonQuota,
		})
	case errors.Is(err, services.ErrSafetyBlocked):
		abort(c, http.StatusBadRequest, ErrorResponse{
			Code:    ErrCodeSafetyBlocked,
			Message: "content was blocked by the safety filter",
			Reason:  domain.ReasonSafetyFilter,
		})
	case errors.Is(err, services.ErrEmptyResult):
		fail(c, http.StatusInternalServerError, ErrCodeEmptyResult, "the generation service returned no text")
	case errors.Is(err, services.ErrGenerationFailed):
		abort(c, http.StatusInternalServerError, ErrorResponse{
			Code:    ErrCodeGenerationFailed,
			Message: "generation failed",
			Reason:  generationReason(err),
		})
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}

// generationReason picks the client-facing reason for a failed generation.
// Only known reasons pass; provider and transport detail stays in the logs.
func generationReason(err error) string {
	r := strings.TrimPrefix(err.Error(), services.ErrGenerationFailed.Error()+": ")
	if r == domain.ReasonNoAPIKey {
		return r
	}
	return domain.ReasonUpstream
}
