// Shared result HTTP handlers.
//
// This file exposes:
//   - POST /save-result        (store a rewrite for 24 hours, return its ID)
//   - GET  /get-result/{id}    (load a stored rewrite)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and an earlier save with
// the same key succeeded, the handler returns the ID issued then and sets
// `Idempotency-Replayed: true`.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-subtext-backend/internal/http/middleware"
	"github.com/tbourn/go-subtext-backend/internal/services"
)

// HeaderReceiverName carries the receiver's display name when the body omits it.
const HeaderReceiverName = "X-Receiver-Name"

// SaveResultRequest is the JSON payload for sharing a rewrite.
type SaveResultRequest struct {
	OriginalText   string `json:"originalText" example:"Please send the report by Friday."`
	TranslatedText string `json:"translatedText" example:"(I need that report. Friday. No excuses.)"`
	// SenderName defaults to "Sender".
	SenderName string `json:"senderName,omitempty" example:"Kim, team lead"`
	// ReceiverName falls back to the X-Receiver-Name header, then "Recipient".
	ReceiverName string `json:"receiverName,omitempty" example:"Lee"`
}

// SaveResultResponse returns the short ID of the stored result.
type SaveResultResponse struct {
	ID      string `json:"id" example:"k3x9q0"`
	Success bool   `json:"success" example:"true"`
	Status  int    `json:"status,omitempty" example:"200"`
}

// SaveResult godoc
// @ID          saveResult
// @Summary     Store a rewrite for sharing
// @Description Stores the original and rewritten text for 24 hours under a 6-character ID.
// @Description Supports idempotency via the Idempotency-Key header (same key → same ID).
// @Tags        Results
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       X-Receiver-Name  header  string  false  "Receiver display name"
// @Param       body             body    handlers.SaveResultRequest  true  "Result payload"
// @Success     200  {object}  handlers.SaveResultResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing text"
// @Failure     500  {object}  handlers.ErrorResponse  "Result could not be stored"
// @Router      /save-result [post]
func (h *Handlers) SaveResult(c *gin.Context) {
	var req SaveResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeInvalidInput, "originalText and translatedText must be strings")
		return
	}

	receiver := strings.TrimSpace(req.ReceiverName)
	if receiver == "" {
		receiver = strings.TrimSpace(c.GetHeader(HeaderReceiverName))
	}
	idemKey, _ := middleware.GetIdempotencyKey(c)

	out, err := h.resultSvc.Save(c.Request.Context(), services.SaveInput{
		OriginalText:   req.OriginalText,
		TranslatedText: req.TranslatedText,
		SenderName:     req.SenderName,
		ReceiverName:   receiver,
		IdempotencyKey: idemKey,
	})
	switch {
	case errors.Is(err, services.ErrMissingText):
		fail(c, http.StatusBadRequest, ErrCodeInvalidInput, "originalText and translatedText are required")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeSaveFailed, "failed to save result")
		return
	}

	if out.Replayed {
		c.Header("Idempotency-Replayed", "true")
	}
	ok(c, http.StatusOK, SaveResultResponse{ID: out.ID, Success: true, Status: echoedStatus(c, http.StatusOK)})
}

// GetResult godoc
// @ID          getResult
// @Summary     Load a shared rewrite
// @Tags        Results
// @Produce     json
// @Param       id   path      string  true  "Result ID"  example(k3x9q0)
// @Success     200  {object}  domain.StoredResult
// @Failure     400  {object}  handlers.ErrorResponse  "Missing ID"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found or expired"
// @Failure     500  {object}  handlers.ErrorResponse  "Store failure"
// @Router      /get-result/{id} [get]
func (h *Handlers) GetResult(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "result id is required")
		return
	}

	rec, err := h.resultSvc.Get(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrResultNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "result not found or expired")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeResultUnavailable, "failed to load result")
		return
	}
	ok(c, http.StatusOK, rec)
}
