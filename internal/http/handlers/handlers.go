package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-subtext-backend/internal/domain"
	"github.com/tbourn/go-subtext-backend/internal/ratelimit"
	"github.com/tbourn/go-subtext-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// AuthService gates access by email address.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AuthService interface {
	// Authenticate checks the address and records one attempt for it.
	Authenticate(ctx context.Context, email string) (ratelimit.Decision, error)
}

// TranslateService produces subtext rewrites.
type TranslateService interface {
	Translate(ctx context.Context, in services.TranslateInput) (services.TranslateOutput, error)
}

// ResultService saves and loads shared results.
type ResultService interface {
	Save(ctx context.Context, in services.SaveInput) (services.SaveOutput, error)
	Get(ctx context.Context, id string) (domain.StoredResult, error)
	Health(ctx context.Context) services.HealthStatus
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for the email gate, translation and shared
// results. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	authSvc      AuthService
	translateSvc TranslateService
	resultSvc    ResultService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(authSvc AuthService, translateSvc TranslateService, resultSvc ResultService) *Handlers {
	return &Handlers{authSvc: authSvc, translateSvc: translateSvc, resultSvc: resultSvc}
}

// HealthResponse reports liveness and which result tier is serving.
type HealthResponse struct {
	// "ok" when the durable store answers, "degraded" when only the
	// in-process fallback is available.
	Status string                `json:"status" example:"ok"`
	Store  services.HealthStatus `json:"store"`
}

// Health godoc
// @ID          health
// @Summary     Liveness and store status
// @Description Always 200 while the process serves requests. The store block
// @Description tells whether results currently land in the durable tier.
// @Tags        System
// @Produce     json
// @Success     200  {object}  handlers.HealthResponse
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	st := h.resultSvc.Health(c.Request.Context())
	status := "ok"
	if !st.Durable {
		status = "degraded"
	}
	ok(c, http.StatusOK, HealthResponse{Status: status, Store: st})
}
