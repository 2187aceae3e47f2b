// Package services – AuthService
//
// AuthService is the email gate in front of the UI. An address must belong to
// an allow-listed domain (optionally one subdomain deep) before the attempt is
// counted by the rate limiter.
package services

import (
	"context"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/go-subtext-backend/internal/observability"
	"github.com/tbourn/go-subtext-backend/internal/ratelimit"
)

// Attempter records an attempt for an identity.
type Attempter interface {
	Attempt(ctx context.Context, identity string) (ratelimit.Decision, error)
}

// AuthService validates addresses and throttles attempts per address.
type AuthService struct {
	limiter Attempter
	emailRE *regexp.Regexp
}

// NewAuthService builds the gate for the given domains.
func NewAuthService(domains []string, limiter Attempter) *AuthService {
	return &AuthService{limiter: limiter, emailRE: emailPattern(domains)}
}

// emailPattern accepts local@domain and local@sub.domain for each allowed domain.
func emailPattern(domains []string) *regexp.Regexp {
	quoted := make([]string, 0, len(domains))
	for _, d := range domains {
		quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(d)))
	}
	return regexp.MustCompile(`^[\w.-]+@([\w-]+\.)?(` + strings.Join(quoted, "|") + `)$`)
}

// NormalizeEmail trims and lower-cases an address so one mailbox maps to one
// limiter identity.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate checks the address and records the attempt. A domain mismatch
// returns ErrEmailNotAllowed; limiter store failures are returned unchanged
// and wrap ratelimit.ErrStoreUnavailable.
func (s *AuthService) Authenticate(ctx context.Context, email string) (ratelimit.Decision, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "Authenticate")
	defer span.End()

	email = NormalizeEmail(email)
	if !s.emailRE.MatchString(email) {
		observability.AuthDecisionsTotal.WithLabelValues(observability.DecisionRejected).Inc()
		return ratelimit.Decision{}, ErrEmailNotAllowed
	}

	d, err := s.limiter.Attempt(ctx, email)
	switch {
	case err != nil:
		span.RecordError(err)
		observability.AuthDecisionsTotal.WithLabelValues(observability.DecisionError).Inc()
		return ratelimit.Decision{}, err
	case !d.Allowed:
		observability.AuthDecisionsTotal.WithLabelValues(observability.DecisionBlocked).Inc()
	default:
		observability.AuthDecisionsTotal.WithLabelValues(observability.DecisionAllowed).Inc()
	}
	span.SetAttributes(attribute.Bool("auth.allowed", d.Allowed))
	return d, nil
}
