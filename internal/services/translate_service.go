// Package services – TranslateService
//
// TranslateService runs one translate request through the content filter, the
// generation cache and the provider, in that order. It has no notion of test
// mode: callers that want caching off wire gencache.Disabled.
package services

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-subtext-backend/internal/domain"
	"github.com/tbourn/go-subtext-backend/internal/gencache"
	"github.com/tbourn/go-subtext-backend/internal/observability"
	"github.com/tbourn/go-subtext-backend/internal/policy"
)

// Generator produces a rewrite for one email.
type Generator interface {
	Generate(ctx context.Context, sender, receiver, body string) domain.GenerationResult
}

// TranslateInput is either the three-field form or, when Single is set, a
// bare Text.
type TranslateInput struct {
	Sender   string
	Receiver string
	Body     string

	Single bool
	Text   string
}

// TranslateOutput is a successful rewrite.
type TranslateOutput struct {
	Text   string
	Cached bool
}

// TranslateService coordinates filter, cache and generator.
type TranslateService struct {
	Cache     gencache.Cache
	Generator Generator

	// Rune limits for the single-field text and the three-field body.
	MaxTextRunes int
	MaxBodyRunes int
}

// Translate validates the input and returns the rewrite. A content rejection
// is returned as *policy.Rejection; generation failures map to ErrQuotaExceeded,
// ErrSafetyBlocked, ErrGenerationFailed or ErrEmptyResult.
func (s *TranslateService) Translate(ctx context.Context, in TranslateInput) (TranslateOutput, error) {
	ctx, span := otel.Tracer("services/TranslateService").Start(ctx, "Translate",
		trace.WithAttributes(attribute.Bool("translate.single", in.Single)),
	)
	defer span.End()

	sender, receiver, body, limit := in.Sender, in.Receiver, in.Body, s.MaxBodyRunes
	key := gencache.Key(sender, receiver, body)
	if in.Single {
		sender, receiver, body, limit = "", "", in.Text, s.MaxTextRunes
		key = gencache.Key(body)
	}

	if rej := policy.Validate(body, limit); rej != nil {
		span.SetAttributes(attribute.String("translate.rejected", rej.Kind))
		return TranslateOutput{}, rej
	}

	if hit, ok := s.Cache.Get(key); ok {
		observability.GenerationCacheTotal.WithLabelValues("hit").Inc()
		span.SetAttributes(attribute.Bool("translate.cached", true))
		return TranslateOutput{Text: hit.Text, Cached: true}, nil
	}
	observability.GenerationCacheTotal.WithLabelValues("miss").Inc()

	res := s.Generator.Generate(ctx, sender, receiver, body)
	observability.GenerationsTotal.WithLabelValues(observability.GenerationOutcome(res)).Inc()
	if res.Blocked {
		switch res.Kind {
		case domain.BlockQuota:
			return TranslateOutput{}, ErrQuotaExceeded
		case domain.BlockSafety:
			return TranslateOutput{}, ErrSafetyBlocked
		default:
			return TranslateOutput{}, fmt.Errorf("%w: %s", ErrGenerationFailed, res.Reason)
		}
	}
	if res.Text == "" {
		return TranslateOutput{}, ErrEmptyResult
	}

	s.Cache.Put(key, res)
	return TranslateOutput{Text: res.Text}, nil
}
