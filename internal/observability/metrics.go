// Package observability – domain metrics
//
// This file declares the Prometheus collectors for the subtext flows. Label
// values are drawn from small fixed sets so cardinality stays bounded:
//
//   - outcome: ok|empty|quota|safety|upstream
//   - decision: allowed|blocked|rejected|error
//   - tier: durable|fallback
package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/go-subtext-backend/internal/domain"
)

// Generation outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeEmpty    = "empty"
	OutcomeQuota    = "quota"
	OutcomeSafety   = "safety"
	OutcomeUpstream = "upstream"
)

// Auth decisions.
const (
	DecisionAllowed  = "allowed"
	DecisionBlocked  = "blocked"
	DecisionRejected = "rejected"
	DecisionError    = "error"
)

// Result store tiers.
const (
	TierDurable  = "durable"
	TierFallback = "fallback"
)

var (
	// GenerationsTotal counts provider calls by outcome.
	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtext_generations_total",
			Help: "Generation provider calls by outcome.",
		},
		[]string{"outcome"},
	)

	// GenerationCacheTotal counts cache lookups by result (hit|miss).
	GenerationCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtext_generation_cache_total",
			Help: "Generation cache lookups by result.",
		},
		[]string{"result"},
	)

	// AuthDecisionsTotal counts email-gate decisions.
	AuthDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtext_auth_decisions_total",
			Help: "Email gate decisions.",
		},
		[]string{"decision"},
	)

	// ResultWritesTotal counts saved results by the tier that accepted them.
	ResultWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtext_result_writes_total",
			Help: "Saved results by storage tier.",
		},
		[]string{"tier"},
	)

	// ResultStoreDurableUp is 1 when the durable store answered its last probe.
	ResultStoreDurableUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "result_store_durable_up",
			Help: "Whether the durable result store is reachable (1) or not (0).",
		},
	)
)

func init() {
	prometheus.MustRegister(
		GenerationsTotal,
		GenerationCacheTotal,
		AuthDecisionsTotal,
		ResultWritesTotal,
		ResultStoreDurableUp,
	)
}

// GenerationOutcome maps a result onto its outcome label.
func GenerationOutcome(r domain.GenerationResult) string {
	if !r.Blocked {
		if r.Text == "" {
			return OutcomeEmpty
		}
		return OutcomeOK
	}
	switch r.Kind {
	case domain.BlockQuota:
		return OutcomeQuota
	case domain.BlockSafety:
		return OutcomeSafety
	default:
		return OutcomeUpstream
	}
}
