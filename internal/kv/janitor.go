package kv

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Janitor periodically sweeps expired entries from stores that need it.
type Janitor struct {
	pruners  []Pruner
	interval time.Duration
	log      zerolog.Logger
}

// NewJanitor creates a Janitor over the given pruners.
func NewJanitor(interval time.Duration, log zerolog.Logger, pruners ...Pruner) *Janitor {
	return &Janitor{pruners: pruners, interval: interval, log: log}
}

// Run executes the janitor loop until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	if j.interval <= 0 || len(j.pruners) == 0 {
		return nil
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.tick(ctx)
		}
	}
}

func (j *Janitor) tick(ctx context.Context) {
	for _, p := range j.pruners {
		n, err := p.PruneExpired(ctx)
		if err != nil {
			j.log.Warn().Err(err).Msg("janitor: prune expired entries failed")
			continue
		}
		if n > 0 {
			j.log.Debug().Int64("count", n).Msg("janitor: pruned expired entries")
		}
	}
}
