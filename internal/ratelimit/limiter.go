// Package ratelimit throttles repeated attempts per identity (an email address)
// against a shared key-value store.
//
// Each identity has an attempt log under "email-auth:{id}" holding a JSON
// array of unix seconds, and a block flag under "email-auth-block:{id}". Once
// MaxAttempts attempts fall inside Window the flag is set for Block, and every
// attempt while it exists is refused without being recorded.
//
// The read-modify-write on the attempt log is not atomic, so concurrent
// attempts for the same identity may slip past the limit. The limiter is an
// abuse deterrent, not a security boundary.
package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/go-subtext-backend/internal/kv"
)

// ErrStoreUnavailable wraps every failure of the backing store. Callers must
// not treat it as either allowed or blocked.
var ErrStoreUnavailable = errors.New("rate limiter store unavailable")

const (
	attemptsPrefix = "email-auth:"
	blockPrefix    = "email-auth-block:"
	blockValue     = "1"
)

// Config holds the limiter thresholds.
type Config struct {
	MaxAttempts int
	Window      time.Duration
	Block       time.Duration
}

// DefaultConfig is three attempts per ten minutes, then a thirty minute block.
var DefaultConfig = Config{MaxAttempts: 3, Window: 10 * time.Minute, Block: 30 * time.Minute}

// Decision is the outcome of one attempt.
type Decision struct {
	Allowed bool
	// RetryAfter is set when blocked and estimates when attempts resume.
	RetryAfter time.Duration
}

// Limiter records attempts and decides whether they are allowed.
type Limiter struct {
	store kv.Store
	cfg   Config
	log   zerolog.Logger
	now   func() time.Time
}

// New returns a Limiter over store. Zero fields in cfg take DefaultConfig values.
func New(store kv.Store, cfg Config, log zerolog.Logger) *Limiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig.MaxAttempts
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig.Window
	}
	if cfg.Block <= 0 {
		cfg.Block = DefaultConfig.Block
	}
	return &Limiter{store: store, cfg: cfg, log: log, now: time.Now}
}

// Attempt records one attempt for identity and reports whether it is allowed.
func (l *Limiter) Attempt(ctx context.Context, identity string) (Decision, error) {
	ctx, span := otel.Tracer("ratelimit").Start(ctx, "Limiter.Attempt")
	defer span.End()

	blockKey := blockPrefix + identity
	if _, err := l.store.Get(ctx, blockKey); err == nil {
		span.SetAttributes(attribute.Bool("ratelimit.blocked", true))
		return Decision{RetryAfter: l.remainingBlock(ctx, blockKey)}, nil
	} else if !errors.Is(err, kv.ErrNotFound) {
		span.RecordError(err)
		return Decision{}, fmt.Errorf("%w: read block flag: %v", ErrStoreUnavailable, err)
	}

	now := l.now()
	attemptsKey := attemptsPrefix + identity
	attempts, err := l.loadAttempts(ctx, attemptsKey)
	if err != nil {
		span.RecordError(err)
		return Decision{}, err
	}
	attempts = pruneWindow(attempts, now.Unix(), int64(l.cfg.Window/time.Second))

	if len(attempts) >= l.cfg.MaxAttempts {
		if err := l.store.Set(ctx, blockKey, []byte(blockValue), l.cfg.Block); err != nil {
			span.RecordError(err)
			return Decision{}, fmt.Errorf("%w: write block flag: %v", ErrStoreUnavailable, err)
		}
		l.log.Info().Int("attempts", len(attempts)).Dur("block", l.cfg.Block).Msg("identity blocked")
		span.SetAttributes(attribute.Bool("ratelimit.blocked", true))
		return Decision{RetryAfter: l.cfg.Block}, nil
	}

	attempts = append(attempts, now.Unix())
	buf, err := json.Marshal(attempts)
	if err != nil {
		span.RecordError(err)
		return Decision{}, fmt.Errorf("encode attempts: %w", err)
	}
	if err := l.store.Set(ctx, attemptsKey, buf, l.cfg.Window); err != nil {
		span.RecordError(err)
		return Decision{}, fmt.Errorf("%w: write attempts: %v", ErrStoreUnavailable, err)
	}
	span.SetAttributes(attribute.Int("ratelimit.attempts", len(attempts)))
	return Decision{Allowed: true}, nil
}

func (l *Limiter) loadAttempts(ctx context.Context, key string) ([]int64, error) {
	raw, err := l.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read attempts: %v", ErrStoreUnavailable, err)
	}
	var attempts []int64
	if err := json.Unmarshal(raw, &attempts); err != nil {
		// A corrupt log is discarded rather than locking the identity out.
		l.log.Warn().Err(err).Msg("discarding unreadable attempt log")
		return nil, nil
	}
	return attempts, nil
}

// remainingBlock asks the store for the flag's remaining lifetime when it can,
// and otherwise reports the full block duration as an upper bound.
func (l *Limiter) remainingBlock(ctx context.Context, key string) time.Duration {
	if r, ok := l.store.(kv.TTLReader); ok {
		if d, err := r.TTL(ctx, key); err == nil && d > 0 {
			return d
		}
	}
	return l.cfg.Block
}

// pruneWindow keeps the attempts strictly younger than window seconds.
func pruneWindow(attempts []int64, now, window int64) []int64 {
	out := attempts[:0]
	for _, t := range attempts {
		if now-t < window {
			out = append(out, t)
		}
	}
	return out
}
