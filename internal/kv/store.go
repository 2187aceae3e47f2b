// Package kv defines the key-value capability shared by the rate limiter, the
// result store and idempotent saves, with Redis, SQLite and in-process
// implementations. Every value carries a TTL; expired keys read as absent.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("kv: key not found")

// Store is a string-keyed byte store with per-key expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// TTLReader is implemented by stores that can report the remaining lifetime
// of a key. Missing keys return ErrNotFound.
type TTLReader interface {
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// Pruner is implemented by stores that keep expired entries until swept.
type Pruner interface {
	PruneExpired(ctx context.Context) (int64, error)
}
