// Package gencache memoizes generation results in process memory so that
// identical requests inside the TTL skip the provider call.
//
// Only non-blocked results with text are meant to be stored; callers decide.
// Entries expire lazily: an expired entry is a miss and is removed on read.
// There is no size bound and no background sweep.
package gencache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"

	"github.com/tbourn/go-subtext-backend/internal/domain"
)

// DefaultTTL is the lifetime of a cached generation.
const DefaultTTL = 5 * time.Minute

// Cache is the capability consumed by the translate flow.
type Cache interface {
	Get(key string) (domain.GenerationResult, bool)
	Put(key string, value domain.GenerationResult)
}

type entry struct {
	value     domain.GenerationResult
	expiresAt time.Time
}

// Memory is a mutex-guarded in-process Cache.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

// New returns an empty cache. ttl <= 0 uses DefaultTTL.
func New(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{ttl: ttl, entries: make(map[string]entry), now: time.Now}
}

// Get returns the live entry for key.
func (m *Memory) Get(key string) (domain.GenerationResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return domain.GenerationResult{}, false
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return domain.GenerationResult{}, false
	}
	return e.value, true
}

// Put stores value under key, replacing any previous entry.
func (m *Memory) Put(key string, value domain.GenerationResult) {
	m.mu.Lock()
	m.entries[key] = entry{value: value, expiresAt: m.now().Add(m.ttl)}
	m.mu.Unlock()
}

// Len reports the number of entries held, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Disabled never stores anything.
type Disabled struct{}

func (Disabled) Get(string) (domain.GenerationResult, bool) { return domain.GenerationResult{}, false }
func (Disabled) Put(string, domain.GenerationResult)        {}

// Key derives a cache key from the request fields. Each field is length
// prefixed so that distinct field splits never collide.
func Key(fields ...string) string {
	h := sha256.New()
	var n [8]byte
	for _, f := range fields {
		binary.BigEndian.PutUint64(n[:], uint64(len(f)))
		h.Write(n[:])
		h.Write([]byte(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}
