package kv

import (
	"context"
	"sync"
	"time"
)

type memItem struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a process-local Store. It backs the memory driver and the
// result store's fallback tier. Expired entries are dropped on read and by
// PruneExpired.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memItem
	now   func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memItem), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	if !s.now().Before(it.expiresAt) {
		delete(s.items, key)
		return nil, ErrNotFound
	}
	out := make([]byte, len(it.value))
	copy(out, it.value)
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	v := make([]byte, len(value))
	copy(v, value)
	s.mu.Lock()
	s.items[key] = memItem{value: v, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// TTL implements TTLReader.
func (s *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[key]
	now := s.now()
	if !ok || !now.Before(it.expiresAt) {
		return 0, ErrNotFound
	}
	return it.expiresAt.Sub(now), nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

// Len reports the number of entries held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// PruneExpired implements Pruner.
func (s *MemoryStore) PruneExpired(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var n int64
	for k, it := range s.items {
		if !now.Before(it.expiresAt) {
			delete(s.items, k)
			n++
		}
	}
	return n, nil
}
