package kv

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-subtext-backend/internal/repo"
)

// SQLStore keeps entries in the kv_entries table. Expired rows are invisible
// to Get and removed by PruneExpired.
type SQLStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSQLStore returns a store over an already migrated database.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	e, err := repo.GetEntry(ctx, s.db, key, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e.Value, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return repo.PutEntry(ctx, s.db, key, value, s.now().Add(ttl))
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	return repo.DeleteEntry(ctx, s.db, key)
}

// TTL implements TTLReader.
func (s *SQLStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	now := s.now()
	e, err := repo.GetEntry(ctx, s.db, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return e.ExpiresAt.Sub(now), nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// PruneExpired implements Pruner.
func (s *SQLStore) PruneExpired(ctx context.Context) (int64, error) {
	return repo.PurgeExpired(ctx, s.db, s.now())
}
