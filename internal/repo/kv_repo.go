// This file provides the queries behind the SQLite key-value store. Entries
// carry an absolute expiry; reads ignore expired rows and PurgeExpired removes
// them.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-subtext-backend/internal/domain"
)

// ErrNotFound is returned when a key is missing or expired.
var ErrNotFound = errors.New("not found")

// GetEntry returns the live entry for key, or ErrNotFound.
func GetEntry(ctx context.Context, db *gorm.DB, key string, now time.Time) (*domain.KVEntry, error) {
	var e domain.KVEntry
	err := db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", key, now).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// PutEntry inserts or replaces the entry for key.
func PutEntry(ctx context.Context, db *gorm.DB, key string, value []byte, expiresAt time.Time) error {
	e := domain.KVEntry{Key: key, Value: value, ExpiresAt: expiresAt}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).
		Create(&e).Error
}

// DeleteEntry removes key. Deleting a missing key is not an error.
func DeleteEntry(ctx context.Context, db *gorm.DB, key string) error {
	return db.WithContext(ctx).Where("key = ?", key).Delete(&domain.KVEntry{}).Error
}

// PurgeExpired deletes every entry whose expiry is not after now and returns
// the number of rows removed.
func PurgeExpired(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.KVEntry{})
	return res.RowsAffected, res.Error
}
