package stores

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/storebridge/storebridge/models"
	"gorm.io/gorm"
)

var (
	ErrKeyMismatch = errors.New("idempotency key reused with different request")
	ErrInProgress  = errors.New("apply already in progress for idempotency key")
)

// How long a locked-but-incomplete record blocks other writers before it is
// considered abandoned and taken over.
const lockTimeout = time.Minute

type IdempotencyStore struct {
	BaseStore
}

func NewIdempotencyStore(db *gorm.DB) *IdempotencyStore {
	return &IdempotencyStore{BaseStore: BaseStore{db: db}}
}

// Lookup returns the record for a key, or nil when the key is unknown.
func (s *IdempotencyStore) Lookup(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	var record models.IdempotencyRecord
	err := s.GetDB(ctx).Where("key = ?", key).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Begin claims a key for execution. The unique index on key serializes
// concurrent writers: exactly one caller gets isNew=true and may run entity
// logic; losers either read back the committed outcome or get ErrInProgress.
func (s *IdempotencyStore) Begin(ctx context.Context, key, requestHash string) (*models.IdempotencyRecord, bool, error) {
	now := time.Now()

	record := &models.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		LockedAt:    &now,
	}
	err := s.GetDB(ctx).Create(record).Error
	if err == nil {
		return record, true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, err
	}

	existing, err := s.Lookup(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, ErrInProgress
	}

	if existing.RequestHash != requestHash {
		return nil, false, ErrKeyMismatch
	}

	if existing.Completed() {
		return existing, false, nil
	}

	if existing.LockedAt != nil && time.Since(*existing.LockedAt) < lockTimeout {
		return nil, false, ErrInProgress
	}

	// Abandoned lock: take it over and re-run.
	result := s.GetDB(ctx).
		Model(&models.IdempotencyRecord{}).
		Where("key = ? AND completed_at IS NULL AND (locked_at IS NULL OR locked_at < ?)", key, now.Add(-lockTimeout)).
		Update("locked_at", now)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, false, ErrInProgress
	}

	existing.LockedAt = &now
	return existing, true, nil
}

// Release frees a claimed key without recording an outcome, so a later
// delivery of the same key runs the entity logic again. Used for failed
// applies, which the Manager is allowed to retry.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.GetDB(ctx).
		Model(&models.IdempotencyRecord{}).
		Where("key = ? AND completed_at IS NULL", key).
		Update("locked_at", nil).Error
}

// Complete records the ack outcome for a key. Once recorded, later deliveries
// of the same key read it back verbatim.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, ack *models.Acknowledgment) error {
	now := time.Now()
	return s.GetDB(ctx).
		Model(&models.IdempotencyRecord{}).
		Where("key = ?", key).
		Updates(map[string]interface{}{
			"ack_status":   ack.AckStatus,
			"ack_payload":  ack.AckPayload,
			"completed_at": now,
			"locked_at":    nil,
		}).Error
}

// HashRequest digests the raw request body for the reuse-with-different-body check.
func HashRequest(body []byte) string {
	hash := sha256.Sum256(body)
	return hex.EncodeToString(hash[:])
}
