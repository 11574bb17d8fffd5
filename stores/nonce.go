package stores

import (
	"context"
	"errors"
	"time"

	"github.com/storebridge/storebridge/models"
	"github.com/storebridge/storebridge/security"
	"gorm.io/gorm"
)

type NonceStore struct {
	BaseStore
}

func NewNonceStore(db *gorm.DB) *NonceStore {
	return &NonceStore{BaseStore: BaseStore{db: db}}
}

// Insert records a nonce as seen. The unique (instance_id, nonce) index makes
// this the atomic membership test: the second of two concurrent identical
// requests fails here.
func (s *NonceStore) Insert(ctx context.Context, record *models.NonceRecord) error {
	if err := s.GetDB(ctx).Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return security.ErrNonceReplayed
		}
		return err
	}
	return nil
}

// CleanupExpired purges entries past the replay window. Stale nonces are
// already harmless because of the timestamp bound; this only trims the table.
func (s *NonceStore) CleanupExpired(ctx context.Context) (int64, error) {
	result := s.GetDB(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&models.NonceRecord{})
	return result.RowsAffected, result.Error
}

// Sweep runs CleanupExpired on an interval until ctx is done.
func (s *NonceStore) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.CleanupExpired(ctx)
		}
	}
}
