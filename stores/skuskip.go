package stores

import (
	"context"

	"github.com/storebridge/storebridge/models"
	"gorm.io/gorm"
)

// SkuSkipStore is append-only; skip records are never updated or deleted.
type SkuSkipStore struct {
	BaseStore
}

func NewSkuSkipStore(db *gorm.DB) *SkuSkipStore {
	return &SkuSkipStore{BaseStore: BaseStore{db: db}}
}

func (s *SkuSkipStore) Log(ctx context.Context, record *models.SkuSkipRecord) error {
	return s.GetDB(ctx).Create(record).Error
}

func (s *SkuSkipStore) ListByStore(ctx context.Context, storeID string, limit, offset int) ([]*models.SkuSkipRecord, error) {
	var records []*models.SkuSkipRecord
	err := s.GetDB(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	return records, err
}

func (s *SkuSkipStore) CountByStore(ctx context.Context, storeID string) (int64, error) {
	var count int64
	err := s.GetDB(ctx).
		Model(&models.SkuSkipRecord{}).
		Where("store_id = ?", storeID).
		Count(&count).Error
	return count, err
}
