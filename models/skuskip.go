package models

import (
	"time"
)

const (
	SkipOriginManager  = "manager"
	SkipOriginExecutor = "executor"
)

// SkuSkipRecord is an append-only audit entry for entities dropped by the
// mandatory-SKU gate.
type SkuSkipRecord struct {
	ID         uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	StoreID    string     `json:"store_id" gorm:"index"`
	EntityType EntityType `json:"entity_type" gorm:"not null"`
	ExternalID string     `json:"external_id"`
	Reason     string     `json:"reason" gorm:"not null"`
	Origin     string     `json:"origin" gorm:"not null"`
	CreatedAt  time.Time  `json:"created_at" gorm:"autoCreateTime"`
}
