package models

import (
	"time"
)

// NonceRecord marks a nonce as seen for an instance within the replay window.
// Never mutated after insertion; only used for membership tests.
type NonceRecord struct {
	ID         uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	InstanceID string    `json:"instance_id" gorm:"not null;uniqueIndex:idx_instance_nonce"`
	Nonce      string    `json:"nonce" gorm:"not null;uniqueIndex:idx_instance_nonce"`
	SeenAt     time.Time `json:"seen_at" gorm:"not null"`
	ExpiresAt  time.Time `json:"expires_at" gorm:"not null;index"`
}
