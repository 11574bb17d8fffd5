package models

import (
	"time"
)

// IdempotencyRecord maps an idempotency key to the recorded ack outcome.
// A record with a nil CompletedAt is locked by an in-flight apply.
type IdempotencyRecord struct {
	ID          string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Key         string     `json:"key" gorm:"uniqueIndex;not null"`
	RequestHash string     `json:"request_hash" gorm:"not null"`
	AckStatus   *AckStatus `json:"ack_status"`
	AckPayload  JSON       `json:"ack_payload" gorm:"type:jsonb"`
	LockedAt    *time.Time `json:"locked_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

func (r *IdempotencyRecord) Completed() bool {
	return r.CompletedAt != nil && r.AckStatus != nil
}

func (r *IdempotencyRecord) Acknowledgment() *Acknowledgment {
	if !r.Completed() {
		return nil
	}
	return &Acknowledgment{AckStatus: *r.AckStatus, AckPayload: r.AckPayload}
}
