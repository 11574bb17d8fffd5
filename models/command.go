package models

import (
	"time"
)

type CommandType string
type EntityType string
type CommandStatus string

const (
	CommandUpsertProduct     CommandType = "upsert_product"
	CommandUpsertVariant     CommandType = "upsert_variant"
	CommandUpsertCustomer    CommandType = "upsert_customer"
	CommandUpsertOrder       CommandType = "upsert_order"
	CommandUpsertCategory    CommandType = "upsert_category"
	CommandUpsertBrand       CommandType = "upsert_brand"
	CommandUpsertOrderStatus CommandType = "upsert_order_status"
	CommandPing              CommandType = "ping"

	CommandUpsertProductQuantities   CommandType = "upsert_product_quantities"
	CommandUpsertQuantityTransaction CommandType = "upsert_product_quantity_transaction"
)

const (
	EntityProduct     EntityType = "product"
	EntityVariant     EntityType = "variant"
	EntityCustomer    EntityType = "customer"
	EntityOrder       EntityType = "order"
	EntityCategory    EntityType = "category"
	EntityBrand       EntityType = "brand"
	EntityOrderStatus EntityType = "order_status"
	EntityNone        EntityType = ""

	EntityProductQuantity     EntityType = "product_quantity"
	EntityQuantityTransaction EntityType = "quantity_transaction"
)

const (
	CommandQueued   CommandStatus = "queued"
	CommandSending  CommandStatus = "sending"
	CommandRetrying CommandStatus = "retrying"
	CommandApplied  CommandStatus = "applied"
	CommandSkipped  CommandStatus = "skipped"
	CommandFailed   CommandStatus = "failed"
	CommandRejected CommandStatus = "rejected"
	CommandDead     CommandStatus = "dead"
)

var commandEntities = map[CommandType]EntityType{
	CommandUpsertProduct:     EntityProduct,
	CommandUpsertVariant:     EntityVariant,
	CommandUpsertCustomer:    EntityCustomer,
	CommandUpsertOrder:       EntityOrder,
	CommandUpsertCategory:    EntityCategory,
	CommandUpsertBrand:       EntityBrand,
	CommandUpsertOrderStatus: EntityOrderStatus,
	CommandPing:              EntityNone,

	CommandUpsertProductQuantities:   EntityProductQuantity,
	CommandUpsertQuantityTransaction: EntityQuantityTransaction,
}

func (t CommandType) Entity() EntityType {
	return commandEntities[t]
}

func (t CommandType) Valid() bool {
	_, ok := commandEntities[t]
	return ok
}

// CommandTypeForEntity is the inverse of Entity; ping has no entity.
func CommandTypeForEntity(entity EntityType) (CommandType, bool) {
	for cmdType, et := range commandEntities {
		if et == entity && et != EntityNone {
			return cmdType, true
		}
	}
	return "", false
}

var commandTransitions = map[CommandStatus][]CommandStatus{
	CommandQueued:   {CommandSending, CommandRejected},
	CommandSending:  {CommandApplied, CommandSkipped, CommandFailed, CommandRejected, CommandRetrying, CommandDead},
	CommandRetrying: {CommandSending},
}

func (s CommandStatus) CanTransition(to CommandStatus) bool {
	for _, next := range commandTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s CommandStatus) Terminal() bool {
	switch s {
	case CommandApplied, CommandSkipped, CommandFailed, CommandRejected, CommandDead:
		return true
	}
	return false
}

type Command struct {
	ID              string        `json:"command_id" gorm:"primaryKey;column:command_id"`
	CommandType     CommandType   `json:"command_type" gorm:"not null;index"`
	EntityType      EntityType    `json:"entity_type" gorm:"not null"`
	StoreAccount    string        `json:"store_account" gorm:"index"`
	CustomerAccount string        `json:"customer_account"`
	ERPInstance     string        `json:"erp_instance"`
	IdempotencyKey  string        `json:"idempotency_key" gorm:"uniqueIndex;not null"`
	Payload         JSON          `json:"payload" gorm:"type:jsonb"`
	Status          CommandStatus `json:"status" gorm:"not null;default:'queued';index"`
	AttemptCount    int           `json:"attempt_count" gorm:"default:0"`
	NextAttemptAt   *time.Time    `json:"next_attempt_at" gorm:"index"`
	AckStatus       *AckStatus    `json:"ack_status"`
	AckPayload      JSON          `json:"ack_payload" gorm:"type:jsonb"`
	LastError       string        `json:"last_error"`
	CreatedAt       time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time     `json:"updated_at" gorm:"autoUpdateTime"`

	Attempts []DeliveryAttempt `json:"attempts,omitempty" gorm:"foreignKey:CommandID"`
}

// DeliveryAttempt is one HTTPS exchange for a command. Append-only.
type DeliveryAttempt struct {
	ID             uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	CommandID      string     `json:"command_id" gorm:"not null;index"`
	AttemptNumber  int        `json:"attempt_number" gorm:"not null"`
	SentAt         time.Time  `json:"sent_at"`
	ResponseStatus int        `json:"response_status"`
	AckStatus      *AckStatus `json:"ack_status"`
	Error          string     `json:"error"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

// CommandEnvelope is the wire shape of a command as delivered to the Executor.
type CommandEnvelope struct {
	CommandID       string      `json:"command_id"`
	CommandType     CommandType `json:"command_type"`
	EntityType      EntityType  `json:"entity_type"`
	StoreAccount    string      `json:"store_account"`
	CustomerAccount string      `json:"customer_account"`
	ERPInstance     string      `json:"erp_instance"`
	IdempotencyKey  string      `json:"idempotency_key"`
	Payload         JSON        `json:"payload"`
}

func (c *Command) Envelope() *CommandEnvelope {
	return &CommandEnvelope{
		CommandID:       c.ID,
		CommandType:     c.CommandType,
		EntityType:      c.EntityType,
		StoreAccount:    c.StoreAccount,
		CustomerAccount: c.CustomerAccount,
		ERPInstance:     c.ERPInstance,
		IdempotencyKey:  c.IdempotencyKey,
		Payload:         c.Payload,
	}
}
