package stores

import (
	"context"
	"errors"
	"time"

	"github.com/storebridge/storebridge/models"
	"gorm.io/gorm"
)

var (
	ErrNotClaimable  = errors.New("command is not claimable for sending")
	ErrNotCancelable = errors.New("command can only be cancelled while queued")
	ErrNotRequeuable = errors.New("only dead commands can be requeued")
)

type CommandStore struct {
	BaseStore
}

func NewCommandStore(db *gorm.DB) *CommandStore {
	return &CommandStore{BaseStore: BaseStore{db: db}}
}

func (s *CommandStore) Create(ctx context.Context, command *models.Command) error {
	return s.GetDB(ctx).Create(command).Error
}

func (s *CommandStore) GetByID(ctx context.Context, id string) (*models.Command, error) {
	var command models.Command
	err := s.GetDB(ctx).Preload("Attempts").Where("command_id = ?", id).First(&command).Error
	if err != nil {
		return nil, err
	}
	return &command, nil
}

func (s *CommandStore) GetByIdempotencyKey(ctx context.Context, key string) (*models.Command, error) {
	var command models.Command
	err := s.GetDB(ctx).Where("idempotency_key = ?", key).First(&command).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &command, nil
}

// ClaimDue moves due queued/retrying commands to sending and returns the ones
// claimed. The guarded per-row update is what enforces at most one in-flight
// attempt per command: a second claimer loses the status race and skips the row.
func (s *CommandStore) ClaimDue(ctx context.Context, limit int, now time.Time) ([]*models.Command, error) {
	var candidates []*models.Command
	err := s.GetDB(ctx).
		Where("status IN ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)",
			[]models.CommandStatus{models.CommandQueued, models.CommandRetrying}, now).
		Order("created_at ASC").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	claimed := make([]*models.Command, 0, len(candidates))
	for _, candidate := range candidates {
		result := s.GetDB(ctx).
			Model(&models.Command{}).
			Where("command_id = ? AND status IN ?", candidate.ID,
				[]models.CommandStatus{models.CommandQueued, models.CommandRetrying}).
			Update("status", models.CommandSending)
		if result.Error != nil {
			return claimed, result.Error
		}
		if result.RowsAffected == 0 {
			continue
		}
		candidate.Status = models.CommandSending
		claimed = append(claimed, candidate)
	}

	return claimed, nil
}

// RecordAttempt appends a delivery attempt and bumps the command's counter.
func (s *CommandStore) RecordAttempt(ctx context.Context, attempt *models.DeliveryAttempt) error {
	return s.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.GetDB(txCtx).Create(attempt).Error; err != nil {
			return err
		}
		return s.GetDB(txCtx).
			Model(&models.Command{}).
			Where("command_id = ?", attempt.CommandID).
			Update("attempt_count", attempt.AttemptNumber).Error
	})
}

func (s *CommandStore) MarkAcked(ctx context.Context, id string, ack *models.Acknowledgment) error {
	status := ack.CommandStatus()
	result := s.GetDB(ctx).
		Model(&models.Command{}).
		Where("command_id = ? AND status = ?", id, models.CommandSending).
		Updates(map[string]interface{}{
			"status":          status,
			"ack_status":      ack.AckStatus,
			"ack_payload":     ack.AckPayload,
			"next_attempt_at": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotClaimable
	}
	return nil
}

func (s *CommandStore) MarkRetrying(ctx context.Context, id string, nextAttemptAt time.Time, lastError string) error {
	result := s.GetDB(ctx).
		Model(&models.Command{}).
		Where("command_id = ? AND status = ?", id, models.CommandSending).
		Updates(map[string]interface{}{
			"status":          models.CommandRetrying,
			"next_attempt_at": nextAttemptAt,
			"last_error":      lastError,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotClaimable
	}
	return nil
}

func (s *CommandStore) MarkDead(ctx context.Context, id string, lastError string) error {
	result := s.GetDB(ctx).
		Model(&models.Command{}).
		Where("command_id = ? AND status = ?", id, models.CommandSending).
		Updates(map[string]interface{}{
			"status":          models.CommandDead,
			"next_attempt_at": nil,
			"last_error":      lastError,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotClaimable
	}
	return nil
}

// CancelQueued rejects a command that has not yet been claimed for sending.
// Once an attempt is in flight there is no mid-flight abort.
func (s *CommandStore) CancelQueued(ctx context.Context, id string) error {
	result := s.GetDB(ctx).
		Model(&models.Command{}).
		Where("command_id = ? AND status = ?", id, models.CommandQueued).
		Updates(map[string]interface{}{
			"status":      models.CommandRejected,
			"ack_payload": models.JSON{"reason": "cancelled_by_operator"},
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotCancelable
	}
	return nil
}

// RequeueDead re-drives a dead-lettered command. This is the operator's manual
// path, outside the dispatch state machine proper.
func (s *CommandStore) RequeueDead(ctx context.Context, id string) error {
	result := s.GetDB(ctx).
		Model(&models.Command{}).
		Where("command_id = ? AND status = ?", id, models.CommandDead).
		Updates(map[string]interface{}{
			"status":          models.CommandQueued,
			"attempt_count":   0,
			"next_attempt_at": nil,
			"last_error":      "",
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotRequeuable
	}
	return nil
}

func (s *CommandStore) ListDead(ctx context.Context, limit, offset int) ([]*models.Command, error) {
	var commands []*models.Command
	err := s.GetDB(ctx).
		Where("status = ?", models.CommandDead).
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&commands).Error
	return commands, err
}

func (s *CommandStore) ListByStatus(ctx context.Context, status models.CommandStatus, limit, offset int) ([]*models.Command, error) {
	var commands []*models.Command
	err := s.GetDB(ctx).
		Where("status = ?", status).
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&commands).Error
	return commands, err
}
