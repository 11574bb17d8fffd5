package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/storebridge/storebridge/config"
	"github.com/storebridge/storebridge/models"
	"github.com/storebridge/storebridge/utils"
)

var ErrCommandDisabled = errors.New("command type is disabled by connection settings")

// CommandQueue is the persistence surface the dispatcher drives.
type CommandQueue interface {
	Create(ctx context.Context, command *models.Command) error
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Command, error)
	ClaimDue(ctx context.Context, limit int, now time.Time) ([]*models.Command, error)
	RecordAttempt(ctx context.Context, attempt *models.DeliveryAttempt) error
	MarkAcked(ctx context.Context, id string, ack *models.Acknowledgment) error
	MarkRetrying(ctx context.Context, id string, nextAttemptAt time.Time, lastError string) error
	MarkDead(ctx context.Context, id string, lastError string) error
}

// Deliverer ships one envelope to the Executor and returns its acknowledgment.
type Deliverer interface {
	Deliver(ctx context.Context, env *models.CommandEnvelope) (*models.Acknowledgment, int, error)
}

// Dispatcher owns the command lifecycle on the Manager side: enqueue, claim,
// deliver, settle or reschedule. One command has at most one attempt in flight;
// the store's guarded claim enforces that, not the dispatcher.
type Dispatcher struct {
	queue    CommandQueue
	client   Deliverer
	conn     *config.ConnectionConfig
	dispatch config.DispatchConfig
	logger   *utils.Logger
	now      func() time.Time
}

func NewDispatcher(queue CommandQueue, client Deliverer, conn *config.ConnectionConfig, dispatch config.DispatchConfig) *Dispatcher {
	return &Dispatcher{
		queue:    queue,
		client:   client,
		conn:     conn,
		dispatch: dispatch,
		logger:   utils.NewLogger("dispatcher"),
		now:      time.Now,
	}
}

// WithClock overrides the time source.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Enqueue persists a command for delivery. A command whose idempotency key is
// already queued or settled is returned as-is rather than duplicated.
func (d *Dispatcher) Enqueue(ctx context.Context, command *models.Command) (*models.Command, error) {
	if !CommandEnabled(d.conn, command.CommandType) {
		return nil, ErrCommandDisabled
	}

	existing, err := d.queue.GetByIdempotencyKey(ctx, command.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	command.ID = uuid.New().String()
	command.ERPInstance = d.conn.InstanceID
	command.Status = models.CommandQueued

	if err := d.queue.Create(ctx, command); err != nil {
		return nil, err
	}

	d.logger.Info(ctx, "Command enqueued", map[string]interface{}{
		"command_id":   command.ID,
		"command_type": string(command.CommandType),
		"store":        command.StoreAccount,
	})

	return command, nil
}

// Run polls for due commands until ctx is cancelled. Deliveries fan out over a
// bounded worker pool.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.dispatch.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, d.dispatch.Workers)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			claimed, err := d.queue.ClaimDue(ctx, d.dispatch.Workers*2, d.now())
			if err != nil {
				utils.LogError(ctx, err, "Failed to claim due commands", nil)
				continue
			}
			for _, command := range claimed {
				sem <- struct{}{}
				go func(cmd *models.Command) {
					defer func() { <-sem }()
					d.Dispatch(ctx, cmd)
				}(command)
			}
		}
	}
}

// Dispatch runs one delivery attempt for a claimed command and settles or
// reschedules it.
func (d *Dispatcher) Dispatch(ctx context.Context, command *models.Command) {
	attemptNumber := command.AttemptCount + 1
	sentAt := d.now()

	attemptCtx, cancel := context.WithTimeout(ctx, d.dispatch.AttemptTimeout)
	ack, responseStatus, err := d.client.Deliver(attemptCtx, command.Envelope())
	cancel()

	attempt := &models.DeliveryAttempt{
		CommandID:      command.ID,
		AttemptNumber:  attemptNumber,
		SentAt:         sentAt,
		ResponseStatus: responseStatus,
	}
	if err != nil {
		attempt.Error = err.Error()
	}
	if ack != nil {
		status := ack.AckStatus
		attempt.AckStatus = &status
	}
	if recordErr := d.queue.RecordAttempt(ctx, attempt); recordErr != nil {
		utils.LogError(ctx, recordErr, "Failed to record delivery attempt", map[string]interface{}{
			"command_id": command.ID,
		})
	}

	if err != nil {
		d.retryOrDead(ctx, command, attemptNumber, err.Error())
		return
	}

	if ack.AckStatus == models.AckFailed && d.conn.RetryFailedAcks {
		d.retryOrDead(ctx, command, attemptNumber, "executor reported failure: "+ack.Reason())
		return
	}

	if markErr := d.queue.MarkAcked(ctx, command.ID, ack); markErr != nil {
		utils.LogError(ctx, markErr, "Failed to settle acked command", map[string]interface{}{
			"command_id": command.ID,
		})
		return
	}

	d.logger.Info(ctx, "Command settled", map[string]interface{}{
		"command_id": command.ID,
		"ack_status": string(ack.AckStatus),
		"attempts":   attemptNumber,
	})
}

func (d *Dispatcher) retryOrDead(ctx context.Context, command *models.Command, attemptNumber int, lastError string) {
	if attemptNumber >= d.dispatch.RetryMaxAttempts {
		if err := d.queue.MarkDead(ctx, command.ID, lastError); err != nil {
			utils.LogError(ctx, err, "Failed to dead-letter command", map[string]interface{}{
				"command_id": command.ID,
			})
			return
		}
		d.logger.Warn(ctx, "Command dead-lettered", map[string]interface{}{
			"command_id": command.ID,
			"attempts":   attemptNumber,
			"last_error": lastError,
		})
		return
	}

	nextAttemptAt := d.now().Add(Backoff(d.dispatch.RetryBackoffSeconds, attemptNumber))
	if err := d.queue.MarkRetrying(ctx, command.ID, nextAttemptAt, lastError); err != nil {
		utils.LogError(ctx, err, "Failed to schedule retry", map[string]interface{}{
			"command_id": command.ID,
		})
		return
	}

	d.logger.Info(ctx, "Command scheduled for retry", map[string]interface{}{
		"command_id":      command.ID,
		"attempt":         attemptNumber,
		"next_attempt_at": nextAttemptAt,
	})
}

// Backoff returns the delay after a failed attempt: base seconds doubled for
// each prior failure, so attempt 1 waits base, attempt 2 waits 2*base.
func Backoff(baseSeconds, failedAttempt int) time.Duration {
	if failedAttempt < 1 {
		failedAttempt = 1
	}
	delay := time.Duration(baseSeconds) * time.Second
	for i := 1; i < failedAttempt; i++ {
		delay *= 2
	}
	return delay
}
