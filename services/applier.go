package services

import (
	"context"
	"errors"
	"net"

	"github.com/storebridge/storebridge/config"
	"github.com/storebridge/storebridge/models"
	"github.com/storebridge/storebridge/providers"
	"github.com/storebridge/storebridge/stores"
	"github.com/storebridge/storebridge/utils"
)

var ErrIPNotAllowed = errors.New("request ip is not on the allowlist")

// IdempotencyGuard serializes applies per idempotency key.
type IdempotencyGuard interface {
	Lookup(ctx context.Context, key string) (*models.IdempotencyRecord, error)
	Begin(ctx context.Context, key, requestHash string) (*models.IdempotencyRecord, bool, error)
	Complete(ctx context.Context, key string, ack *models.Acknowledgment) error
	Release(ctx context.Context, key string) error
}

// SkipLogger records entities the Executor refused for a missing SKU.
type SkipLogger interface {
	Log(ctx context.Context, record *models.SkuSkipRecord) error
}

// Applier runs received commands on the Executor side: at most one apply per
// idempotency key, with the recorded acknowledgment replayed verbatim for any
// later delivery of the same key.
type Applier struct {
	conn   *config.ConnectionConfig
	idem   IdempotencyGuard
	skips  SkipLogger
	erp    providers.ERPProvider
	logger *utils.Logger
}

func NewApplier(conn *config.ConnectionConfig, idem IdempotencyGuard, skips SkipLogger, erp providers.ERPProvider) *Applier {
	return &Applier{
		conn:   conn,
		idem:   idem,
		skips:  skips,
		erp:    erp,
		logger: utils.NewLogger("applier"),
	}
}

// Apply executes one delivered command. A non-nil acknowledgment is always the
// response body; an error return means the caller maps it to an HTTP failure
// instead.
func (a *Applier) Apply(ctx context.Context, env *models.CommandEnvelope, requestHash, remoteAddr string) (*models.Acknowledgment, error) {
	key := env.IdempotencyKey

	prior, err := a.idem.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if prior != nil && prior.Completed() {
		if prior.RequestHash != requestHash {
			return models.RejectedAck("idempotency_key_mismatch"), nil
		}
		a.logger.Debug(ctx, "Replayed recorded acknowledgment", map[string]interface{}{
			"command_id":      env.CommandID,
			"idempotency_key": key,
		})
		return prior.Acknowledgment(), nil
	}

	if !a.ipAllowed(remoteAddr) {
		return nil, ErrIPNotAllowed
	}

	record, isNew, err := a.idem.Begin(ctx, key, requestHash)
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrKeyMismatch):
			return models.RejectedAck("idempotency_key_mismatch"), nil
		case errors.Is(err, stores.ErrInProgress):
			return models.FailedAck("apply_in_progress", "another delivery of this command is being applied"), nil
		}
		return nil, err
	}
	if !isNew {
		return record.Acknowledgment(), nil
	}

	ack := a.execute(ctx, env)

	// Failed applies release the key instead of completing it, so the
	// Manager's retry re-runs the entity logic.
	if ack.AckStatus == models.AckFailed {
		if relErr := a.idem.Release(ctx, key); relErr != nil {
			utils.LogError(ctx, relErr, "Failed to release idempotency key", map[string]interface{}{
				"idempotency_key": key,
			})
		}
	} else {
		if compErr := a.idem.Complete(ctx, key, ack); compErr != nil {
			utils.LogError(ctx, compErr, "Failed to record acknowledgment", map[string]interface{}{
				"idempotency_key": key,
			})
		}
	}

	a.logger.Info(ctx, "Command applied", map[string]interface{}{
		"command_id":   env.CommandID,
		"command_type": string(env.CommandType),
		"ack_status":   string(ack.AckStatus),
	})

	return ack, nil
}

func (a *Applier) execute(ctx context.Context, env *models.CommandEnvelope) *models.Acknowledgment {
	if env.CommandType == models.CommandPing {
		return models.AppliedAck(models.JSON{"message": "pong"})
	}

	if !env.CommandType.Valid() {
		return models.SkippedAck("unsupported_command")
	}

	if !CommandEnabled(a.conn, env.CommandType) {
		return models.SkippedAck("disabled_by_client_settings")
	}

	// The Manager's normalizer gates SKUs too, but the Executor does not
	// trust that: a payload reaching here without one is skipped and logged.
	switch env.CommandType {
	case models.CommandUpsertProduct, models.CommandUpsertVariant:
		if env.Payload.GetString("sku") == "" {
			record := &models.SkuSkipRecord{
				StoreID:    env.StoreAccount,
				EntityType: env.EntityType,
				ExternalID: env.Payload.GetString("external_id"),
				Reason:     "missing_sku",
				Origin:     models.SkipOriginExecutor,
			}
			if err := a.skips.Log(ctx, record); err != nil {
				utils.LogError(ctx, err, "Failed to log sku skip", nil)
			}
			return models.SkippedAck("missing_sku")
		}
	case models.CommandUpsertOrder:
		if len(env.Payload.GetSlice("items")) == 0 {
			return models.FailedAck("empty_items", "order has no line items")
		}
	}

	result, err := a.erp.Apply(ctx, env.StoreAccount, env)
	if err != nil {
		utils.LogError(ctx, err, "ERP apply failed", map[string]interface{}{
			"command_id": env.CommandID,
		})
		return models.FailedAck("erp_unavailable", err.Error())
	}

	return result.Ack()
}

func (a *Applier) ipAllowed(remoteAddr string) bool {
	allowed := a.conn.AllowedIPs()
	if len(allowed) == 0 {
		return true
	}

	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	for _, ip := range allowed {
		if ip == host {
			return true
		}
	}
	return false
}
