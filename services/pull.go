package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/storebridge/storebridge/config"
	"github.com/storebridge/storebridge/models"
	"github.com/storebridge/storebridge/providers"
	"github.com/storebridge/storebridge/security"
	"github.com/storebridge/storebridge/utils"
)

var (
	ErrPullDisabled    = errors.New("manual pull is disabled by connection settings")
	ErrPullRateLimited = errors.New("pull rate limit exceeded for store")
)

const defaultPullLimit = 100

var defaultPullEntities = []models.EntityType{
	models.EntityCategory,
	models.EntityBrand,
	models.EntityProduct,
	models.EntityVariant,
	models.EntityProductQuantity,
	models.EntityCustomer,
	models.EntityOrder,
}

// Enqueuer is the dispatcher surface the pull coordinator needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, command *models.Command) (*models.Command, error)
}

// PullCoordinator drives a storefront sweep: fetch entities, normalize each,
// log SKU skips, enqueue the rest. Pulls are rate limited per store.
type PullCoordinator struct {
	storefront providers.StorefrontProvider
	normalizer *Normalizer
	enqueuer   Enqueuer
	skips      SkipLogger
	limiter    *security.RateLimiter
	conn       *config.ConnectionConfig
	rateCfg    security.RateLimitConfig
	logger     *utils.Logger
}

func NewPullCoordinator(
	storefront providers.StorefrontProvider,
	normalizer *Normalizer,
	enqueuer Enqueuer,
	skips SkipLogger,
	limiter *security.RateLimiter,
	conn *config.ConnectionConfig,
	dispatch config.DispatchConfig,
) *PullCoordinator {
	return &PullCoordinator{
		storefront: storefront,
		normalizer: normalizer,
		enqueuer:   enqueuer,
		skips:      skips,
		limiter:    limiter,
		conn:       conn,
		rateCfg: security.RateLimitConfig{
			RequestsPerSecond: dispatch.PullRatePerSecond,
			Burst:             dispatch.PullBurst,
		},
		logger: utils.NewLogger("pull"),
	}
}

// Pull runs one sweep for a store. Per-entity fetch failures are reported in
// the response rather than aborting the remaining entity types; entity types
// run in dependency order so categories and brands land before products.
func (p *PullCoordinator) Pull(ctx context.Context, req *models.PullRequest) (*models.PullResponse, error) {
	if !p.conn.EnableManualPull {
		return nil, ErrPullDisabled
	}
	if req.StoreID == "" {
		return nil, errors.New("pull request has no store_id")
	}
	if !p.limiter.Allow("pull:"+req.StoreID, p.rateCfg) {
		return nil, ErrPullRateLimited
	}

	entities := p.entityTypes(req)
	limit := req.Limit
	if limit <= 0 {
		limit = defaultPullLimit
	}

	response := &models.PullResponse{
		Queued: make(map[string]int),
	}

	for _, entity := range entities {
		records, err := p.storefront.FetchEntities(ctx, req.StoreID, entity, req.Since, limit)
		if err != nil {
			response.Errors = append(response.Errors, fmt.Sprintf("%s: %v", entity, err))
			continue
		}

		for _, raw := range records {
			result, err := p.normalizer.Normalize(req.StoreID, entity, raw)
			if err != nil {
				response.Errors = append(response.Errors, fmt.Sprintf("%s: %v", entity, err))
				continue
			}

			if result.Skipped {
				response.SkippedMissingSKU++
				if logErr := p.skips.Log(ctx, result.SkipRecord); logErr != nil {
					utils.LogError(ctx, logErr, "Failed to log sku skip", nil)
				}
				continue
			}

			for _, warning := range result.Warnings {
				p.logger.Warn(ctx, "Normalizer warning", map[string]interface{}{
					"store_id": req.StoreID,
					"entity":   string(entity),
					"warning":  warning,
				})
			}

			if _, err := p.enqueuer.Enqueue(ctx, result.Command); err != nil {
				if errors.Is(err, ErrCommandDisabled) {
					continue
				}
				response.Errors = append(response.Errors, fmt.Sprintf("%s: %v", entity, err))
				continue
			}
			response.Queued[string(entity)]++
		}
	}

	response.OK = len(response.Errors) == 0

	p.logger.Info(ctx, "Pull completed", map[string]interface{}{
		"store_id":            req.StoreID,
		"queued":              response.Queued,
		"skipped_missing_sku": response.SkippedMissingSKU,
		"errors":              len(response.Errors),
	})

	return response, nil
}

func (p *PullCoordinator) entityTypes(req *models.PullRequest) []models.EntityType {
	if len(req.EntityTypes) == 0 {
		return defaultPullEntities
	}
	entities := make([]models.EntityType, 0, len(req.EntityTypes))
	for _, raw := range req.EntityTypes {
		entities = append(entities, models.EntityType(raw))
	}
	return entities
}
