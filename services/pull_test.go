package services

import (
	"context"
	"errors"
	"testing"

	"github.com/storebridge/storebridge/models"
	"github.com/storebridge/storebridge/security"
	mock "github.com/storebridge/storebridge/testing"
)

type fakeStorefront struct {
	records map[models.EntityType][]models.JSON
	errs    map[models.EntityType]error
}

func (s *fakeStorefront) FetchEntities(ctx context.Context, storeID string, entity models.EntityType, since string, limit int) ([]models.JSON, error) {
	if err := s.errs[entity]; err != nil {
		return nil, err
	}
	return s.records[entity], nil
}

func newTestCoordinator(storefront *fakeStorefront) (*PullCoordinator, *fakeQueue, *memorySkipLog) {
	queue := newFakeQueue()
	connection := mock.MockConnection()
	dispatcher := NewDispatcher(queue, &scriptedDeliverer{}, connection, mock.MockDispatch())
	skips := &memorySkipLog{}
	limiter := security.NewRateLimiter()

	coordinator := NewPullCoordinator(
		storefront,
		NewNormalizer(),
		dispatcher,
		skips,
		limiter,
		connection,
		mock.MockDispatch(),
	)
	return coordinator, queue, skips
}

func TestPullCoordinator_QueuesNormalizedEntities(t *testing.T) {
	storefront := &fakeStorefront{
		records: map[models.EntityType][]models.JSON{
			models.EntityProduct: {
				mock.MockProductRaw(),
				{"id": "prod_101", "name": "No SKU Product"},
			},
			models.EntityCustomer: {
				{"id": "cus_200", "name": "Sara Khalid", "email": "sara@example.com"},
			},
		},
	}
	coordinator, queue, skips := newTestCoordinator(storefront)

	response, err := coordinator.Pull(context.Background(), &models.PullRequest{
		StoreID:     "store-001",
		EntityTypes: []string{"product", "customer"},
	})
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}

	if !response.OK {
		t.Errorf("OK = false, want true; errors: %v", response.Errors)
	}
	if response.Queued["product"] != 1 {
		t.Errorf("queued products = %d, want 1", response.Queued["product"])
	}
	if response.Queued["customer"] != 1 {
		t.Errorf("queued customers = %d, want 1", response.Queued["customer"])
	}
	if response.SkippedMissingSKU != 1 {
		t.Errorf("skipped = %d, want 1", response.SkippedMissingSKU)
	}
	if len(skips.records) != 1 {
		t.Errorf("skip log entries = %d, want 1", len(skips.records))
	}
	if len(queue.commands) != 2 {
		t.Errorf("queued commands = %d, want 2", len(queue.commands))
	}
}

func TestPullCoordinator_RepeatedPullDoesNotDuplicate(t *testing.T) {
	storefront := &fakeStorefront{
		records: map[models.EntityType][]models.JSON{
			models.EntityProduct: {mock.MockProductRaw()},
		},
	}
	coordinator, queue, _ := newTestCoordinator(storefront)
	ctx := context.Background()
	req := &models.PullRequest{StoreID: "store-001", EntityTypes: []string{"product"}}

	if _, err := coordinator.Pull(ctx, req); err != nil {
		t.Fatalf("first Pull() error = %v", err)
	}
	if _, err := coordinator.Pull(ctx, req); err != nil {
		t.Fatalf("second Pull() error = %v", err)
	}

	if len(queue.commands) != 1 {
		t.Errorf("queued commands after two pulls = %d, want 1", len(queue.commands))
	}
}

func TestPullCoordinator_FetchErrorIsPartial(t *testing.T) {
	storefront := &fakeStorefront{
		records: map[models.EntityType][]models.JSON{
			models.EntityProduct: {mock.MockProductRaw()},
		},
		errs: map[models.EntityType]error{
			models.EntityCustomer: errors.New("storefront returned 502"),
		},
	}
	coordinator, queue, _ := newTestCoordinator(storefront)

	response, err := coordinator.Pull(context.Background(), &models.PullRequest{
		StoreID:     "store-001",
		EntityTypes: []string{"customer", "product"},
	})
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}

	if response.OK {
		t.Error("OK = true, want false when an entity fetch fails")
	}
	if len(response.Errors) != 1 {
		t.Errorf("errors = %d, want 1", len(response.Errors))
	}
	if len(queue.commands) != 1 {
		t.Errorf("queued commands = %d, want 1 despite customer failure", len(queue.commands))
	}
}

func TestPullCoordinator_Disabled(t *testing.T) {
	coordinator, _, _ := newTestCoordinator(&fakeStorefront{})
	coordinator.conn.EnableManualPull = false

	_, err := coordinator.Pull(context.Background(), &models.PullRequest{StoreID: "store-001"})
	if !errors.Is(err, ErrPullDisabled) {
		t.Errorf("Pull() error = %v, want ErrPullDisabled", err)
	}
}

func TestPullCoordinator_RateLimited(t *testing.T) {
	storefront := &fakeStorefront{records: map[models.EntityType][]models.JSON{}}
	coordinator, _, _ := newTestCoordinator(storefront)
	coordinator.rateCfg = security.RateLimitConfig{RequestsPerSecond: 1, Burst: 1}
	ctx := context.Background()
	req := &models.PullRequest{StoreID: "store-001", EntityTypes: []string{"product"}}

	if _, err := coordinator.Pull(ctx, req); err != nil {
		t.Fatalf("first Pull() error = %v", err)
	}

	_, err := coordinator.Pull(ctx, req)
	if !errors.Is(err, ErrPullRateLimited) {
		t.Errorf("second Pull() error = %v, want ErrPullRateLimited", err)
	}

	// A different store has its own bucket.
	if _, err := coordinator.Pull(ctx, &models.PullRequest{StoreID: "store-002", EntityTypes: []string{"product"}}); err != nil {
		t.Errorf("Pull() for other store error = %v, want nil", err)
	}
}
