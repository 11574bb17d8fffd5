package security

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/storebridge/storebridge/models"
)

var (
	ErrInvalidTimestamp = errors.New("invalid timestamp header")
	ErrStaleTimestamp   = errors.New("timestamp outside allowed window")
	ErrNonceReplayed    = errors.New("nonce replay detected")
)

// NonceStore persists seen nonces. Insert must fail with ErrNonceReplayed for a
// duplicate (instance_id, nonce) pair.
type NonceStore interface {
	Insert(ctx context.Context, record *models.NonceRecord) error
}

// NonceCache is an optional fast-path membership check in front of the store.
type NonceCache interface {
	MarkNonce(ctx context.Context, instanceID, nonce string, ttl time.Duration) (bool, error)
}

// ReplayGuard rejects stale timestamps and replayed nonces. The nonce is
// inserted before the caller proceeds to business logic: two concurrent
// identical requests cannot both pass the membership check.
type ReplayGuard struct {
	store  NonceStore
	cache  NonceCache
	window time.Duration
	now    func() time.Time
}

func NewReplayGuard(store NonceStore, window time.Duration) *ReplayGuard {
	return &ReplayGuard{
		store:  store,
		window: window,
		now:    time.Now,
	}
}

// WithCache adds a SetNX-style fast path. The store stays authoritative.
func (g *ReplayGuard) WithCache(cache NonceCache) *ReplayGuard {
	g.cache = cache
	return g
}

// WithClock overrides the time source.
func (g *ReplayGuard) WithClock(now func() time.Time) *ReplayGuard {
	g.now = now
	return g
}

func (g *ReplayGuard) Accept(ctx context.Context, instanceID, timestamp, nonce string) error {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}

	now := g.now()
	drift := now.Unix() - ts
	if drift < 0 {
		drift = -drift
	}
	if time.Duration(drift)*time.Second > g.window {
		return ErrStaleTimestamp
	}

	if g.cache != nil {
		fresh, err := g.cache.MarkNonce(ctx, instanceID, nonce, g.window)
		if err == nil && !fresh {
			return ErrNonceReplayed
		}
		// A cache error falls through to the store.
	}

	record := &models.NonceRecord{
		InstanceID: instanceID,
		Nonce:      nonce,
		SeenAt:     now,
		ExpiresAt:  now.Add(g.window),
	}
	if err := g.store.Insert(ctx, record); err != nil {
		if errors.Is(err, ErrNonceReplayed) {
			return ErrNonceReplayed
		}
		return err
	}

	return nil
}
