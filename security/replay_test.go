package security

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/storebridge/storebridge/models"
)

type memoryNonceStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemoryNonceStore() *memoryNonceStore {
	return &memoryNonceStore{seen: make(map[string]bool)}
}

func (s *memoryNonceStore) Insert(ctx context.Context, record *models.NonceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := record.InstanceID + ":" + record.Nonce
	if s.seen[key] {
		return ErrNonceReplayed
	}
	s.seen[key] = true
	return nil
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestReplayGuard_Accept(t *testing.T) {
	now := time.Unix(1700000000, 0)
	guard := NewReplayGuard(newMemoryNonceStore(), 300*time.Second).WithClock(fixedClock(now))
	ctx := context.Background()

	timestamp := strconv.FormatInt(now.Unix(), 10)
	if err := guard.Accept(ctx, "store-001", timestamp, "nonce-1"); err != nil {
		t.Errorf("Accept() error = %v, want nil", err)
	}
}

func TestReplayGuard_RejectsReplay(t *testing.T) {
	now := time.Unix(1700000000, 0)
	guard := NewReplayGuard(newMemoryNonceStore(), 300*time.Second).WithClock(fixedClock(now))
	ctx := context.Background()
	timestamp := strconv.FormatInt(now.Unix(), 10)

	if err := guard.Accept(ctx, "store-001", timestamp, "nonce-1"); err != nil {
		t.Fatalf("first Accept() error = %v", err)
	}

	err := guard.Accept(ctx, "store-001", timestamp, "nonce-1")
	if !errors.Is(err, ErrNonceReplayed) {
		t.Errorf("second Accept() error = %v, want ErrNonceReplayed", err)
	}
}

func TestReplayGuard_NonceScopedPerInstance(t *testing.T) {
	now := time.Unix(1700000000, 0)
	guard := NewReplayGuard(newMemoryNonceStore(), 300*time.Second).WithClock(fixedClock(now))
	ctx := context.Background()
	timestamp := strconv.FormatInt(now.Unix(), 10)

	if err := guard.Accept(ctx, "store-001", timestamp, "nonce-1"); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if err := guard.Accept(ctx, "store-002", timestamp, "nonce-1"); err != nil {
		t.Errorf("Accept() for other instance error = %v, want nil", err)
	}
}

func TestReplayGuard_TimestampWindow(t *testing.T) {
	now := time.Unix(1700000000, 0)
	guard := NewReplayGuard(newMemoryNonceStore(), 300*time.Second).WithClock(fixedClock(now))
	ctx := context.Background()

	tests := []struct {
		name      string
		timestamp string
		wantErr   error
	}{
		{"At window edge past", strconv.FormatInt(now.Unix()-300, 10), nil},
		{"At window edge future", strconv.FormatInt(now.Unix()+300, 10), nil},
		{"Too old", strconv.FormatInt(now.Unix()-301, 10), ErrStaleTimestamp},
		{"Too far in future", strconv.FormatInt(now.Unix()+301, 10), ErrStaleTimestamp},
		{"Not a number", "yesterday", ErrInvalidTimestamp},
		{"Empty", "", ErrInvalidTimestamp},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.Accept(ctx, "store-001", tt.timestamp, "nonce-"+strconv.Itoa(i))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Accept() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

type fakeCache struct {
	fresh map[string]bool
	err   error
}

func (c *fakeCache) MarkNonce(ctx context.Context, instanceID, nonce string, ttl time.Duration) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	key := instanceID + ":" + nonce
	if c.fresh[key] {
		return false, nil
	}
	c.fresh[key] = true
	return true, nil
}

func TestReplayGuard_CacheFastPath(t *testing.T) {
	now := time.Unix(1700000000, 0)
	timestamp := strconv.FormatInt(now.Unix(), 10)
	ctx := context.Background()

	t.Run("Cache hit rejects before store", func(t *testing.T) {
		cache := &fakeCache{fresh: make(map[string]bool)}
		guard := NewReplayGuard(newMemoryNonceStore(), 300*time.Second).
			WithClock(fixedClock(now)).
			WithCache(cache)

		if err := guard.Accept(ctx, "store-001", timestamp, "nonce-1"); err != nil {
			t.Fatalf("first Accept() error = %v", err)
		}
		if err := guard.Accept(ctx, "store-001", timestamp, "nonce-1"); !errors.Is(err, ErrNonceReplayed) {
			t.Errorf("Accept() error = %v, want ErrNonceReplayed", err)
		}
	})

	t.Run("Cache failure falls through to store", func(t *testing.T) {
		cache := &fakeCache{err: errors.New("redis down")}
		guard := NewReplayGuard(newMemoryNonceStore(), 300*time.Second).
			WithClock(fixedClock(now)).
			WithCache(cache)

		if err := guard.Accept(ctx, "store-001", timestamp, "nonce-1"); err != nil {
			t.Errorf("Accept() error = %v, want nil when cache is down", err)
		}
		if err := guard.Accept(ctx, "store-001", timestamp, "nonce-1"); !errors.Is(err, ErrNonceReplayed) {
			t.Errorf("Accept() error = %v, want ErrNonceReplayed from store", err)
		}
	})
}
