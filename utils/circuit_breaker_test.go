package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker("executor", 3, time.Minute)
	ctx := context.Background()
	failing := func() error { return errors.New("downstream error") }

	for i := 0; i < 3; i++ {
		if err := cb.Execute(ctx, failing); err == nil {
			t.Fatalf("Execute() %d error = nil, want error", i)
		}
	}

	if cb.GetState() != StateOpen {
		t.Errorf("state = %v, want open", cb.GetState())
	}

	err := cb.Execute(ctx, func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() on open breaker error = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker("executor", 1, 10*time.Millisecond)
	ctx := context.Background()

	if err := cb.Execute(ctx, func() error { return errors.New("fail") }); err == nil {
		t.Fatal("Execute() error = nil, want error")
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}

	time.Sleep(20 * time.Millisecond)

	if err := cb.Execute(ctx, func() error { return nil }); err != nil {
		t.Errorf("Execute() after reset timeout error = %v, want nil", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("state = %v, want closed after successful trial call", cb.GetState())
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("executor", 2, time.Minute)
	ctx := context.Background()

	// One failure, then a success: the next single failure must not trip it.
	cb.Execute(ctx, func() error { return errors.New("fail") })
	cb.Execute(ctx, func() error { return nil })
	cb.Execute(ctx, func() error { return errors.New("fail") })

	if cb.GetState() != StateClosed {
		t.Errorf("state = %v, want closed after non-consecutive failures", cb.GetState())
	}
}

func TestCircuitBreaker_FailedTrialCallReopens(t *testing.T) {
	cb := NewCircuitBreaker("executor", 2, 10*time.Millisecond)
	ctx := context.Background()
	failing := func() error { return errors.New("fail") }

	cb.Execute(ctx, failing)
	cb.Execute(ctx, failing)
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}

	time.Sleep(20 * time.Millisecond)

	if err := cb.Execute(ctx, failing); err == nil {
		t.Fatal("trial Execute() error = nil, want error")
	}
	if cb.GetState() != StateOpen {
		t.Errorf("state = %v, want open after failed trial call", cb.GetState())
	}
}
