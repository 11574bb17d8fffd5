package utils

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker refuses calls. The dispatcher
// treats it like any other transport failure, so the command backs off instead
// of burning delivery attempts against a peer that is down.
var ErrCircuitOpen = NewAPIError(http.StatusServiceUnavailable, "Peer suspended by circuit breaker")

type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker suspends calls to a peer after maxFailures consecutive
// failures. One trial call is let through after resetTimeout; a successful
// trial closes the breaker, a failed one reopens it immediately.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	logger       *Logger

	mutex        sync.Mutex
	state        CircuitState
	failureCount int
	lastFailTime time.Time
}

func NewCircuitBreaker(name string, maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        StateClosed,
		logger:       NewLogger("circuit-breaker"),
	}
}

func (cb *CircuitBreaker) Execute(ctx context.Context, operation func() error) error {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.lastFailTime) <= cb.resetTimeout {
			return ErrCircuitOpen
		}
		cb.setState(ctx, StateHalfOpen)
	}

	if err := operation(); err != nil {
		cb.failureCount++
		cb.lastFailTime = time.Now()

		if cb.state == StateHalfOpen || cb.failureCount >= cb.maxFailures {
			cb.setState(ctx, StateOpen)
		}
		return err
	}

	cb.failureCount = 0
	if cb.state == StateHalfOpen {
		cb.setState(ctx, StateClosed)
	}
	return nil
}

func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) setState(ctx context.Context, next CircuitState) {
	if cb.state == next {
		return
	}

	fields := map[string]interface{}{
		"name": cb.name,
		"from": cb.state.String(),
		"to":   next.String(),
	}
	if next == StateOpen {
		cb.logger.Warn(ctx, "Circuit breaker opened", fields)
	} else {
		cb.logger.Info(ctx, "Circuit breaker state changed", fields)
	}

	cb.state = next
}
