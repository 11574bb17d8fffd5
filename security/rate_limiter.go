package security

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// RateLimiter keeps one token bucket per key (e.g. per store_id).
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	cleanup  *time.Timer
}

func NewRateLimiter() *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
	rl.startCleanup()
	return rl
}

func (rl *RateLimiter) Allow(key string, config RateLimitConfig) bool {
	return rl.limiter(key, config).Allow()
}

func (rl *RateLimiter) Wait(ctx context.Context, key string, config RateLimitConfig) error {
	return rl.limiter(key, config).Wait(ctx)
}

func (rl *RateLimiter) limiter(key string, config RateLimitConfig) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

func (rl *RateLimiter) startCleanup() {
	rl.cleanup = time.AfterFunc(5*time.Minute, func() {
		rl.mu.Lock()
		defer rl.mu.Unlock()

		now := time.Now()
		for key, limiter := range rl.limiters {
			if limiter.TokensAt(now) == float64(limiter.Burst()) {
				delete(rl.limiters, key)
			}
		}

		rl.startCleanup()
	})
}

func (rl *RateLimiter) Close() {
	if rl.cleanup != nil {
		rl.cleanup.Stop()
	}
}
