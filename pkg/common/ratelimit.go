package common

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles a retry loop. The dispatcher uses it so that a
// listener failing in a tight loop (for example on descriptor exhaustion)
// does not spin a core or flood the log.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter allows rps events per second with bursts of up to burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// NewRateLimiterEvery allows one event per interval.
func NewRateLimiterEvery(interval time.Duration) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until an event is allowed or ctx ends.
func (rl *RateLimiter) Wait(ctx context.Context) error { return rl.limiter.Wait(ctx) }

// Allow reports whether an event may happen now without waiting.
func (rl *RateLimiter) Allow() bool { return rl.limiter.Allow() }
