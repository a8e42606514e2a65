package helpers

import (
	"time"

	"golang.org/x/time/rate"
)

// -----------------------------------------------------------------------------
// Rate Limiter
// -----------------------------------------------------------------------------

// RateLimiter throttles outbound provider calls process-wide. One shared
// instance is constructed at startup and passed to every caller that talks
// to the provider; the underlying limiter is a bucket of one, so no two
// permitted passages are separated by less than the floor interval.
//
// Acquire carries no cancellation: once requested, passage will happen.
type RateLimiter struct {
	limiter *rate.Limiter
}

// -----------------------------------------------------------------------------

// NewRateLimiter creates a limiter with the given minimum interval between
// passages (e.g. 500ms for at most 2 requests per second).
func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// -----------------------------------------------------------------------------

// Acquire blocks until it is safe to proceed. Safe under concurrent callers;
// the shared state lives behind the limiter's own lock.
func (r *RateLimiter) Acquire() {
	res := r.limiter.Reserve()
	if delay := res.Delay(); delay > 0 {
		time.Sleep(delay)
	}
}
