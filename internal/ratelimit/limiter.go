// Package ratelimit paces requests to the external part sources.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter with a name for logging/debugging.
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// New creates a new rate limiter with the given requests per second.
// The burst size equals the rate, allowing short bursts up to the rate limit.
func New(name string, requestsPerSecond int) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		name:    name,
	}
}

// NewEvery creates a limiter that allows one request per interval with no burst.
// A non-positive interval disables limiting.
func NewEvery(name string, interval time.Duration) *Limiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Limiter{
		limiter: rate.NewLimiter(limit, 1),
		name:    name,
	}
}

// Wait blocks until the rate limiter allows a request to proceed.
// Returns an error if the context is cancelled. A nil Limiter never blocks.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", l.name, err)
	}
	return nil
}

// Pause sleeps for d unless ctx is cancelled first.
// Used for the fixed, non-adaptive delays between page fetches and after detail requests.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
