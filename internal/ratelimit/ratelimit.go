package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles outbound calls to a translation backend. It allows
// maxRequests per window, with bursts no faster than minInterval apart.
type RateLimiter struct {
	window   *rate.Limiter
	interval *rate.Limiter
}

// New creates a new rate limiter
// maxRequests: maximum number of requests allowed per window
// perDuration: time window for maxRequests (e.g., 20 requests per minute)
// minInterval: minimum time between requests (prevents burst requests)
func New(maxRequests int, perDuration time.Duration, minInterval time.Duration) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = 20
	}
	if perDuration <= 0 {
		perDuration = time.Minute
	}
	if minInterval <= 0 {
		minInterval = 100 * time.Millisecond
	}

	refill := perDuration / time.Duration(maxRequests)
	if refill <= 0 {
		refill = time.Nanosecond
	}

	return &RateLimiter{
		window:   rate.NewLimiter(rate.Every(refill), maxRequests),
		interval: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// Wait blocks until a request may proceed or ctx is done.
// A nil limiter never blocks.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}
	if err := rl.window.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", waitErr(ctx, err))
	}
	if err := rl.interval.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", waitErr(ctx, err))
	}
	return nil
}

// waitErr prefers the context error so callers can match context.Canceled.
// rate.Limiter reports its own error when the deadline would pass first.
func waitErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
