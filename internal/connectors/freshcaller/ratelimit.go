package freshcaller

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRateLimit is the number of calls allowed per window.
	DefaultRateLimit = 100

	// DefaultRateWindow is the rolling window the limit applies to.
	DefaultRateWindow = 60 * time.Second

	// HeaderRetryAfter is the retry-after header (seconds).
	HeaderRetryAfter = "Retry-After"
)

// RateLimiter implements dual-strategy rate limiting for the Freshcaller API.
// A token bucket paces calls evenly; a log of issued calls enforces the hard
// quota over the rolling window.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	issued []time.Time   // Oldest first, pruned to the window
	bucket *rate.Limiter // Proactive throttling
	now    func() time.Time
}

// NewRateLimiter creates a limiter allowing limit calls per rolling window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &RateLimiter{
		limit:  limit,
		window: window,
		issued: make([]time.Time, 0, limit),
		bucket: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit),
		now:    time.Now,
	}
}

// Wait blocks until a call may be issued and consumes one unit of quota.
// Waiting is not an error; only a cancelled context ends it early.
func (r *RateLimiter) Wait(ctx context.Context) error {
	// 1. Check token bucket (proactive throttling)
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	// 2. Check rolling window (hard quota)
	for {
		delay := r.reserve()
		if delay <= 0 {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve records a call if quota is free, else returns how long until the
// oldest call leaves the window.
func (r *RateLimiter) reserve() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-r.window)
	drop := 0
	for drop < len(r.issued) && !r.issued[drop].After(cutoff) {
		drop++
	}
	r.issued = r.issued[drop:]

	if len(r.issued) < r.limit {
		r.issued = append(r.issued, now)
		return 0
	}
	return r.issued[0].Add(r.window).Sub(now)
}

// InWindow returns the number of calls issued in the current window.
func (r *RateLimiter) InWindow() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.window)
	n := 0
	for _, t := range r.issued {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}

// Limit returns the configured calls per window.
func (r *RateLimiter) Limit() int {
	return r.limit
}

// Window returns the configured rolling window.
func (r *RateLimiter) Window() time.Duration {
	return r.window
}
