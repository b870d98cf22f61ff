package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/botmesh/core"
)

// RateLimiter enforces a maximum number of dispatches per user inside a
// fixed window. The window starts at the user's first dispatch and resets
// once it elapses. Exceeding the limit aborts the dispatch silently; the
// interaction is simply not handled.
type RateLimiter struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket

	// now is swapped in tests.
	now func() time.Time
}

type bucket struct {
	count int
	start time.Time
}

// NewRateLimiter creates a limiter allowing max dispatches per user per
// window. If max == 0, unlimited dispatches are allowed.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:     max,
		window:  window,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow increments the user's counter and reports whether the dispatch may
// proceed.
func (rl *RateLimiter) Allow(userID string) bool {
	if rl.max == 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[userID]
	if !ok || now.Sub(b.start) >= rl.window {
		rl.buckets[userID] = &bucket{count: 1, start: now}
		return true
	}

	b.count++
	return b.count <= rl.max
}

// Remaining returns how many dispatches the user has left in the current
// window, or -1 when unlimited.
func (rl *RateLimiter) Remaining(userID string) int {
	if rl.max == 0 {
		return -1
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[userID]
	if !ok || rl.now().Sub(b.start) >= rl.window {
		return rl.max
	}
	if b.count >= rl.max {
		return 0
	}
	return rl.max - b.count
}

// Middleware returns the limiter as a chain entry, aborting dispatches for
// users over their budget.
func (rl *RateLimiter) Middleware() core.Middleware {
	return core.MiddlewareFunc(func(ctx context.Context, rec *core.MiddlewareRecord) error {
		if rec.Interaction == nil || rl.Allow(rec.Interaction.UserID) {
			return nil
		}
		return core.ErrAbortDispatch
	})
}
