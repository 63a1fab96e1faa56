// Package ratelimit bounds request admission per caller and window before
// any downstream work is dispatched.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Preset holds a (maxRequests, window) pair for a class of endpoints.
type Preset struct {
	MaxRequests int
	Window      time.Duration
}

// Result describes the admission decision for a single request.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// window is the rolling state for one caller identity.
type window struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window counter keyed by caller identity (IP or
// token). State is ephemeral and process-local; the count never exceeds
// the preset maximum within a window.
type Limiter struct {
	preset  Preset
	windows sync.Map // map[string]*window

	// now is swappable for tests.
	now func() time.Time
}

// NewLimiter creates a limiter for the given preset and starts a cleanup
// goroutine that drops expired windows. The goroutine stops when ctx is
// cancelled.
func NewLimiter(ctx context.Context, preset Preset) *Limiter {
	l := &Limiter{
		preset: preset,
		now:    time.Now,
	}

	go l.cleanupExpired(ctx, 5*time.Minute)

	return l
}

// Allow records a request for key and reports the admission decision.
// A rejected caller gets RetryAfter > 0 and an unchanged Remaining of 0.
func (l *Limiter) Allow(key string) Result {
	w := l.getWindow(key)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.now()
	if !now.Before(w.resetAt) {
		// Window elapsed, start a fresh one.
		w.count = 0
		w.resetAt = now.Add(l.preset.Window)
	}

	if w.count >= l.preset.MaxRequests {
		return Result{
			Allowed:    false,
			Limit:      l.preset.MaxRequests,
			Remaining:  0,
			ResetAt:    w.resetAt,
			RetryAfter: w.resetAt.Sub(now),
		}
	}

	w.count++
	return Result{
		Allowed:   true,
		Limit:     l.preset.MaxRequests,
		Remaining: l.preset.MaxRequests - w.count,
		ResetAt:   w.resetAt,
	}
}

// getWindow retrieves or creates the window for a caller identity.
func (l *Limiter) getWindow(key string) *window {
	if val, ok := l.windows.Load(key); ok {
		return val.(*window)
	}

	w := &window{}
	actual, _ := l.windows.LoadOrStore(key, w)
	return actual.(*window)
}

// cleanupExpired removes windows whose reset time has long passed.
// Runs periodically to prevent unbounded memory growth from key churn.
func (l *Limiter) cleanupExpired(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			threshold := l.now().Add(-interval)
			l.windows.Range(func(key, value any) bool {
				w := value.(*window)
				w.mu.Lock()
				expired := w.resetAt.Before(threshold)
				w.mu.Unlock()

				if expired {
					l.windows.Delete(key)
				}
				return true
			})
		}
	}
}
