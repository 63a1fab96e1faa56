// Package guard imposes deadlines on awaited operations.
//
// The guard is deliberately non-cancelling: when the deadline elapses the
// caller gets ErrTimeout and the wrapped operation keeps running to
// completion in its own goroutine; its eventual result is discarded. This
// matches the contract that the guard stops waiting rather than stopping
// the work, and it composes with the circuit breaker in either order.
package guard

import (
	"context"
	"time"

	apperrors "github.com/JSONbored/claudepro-directory-sub000/internal/errors"
)

// result carries a wrapped operation's outcome across the goroutine boundary.
type result[T any] struct {
	value T
	err   error
}

// Run executes fn with the given deadline. If fn finishes first its result
// is returned unchanged. If the deadline elapses first, Run returns the
// zero value and ErrTimeout; fn is abandoned, not cancelled, and the
// context passed to fn is the caller's context, untouched.
func Run[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	// Buffered so the abandoned goroutine never leaks blocked on send.
	ch := make(chan result[T], 1)

	go func() {
		value, err := fn(ctx)
		ch <- result[T]{value: value, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.value, res.err
	case <-timer.C:
		var zero T
		return zero, apperrors.ErrTimeout
	}
}

// Do is the result-less variant of Run for operations that only report an
// error.
func Do(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	_, err := Run(ctx, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
