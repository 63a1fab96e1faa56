// Package breaker implements a per-operation-key circuit breaker that stops
// calling a failing dependency for a cooldown period to let it recover.
//
// The breaker is pull-based: state transitions happen lazily on call
// attempts and state reads, never from a background timer.
package breaker

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/JSONbored/claudepro-directory-sub000/internal/errors"
)

// State represents the circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// Settings holds the thresholds for a breaker. Profiles are configuration,
// not hard-coded behavior; callers may supply custom values.
type Settings struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold int
	// ResetTimeout is how long the breaker stays open before allowing probes.
	ResetTimeout time.Duration
	// HalfOpenMaxAttempts is the number of failed probes tolerated while
	// half-open before reopening.
	HalfOpenMaxAttempts int
}

// RPCProfile returns the stricter default profile for intra-system RPC calls.
func RPCProfile() Settings {
	return Settings{
		FailureThreshold:    5,
		ResetTimeout:        30 * time.Second,
		HalfOpenMaxAttempts: 2,
	}
}

// HTTPProfile returns the looser default profile for third-party HTTP calls.
func HTTPProfile() Settings {
	return Settings{
		FailureThreshold:    3,
		ResetTimeout:        60 * time.Second,
		HalfOpenMaxAttempts: 1,
	}
}

// Breaker is a single circuit breaker instance. It is safe for concurrent
// use; all state is guarded by a mutex.
type Breaker struct {
	settings Settings

	mu               sync.Mutex
	state            State
	failureCount     int
	lastFailureAt    time.Time
	halfOpenAttempts int

	// now is swappable for tests.
	now func() time.Time
}

// New creates a breaker in the closed state.
func New(settings Settings) *Breaker {
	return &Breaker{
		settings: settings,
		state:    StateClosed,
		now:      time.Now,
	}
}

// State returns the current state, applying the lazy open-to-half-open
// transition if the reset timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshLocked()
	return b.state
}

// Do executes fn through the breaker. When the breaker is open the call is
// rejected immediately with ErrCircuitOpen without invoking fn. The
// operation's error, if any, is returned unchanged so callers keep their
// own error semantics.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if !b.allow() {
		return apperrors.ErrCircuitOpen
	}

	err := fn(ctx)
	b.record(err)
	return err
}

// Reset forces the breaker back to closed with all counters cleared.
// Intended for explicit operator action.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.toClosedLocked()
}

// allow reports whether a call attempt may proceed, applying lazy state
// transitions first.
func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refreshLocked()

	switch b.state {
	case StateOpen:
		return false
	case StateHalfOpen:
		return b.halfOpenAttempts < b.settings.HalfOpenMaxAttempts
	default:
		return true
	}
}

// record applies the outcome of an executed call to the state machine.
func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		// Any success closes the breaker and resets all counters.
		b.toClosedLocked()
		return
	}

	switch b.state {
	case StateHalfOpen:
		b.halfOpenAttempts++
		if b.halfOpenAttempts >= b.settings.HalfOpenMaxAttempts {
			b.toOpenLocked()
		}
	default:
		b.failureCount++
		b.lastFailureAt = b.now()
		if b.failureCount >= b.settings.FailureThreshold {
			b.toOpenLocked()
		}
	}
}

// refreshLocked applies the open-to-half-open transition once the reset
// timeout has elapsed since the last failure. Callers must hold b.mu.
func (b *Breaker) refreshLocked() {
	if b.state == StateOpen && b.now().Sub(b.lastFailureAt) >= b.settings.ResetTimeout {
		b.state = StateHalfOpen
		b.halfOpenAttempts = 0
	}
}

func (b *Breaker) toClosedLocked() {
	b.state = StateClosed
	b.failureCount = 0
	b.halfOpenAttempts = 0
	b.lastFailureAt = time.Time{}
}

func (b *Breaker) toOpenLocked() {
	b.state = StateOpen
	b.lastFailureAt = b.now()
	b.halfOpenAttempts = 0
}

// Snapshot is a read-only view of a breaker's counters, used for logging
// and metrics.
type Snapshot struct {
	State            State
	FailureCount     int
	LastFailureAt    time.Time
	HalfOpenAttempts int
}

// Snapshot returns the breaker's current counters without applying
// transitions.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		State:            b.state,
		FailureCount:     b.failureCount,
		LastFailureAt:    b.lastFailureAt,
		HalfOpenAttempts: b.halfOpenAttempts,
	}
}
