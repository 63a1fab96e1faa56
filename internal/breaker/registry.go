package breaker

import (
	"context"
	"log/slog"
	"sync"
)

// TransitionFunc observes breaker state changes, keyed by operation name.
// Used to wire logging and metrics without coupling the breaker to them.
type TransitionFunc func(key string, from, to State)

// Registry owns all breaker instances for the process, keyed by operation
// name. Breakers are created lazily on first use and are never evicted.
// The registry is the only cross-invocation mutable shared state in the
// event pipeline, so it must be safe under concurrent use.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker

	logger       *slog.Logger
	onTransition TransitionFunc
}

// NewRegistry creates an empty breaker registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		logger:   logger,
	}
}

// OnTransition registers an observer for state changes. Must be called
// before the registry is shared between goroutines.
func (r *Registry) OnTransition(fn TransitionFunc) {
	r.onTransition = fn
}

// Get returns the breaker for key, creating it with the given settings on
// first use. Settings passed on later calls for the same key are ignored;
// the first caller fixes the profile.
func (r *Registry) Get(key string, settings Settings) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[key]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check under the write lock.
	if b, ok := r.breakers[key]; ok {
		return b
	}
	b = New(settings)
	r.breakers[key] = b
	return b
}

// Do executes fn through the breaker registered for key, creating the
// breaker with settings on first use. State transitions are logged and
// reported to the transition observer.
func (r *Registry) Do(ctx context.Context, key string, settings Settings, fn func(ctx context.Context) error) error {
	b := r.Get(key, settings)

	before := b.State()
	err := b.Do(ctx, fn)
	after := b.Snapshot().State

	if before != after {
		if r.logger != nil {
			r.logger.Warn("circuit breaker state change",
				slog.String("key", key),
				slog.String("from", string(before)),
				slog.String("to", string(after)),
			)
		}
		if r.onTransition != nil {
			r.onTransition(key, before, after)
		}
	}

	return err
}

// Reset forces the breaker for key back to closed. No-op for unknown keys.
// Intended for explicit operator action.
func (r *Registry) Reset(key string) {
	r.mu.RLock()
	b, ok := r.breakers[key]
	r.mu.RUnlock()
	if !ok {
		return
	}

	b.Reset()
	if r.logger != nil {
		r.logger.Info("circuit breaker reset", slog.String("key", key))
	}
}

// Keys returns the operation keys with registered breakers.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.breakers))
	for k := range r.breakers {
		keys = append(keys, k)
	}
	return keys
}
