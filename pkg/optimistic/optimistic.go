// Package optimistic applies local state changes immediately, confirms them
// against a remote call in the background and reverts on failure.
package optimistic

import (
	"context"
	"sync"

	"github.com/atlas-fitness/atlas-api/pkg/logger"
)

// Remote applies next remotely and returns the authoritative value.
type Remote[T comparable] func(ctx context.Context, next T) (T, error)

// Outcome reports how an Apply settled.
type Outcome[T comparable] struct {
	Value      T
	Err        error
	RolledBack bool
	// Superseded is set when a newer Apply started before this one settled;
	// its result was then left to the newer action.
	Superseded bool
}

// Value is a piece of local state updated optimistically.
type Value[T comparable] struct {
	mu       sync.Mutex
	current  T
	version  uint64
	changes  uint64
	onChange func(T)
	logger   *logger.Logger

	notifyMu sync.Mutex
	notified uint64

	// settled runs between a settle's state change and its notification.
	settled func()
}

// New creates a Value holding initial. onChange may be nil; it runs after
// local changes, one call at a time and in change order. A change that was
// already overwritten when its turn comes is not reported, so the last call
// always carries the current value. onChange must not call Apply on the
// same Value.
func New[T comparable](initial T, onChange func(T)) *Value[T] {
	return &Value[T]{current: initial, onChange: onChange}
}

// WithLogger sets the logger used for swallowed remote failures.
func (v *Value[T]) WithLogger(l *logger.Logger) *Value[T] {
	v.logger = l
	return v
}

// Get returns the current local value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Apply sets next locally, then calls remote in a goroutine. The returned
// channel receives exactly one Outcome and is closed.
func (v *Value[T]) Apply(ctx context.Context, next T, remote Remote[T]) <-chan Outcome[T] {
	return v.apply(ctx, func(T) T { return next }, remote)
}

func (v *Value[T]) apply(ctx context.Context, step func(T) T, remote Remote[T]) <-chan Outcome[T] {
	v.mu.Lock()
	previous := v.current
	next := step(previous)
	v.current = next
	v.version++
	version := v.version
	change := v.change()
	v.mu.Unlock()
	v.notify(change, next)

	done := make(chan Outcome[T], 1)
	go func() {
		defer close(done)
		got, err := remote(ctx, next)
		done <- v.settle(version, previous, next, got, err)
	}()
	return done
}

func (v *Value[T]) settle(version uint64, previous, next, got T, err error) Outcome[T] {
	v.mu.Lock()
	if v.version != version {
		current := v.current
		v.mu.Unlock()
		if err != nil {
			v.logger.Warn("optimistic: superseded update failed: %v", err)
		}
		return Outcome[T]{Value: current, Err: err, Superseded: true}
	}

	if err != nil {
		v.current = previous
		change := v.change()
		v.mu.Unlock()
		v.logger.Warn("optimistic: remote update failed, reverting: %v", err)
		v.afterSettle()
		v.notify(change, previous)
		return Outcome[T]{Value: previous, Err: err, RolledBack: true}
	}

	if got == next {
		v.mu.Unlock()
		return Outcome[T]{Value: next}
	}
	v.current = got
	change := v.change()
	v.mu.Unlock()
	v.afterSettle()
	v.notify(change, got)
	return Outcome[T]{Value: got}
}

// change numbers a state change. Callers hold mu.
func (v *Value[T]) change() uint64 {
	v.changes++
	return v.changes
}

func (v *Value[T]) afterSettle() {
	if v.settled != nil {
		v.settled()
	}
}

// notify reports value unless a later change was reported first.
func (v *Value[T]) notify(change uint64, value T) {
	if v.onChange == nil {
		return
	}
	v.notifyMu.Lock()
	defer v.notifyMu.Unlock()
	if change < v.notified {
		return
	}
	v.notified = change
	v.onChange(value)
}

// Toggle is a boolean Value, e.g. following or liked state.
type Toggle struct {
	*Value[bool]
}

// NewToggle creates a Toggle holding initial.
func NewToggle(initial bool, onChange func(bool)) *Toggle {
	return &Toggle{Value: New(initial, onChange)}
}

// Flip inverts the local state and confirms it through remote.
func (t *Toggle) Flip(ctx context.Context, remote Remote[bool]) <-chan Outcome[bool] {
	return t.apply(ctx, func(current bool) bool { return !current }, remote)
}
