// Package optimistic applies a change locally before the server confirms it and
// puts the old value back when the server refuses.
package optimistic

import (
	"context"
	"sync"
)

// Value is a piece of state guarded by its own lock.
type Value[T any] struct {
	mu  sync.Mutex
	cur T
}

func NewValue[T any](v T) *Value[T] { return &Value[T]{cur: v} }

func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cur
}

func (v *Value[T]) Set(next T) {
	v.mu.Lock()
	v.cur = next
	v.mu.Unlock()
}

// Do snapshots the current value, replaces it with apply(snapshot) and runs commit.
// When commit fails the snapshot is restored and the commit error returned.
// apply must not mutate its argument in place.
func Do[T any](ctx context.Context, v *Value[T], apply func(T) T, commit func(ctx context.Context) error) error {
	v.mu.Lock()
	snapshot := v.cur
	v.cur = apply(snapshot)
	v.mu.Unlock()

	if err := commit(ctx); err != nil {
		v.Set(snapshot)
		return err
	}
	return nil
}
