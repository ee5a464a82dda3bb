package main

import (
	"context"
	"sync"
)

// future is a one-shot slot resolved or rejected exactly once.
// Later resolutions are ignored and reported as such.
type future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *future[T] {
	return &future[T]{done: make(chan struct{})}
}

func (f *future[T]) resolve(v T) bool {
	settled := false
	f.once.Do(func() {
		f.val = v
		close(f.done)
		settled = true
	})
	return settled
}

func (f *future[T]) reject(err error) bool {
	settled := false
	f.once.Do(func() {
		f.err = err
		close(f.done)
		settled = true
	})
	return settled
}

func (f *future[T]) ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// wait blocks until the future settles or ctx is done. An abandoned
// future still settles later; the value is simply dropped.
func (f *future[T]) wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
