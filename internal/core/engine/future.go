package engine

import (
	"context"
	"sync"

	"github.com/stacman/stacman/internal/core"
)

// Future is the pending result of a submitted task. It is resolved exactly
// once by the worker that ran the task.
type Future[T any] struct {
	id     string
	done   chan struct{}
	once   sync.Once
	result core.Result[T]
}

func newFuture[T any](id string) *Future[T] {
	return &Future[T]{id: id, done: make(chan struct{})}
}

// ID returns the task identifier.
func (f *Future[T]) ID() string {
	return f.id
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task finishes or ctx ends. A ctx error only means
// the caller stopped waiting; the task itself keeps running.
func (f *Future[T]) Wait(ctx context.Context) (core.Result[T], error) {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-f.done:
		return f.result, nil
	case <-ctx.Done():
		return core.Result[T]{}, ctx.Err()
	}
}

// Get blocks until the task finishes.
func (f *Future[T]) Get() core.Result[T] {
	<-f.done
	return f.result
}

// Result returns the result without blocking. ok is false while pending.
func (f *Future[T]) Result() (core.Result[T], bool) {
	select {
	case <-f.done:
		return f.result, true
	default:
		return core.Result[T]{}, false
	}
}

func (f *Future[T]) resolve(result core.Result[T]) {
	f.once.Do(func() {
		f.result = result
		close(f.done)
	})
}
