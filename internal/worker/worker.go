// Package worker runs cancellable background tasks that deliver exactly one result.
package worker

import (
	"context"
	"fmt"
)

// Result is the outcome of a task.
type Result[T any] struct {
	Value T
	Err   error
}

// Task is a running background computation.
type Task[T any] struct {
	cancel context.CancelFunc
	done   chan Result[T]
}

// Go starts fn in a new goroutine. fn receives a context that is cancelled
// when parent is done or Cancel is called.
func Go[T any](parent context.Context, fn func(ctx context.Context) (T, error)) *Task[T] {
	ctx, cancel := context.WithCancel(parent)
	t := &Task[T]{
		cancel: cancel,
		// buffered so the goroutine never blocks on an abandoned receiver
		done: make(chan Result[T], 1),
	}

	go func() {
		defer cancel()
		var res Result[T]
		defer func() {
			if r := recover(); r != nil {
				res = Result[T]{Err: fmt.Errorf("task panicked: %v", r)}
			}
			t.done <- res
			close(t.done)
		}()
		res.Value, res.Err = fn(ctx)
	}()

	return t
}

// Cancel asks the task to stop. The result is still delivered.
func (t *Task[T]) Cancel() {
	t.cancel()
}

// Done delivers the result once and is closed afterwards.
func (t *Task[T]) Done() <-chan Result[T] {
	return t.done
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case res := <-t.done:
		return res.Value, res.Err
	case <-ctx.Done():
		t.cancel()
		var zero T
		return zero, ctx.Err()
	}
}
