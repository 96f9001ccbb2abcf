// Package worker runs file I/O off the UI thread and hands results back as
// tasks the UI can wait on or poll.
package worker

import (
	"context"
	"errors"
)

// ErrPending is returned by Poll while the task is still running.
var ErrPending = errors.New("task still running")

// Task is the eventual result of a background call.
type Task[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newTask[T any]() *Task[T] {
	return &Task[T]{done: make(chan struct{})}
}

// Done returns a done channel closed when the result is available.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finishes or ctx is done.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Poll returns the result without blocking, or ErrPending.
func (t *Task[T]) Poll() (T, error) {
	select {
	case <-t.done:
		return t.value, t.err
	default:
		var zero T
		return zero, ErrPending
	}
}

func (t *Task[T]) finish(v T, err error) {
	t.value, t.err = v, err
	close(t.done)
}

// Completed returns a task that already holds v and err.
func Completed[T any](v T, err error) *Task[T] {
	t := newTask[T]()
	t.finish(v, err)
	return t
}

// Then runs fn with the result of t once t finishes and returns fn's
// result as a new task. fn runs on its own goroutine, outside any pool.
func Then[T, U any](t *Task[T], fn func(v T, err error) (U, error)) *Task[U] {
	next := newTask[U]()
	go func() {
		<-t.done
		next.finish(fn(t.value, t.err))
	}()
	return next
}
