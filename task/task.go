// Package task runs background work and hands results back to a control
// loop.
package task

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/globedrape/bulk"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

const (
	// ErrTypeTimeout is the type of errors returned when waiting for a task
	// took too long.
	ErrTypeTimeout = "timeout"
)

// Poster is implemented by loops that run functions on their own goroutine.
type Poster interface {
	Post(fn func()) bool
}

// Task is a unit of background work producing a value of type T.
type Task[T any] struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
	value  T
	err    error
}

// Run starts fn on a new goroutine. When limiter is not nil, fn waits for a
// slot before running. The context passed to fn is cancelled by Cancel and
// once fn returns.
func Run[T any](ctx context.Context, limiter *Limiter, fn func(ctx context.Context) (T, error)) *Task[T] {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task[T]{
		id:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(t.done)
		defer cancel()

		if err := limiter.Acquire(ctx); err != nil {
			t.err = bulk.Cancelled(ctx)
			return
		}
		defer limiter.Release()

		if ctx.Err() != nil {
			t.err = bulk.Cancelled(ctx)
			return
		}
		t.value, t.err = fn(ctx)
	}()

	return t
}

// ID returns the unique id of the task.
func (t *Task[T]) ID() string {
	return t.id
}

// Done returns a channel closed when the task has finished.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Result waits for the task to finish and returns its outcome.
func (t *Task[T]) Result() (T, error) {
	<-t.done
	return t.value, t.err
}

// Await waits at most timeout for the task to finish. On timeout the task
// keeps running and a timeout error is returned.
func (t *Task[T]) Await(timeout time.Duration) (T, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-t.done:
		return t.value, t.err

	case <-timer.C:
		var zero T
		return zero, errors.New("task timed out").
			WithType(ErrTypeTimeout).
			WithTag("task_id", t.id).
			WithTag("timeout", timeout)
	}
}

// Cancel asks the task to stop. The work observes it through its context.
func (t *Task[T]) Cancel() {
	t.cancel()
}

// Deliver posts fn with the outcome of the task to p once the task has
// finished. The outcome is dropped if p has stopped.
func (t *Task[T]) Deliver(p Poster, fn func(v T, err error)) {
	go func() {
		<-t.done
		p.Post(func() {
			fn(t.value, t.err)
		})
	}()
}

// Limiter bounds the number of tasks running at once.
type Limiter struct {
	sem *semaphore.Weighted
}

// NewLimiter returns a limiter allowing n concurrent tasks.
func NewLimiter(n int) *Limiter {
	return &Limiter{
		sem: semaphore.NewWeighted(int64(max(n, 1))),
	}
}

// Acquire waits for a slot. A nil limiter never waits.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.sem.Acquire(ctx, 1)
}

// Release frees a slot taken with Acquire.
func (l *Limiter) Release() {
	if l == nil {
		return
	}
	l.sem.Release(1)
}
