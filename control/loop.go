// Package control provides the loop that owns mutable display and cache
// state. Background work hands its results to the loop instead of touching
// that state directly.
package control

import (
	"context"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	defaultQueueSize = 256
)

// Loop runs posted functions one at a time on a single goroutine.
type Loop struct {
	calls     chan func()
	done      chan struct{}
	closeOnce sync.Once
}

// NewLoop returns a loop that buffers up to queueSize pending calls.
func NewLoop(queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	return &Loop{
		calls: make(chan func(), queueSize),
		done:  make(chan struct{}),
	}
}

// Run executes posted functions until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	defer l.closeOnce.Do(func() {
		close(l.done)
	})

	for {
		select {
		case <-ctx.Done():
			return

		case fn := <-l.calls:
			fn()
		}
	}
}

// Done returns a channel closed when the loop stops running.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Post queues fn for execution on the loop. It returns false when the loop
// has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case <-l.done:
		return false

	case l.calls <- fn:
		return true
	}
}

// Call runs fn on the loop and waits for it to return. It must not be
// called from the loop itself.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	called := make(chan struct{})
	ok := l.Post(func() {
		defer close(called)
		fn()
	})
	if !ok {
		return errors.New("control loop stopped")
	}

	select {
	case <-called:
		return nil

	case <-ctx.Done():
		return ctx.Err()

	case <-l.done:
		return errors.New("control loop stopped")
	}
}
