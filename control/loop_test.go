package control

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoop(t *testing.T) {
	t.Run("runs posted calls in order on one goroutine", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		l := NewLoop(0)
		go l.Run(ctx)

		var values []int
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			require.True(t, l.Post(func() {
				defer wg.Done()
				values = append(values, i)
			}))
		}
		wg.Wait()

		require.Len(t, values, 100)
		for i, v := range values {
			require.Equal(t, i, v)
		}
	})

	t.Run("call waits for completion", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		l := NewLoop(1)
		go l.Run(ctx)

		var called bool
		err := l.Call(ctx, func() {
			time.Sleep(5 * time.Millisecond)
			called = true
		})
		require.NoError(t, err)
		require.True(t, called)
	})

	t.Run("stopped loop rejects calls", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		l := NewLoop(1)
		stopped := make(chan struct{})
		go func() {
			l.Run(ctx)
			close(stopped)
		}()

		cancel()
		<-stopped

		require.False(t, l.Post(func() {}))
		require.Error(t, l.Call(context.Background(), func() {}))
	})

	t.Run("call honors its context", func(t *testing.T) {
		l := NewLoop(1)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		// The loop is not running.
		err := l.Call(ctx, func() {})
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
