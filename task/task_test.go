package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/globedrape/bulk"
	"github.com/aukilabs/globedrape/control"
	"github.com/stretchr/testify/require"
)

func TestTask(t *testing.T) {
	t.Run("result", func(t *testing.T) {
		task := Run(context.Background(), nil, func(ctx context.Context) (int, error) {
			return 42, nil
		})
		require.NotEmpty(t, task.ID())

		v, err := task.Result()
		require.NoError(t, err)
		require.Equal(t, 42, v)
	})

	t.Run("await times out without stopping the task", func(t *testing.T) {
		release := make(chan struct{})
		task := Run(context.Background(), nil, func(ctx context.Context) (int, error) {
			<-release
			return 1, nil
		})

		_, err := task.Await(10 * time.Millisecond)
		require.True(t, errors.IsType(err, ErrTypeTimeout))

		close(release)
		v, err := task.Await(time.Second)
		require.NoError(t, err)
		require.Equal(t, 1, v)
	})

	t.Run("cancel", func(t *testing.T) {
		task := Run(context.Background(), nil, func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, bulk.Cancelled(ctx)
		})
		task.Cancel()

		_, err := task.Result()
		require.True(t, bulk.IsCancelled(err))
	})

	t.Run("deliver runs on the loop", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		loop := control.NewLoop(0)
		go loop.Run(ctx)

		task := Run(ctx, nil, func(ctx context.Context) (string, error) {
			return "done", nil
		})

		got := make(chan string, 1)
		task.Deliver(loop, func(v string, err error) {
			if err == nil {
				got <- v
			}
		})

		select {
		case v := <-got:
			require.Equal(t, "done", v)
		case <-time.After(time.Second):
			t.Fatal("result not delivered")
		}
	})
}

func TestLimiter(t *testing.T) {
	limiter := NewLimiter(2)

	var running, peak atomic.Int32
	var tasks []*Task[struct{}]
	for i := 0; i < 8; i++ {
		tasks = append(tasks, Run(context.Background(), limiter, func(ctx context.Context) (struct{}, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return struct{}{}, nil
		}))
	}

	for _, task := range tasks {
		_, err := task.Result()
		require.NoError(t, err)
	}
	require.LessOrEqual(t, peak.Load(), int32(2))

	t.Run("cancelled while waiting for a slot", func(t *testing.T) {
		limiter := NewLimiter(1)
		block := make(chan struct{})
		defer close(block)

		started := make(chan struct{})
		Run(context.Background(), limiter, func(ctx context.Context) (int, error) {
			close(started)
			<-block
			return 0, nil
		})
		<-started

		waiting := Run(context.Background(), limiter, func(ctx context.Context) (int, error) {
			return 1, nil
		})
		waiting.Cancel()

		_, err := waiting.Result()
		require.True(t, bulk.IsCancelled(err))
	})
}
