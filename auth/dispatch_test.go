package auth_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-bff/auth"
	"github.com/stretchr/testify/require"
)

func TestDispatcher(t *testing.T) {
	t.Run("runs detached from the request", func(t *testing.T) {
		d := auth.NewDispatcher(time.Second)
		ctx, cancel := context.WithCancel(context.Background())

		var ran atomic.Bool
		d.Go(ctx, "task", func(ctx context.Context) error {
			time.Sleep(20 * time.Millisecond)
			require.NoError(t, ctx.Err())
			ran.Store(true)
			return nil
		})
		cancel()

		require.NoError(t, d.Close(context.Background()))
		require.True(t, ran.Load())
	})

	t.Run("task timeout", func(t *testing.T) {
		d := auth.NewDispatcher(10 * time.Millisecond)
		var deadline atomic.Bool
		d.Go(context.Background(), "slow", func(ctx context.Context) error {
			<-ctx.Done()
			deadline.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
			return ctx.Err()
		})
		require.NoError(t, d.Close(context.Background()))
		require.True(t, deadline.Load())
	})

	t.Run("closed dispatcher drops tasks", func(t *testing.T) {
		d := auth.NewDispatcher(time.Second)
		require.NoError(t, d.Close(context.Background()))

		var ran atomic.Bool
		d.Go(context.Background(), "late", func(ctx context.Context) error {
			ran.Store(true)
			return nil
		})
		require.NoError(t, d.Close(context.Background()))
		require.False(t, ran.Load())
	})

	t.Run("close races with new tasks", func(t *testing.T) {
		d := auth.NewDispatcher(time.Second)
		var started, finished atomic.Int32

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				d.Go(context.Background(), "racing", func(ctx context.Context) error {
					started.Add(1)
					time.Sleep(time.Millisecond)
					finished.Add(1)
					return nil
				})
			}()
		}
		require.NoError(t, d.Close(context.Background()))
		require.Equal(t, started.Load(), finished.Load())

		wg.Wait()
		time.Sleep(10 * time.Millisecond)
		require.Equal(t, started.Load(), finished.Load())
	})

	t.Run("panics are contained", func(t *testing.T) {
		d := auth.NewDispatcher(time.Second)
		d.Go(context.Background(), "panics", func(ctx context.Context) error {
			panic("boom")
		})
		require.NoError(t, d.Close(context.Background()))
	})
}
