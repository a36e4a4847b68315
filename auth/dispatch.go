package auth

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-bff/internal/logger"
)

const defaultDispatchTimeout = 10 * time.Second

// Dispatcher runs fire-and-forget backend calls off the request path. Each
// task gets its own timeout and keeps the request's log fields. Failures are
// logged only.
type Dispatcher struct {
	timeout time.Duration
	wg      sync.WaitGroup

	// mu orders wg.Add against Close
	mu     sync.Mutex
	closed bool
}

func NewDispatcher(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	return &Dispatcher{timeout: timeout}
}

// Go starts task. After Close it is dropped.
func (d *Dispatcher) Go(ctx context.Context, name string, task func(ctx context.Context) error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		logger.From(ctx).Warn().Str("task", name).Msg("dispatcher closed, task dropped")
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.From(taskCtx).Error().Str("task", name).Interface("panic", r).Msg("background task panicked")
			}
		}()
		if err := task(taskCtx); err != nil {
			logger.From(taskCtx).Error().Str("task", name).Err(err).Msg("background task failed")
		}
	}()
}

// Close stops accepting tasks and waits for running ones, or for ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
