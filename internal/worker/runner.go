package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrStopped is returned by Go once Shutdown has begun.
var ErrStopped = errors.New("worker: runner stopped")

// Task is a unit of background work. A returned error is logged by the runner.
type Task func(ctx context.Context) error

// Runner spawns fire-and-forget tasks that outlive the HTTP request that
// accepted them. Each task runs in its own goroutine under a bounded
// context detached from the caller.
type Runner struct {
	logger  *zap.Logger
	timeout time.Duration

	base   context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// NewRunner creates a runner. A non-positive timeout leaves tasks unbounded.
func NewRunner(logger *zap.Logger, timeout time.Duration) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Runner{logger: logger, timeout: timeout, base: base, cancel: cancel}
}

// Go starts task in the background.
func (r *Runner) Go(name string, task Task, fields ...zap.Field) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return ErrStopped
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(name, task, fields)
	return nil
}

func (r *Runner) run(name string, task Task, fields []zap.Field) {
	defer r.wg.Done()

	ctx := r.base
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	logger := r.logger.With(append([]zap.Field{zap.String("task", name)}, fields...)...)
	start := time.Now()
	err := r.safeRun(ctx, task)
	if err != nil {
		logger.Error("background task failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	logger.Debug("background task finished", zap.Duration("duration", time.Since(start)))
}

func (r *Runner) safeRun(ctx context.Context, task Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic recovered in background task", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return task(ctx)
}

// Wait blocks until every started task has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown stops accepting tasks and waits for in-flight ones. When ctx
// expires first, remaining tasks are cancelled and ctx.Err is returned.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return ctx.Err()
	}
}
