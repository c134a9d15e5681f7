package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/anshukrra07/CampusCare-sub001/internal/metrics"
	"github.com/anshukrra07/CampusCare-sub001/internal/observability"
)

// Background runs fire-and-forget side effects (alert persistence,
// notification) outside the request path. A weighted semaphore bounds how
// many run at once; callers never wait on a task.
type Background struct {
	semaphore *semaphore.Weighted
	metrics   *metrics.Metrics
	active    atomic.Int64

	// mu orders admission in Go against Stop, so no wg.Add can race the
	// final wg.Wait.
	mu     sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBackground creates an executor that runs up to maxConcurrent tasks at
// a time. It is usable immediately; Start only rebinds the parent context.
func NewBackground(maxConcurrent int64, m *metrics.Metrics) *Background {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	b := &Background{
		semaphore: semaphore.NewWeighted(maxConcurrent),
		metrics:   m,
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())
	return b
}

// Start ties task contexts to ctx. Call before the first Go.
func (b *Background) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancel()
	b.ctx, b.cancel = context.WithCancel(ctx)
}

// Go schedules fn. The task context is detached from reqCtx's cancellation
// but keeps its request id for logging. Tasks submitted after Stop are
// dropped and counted.
func (b *Background) Go(reqCtx context.Context, name string, fn func(ctx context.Context) error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		slog.Warn("background executor stopped, dropping task", "task", name)
		b.metrics.RecordBackgroundFailure(name)
		return
	}
	ctx := b.ctx
	b.wg.Add(1)
	b.mu.RUnlock()

	if id := observability.RequestID(reqCtx); id != "" {
		ctx = observability.WithRequestID(ctx, id)
	}

	go func() {
		defer b.wg.Done()
		if err := b.semaphore.Acquire(ctx, 1); err != nil {
			b.metrics.RecordBackgroundFailure(name)
			return
		}
		defer b.semaphore.Release(1)

		b.active.Add(1)
		defer b.active.Add(-1)

		if err := runTask(ctx, fn); err != nil {
			observability.LoggerFromContext(ctx).Error("background task failed", "task", name, "error", err)
			b.metrics.RecordBackgroundFailure(name)
		}
	}()
}

func runTask(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

// Stop refuses new tasks and waits up to timeout for running ones, then
// cancels whatever is left.
func (b *Background) Stop(timeout time.Duration) bool {
	b.mu.Lock()
	b.closed = true
	cancel := b.cancel
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		cancel()
		return true
	case <-time.After(timeout):
		cancel()
		<-done
		return false
	}
}

// WaitIdle blocks until no tasks are pending or running, or the timeout
// expires. Returns true if idle.
func (b *Background) WaitIdle(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Active returns the number of tasks currently running.
func (b *Background) Active() int64 {
	return b.active.Load()
}
