package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anshukrra07/CampusCare-sub001/internal/metrics"
	"github.com/anshukrra07/CampusCare-sub001/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestBackgroundRunsTasks(t *testing.T) {
	b := NewBackground(2, nil)
	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		b.Go(context.Background(), "test", func(context.Context) error {
			ran.Add(1)
			return nil
		})
	}
	if !b.WaitIdle(time.Second) {
		t.Fatal("tasks did not finish")
	}
	if ran.Load() != 5 {
		t.Errorf("expected 5 tasks, got %d", ran.Load())
	}
}

func TestBackgroundBoundsConcurrency(t *testing.T) {
	b := NewBackground(2, nil)
	var current, peak atomic.Int32
	for i := 0; i < 6; i++ {
		b.Go(context.Background(), "test", func(context.Context) error {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			current.Add(-1)
			return nil
		})
	}
	b.WaitIdle(2 * time.Second)
	if peak.Load() > 2 {
		t.Errorf("expected at most 2 concurrent tasks, saw %d", peak.Load())
	}
}

func TestBackgroundDetachesFromRequest(t *testing.T) {
	b := NewBackground(1, nil)
	reqCtx, cancel := context.WithCancel(observability.WithRequestID(context.Background(), "req-9"))

	got := make(chan string, 1)
	started := make(chan struct{})
	b.Go(reqCtx, "test", func(ctx context.Context) error {
		close(started)
		time.Sleep(20 * time.Millisecond)
		if ctx.Err() != nil {
			got <- "canceled"
			return nil
		}
		got <- observability.RequestID(ctx)
		return nil
	})
	<-started
	cancel()

	if v := <-got; v != "req-9" {
		t.Errorf("expected task to outlive request with its id, got %q", v)
	}
}

func TestBackgroundFailuresAreCounted(t *testing.T) {
	m := metrics.New()
	b := NewBackground(1, m)
	b.Go(context.Background(), "alert", func(context.Context) error { return errors.New("nope") })
	b.Go(context.Background(), "alert", func(context.Context) error { panic("worse") })
	b.WaitIdle(time.Second)

	if got := testutil.ToFloat64(m.BackgroundFailures.WithLabelValues("alert")); got != 2 {
		t.Errorf("expected 2 failures, got %v", got)
	}
}

func TestBackgroundStopDropsNewTasks(t *testing.T) {
	b := NewBackground(1, nil)
	if !b.Stop(time.Second) {
		t.Fatal("expected clean stop")
	}
	var ran atomic.Bool
	b.Go(context.Background(), "late", func(context.Context) error {
		ran.Store(true)
		return nil
	})
	b.WaitIdle(100 * time.Millisecond)
	if ran.Load() {
		t.Error("task ran after stop")
	}
}

func TestBackgroundStopRacingSubmissions(t *testing.T) {
	m := metrics.New()
	b := NewBackground(4, m)

	const submitters, perSubmitter = 8, 50
	var ran atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < perSubmitter; j++ {
				b.Go(context.Background(), "alert", func(context.Context) error {
					ran.Add(1)
					return nil
				})
			}
		}()
	}

	close(start)
	stopped := b.Stop(5 * time.Second)
	wg.Wait()
	if !stopped {
		t.Fatal("expected clean stop")
	}

	dropped := testutil.ToFloat64(m.BackgroundFailures.WithLabelValues("alert"))
	if total := int(ran.Load()) + int(dropped); total != submitters*perSubmitter {
		t.Errorf("ran %d + dropped %v != submitted %d", ran.Load(), dropped, submitters*perSubmitter)
	}
}
