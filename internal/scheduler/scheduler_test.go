// internal/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, within time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.After(within)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-deadline:
			t.Fatalf("condition not met within %s", within)
		case <-ticker.C:
			if cond() {
				return
			}
		}
	}
}

func TestSchedulerFiresJob(t *testing.T) {
	var fires atomic.Int32
	sched := New()
	if err := sched.Add(Job{
		Name:     "every-second",
		Schedule: "* * * * * *",
		Run:      func(context.Context) { fires.Add(1) },
	}); err != nil {
		t.Fatal(err)
	}
	if err := sched.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer sched.Stop()

	waitFor(t, 2500*time.Millisecond, func() bool { return fires.Load() > 0 })
}

func TestSchedulerRejectsInvalidSchedule(t *testing.T) {
	sched := New()
	err := sched.Add(Job{Name: "bad", Schedule: "not a cron", Run: func(context.Context) {}})
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
	if len(sched.Jobs()) != 0 {
		t.Errorf("invalid job should not be registered, got %v", sched.Jobs())
	}
}

func TestSchedulerRejectsMissingRun(t *testing.T) {
	if err := New().Add(Job{Name: "x", Schedule: "@every 1m"}); err == nil {
		t.Fatal("expected error for job without run func")
	}
}

func TestValidateSchedule(t *testing.T) {
	for _, spec := range []string{"*/5 * * * *", "0 */5 * * * *", "@every 30s", "@hourly"} {
		if err := ValidateSchedule(spec); err != nil {
			t.Errorf("ValidateSchedule(%q) = %v", spec, err)
		}
	}
	if err := ValidateSchedule("61 * * * *"); err == nil {
		t.Error("expected error for out-of-range minute")
	}
}

func TestSchedulerStopCancelsJobContext(t *testing.T) {
	started := make(chan struct{}, 1)
	var canceled atomic.Bool
	sched := New()
	if err := sched.Add(Job{
		Name:     "long",
		Schedule: "* * * * * *",
		Run: func(ctx context.Context) {
			select {
			case started <- struct{}{}:
			default:
			}
			<-ctx.Done()
			canceled.Store(true)
		},
	}); err != nil {
		t.Fatal(err)
	}
	if err := sched.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	select {
	case <-started:
	case <-time.After(2500 * time.Millisecond):
		t.Fatal("job did not start")
	}
	sched.Stop()
	if !canceled.Load() {
		t.Error("Stop should cancel the job context and wait for it")
	}
}

func TestSchedulerReload(t *testing.T) {
	var fires atomic.Int32
	sched := New()
	if err := sched.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer sched.Stop()

	if err := sched.Add(Job{
		Name:     "late",
		Schedule: "* * * * * *",
		Run:      func(context.Context) { fires.Add(1) },
	}); err != nil {
		t.Fatal(err)
	}
	if err := sched.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 2500*time.Millisecond, func() bool { return fires.Load() > 0 })
}
