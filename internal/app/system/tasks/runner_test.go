package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestTryRunCycle_RunsJobsInOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	job := func(name string) Job {
		return Job{Name: name, Run: func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}}
	}
	r := NewRunner([]Job{job("first"), job("second"), job("third")},
		zap.NewNop(), time.Hour, time.Minute)

	if err := r.TryRunCycle(context.Background()); err != nil {
		t.Fatalf("TryRunCycle: %v", err)
	}

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("ran %d jobs, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, order[i], want[i])
		}
	}
}

func TestTryRunCycle_FailureAndPanicDoNotStopTheCycle(t *testing.T) {
	var ran []string
	r := NewRunner([]Job{
		{Name: "fails", Run: func(context.Context) error {
			ran = append(ran, "fails")
			return errors.New("boom")
		}},
		{Name: "panics", Run: func(context.Context) error {
			ran = append(ran, "panics")
			panic("boom")
		}},
		{Name: "survives", Run: func(context.Context) error {
			ran = append(ran, "survives")
			return nil
		}},
	}, zap.NewNop(), time.Hour, time.Minute)

	if err := r.TryRunCycle(context.Background()); err != nil {
		t.Fatalf("TryRunCycle: %v", err)
	}
	if len(ran) != 3 || ran[2] != "survives" {
		t.Errorf("later jobs must still run, got %v", ran)
	}
}

func TestTryRunCycle_NoOverlap(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	r := NewRunner([]Job{{Name: "slow", Run: func(context.Context) error {
		close(entered)
		<-release
		return nil
	}}}, zap.NewNop(), time.Hour, time.Minute)

	done := make(chan error, 1)
	go func() { done <- r.TryRunCycle(context.Background()) }()
	<-entered

	if err := r.TryRunCycle(context.Background()); !errors.Is(err, ErrCycleRunning) {
		t.Errorf("concurrent cycle: got %v, want ErrCycleRunning", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first cycle: %v", err)
	}

	// Lock released: a fresh cycle runs again.
	release = make(chan struct{})
	close(release)
	if err := r.TryRunCycle(context.Background()); err != nil {
		t.Errorf("cycle after release: %v", err)
	}
}

func TestRunOne_KnownAndUnknownJobs(t *testing.T) {
	var ran bool
	r := NewRunner([]Job{{Name: "recurring-invoices", Run: func(context.Context) error {
		ran = true
		return nil
	}}}, zap.NewNop(), time.Hour, time.Minute)

	if err := r.RunOne(context.Background(), "recurring-invoices"); err != nil {
		t.Fatalf("RunOne: %v", err)
	}
	if !ran {
		t.Error("job did not run")
	}
	if err := r.RunOne(context.Background(), "no-such-job"); err == nil {
		t.Error("unknown job name must error")
	}
}

func TestRunCycle_CancelledContextCutsCycleShort(t *testing.T) {
	var ran []string
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner([]Job{
		{Name: "first", Run: func(context.Context) error {
			ran = append(ran, "first")
			cancel()
			return nil
		}},
		{Name: "second", Run: func(context.Context) error {
			ran = append(ran, "second")
			return nil
		}},
	}, zap.NewNop(), time.Hour, time.Minute)

	if err := r.TryRunCycle(ctx); err != nil {
		t.Fatalf("TryRunCycle: %v", err)
	}
	if len(ran) != 1 {
		t.Errorf("jobs after cancel must not run, got %v", ran)
	}
}
