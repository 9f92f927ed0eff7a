// internal/app/system/tasks/runner.go

// Package tasks schedules the daily billing cycle. The five jobs run
// strictly in order within a cycle — invoices before eviction checks,
// disbursement before verification — so a single cycle never observes
// its own half-finished writes out of order.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one named unit of scheduled work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Runner executes a fixed sequence of jobs on an interval. A cycle that
// is still running when the next tick arrives is not overlapped; the
// tick is skipped and logged.
type Runner struct {
	jobs     []Job
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration

	running sync.Mutex // held for the duration of one cycle
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewRunner creates a runner over jobs, executed in the given order.
//
// Parameters:
//   - jobs: the cycle's jobs, in execution order
//   - logger: zap logger for logging
//   - interval: how often a cycle starts (e.g., 24 hours)
//   - timeout: ceiling for one whole cycle (e.g., 30 minutes)
func NewRunner(jobs []Job, logger *zap.Logger, interval, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Runner{
		jobs:     jobs,
		log:      logger,
		interval: interval,
		timeout:  timeout,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the scheduling loop.
func (r *Runner) Start() {
	r.wg.Add(1)
	go r.run()
	r.log.Info("billing cycle runner started",
		zap.Duration("interval", r.interval),
		zap.Int("jobs", len(r.jobs)))
}

// Stop signals the runner to stop and waits for an in-flight cycle to
// finish.
func (r *Runner) Stop() {
	close(r.stopCh)
	r.wg.Wait()
	r.log.Info("billing cycle runner stopped")
}

func (r *Runner) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			if err := r.TryRunCycle(ctx); err != nil {
				r.log.Warn("billing cycle tick skipped", zap.Error(err))
			}
			cancel()
		}
	}
}

// ErrCycleRunning is returned when a cycle is requested while another
// is still in flight.
var ErrCycleRunning = fmt.Errorf("billing cycle already running")

// TryRunCycle runs one full cycle unless one is already in flight.
func (r *Runner) TryRunCycle(ctx context.Context) error {
	if !r.running.TryLock() {
		return ErrCycleRunning
	}
	defer r.running.Unlock()
	r.runCycle(ctx)
	return nil
}

// runCycle executes every job in order. A job's failure or panic is
// logged and the cycle moves on: a broken reminder sweep must not stop
// disbursements.
func (r *Runner) runCycle(ctx context.Context) {
	start := time.Now()
	r.log.Info("billing cycle started")

	for _, j := range r.jobs {
		if ctx.Err() != nil {
			r.log.Error("billing cycle cut short",
				zap.String("next_job", j.Name), zap.Error(ctx.Err()))
			return
		}
		if err := r.runJob(ctx, j); err != nil {
			r.log.Error("billing job failed",
				zap.String("job", j.Name), zap.Error(err))
		}
	}

	r.log.Info("billing cycle finished", zap.Duration("took", time.Since(start)))
}

func (r *Runner) runJob(ctx context.Context, j Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job %s panicked: %v", j.Name, rec)
		}
	}()
	return j.Run(ctx)
}

// RunOne executes a single job by name, outside the normal cycle. Used
// by the manual trigger endpoints. The non-overlap lock still applies.
func (r *Runner) RunOne(ctx context.Context, name string) error {
	for _, j := range r.jobs {
		if j.Name != name {
			continue
		}
		if !r.running.TryLock() {
			return ErrCycleRunning
		}
		defer r.running.Unlock()
		return r.runJob(ctx, j)
	}
	return fmt.Errorf("unknown job %q", name)
}

// Names lists the runner's jobs in execution order.
func (r *Runner) Names() []string {
	out := make([]string, len(r.jobs))
	for i, j := range r.jobs {
		out[i] = j.Name
	}
	return out
}
