// internal/app/system/workers/queuemaintenance.go
package workers

import (
	"context"
	"sync"
	"time"

	jobstore "github.com/subpoolhq/subpool/internal/app/store/jobs"
	"go.uber.org/zap"
)

// QueueMaintenance is a background worker that returns notification
// jobs stranded in the running state to the queue. The dispatcher does
// this once at startup; this worker covers workers that crash while
// the process keeps serving.
type QueueMaintenance struct {
	jobs           *jobstore.Store
	log            *zap.Logger
	interval       time.Duration
	stuckThreshold time.Duration
	stopCh         chan struct{}
	wg             sync.WaitGroup
}

// NewQueueMaintenance creates a new queue maintenance worker.
//
// Parameters:
//   - jobs: the notification job store
//   - logger: zap logger for logging
//   - interval: how often to sweep (e.g., 1 minute)
//   - stuckThreshold: how long a job may sit in running before it is
//     considered abandoned (e.g., 5 minutes; must exceed the delivery
//     timeout or in-flight jobs get double-delivered)
func NewQueueMaintenance(jobs *jobstore.Store, logger *zap.Logger, interval, stuckThreshold time.Duration) *QueueMaintenance {
	return &QueueMaintenance{
		jobs:           jobs,
		log:            logger,
		interval:       interval,
		stuckThreshold: stuckThreshold,
		stopCh:         make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *QueueMaintenance) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("queue maintenance worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("stuck_threshold", w.stuckThreshold))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *QueueMaintenance) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("queue maintenance worker stopped")
}

func (w *QueueMaintenance) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *QueueMaintenance) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := w.jobs.RequeueStuck(ctx, time.Now().UTC().Add(-w.stuckThreshold))
	if err != nil {
		w.log.Error("failed to requeue stuck jobs", zap.Error(err))
		return
	}

	if count > 0 {
		w.log.Warn("requeued stuck notification jobs", zap.Int64("count", count))
	}
}
