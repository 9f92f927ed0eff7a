// internal/app/queue/dispatcher.go
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	jobstore "github.com/subpoolhq/subpool/internal/app/store/jobs"
	"github.com/subpoolhq/subpool/internal/app/system/metrics"
	"github.com/subpoolhq/subpool/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler processes one delivery job. The payload is the bson document
// the producer enqueued; decode it with bson.Unmarshal. Returning an
// error schedules a retry (until the job's attempt budget runs out).
type Handler func(ctx context.Context, payload bson.Raw) error

// Store is the consumer side of the job store. *jobstore.Store
// satisfies it; tests substitute a fake.
type Store interface {
	ClaimNext(ctx context.Context, now time.Time) (models.NotificationJob, error)
	MarkDone(ctx context.Context, id primitive.ObjectID) error
	Reschedule(ctx context.Context, id primitive.ObjectID, attempts int, runAt time.Time, lastErr string) error
	MarkDead(ctx context.Context, id primitive.ObjectID, attempts int, lastErr string) error
	RequeueStuck(ctx context.Context, olderThan time.Time) (int64, error)
}

var _ Store = (*jobstore.Store)(nil)

// Dispatcher pulls due jobs and runs their handlers. Same lifecycle
// shape as the app's other background workers: Start launches the loop,
// Stop signals it and waits.
type Dispatcher struct {
	store      Store
	met        *metrics.Billing
	log        *zap.Logger
	interval   time.Duration
	jobTimeout time.Duration

	mu       sync.RWMutex
	handlers map[string]Handler

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewDispatcher(store Store, met *metrics.Billing, logger *zap.Logger, interval, jobTimeout time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if jobTimeout <= 0 {
		jobTimeout = time.Minute
	}
	return &Dispatcher{
		store:      store,
		met:        met,
		log:        logger,
		interval:   interval,
		jobTimeout: jobTimeout,
		handlers:   make(map[string]Handler),
		stopCh:     make(chan struct{}),
	}
}

// Register binds a handler to an event name. All registrations happen
// during startup, before Start.
func (d *Dispatcher) Register(event string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[event] = h
}

// Start requeues jobs orphaned by a previous crash, then begins the
// delivery loop.
func (d *Dispatcher) Start() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if n, err := d.store.RequeueStuck(ctx, time.Now().UTC().Add(-d.jobTimeout)); err != nil {
		d.log.Warn("queue: requeue of stuck jobs failed", zap.Error(err))
	} else if n > 0 {
		d.log.Info("queue: requeued stuck jobs", zap.Int64("count", n))
	}

	d.wg.Add(1)
	go d.run()
	d.log.Info("queue dispatcher started",
		zap.Duration("interval", d.interval),
		zap.Duration("job_timeout", d.jobTimeout))
}

// Stop signals the loop to exit and waits for the in-flight job.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	d.wg.Wait()
	d.log.Info("queue dispatcher stopped")
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			d.drain()
		}
	}
}

// drain delivers every due job, one at a time, then returns to the
// ticker.
func (d *Dispatcher) drain() {
	for {
		select {
		case <-d.stopCh:
			return
		default:
		}
		if !d.DeliverOne(context.Background()) {
			return
		}
	}
}

// DeliverOne claims and processes a single due job. It reports whether
// a job was claimed (false means the queue is drained). Exposed so
// tests can step the dispatcher without the ticker loop.
func (d *Dispatcher) DeliverOne(ctx context.Context) bool {
	claimCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	job, err := d.store.ClaimNext(claimCtx, time.Now().UTC())
	cancel()
	if errors.Is(err, jobstore.ErrNoJob) {
		return false
	}
	if err != nil {
		d.log.Error("queue: claim failed", zap.Error(err))
		return false
	}

	d.mu.RLock()
	h, ok := d.handlers[job.Event]
	d.mu.RUnlock()

	if !ok {
		// A registry miss is permanent; retrying cannot fix it.
		d.park(ctx, job, fmt.Sprintf("no handler registered for event %q", job.Event))
		return true
	}

	runCtx, cancel := context.WithTimeout(ctx, d.jobTimeout)
	err = runHandler(runCtx, h, job.Payload)
	cancel()

	if err == nil {
		if err := d.store.MarkDone(ctx, job.ID); err != nil {
			d.log.Error("queue: mark done failed",
				zap.String("job_id", job.ID.Hex()), zap.Error(err))
		}
		d.met.JobsDelivered.Inc()
		return true
	}

	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		d.park(ctx, models.NotificationJob{ID: job.ID, Event: job.Event, Attempts: attempts}, err.Error())
		return true
	}

	delay := nextBackoff(attempts)
	if rerr := d.store.Reschedule(ctx, job.ID, attempts, time.Now().UTC().Add(delay), err.Error()); rerr != nil {
		d.log.Error("queue: reschedule failed",
			zap.String("job_id", job.ID.Hex()), zap.Error(rerr))
		return true
	}
	d.log.Warn("queue: handler failed, will retry",
		zap.String("event", job.Event),
		zap.String("job_id", job.ID.Hex()),
		zap.Int("attempt", attempts),
		zap.Int("max_attempts", job.MaxAttempts),
		zap.Duration("backoff", delay),
		zap.Error(err))
	return true
}

func (d *Dispatcher) park(ctx context.Context, job models.NotificationJob, reason string) {
	if err := d.store.MarkDead(ctx, job.ID, job.Attempts, reason); err != nil {
		d.log.Error("queue: mark dead failed",
			zap.String("job_id", job.ID.Hex()), zap.Error(err))
		return
	}
	d.met.JobsDead.Inc()
	d.log.Error("queue: job dead-lettered",
		zap.String("event", job.Event),
		zap.String("job_id", job.ID.Hex()),
		zap.Int("attempts", job.Attempts),
		zap.String("reason", reason))
}

// runHandler isolates handler panics so a bad payload cannot take the
// dispatcher down.
func runHandler(ctx context.Context, h Handler, payload bson.Raw) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, payload)
}
