// internal/app/queue/queue.go

// Package queue is the durable, at-least-once notification delivery
// queue. Producers enqueue and return immediately; the dispatcher
// worker claims jobs, resolves a handler by event name, and retries
// failures with jittered exponential backoff until the attempt budget
// is spent. The orchestrator never performs blocking email/push I/O
// itself — everything leaves through here.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/subpoolhq/subpool/internal/app/system/metrics"
	"github.com/subpoolhq/subpool/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Inserter is the slice of the job store the producer needs.
// *jobstore.Store satisfies it.
type Inserter interface {
	Insert(ctx context.Context, j models.NotificationJob) (models.NotificationJob, error)
}

// DefaultMaxAttempts is the per-job attempt budget unless the producer
// overrides it.
const DefaultMaxAttempts = 5

// Enqueuer is the producer side of the queue. The orchestrator depends
// on this interface, not on the Mongo-backed implementation.
type Enqueuer interface {
	Enqueue(ctx context.Context, event string, payload any, opts ...Option) error
}

// Option adjusts one enqueued job.
type Option func(*models.NotificationJob)

// WithMaxAttempts overrides the attempt budget.
func WithMaxAttempts(n int) Option {
	return func(j *models.NotificationJob) { j.MaxAttempts = n }
}

// WithDelay schedules the first delivery attempt for later.
func WithDelay(d time.Duration) Option {
	return func(j *models.NotificationJob) { j.RunAt = time.Now().UTC().Add(d) }
}

// Queue is the Mongo-backed Enqueuer.
type Queue struct {
	store Inserter
	met   *metrics.Billing
	log   *zap.Logger
}

func New(store Inserter, met *metrics.Billing, logger *zap.Logger) *Queue {
	return &Queue{store: store, met: met, log: logger}
}

// Enqueue persists one job and returns. The payload must be a
// bson-marshalable value; handlers decode it back.
func (q *Queue) Enqueue(ctx context.Context, event string, payload any, opts ...Option) error {
	raw, err := bson.Marshal(payload)
	if err != nil {
		return fmt.Errorf("queue: marshal payload for %q: %w", event, err)
	}

	j := models.NotificationJob{
		Event:       event,
		Payload:     raw,
		MaxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(&j)
	}

	if _, err := q.store.Insert(ctx, j); err != nil {
		return fmt.Errorf("queue: enqueue %q: %w", event, err)
	}
	q.met.JobsEnqueued.Inc()
	q.log.Debug("queue: job enqueued", zap.String("event", event))
	return nil
}
