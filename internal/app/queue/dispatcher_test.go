package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	jobstore "github.com/subpoolhq/subpool/internal/app/store/jobs"
	"github.com/subpoolhq/subpool/internal/app/system/metrics"
	"github.com/subpoolhq/subpool/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// fakeStore is an in-memory Store for stepping the dispatcher in tests.
type fakeStore struct {
	jobs []models.NotificationJob
}

func (f *fakeStore) add(event string, payload any, maxAttempts int) primitive.ObjectID {
	raw, _ := bson.Marshal(payload)
	j := models.NotificationJob{
		ID:          primitive.NewObjectID(),
		Event:       event,
		Payload:     raw,
		Status:      models.JobQueued,
		MaxAttempts: maxAttempts,
		RunAt:       time.Now().UTC().Add(-time.Second),
	}
	f.jobs = append(f.jobs, j)
	return j.ID
}

func (f *fakeStore) byID(id primitive.ObjectID) *models.NotificationJob {
	for i := range f.jobs {
		if f.jobs[i].ID == id {
			return &f.jobs[i]
		}
	}
	return nil
}

func (f *fakeStore) ClaimNext(_ context.Context, now time.Time) (models.NotificationJob, error) {
	for i := range f.jobs {
		j := &f.jobs[i]
		if j.Status == models.JobQueued && !j.RunAt.After(now) {
			j.Status = models.JobRunning
			return *j, nil
		}
	}
	return models.NotificationJob{}, jobstore.ErrNoJob
}

func (f *fakeStore) MarkDone(_ context.Context, id primitive.ObjectID) error {
	f.byID(id).Status = models.JobDone
	return nil
}

func (f *fakeStore) Reschedule(_ context.Context, id primitive.ObjectID, attempts int, runAt time.Time, lastErr string) error {
	j := f.byID(id)
	j.Status = models.JobQueued
	j.Attempts = attempts
	j.RunAt = runAt
	j.LastError = lastErr
	return nil
}

func (f *fakeStore) MarkDead(_ context.Context, id primitive.ObjectID, attempts int, lastErr string) error {
	j := f.byID(id)
	j.Status = models.JobDead
	j.Attempts = attempts
	j.LastError = lastErr
	return nil
}

func (f *fakeStore) RequeueStuck(_ context.Context, _ time.Time) (int64, error) { return 0, nil }

func newTestDispatcher(store Store) *Dispatcher {
	met := metrics.New(prometheus.NewRegistry())
	return NewDispatcher(store, met, zap.NewNop(), time.Second, time.Second)
}

type greeting struct {
	Name string `bson:"name"`
}

func TestDeliverOne_Success(t *testing.T) {
	store := &fakeStore{}
	id := store.add("test.greet", greeting{Name: "Ada"}, 3)

	d := newTestDispatcher(store)
	var got string
	d.Register("test.greet", func(_ context.Context, payload bson.Raw) error {
		var g greeting
		if err := bson.Unmarshal(payload, &g); err != nil {
			return err
		}
		got = g.Name
		return nil
	})

	if !d.DeliverOne(context.Background()) {
		t.Fatal("expected a job to be claimed")
	}
	if got != "Ada" {
		t.Errorf("payload: got %q", got)
	}
	if store.byID(id).Status != models.JobDone {
		t.Errorf("status: got %q, want done", store.byID(id).Status)
	}
	if d.DeliverOne(context.Background()) {
		t.Error("queue should be drained")
	}
}

func TestDeliverOne_RetriesWithBackoffThenDeadLetters(t *testing.T) {
	store := &fakeStore{}
	id := store.add("test.flaky", greeting{Name: "x"}, 3)

	d := newTestDispatcher(store)
	var calls int
	d.Register("test.flaky", func(_ context.Context, _ bson.Raw) error {
		calls++
		return errors.New("provider down")
	})

	// Attempt 1: rescheduled into the future.
	d.DeliverOne(context.Background())
	j := store.byID(id)
	if j.Status != models.JobQueued {
		t.Fatalf("after first failure: status %q, want queued", j.Status)
	}
	if j.Attempts != 1 {
		t.Errorf("attempts: got %d, want 1", j.Attempts)
	}
	if !j.RunAt.After(time.Now().UTC()) {
		t.Error("expected backoff to push run_at into the future")
	}
	if j.LastError == "" {
		t.Error("expected last_error to be recorded")
	}

	// Not due yet: nothing to claim.
	if d.DeliverOne(context.Background()) {
		t.Fatal("job should not be due during backoff")
	}

	// Force due and burn the remaining attempts.
	j.RunAt = time.Now().UTC().Add(-time.Second)
	d.DeliverOne(context.Background())
	j.RunAt = time.Now().UTC().Add(-time.Second)
	d.DeliverOne(context.Background())

	if j.Status != models.JobDead {
		t.Errorf("after exhausting attempts: status %q, want dead", j.Status)
	}
	if calls != 3 {
		t.Errorf("handler calls: got %d, want 3", calls)
	}

	// Dead jobs are never claimed again.
	if d.DeliverOne(context.Background()) {
		t.Error("dead job must not be redelivered")
	}
}

func TestDeliverOne_UnknownEventIsDeadLettered(t *testing.T) {
	store := &fakeStore{}
	id := store.add("test.unknown", greeting{}, 5)

	d := newTestDispatcher(store)
	d.DeliverOne(context.Background())

	j := store.byID(id)
	if j.Status != models.JobDead {
		t.Errorf("status: got %q, want dead (registry miss is permanent)", j.Status)
	}
}

func TestDeliverOne_HandlerPanicBecomesRetry(t *testing.T) {
	store := &fakeStore{}
	id := store.add("test.panicky", greeting{}, 2)

	d := newTestDispatcher(store)
	d.Register("test.panicky", func(_ context.Context, _ bson.Raw) error {
		panic("bad payload")
	})

	d.DeliverOne(context.Background())
	if got := store.byID(id).Status; got != models.JobQueued {
		t.Errorf("status: got %q, want queued (panic retried, not fatal)", got)
	}
}

func TestNextBackoff_GrowsAndCaps(t *testing.T) {
	prev := time.Duration(0)
	for attempt := 1; attempt <= 5; attempt++ {
		d := nextBackoff(attempt)
		min := time.Duration(float64(backoffBase) * 0.7) // generous jitter floor
		if d < min {
			t.Errorf("attempt %d: backoff %v below floor %v", attempt, d, min)
		}
		if d > backoffCap {
			t.Errorf("attempt %d: backoff %v above cap %v", attempt, d, backoffCap)
		}
		if attempt > 1 && d < prev/2 {
			t.Errorf("attempt %d: backoff %v shrank too much from %v", attempt, d, prev)
		}
		prev = d
	}

	if d := nextBackoff(50); d > backoffCap {
		t.Errorf("high attempt: backoff %v exceeds cap", d)
	}
}
