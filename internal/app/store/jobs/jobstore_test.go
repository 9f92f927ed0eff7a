package jobstore_test

import (
	"errors"
	"testing"
	"time"

	jobstore "github.com/subpoolhq/subpool/internal/app/store/jobs"
	"github.com/subpoolhq/subpool/internal/domain/models"
	"github.com/subpoolhq/subpool/internal/testutil"
)

func queuedJob(event string, runAt time.Time) models.NotificationJob {
	return models.NotificationJob{
		Event:       event,
		Status:      models.JobQueued,
		MaxAttempts: 5,
		RunAt:       runAt,
	}
}

func TestClaimNext_OldestRunnableFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := jobstore.New(db)

	now := time.Now().UTC()
	if _, err := store.Insert(ctx, queuedJob("later", now.Add(-time.Minute))); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := store.Insert(ctx, queuedJob("older", now.Add(-time.Hour))); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := store.Insert(ctx, queuedJob("future", now.Add(time.Hour))); err != nil {
		t.Fatalf("insert: %v", err)
	}

	first, err := store.ClaimNext(ctx, now)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if first.Event != "older" {
		t.Errorf("first claim: got %q, want the oldest runnable job", first.Event)
	}
	if first.Status != models.JobRunning {
		t.Errorf("claimed status: got %q, want running", first.Status)
	}

	second, err := store.ClaimNext(ctx, now)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if second.Event != "later" {
		t.Errorf("second claim: got %q", second.Event)
	}

	// The future job is not yet due.
	if _, err := store.ClaimNext(ctx, now); !errors.Is(err, jobstore.ErrNoJob) {
		t.Errorf("third claim: got %v, want ErrNoJob", err)
	}
}

func TestRescheduleAndMarkDead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := jobstore.New(db)

	now := time.Now().UTC()
	j, err := store.Insert(ctx, queuedJob("invoice.send", now.Add(-time.Minute)))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	claimed, err := store.ClaimNext(ctx, now)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := store.Reschedule(ctx, claimed.ID, 1, now.Add(30*time.Second), "smtp timeout"); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	// Not due yet after the backoff.
	if _, err := store.ClaimNext(ctx, now); !errors.Is(err, jobstore.ErrNoJob) {
		t.Errorf("rescheduled job claimed early: %v", err)
	}
	// Due once the backoff elapses.
	again, err := store.ClaimNext(ctx, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("claim after backoff: %v", err)
	}
	if again.ID != j.ID || again.Attempts != 1 {
		t.Errorf("reclaimed: id %s attempts %d", again.ID.Hex(), again.Attempts)
	}

	if err := store.MarkDead(ctx, again.ID, 5, "mailbox rejected"); err != nil {
		t.Fatalf("MarkDead: %v", err)
	}
	if _, err := store.ClaimNext(ctx, now.Add(2*time.Minute)); !errors.Is(err, jobstore.ErrNoJob) {
		t.Errorf("dead job must never be claimed, got %v", err)
	}
}

func TestRequeueStuck(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := jobstore.New(db)

	now := time.Now().UTC()
	if _, err := store.Insert(ctx, queuedJob("invoice.send", now.Add(-time.Hour))); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := store.ClaimNext(ctx, now); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// Simulate a crash: the job sits in running with no worker.
	n, err := store.RequeueStuck(ctx, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("RequeueStuck: %v", err)
	}
	if n != 1 {
		t.Errorf("requeued: got %d, want 1", n)
	}
	if _, err := store.ClaimNext(ctx, now.Add(2*time.Minute)); err != nil {
		t.Errorf("requeued job should be claimable again: %v", err)
	}
}
