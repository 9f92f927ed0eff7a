// internal/app/store/jobs/jobstore.go
package jobstore

import (
	"context"
	"errors"
	"time"

	"github.com/subpoolhq/subpool/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store persists notification queue jobs. The claim operation is an
// atomic find-and-update, so multiple dispatcher processes can share
// one collection without double-delivering a job that was claimed.
type Store struct {
	c *mongo.Collection
}

// ErrNoJob means nothing is due; the dispatcher sleeps until its next tick.
var ErrNoJob = errors.New("no queued job is due")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notification_jobs")}
}

func (s *Store) Insert(ctx context.Context, j models.NotificationJob) (models.NotificationJob, error) {
	now := time.Now().UTC()
	j.ID = primitive.NewObjectID()
	j.Status = models.JobQueued
	if j.RunAt.IsZero() {
		j.RunAt = now
	}
	j.CreatedAt = now
	j.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, j); err != nil {
		return models.NotificationJob{}, err
	}
	return j, nil
}

// ClaimNext atomically moves the oldest due job from queued to running
// and returns it.
func (s *Store) ClaimNext(ctx context.Context, now time.Time) (models.NotificationJob, error) {
	filter := bson.M{
		"status": models.JobQueued,
		"run_at": bson.M{"$lte": now},
	}
	update := bson.M{"$set": bson.M{
		"status":     models.JobRunning,
		"updated_at": now,
	}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "run_at", Value: 1}}).
		SetReturnDocument(options.After)

	var j models.NotificationJob
	err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&j)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.NotificationJob{}, ErrNoJob
	}
	if err != nil {
		return models.NotificationJob{}, err
	}
	return j, nil
}

func (s *Store) MarkDone(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"status":     models.JobDone,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// Reschedule puts a failed job back in the queue for a later attempt.
func (s *Store) Reschedule(ctx context.Context, id primitive.ObjectID, attempts int, runAt time.Time, lastErr string) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"status":     models.JobQueued,
		"attempts":   attempts,
		"run_at":     runAt,
		"last_error": lastErr,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// MarkDead parks a job that exhausted its attempts (or has no handler).
// Dead jobs are kept for operator inspection, never retried.
func (s *Store) MarkDead(ctx context.Context, id primitive.ObjectID, attempts int, lastErr string) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"status":     models.JobDead,
		"attempts":   attempts,
		"last_error": lastErr,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// RequeueStuck returns jobs stuck in running (crashed worker) to the
// queue. Called on dispatcher startup.
func (s *Store) RequeueStuck(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"status": models.JobRunning, "updated_at": bson.M{"$lte": olderThan}},
		bson.M{"$set": bson.M{
			"status":     models.JobQueued,
			"updated_at": time.Now().UTC(),
		}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
