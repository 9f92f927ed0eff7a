// internal/domain/models/notificationjob.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationJob.Status values.
const (
	JobQueued  = "queued"
	JobRunning = "running"
	JobDone    = "done"
	JobDead    = "dead"
)

// NotificationJob is one durable delivery job. Producers insert it and
// return; the dispatcher claims it (queued -> running) with an atomic
// find-and-update keyed on RunAt, so at-least-once delivery survives a
// process restart mid-handler.
type NotificationJob struct {
	ID      primitive.ObjectID `bson:"_id" json:"id"`
	Event   string             `bson:"event" json:"event"`
	Payload bson.Raw           `bson:"payload" json:"-"`

	Status      string    `bson:"status" json:"status"`
	Attempts    int       `bson:"attempts" json:"attempts"`
	MaxAttempts int       `bson:"max_attempts" json:"max_attempts"`
	RunAt       time.Time `bson:"run_at" json:"run_at"`
	LastError   string    `bson:"last_error,omitempty" json:"last_error,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
