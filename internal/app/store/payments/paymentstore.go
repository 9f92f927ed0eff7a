// internal/app/store/payments/paymentstore.go
package paymentstore

import (
	"context"
	"errors"
	"time"

	"github.com/subpoolhq/subpool/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

var ErrDuplicateReference = errors.New("a payment with this reference already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("payments")}
}

func (s *Store) Create(ctx context.Context, p models.Payment) (models.Payment, error) {
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	if p.Status == "" {
		p.Status = models.PaymentPending
	}
	if p.Disbursed == "" {
		p.Disbursed = models.DisburseNone
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, p)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Payment{}, ErrDuplicateReference
		}
		return models.Payment{}, err
	}
	return p, nil
}

func (s *Store) GetByReference(ctx context.Context, reference string) (models.Payment, error) {
	var p models.Payment
	if err := s.c.FindOne(ctx, bson.M{"reference": reference}).Decode(&p); err != nil {
		return models.Payment{}, err
	}
	return p, nil
}

// MarkSuccessful settles a pending payment. The filter keeps the status
// machine forward-only: a payment already successful or failed is left
// untouched and reported via mongo.ErrNoDocuments.
func (s *Store) MarkSuccessful(ctx context.Context, reference string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"reference": reference, "status": models.PaymentPending},
		bson.M{"$set": bson.M{
			"status":     models.PaymentSuccessful,
			"updated_at": time.Now().UTC(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// FindSuccessfulUndisbursed returns the group's settled payments that
// have not yet entered a transfer batch.
func (s *Store) FindSuccessfulUndisbursed(ctx context.Context, groupID primitive.ObjectID) ([]models.Payment, error) {
	return s.find(ctx, bson.M{
		"group_id":  groupID,
		"status":    models.PaymentSuccessful,
		"disbursed": models.DisburseNone,
	})
}

// FindDisbursePending returns every payment waiting on a transfer
// result, across all groups.
func (s *Store) FindDisbursePending(ctx context.Context) ([]models.Payment, error) {
	return s.find(ctx, bson.M{"disbursed": models.DisbursePending})
}

// MarkDisbursePending stamps one payment with the transfer id returned
// by the gateway. Guarded on not-disbursed so a re-run cannot restamp a
// payment that already belongs to a transfer batch.
func (s *Store) MarkDisbursePending(ctx context.Context, id primitive.ObjectID, disbursementID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "disbursed": models.DisburseNone},
		bson.M{"$set": bson.M{
			"disbursed":       models.DisbursePending,
			"disbursement_id": disbursementID,
			"updated_at":      time.Now().UTC(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SettleDisbursement marks every payment in a transfer batch paid out.
func (s *Store) SettleDisbursement(ctx context.Context, disbursementID string) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"disbursement_id": disbursementID, "disbursed": models.DisbursePending},
		bson.M{"$set": bson.M{
			"disbursed":  models.DisburseSuccessful,
			"updated_at": time.Now().UTC(),
		}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// RevertDisbursement returns a failed transfer batch to the payout
// pool. The disbursement id is cleared so the next transfer attempt
// stamps a fresh one.
func (s *Store) RevertDisbursement(ctx context.Context, disbursementID string) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"disbursement_id": disbursementID, "disbursed": models.DisbursePending},
		bson.M{"$set": bson.M{
			"disbursed":       models.DisburseNone,
			"disbursement_id": "",
			"updated_at":      time.Now().UTC(),
		}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Payment, error) {
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Payment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
