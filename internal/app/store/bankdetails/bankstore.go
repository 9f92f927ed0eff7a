// internal/app/store/bankdetails/bankstore.go
package bankstore

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

type Store struct {
	c *mongo.Collection
}

// ErrNotFound means the user has not configured a payout account yet.
// For the disbursement job this is a normal, recoverable outcome.
var ErrNotFound = errors.New("no bank details on file for this user")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("bank_details")}
}

func (s *Store) GetByUserID(ctx context.Context, userID primitive.ObjectID) (models.BankDetails, error) {
	var b models.BankDetails
	err := s.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.BankDetails{}, ErrNotFound
	}
	if err != nil {
		return models.BankDetails{}, err
	}
	return b, nil
}

// Upsert stores or replaces the payout account for a user. One document
// per user; the unique index on user_id backs this up.
func (s *Store) Upsert(ctx context.Context, b models.BankDetails) (models.BankDetails, error) {
	now := time.Now().UTC()
	b.UpdatedAt = now

	res, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": b.UserID},
		bson.M{
			"$set": bson.M{
				"account_name":   b.AccountName,
				"bank_name":      b.BankName,
				"account_number": b.AccountNumber,
				"sort_code":      b.SortCode,
				"updated_at":     now,
			},
			"$setOnInsert": bson.M{
				"_id":        primitive.NewObjectID(),
				"user_id":    b.UserID,
				"created_at": now,
			},
		},
		options.Update().SetUpsert(true))
	if err != nil {
		return models.BankDetails{}, err
	}
	if res.UpsertedID != nil {
		b.ID = res.UpsertedID.(primitive.ObjectID)
		b.CreatedAt = now
	}
	return b, nil
}
