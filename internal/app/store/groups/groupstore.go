// internal/app/store/groups/groupstore.go
package groupstore

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

var (
	ErrDuplicateGroupCode = errors.New("a group with this code already exists")

	// ErrVersionConflict means the document changed between read and
	// write (another run touched the group). Callers skip the item and
	// pick it up again on the next cycle.
	ErrVersionConflict = errors.New("group was modified concurrently")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

func (s *Store) Create(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC()
	g.ID = primitive.NewObjectID()
	g.Version = 1
	g.CreatedAt = now
	g.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, g)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Group{}, ErrDuplicateGroupCode
		}
		return models.Group{}, err
	}
	return g, nil
}

// FindDueForBilling returns groups whose next subscription date has
// arrived. Groups that were never activated carry a zero date and are
// excluded.
func (s *Store) FindDueForBilling(ctx context.Context, now time.Time) ([]models.Group, error) {
	filter := bson.M{
		"next_subscription_date": bson.M{"$gt": time.Time{}, "$lte": now},
		"members.0":              bson.M{"$exists": true},
	}
	return s.find(ctx, filter)
}

// FindWithLapsedMembers returns groups holding at least one member whose
// invoice was sent at or before cutoff and is still unpaid.
func (s *Store) FindWithLapsedMembers(ctx context.Context, cutoff time.Time) ([]models.Group, error) {
	filter := bson.M{
		"members": bson.M{"$elemMatch": bson.M{
			"payment_active":       true,
			"last_invoice_sent_at": bson.M{"$lte": cutoff},
		}},
	}
	return s.find(ctx, filter)
}

// FindReminderWindow returns groups holding at least one unpaid member
// whose invoice was sent inside [from, to].
func (s *Store) FindReminderWindow(ctx context.Context, from, to time.Time) ([]models.Group, error) {
	filter := bson.M{
		"members": bson.M{"$elemMatch": bson.M{
			"payment_active":       true,
			"last_invoice_sent_at": bson.M{"$gte": from, "$lte": to},
		}},
	}
	return s.find(ctx, filter)
}

// FindDisbursable returns activated groups with at least one confirmed
// member. Whether the group has payments worth disbursing is decided by
// the caller against the payments collection.
func (s *Store) FindDisbursable(ctx context.Context) ([]models.Group, error) {
	filter := bson.M{
		"activated": true,
		"members":   bson.M{"$elemMatch": bson.M{"confirm_status": true}},
	}
	return s.find(ctx, filter)
}

// MarkActivated flips the activated flag. Safe to call on an already
// activated group.
func (s *Store) MarkActivated(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"activated":  true,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// AdvanceNextSubscription moves the billing date forward from the value
// the caller read, guarded by the version it read.
func (s *Store) AdvanceNextSubscription(ctx context.Context, id primitive.ObjectID, version int64, next time.Time) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "version": version},
		bson.M{
			"$set": bson.M{"next_subscription_date": next, "updated_at": time.Now().UTC()},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrVersionConflict
	}
	return nil
}

// RemoveMembers pulls the given users out of the embedded member list,
// guarded by the version the caller read.
func (s *Store) RemoveMembers(ctx context.Context, id primitive.ObjectID, version int64, userIDs []primitive.ObjectID) error {
	if len(userIDs) == 0 {
		return nil
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "version": version},
		bson.M{
			"$pull": bson.M{"members": bson.M{"user_id": bson.M{"$in": userIDs}}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
			"$inc":  bson.M{"version": 1},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrVersionConflict
	}
	return nil
}

// SetMemberInvoiceSent marks one member as invoiced: payment becomes
// outstanding and the send time is stamped. Positional update; no
// version guard because the write touches a single member entry.
func (s *Store) SetMemberInvoiceSent(ctx context.Context, groupID, userID primitive.ObjectID, at time.Time) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": groupID, "members.user_id": userID},
		bson.M{"$set": bson.M{
			"members.$.payment_active":       true,
			"members.$.last_invoice_sent_at": at,
			"updated_at":                     time.Now().UTC(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ClearMemberPayment marks one member's invoice as settled.
func (s *Store) ClearMemberPayment(ctx context.Context, groupID, userID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": groupID, "members.user_id": userID},
		bson.M{"$set": bson.M{
			"members.$.payment_active":      false,
			"members.$.subscription_status": models.MemberActive,
			"updated_at":                    time.Now().UTC(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Group, error) {
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Group
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
