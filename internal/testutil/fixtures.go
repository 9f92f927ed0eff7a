// internal/testutil/fixtures.go
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/subpoolhq/subpool/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a test user and returns it with its generated ID.
func (f *Fixtures) CreateUser(ctx context.Context, name string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:        primitive.NewObjectID(),
		FullName:  name,
		Email:     fmt.Sprintf("%s@test.local", primitive.NewObjectID().Hex()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("insert test user: %v", err)
	}
	return u
}

// CreateGroup inserts a group whose admin is the first of the given
// member IDs. The group is activated with a subscription date in the
// past, so it is immediately due for billing.
func (f *Fixtures) CreateGroup(ctx context.Context, memberIDs ...primitive.ObjectID) models.Group {
	f.t.Helper()

	if len(memberIDs) == 0 {
		f.t.Fatal("CreateGroup needs at least the admin's user ID")
	}
	now := time.Now().UTC()
	members := make([]models.Member, len(memberIDs))
	for i, id := range memberIDs {
		members[i] = models.Member{
			UserID:             id,
			SubscriptionStatus: models.MemberInactive,
			ConfirmStatus:      true,
		}
	}
	g := models.Group{
		ID:                   primitive.NewObjectID(),
		AdminID:              memberIDs[0],
		GroupName:            "Test Pool",
		NumberOfMembers:      len(memberIDs),
		SubscriptionCost:     440000,
		HandlingFee:          5000,
		GroupCode:            primitive.NewObjectID().Hex()[:8],
		Members:              members,
		Activated:            true,
		NextSubscriptionDate: now.Add(-time.Hour),
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("insert test group: %v", err)
	}
	return g
}

// CreatePayment inserts a payment in the given lifecycle state.
func (f *Fixtures) CreatePayment(ctx context.Context, groupID, userID primitive.ObjectID, status, disbursed string) models.Payment {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Payment{
		ID:        primitive.NewObjectID(),
		Reference: primitive.NewObjectID().Hex(),
		UserID:    userID,
		GroupID:   groupID,
		Amount:    115000,
		Fee:       5000,
		Currency:  "NGN",
		Status:    status,
		Disbursed: disbursed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("payments").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("insert test payment: %v", err)
	}
	return p
}

// CreateBankDetails inserts a payout account for the given user.
func (f *Fixtures) CreateBankDetails(ctx context.Context, userID primitive.ObjectID) models.BankDetails {
	f.t.Helper()

	now := time.Now().UTC()
	b := models.BankDetails{
		ID:            primitive.NewObjectID(),
		UserID:        userID,
		AccountName:   "Test Account",
		BankName:      "Access Bank",
		AccountNumber: "0690000040",
		SortCode:      "044",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := f.db.Collection("bank_details").InsertOne(ctx, b); err != nil {
		f.t.Fatalf("insert test bank details: %v", err)
	}
	return b
}
