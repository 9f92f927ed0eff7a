package indexes_test

import (
	"testing"

	"github.com/subpoolhq/subpool/internal/app/system/indexes"
	"github.com/subpoolhq/subpool/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// EnsureAll should succeed on a clean database
	err := indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// First call
	err := indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}

	// Second call should also succeed (idempotent)
	err = indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func listIndexNames(t *testing.T, coll string) map[string]bool {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_CreatesGroupIndexes(t *testing.T) {
	names := listIndexNames(t, "groups")
	for _, want := range []string{
		"uniq_groups_code",
		"idx_groups_next_sub_date",
		"idx_groups_member_invoices",
		"idx_groups_admin",
	} {
		if !names[want] {
			t.Errorf("missing groups index %q (have %v)", want, names)
		}
	}
}

func TestEnsureAll_CreatesPaymentIndexes(t *testing.T) {
	names := listIndexNames(t, "payments")
	for _, want := range []string{
		"uniq_payments_reference",
		"idx_payments_group_status_disbursed",
		"idx_payments_disbursement",
	} {
		if !names[want] {
			t.Errorf("missing payments index %q (have %v)", want, names)
		}
	}
}

func TestEnsureAll_CreatesNotificationJobIndexes(t *testing.T) {
	names := listIndexNames(t, "notification_jobs")
	if !names["idx_jobs_status_runat"] {
		t.Errorf("missing notification_jobs index idx_jobs_status_runat (have %v)", names)
	}
}

func TestEnsureAll_UniqueIndexEnforced(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	coll := db.Collection("payments")
	doc := bson.M{
		"_id":       primitive.NewObjectID(),
		"reference": "dup-ref",
		"status":    "pending",
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	doc["_id"] = primitive.NewObjectID()
	if _, err := coll.InsertOne(ctx, doc); err == nil {
		t.Error("duplicate payment reference should be rejected")
	}
}
