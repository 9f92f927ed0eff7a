package paymentstore_test

import (
	"errors"
	"testing"

	paymentstore "github.com/subpoolhq/subpool/internal/app/store/payments"
	"github.com/subpoolhq/subpool/internal/domain/models"
	"github.com/subpoolhq/subpool/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestCreate_DuplicateReference(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := paymentstore.New(db)
	fx := testutil.NewFixtures(t, db)

	p := fx.CreatePayment(ctx, primitive.NewObjectID(), primitive.NewObjectID(),
		models.PaymentPending, models.DisburseNone)

	dup := p
	dup.ID = primitive.NewObjectID()
	if _, err := store.Create(ctx, dup); !errors.Is(err, paymentstore.ErrDuplicateReference) {
		t.Errorf("duplicate reference: got %v, want ErrDuplicateReference", err)
	}
}

func TestMarkSuccessful_ForwardOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := paymentstore.New(db)
	fx := testutil.NewFixtures(t, db)

	p := fx.CreatePayment(ctx, primitive.NewObjectID(), primitive.NewObjectID(),
		models.PaymentPending, models.DisburseNone)

	if err := store.MarkSuccessful(ctx, p.Reference); err != nil {
		t.Fatalf("MarkSuccessful: %v", err)
	}
	got, err := store.GetByReference(ctx, p.Reference)
	if err != nil {
		t.Fatalf("GetByReference: %v", err)
	}
	if got.Status != models.PaymentSuccessful {
		t.Errorf("status: got %q, want successful", got.Status)
	}

	// A second settle finds nothing pending.
	if err := store.MarkSuccessful(ctx, p.Reference); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("second settle: got %v, want ErrNoDocuments", err)
	}
}

func TestMarkDisbursePending_GuardsAgainstDoubleBatching(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := paymentstore.New(db)
	fx := testutil.NewFixtures(t, db)

	p := fx.CreatePayment(ctx, primitive.NewObjectID(), primitive.NewObjectID(),
		models.PaymentSuccessful, models.DisburseNone)

	if err := store.MarkDisbursePending(ctx, p.ID, "tr-1"); err != nil {
		t.Fatalf("first stamp: %v", err)
	}
	if err := store.MarkDisbursePending(ctx, p.ID, "tr-2"); err == nil {
		t.Error("a payment already in a batch must not be stamped again")
	}

	got, _ := store.GetByReference(ctx, p.Reference)
	if got.DisbursementID != "tr-1" {
		t.Errorf("disbursement id: got %q, want tr-1", got.DisbursementID)
	}
}

func TestSettleAndRevertDisbursement(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := paymentstore.New(db)
	fx := testutil.NewFixtures(t, db)

	groupID := primitive.NewObjectID()
	p1 := fx.CreatePayment(ctx, groupID, primitive.NewObjectID(), models.PaymentSuccessful, models.DisburseNone)
	p2 := fx.CreatePayment(ctx, groupID, primitive.NewObjectID(), models.PaymentSuccessful, models.DisburseNone)
	other := fx.CreatePayment(ctx, groupID, primitive.NewObjectID(), models.PaymentSuccessful, models.DisburseNone)

	for _, p := range []models.Payment{p1, p2} {
		if err := store.MarkDisbursePending(ctx, p.ID, "tr-settle"); err != nil {
			t.Fatalf("stamp %s: %v", p.ID.Hex(), err)
		}
	}
	if err := store.MarkDisbursePending(ctx, other.ID, "tr-other"); err != nil {
		t.Fatalf("stamp other: %v", err)
	}

	n, err := store.SettleDisbursement(ctx, "tr-settle")
	if err != nil {
		t.Fatalf("SettleDisbursement: %v", err)
	}
	if n != 2 {
		t.Errorf("settled: got %d, want 2", n)
	}
	got, _ := store.GetByReference(ctx, other.Reference)
	if got.Disbursed != models.DisbursePending {
		t.Errorf("other batch touched: got %q, want pending", got.Disbursed)
	}

	n, err = store.RevertDisbursement(ctx, "tr-other")
	if err != nil {
		t.Fatalf("RevertDisbursement: %v", err)
	}
	if n != 1 {
		t.Errorf("reverted: got %d, want 1", n)
	}
	got, _ = store.GetByReference(ctx, other.Reference)
	if got.Disbursed != models.DisburseNone {
		t.Errorf("reverted state: got %q, want not-disbursed", got.Disbursed)
	}
	if got.DisbursementID != "" {
		t.Errorf("reverted id: got %q, want empty (payment rejoins the pool)", got.DisbursementID)
	}
}

func TestFindSuccessfulUndisbursed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := paymentstore.New(db)
	fx := testutil.NewFixtures(t, db)

	groupID := primitive.NewObjectID()
	want := fx.CreatePayment(ctx, groupID, primitive.NewObjectID(), models.PaymentSuccessful, models.DisburseNone)
	fx.CreatePayment(ctx, groupID, primitive.NewObjectID(), models.PaymentPending, models.DisburseNone)
	fx.CreatePayment(ctx, groupID, primitive.NewObjectID(), models.PaymentSuccessful, models.DisburseSuccessful)
	fx.CreatePayment(ctx, primitive.NewObjectID(), primitive.NewObjectID(), models.PaymentSuccessful, models.DisburseNone)

	got, err := store.FindSuccessfulUndisbursed(ctx, groupID)
	if err != nil {
		t.Fatalf("FindSuccessfulUndisbursed: %v", err)
	}
	if len(got) != 1 || got[0].ID != want.ID {
		t.Errorf("pool: got %d payments, want just %s", len(got), want.ID.Hex())
	}
}
