// internal/domain/models/payment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment.Status values. Forward-only: pending -> successful | failed.
const (
	PaymentPending    = "pending"
	PaymentSuccessful = "successful"
	PaymentFailed     = "failed"
)

// Payment.Disbursed values. Forward-only except the retry edge:
// not-disbursed -> pending -> successful, and pending -> not-disbursed
// when the gateway reports a terminal transfer failure (the payment
// re-enters the payout pool on the next cycle).
const (
	DisburseNone       = "not-disbursed"
	DisbursePending    = "pending"
	DisburseSuccessful = "successful"
	DisburseFailed     = "failed"
)

// Payment records one member's subscription share for one billing cycle.
//
// Reference is the gateway transaction key and carries a unique index.
// DisbursementID is empty until a transfer is requested, is set exactly
// once, and is shared by every payment settled in that transfer batch.
type Payment struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Reference string             `bson:"reference" json:"reference"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	GroupID   primitive.ObjectID `bson:"group_id" json:"group_id"`

	Amount   int64  `bson:"amount" json:"amount"` // minor units
	Fee      int64  `bson:"fee" json:"fee"`       // minor units
	Currency string `bson:"currency" json:"currency"`

	Status         string `bson:"status" json:"status"`
	Disbursed      string `bson:"disbursed" json:"disbursed"`
	DisbursementID string `bson:"disbursement_id" json:"disbursement_id"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Net is the amount owed to the group admin after the handling fee.
func (p Payment) Net() int64 { return p.Amount - p.Fee }
