// internal/app/notify/notify.go

// Package notify defines the notification events the billing pipeline
// produces and the queue handlers that deliver them. Producers enqueue
// an event name plus a small id-based payload; handlers load fresh
// documents at delivery time so a retried job never sends stale data.
package notify

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event names. One registered handler per event.
const (
	EventInvoice            = "invoice.send"
	EventMemberRemoved      = "member.removed"
	EventAdminMemberRemoved = "member.removed.admin"
	EventReminder           = "payment.reminder"
	EventAdminReminder      = "payment.reminder.admin"
	EventBankMissing        = "disbursement.bank-missing"
	EventPayout             = "disbursement.completed"
)

// MemberPayload addresses one member of one group. Used by the invoice,
// removal, and reminder events (the admin variants load the admin from
// the group document).
type MemberPayload struct {
	GroupID primitive.ObjectID `bson:"group_id"`
	UserID  primitive.ObjectID `bson:"user_id"`
}

// PayoutPayload carries the aggregate of one disbursement attempt. The
// amount is captured at enqueue time because the underlying payments
// move on after settlement.
type PayoutPayload struct {
	GroupID        primitive.ObjectID `bson:"group_id"`
	Amount         int64              `bson:"amount"` // minor units
	Currency       string             `bson:"currency"`
	DisbursementID string             `bson:"disbursement_id,omitempty"`
}
