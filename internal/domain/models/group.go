// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Subscription status values for an embedded Member.
const (
	MemberInactive = "inactive"
	MemberActive   = "active"
)

// Group is a pool of users sharing one paid subscription.
//
// NOTE:
//   - Members are embedded on the group document (ordered list); the
//     admin is always the first member.
//   - NextSubscriptionDate is only meaningful once Activated is true.
//   - Version guards concurrent mutation by overlapping batch runs:
//     writers filter on the version they read and bump it on success.
type Group struct {
	ID              primitive.ObjectID `bson:"_id" json:"id"`
	AdminID         primitive.ObjectID `bson:"admin_id" json:"admin_id"`
	GroupName       string             `bson:"group_name" json:"group_name"`
	NumberOfMembers int                `bson:"number_of_members" json:"number_of_members"` // 2..6
	SubscriptionCost int64             `bson:"subscription_cost" json:"subscription_cost"` // minor units
	HandlingFee     int64              `bson:"handling_fee" json:"handling_fee"`           // minor units
	GroupCode       string             `bson:"group_code" json:"group_code"` // globally unique
	Members         []Member           `bson:"members" json:"members"`

	Activated            bool      `bson:"activated" json:"activated"`
	NextSubscriptionDate time.Time `bson:"next_subscription_date" json:"next_subscription_date"`

	Version   int64     `bson:"version" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Member is a group member embedded on the Group document.
// PaymentActive is true from the moment an invoice is sent until the
// member's payment succeeds.
type Member struct {
	UserID             primitive.ObjectID `bson:"user_id" json:"user_id"`
	SubscriptionStatus string             `bson:"subscription_status" json:"subscription_status"` // inactive | active
	ConfirmStatus      bool               `bson:"confirm_status" json:"confirm_status"`
	PaymentActive      bool               `bson:"payment_active" json:"payment_active"`
	LastInvoiceSentAt  *time.Time         `bson:"last_invoice_sent_at" json:"last_invoice_sent_at"`
}

// AdminMember returns the admin's embedded member entry, if present.
func (g *Group) AdminMember() (Member, bool) {
	for _, m := range g.Members {
		if m.UserID == g.AdminID {
			return m, true
		}
	}
	return Member{}, false
}
