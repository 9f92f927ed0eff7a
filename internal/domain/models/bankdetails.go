// internal/domain/models/bankdetails.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BankDetails holds the payout account for a group admin.
// Exactly one document per user (unique index on user_id); required
// before any disbursement can be attempted for that admin's groups.
type BankDetails struct {
	ID            primitive.ObjectID `bson:"_id" json:"id"`
	UserID        primitive.ObjectID `bson:"user_id" json:"user_id"`
	AccountName   string             `bson:"account_name" json:"account_name"`
	BankName      string             `bson:"bank_name" json:"bank_name"`
	AccountNumber string             `bson:"account_number" json:"account_number"`
	SortCode      string             `bson:"sort_code" json:"sort_code"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
