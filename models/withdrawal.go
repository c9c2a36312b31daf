package models

import (
	"time"

	"github.com/google/uuid"
)

// WithdrawalStatus represents the processing state of a withdrawal request
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusPaid     WithdrawalStatus = "paid"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// Withdrawal represents a payout request deducted from a user's balance.
// The balance deduction and this record are written in the same transaction;
// the operator alert is sent after commit and never rolls the deduction back.
type Withdrawal struct {
	ID          int64            `db:"id"`
	Reference   uuid.UUID        `db:"reference"`
	UserID      int64            `db:"user_id"`
	Amount      int64            `db:"amount"`
	Destination string           `db:"destination"`
	Status      WithdrawalStatus `db:"status"`
	CreatedAt   time.Time        `db:"created_at"`
}
