package testutil

import (
	"github.com/google/uuid"

	"earnapp/models"
)

// NewWithdrawal builds a pending withdrawal request for tests
func NewWithdrawal(userID, amount int64, destination string) *models.Withdrawal {
	return &models.Withdrawal{
		Reference:   uuid.New(),
		UserID:      userID,
		Amount:      amount,
		Destination: destination,
		Status:      models.WithdrawalStatusPending,
	}
}
