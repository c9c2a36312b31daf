package service

import (
	"context"
	"time"

	"earnapp/events"
	"earnapp/models"
)

// UserRepository defines the interface for user account data access
type UserRepository interface {
	// GetByID retrieves a user by their Telegram ID, nil if absent
	GetByID(ctx context.Context, userID int64) (*models.User, error)

	// GetByIDForUpdate retrieves a user row locked for the current
	// transaction, nil if absent
	GetByIDForUpdate(ctx context.Context, userID int64) (*models.User, error)

	// Create creates a new account with zeroed counters
	Create(ctx context.Context, userID int64, invitedBy *int64) (*models.User, error)

	// ApplyAdWatch stores the new daily counter and day bucket and credits
	// the ad reward in one statement
	ApplyAdWatch(ctx context.Context, userID int64, adsWatched int, adDate time.Time, reward int64) error

	// AddBalance credits amount and returns the new balance, or nil if the
	// account does not exist
	AddBalance(ctx context.Context, userID int64, amount int64) (*int64, error)

	// Withdraw debits amount and stores the payout destination, guarded by
	// a balance check in the statement itself; returns the new balance or
	// nil if the guard rejected the update
	Withdraw(ctx context.Context, userID int64, amount int64, destination string) (*int64, error)

	// SetPlanExpiry stores the plan expiry timestamp; reports whether the
	// account exists
	SetPlanExpiry(ctx context.Context, userID int64, expiresAt time.Time) (bool, error)

	// SetInvitedBy links the referrer if no link exists yet and the ids
	// differ; reports whether the link was written
	SetInvitedBy(ctx context.Context, userID, referrerID int64) (bool, error)

	// IncrementInvitedFriends bumps the referrer's confirmed-referral count
	IncrementInvitedFriends(ctx context.Context, userID int64) error

	// Count returns the total number of accounts
	Count(ctx context.Context) (int64, error)
}

// WithdrawalRepository defines the interface for withdrawal request storage
type WithdrawalRepository interface {
	// Create persists a withdrawal request
	Create(ctx context.Context, withdrawal *models.Withdrawal) error

	// GetByUser returns the most recent withdrawal requests for a user
	GetByUser(ctx context.Context, userID int64, limit int) ([]*models.Withdrawal, error)

	// CountByStatus returns the number of requests in the given state
	CountByStatus(ctx context.Context, status models.WithdrawalStatus) (int64, error)
}

// BalanceHistoryRepository defines the interface for the balance change trail
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByUser returns balance history for a specific user
	GetByUser(ctx context.Context, userID int64, limit int) ([]*models.BalanceHistory, error)

	// CountByTypeBetween counts entries of one transaction type created in
	// the half-open window [from, to)
	CountByTypeBetween(ctx context.Context, txType models.TransactionType, from, to time.Time) (int64, error)
}

// EventPublisher stashes events for emission after the transaction commits
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork represents one ledger transaction: repositories bound to a
// single DB transaction plus a transactional event bus
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() UserRepository
	WithdrawalRepository() WithdrawalRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
