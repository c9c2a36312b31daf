package service

import "errors"

// Business-rule failures reported synchronously to callers. Adapters map
// these to user-facing responses; anything else is an infrastructure
// failure and surfaces as a server error.
var (
	// ErrDailyLimitReached means the user's ad-watch quota for the current
	// day is exhausted
	ErrDailyLimitReached = errors.New("daily ad limit reached")

	// ErrInvalidWithdrawal means the withdrawal request was malformed
	// (amount below the minimum or empty destination)
	ErrInvalidWithdrawal = errors.New("invalid withdrawal request")

	// ErrInsufficientBalance means the withdrawal exceeds the user's balance
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUserNotFound means the account does not exist and the operation
	// does not create one
	ErrUserNotFound = errors.New("user not found")

	// ErrWatchGateClosed means a configured gate (e.g. an active-plan
	// requirement) rejected the ad watch before the limit check
	ErrWatchGateClosed = errors.New("ad watching is not available for this account")
)
