package models

import (
	"time"
)

// User represents a Telegram user account in the reward ledger.
// Balances are stored as whole points (the smallest reward unit).
type User struct {
	UserID          int64      `db:"user_id"`
	Balance         int64      `db:"balance"`
	DailyAdsWatched int        `db:"daily_ads_watched"`
	LastAdDate      *time.Time `db:"last_ad_date"` // date-only, nil until the first counted ad
	InvitedFriends  int        `db:"invited_friends"`
	InvitedBy       *int64     `db:"invited_by"` // set at most once, never the user's own id
	PayoutDest      *string    `db:"payout_destination"`
	PlanExpiresAt   *time.Time `db:"plan_expires_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// HasActivePlan reports whether the user holds a non-expired earning plan.
func (u *User) HasActivePlan(now time.Time) bool {
	return u.PlanExpiresAt != nil && u.PlanExpiresAt.After(now)
}
