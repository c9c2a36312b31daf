package api

// UserResponse is the account state shown to the mini app
type UserResponse struct {
	UserID          int64 `json:"user_id"`
	Balance         int64 `json:"balance"`
	DailyAdsWatched int   `json:"daily_ads_watched"`
	AdsRemaining    int   `json:"ads_remaining"`
	InvitedFriends  int   `json:"invited_friends"`
	MinWithdrawal   int64 `json:"min_withdrawal"`
}

// WatchAdResponse reports the outcome of an ad-watch credit attempt
type WatchAdResponse struct {
	Success         bool   `json:"success"`
	Balance         int64  `json:"balance,omitempty"`
	DailyAdsWatched int    `json:"daily_ads_watched,omitempty"`
	AdsRemaining    int    `json:"ads_remaining"`
	Error           string `json:"error,omitempty"`
}

// WithdrawRequest is the payout request body
type WithdrawRequest struct {
	Amount      int64  `json:"amount"`
	Destination string `json:"destination"`
}

// WithdrawResponse reports the outcome of a withdrawal request
type WithdrawResponse struct {
	Success   bool   `json:"success"`
	Balance   int64  `json:"balance,omitempty"`
	Reference string `json:"reference,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PlanResponse reports the outcome of a plan purchase
type PlanResponse struct {
	Success       bool   `json:"success"`
	PlanExpiresAt string `json:"plan_expires_at,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ErrorResponse is the generic error payload
type ErrorResponse struct {
	Error string `json:"error"`
}
