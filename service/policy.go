package service

import (
	"time"

	"earnapp/config"
	"earnapp/models"
)

// RewardPolicy captures the reward schedule for a deployment. The observed
// variants (flat rate, tiered zones, plan-gated access) differ only in
// these numbers plus an optional gate, so the one ledger covers them all.
type RewardPolicy struct {
	RewardPerAd        int64
	ReferralBonusPerAd int64
	DailyAdLimit       int
	MinWithdrawal      int64
	DailyResetHour     int
	PlanDurationDays   int
}

// PolicyFromConfig builds the reward policy from application configuration.
func PolicyFromConfig(cfg *config.Config) RewardPolicy {
	return RewardPolicy{
		RewardPerAd:        cfg.RewardPerAd,
		ReferralBonusPerAd: cfg.ReferralBonusPerAd,
		DailyAdLimit:       cfg.DailyAdLimit,
		MinWithdrawal:      cfg.MinWithdrawal,
		DailyResetHour:     cfg.DailyResetHour,
		PlanDurationDays:   cfg.PlanDurationDays,
	}
}

// WatchGate is an optional precondition evaluated before the daily limit
// check. A nil gate admits everyone. Gates are product policy, not ledger
// logic, so they are injected rather than baked in.
type WatchGate func(user *models.User, now time.Time) error

// PlanGate requires a non-expired earning plan for ad watches.
func PlanGate(user *models.User, now time.Time) error {
	if !user.HasActivePlan(now) {
		return ErrWatchGateClosed
	}
	return nil
}
