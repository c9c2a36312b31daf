package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"earnapp/events"
	"earnapp/models"
)

// AdWatchResult reports the account state after an accepted ad watch
type AdWatchResult struct {
	Balance         int64
	DailyAdsWatched int
}

// LedgerService applies the reward transactions: crediting confirmed ad
// watches (with referral fan-out) and debiting withdrawal requests. Each
// operation is one DB transaction over the primary account row; per-user
// serialization comes from row locking.
type LedgerService interface {
	// RecordAdWatch credits one confirmed ad watch, lazily rolling the
	// daily counter over at the configured reset hour. Fails with
	// ErrDailyLimitReached when the quota is exhausted, without mutation.
	RecordAdWatch(ctx context.Context, userID int64) (*AdWatchResult, error)

	// RequestWithdrawal debits amount, stores the payout destination and
	// persists a pending withdrawal request. The operator alert is
	// published after commit and its failure never rolls the debit back.
	RequestWithdrawal(ctx context.Context, userID int64, amount int64, destination string) (*models.Withdrawal, error)

	// PurchasePlan activates the earning plan for the configured number of
	// days, extending from the current expiry if one is still active. The
	// payment itself happens on-chain; this only records the activation.
	PurchasePlan(ctx context.Context, userID int64) (time.Time, error)
}

// ledgerService implements the LedgerService interface
type ledgerService struct {
	uowFactory UnitOfWorkFactory
	policy     RewardPolicy
	gate       WatchGate
	now        func() time.Time
}

// NewLedgerService creates a new reward ledger service. gate may be nil.
func NewLedgerService(uowFactory UnitOfWorkFactory, policy RewardPolicy, gate WatchGate) LedgerService {
	return &ledgerService{
		uowFactory: uowFactory,
		policy:     policy,
		gate:       gate,
		now:        time.Now,
	}
}

func (s *ledgerService) RecordAdWatch(ctx context.Context, userID int64) (*AdWatchResult, error) {
	now := s.now()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	user, err := uow.UserRepository().GetByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		// First contact through the ad path; create the account lazily
		user, err = uow.UserRepository().Create(ctx, userID, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		uow.EventBus().Publish(events.UserCreatedEvent{UserID: userID})
	}

	if s.gate != nil {
		if err := s.gate(user, now); err != nil {
			return nil, err
		}
	}

	// Lazy day rollover: a stale date means the counter belongs to an
	// earlier day and restarts at zero before the limit check.
	adDate := CurrentAdDate(s.policy.DailyResetHour, now)
	adsWatched := user.DailyAdsWatched
	if !sameAdDate(user.LastAdDate, adDate) {
		adsWatched = 0
	}

	if adsWatched >= s.policy.DailyAdLimit {
		return nil, ErrDailyLimitReached
	}

	adsWatched++
	if err := uow.UserRepository().ApplyAdWatch(ctx, userID, adsWatched, adDate, s.policy.RewardPerAd); err != nil {
		return nil, fmt.Errorf("failed to apply ad watch: %w", err)
	}

	newBalance := user.Balance + s.policy.RewardPerAd
	history := &models.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   user.Balance,
		BalanceAfter:    newBalance,
		ChangeAmount:    s.policy.RewardPerAd,
		TransactionType: models.TransactionTypeAdReward,
		TransactionMetadata: map[string]any{
			"daily_ads_watched": adsWatched,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, err
	}

	// Referral fan-out: an independent single-row credit. A missing
	// referrer is skipped silently and never fails the primary update.
	if user.InvitedBy != nil && s.policy.ReferralBonusPerAd > 0 {
		if err := s.creditReferrer(ctx, uow, *user.InvitedBy, userID); err != nil {
			return nil, err
		}
	}

	uow.EventBus().Publish(events.AdWatchedEvent{
		UserID:          userID,
		Reward:          s.policy.RewardPerAd,
		DailyAdsWatched: adsWatched,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &AdWatchResult{
		Balance:         newBalance,
		DailyAdsWatched: adsWatched,
	}, nil
}

func (s *ledgerService) creditReferrer(ctx context.Context, uow UnitOfWork, referrerID, watcherID int64) error {
	bonus := s.policy.ReferralBonusPerAd

	newBalance, err := uow.UserRepository().AddBalance(ctx, referrerID, bonus)
	if err != nil {
		return fmt.Errorf("failed to credit referrer %d: %w", referrerID, err)
	}
	if newBalance == nil {
		log.WithFields(log.Fields{
			"referrer": referrerID,
			"watcher":  watcherID,
		}).Warn("Referrer account missing, skipping bonus")
		return nil
	}

	history := &models.BalanceHistory{
		UserID:          referrerID,
		BalanceBefore:   *newBalance - bonus,
		BalanceAfter:    *newBalance,
		ChangeAmount:    bonus,
		TransactionType: models.TransactionTypeReferralBonus,
		TransactionMetadata: map[string]any{
			"watcher_user_id": watcherID,
		},
	}
	return RecordBalanceChange(ctx, uow, history)
}

func (s *ledgerService) PurchasePlan(ctx context.Context, userID int64) (time.Time, error) {
	now := s.now()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return time.Time{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByIDForUpdate(ctx, userID)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return time.Time{}, ErrUserNotFound
	}

	// A repurchase before expiry extends the running plan
	base := now
	if user.HasActivePlan(now) {
		base = *user.PlanExpiresAt
	}
	expiresAt := base.AddDate(0, 0, s.policy.PlanDurationDays)

	if _, err := uow.UserRepository().SetPlanExpiry(ctx, userID, expiresAt); err != nil {
		return time.Time{}, fmt.Errorf("failed to set plan expiry: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return expiresAt, nil
}

func (s *ledgerService) RequestWithdrawal(ctx context.Context, userID int64, amount int64, destination string) (*models.Withdrawal, error) {
	destination = strings.TrimSpace(destination)
	if amount < s.policy.MinWithdrawal || destination == "" {
		return nil, ErrInvalidWithdrawal
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Balance < amount {
		return nil, ErrInsufficientBalance
	}

	newBalance, err := uow.UserRepository().Withdraw(ctx, userID, amount, destination)
	if err != nil {
		return nil, fmt.Errorf("failed to debit balance: %w", err)
	}
	if newBalance == nil {
		// The statement-level guard disagreed with the locked read; treat
		// it as the business failure it is.
		return nil, ErrInsufficientBalance
	}

	withdrawal := &models.Withdrawal{
		Reference:   uuid.New(),
		UserID:      userID,
		Amount:      amount,
		Destination: destination,
		Status:      models.WithdrawalStatusPending,
	}
	if err := uow.WithdrawalRepository().Create(ctx, withdrawal); err != nil {
		return nil, fmt.Errorf("failed to create withdrawal request: %w", err)
	}

	history := &models.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   user.Balance,
		BalanceAfter:    *newBalance,
		ChangeAmount:    -amount,
		TransactionType: models.TransactionTypeWithdrawal,
		TransactionMetadata: map[string]any{
			"destination": destination,
			"reference":   withdrawal.Reference.String(),
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, err
	}

	// Flushed after commit; the notifier picks it up outside the row lock
	uow.EventBus().Publish(events.WithdrawalRequestedEvent{
		UserID:      userID,
		Amount:      amount,
		Destination: destination,
		Reference:   withdrawal.Reference.String(),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return withdrawal, nil
}
