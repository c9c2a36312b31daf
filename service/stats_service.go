package service

import (
	"context"
	"fmt"
	"time"

	"earnapp/models"
)

// DailyStats aggregates ledger activity for the operator summary.
// AdsWatched covers the finished reset period [PeriodStart, PeriodEnd).
type DailyStats struct {
	TotalUsers         int64
	AdsWatched         int64
	PendingWithdrawals int64
	PeriodStart        time.Time
	PeriodEnd          time.Time
}

// StatsService produces operator-facing aggregates
type StatsService interface {
	GetDailyStats(ctx context.Context) (*DailyStats, error)
}

type statsService struct {
	uowFactory UnitOfWorkFactory
	resetHour  int
	now        func() time.Time
}

// NewStatsService creates a new stats service
func NewStatsService(uowFactory UnitOfWorkFactory, resetHour int) StatsService {
	return &statsService{
		uowFactory: uowFactory,
		resetHour:  resetHour,
		now:        time.Now,
	}
}

func (s *statsService) GetDailyStats(ctx context.Context) (*DailyStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// The summary runs just after the reset, so the finished day is the
	// period ending at the current period start
	periodEnd := GetCurrentPeriodStart(s.resetHour, s.now())
	periodStart := periodEnd.AddDate(0, 0, -1)

	totalUsers, err := uow.UserRepository().Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	adsWatched, err := uow.BalanceHistoryRepository().CountByTypeBetween(ctx, models.TransactionTypeAdReward, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to count ad rewards: %w", err)
	}

	pending, err := uow.WithdrawalRepository().CountByStatus(ctx, models.WithdrawalStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending withdrawals: %w", err)
	}

	return &DailyStats{
		TotalUsers:         totalUsers,
		AdsWatched:         adsWatched,
		PendingWithdrawals: pending,
		PeriodStart:        periodStart,
		PeriodEnd:          periodEnd,
	}, nil
}
