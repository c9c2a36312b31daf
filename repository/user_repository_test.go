package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"earnapp/events"
	"earnapp/models"
	"earnapp/repository/testutil"
)

func TestUserRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.SetupTestDatabase(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		testutil.TruncateTables(t, db)

		user, err := repo.Create(ctx, 100, nil)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, int64(100), user.UserID)
		assert.Equal(t, int64(0), user.Balance)
		assert.Equal(t, 0, user.DailyAdsWatched)
		assert.Nil(t, user.LastAdDate)
		assert.Nil(t, user.InvitedBy)

		got, err := repo.GetByID(ctx, 100)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, user.UserID, got.UserID)
	})

	t.Run("get missing user returns nil", func(t *testing.T) {
		testutil.TruncateTables(t, db)

		got, err := repo.GetByID(ctx, 404)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("create with referrer", func(t *testing.T) {
		testutil.TruncateTables(t, db)

		_, err := repo.Create(ctx, 1, nil)
		require.NoError(t, err)

		referrer := int64(1)
		user, err := repo.Create(ctx, 2, &referrer)
		require.NoError(t, err)
		require.NotNil(t, user.InvitedBy)
		assert.Equal(t, int64(1), *user.InvitedBy)
	})

	t.Run("apply ad watch updates counters and balance", func(t *testing.T) {
		testutil.TruncateTables(t, db)

		_, err := repo.Create(ctx, 100, nil)
		require.NoError(t, err)

		adDate := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
		err = repo.ApplyAdWatch(ctx, 100, 1, adDate, 20)
		require.NoError(t, err)

		user, err := repo.GetByID(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(20), user.Balance)
		assert.Equal(t, 1, user.DailyAdsWatched)
		require.NotNil(t, user.LastAdDate)
		assert.Equal(t, adDate.Format("2006-01-02"), user.LastAdDate.Format("2006-01-02"))
	})

	t.Run("apply ad watch for missing user fails", func(t *testing.T) {
		testutil.TruncateTables(t, db)

		err := repo.ApplyAdWatch(ctx, 404, 1, time.Now().UTC(), 20)
		assert.Error(t, err)
	})

	t.Run("add balance returns new balance", func(t *testing.T) {
		testutil.TruncateTables(t, db)

		_, err := repo.Create(ctx, 100, nil)
		require.NoError(t, err)

		balance, err := repo.AddBalance(ctx, 100, 2)
		require.NoError(t, err)
		require.NotNil(t, balance)
		assert.Equal(t, int64(2), *balance)

		balance, err = repo.AddBalance(ctx, 100, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(4), *balance)
	})

	t.Run("add balance for missing user returns nil", func(t *testing.T) {
		testutil.TruncateTables(t, db)

		balance, err := repo.AddBalance(ctx, 404, 2)
		require.NoError(t, err)
		assert.Nil(t, balance)
	})

	t.Run("withdraw debits and stores destination", func(t *testing.T) {
		testutil.TruncateTables(t, db)

		_, err := repo.Create(ctx, 100, nil)
		require.NoError(t, err)
		_, err = repo.AddBalance(ctx, 100, 2500)
		require.NoError(t, err)

		balance, err := repo.Withdraw(ctx, 100, 2500, "TWalletAddr")
		require.NoError(t, err)
		require.NotNil(t, balance)
		assert.Equal(t, int64(0), *balance)

		user, err := repo.GetByID(ctx, 100)
		require.NoError(t, err)
		require.NotNil(t, user.PayoutDest)
		assert.Equal(t, "TWalletAddr", *user.PayoutDest)
	})

	t.Run("withdraw rejected when balance too low", func(t *testing.T) {
		testutil.TruncateTables(t, db)

		_, err := repo.Create(ctx, 100, nil)
		require.NoError(t, err)
		_, err = repo.AddBalance(ctx, 100, 100)
		require.NoError(t, err)

		balance, err := repo.Withdraw(ctx, 100, 2000, "TWalletAddr")
		require.NoError(t, err)
		assert.Nil(t, balance)

		user, err := repo.GetByID(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(100), user.Balance)
	})

	t.Run("set invited by links at most once", func(t *testing.T) {
		testutil.TruncateTables(t, db)

		_, err := repo.Create(ctx, 1, nil)
		require.NoError(t, err)
		_, err = repo.Create(ctx, 2, nil)
		require.NoError(t, err)
		_, err = repo.Create(ctx, 3, nil)
		require.NoError(t, err)

		linked, err := repo.SetInvitedBy(ctx, 2, 1)
		require.NoError(t, err)
		assert.True(t, linked)

		// Second link attempt must be ignored
		linked, err = repo.SetInvitedBy(ctx, 2, 3)
		require.NoError(t, err)
		assert.False(t, linked)

		user, err := repo.GetByID(ctx, 2)
		require.NoError(t, err)
		require.NotNil(t, user.InvitedBy)
		assert.Equal(t, int64(1), *user.InvitedBy)
	})

	t.Run("set invited by rejects self referral", func(t *testing.T) {
		testutil.TruncateTables(t, db)

		_, err := repo.Create(ctx, 1, nil)
		require.NoError(t, err)

		linked, err := repo.SetInvitedBy(ctx, 1, 1)
		require.NoError(t, err)
		assert.False(t, linked)
	})

	t.Run("set plan expiry", func(t *testing.T) {
		testutil.TruncateTables(t, db)

		_, err := repo.Create(ctx, 100, nil)
		require.NoError(t, err)

		expiry := time.Date(2026, 9, 6, 12, 0, 0, 0, time.UTC)
		updated, err := repo.SetPlanExpiry(ctx, 100, expiry)
		require.NoError(t, err)
		assert.True(t, updated)

		user, err := repo.GetByID(ctx, 100)
		require.NoError(t, err)
		require.NotNil(t, user.PlanExpiresAt)
		assert.True(t, user.PlanExpiresAt.Equal(expiry))
		assert.True(t, user.HasActivePlan(expiry.AddDate(0, 0, -1)))
		assert.False(t, user.HasActivePlan(expiry.AddDate(0, 0, 1)))

		updated, err = repo.SetPlanExpiry(ctx, 404, expiry)
		require.NoError(t, err)
		assert.False(t, updated)
	})

	t.Run("increment invited friends", func(t *testing.T) {
		testutil.TruncateTables(t, db)

		_, err := repo.Create(ctx, 1, nil)
		require.NoError(t, err)

		require.NoError(t, repo.IncrementInvitedFriends(ctx, 1))
		require.NoError(t, repo.IncrementInvitedFriends(ctx, 1))

		user, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, user.InvitedFriends)
	})
}

func TestWithdrawalRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.SetupTestDatabase(t)
	users := NewUserRepository(db)
	repo := NewWithdrawalRepository(db)
	ctx := context.Background()

	t.Run("create and list by user", func(t *testing.T) {
		testutil.TruncateTables(t, db)

		_, err := users.Create(ctx, 100, nil)
		require.NoError(t, err)

		w := testutil.NewWithdrawal(100, 2500, "TWalletAddr")
		require.NoError(t, repo.Create(ctx, w))
		assert.NotZero(t, w.ID)
		assert.False(t, w.CreatedAt.IsZero())

		list, err := repo.GetByUser(ctx, 100, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, w.Reference, list[0].Reference)
		assert.Equal(t, models.WithdrawalStatusPending, list[0].Status)
	})

	t.Run("count by status", func(t *testing.T) {
		testutil.TruncateTables(t, db)

		_, err := users.Create(ctx, 100, nil)
		require.NoError(t, err)

		require.NoError(t, repo.Create(ctx, testutil.NewWithdrawal(100, 2000, "a")))
		require.NoError(t, repo.Create(ctx, testutil.NewWithdrawal(100, 3000, "b")))

		pending, err := repo.CountByStatus(ctx, models.WithdrawalStatusPending)
		require.NoError(t, err)
		assert.Equal(t, int64(2), pending)

		paid, err := repo.CountByStatus(ctx, models.WithdrawalStatusPaid)
		require.NoError(t, err)
		assert.Equal(t, int64(0), paid)
	})
}

func TestBalanceHistoryRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.SetupTestDatabase(t)
	users := NewUserRepository(db)
	repo := NewBalanceHistoryRepository(db)
	ctx := context.Background()

	t.Run("record and get by user", func(t *testing.T) {
		testutil.TruncateTables(t, db)

		_, err := users.Create(ctx, 100, nil)
		require.NoError(t, err)

		entry := &models.BalanceHistory{
			UserID:          100,
			BalanceBefore:   0,
			BalanceAfter:    20,
			ChangeAmount:    20,
			TransactionType: models.TransactionTypeAdReward,
			TransactionMetadata: map[string]any{
				"daily_ads_watched": 1,
			},
		}
		require.NoError(t, repo.Record(ctx, entry))
		assert.NotZero(t, entry.ID)

		entries, err := repo.GetByUser(ctx, 100, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, models.TransactionTypeAdReward, entries[0].TransactionType)
		assert.Equal(t, int64(20), entries[0].ChangeAmount)
		assert.EqualValues(t, 1, entries[0].TransactionMetadata["daily_ads_watched"])
	})

	t.Run("count by type between", func(t *testing.T) {
		testutil.TruncateTables(t, db)

		_, err := users.Create(ctx, 100, nil)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			entry := &models.BalanceHistory{
				UserID:          100,
				BalanceBefore:   int64(i) * 20,
				BalanceAfter:    int64(i+1) * 20,
				ChangeAmount:    20,
				TransactionType: models.TransactionTypeAdReward,
			}
			require.NoError(t, repo.Record(ctx, entry))
		}

		now := time.Now()
		count, err := repo.CountByTypeBetween(ctx, models.TransactionTypeAdReward, now.Add(-time.Hour), now.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)

		// Windows ending before the rows exclude them
		count, err = repo.CountByTypeBetween(ctx, models.TransactionTypeAdReward, now.Add(-2*time.Hour), now.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)

		count, err = repo.CountByTypeBetween(ctx, models.TransactionTypeWithdrawal, now.Add(-time.Hour), now.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})
}

func TestUnitOfWork(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.SetupTestDatabase(t)
	bus := events.NewBus()
	factory := NewUnitOfWorkFactory(db, bus)
	users := NewUserRepository(db)
	ctx := context.Background()

	t.Run("commit persists changes", func(t *testing.T) {
		testutil.TruncateTables(t, db)

		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))

		_, err := uow.UserRepository().Create(ctx, 100, nil)
		require.NoError(t, err)
		require.NoError(t, uow.Commit())

		user, err := users.GetByID(ctx, 100)
		require.NoError(t, err)
		assert.NotNil(t, user)
	})

	t.Run("rollback discards changes", func(t *testing.T) {
		testutil.TruncateTables(t, db)

		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))

		_, err := uow.UserRepository().Create(ctx, 100, nil)
		require.NoError(t, err)
		require.NoError(t, uow.Rollback())

		user, err := users.GetByID(ctx, 100)
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("rollback after commit is a no-op", func(t *testing.T) {
		testutil.TruncateTables(t, db)

		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		require.NoError(t, uow.Commit())
		assert.NoError(t, uow.Rollback())
	})
}
