package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"earnapp/database"
	"earnapp/models"
	"earnapp/service"
)

type userRepository struct {
	q queryable
}

// NewUserRepository creates a repository that runs against the pool
func NewUserRepository(db *database.DB) service.UserRepository {
	return &userRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a repository bound to a transaction
func newUserRepositoryWithTx(tx pgx.Tx) service.UserRepository {
	return &userRepository{q: tx}
}

const userColumns = `user_id, balance, daily_ads_watched, last_ad_date, invited_friends,
		invited_by, payout_destination, plan_expires_at, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.UserID,
		&user.Balance,
		&user.DailyAdsWatched,
		&user.LastAdDate,
		&user.InvitedFriends,
		&user.InvitedBy,
		&user.PayoutDest,
		&user.PlanExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	return scanUser(r.q.QueryRow(ctx, query, userID))
}

func (r *userRepository) GetByIDForUpdate(ctx context.Context, userID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1 FOR UPDATE`
	return scanUser(r.q.QueryRow(ctx, query, userID))
}

func (r *userRepository) Create(ctx context.Context, userID int64, invitedBy *int64) (*models.User, error) {
	query := `
		INSERT INTO users (user_id, invited_by)
		VALUES ($1, $2)
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, userID, invitedBy))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (r *userRepository) ApplyAdWatch(ctx context.Context, userID int64, adsWatched int, adDate time.Time, reward int64) error {
	query := `
		UPDATE users
		SET daily_ads_watched = $2, last_ad_date = $3, balance = balance + $4, updated_at = NOW()
		WHERE user_id = $1`

	tag, err := r.q.Exec(ctx, query, userID, adsWatched, adDate, reward)
	if err != nil {
		return fmt.Errorf("failed to apply ad watch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d not found", userID)
	}
	return nil
}

func (r *userRepository) AddBalance(ctx context.Context, userID int64, amount int64) (*int64, error) {
	query := `
		UPDATE users
		SET balance = balance + $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING balance`

	var balance int64
	err := r.q.QueryRow(ctx, query, userID, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to add balance: %w", err)
	}
	return &balance, nil
}

func (r *userRepository) Withdraw(ctx context.Context, userID int64, amount int64, destination string) (*int64, error) {
	// The balance guard in the WHERE clause makes the debit safe even if
	// a concurrent writer slipped past the row lock
	query := `
		UPDATE users
		SET balance = balance - $2, payout_destination = $3, updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2
		RETURNING balance`

	var balance int64
	err := r.q.QueryRow(ctx, query, userID, amount, destination).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to withdraw: %w", err)
	}
	return &balance, nil
}

func (r *userRepository) SetPlanExpiry(ctx context.Context, userID int64, expiresAt time.Time) (bool, error) {
	query := `
		UPDATE users
		SET plan_expires_at = $2, updated_at = NOW()
		WHERE user_id = $1`

	tag, err := r.q.Exec(ctx, query, userID, expiresAt)
	if err != nil {
		return false, fmt.Errorf("failed to set plan expiry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *userRepository) SetInvitedBy(ctx context.Context, userID, referrerID int64) (bool, error) {
	query := `
		UPDATE users
		SET invited_by = $2, updated_at = NOW()
		WHERE user_id = $1 AND invited_by IS NULL AND user_id <> $2`

	tag, err := r.q.Exec(ctx, query, userID, referrerID)
	if err != nil {
		return false, fmt.Errorf("failed to set referrer: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *userRepository) IncrementInvitedFriends(ctx context.Context, userID int64) error {
	query := `
		UPDATE users
		SET invited_friends = invited_friends + 1, updated_at = NOW()
		WHERE user_id = $1`

	if _, err := r.q.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to increment invited friends: %w", err)
	}
	return nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
