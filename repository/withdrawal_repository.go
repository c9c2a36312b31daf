package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"earnapp/database"
	"earnapp/models"
	"earnapp/service"
)

type withdrawalRepository struct {
	q queryable
}

// NewWithdrawalRepository creates a repository that runs against the pool
func NewWithdrawalRepository(db *database.DB) service.WithdrawalRepository {
	return &withdrawalRepository{q: db.Pool}
}

func newWithdrawalRepositoryWithTx(tx pgx.Tx) service.WithdrawalRepository {
	return &withdrawalRepository{q: tx}
}

func (r *withdrawalRepository) Create(ctx context.Context, withdrawal *models.Withdrawal) error {
	query := `
		INSERT INTO withdrawals (reference, user_id, amount, destination, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query,
		withdrawal.Reference,
		withdrawal.UserID,
		withdrawal.Amount,
		withdrawal.Destination,
		withdrawal.Status,
	).Scan(&withdrawal.ID, &withdrawal.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal: %w", err)
	}
	return nil
}

func (r *withdrawalRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.Withdrawal, error) {
	query := `
		SELECT id, reference, user_id, amount, destination, status, created_at
		FROM withdrawals
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawals: %w", err)
	}
	defer rows.Close()

	var withdrawals []*models.Withdrawal
	for rows.Next() {
		var w models.Withdrawal
		err := rows.Scan(&w.ID, &w.Reference, &w.UserID, &w.Amount, &w.Destination, &w.Status, &w.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate withdrawals: %w", err)
	}
	return withdrawals, nil
}

func (r *withdrawalRepository) CountByStatus(ctx context.Context, status models.WithdrawalStatus) (int64, error) {
	var count int64
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM withdrawals WHERE status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count withdrawals: %w", err)
	}
	return count, nil
}
