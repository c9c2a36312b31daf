package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"earnapp/database"
	"earnapp/models"
	"earnapp/service"
)

type balanceHistoryRepository struct {
	q queryable
}

// NewBalanceHistoryRepository creates a repository that runs against the pool
func NewBalanceHistoryRepository(db *database.DB) service.BalanceHistoryRepository {
	return &balanceHistoryRepository{q: db.Pool}
}

func newBalanceHistoryRepositoryWithTx(tx pgx.Tx) service.BalanceHistoryRepository {
	return &balanceHistoryRepository{q: tx}
}

func (r *balanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	metadata, err := json.Marshal(history.TransactionMetadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO balance_history (user_id, balance_before, balance_after, change_amount,
			transaction_type, transaction_metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err = r.q.QueryRow(ctx, query,
		history.UserID,
		history.BalanceBefore,
		history.BalanceAfter,
		history.ChangeAmount,
		history.TransactionType,
		metadata,
	).Scan(&history.ID, &history.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}
	return nil
}

func (r *balanceHistoryRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.BalanceHistory, error) {
	query := `
		SELECT id, user_id, balance_before, balance_after, change_amount,
			transaction_type, transaction_metadata, created_at
		FROM balance_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance history: %w", err)
	}
	defer rows.Close()

	var entries []*models.BalanceHistory
	for rows.Next() {
		var entry models.BalanceHistory
		var metadata []byte
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.BalanceBefore,
			&entry.BalanceAfter,
			&entry.ChangeAmount,
			&entry.TransactionType,
			&metadata,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance history: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.TransactionMetadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
			}
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance history: %w", err)
	}
	return entries, nil
}

func (r *balanceHistoryRepository) CountByTypeBetween(ctx context.Context, txType models.TransactionType, from, to time.Time) (int64, error) {
	query := `
		SELECT COUNT(*) FROM balance_history
		WHERE transaction_type = $1 AND created_at >= $2 AND created_at < $3`

	var count int64
	if err := r.q.QueryRow(ctx, query, txType, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count balance history: %w", err)
	}
	return count, nil
}
