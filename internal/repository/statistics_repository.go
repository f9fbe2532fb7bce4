package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"brokerdesk/internal/domain"
)

// StatisticsRepositoryImpl aggregates dashboard figures from PostgreSQL
type StatisticsRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewStatisticsRepository creates a new StatisticsRepository
func NewStatisticsRepository(db *pgxpool.Pool) domain.StatisticsRepository {
	return &StatisticsRepositoryImpl{db: db}
}

// Statistics returns user and transaction counts plus completed volumes
func (r *StatisticsRepositoryImpl) Statistics(ctx context.Context) (*domain.Statistics, error) {
	stats := &domain.Statistics{
		UsersByStatus:       make(map[string]int),
		TransactionsByState: make(map[string]int),
	}

	rows, err := r.db.Query(ctx, `
		SELECT account_status, COUNT(*)
		FROM users
		WHERE role = 'user'
		GROUP BY account_status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan user count: %w", err)
		}
		stats.UsersByStatus[status] = count
		stats.TotalUsers += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user counts: %w", err)
	}

	rows, err = r.db.Query(ctx, `SELECT status, COUNT(*) FROM transactions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan transaction count: %w", err)
		}
		stats.TransactionsByState[status] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction counts: %w", err)
	}

	var deposits, withdrawals decimal.Decimal
	err = r.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'Deposit' AND status = 'Completed'), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'Withdrawal' AND status = 'Completed'), 0),
			COUNT(*) FILTER (WHERE type = 'Deposit' AND status = 'Pending'),
			COUNT(*) FILTER (WHERE type = 'Withdrawal' AND status = 'Pending')
		FROM transactions
	`).Scan(&deposits, &withdrawals, &stats.PendingDeposits, &stats.PendingWithdrawals)
	if err != nil {
		return nil, fmt.Errorf("failed to sum transactions: %w", err)
	}
	stats.TotalDeposits = deposits.String()
	stats.TotalWithdrawals = withdrawals.String()

	return stats, nil
}
