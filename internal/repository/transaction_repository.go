package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"brokerdesk/internal/domain"
)

const transactionColumns = `
	id, transaction_id, user_id, type, method, amount, currency, status,
	description, admin_notes, created_at, updated_at`

// foreignKeyViolation is the Postgres SQLSTATE for foreign_key_violation
const foreignKeyViolation = "23503"

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	tx := &domain.Transaction{}
	var txType, status string
	err := row.Scan(
		&tx.ID,
		&tx.TransactionID,
		&tx.UserID,
		&txType,
		&tx.Method,
		&tx.Amount,
		&tx.Currency,
		&status,
		&tx.Description,
		&tx.AdminNotes,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	tx.Type = domain.TransactionType(txType)
	tx.Status = domain.TransactionStatus(status)
	return tx, nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertTransaction(ctx context.Context, q querier, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, transaction_id, user_id, type, method, amount, currency,
			status, description, admin_notes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11
		)
	`

	_, err := q.Exec(ctx, query,
		tx.ID,
		tx.TransactionID,
		tx.UserID,
		string(tx.Type),
		tx.Method,
		tx.Amount,
		tx.Currency,
		string(tx.Status),
		tx.Description,
		tx.AdminNotes,
		tx.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// TransactionRepositoryImpl implements the TransactionRepository interface
type TransactionRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(db *pgxpool.Pool) domain.TransactionRepository {
	return &TransactionRepositoryImpl{db: db}
}

// Create inserts a new transaction
func (r *TransactionRepositoryImpl) Create(ctx context.Context, tx *domain.Transaction) error {
	return insertTransaction(ctx, r.db, tx)
}

// GetByID retrieves a transaction by ID
func (r *TransactionRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	tx, err := scanTransaction(r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by ID: %w", err)
	}
	return tx, nil
}

// List retrieves transactions matching filter, newest first
func (r *TransactionRepositoryImpl) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, int, error) {
	var conds []string
	var args []any

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions` + where + ` ORDER BY created_at DESC`
	query, args = paginate(query, args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, total, nil
}
