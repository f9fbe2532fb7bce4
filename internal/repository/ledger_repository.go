package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"brokerdesk/internal/domain"
)

// Each statement below is a single-row conditional update, so concurrent
// approvals serialise on the row lock instead of overwriting each other.
const (
	queryTransitionStatus = `
		UPDATE transactions
		SET status = $3,
		    admin_notes = CASE WHEN $4 = '' THEN admin_notes ELSE $4 END,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + transactionColumns

	queryCompleteDeposit = `
		UPDATE users
		SET balance = balance + $2::numeric,
		    total_deposit = total_deposit + $2::numeric,
		    profit = profit + $2::numeric * $3::numeric,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	// Profit shrinks by amount/remaining capped at 1; an emptied balance zeroes it.
	queryCompleteWithdrawal = `
		UPDATE users
		SET balance = balance - $2::numeric,
		    total_withdrawal = total_withdrawal + $2::numeric,
		    profit = CASE
		        WHEN balance - $2::numeric <= 0 THEN 0
		        ELSE GREATEST(0, ROUND(profit - profit * LEAST(1, $2::numeric / (balance - $2::numeric)), 8))
		    END,
		    updated_at = NOW()
		WHERE id = $1 AND balance >= $2::numeric
		RETURNING ` + userColumns

	queryCreditVerified = `
		UPDATE users
		SET balance = balance + $2::numeric,
		    total_deposit = total_deposit + $2::numeric,
		    updated_at = NOW()
		WHERE id = $1 AND account_status = 'Verified'
		RETURNING ` + userColumns

	queryWalletToTrading = `
		UPDATE users
		SET balance = balance - $2::numeric,
		    trading_balance = trading_balance + $2::numeric,
		    updated_at = NOW()
		WHERE id = $1 AND balance >= $2::numeric
		RETURNING ` + userColumns

	queryTradingToWallet = `
		UPDATE users
		SET trading_balance = trading_balance - $2::numeric,
		    balance = balance + $2::numeric,
		    updated_at = NOW()
		WHERE id = $1 AND trading_balance >= $2::numeric
		RETURNING ` + userColumns
)

// LedgerRepositoryImpl implements domain.Ledger on PostgreSQL
type LedgerRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewLedgerRepository creates a new Ledger
func NewLedgerRepository(db *pgxpool.Pool) domain.Ledger {
	return &LedgerRepositoryImpl{db: db}
}

// Transition moves a transaction between statuses and applies its balance effect
func (r *LedgerRepositoryImpl) Transition(ctx context.Context, id uuid.UUID, from, to domain.TransactionStatus, note string) (*domain.Transaction, *domain.User, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	record, err := scanTransaction(tx.QueryRow(ctx, queryTransitionStatus, id, string(from), string(to), note))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, r.classifyTransitionMiss(ctx, tx, id)
		}
		return nil, nil, fmt.Errorf("failed to update transaction status: %w", err)
	}

	var owner *domain.User
	if to == domain.StatusCompleted && record.AffectsBalance() {
		owner, err = applyCompletion(ctx, tx, record)
		if err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transition: %w", err)
	}

	return record, owner, nil
}

func applyCompletion(ctx context.Context, tx pgx.Tx, record *domain.Transaction) (*domain.User, error) {
	var row pgx.Row
	switch record.Type {
	case domain.TypeDeposit:
		row = tx.QueryRow(ctx, queryCompleteDeposit, record.UserID, record.Amount, domain.DepositBonusRate)
	case domain.TypeWithdrawal:
		row = tx.QueryRow(ctx, queryCompleteWithdrawal, record.UserID, record.Amount)
	default:
		return nil, nil
	}

	owner, err := scanUser(row)
	if err == nil {
		return owner, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to apply balance effect: %w", err)
	}
	if record.Type == domain.TypeWithdrawal {
		if exists, err := rowExists(ctx, tx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, record.UserID); err == nil && exists {
			return nil, fmt.Errorf("%w: withdrawal %s exceeds balance", domain.ErrInsufficientFunds, record.TransactionID)
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *LedgerRepositoryImpl) classifyTransitionMiss(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	exists, err := rowExists(ctx, tx, `SELECT EXISTS(SELECT 1 FROM transactions WHERE id = $1)`, id)
	if err != nil {
		return fmt.Errorf("failed to check transaction: %w", err)
	}
	if !exists {
		return domain.ErrTransactionNotFound
	}
	return domain.ErrConcurrentModification
}

// Credit records an admin deposit and credits a verified owner
func (r *LedgerRepositoryImpl) Credit(ctx context.Context, record *domain.Transaction) (*domain.User, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	owner, err := scanUser(tx.QueryRow(ctx, queryCreditVerified, record.UserID, record.Amount))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to credit user: %w", err)
		}
		exists, err := rowExists(ctx, tx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, record.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to check user: %w", err)
		}
		if exists {
			return nil, domain.ErrNotVerified
		}
		return nil, domain.ErrUserNotFound
	}

	record.Type = domain.TypeDeposit
	record.Status = domain.StatusCompleted
	if err := insertTransaction(ctx, tx, record); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit credit: %w", err)
	}
	return owner, nil
}

// Move shifts funds between the wallet and trading sub-balances
func (r *LedgerRepositoryImpl) Move(ctx context.Context, record *domain.Transaction, from, to domain.Bucket) (*domain.User, error) {
	var query string
	switch {
	case from == domain.BucketWallet && to == domain.BucketTrading:
		query = queryWalletToTrading
	case from == domain.BucketTrading && to == domain.BucketWallet:
		query = queryTradingToWallet
	default:
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransfer, from, to)
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	owner, err := scanUser(tx.QueryRow(ctx, query, record.UserID, record.Amount))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to move funds: %w", err)
		}
		exists, err := rowExists(ctx, tx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, record.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to check user: %w", err)
		}
		if exists {
			return nil, fmt.Errorf("%w: %s balance below %s", domain.ErrInsufficientFunds, from, record.Amount)
		}
		return nil, domain.ErrUserNotFound
	}

	record.Type = domain.TypeTransfer
	record.Status = domain.StatusCompleted
	if err := insertTransaction(ctx, tx, record); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transfer: %w", err)
	}
	return owner, nil
}

func rowExists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, query, args...).Scan(&exists)
	return exists, err
}
