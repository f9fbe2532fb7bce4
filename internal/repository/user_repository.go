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

const userColumns = `
	id, email, password_hash, role, first_name, last_name, phone, country,
	address, date_of_birth, avatar, kyc_document, balance, trading_balance,
	profit, total_deposit, total_withdrawal, account_status, rejection_reason,
	created_at, updated_at`

// uniqueViolation is the Postgres SQLSTATE for unique_violation
const uniqueViolation = "23505"

func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.Country,
		&user.Address,
		&user.DateOfBirth,
		&user.Avatar,
		&user.KYCDocument,
		&user.Balance,
		&user.TradingBalance,
		&user.Profit,
		&user.TotalDeposit,
		&user.TotalWithdrawal,
		&user.AccountStatus,
		&user.RejectionReason,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UserRepositoryImpl implements the UserRepository interface
type UserRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool) domain.UserRepository {
	return &UserRepositoryImpl{db: db}
}

// Create creates a new user
func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (
			id, email, password_hash, role, first_name, last_name, phone, country,
			address, date_of_birth, balance, trading_balance, profit, total_deposit,
			total_withdrawal, account_status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $17
		)
	`

	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Country,
		user.Address,
		user.DateOfBirth,
		user.Balance,
		user.TradingBalance,
		user.Profit,
		user.TotalDeposit,
		user.TotalWithdrawal,
		user.AccountStatus,
		user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepositoryImpl) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// List retrieves users matching filter, newest first
func (r *UserRepositoryImpl) List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int, error) {
	var conds []string
	var args []any

	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("account_status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(LOWER(email) LIKE $%d OR LOWER(first_name || ' ' || last_name) LIKE $%d)", n, n))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users` + where + ` ORDER BY created_at DESC`
	query, args = paginate(query, args, filter.Limit, filter.Offset)

	users, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ListAdmins retrieves every admin account
func (r *UserRepositoryImpl) ListAdmins(ctx context.Context) ([]*domain.User, error) {
	return r.query(ctx, `SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY created_at ASC`, domain.RoleAdmin)
}

func (r *UserRepositoryImpl) query(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// UpdateProfile persists the editable profile fields
func (r *UserRepositoryImpl) UpdateProfile(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, phone = $3, country = $4,
		    address = $5, date_of_birth = $6, updated_at = NOW()
		WHERE id = $7
	`

	return r.exec(ctx, "update profile", query,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Country,
		user.Address,
		user.DateOfBirth,
		user.ID,
	)
}

// UpdatePassword replaces the stored password hash
func (r *UserRepositoryImpl) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.exec(ctx, "update password",
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, passwordHash, id)
}

// UpdateAvatar stores an inline profile image
func (r *UserRepositoryImpl) UpdateAvatar(ctx context.Context, id uuid.UUID, data string) error {
	return r.exec(ctx, "update avatar",
		`UPDATE users SET avatar = $1, updated_at = NOW() WHERE id = $2`, data, id)
}

// UpdateKYCDocument stores an inline verification document
func (r *UserRepositoryImpl) UpdateKYCDocument(ctx context.Context, id uuid.UUID, data string) error {
	return r.exec(ctx, "update kyc document",
		`UPDATE users SET kyc_document = $1, updated_at = NOW() WHERE id = $2`, data, id)
}

// UpdateAccountStatus sets the verification status
func (r *UserRepositoryImpl) UpdateAccountStatus(ctx context.Context, id uuid.UUID, status, reason string) error {
	return r.exec(ctx, "update account status",
		`UPDATE users SET account_status = $1, rejection_reason = $2, updated_at = NOW() WHERE id = $3`,
		status, reason, id)
}

// Delete removes a user; transactions and notifications cascade via foreign keys
func (r *UserRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, "delete user", `DELETE FROM users WHERE id = $1`, id)
}

func (r *UserRepositoryImpl) exec(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// paginate appends LIMIT/OFFSET placeholders when requested
func paginate(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}
