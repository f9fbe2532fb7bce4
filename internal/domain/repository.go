package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create creates a new user; returns ErrEmailTaken on a duplicate email
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive)
	GetByEmail(ctx context.Context, email string) (*User, error)

	// List retrieves users matching filter along with the total match count
	List(ctx context.Context, filter UserFilter) ([]*User, int, error)

	// ListAdmins retrieves every admin account
	ListAdmins(ctx context.Context) ([]*User, error)

	// UpdateProfile persists the editable profile fields
	UpdateProfile(ctx context.Context, user *User) error

	// UpdatePassword replaces the stored password hash
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	// UpdateAvatar stores an inline profile image
	UpdateAvatar(ctx context.Context, id uuid.UUID, data string) error

	// UpdateKYCDocument stores an inline verification document
	UpdateKYCDocument(ctx context.Context, id uuid.UUID, data string) error

	// UpdateAccountStatus sets the verification status and rejection reason
	UpdateAccountStatus(ctx context.Context, id uuid.UUID, status, reason string) error

	// Delete removes a user together with their transactions and notifications
	Delete(ctx context.Context, id uuid.UUID) error
}

// TransactionRepository defines the interface for transaction data operations
type TransactionRepository interface {
	// Create inserts a new transaction without touching balances
	Create(ctx context.Context, tx *Transaction) error

	// GetByID retrieves a transaction by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// List retrieves transactions (newest first) along with the total match count
	List(ctx context.Context, filter TransactionFilter) ([]*Transaction, int, error)
}

// NotificationRepository defines the interface for notification operations.
// Every recipient-scoped call returns ErrNotificationNotFound for another user's record.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
	DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error)

	// PurgeRead removes read notifications created before cutoff
	PurgeRead(ctx context.Context, cutoff time.Time) (int64, error)
}

// Ledger performs money movements that touch a user and a transaction together.
// Each call is atomic: either every write lands or none does.
type Ledger interface {
	// Transition moves a transaction from one status to another. The status
	// update is conditioned on the current status still being from, so a
	// concurrent change yields ErrConcurrentModification. Moving a Deposit or
	// Withdrawal to Completed applies ApplyCompletion to the owner in the
	// same unit of work. The returned user is nil when no balance changed.
	Transition(ctx context.Context, id uuid.UUID, from, to TransactionStatus, note string) (*Transaction, *User, error)

	// Credit records tx as a Completed deposit and credits the owner's balance
	// and totalDeposit. Fails with ErrNotVerified unless the owner is Verified.
	Credit(ctx context.Context, tx *Transaction) (*User, error)

	// Move shifts tx.Amount between the owner's sub-balances and records tx.
	Move(ctx context.Context, tx *Transaction, from, to Bucket) (*User, error)
}

// Statistics summarises the platform for the admin dashboard
type Statistics struct {
	TotalUsers          int            `json:"total_users"`
	UsersByStatus       map[string]int `json:"users_by_status"`
	TransactionsByState map[string]int `json:"transactions_by_status"`
	TotalDeposits       string         `json:"total_deposits"`
	TotalWithdrawals    string         `json:"total_withdrawals"`
	PendingDeposits     int            `json:"pending_deposits"`
	PendingWithdrawals  int            `json:"pending_withdrawals"`
}

// StatisticsRepository aggregates admin dashboard figures
type StatisticsRepository interface {
	Statistics(ctx context.Context) (*Statistics, error)
}

// Store bundles every repository a storage backend provides
type Store interface {
	Users() UserRepository
	Transactions() TransactionRepository
	Notifications() NotificationRepository
	Ledger() Ledger
	Stats() StatisticsRepository
	Ping(ctx context.Context) error
	Close()
}
