package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a message addressed to a single recipient
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Category  string    `json:"category"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification categories
const (
	CategoryAccount     = "account"
	CategoryDeposit     = "deposit"
	CategoryWithdrawal  = "withdrawal"
	CategoryTransaction = "transaction"
	CategorySystem      = "system"
)

// Realtime event names pushed to connected clients
const (
	EventNewUserSignup       = "new-user-signup"
	EventNewDepositRequest   = "new-deposit-request"
	EventNewWithdrawRequest  = "new-withdrawal-request"
	EventDepositApproved     = "deposit-approved"
	EventWithdrawalApproved  = "withdrawal-approved"
	EventTransactionRejected = "transaction-rejected"
	EventFundsAdded          = "funds-added"
	EventAccountStatus       = "account-status-changed"
	EventNotification        = "notification"
)
