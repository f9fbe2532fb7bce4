package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the kind of money movement a transaction records
type TransactionType string

// TransactionType constants
const (
	TypeDeposit    TransactionType = "Deposit"
	TypeWithdrawal TransactionType = "Withdrawal"
	TypeTrade      TransactionType = "Trade"
	TypeTransfer   TransactionType = "Transfer"
)

// TransactionStatus is the lifecycle state of a transaction
type TransactionStatus string

// TransactionStatus constants
const (
	StatusPending    TransactionStatus = "Pending"
	StatusProcessing TransactionStatus = "Processing"
	StatusCompleted  TransactionStatus = "Completed"
	StatusFailed     TransactionStatus = "Failed"
)

// Method used for admin direct credits
const MethodAdminCredit = "Admin Credit"

// Method used for wallet <-> trading account moves
const MethodInternal = "Internal"

// DefaultCurrency applies when a request omits the currency
const DefaultCurrency = "USD"

// Transaction represents one money-movement intent
type Transaction struct {
	ID            uuid.UUID         `json:"id"`
	TransactionID string            `json:"transaction_id"` // human-readable reference
	UserID        uuid.UUID         `json:"user_id"`
	Type          TransactionType   `json:"type"`
	Method        string            `json:"method"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	Status        TransactionStatus `json:"status"`
	Description   string            `json:"description,omitempty"`
	AdminNotes    string            `json:"admin_notes,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// TransactionFilter narrows transaction listings
type TransactionFilter struct {
	UserID *uuid.UUID
	Type   TransactionType
	Status TransactionStatus
	Limit  int
	Offset int
}

// NewTransaction builds a transaction with fresh identifiers
func NewTransaction(userID uuid.UUID, txType TransactionType, amount decimal.Decimal, status TransactionStatus) *Transaction {
	now := time.Now().UTC()
	return &Transaction{
		ID:            uuid.New(),
		TransactionID: NewTransactionID(now),
		UserID:        userID,
		Type:          txType,
		Amount:        amount,
		Currency:      DefaultCurrency,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NewTransactionID returns a reference like TXN-20261014-3F9A12BC
func NewTransactionID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("TXN-%s-%s", now.UTC().Format("20060102"), suffix)
}

// ParseTransactionType validates a transaction type literal
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(s); t {
	case TypeDeposit, TypeWithdrawal, TypeTrade, TypeTransfer:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

// ParseTransactionStatus validates a status literal
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	switch st := TransactionStatus(s); st {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

var transitions = map[TransactionStatus][]TransactionStatus{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether a transaction may move from one status to another.
// Completed and Failed are terminal.
func CanTransition(from, to TransactionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further status change is allowed
func (s TransactionStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// AffectsBalance reports whether completing this transaction moves user funds
func (t *Transaction) AffectsBalance() bool {
	return t.Type == TypeDeposit || t.Type == TypeWithdrawal
}

// Clone returns a copy safe to mutate independently
func (t *Transaction) Clone() *Transaction {
	c := *t
	return &c
}
