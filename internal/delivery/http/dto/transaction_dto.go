package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"brokerdesk/internal/domain"
)

// TransactionOutput represents a transaction in API responses
type TransactionOutput struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	Type          string    `json:"type"`
	Method        string    `json:"method,omitempty"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	Description   string    `json:"description,omitempty"`
	AdminNotes    string    `json:"admin_notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewTransactionOutput converts a domain transaction for API responses
func NewTransactionOutput(tx *domain.Transaction) *TransactionOutput {
	return &TransactionOutput{
		ID:            tx.ID.String(),
		TransactionID: tx.TransactionID,
		UserID:        tx.UserID.String(),
		Type:          string(tx.Type),
		Method:        tx.Method,
		Amount:        tx.Amount.String(),
		Currency:      tx.Currency,
		Status:        string(tx.Status),
		Description:   tx.Description,
		AdminNotes:    tx.AdminNotes,
		CreatedAt:     tx.CreatedAt,
		UpdatedAt:     tx.UpdatedAt,
	}
}

// NewTransactionOutputs converts a slice of transactions
func NewTransactionOutputs(txs []*domain.Transaction) []*TransactionOutput {
	out := make([]*TransactionOutput, 0, len(txs))
	for _, tx := range txs {
		out = append(out, NewTransactionOutput(tx))
	}
	return out
}

// TransactionListOutput is a page of transactions
type TransactionListOutput struct {
	Transactions []*TransactionOutput `json:"transactions"`
	Total        int                  `json:"total"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
}

// TransactionRequest represents a deposit or withdrawal request payload
type TransactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
}

// UpdateStatusRequest represents the admin status update payload
type UpdateStatusRequest struct {
	Status     string `json:"status"`
	AdminNotes string `json:"admin_notes"`
}

// AddFundsRequest represents the admin direct credit payload
type AddFundsRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

// AddFundsResponse returns the audit transaction and the credited user
type AddFundsResponse struct {
	Transaction *TransactionOutput `json:"transaction"`
	User        *UserOutput        `json:"user"`
}

// TransferRequest represents a wallet <-> trading account move
type TransferRequest struct {
	From   string          `json:"from"` // "wallet" or "trading"
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

// TransferResponse returns the transfer record and the new balances
type TransferResponse struct {
	Transaction    *TransactionOutput `json:"transaction"`
	Balance        string             `json:"balance"`
	TradingBalance string             `json:"trading_balance"`
}
