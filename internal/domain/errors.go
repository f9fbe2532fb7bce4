package domain

import "errors"

// Not-found errors
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrNotificationNotFound = errors.New("notification not found")
)

// Validation errors
var (
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidStatus     = errors.New("invalid transaction status")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidTransfer   = errors.New("invalid transfer")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrNotVerified       = errors.New("account is not verified")
	ErrInvalidInput      = errors.New("invalid input")
)

// Conflict errors
var (
	ErrIllegalTransition      = errors.New("illegal status transition")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrEmailTaken             = errors.New("email already registered")
)

// Authentication errors
var ErrInvalidCredentials = errors.New("invalid credentials")

// IsNotFound reports whether err is one of the not-found errors
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrNotificationNotFound)
}
