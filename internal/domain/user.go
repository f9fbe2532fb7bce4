package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User represents an account holder
type User struct {
	ID              uuid.UUID       `json:"id"`
	Email           string          `json:"email"`
	PasswordHash    string          `json:"-"` // Never expose password hash in JSON
	Role            string          `json:"role"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	Phone           string          `json:"phone,omitempty"`
	Country         string          `json:"country,omitempty"`
	Address         string          `json:"address,omitempty"`
	DateOfBirth     string          `json:"date_of_birth,omitempty"`
	Avatar          string          `json:"avatar,omitempty"`       // inline base64 data URL
	KYCDocument     string          `json:"kyc_document,omitempty"` // inline base64 data URL
	Balance         decimal.Decimal `json:"balance"`
	TradingBalance  decimal.Decimal `json:"trading_balance"`
	Profit          decimal.Decimal `json:"profit"`
	TotalDeposit    decimal.Decimal `json:"total_deposit"`
	TotalWithdrawal decimal.Decimal `json:"total_withdrawal"`
	AccountStatus   string          `json:"account_status"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// UserRole constants
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// AccountStatus constants
const (
	AccountPending  = "Pending"
	AccountVerified = "Verified"
	AccountRejected = "Rejected"
)

// FullName joins first and last name
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsVerified reports whether KYC verification has been approved
func (u *User) IsVerified() bool {
	return u.AccountStatus == AccountVerified
}

// Clone returns a copy safe to mutate independently
func (u *User) Clone() *User {
	c := *u
	return &c
}

// UserFilter narrows admin user listings
type UserFilter struct {
	Status string
	Search string // matched against email and names, case-insensitive
	Limit  int
	Offset int
}
