package dto

import (
	"time"

	"brokerdesk/internal/domain"
)

// UserOutput represents user details in API responses
type UserOutput struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Role            string    `json:"role"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Phone           string    `json:"phone,omitempty"`
	Country         string    `json:"country,omitempty"`
	Address         string    `json:"address,omitempty"`
	DateOfBirth     string    `json:"date_of_birth,omitempty"`
	Avatar          string    `json:"avatar,omitempty"`
	HasDocument     bool      `json:"has_document"`
	Balance         string    `json:"balance"`
	TradingBalance  string    `json:"trading_balance"`
	Profit          string    `json:"profit"`
	TotalDeposit    string    `json:"total_deposit"`
	TotalWithdrawal string    `json:"total_withdrawal"`
	AccountStatus   string    `json:"account_status"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// AdminUserOutput adds the stored KYC document for admin review
type AdminUserOutput struct {
	UserOutput
	KYCDocument  string               `json:"kyc_document,omitempty"`
	Transactions []*TransactionOutput `json:"transactions,omitempty"`
}

// NewUserOutput converts a domain user for API responses
func NewUserOutput(u *domain.User) *UserOutput {
	return &UserOutput{
		ID:              u.ID.String(),
		Email:           u.Email,
		Role:            u.Role,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Phone:           u.Phone,
		Country:         u.Country,
		Address:         u.Address,
		DateOfBirth:     u.DateOfBirth,
		Avatar:          u.Avatar,
		HasDocument:     u.KYCDocument != "",
		Balance:         u.Balance.StringFixed(2),
		TradingBalance:  u.TradingBalance.StringFixed(2),
		Profit:          u.Profit.StringFixed(2),
		TotalDeposit:    u.TotalDeposit.StringFixed(2),
		TotalWithdrawal: u.TotalWithdrawal.StringFixed(2),
		AccountStatus:   u.AccountStatus,
		RejectionReason: u.RejectionReason,
		CreatedAt:       u.CreatedAt,
	}
}

// UpdateProfileRequest represents the profile update payload
type UpdateProfileRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Phone       string `json:"phone"`
	Country     string `json:"country"`
	Address     string `json:"address"`
	DateOfBirth string `json:"date_of_birth"` // YYYY-MM-DD
}

// ChangePasswordRequest represents the password change payload
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// UploadRequest carries an inline base64 data URL
type UploadRequest struct {
	Data string `json:"data"` // data:<mime>;base64,<payload>
}

// RejectUserRequest represents the KYC rejection payload
type RejectUserRequest struct {
	Reason string `json:"reason"`
}

// SendEmailRequest represents an admin-authored email
type SendEmailRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// UserListOutput is a page of users
type UserListOutput struct {
	Users  []*UserOutput `json:"users"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}
