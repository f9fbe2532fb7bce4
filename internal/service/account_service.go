package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"brokerdesk/internal/adapter/email"
	"brokerdesk/internal/domain"
)

// MaxUploadBytes bounds the decoded size of inline avatar and document uploads
const MaxUploadBytes = 2 << 20

const minPasswordLength = 6

// TokenIssuer mints session tokens
type TokenIssuer interface {
	Generate(userID uuid.UUID, role string) (string, error)
}

// SignupInput is the self-registration payload
type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Country   string
}

// ProfileInput holds the editable profile fields; empty fields are left unchanged
type ProfileInput struct {
	FirstName   string
	LastName    string
	Phone       string
	Country     string
	Address     string
	DateOfBirth string
}

// AccountService handles registration, authentication and account administration
type AccountService struct {
	users        domain.UserRepository
	transactions domain.TransactionRepository
	tokens       TokenIssuer
	notifier     *NotificationService
}

// NewAccountService creates a new AccountService
func NewAccountService(store domain.Store, tokens TokenIssuer, notifier *NotificationService) *AccountService {
	return &AccountService{
		users:        store.Users(),
		transactions: store.Transactions(),
		tokens:       tokens,
		notifier:     notifier,
	}
}

// Signup registers a new user and returns a session token
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*domain.User, string, error) {
	addr, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, "", err
	}
	if len(in.Password) < minPasswordLength {
		return nil, "", fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:            uuid.New(),
		Email:         addr,
		PasswordHash:  string(hash),
		Role:          domain.RoleUser,
		FirstName:     strings.TrimSpace(in.FirstName),
		LastName:      strings.TrimSpace(in.LastName),
		Phone:         strings.TrimSpace(in.Phone),
		Country:       strings.TrimSpace(in.Country),
		AccountStatus: domain.AccountPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	zap.L().Info("User signed up", zap.String("user_id", user.ID.String()), zap.String("email", user.Email))

	if s.notifier != nil {
		s.notifier.NotifyAdmins(ctx, Message{
			Title:    "New user signup",
			Body:     fmt.Sprintf("%s registered and is awaiting verification.", user.Email),
			Category: domain.CategoryAccount,
			Event:    domain.EventNewUserSignup,
			Data:     map[string]any{"id": user.ID, "email": user.Email, "name": user.FullName()},
		})
		s.notifier.NotifyUser(ctx, user, Message{
			Title:    "Welcome",
			Body:     "Your account has been created. Upload your identity document to get verified.",
			Category: domain.CategoryAccount,
			Template: email.TemplateWelcome,
		})
	}

	return user, token, nil
}

// Login authenticates by email and password and returns a session token
func (s *AccountService) Login(ctx context.Context, emailAddr, password string) (*domain.User, string, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(emailAddr))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	return user, token, nil
}

// Profile returns the user record
func (s *AccountService) Profile(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateProfile applies the non-empty profile fields
func (s *AccountService) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&user.FirstName, in.FirstName)
	set(&user.LastName, in.LastName)
	set(&user.Phone, in.Phone)
	set(&user.Country, in.Country)
	set(&user.Address, in.Address)
	if in.DateOfBirth != "" {
		if _, err := time.Parse("2006-01-02", in.DateOfBirth); err != nil {
			return nil, fmt.Errorf("%w: date of birth must be YYYY-MM-DD", domain.ErrInvalidInput)
		}
		user.DateOfBirth = in.DateOfBirth
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one
func (s *AccountService) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return domain.ErrInvalidCredentials
	}
	if len(next) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, id, string(hash))
}

// UploadAvatar stores an inline image as the profile picture
func (s *AccountService) UploadAvatar(ctx context.Context, id uuid.UUID, dataURL string) error {
	if err := validateDataURL(dataURL, "image/"); err != nil {
		return err
	}
	return s.users.UpdateAvatar(ctx, id, dataURL)
}

// UploadDocument stores an inline identity document. A rejected account returns to Pending for review.
func (s *AccountService) UploadDocument(ctx context.Context, id uuid.UUID, dataURL string) (*domain.User, error) {
	if err := validateDataURL(dataURL, "image/", "application/pdf"); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateKYCDocument(ctx, id, dataURL); err != nil {
		return nil, err
	}
	user.KYCDocument = dataURL

	if user.AccountStatus == domain.AccountRejected {
		if err := s.users.UpdateAccountStatus(ctx, id, domain.AccountPending, ""); err != nil {
			return nil, err
		}
		user.AccountStatus = domain.AccountPending
		user.RejectionReason = ""
	}

	if s.notifier != nil {
		s.notifier.NotifyAdmins(ctx, Message{
			Title:    "Verification document uploaded",
			Body:     fmt.Sprintf("%s uploaded a document for review.", user.Email),
			Category: domain.CategoryAccount,
		})
	}
	return user, nil
}

// ListUsers lists users for the admin console
func (s *AccountService) ListUsers(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int, error) {
	if filter.Status != "" {
		switch filter.Status {
		case domain.AccountPending, domain.AccountVerified, domain.AccountRejected:
		default:
			return nil, 0, fmt.Errorf("%w: unknown account status %q", domain.ErrInvalidInput, filter.Status)
		}
	}
	return s.users.List(ctx, filter)
}

// UserDetail returns a user together with their transactions
func (s *AccountService) UserDetail(ctx context.Context, id uuid.UUID) (*domain.User, []*domain.Transaction, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	txs, _, err := s.transactions.List(ctx, domain.TransactionFilter{UserID: &id})
	if err != nil {
		return nil, nil, err
	}
	return user, txs, nil
}

// Verify approves a user's KYC verification
func (s *AccountService) Verify(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.setStatus(ctx, id, domain.AccountVerified, "")
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyUser(ctx, user, Message{
			Title:    "Account verified",
			Body:     "Your account has been verified. You can now deposit funds.",
			Category: domain.CategoryAccount,
			Event:    domain.EventAccountStatus,
			Data:     map[string]any{"status": user.AccountStatus},
			Template: email.TemplateAccountVerified,
		})
	}
	return user, nil
}

// Reject declines a user's KYC verification with a reason
func (s *AccountService) Reject(ctx context.Context, id uuid.UUID, reason string) (*domain.User, error) {
	reason = strings.TrimSpace(reason)
	user, err := s.setStatus(ctx, id, domain.AccountRejected, reason)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		body := "Your account verification was not approved."
		if reason != "" {
			body += " Reason: " + reason
		}
		s.notifier.NotifyUser(ctx, user, Message{
			Title:        "Verification rejected",
			Body:         body,
			Category:     domain.CategoryAccount,
			Event:        domain.EventAccountStatus,
			Data:         map[string]any{"status": user.AccountStatus, "reason": reason},
			Template:     email.TemplateAccountRejected,
			TemplateData: map[string]any{"Reason": reason},
		})
	}
	return user, nil
}

func (s *AccountService) setStatus(ctx context.Context, id uuid.UUID, status, reason string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateAccountStatus(ctx, id, status, reason); err != nil {
		return nil, err
	}
	user.AccountStatus = status
	user.RejectionReason = reason

	zap.L().Info("Account status changed", zap.String("user_id", id.String()), zap.String("status", status))
	return user, nil
}

// DeleteUser removes a user with their transactions and notifications. Admins cannot delete themselves.
func (s *AccountService) DeleteUser(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return fmt.Errorf("%w: cannot delete your own account", domain.ErrInvalidInput)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	zap.L().Info("User deleted", zap.String("user_id", id.String()), zap.String("by", actorID.String()))
	return nil
}

// SendEmail delivers an admin-authored message to a user and records it as a notification
func (s *AccountService) SendEmail(ctx context.Context, id uuid.UUID, subject, message string) error {
	subject, message = strings.TrimSpace(subject), strings.TrimSpace(message)
	if subject == "" || message == "" {
		return fmt.Errorf("%w: subject and message are required", domain.ErrInvalidInput)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if s.notifier == nil {
		return nil
	}

	if err := s.notifier.Email(ctx, user, email.TemplateAdminMessage, map[string]any{
		"Subject": subject,
		"Message": message,
	}); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.notifier.NotifyUser(ctx, user, Message{
		Title:    subject,
		Body:     message,
		Category: domain.CategorySystem,
	})
	return nil
}

// EnsureDefaultAdmin creates the bootstrap admin account when it does not exist yet
func (s *AccountService) EnsureDefaultAdmin(ctx context.Context, emailAddr, password string) error {
	if emailAddr == "" || password == "" {
		return nil
	}

	existing, err := s.users.GetByEmail(ctx, emailAddr)
	switch {
	case err == nil:
		if !existing.IsAdmin() {
			zap.L().Warn("Default admin email belongs to a regular user", zap.String("email", emailAddr))
		}
		return nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return fmt.Errorf("failed to look up default admin: %w", err)
	}

	addr, err := normalizeEmail(emailAddr)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	admin := &domain.User{
		ID:            uuid.New(),
		Email:         addr,
		PasswordHash:  string(hash),
		Role:          domain.RoleAdmin,
		FirstName:     "Admin",
		AccountStatus: domain.AccountVerified,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create default admin: %w", err)
	}

	zap.L().Info("Default admin created", zap.String("email", addr))
	return nil
}

func normalizeEmail(s string) (string, error) {
	parsed, err := mail.ParseAddress(strings.TrimSpace(s))
	if err != nil || parsed.Address != strings.TrimSpace(s) {
		return "", fmt.Errorf("%w: invalid email address", domain.ErrInvalidInput)
	}
	return strings.ToLower(parsed.Address), nil
}

// validateDataURL checks a base64 data URL against the allowed MIME prefixes and the size limit
func validateDataURL(dataURL string, allowed ...string) error {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return fmt.Errorf("%w: upload must be a base64 data URL", domain.ErrInvalidInput)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return fmt.Errorf("%w: malformed data URL", domain.ErrInvalidInput)
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return fmt.Errorf("%w: data URL must be base64 encoded", domain.ErrInvalidInput)
	}

	permitted := false
	for _, prefix := range allowed {
		if strings.HasPrefix(mime, prefix) {
			permitted = true
			break
		}
	}
	if !permitted {
		return fmt.Errorf("%w: unsupported content type %q", domain.ErrInvalidInput, mime)
	}

	if base64.StdEncoding.DecodedLen(len(payload)) > MaxUploadBytes+2 {
		return fmt.Errorf("%w: upload exceeds %d bytes", domain.ErrInvalidInput, MaxUploadBytes)
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("%w: invalid base64 payload", domain.ErrInvalidInput)
	}
	if len(decoded) == 0 || len(decoded) > MaxUploadBytes {
		return fmt.Errorf("%w: upload must be between 1 and %d bytes", domain.ErrInvalidInput, MaxUploadBytes)
	}
	return nil
}
