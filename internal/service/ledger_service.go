package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"brokerdesk/internal/adapter/email"
	"brokerdesk/internal/domain"
)

// TransactionRequest carries a user-initiated deposit or withdrawal
type TransactionRequest struct {
	Amount      decimal.Decimal
	Method      string
	Currency    string
	Description string
}

// Wallet is a user's balance summary
type Wallet struct {
	Balance         decimal.Decimal `json:"balance"`
	TradingBalance  decimal.Decimal `json:"trading_balance"`
	Profit          decimal.Decimal `json:"profit"`
	TotalDeposit    decimal.Decimal `json:"total_deposit"`
	TotalWithdrawal decimal.Decimal `json:"total_withdrawal"`
	Currency        string          `json:"currency"`
}

// LedgerService owns every operation that moves money
type LedgerService struct {
	users        domain.UserRepository
	transactions domain.TransactionRepository
	ledger       domain.Ledger
	stats        domain.StatisticsRepository
	notifier     *NotificationService
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(store domain.Store, notifier *NotificationService) *LedgerService {
	return &LedgerService{
		users:        store.Users(),
		transactions: store.Transactions(),
		ledger:       store.Ledger(),
		stats:        store.Stats(),
		notifier:     notifier,
	}
}

// UpdateTransactionStatus moves a transaction to a new status on behalf of an admin.
// Re-applying the current status returns the transaction unchanged.
func (s *LedgerService) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status, note string) (*domain.Transaction, error) {
	to, err := domain.ParseTransactionStatus(status)
	if err != nil {
		return nil, err
	}

	tx, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	owner, err := s.users.GetByID(ctx, tx.UserID)
	if err != nil {
		return nil, err
	}

	if tx.Status == to {
		return tx, nil
	}

	if !domain.CanTransition(tx.Status, to) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrIllegalTransition, tx.Status, to)
	}

	updated, changed, err := s.ledger.Transition(ctx, id, tx.Status, to, strings.TrimSpace(note))
	ledgerTransitions.WithLabelValues(string(tx.Type), string(to), outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	if changed != nil {
		owner = changed
	}

	zap.L().Info("Transaction status updated",
		zap.String("transaction_id", updated.TransactionID),
		zap.String("type", string(updated.Type)),
		zap.String("from", string(tx.Status)),
		zap.String("to", string(to)),
		zap.String("amount", updated.Amount.String()),
	)

	s.announceTransition(ctx, updated, owner)
	return updated, nil
}

func (s *LedgerService) announceTransition(ctx context.Context, tx *domain.Transaction, owner *domain.User) {
	if s.notifier == nil || !tx.AffectsBalance() {
		return
	}

	data := map[string]any{
		"transaction": tx,
		"balance":     owner.Balance.String(),
	}
	templateData := map[string]any{
		"TransactionID": tx.TransactionID,
		"Type":          string(tx.Type),
		"Amount":        tx.Amount.StringFixed(2),
		"Currency":      tx.Currency,
		"Balance":       owner.Balance.StringFixed(2),
		"Note":          tx.AdminNotes,
	}

	var msg Message
	switch {
	case tx.Status == domain.StatusCompleted && tx.Type == domain.TypeDeposit:
		msg = Message{
			Title:    "Deposit approved",
			Body:     fmt.Sprintf("Your deposit of %s %s has been approved.", tx.Amount.StringFixed(2), tx.Currency),
			Category: domain.CategoryDeposit,
			Event:    domain.EventDepositApproved,
			Template: email.TemplateDepositApproved,
		}
	case tx.Status == domain.StatusCompleted && tx.Type == domain.TypeWithdrawal:
		msg = Message{
			Title:    "Withdrawal approved",
			Body:     fmt.Sprintf("Your withdrawal of %s %s has been processed.", tx.Amount.StringFixed(2), tx.Currency),
			Category: domain.CategoryWithdrawal,
			Event:    domain.EventWithdrawalApproved,
			Template: email.TemplateWithdrawalApproved,
		}
	case tx.Status == domain.StatusFailed:
		msg = Message{
			Title:    fmt.Sprintf("%s rejected", tx.Type),
			Body:     fmt.Sprintf("Your %s request of %s %s was rejected.", strings.ToLower(string(tx.Type)), tx.Amount.StringFixed(2), tx.Currency),
			Category: domain.CategoryTransaction,
			Event:    domain.EventTransactionRejected,
			Template: email.TemplateTransactionRejected,
		}
	default:
		return
	}

	msg.Data = data
	msg.TemplateData = templateData
	s.notifier.NotifyUser(ctx, owner, msg)
}

// AddFunds credits a verified user's balance directly and records a completed deposit
func (s *LedgerService) AddFunds(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, note string) (*domain.Transaction, *domain.User, error) {
	if !amount.IsPositive() {
		return nil, nil, domain.ErrInvalidAmount
	}

	owner, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if !owner.IsVerified() {
		return nil, nil, fmt.Errorf("%w: %s is %s", domain.ErrNotVerified, owner.Email, owner.AccountStatus)
	}

	tx := domain.NewTransaction(userID, domain.TypeDeposit, amount, domain.StatusCompleted)
	tx.Method = domain.MethodAdminCredit
	tx.Description = "Funds added by administrator"
	tx.AdminNotes = strings.TrimSpace(note)

	credited, err := s.ledger.Credit(ctx, tx)
	ledgerCredits.WithLabelValues("admin_credit", outcome(err)).Inc()
	if err != nil {
		return nil, nil, err
	}

	zap.L().Info("Funds added",
		zap.String("user_id", userID.String()),
		zap.String("transaction_id", tx.TransactionID),
		zap.String("amount", amount.String()),
	)

	if s.notifier != nil {
		s.notifier.NotifyUser(ctx, credited, Message{
			Title:    "Funds added",
			Body:     fmt.Sprintf("%s %s was added to your account.", amount.StringFixed(2), tx.Currency),
			Category: domain.CategoryDeposit,
			Event:    domain.EventFundsAdded,
			Data:     map[string]any{"transaction": tx, "balance": credited.Balance.String()},
			Template: email.TemplateFundsAdded,
			TemplateData: map[string]any{
				"Amount":   amount.StringFixed(2),
				"Currency": tx.Currency,
				"Balance":  credited.Balance.StringFixed(2),
			},
		})
	}

	return tx, credited, nil
}

// RequestDeposit records a pending deposit for admin review
func (s *LedgerService) RequestDeposit(ctx context.Context, userID uuid.UUID, req TransactionRequest) (*domain.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsVerified() {
		return nil, domain.ErrNotVerified
	}

	tx := s.pending(userID, domain.TypeDeposit, req)
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}

	s.announceRequest(ctx, user, tx, domain.EventNewDepositRequest)
	return tx, nil
}

// RequestWithdrawal records a pending withdrawal; the amount may not exceed the current balance
func (s *LedgerService) RequestWithdrawal(ctx context.Context, userID uuid.UUID, req TransactionRequest) (*domain.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Amount.GreaterThan(user.Balance) {
		return nil, fmt.Errorf("%w: requested %s, available %s", domain.ErrInsufficientFunds, req.Amount, user.Balance)
	}

	tx := s.pending(userID, domain.TypeWithdrawal, req)
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}

	s.announceRequest(ctx, user, tx, domain.EventNewWithdrawRequest)
	return tx, nil
}

func (s *LedgerService) pending(userID uuid.UUID, txType domain.TransactionType, req TransactionRequest) *domain.Transaction {
	tx := domain.NewTransaction(userID, txType, req.Amount, domain.StatusPending)
	tx.Method = strings.TrimSpace(req.Method)
	tx.Description = strings.TrimSpace(req.Description)
	if c := strings.ToUpper(strings.TrimSpace(req.Currency)); c != "" {
		tx.Currency = c
	}
	return tx
}

func (s *LedgerService) announceRequest(ctx context.Context, user *domain.User, tx *domain.Transaction, event string) {
	zap.L().Info("Transaction requested",
		zap.String("user_id", user.ID.String()),
		zap.String("transaction_id", tx.TransactionID),
		zap.String("type", string(tx.Type)),
		zap.String("amount", tx.Amount.String()),
	)

	if s.notifier == nil {
		return
	}

	category := domain.CategoryDeposit
	if tx.Type == domain.TypeWithdrawal {
		category = domain.CategoryWithdrawal
	}
	label := strings.ToLower(string(tx.Type))

	s.notifier.NotifyAdmins(ctx, Message{
		Title:    fmt.Sprintf("New %s request", label),
		Body:     fmt.Sprintf("%s requested a %s of %s %s.", user.Email, label, tx.Amount.StringFixed(2), tx.Currency),
		Category: category,
		Event:    event,
		Data:     map[string]any{"transaction": tx, "email": user.Email},
	})
	s.notifier.NotifyUser(ctx, user, Message{
		Title:    fmt.Sprintf("%s request submitted", tx.Type),
		Body:     fmt.Sprintf("Your %s of %s %s is awaiting review.", label, tx.Amount.StringFixed(2), tx.Currency),
		Category: category,
	})
}

// TransferInternal moves funds between the wallet and the trading account
func (s *LedgerService) TransferInternal(ctx context.Context, userID uuid.UUID, from, to string, amount decimal.Decimal) (*domain.Transaction, *domain.User, error) {
	src, err := domain.ParseBucket(from)
	if err != nil {
		return nil, nil, err
	}
	dst, err := domain.ParseBucket(to)
	if err != nil {
		return nil, nil, err
	}
	if src == dst {
		return nil, nil, fmt.Errorf("%w: source and destination are both %s", domain.ErrInvalidTransfer, src)
	}
	if !amount.IsPositive() {
		return nil, nil, domain.ErrInvalidAmount
	}

	tx := domain.NewTransaction(userID, domain.TypeTransfer, amount, domain.StatusCompleted)
	tx.Method = domain.MethodInternal
	tx.Description = fmt.Sprintf("Transfer from %s to %s", src, dst)

	user, err := s.ledger.Move(ctx, tx, src, dst)
	ledgerCredits.WithLabelValues("transfer", outcome(err)).Inc()
	if err != nil {
		return nil, nil, err
	}
	return tx, user, nil
}

// Wallet returns a user's balance summary
func (s *LedgerService) Wallet(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Wallet{
		Balance:         user.Balance,
		TradingBalance:  user.TradingBalance,
		Profit:          user.Profit,
		TotalDeposit:    user.TotalDeposit,
		TotalWithdrawal: user.TotalWithdrawal,
		Currency:        domain.DefaultCurrency,
	}, nil
}

// ListTransactions lists transactions matching filter
func (s *LedgerService) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, int, error) {
	return s.transactions.List(ctx, filter)
}

// GetTransaction returns a transaction owned by userID; another user's transaction is reported as not found
func (s *LedgerService) GetTransaction(ctx context.Context, userID, id uuid.UUID) (*domain.Transaction, error) {
	tx, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.UserID != userID {
		return nil, domain.ErrTransactionNotFound
	}
	return tx, nil
}

// Statistics aggregates the admin dashboard figures
func (s *LedgerService) Statistics(ctx context.Context) (*domain.Statistics, error) {
	stats, err := s.stats.Statistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load statistics: %w", err)
	}
	return stats, nil
}
