package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"brokerdesk/internal/domain"
	"brokerdesk/internal/repository/memory"
)

type sentMail struct {
	to       string
	template string
	data     map[string]any
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, template string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, template: template, data: data})
	return nil
}

func (m *fakeMailer) templates() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sent {
		out = append(out, s.template)
	}
	return out
}

type published struct {
	room  string
	event string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *fakePublisher) PublishToUser(id uuid.UUID, event string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{room: id.String(), event: event})
}

func (p *fakePublisher) PublishToAdmins(event string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{room: "admin", event: event})
}

func (p *fakePublisher) has(room, event string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.events {
		if e.room == room && e.event == event {
			return true
		}
	}
	return false
}

type fakeTokens struct{}

func (fakeTokens) Generate(id uuid.UUID, role string) (string, error) {
	return role + ":" + id.String(), nil
}

type fixture struct {
	store     *memory.Store
	mailer    *fakeMailer
	publisher *fakePublisher
	notifier  *NotificationService
	ledger    *LedgerService
	accounts  *AccountService
}

func newFixture() *fixture {
	store := memory.NewStore()
	mailer := &fakeMailer{}
	publisher := &fakePublisher{}
	notifier := NewNotificationService(store.Notifications(), store.Users(), mailer, publisher)
	return &fixture{
		store:     store,
		mailer:    mailer,
		publisher: publisher,
		notifier:  notifier,
		ledger:    NewLedgerService(store, notifier),
		accounts:  NewAccountService(store, fakeTokens{}, notifier),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) user(t *testing.T, status, balance, profit string) *domain.User {
	t.Helper()
	return f.create(t, domain.RoleUser, status, balance, profit)
}

func (f *fixture) admin(t *testing.T) *domain.User {
	t.Helper()
	return f.create(t, domain.RoleAdmin, domain.AccountVerified, "0", "0")
}

func (f *fixture) create(t *testing.T, role, status, balance, profit string) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:            uuid.New(),
		Email:         uuid.NewString()[:8] + "@example.com",
		Role:          role,
		FirstName:     "Test",
		AccountStatus: status,
		Balance:       dec(balance),
		Profit:        dec(profit),
		TotalDeposit:  dec(balance),
		CreatedAt:     time.Now().UTC(),
	}
	if err := f.store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return u
}

func (f *fixture) pendingTx(t *testing.T, userID uuid.UUID, txType domain.TransactionType, amount string) *domain.Transaction {
	t.Helper()
	tx := domain.NewTransaction(userID, txType, dec(amount), domain.StatusPending)
	if err := f.store.Transactions().Create(context.Background(), tx); err != nil {
		t.Fatalf("Failed to create transaction: %v", err)
	}
	return tx
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *domain.User {
	t.Helper()
	u, err := f.store.Users().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("Failed to reload user: %v", err)
	}
	return u
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("%s: expected %s, got %s", name, want, got)
	}
}

func TestUpdateTransactionStatus_CompleteDeposit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.user(t, domain.AccountVerified, "100", "0")
	tx := f.pendingTx(t, u.ID, domain.TypeDeposit, "50")

	updated, err := f.ledger.UpdateTransactionStatus(ctx, tx.ID, "Completed", "bank wire received")
	if err != nil {
		t.Fatalf("UpdateTransactionStatus failed: %v", err)
	}
	if updated.Status != domain.StatusCompleted || updated.AdminNotes != "bank wire received" {
		t.Errorf("Unexpected transaction: %+v", updated)
	}

	got := f.reload(t, u.ID)
	assertDecimal(t, "balance", got.Balance, "150")
	assertDecimal(t, "total deposit", got.TotalDeposit, "150")
	assertDecimal(t, "profit", got.Profit, "5")

	count, _ := f.store.Notifications().CountUnread(ctx, u.ID)
	if count != 1 {
		t.Errorf("Expected 1 notification, got %d", count)
	}
	if !f.publisher.has(u.ID.String(), domain.EventDepositApproved) {
		t.Error("Expected deposit-approved event")
	}
	if tpl := f.mailer.templates(); len(tpl) != 1 || tpl[0] != "deposit-approved" {
		t.Errorf("Expected deposit-approved email, got %v", tpl)
	}
}

func TestUpdateTransactionStatus_CompleteWithdrawalEmptiesBalance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.user(t, domain.AccountVerified, "150", "20")
	tx := f.pendingTx(t, u.ID, domain.TypeWithdrawal, "150")

	if _, err := f.ledger.UpdateTransactionStatus(ctx, tx.ID, "Completed", ""); err != nil {
		t.Fatalf("UpdateTransactionStatus failed: %v", err)
	}

	got := f.reload(t, u.ID)
	assertDecimal(t, "balance", got.Balance, "0")
	assertDecimal(t, "total withdrawal", got.TotalWithdrawal, "150")
	assertDecimal(t, "profit", got.Profit, "0")

	if !f.publisher.has(u.ID.String(), domain.EventWithdrawalApproved) {
		t.Error("Expected withdrawal-approved event")
	}
}

func TestUpdateTransactionStatus_WithdrawalRecheckedAtCompletion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.user(t, domain.AccountVerified, "100", "10")
	tx := f.pendingTx(t, u.ID, domain.TypeWithdrawal, "80")

	// Balance drops below the requested amount after the request was made
	if _, _, err := f.ledger.TransferInternal(ctx, u.ID, "wallet", "trading", dec("50")); err != nil {
		t.Fatalf("TransferInternal failed: %v", err)
	}

	_, err := f.ledger.UpdateTransactionStatus(ctx, tx.ID, "Completed", "")
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	got := f.reload(t, u.ID)
	assertDecimal(t, "balance", got.Balance, "50")
	stored, _ := f.store.Transactions().GetByID(ctx, tx.ID)
	if stored.Status != domain.StatusPending {
		t.Errorf("Expected transaction to stay Pending, got %s", stored.Status)
	}
}

func TestUpdateTransactionStatus_SameStatusIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.user(t, domain.AccountVerified, "100", "0")
	tx := f.pendingTx(t, u.ID, domain.TypeDeposit, "50")

	if _, err := f.ledger.UpdateTransactionStatus(ctx, tx.ID, "Completed", ""); err != nil {
		t.Fatalf("First completion failed: %v", err)
	}
	again, err := f.ledger.UpdateTransactionStatus(ctx, tx.ID, "Completed", "")
	if err != nil {
		t.Fatalf("Repeated completion failed: %v", err)
	}
	if again.Status != domain.StatusCompleted {
		t.Errorf("Expected Completed, got %s", again.Status)
	}

	got := f.reload(t, u.ID)
	assertDecimal(t, "balance", got.Balance, "150")
	assertDecimal(t, "profit", got.Profit, "5")

	count, _ := f.store.Notifications().CountUnread(ctx, u.ID)
	if count != 1 {
		t.Errorf("Expected the repeat to add no notification, got %d", count)
	}
}

func TestUpdateTransactionStatus_FailedNeverMutatesBalances(t *testing.T) {
	for _, txType := range []domain.TransactionType{domain.TypeDeposit, domain.TypeWithdrawal} {
		t.Run(string(txType), func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()
			u := f.user(t, domain.AccountVerified, "100", "7")
			tx := f.pendingTx(t, u.ID, txType, "40")

			if _, err := f.ledger.UpdateTransactionStatus(ctx, tx.ID, "Failed", "rejected"); err != nil {
				t.Fatalf("UpdateTransactionStatus failed: %v", err)
			}

			got := f.reload(t, u.ID)
			assertDecimal(t, "balance", got.Balance, "100")
			assertDecimal(t, "profit", got.Profit, "7")
			assertDecimal(t, "total deposit", got.TotalDeposit, "100")
			assertDecimal(t, "total withdrawal", got.TotalWithdrawal, "0")

			if !f.publisher.has(u.ID.String(), domain.EventTransactionRejected) {
				t.Error("Expected transaction-rejected event")
			}
		})
	}
}

func TestUpdateTransactionStatus_Errors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.user(t, domain.AccountVerified, "100", "0")

	completed := f.pendingTx(t, u.ID, domain.TypeDeposit, "10")
	if _, err := f.ledger.UpdateTransactionStatus(ctx, completed.ID, "Completed", ""); err != nil {
		t.Fatalf("Setup completion failed: %v", err)
	}

	tests := []struct {
		name   string
		id     uuid.UUID
		status string
		want   error
	}{
		{"invalid literal", completed.ID, "Approved", domain.ErrInvalidStatus},
		{"lowercase literal", completed.ID, "completed", domain.ErrInvalidStatus},
		{"unknown transaction", uuid.New(), "Completed", domain.ErrTransactionNotFound},
		{"terminal to pending", completed.ID, "Pending", domain.ErrIllegalTransition},
		{"terminal to failed", completed.ID, "Failed", domain.ErrIllegalTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.ledger.UpdateTransactionStatus(ctx, tt.id, tt.status, ""); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestUpdateTransactionStatus_ProcessingThenCompleted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.user(t, domain.AccountVerified, "0", "0")
	tx := f.pendingTx(t, u.ID, domain.TypeDeposit, "20")

	if _, err := f.ledger.UpdateTransactionStatus(ctx, tx.ID, "Processing", ""); err != nil {
		t.Fatalf("Processing failed: %v", err)
	}
	assertDecimal(t, "balance after processing", f.reload(t, u.ID).Balance, "0")

	if _, err := f.ledger.UpdateTransactionStatus(ctx, tx.ID, "Completed", ""); err != nil {
		t.Fatalf("Completion failed: %v", err)
	}
	assertDecimal(t, "balance after completion", f.reload(t, u.ID).Balance, "20")
}

func TestUpdateTransactionStatus_ConcurrentApprovalsApplyOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.user(t, domain.AccountVerified, "100", "0")
	tx := f.pendingTx(t, u.ID, domain.TypeDeposit, "50")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.ledger.UpdateTransactionStatus(ctx, tx.ID, "Completed", "")
		}()
	}
	wg.Wait()

	assertDecimal(t, "balance", f.reload(t, u.ID).Balance, "150")
}

func TestUpdateTransactionStatus_SideEffectFailuresAreSwallowed(t *testing.T) {
	f := newFixture()
	f.mailer.err = errors.New("smtp down")
	ctx := context.Background()
	u := f.user(t, domain.AccountVerified, "100", "0")
	tx := f.pendingTx(t, u.ID, domain.TypeDeposit, "50")

	if _, err := f.ledger.UpdateTransactionStatus(ctx, tx.ID, "Completed", ""); err != nil {
		t.Fatalf("Expected email failure to be swallowed, got %v", err)
	}
	assertDecimal(t, "balance", f.reload(t, u.ID).Balance, "150")
}

func TestAddFunds(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	t.Run("unverified user", func(t *testing.T) {
		u := f.user(t, domain.AccountPending, "0", "0")
		if _, _, err := f.ledger.AddFunds(ctx, u.ID, dec("25"), ""); !errors.Is(err, domain.ErrNotVerified) {
			t.Errorf("Expected ErrNotVerified, got %v", err)
		}
		assertDecimal(t, "balance", f.reload(t, u.ID).Balance, "0")
	})

	t.Run("non-positive amount", func(t *testing.T) {
		u := f.user(t, domain.AccountVerified, "0", "0")
		for _, amount := range []string{"0", "-5"} {
			if _, _, err := f.ledger.AddFunds(ctx, u.ID, dec(amount), ""); !errors.Is(err, domain.ErrInvalidAmount) {
				t.Errorf("amount %s: expected ErrInvalidAmount, got %v", amount, err)
			}
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		if _, _, err := f.ledger.AddFunds(ctx, uuid.New(), dec("1"), ""); !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("Expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("verified user", func(t *testing.T) {
		u := f.user(t, domain.AccountVerified, "10", "3")
		tx, updated, err := f.ledger.AddFunds(ctx, u.ID, dec("25"), "promo")
		if err != nil {
			t.Fatalf("AddFunds failed: %v", err)
		}
		if tx.Status != domain.StatusCompleted || tx.Type != domain.TypeDeposit || tx.Method != domain.MethodAdminCredit {
			t.Errorf("Unexpected audit transaction: %+v", tx)
		}
		assertDecimal(t, "balance", updated.Balance, "35")
		assertDecimal(t, "total deposit", updated.TotalDeposit, "35")
		assertDecimal(t, "profit", updated.Profit, "3")

		stored, err := f.store.Transactions().GetByID(ctx, tx.ID)
		if err != nil || stored.Status != domain.StatusCompleted {
			t.Errorf("Expected stored completed transaction, got %+v (%v)", stored, err)
		}
		if !f.publisher.has(u.ID.String(), domain.EventFundsAdded) {
			t.Error("Expected funds-added event")
		}
	})
}

func TestRequestDeposit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	admin := f.admin(t)

	pending := f.user(t, domain.AccountPending, "0", "0")
	if _, err := f.ledger.RequestDeposit(ctx, pending.ID, TransactionRequest{Amount: dec("10")}); !errors.Is(err, domain.ErrNotVerified) {
		t.Errorf("Expected ErrNotVerified, got %v", err)
	}

	u := f.user(t, domain.AccountVerified, "0", "0")
	if _, err := f.ledger.RequestDeposit(ctx, u.ID, TransactionRequest{Amount: dec("0")}); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount, got %v", err)
	}

	tx, err := f.ledger.RequestDeposit(ctx, u.ID, TransactionRequest{Amount: dec("10"), Method: "Bank Transfer", Currency: "eur"})
	if err != nil {
		t.Fatalf("RequestDeposit failed: %v", err)
	}
	if tx.Status != domain.StatusPending || tx.Currency != "EUR" || tx.Method != "Bank Transfer" {
		t.Errorf("Unexpected transaction: %+v", tx)
	}
	assertDecimal(t, "balance", f.reload(t, u.ID).Balance, "0")

	if !f.publisher.has("admin", domain.EventNewDepositRequest) {
		t.Error("Expected new-deposit-request event for admins")
	}
	count, _ := f.store.Notifications().CountUnread(ctx, admin.ID)
	if count != 1 {
		t.Errorf("Expected one admin notification, got %d", count)
	}
}

func TestRequestWithdrawal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.user(t, domain.AccountVerified, "100", "0")

	if _, err := f.ledger.RequestWithdrawal(ctx, u.ID, TransactionRequest{Amount: dec("100.01")}); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}

	tx, err := f.ledger.RequestWithdrawal(ctx, u.ID, TransactionRequest{Amount: dec("100")})
	if err != nil {
		t.Fatalf("RequestWithdrawal failed: %v", err)
	}
	if tx.Type != domain.TypeWithdrawal || tx.Status != domain.StatusPending {
		t.Errorf("Unexpected transaction: %+v", tx)
	}
	assertDecimal(t, "balance", f.reload(t, u.ID).Balance, "100")
	if !f.publisher.has("admin", domain.EventNewWithdrawRequest) {
		t.Error("Expected new-withdrawal-request event for admins")
	}
}

func TestTransferInternal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.user(t, domain.AccountVerified, "100", "0")

	tx, updated, err := f.ledger.TransferInternal(ctx, u.ID, "wallet", "trading", dec("60"))
	if err != nil {
		t.Fatalf("TransferInternal failed: %v", err)
	}
	if tx.Type != domain.TypeTransfer || tx.Method != domain.MethodInternal {
		t.Errorf("Unexpected transfer record: %+v", tx)
	}
	assertDecimal(t, "wallet", updated.Balance, "40")
	assertDecimal(t, "trading", updated.TradingBalance, "60")

	if _, _, err := f.ledger.TransferInternal(ctx, u.ID, "trading", "wallet", dec("61")); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}
	if _, _, err := f.ledger.TransferInternal(ctx, u.ID, "wallet", "wallet", dec("1")); !errors.Is(err, domain.ErrInvalidTransfer) {
		t.Errorf("Expected ErrInvalidTransfer, got %v", err)
	}
	if _, _, err := f.ledger.TransferInternal(ctx, u.ID, "savings", "wallet", dec("1")); !errors.Is(err, domain.ErrInvalidTransfer) {
		t.Errorf("Expected ErrInvalidTransfer for unknown account, got %v", err)
	}

	w, err := f.ledger.Wallet(ctx, u.ID)
	if err != nil {
		t.Fatalf("Wallet failed: %v", err)
	}
	assertDecimal(t, "wallet summary", w.Balance, "40")
	assertDecimal(t, "trading summary", w.TradingBalance, "60")
}

func TestGetTransaction_ScopedToOwner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.user(t, domain.AccountVerified, "0", "0")
	other := f.user(t, domain.AccountVerified, "0", "0")
	tx := f.pendingTx(t, u.ID, domain.TypeDeposit, "5")

	if _, err := f.ledger.GetTransaction(ctx, u.ID, tx.ID); err != nil {
		t.Errorf("Owner lookup failed: %v", err)
	}
	if _, err := f.ledger.GetTransaction(ctx, other.ID, tx.ID); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Errorf("Expected ErrTransactionNotFound for another user, got %v", err)
	}
}
