package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"brokerdesk/internal/domain"
)

func seedUser(t *testing.T, s *Store, status string, balance string) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:            uuid.New(),
		Email:         uuid.NewString() + "@example.com",
		Role:          domain.RoleUser,
		AccountStatus: status,
		Balance:       decimal.RequireFromString(balance),
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	return u
}

func seedTransaction(t *testing.T, s *Store, userID uuid.UUID, txType domain.TransactionType, amount string) *domain.Transaction {
	t.Helper()
	tx := domain.NewTransaction(userID, txType, decimal.RequireFromString(amount), domain.StatusPending)
	if err := s.Transactions().Create(context.Background(), tx); err != nil {
		t.Fatalf("Failed to seed transaction: %v", err)
	}
	return tx
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := seedUser(t, s, domain.AccountPending, "0")

	dup := &domain.User{ID: uuid.New(), Email: u.Email}
	if err := s.Users().Create(ctx, dup); !errors.Is(err, domain.ErrEmailTaken) {
		t.Errorf("Expected ErrEmailTaken, got %v", err)
	}
}

func TestDeleteUser_CascadesTransactionsAndNotifications(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := seedUser(t, s, domain.AccountVerified, "0")
	other := seedUser(t, s, domain.AccountVerified, "0")

	seedTransaction(t, s, u.ID, domain.TypeDeposit, "10")
	seedTransaction(t, s, u.ID, domain.TypeWithdrawal, "5")
	kept := seedTransaction(t, s, other.ID, domain.TypeDeposit, "7")
	_ = s.Notifications().Create(ctx, &domain.Notification{ID: uuid.New(), UserID: u.ID, Title: "hi"})

	if err := s.Users().Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	txs, total, err := s.Transactions().List(ctx, domain.TransactionFilter{UserID: &u.ID})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 0 || len(txs) != 0 {
		t.Errorf("Expected no transactions for deleted user, got %d", total)
	}
	if _, err := s.Transactions().GetByID(ctx, kept.ID); err != nil {
		t.Errorf("Other user's transaction should survive: %v", err)
	}
	if n, _ := s.Notifications().CountUnread(ctx, u.ID); n != 0 {
		t.Errorf("Expected notifications removed, got %d", n)
	}
	if err := s.Users().Delete(ctx, u.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound on second delete, got %v", err)
	}
}

func TestTransition_ConcurrentApprovalAppliesOnce(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := seedUser(t, s, domain.AccountVerified, "100")
	tx := seedTransaction(t, s, u.ID, domain.TypeDeposit, "50")

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, conflicts := 0, 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.Ledger().Transition(ctx, tx.ID, domain.StatusPending, domain.StatusCompleted, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrConcurrentModification):
				conflicts++
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || conflicts != workers-1 {
		t.Fatalf("Expected 1 success and %d conflicts, got %d/%d", workers-1, successes, conflicts)
	}

	got, _ := s.Users().GetByID(ctx, u.ID)
	if !got.Balance.Equal(decimal.NewFromInt(150)) {
		t.Errorf("Expected balance 150, got %s", got.Balance)
	}
}

func TestTransition_WithdrawalRechecksBalance(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := seedUser(t, s, domain.AccountVerified, "30")
	tx := seedTransaction(t, s, u.ID, domain.TypeWithdrawal, "50")

	_, _, err := s.Ledger().Transition(ctx, tx.ID, domain.StatusPending, domain.StatusCompleted, "")
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	stored, _ := s.Transactions().GetByID(ctx, tx.ID)
	if stored.Status != domain.StatusPending {
		t.Errorf("Expected transaction to stay Pending, got %s", stored.Status)
	}
	got, _ := s.Users().GetByID(ctx, u.ID)
	if !got.Balance.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Expected balance 30, got %s", got.Balance)
	}
}

func TestCredit_RequiresVerified(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := seedUser(t, s, domain.AccountPending, "0")

	tx := domain.NewTransaction(u.ID, domain.TypeDeposit, decimal.NewFromInt(25), domain.StatusCompleted)
	if _, err := s.Ledger().Credit(ctx, tx); !errors.Is(err, domain.ErrNotVerified) {
		t.Fatalf("Expected ErrNotVerified, got %v", err)
	}
	if _, err := s.Transactions().GetByID(ctx, tx.ID); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Errorf("No transaction should be recorded, got %v", err)
	}

	_ = s.Users().UpdateAccountStatus(ctx, u.ID, domain.AccountVerified, "")
	updated, err := s.Ledger().Credit(ctx, tx)
	if err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if !updated.Balance.Equal(decimal.NewFromInt(25)) || !updated.TotalDeposit.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Unexpected balances: balance=%s totalDeposit=%s", updated.Balance, updated.TotalDeposit)
	}
	if !updated.Profit.IsZero() {
		t.Errorf("Credit must not touch profit, got %s", updated.Profit)
	}
}

func TestNotifications_ScopedToRecipient(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	owner := seedUser(t, s, domain.AccountVerified, "0")
	stranger := seedUser(t, s, domain.AccountVerified, "0")

	n := &domain.Notification{ID: uuid.New(), UserID: owner.ID, Title: "Deposit approved", CreatedAt: time.Now()}
	if err := s.Notifications().Create(ctx, n); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := s.Notifications().MarkRead(ctx, n.ID, stranger.ID); !errors.Is(err, domain.ErrNotificationNotFound) {
		t.Errorf("Expected ErrNotificationNotFound for stranger, got %v", err)
	}
	if err := s.Notifications().Delete(ctx, n.ID, stranger.ID); !errors.Is(err, domain.ErrNotificationNotFound) {
		t.Errorf("Expected ErrNotificationNotFound for stranger, got %v", err)
	}
	if err := s.Notifications().MarkRead(ctx, n.ID, owner.ID); err != nil {
		t.Errorf("MarkRead failed: %v", err)
	}
	if count, _ := s.Notifications().CountUnread(ctx, owner.ID); count != 0 {
		t.Errorf("Expected 0 unread, got %d", count)
	}
}

func TestPurgeRead(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := seedUser(t, s, domain.AccountVerified, "0")
	old := time.Now().Add(-48 * time.Hour)

	_ = s.Notifications().Create(ctx, &domain.Notification{ID: uuid.New(), UserID: u.ID, Read: true, CreatedAt: old})
	_ = s.Notifications().Create(ctx, &domain.Notification{ID: uuid.New(), UserID: u.ID, Read: false, CreatedAt: old})
	_ = s.Notifications().Create(ctx, &domain.Notification{ID: uuid.New(), UserID: u.ID, Read: true, CreatedAt: time.Now()})

	purged, err := s.Notifications().PurgeRead(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeRead failed: %v", err)
	}
	if purged != 1 {
		t.Errorf("Expected 1 purged, got %d", purged)
	}
	list, _ := s.Notifications().ListByUser(ctx, u.ID, 0)
	if len(list) != 2 {
		t.Errorf("Expected 2 remaining, got %d", len(list))
	}
}
