package domain

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParseTransactionStatus(t *testing.T) {
	for _, s := range []string{"Pending", "Processing", "Completed", "Failed"} {
		if _, err := ParseTransactionStatus(s); err != nil {
			t.Errorf("ParseTransactionStatus(%q) failed: %v", s, err)
		}
	}
	for _, s := range []string{"", "completed", "Done", "PENDING"} {
		if _, err := ParseTransactionStatus(s); !errors.Is(err, ErrInvalidStatus) {
			t.Errorf("ParseTransactionStatus(%q): expected ErrInvalidStatus, got %v", s, err)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to TransactionStatus
		want     bool
	}{
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusProcessing, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusPending, false},
		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusCompleted, false},
		{StatusFailed, StatusPending, false},
		{StatusPending, StatusPending, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}

	if !StatusCompleted.IsTerminal() || !StatusFailed.IsTerminal() {
		t.Error("Completed and Failed should be terminal")
	}
	if StatusPending.IsTerminal() {
		t.Error("Pending should not be terminal")
	}
}

func TestApplyCompletion_Deposit(t *testing.T) {
	u := &User{Balance: dec("100"), TotalDeposit: dec("200"), Profit: dec("3")}
	tx := &Transaction{Type: TypeDeposit, Amount: dec("50")}

	if err := ApplyCompletion(u, tx); err != nil {
		t.Fatalf("ApplyCompletion failed: %v", err)
	}

	if !u.Balance.Equal(dec("150")) {
		t.Errorf("Expected balance 150, got %s", u.Balance)
	}
	if !u.TotalDeposit.Equal(dec("250")) {
		t.Errorf("Expected totalDeposit 250, got %s", u.TotalDeposit)
	}
	if !u.Profit.Equal(dec("8")) {
		t.Errorf("Expected profit 8, got %s", u.Profit)
	}
}

func TestApplyCompletion_Withdrawal(t *testing.T) {
	u := &User{Balance: dec("200"), Profit: dec("10")}
	tx := &Transaction{Type: TypeWithdrawal, Amount: dec("50")}

	if err := ApplyCompletion(u, tx); err != nil {
		t.Fatalf("ApplyCompletion failed: %v", err)
	}

	if !u.Balance.Equal(dec("150")) {
		t.Errorf("Expected balance 150, got %s", u.Balance)
	}
	if !u.TotalWithdrawal.Equal(dec("50")) {
		t.Errorf("Expected totalWithdrawal 50, got %s", u.TotalWithdrawal)
	}
	// 10 - 10 * (50/150)
	want := dec("10").Sub(dec("10").Mul(dec("50").Div(dec("150")))).Round(ProfitScale)
	if !u.Profit.Equal(want) {
		t.Errorf("Expected profit %s, got %s", want, u.Profit)
	}
}

func TestApplyCompletion_WithdrawalEmptiesBalance(t *testing.T) {
	u := &User{Balance: dec("150"), Profit: dec("5")}
	tx := &Transaction{Type: TypeWithdrawal, Amount: dec("150")}

	if err := ApplyCompletion(u, tx); err != nil {
		t.Fatalf("ApplyCompletion failed: %v", err)
	}

	if !u.Balance.IsZero() {
		t.Errorf("Expected balance 0, got %s", u.Balance)
	}
	if !u.Profit.IsZero() {
		t.Errorf("Expected profit reset to 0, got %s", u.Profit)
	}
}

func TestApplyCompletion_WithdrawalLargerThanRemainder(t *testing.T) {
	// amount/remaining = 2, capped at 1
	u := &User{Balance: dec("90"), Profit: dec("12")}
	tx := &Transaction{Type: TypeWithdrawal, Amount: dec("60")}

	if err := ApplyCompletion(u, tx); err != nil {
		t.Fatalf("ApplyCompletion failed: %v", err)
	}
	if !u.Profit.IsZero() {
		t.Errorf("Expected profit 0, got %s", u.Profit)
	}
}

func TestApplyCompletion_InsufficientFunds(t *testing.T) {
	u := &User{Balance: dec("40"), Profit: dec("2")}
	tx := &Transaction{Type: TypeWithdrawal, Amount: dec("50")}

	err := ApplyCompletion(u, tx)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}
	if !u.Balance.Equal(dec("40")) || !u.Profit.Equal(dec("2")) {
		t.Errorf("User mutated on failure: balance=%s profit=%s", u.Balance, u.Profit)
	}
}

func TestApplyCompletion_TradeHasNoEffect(t *testing.T) {
	u := &User{Balance: dec("10")}
	if err := ApplyCompletion(u, &Transaction{Type: TypeTrade, Amount: dec("5")}); err != nil {
		t.Fatalf("ApplyCompletion failed: %v", err)
	}
	if !u.Balance.Equal(dec("10")) {
		t.Errorf("Expected balance unchanged, got %s", u.Balance)
	}
}

func TestMoveFunds(t *testing.T) {
	u := &User{Balance: dec("100"), TradingBalance: dec("5")}

	if err := MoveFunds(u, BucketWallet, BucketTrading, dec("40")); err != nil {
		t.Fatalf("MoveFunds failed: %v", err)
	}
	if !u.Balance.Equal(dec("60")) || !u.TradingBalance.Equal(dec("45")) {
		t.Errorf("Unexpected balances: wallet=%s trading=%s", u.Balance, u.TradingBalance)
	}

	if err := MoveFunds(u, BucketTrading, BucketWallet, dec("46")); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}
	if err := MoveFunds(u, BucketWallet, BucketWallet, dec("1")); !errors.Is(err, ErrInvalidTransfer) {
		t.Errorf("Expected ErrInvalidTransfer, got %v", err)
	}
}

func TestNewTransactionID(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^TXN-20261014-[0-9A-F]{8}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewTransactionID(now)
		if !pattern.MatchString(id) {
			t.Fatalf("Unexpected transaction id format: %s", id)
		}
		if seen[id] {
			t.Fatalf("Duplicate transaction id: %s", id)
		}
		seen[id] = true
	}
}
