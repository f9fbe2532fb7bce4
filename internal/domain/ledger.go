package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DepositBonusRate is the share of a completed deposit credited to profit
var DepositBonusRate = decimal.NewFromFloat(0.10)

// ProfitScale is the number of decimal places money columns keep
const ProfitScale = 8

// Bucket names a user sub-balance
type Bucket string

// Bucket constants
const (
	BucketWallet  Bucket = "wallet"
	BucketTrading Bucket = "trading"
)

// ParseBucket validates a bucket name
func ParseBucket(s string) (Bucket, error) {
	switch b := Bucket(s); b {
	case BucketWallet, BucketTrading:
		return b, nil
	}
	return "", fmt.Errorf("%w: unknown account %q", ErrInvalidTransfer, s)
}

// ApplyCompletion mutates u with the balance effect of tx becoming Completed.
//
// Deposits credit balance and totalDeposit and add a fixed 10% to profit.
// Withdrawals debit balance, add to totalWithdrawal and shrink profit by the
// share amount/remainingBalance, capped at 1; an emptied balance resets
// profit to zero. Balance is never allowed below zero.
func ApplyCompletion(u *User, tx *Transaction) error {
	amount := tx.Amount
	switch tx.Type {
	case TypeDeposit:
		u.Balance = u.Balance.Add(amount)
		u.TotalDeposit = u.TotalDeposit.Add(amount)
		u.Profit = u.Profit.Add(amount.Mul(DepositBonusRate))
	case TypeWithdrawal:
		if u.Balance.LessThan(amount) {
			return fmt.Errorf("%w: balance %s, withdrawal %s", ErrInsufficientFunds, u.Balance, amount)
		}
		u.Balance = u.Balance.Sub(amount)
		u.TotalWithdrawal = u.TotalWithdrawal.Add(amount)
		u.Profit = reduceProfit(u.Profit, amount, u.Balance)
	}
	return nil
}

// reduceProfit applies the withdrawal profit haircut against the post-withdrawal balance
func reduceProfit(profit, amount, remaining decimal.Decimal) decimal.Decimal {
	if !remaining.IsPositive() {
		return decimal.Zero
	}
	ratio := decimal.Min(decimal.NewFromInt(1), amount.Div(remaining))
	reduced := profit.Sub(profit.Mul(ratio)).Round(ProfitScale)
	return decimal.Max(decimal.Zero, reduced)
}

// MoveFunds shifts amount between the wallet and trading sub-balances of u
func MoveFunds(u *User, from, to Bucket, amount decimal.Decimal) error {
	if from == to {
		return fmt.Errorf("%w: source and destination are the same", ErrInvalidTransfer)
	}
	src, dst := u.bucket(from), u.bucket(to)
	if src.LessThan(amount) {
		return fmt.Errorf("%w: %s balance %s, transfer %s", ErrInsufficientFunds, from, *src, amount)
	}
	*src = src.Sub(amount)
	*dst = dst.Add(amount)
	return nil
}

func (u *User) bucket(b Bucket) *decimal.Decimal {
	if b == BucketTrading {
		return &u.TradingBalance
	}
	return &u.Balance
}
