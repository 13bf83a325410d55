package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bkramer/bank-ledger-go/internal/domain"
)

// savingsDebitWindowDays is the rolling window within which a Savings
// account accepts at most one debit.
const savingsDebitWindowDays = 30

// debitPolicy is the variant-specific precondition applied before any
// debit (withdrawal or transfer-out). Implementations are a closed set,
// selected once at account construction. Called with the account's writer
// slot held; must not mutate.
type debitPolicy interface {
	checkDebit(a *Account, amount decimal.Decimal, today time.Time) error
}

// savingsPolicy rejects a debit if any prior debit is dated within the
// preceding 30 days (regardless of the requested amount), then rejects
// amounts the balance cannot cover.
type savingsPolicy struct{}

func (savingsPolicy) checkDebit(a *Account, amount decimal.Decimal, today time.Time) error {
	for i := len(a.log) - 1; i >= 0; i-- {
		tx := a.log[i]
		if !tx.IsDebit() {
			continue
		}
		if daysBetween(tx.Date, today) < savingsDebitWindowDays {
			return &domain.ErrMonthlyLimitExceeded{
				AccountID: a.id,
				LastDebit: tx.Date.Format(time.DateOnly),
			}
		}
		break // only the most recent debit matters
	}
	if a.balance.Sub(amount).IsNegative() {
		return &domain.ErrInsufficientFunds{
			AccountID: a.id,
			Available: a.balance,
			Required:  amount,
		}
	}
	return nil
}

// checkingPolicy has no debit frequency restriction; it only keeps the
// balance at or above the account's configured floor.
type checkingPolicy struct{}

func (checkingPolicy) checkDebit(a *Account, amount decimal.Decimal, today time.Time) error {
	if resulting := a.balance.Sub(amount); resulting.LessThan(a.minBalance) {
		return &domain.ErrBelowMinimumBalance{
			AccountID: a.id,
			Floor:     a.minBalance,
			Resulting: resulting,
		}
	}
	return nil
}

// daysBetween counts whole days from a to b. Both values are stamped at
// day precision in UTC, so the division is exact.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
