package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bkramer/bank-ledger-go/internal/domain"
	"github.com/bkramer/bank-ledger-go/internal/ledger"
)

// fixture builds a directory with a controllable clock and one customer
// old enough for any account kind.
func fixture(t *testing.T) (*ledger.Directory, *domain.Customer, *time.Time) {
	t.Helper()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	dir := ledger.NewDirectory(ledger.NewSequencer(), ledger.WithClock(func() time.Time { return now }))

	c, err := dir.CreateCustomer("Alice Smith", 30, "hash")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return dir, c, &now
}

func openAccount(t *testing.T, dir *ledger.Directory, customerID string, kind domain.AccountKind) *ledger.Account {
	t.Helper()

	a, err := dir.OpenAccount(customerID, kind)
	if err != nil {
		t.Fatalf("expected no error opening %s account, got %v", kind, err)
	}
	return a
}

func TestAccount_DepositAccumulates(t *testing.T) {
	dir, c, _ := fixture(t)
	a := openAccount(t, dir, c.ID, domain.KindSavings)
	ctx := context.Background()

	for _, amount := range []int64{100, 250, 50} {
		if _, err := a.Deposit(ctx, decimal.NewFromInt(amount)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}

	balance, err := a.Balance(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected balance 400, got %s", balance)
	}
}

func TestAccount_DepositRejectsNonPositive(t *testing.T) {
	dir, c, _ := fixture(t)
	a := openAccount(t, dir, c.ID, domain.KindSavings)
	ctx := context.Background()

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-10)} {
		_, err := a.Deposit(ctx, amount)
		var invalid *domain.ErrInvalidAmount
		if !errors.As(err, &invalid) {
			t.Errorf("expected ErrInvalidAmount for %s, got %v", amount, err)
		}
	}
}

func TestAccount_WithdrawRejectsNonPositive(t *testing.T) {
	dir, c, _ := fixture(t)
	a := openAccount(t, dir, c.ID, domain.KindSavings)

	_, err := a.Withdraw(context.Background(), decimal.Zero)
	var invalid *domain.ErrInvalidAmount
	if !errors.As(err, &invalid) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestAccount_BalanceMatchesLogSum(t *testing.T) {
	dir, c, now := fixture(t)
	a := openAccount(t, dir, c.ID, domain.KindChecking)
	ctx := context.Background()

	if _, err := a.Deposit(ctx, decimal.NewFromInt(500)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := a.Withdraw(ctx, decimal.NewFromInt(120)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	*now = now.AddDate(0, 0, 1)
	if _, err := a.Withdraw(ctx, decimal.NewFromInt(80)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	log, err := a.Recent(ctx, 100)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	sum := decimal.Zero
	for _, tx := range log {
		sum = sum.Add(tx.Amount)
	}

	balance, err := a.Balance(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !balance.Equal(sum) {
		t.Errorf("expected balance %s to equal log sum %s", balance, sum)
	}
	if !balance.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected balance 300, got %s", balance)
	}
}

func TestSavings_SecondDebitInsideWindowRejected(t *testing.T) {
	dir, c, now := fixture(t)
	a := openAccount(t, dir, c.ID, domain.KindSavings)
	ctx := context.Background()

	if _, err := a.Deposit(ctx, decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := a.Withdraw(ctx, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	*now = now.AddDate(0, 0, 29)
	_, err := a.Withdraw(ctx, decimal.NewFromInt(100))
	var limit *domain.ErrMonthlyLimitExceeded
	if !errors.As(err, &limit) {
		t.Fatalf("expected ErrMonthlyLimitExceeded on day 29, got %v", err)
	}

	balance, _ := a.Balance(ctx)
	if !balance.Equal(decimal.NewFromInt(900)) {
		t.Errorf("expected balance unchanged at 900, got %s", balance)
	}
}

func TestSavings_DebitAllowedOnWindowBoundary(t *testing.T) {
	dir, c, now := fixture(t)
	a := openAccount(t, dir, c.ID, domain.KindSavings)
	ctx := context.Background()

	if _, err := a.Deposit(ctx, decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := a.Withdraw(ctx, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Day 30 is outside the window.
	*now = now.AddDate(0, 0, 30)
	if _, err := a.Withdraw(ctx, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("expected debit on day 30 to pass, got %v", err)
	}
}

func TestSavings_DepositDoesNotResetWindow(t *testing.T) {
	dir, c, now := fixture(t)
	a := openAccount(t, dir, c.ID, domain.KindSavings)
	ctx := context.Background()

	if _, err := a.Deposit(ctx, decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := a.Withdraw(ctx, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// A credit dated after the debit must not shadow it.
	*now = now.AddDate(0, 0, 35)
	if _, err := a.Deposit(ctx, decimal.NewFromInt(50)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := a.Withdraw(ctx, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("expected debit after window to pass, got %v", err)
	}
}

func TestSavings_InsufficientFunds(t *testing.T) {
	dir, c, _ := fixture(t)
	a := openAccount(t, dir, c.ID, domain.KindSavings)
	ctx := context.Background()

	if _, err := a.Deposit(ctx, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_, err := a.Withdraw(ctx, decimal.NewFromInt(150))
	var insufficient *domain.ErrInsufficientFunds
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if !insufficient.Available.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected available 100, got %s", insufficient.Available)
	}
}

func TestSavings_ExactBalanceWithdrawal(t *testing.T) {
	dir, c, _ := fixture(t)
	a := openAccount(t, dir, c.ID, domain.KindSavings)
	ctx := context.Background()

	if _, err := a.Deposit(ctx, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := a.Withdraw(ctx, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("expected withdrawal to zero to pass, got %v", err)
	}

	balance, _ := a.Balance(ctx)
	if !balance.IsZero() {
		t.Errorf("expected zero balance, got %s", balance)
	}
}

func TestChecking_OverdraftToFloor(t *testing.T) {
	dir, c, _ := fixture(t)
	a := openAccount(t, dir, c.ID, domain.KindChecking)
	ctx := context.Background()

	// Straight to the floor from zero.
	if _, err := a.Withdraw(ctx, decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("expected overdraft to the floor to pass, got %v", err)
	}

	_, err := a.Withdraw(ctx, decimal.NewFromInt(1))
	var below *domain.ErrBelowMinimumBalance
	if !errors.As(err, &below) {
		t.Fatalf("expected ErrBelowMinimumBalance, got %v", err)
	}
	if !below.Floor.Equal(decimal.NewFromInt(-1000)) {
		t.Errorf("expected floor -1000, got %s", below.Floor)
	}

	balance, _ := a.Balance(ctx)
	if !balance.Equal(decimal.NewFromInt(-1000)) {
		t.Errorf("expected balance held at -1000, got %s", balance)
	}
}

func TestChecking_RepeatedDebitsSameDay(t *testing.T) {
	dir, c, _ := fixture(t)
	a := openAccount(t, dir, c.ID, domain.KindChecking)
	ctx := context.Background()

	if _, err := a.Deposit(ctx, decimal.NewFromInt(300)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := a.Withdraw(ctx, decimal.NewFromInt(100)); err != nil {
			t.Fatalf("expected withdrawal %d to pass, got %v", i+1, err)
		}
	}
}

func TestAccount_RecentOrderAndLimit(t *testing.T) {
	dir, c, _ := fixture(t)
	a := openAccount(t, dir, c.ID, domain.KindChecking)
	ctx := context.Background()

	for i := 1; i <= 7; i++ {
		if _, err := a.Deposit(ctx, decimal.NewFromInt(int64(i))); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}

	recent, err := a.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(recent) != ledger.DefaultRecentLimit {
		t.Fatalf("expected %d transactions, got %d", ledger.DefaultRecentLimit, len(recent))
	}
	if !recent[0].Amount.Equal(decimal.NewFromInt(7)) {
		t.Errorf("expected newest first, got amount %s", recent[0].Amount)
	}
	if !recent[len(recent)-1].Amount.Equal(decimal.NewFromInt(3)) {
		t.Errorf("expected oldest shown to be 3, got %s", recent[len(recent)-1].Amount)
	}
}

func TestAccount_RecentEmptyHistory(t *testing.T) {
	dir, c, _ := fixture(t)
	a := openAccount(t, dir, c.ID, domain.KindSavings)

	recent, err := a.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if recent == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(recent) != 0 {
		t.Errorf("expected no transactions, got %d", len(recent))
	}
}
