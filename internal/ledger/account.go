package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bkramer/bank-ledger-go/internal/domain"
)

// DefaultRecentLimit is how many transactions a statement shows when the
// caller does not ask for a specific count.
const DefaultRecentLimit = 5

// defaultMinimumBalance is the floor a Checking account is opened with.
var defaultMinimumBalance = decimal.NewFromInt(-1000)

// Account is a balance-bearing entity with an append-only transaction log.
// Every account is a single-writer resource: all operations serialize on a
// one-slot semaphore, acquired with a context deadline so a contended
// account surfaces ErrBusy instead of blocking forever.
type Account struct {
	id         string
	kind       domain.AccountKind
	minBalance decimal.Decimal
	policy     debitPolicy

	seq   *Sequencer
	clock func() time.Time

	sem     chan struct{}
	balance decimal.Decimal
	log     []domain.Transaction
}

func newAccount(id string, kind domain.AccountKind, minBalance decimal.Decimal, seq *Sequencer, clock func() time.Time) *Account {
	a := &Account{
		id:         id,
		kind:       kind,
		minBalance: minBalance,
		seq:        seq,
		clock:      clock,
		sem:        make(chan struct{}, 1),
		balance:    decimal.Zero,
	}
	switch kind {
	case domain.KindChecking:
		a.policy = checkingPolicy{}
	default:
		a.policy = savingsPolicy{}
	}
	return a
}

// ID returns the account identifier.
func (a *Account) ID() string { return a.id }

// Kind returns the account variant.
func (a *Account) Kind() domain.AccountKind { return a.kind }

// acquire takes the account's writer slot, or fails with ErrBusy when the
// context expires first.
func (a *Account) acquire(ctx context.Context) error {
	select {
	case a.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return &domain.ErrBusy{AccountID: a.id}
	}
}

func (a *Account) release() {
	<-a.sem
}

// append records a transaction and applies it to the balance. Must be
// called with the writer slot held; the log and balance always move
// together, so balance == sum of logged amounts at every point.
func (a *Account) append(tx domain.Transaction) {
	a.log = append(a.log, tx)
	a.balance = a.balance.Add(tx.Amount)
}

// stamp returns the current date at day precision, UTC. Transaction dates
// carry no time of day: the persisted format is date-only and the savings
// window counts whole days.
func (a *Account) stamp() time.Time {
	now := a.clock()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Deposit credits amount to the account. Always succeeds for positive
// input; a non-positive amount fails with ErrInvalidAmount.
func (a *Account) Deposit(ctx context.Context, amount decimal.Decimal) (domain.Transaction, error) {
	if !amount.IsPositive() {
		return domain.Transaction{}, &domain.ErrInvalidAmount{Amount: amount}
	}
	if err := a.acquire(ctx); err != nil {
		return domain.Transaction{}, err
	}
	defer a.release()

	tx := domain.Transaction{
		SequenceID: a.seq.Next(),
		AccountID:  a.id,
		Date:       a.stamp(),
		Kind:       domain.TxDeposit,
		Amount:     amount,
	}
	a.append(tx)
	return tx, nil
}

// Withdraw debits amount from the account after the variant's precondition
// passes. Nothing is mutated on failure.
func (a *Account) Withdraw(ctx context.Context, amount decimal.Decimal) (domain.Transaction, error) {
	if !amount.IsPositive() {
		return domain.Transaction{}, &domain.ErrInvalidAmount{Amount: amount}
	}
	if err := a.acquire(ctx); err != nil {
		return domain.Transaction{}, err
	}
	defer a.release()

	if err := a.policy.checkDebit(a, amount, a.stamp()); err != nil {
		return domain.Transaction{}, err
	}
	tx := domain.Transaction{
		SequenceID: a.seq.Next(),
		AccountID:  a.id,
		Date:       a.stamp(),
		Kind:       domain.TxWithdraw,
		Amount:     amount.Neg(),
	}
	a.append(tx)
	return tx, nil
}

// Balance returns the current balance.
func (a *Account) Balance(ctx context.Context) (decimal.Decimal, error) {
	if err := a.acquire(ctx); err != nil {
		return decimal.Decimal{}, err
	}
	defer a.release()
	return a.balance, nil
}

// Recent returns the n most recently appended transactions in reverse
// chronological order. n <= 0 falls back to DefaultRecentLimit. An account
// with no history yields an empty (non-nil) slice.
func (a *Account) Recent(ctx context.Context, n int) ([]domain.Transaction, error) {
	if n <= 0 {
		n = DefaultRecentLimit
	}
	if err := a.acquire(ctx); err != nil {
		return nil, err
	}
	defer a.release()

	if n > len(a.log) {
		n = len(a.log)
	}
	out := make([]domain.Transaction, 0, n)
	for i := len(a.log) - 1; i >= len(a.log)-n; i-- {
		out = append(out, a.log[i])
	}
	return out, nil
}

// View returns the externally visible shape of the account.
func (a *Account) View(ctx context.Context) (domain.AccountView, error) {
	if err := a.acquire(ctx); err != nil {
		return domain.AccountView{}, err
	}
	defer a.release()

	v := domain.AccountView{ID: a.id, Kind: a.kind, Balance: a.balance}
	if a.kind == domain.KindChecking {
		floor := a.minBalance
		v.MinimumBalance = &floor
	}
	return v, nil
}
