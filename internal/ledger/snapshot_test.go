package ledger_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/bkramer/bank-ledger-go/internal/domain"
	"github.com/bkramer/bank-ledger-go/internal/ledger"
)

func buildState(t *testing.T) (*ledger.Directory, *ledger.Sequencer) {
	t.Helper()
	ctx := context.Background()

	seq := ledger.NewSequencer()
	dir := ledger.NewDirectory(seq)

	alice, err := dir.CreateCustomer("Alice Smith", 30, "hash-a")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	bob, err := dir.CreateCustomer("Bob", 20, "hash-b")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	savings, _ := dir.OpenAccount(alice.ID, domain.KindSavings)
	checking, _ := dir.OpenAccount(alice.ID, domain.KindChecking)
	bobChecking, _ := dir.OpenAccount(bob.ID, domain.KindChecking)

	if _, err := savings.Deposit(ctx, decimal.NewFromInt(500)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := checking.Deposit(ctx, decimal.NewFromInt(300)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := checking.Withdraw(ctx, decimal.NewFromInt(900)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	coord := ledger.NewTransferCoordinator(seq)
	if _, err := coord.Transfer(ctx, savings, bobChecking, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return dir, seq
}

func TestSnapshot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir, seq := buildState(t)

	snap, err := dir.Export(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Fresh process: new sequencer, new directory.
	seq2 := ledger.NewSequencer()
	dir2 := ledger.NewDirectory(seq2)
	if err := dir2.Restore(snap); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for _, check := range []struct {
		accountID string
		balance   int64
	}{
		{"AC001", 400},
		{"AC002", -600},
		{"AC003", 100},
	} {
		a, err := dir2.Account(check.accountID)
		if err != nil {
			t.Fatalf("expected account %s, got %v", check.accountID, err)
		}
		balance, _ := a.Balance(ctx)
		if !balance.Equal(decimal.NewFromInt(check.balance)) {
			t.Errorf("expected %s balance %d, got %s", check.accountID, check.balance, balance)
		}
	}

	alice, err := dir2.Customer("C001")
	if err != nil {
		t.Fatalf("expected customer C001, got %v", err)
	}
	if alice.Name != "Alice Smith" || alice.Age != 30 {
		t.Errorf("expected 'Alice Smith' aged 30, got '%s' aged %d", alice.Name, alice.Age)
	}
	if len(alice.Accounts) != 2 {
		t.Errorf("expected 2 owned accounts, got %v", alice.Accounts)
	}

	if seq2.Last() != seq.Last() {
		t.Errorf("expected sequencer reseeded to %d, got %d", seq.Last(), seq2.Last())
	}
}

func TestSnapshot_SequencerContinuesAfterRestore(t *testing.T) {
	ctx := context.Background()
	dir, seq := buildState(t)

	snap, err := dir.Export(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	seq2 := ledger.NewSequencer()
	dir2 := ledger.NewDirectory(seq2)
	if err := dir2.Restore(snap); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	a, _ := dir2.Account("AC001")
	tx, err := a.Deposit(ctx, decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := ledger.FormatSequenceID(seq.Last() + 1)
	if tx.SequenceID != want {
		t.Errorf("expected next id '%s', got '%s'", want, tx.SequenceID)
	}
}

func TestSnapshot_ExportDeterministic(t *testing.T) {
	ctx := context.Background()
	dir, _ := buildState(t)

	first, err := dir.Export(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := dir.Export(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(first.Customers) != len(second.Customers) ||
		len(first.Accounts) != len(second.Accounts) ||
		len(first.Transactions) != len(second.Transactions) {
		t.Fatal("expected identical row counts across exports")
	}
	for i := range first.Transactions {
		if first.Transactions[i].SequenceID != second.Transactions[i].SequenceID {
			t.Fatalf("expected stable transaction order, diverged at row %d", i)
		}
	}
	for i := 1; i < len(first.Transactions); i++ {
		prev, _ := ledger.ParseSequenceID(first.Transactions[i-1].SequenceID)
		cur, _ := ledger.ParseSequenceID(first.Transactions[i].SequenceID)
		if cur <= prev {
			t.Fatalf("expected transactions sorted by sequence id, got %d after %d", cur, prev)
		}
	}
}

func TestSnapshot_CustomerWithoutAccountsDropped(t *testing.T) {
	dir := ledger.NewDirectory(ledger.NewSequencer())
	if _, err := dir.CreateCustomer("Ghost", 30, "hash"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	snap, err := dir.Export(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(snap.Customers) != 0 {
		t.Errorf("expected no customer rows, got %d", len(snap.Customers))
	}
}

func TestSnapshot_RestorePreservesIDSpace(t *testing.T) {
	ctx := context.Background()
	dir, _ := buildState(t)

	snap, err := dir.Export(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	dir2 := ledger.NewDirectory(ledger.NewSequencer())
	if err := dir2.Restore(snap); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// New ids continue after the restored ones.
	c, err := dir2.CreateCustomer("Carol", 40, "hash-c")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.ID != "C003" {
		t.Errorf("expected 'C003', got '%s'", c.ID)
	}
	a, err := dir2.OpenAccount(c.ID, domain.KindChecking)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if a.ID() != "AC004" {
		t.Errorf("expected 'AC004', got '%s'", a.ID())
	}
}
