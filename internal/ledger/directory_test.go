package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/bkramer/bank-ledger-go/internal/domain"
	"github.com/bkramer/bank-ledger-go/internal/ledger"
)

func TestDirectory_CreateCustomerAllocatesIDs(t *testing.T) {
	dir := ledger.NewDirectory(ledger.NewSequencer())

	first, err := dir.CreateCustomer("Alice Smith", 30, "hash")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := dir.CreateCustomer("Bob", 25, "hash")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if first.ID != "C001" {
		t.Errorf("expected 'C001', got '%s'", first.ID)
	}
	if second.ID != "C002" {
		t.Errorf("expected 'C002', got '%s'", second.ID)
	}
}

func TestDirectory_CreateCustomerValidation(t *testing.T) {
	dir := ledger.NewDirectory(ledger.NewSequencer())

	var validation *domain.ErrValidation
	if _, err := dir.CreateCustomer("  ", 30, "hash"); !errors.As(err, &validation) {
		t.Errorf("expected ErrValidation for blank name, got %v", err)
	}
	if _, err := dir.CreateCustomer("Alice", -1, "hash"); !errors.As(err, &validation) {
		t.Errorf("expected ErrValidation for negative age, got %v", err)
	}
}

func TestDirectory_CustomerNotFound(t *testing.T) {
	dir := ledger.NewDirectory(ledger.NewSequencer())

	_, err := dir.Customer("C999")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if notFound.Resource != "customer" {
		t.Errorf("expected resource 'customer', got '%s'", notFound.Resource)
	}
}

func TestDirectory_OpenAccountAgeGates(t *testing.T) {
	tests := []struct {
		name    string
		age     int
		kind    domain.AccountKind
		allowed bool
	}{
		{"savings at 13 rejected", 13, domain.KindSavings, false},
		{"savings at 14 allowed", 14, domain.KindSavings, true},
		{"checking at 17 rejected", 17, domain.KindChecking, false},
		{"checking at 18 allowed", 18, domain.KindChecking, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := ledger.NewDirectory(ledger.NewSequencer())
			c, err := dir.CreateCustomer("Kid", tt.age, "hash")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			_, err = dir.OpenAccount(c.ID, tt.kind)
			if tt.allowed && err != nil {
				t.Errorf("expected account to open, got %v", err)
			}
			if !tt.allowed {
				var ineligible *domain.ErrIneligibleAge
				if !errors.As(err, &ineligible) {
					t.Errorf("expected ErrIneligibleAge, got %v", err)
				}
			}
		})
	}
}

func TestDirectory_OpenAccountUnknownKind(t *testing.T) {
	dir := ledger.NewDirectory(ledger.NewSequencer())
	c, _ := dir.CreateCustomer("Alice", 30, "hash")

	_, err := dir.OpenAccount(c.ID, domain.AccountKind("Premium"))
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestDirectory_AccountIDsSequential(t *testing.T) {
	dir := ledger.NewDirectory(ledger.NewSequencer())
	alice, _ := dir.CreateCustomer("Alice", 30, "hash")
	bob, _ := dir.CreateCustomer("Bob", 30, "hash")

	a1, _ := dir.OpenAccount(alice.ID, domain.KindSavings)
	a2, _ := dir.OpenAccount(bob.ID, domain.KindChecking)
	a3, _ := dir.OpenAccount(alice.ID, domain.KindChecking)

	if a1.ID() != "AC001" || a2.ID() != "AC002" || a3.ID() != "AC003" {
		t.Errorf("expected AC001..AC003, got %s %s %s", a1.ID(), a2.ID(), a3.ID())
	}
}

func TestDirectory_CloseAccountKeepsRecord(t *testing.T) {
	dir := ledger.NewDirectory(ledger.NewSequencer())
	c, _ := dir.CreateCustomer("Alice", 30, "hash")
	a, _ := dir.OpenAccount(c.ID, domain.KindSavings)

	if _, err := a.Deposit(context.Background(), decimal.NewFromInt(100)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := dir.CloseAccount(c.ID, a.ID()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	updated, _ := dir.Customer(c.ID)
	if len(updated.Accounts) != 0 {
		t.Errorf("expected no owned accounts, got %v", updated.Accounts)
	}

	// The record itself stays addressable with its history.
	kept, err := dir.Account(a.ID())
	if err != nil {
		t.Fatalf("expected closed account to remain in the registry, got %v", err)
	}
	balance, _ := kept.Balance(context.Background())
	if !balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected history preserved with balance 100, got %s", balance)
	}
}

func TestDirectory_CloseAccountTwice(t *testing.T) {
	dir := ledger.NewDirectory(ledger.NewSequencer())
	c, _ := dir.CreateCustomer("Alice", 30, "hash")
	a, _ := dir.OpenAccount(c.ID, domain.KindSavings)

	if err := dir.CloseAccount(c.ID, a.ID()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	err := dir.CloseAccount(c.ID, a.ID())
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Errorf("expected ErrNotFound on second close, got %v", err)
	}
}

func TestDirectory_SetPINHash(t *testing.T) {
	dir := ledger.NewDirectory(ledger.NewSequencer())
	c, _ := dir.CreateCustomer("Alice", 30, "old-hash")

	if err := dir.SetPINHash(c.ID, "new-hash"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	hash, err := dir.PINHash(c.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if hash != "new-hash" {
		t.Errorf("expected 'new-hash', got '%s'", hash)
	}
}

func TestDirectory_CustomerCopyIsDetached(t *testing.T) {
	dir := ledger.NewDirectory(ledger.NewSequencer())
	c, _ := dir.CreateCustomer("Alice", 30, "hash")
	if _, err := dir.OpenAccount(c.ID, domain.KindSavings); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got, _ := dir.Customer(c.ID)
	got.Accounts[0] = "AC999"
	got.Name = "Mallory"

	again, _ := dir.Customer(c.ID)
	if again.Accounts[0] != "AC001" || again.Name != "Alice" {
		t.Error("expected returned customer to be a copy, registry was mutated")
	}
}
