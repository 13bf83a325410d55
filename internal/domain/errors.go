package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Error types for consistent error handling across the ledger. All business
// rule failures are recoverable: the caller decides retry or abort.

// ErrNotFound indicates an unknown customer or account identifier.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrInvalidAmount indicates a non-positive amount was requested for a
// deposit, withdrawal or transfer.
type ErrInvalidAmount struct {
	Amount decimal.Decimal
}

func (e *ErrInvalidAmount) Error() string {
	return fmt.Sprintf("invalid amount: %s (must be positive)", e.Amount)
}

// ErrInsufficientFunds indicates a Savings withdrawal or transfer would
// drive the balance below zero.
type ErrInsufficientFunds struct {
	AccountID string
	Available decimal.Decimal
	Required  decimal.Decimal
}

func (e *ErrInsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient funds on %s: available=%s required=%s", e.AccountID, e.Available, e.Required)
}

// ErrBelowMinimumBalance indicates a Checking withdrawal or transfer would
// breach the account's configured floor.
type ErrBelowMinimumBalance struct {
	AccountID string
	Floor     decimal.Decimal
	Resulting decimal.Decimal
}

func (e *ErrBelowMinimumBalance) Error() string {
	return fmt.Sprintf("balance on %s would fall to %s, below minimum %s", e.AccountID, e.Resulting, e.Floor)
}

// ErrMonthlyLimitExceeded indicates a Savings account was already debited
// within the last 30 days.
type ErrMonthlyLimitExceeded struct {
	AccountID string
	LastDebit string // date of the blocking debit, YYYY-MM-DD
}

func (e *ErrMonthlyLimitExceeded) Error() string {
	return fmt.Sprintf("savings account %s already debited on %s: one debit per 30 days", e.AccountID, e.LastDebit)
}

// ErrIneligibleAge indicates the account-opening age requirement was not met.
type ErrIneligibleAge struct {
	Kind       AccountKind
	Age        int
	RequiredAt int
}

func (e *ErrIneligibleAge) Error() string {
	return fmt.Sprintf("must be %d or older to open a %s account (age %d)", e.RequiredAt, e.Kind, e.Age)
}

// ErrAuthenticationFailed indicates a PIN mismatch or an invalid token.
type ErrAuthenticationFailed struct {
	Message string
}

func (e *ErrAuthenticationFailed) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "authentication failed"
}

// ErrBusy indicates an account lock could not be acquired within the
// configured wait budget.
type ErrBusy struct {
	AccountID string
}

func (e *ErrBusy) Error() string {
	return fmt.Sprintf("account %s is busy, try again", e.AccountID)
}

// ErrValidation indicates malformed input (bad field shape, unknown kind).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}
