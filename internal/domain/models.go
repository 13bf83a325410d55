// Package domain defines the core business entities for the banking ledger.
// These models are independent of external services and represent the
// canonical data structures used throughout the system.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Account kinds
// ============================================================

// AccountKind is the closed set of account variants.
type AccountKind string

const (
	KindSavings  AccountKind = "Savings"
	KindChecking AccountKind = "Checking"
)

// Valid reports whether the kind is one of the known variants.
func (k AccountKind) Valid() bool {
	return k == KindSavings || k == KindChecking
}

// ============================================================
// Transactions
// ============================================================

// TransactionKind classifies a ledger record.
type TransactionKind string

const (
	TxDeposit  TransactionKind = "Deposit"
	TxWithdraw TransactionKind = "Withdraw"
	TxTransfer TransactionKind = "Transfer"
)

// Transaction is an immutable ledger record. Amount is signed:
// positive = credit, negative = debit. Once appended to an account's
// log a transaction is never mutated or removed.
type Transaction struct {
	SequenceID string          `json:"sequence_id"`
	AccountID  string          `json:"account_id"`
	Date       time.Time       `json:"date"`
	Kind       TransactionKind `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	// Reference groups the two legs of a transfer; empty otherwise.
	Reference string `json:"reference,omitempty"`
}

// IsDebit reports whether the record decreased the account's balance.
func (t Transaction) IsDebit() bool {
	return t.Kind != TxDeposit && t.Amount.IsNegative()
}

// ============================================================
// Customers
// ============================================================

// Customer holds identity data and the ordered list of owned account ids
// (acquisition order, relevant for display only). The PIN is stored as a
// bcrypt hash and never leaves the auth service.
type Customer struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Age      int      `json:"age"`
	PINHash  string   `json:"-"`
	Accounts []string `json:"accounts"`
}

// ============================================================
// Views (API responses)
// ============================================================

// AccountView is the externally visible shape of an account.
type AccountView struct {
	ID             string           `json:"id"`
	Kind           AccountKind      `json:"kind"`
	Balance        decimal.Decimal  `json:"balance"`
	MinimumBalance *decimal.Decimal `json:"minimum_balance,omitempty"`
}

// CustomerView is a customer profile plus owned-account summaries,
// in acquisition order.
type CustomerView struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Age      int           `json:"age"`
	Accounts []AccountView `json:"accounts"`
}

// StatementView is the result of a recent-transactions query. Transactions
// is empty (not nil) when the account has no history yet.
type StatementView struct {
	AccountID    string          `json:"account_id"`
	Balance      decimal.Decimal `json:"balance"`
	Transactions []Transaction   `json:"transactions"`
}

// TransferReceipt describes a completed transfer: the debit and credit legs
// share a Reference and carry distinct sequence ids.
type TransferReceipt struct {
	Reference            string          `json:"reference"`
	SourceAccountID      string          `json:"source_account_id"`
	DestinationAccountID string          `json:"destination_account_id"`
	Amount               decimal.Decimal `json:"amount"`
	DebitSequenceID      string          `json:"debit_sequence_id"`
	CreditSequenceID     string          `json:"credit_sequence_id"`
	Date                 time.Time       `json:"date"`
}

// ============================================================
// Persistence snapshot
// ============================================================

// Snapshot is the full serializable state of the ledger: three logical
// tables keyed by identifier. A Load → rebuild → Save round-trip must be
// lossless and deterministic.
type Snapshot struct {
	Customers    []CustomerRow
	Accounts     []AccountRow
	Transactions []TransactionRow
}

// CustomerRow is one persisted customer/account ownership pair. A customer
// with n accounts produces n rows sharing id, name, age and pin hash.
type CustomerRow struct {
	ID        string
	Name      string
	Age       int
	PINHash   string
	AccountID string
}

// AccountRow is one persisted account.
type AccountRow struct {
	ID             string
	Kind           AccountKind
	Balance        decimal.Decimal
	MinimumBalance decimal.Decimal // Checking only
}

// TransactionRow is one persisted ledger record, in insertion order.
// Amount keeps its explicit sign when serialized.
type TransactionRow struct {
	SequenceID string
	AccountID  string
	Date       time.Time
	Kind       TransactionKind
	Amount     decimal.Decimal
	Reference  string
}
