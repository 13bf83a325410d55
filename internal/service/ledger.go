package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/bkramer/bank-ledger-go/internal/domain"
	"github.com/bkramer/bank-ledger-go/internal/infra/observability"
	"github.com/bkramer/bank-ledger-go/internal/infra/resilience"
	"github.com/bkramer/bank-ledger-go/internal/ledger"
	"github.com/bkramer/bank-ledger-go/internal/port"
)

var ledgerTracer = otel.Tracer("service/ledger")

// LedgerService orchestrates ledger operations: it resolves entities
// through the directory, applies account/transfer operations under their
// lock-wait budget, and commits the full state after every mutation.
// A commit failure is surfaced to the caller even though the in-memory
// mutation already happened; the caller owns the retry decision.
type LedgerService struct {
	dir       *ledger.Directory
	transfers *ledger.TransferCoordinator
	auth      *AuthService
	store     port.LedgerStore
	breaker   *gobreaker.CircuitBreaker
	retry     resilience.Config
	lockWait  time.Duration
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewLedgerService creates the ledger use-case layer.
func NewLedgerService(
	dir *ledger.Directory,
	transfers *ledger.TransferCoordinator,
	auth *AuthService,
	store port.LedgerStore,
	breaker *gobreaker.CircuitBreaker,
	retry resilience.Config,
	lockWait time.Duration,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		dir:       dir,
		transfers: transfers,
		auth:      auth,
		store:     store,
		breaker:   breaker,
		retry:     retry,
		lockWait:  lockWait,
		metrics:   metrics,
		logger:    logger,
	}
}

// lockCtx bounds how long an operation may wait for account locks.
func (s *LedgerService) lockCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.lockWait)
}

// ============================================================
// Customers
// ============================================================

// CreateCustomer registers a new customer with a hashed PIN.
func (s *LedgerService) CreateCustomer(ctx context.Context, name string, age int, pin string) (*domain.Customer, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateCustomer")
	defer span.End()

	hash, err := s.auth.HashPIN(pin)
	if err != nil {
		return nil, err
	}
	c, err := s.dir.CreateCustomer(name, age, hash)
	if err != nil {
		return nil, err
	}
	s.logger.Info("customer created",
		zap.String("customer_id", c.ID),
		zap.Int("age", age),
	)
	if err := s.commit(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// GetCustomer returns the customer profile with owned-account summaries
// in acquisition order.
func (s *LedgerService) GetCustomer(ctx context.Context, customerID string) (*domain.CustomerView, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetCustomer")
	defer span.End()

	c, err := s.dir.Customer(customerID)
	if err != nil {
		return nil, err
	}
	view := &domain.CustomerView{
		ID:       c.ID,
		Name:     c.Name,
		Age:      c.Age,
		Accounts: make([]domain.AccountView, 0, len(c.Accounts)),
	}
	lctx, cancel := s.lockCtx(ctx)
	defer cancel()
	for _, accID := range c.Accounts {
		a, err := s.dir.Account(accID)
		if err != nil {
			return nil, err
		}
		av, err := a.View(lctx)
		if err != nil {
			return nil, err
		}
		view.Accounts = append(view.Accounts, av)
	}
	return view, nil
}

// ChangePIN replaces the customer's credential after the current PIN
// verifies.
func (s *LedgerService) ChangePIN(ctx context.Context, customerID, oldPIN, newPIN string) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ChangePIN")
	defer span.End()

	if err := s.auth.VerifyPIN(ctx, customerID, oldPIN); err != nil {
		return err
	}
	hash, err := s.auth.HashPIN(newPIN)
	if err != nil {
		return err
	}
	if err := s.dir.SetPINHash(customerID, hash); err != nil {
		return err
	}
	s.logger.Info("pin changed", zap.String("customer_id", customerID))
	return s.commit(ctx)
}

// ============================================================
// Accounts
// ============================================================

// OpenAccount opens a Savings or Checking account for the customer,
// subject to the age gate.
func (s *LedgerService) OpenAccount(ctx context.Context, customerID string, kind domain.AccountKind) (domain.AccountView, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.OpenAccount")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID), attribute.String("account.kind", string(kind)))

	a, err := s.dir.OpenAccount(customerID, kind)
	if err != nil {
		s.countRejection(err)
		return domain.AccountView{}, err
	}
	s.logger.Info("account opened",
		zap.String("customer_id", customerID),
		zap.String("account_id", a.ID()),
		zap.String("kind", string(kind)),
	)
	if err := s.commit(ctx); err != nil {
		return domain.AccountView{}, err
	}
	lctx, cancel := s.lockCtx(ctx)
	defer cancel()
	return a.View(lctx)
}

// CloseAccount removes the account from the customer's owned set after
// PIN verification. The account record and its history are retained.
func (s *LedgerService) CloseAccount(ctx context.Context, customerID, accountID, pin string) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CloseAccount")
	defer span.End()

	if err := s.auth.VerifyPIN(ctx, customerID, pin); err != nil {
		return err
	}
	if err := s.dir.CloseAccount(customerID, accountID); err != nil {
		return err
	}
	s.logger.Info("account closed",
		zap.String("customer_id", customerID),
		zap.String("account_id", accountID),
	)
	return s.commit(ctx)
}

// GetAccount returns the account's externally visible state.
func (s *LedgerService) GetAccount(ctx context.Context, accountID string) (domain.AccountView, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetAccount")
	defer span.End()

	a, err := s.dir.Account(accountID)
	if err != nil {
		return domain.AccountView{}, err
	}
	lctx, cancel := s.lockCtx(ctx)
	defer cancel()
	return a.View(lctx)
}

// OwnsAccount verifies the account is in the customer's owned set. Closed
// (orphaned) accounts are not owned by anyone, so they fail this check
// even though their records still exist.
func (s *LedgerService) OwnsAccount(ctx context.Context, customerID, accountID string) error {
	c, err := s.dir.Customer(customerID)
	if err != nil {
		return err
	}
	for _, id := range c.Accounts {
		if id == accountID {
			return nil
		}
	}
	return &domain.ErrNotFound{Resource: "account", ID: accountID}
}

// ============================================================
// Ledger operations
// ============================================================

// Deposit credits a positive amount to the account.
func (s *LedgerService) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Deposit")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	start := time.Now()
	defer func() { s.metrics.RecordOperationDuration("deposit", time.Since(start)) }()

	a, err := s.dir.Account(accountID)
	if err != nil {
		return domain.Transaction{}, err
	}
	lctx, cancel := s.lockCtx(ctx)
	defer cancel()
	tx, err := a.Deposit(lctx, amount)
	if err != nil {
		s.countRejection(err)
		return domain.Transaction{}, err
	}
	s.metrics.IncrTransaction(string(tx.Kind))
	s.logger.Info("deposit",
		zap.String("account_id", accountID),
		zap.String("sequence_id", tx.SequenceID),
		zap.String("amount", amount.String()),
	)
	if err := s.commit(ctx); err != nil {
		return domain.Transaction{}, err
	}
	return tx, nil
}

// Withdraw debits a positive amount, subject to the account variant's
// rules.
func (s *LedgerService) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Withdraw")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	start := time.Now()
	defer func() { s.metrics.RecordOperationDuration("withdraw", time.Since(start)) }()

	a, err := s.dir.Account(accountID)
	if err != nil {
		return domain.Transaction{}, err
	}
	lctx, cancel := s.lockCtx(ctx)
	defer cancel()
	tx, err := a.Withdraw(lctx, amount)
	if err != nil {
		s.countRejection(err)
		return domain.Transaction{}, err
	}
	s.metrics.IncrTransaction(string(tx.Kind))
	s.logger.Info("withdrawal",
		zap.String("account_id", accountID),
		zap.String("sequence_id", tx.SequenceID),
		zap.String("amount", amount.String()),
	)
	if err := s.commit(ctx); err != nil {
		return domain.Transaction{}, err
	}
	return tx, nil
}

// Transfer moves amount between two accounts as one atomic unit.
func (s *LedgerService) Transfer(ctx context.Context, sourceID, destinationID string, amount decimal.Decimal) (*domain.TransferReceipt, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Transfer")
	defer span.End()
	span.SetAttributes(
		attribute.String("transfer.source", sourceID),
		attribute.String("transfer.destination", destinationID),
	)

	start := time.Now()
	defer func() { s.metrics.RecordOperationDuration("transfer", time.Since(start)) }()

	src, err := s.dir.Account(sourceID)
	if err != nil {
		return nil, err
	}
	dst, err := s.dir.Account(destinationID)
	if err != nil {
		return nil, err
	}
	lctx, cancel := s.lockCtx(ctx)
	defer cancel()
	receipt, err := s.transfers.Transfer(lctx, src, dst, amount)
	if err != nil {
		s.countRejection(err)
		return nil, err
	}
	// One logical operation, two records
	s.metrics.IncrTransaction(string(domain.TxTransfer))
	s.logger.Info("transfer",
		zap.String("reference", receipt.Reference),
		zap.String("source", sourceID),
		zap.String("destination", destinationID),
		zap.String("amount", amount.String()),
	)
	if err := s.commit(ctx); err != nil {
		return nil, err
	}
	return receipt, nil
}

// Statement returns the n most recent transactions with the current
// balance. n <= 0 uses the default view size.
func (s *LedgerService) Statement(ctx context.Context, accountID string, n int) (*domain.StatementView, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Statement")
	defer span.End()

	a, err := s.dir.Account(accountID)
	if err != nil {
		return nil, err
	}
	lctx, cancel := s.lockCtx(ctx)
	defer cancel()
	txs, err := a.Recent(lctx, n)
	if err != nil {
		return nil, err
	}
	balance, err := a.Balance(lctx)
	if err != nil {
		return nil, err
	}
	return &domain.StatementView{
		AccountID:    accountID,
		Balance:      balance,
		Transactions: txs,
	}, nil
}

// ============================================================
// Commit
// ============================================================

// commit exports the full state and writes it through the persistence
// gateway with retry and a circuit breaker. Called after every mutation;
// also invoked once at shutdown via Commit.
func (s *LedgerService) commit(ctx context.Context) error {
	lctx, cancel := s.lockCtx(ctx)
	defer cancel()
	snap, err := s.dir.Export(lctx)
	if err != nil {
		return err
	}

	_, err = s.breaker.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, s.retry, func() error {
			return s.store.Save(ctx, snap)
		})
	})
	if err != nil {
		s.metrics.IncrCommit("failure")
		s.logger.Error("commit failed", zap.Error(err))
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("persistence unavailable: %w", err)
		}
		return fmt.Errorf("commit: %w", err)
	}
	s.metrics.IncrCommit("success")
	return nil
}

// Commit forces a full-state write, used at shutdown.
func (s *LedgerService) Commit(ctx context.Context) error {
	return s.commit(ctx)
}

// countRejection maps business-rule errors to the rejection counter.
func (s *LedgerService) countRejection(err error) {
	var (
		invalidAmount *domain.ErrInvalidAmount
		insufficient  *domain.ErrInsufficientFunds
		belowMin      *domain.ErrBelowMinimumBalance
		monthlyLimit  *domain.ErrMonthlyLimitExceeded
		ineligible    *domain.ErrIneligibleAge
		busy          *domain.ErrBusy
	)
	switch {
	case errors.As(err, &invalidAmount):
		s.metrics.IncrRejection("invalid_amount")
	case errors.As(err, &insufficient):
		s.metrics.IncrRejection("insufficient_funds")
	case errors.As(err, &belowMin):
		s.metrics.IncrRejection("below_minimum_balance")
	case errors.As(err, &monthlyLimit):
		s.metrics.IncrRejection("monthly_limit")
	case errors.As(err, &ineligible):
		s.metrics.IncrRejection("ineligible_age")
	case errors.As(err, &busy):
		s.metrics.IncrRejection("busy")
	}
}
