// Package flatfile persists the ledger as three space-separated tables:
// customers, accounts and transactions. Writes are atomic (tmp file +
// rename) so a crash mid-save never leaves a corrupt table behind, and the
// three tables are written concurrently.
package flatfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bkramer/bank-ledger-go/internal/domain"
)

const (
	customersFile    = "customers.txt"
	accountsFile     = "accounts.txt"
	transactionsFile = "accountsTransactions.txt"
)

// Store reads and writes the ledger snapshot under a data directory.
type Store struct {
	dir    string
	logger *zap.Logger
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// ============================================================
// Load
// ============================================================

// Load reads the three tables and assembles a snapshot. Missing files are
// treated as empty tables so a first run starts from a blank ledger.
func (s *Store) Load(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot

	if err := s.readLines(customersFile, func(line string) error {
		row, err := parseCustomerRow(line)
		if err != nil {
			return err
		}
		snap.Customers = append(snap.Customers, row)
		return nil
	}); err != nil {
		return domain.Snapshot{}, err
	}

	if err := s.readLines(accountsFile, func(line string) error {
		row, err := parseAccountRow(line)
		if err != nil {
			return err
		}
		snap.Accounts = append(snap.Accounts, row)
		return nil
	}); err != nil {
		return domain.Snapshot{}, err
	}

	if err := s.readLines(transactionsFile, func(line string) error {
		row, err := parseTransactionRow(line)
		if err != nil {
			return err
		}
		snap.Transactions = append(snap.Transactions, row)
		return nil
	}); err != nil {
		return domain.Snapshot{}, err
	}

	s.logger.Info("ledger state loaded",
		zap.String("dir", s.dir),
		zap.Int("customer_rows", len(snap.Customers)),
		zap.Int("accounts", len(snap.Accounts)),
		zap.Int("transactions", len(snap.Transactions)),
	)
	return snap, nil
}

func (s *Store) readLines(name string, fn func(line string) error) error {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := fn(line); err != nil {
			return fmt.Errorf("%s line %d: %w", name, lineNo, err)
		}
	}
	return scanner.Err()
}

// customers.txt: id name age pin-hash account-id. The name may contain
// spaces, so the row is parsed from both ends.
func parseCustomerRow(line string) (domain.CustomerRow, error) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return domain.CustomerRow{}, fmt.Errorf("expected 5 fields, got %d", len(fields))
	}
	n := len(fields)
	age, err := strconv.Atoi(fields[n-3])
	if err != nil {
		return domain.CustomerRow{}, fmt.Errorf("bad age: %w", err)
	}
	return domain.CustomerRow{
		ID:        fields[0],
		Name:      strings.Join(fields[1:n-3], " "),
		Age:       age,
		PINHash:   fields[n-2],
		AccountID: fields[n-1],
	}, nil
}

// accounts.txt: id kind balance [minimum-balance]. The floor column is
// present for Checking accounts only.
func parseAccountRow(line string) (domain.AccountRow, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return domain.AccountRow{}, fmt.Errorf("expected at least 3 fields, got %d", len(fields))
	}
	kind := domain.AccountKind(fields[1])
	if !kind.Valid() {
		return domain.AccountRow{}, fmt.Errorf("unknown account kind %q", fields[1])
	}
	balance, err := decimal.NewFromString(fields[2])
	if err != nil {
		return domain.AccountRow{}, fmt.Errorf("bad balance: %w", err)
	}
	row := domain.AccountRow{ID: fields[0], Kind: kind, Balance: balance}
	if len(fields) > 3 {
		floor, err := decimal.NewFromString(fields[3])
		if err != nil {
			return domain.AccountRow{}, fmt.Errorf("bad minimum balance: %w", err)
		}
		row.MinimumBalance = floor
	}
	return row, nil
}

// accountsTransactions.txt: sequence-id account-id date kind signed-amount
// [reference]. The amount keeps its explicit sign; the reference column is
// present on transfer legs only.
func parseTransactionRow(line string) (domain.TransactionRow, error) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return domain.TransactionRow{}, fmt.Errorf("expected at least 5 fields, got %d", len(fields))
	}
	date, err := time.Parse(time.DateOnly, fields[2])
	if err != nil {
		return domain.TransactionRow{}, fmt.Errorf("bad date: %w", err)
	}
	raw := fields[4]
	if !strings.HasPrefix(raw, "+") && !strings.HasPrefix(raw, "-") {
		return domain.TransactionRow{}, fmt.Errorf("amount %q missing explicit sign", raw)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return domain.TransactionRow{}, fmt.Errorf("bad amount: %w", err)
	}
	row := domain.TransactionRow{
		SequenceID: fields[0],
		AccountID:  fields[1],
		Date:       date,
		Kind:       domain.TransactionKind(fields[3]),
		Amount:     amount,
	}
	if len(fields) > 5 {
		row.Reference = fields[5]
	}
	return row, nil
}

// ============================================================
// Save
// ============================================================

// Save writes the snapshot out as the three tables. Each table is written
// to a temporary file and renamed into place; the tables are independent
// files, so they are written in parallel.
func (s *Store) Save(ctx context.Context, snap domain.Snapshot) error {
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		lines := make([]string, 0, len(snap.Customers))
		for _, row := range snap.Customers {
			lines = append(lines, fmt.Sprintf("%s %s %d %s %s", row.ID, row.Name, row.Age, row.PINHash, row.AccountID))
		}
		return s.writeAtomic(customersFile, lines)
	})

	g.Go(func() error {
		lines := make([]string, 0, len(snap.Accounts))
		for _, row := range snap.Accounts {
			if row.Kind == domain.KindChecking {
				lines = append(lines, fmt.Sprintf("%s %s %s %s", row.ID, row.Kind, row.Balance, row.MinimumBalance))
			} else {
				lines = append(lines, fmt.Sprintf("%s %s %s", row.ID, row.Kind, row.Balance))
			}
		}
		return s.writeAtomic(accountsFile, lines)
	})

	g.Go(func() error {
		lines := make([]string, 0, len(snap.Transactions))
		for _, row := range snap.Transactions {
			line := fmt.Sprintf("%s %s %s %s %s",
				row.SequenceID, row.AccountID, row.Date.Format(time.DateOnly), row.Kind, signedAmount(row.Amount))
			if row.Reference != "" {
				line += " " + row.Reference
			}
			lines = append(lines, line)
		}
		return s.writeAtomic(transactionsFile, lines)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Debug("ledger state saved",
		zap.String("dir", s.dir),
		zap.Int("transactions", len(snap.Transactions)),
	)
	return nil
}

func (s *Store) writeAtomic(name string, lines []string) error {
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("flush %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// signedAmount renders a decimal with an explicit sign, as the
// transactions table requires.
func signedAmount(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.String()
	}
	return "+" + d.String()
}
