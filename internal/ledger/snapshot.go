package ledger

import (
	"context"
	"sort"

	"github.com/bkramer/bank-ledger-go/internal/domain"
)

// Export captures the full ledger state as a snapshot for persistence.
// Output is deterministic: customers and accounts sorted by id, customer
// rows expanded one per owned account in acquisition order, transactions
// ordered by sequence id. Customers without any open account produce no
// rows, matching the persisted table format.
func (d *Directory) Export(ctx context.Context) (domain.Snapshot, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var snap domain.Snapshot

	customerIDs := make([]string, 0, len(d.customers))
	for id := range d.customers {
		customerIDs = append(customerIDs, id)
	}
	sort.Strings(customerIDs)
	for _, id := range customerIDs {
		c := d.customers[id]
		for _, accID := range c.Accounts {
			snap.Customers = append(snap.Customers, domain.CustomerRow{
				ID:        c.ID,
				Name:      c.Name,
				Age:       c.Age,
				PINHash:   c.PINHash,
				AccountID: accID,
			})
		}
	}

	accountIDs := make([]string, 0, len(d.accounts))
	for id := range d.accounts {
		accountIDs = append(accountIDs, id)
	}
	sort.Strings(accountIDs)
	for _, id := range accountIDs {
		a := d.accounts[id]
		if err := a.acquire(ctx); err != nil {
			return domain.Snapshot{}, err
		}
		snap.Accounts = append(snap.Accounts, domain.AccountRow{
			ID:             a.id,
			Kind:           a.kind,
			Balance:        a.balance,
			MinimumBalance: a.minBalance,
		})
		for _, tx := range a.log {
			snap.Transactions = append(snap.Transactions, domain.TransactionRow{
				SequenceID: tx.SequenceID,
				AccountID:  tx.AccountID,
				Date:       tx.Date,
				Kind:       tx.Kind,
				Amount:     tx.Amount,
				Reference:  tx.Reference,
			})
		}
		a.release()
	}

	sort.Slice(snap.Transactions, func(i, j int) bool {
		a, _ := ParseSequenceID(snap.Transactions[i].SequenceID)
		b, _ := ParseSequenceID(snap.Transactions[j].SequenceID)
		return a < b
	})

	return snap, nil
}

// Restore rebuilds the in-memory graph from a snapshot and re-seeds the
// sequencer from the maximum observed transaction id. Meant for startup,
// before any operations run.
func (d *Directory) Restore(snap domain.Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.customers = make(map[string]*domain.Customer)
	d.accounts = make(map[string]*Account)

	for _, row := range snap.Accounts {
		a := newAccount(row.ID, row.Kind, row.MinimumBalance, d.seq, d.clock)
		a.balance = row.Balance
		d.accounts[row.ID] = a
	}

	for _, row := range snap.Customers {
		c, ok := d.customers[row.ID]
		if !ok {
			c = &domain.Customer{ID: row.ID, Name: row.Name, Age: row.Age, PINHash: row.PINHash}
			d.customers[row.ID] = c
		}
		if row.AccountID != "" {
			c.Accounts = append(c.Accounts, row.AccountID)
		}
	}

	for _, row := range snap.Transactions {
		if err := d.seq.Seed(row.SequenceID); err != nil {
			return err
		}
		a, ok := d.accounts[row.AccountID]
		if !ok {
			return &domain.ErrNotFound{Resource: "account", ID: row.AccountID}
		}
		// Logs are appended as recorded; the balance is authoritative from
		// the accounts table.
		a.log = append(a.log, domain.Transaction{
			SequenceID: row.SequenceID,
			AccountID:  row.AccountID,
			Date:       row.Date,
			Kind:       row.Kind,
			Amount:     row.Amount,
			Reference:  row.Reference,
		})
	}

	return nil
}
