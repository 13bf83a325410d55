package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bkramer/bank-ledger-go/internal/domain"
)

const (
	minSavingsAge  = 14
	minCheckingAge = 18

	customerIDPrefix = "C"
	accountIDPrefix  = "AC"
)

// Directory owns the customer records and the customer → account ownership
// relation. Accounts are independently addressable: a customer owns
// references to accounts, not the accounts themselves, so closing an
// account only removes the reference while the account record (and its
// transaction history) stays in the registry.
type Directory struct {
	mu        sync.RWMutex
	customers map[string]*domain.Customer
	accounts  map[string]*Account

	seq   *Sequencer
	clock func() time.Time
}

// Option configures a Directory.
type Option func(*Directory)

// WithClock overrides the time source (used by tests to place debits in
// the past relative to "today").
func WithClock(clock func() time.Time) Option {
	return func(d *Directory) { d.clock = clock }
}

// NewDirectory creates an empty directory issuing transaction ids from seq.
func NewDirectory(seq *Sequencer, opts ...Option) *Directory {
	d := &Directory{
		customers: make(map[string]*domain.Customer),
		accounts:  make(map[string]*Account),
		seq:       seq,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CreateCustomer registers a new customer and allocates the next customer
// id. The PIN arrives already hashed; the directory never sees cleartext.
func (d *Directory) CreateCustomer(name string, age int, pinHash string) (*domain.Customer, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "required"}
	}
	if age < 0 {
		return nil, &domain.ErrValidation{Field: "age", Message: "must not be negative"}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	c := &domain.Customer{
		ID:      d.nextID(customerIDPrefix),
		Name:    name,
		Age:     age,
		PINHash: pinHash,
	}
	d.customers[c.ID] = c
	return copyCustomer(c), nil
}

// Customer returns a copy of the customer record.
func (d *Directory) Customer(id string) (*domain.Customer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.customers[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "customer", ID: id}
	}
	return copyCustomer(c), nil
}

// PINHash exposes the stored credential hash to the authenticator.
func (d *Directory) PINHash(customerID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.customers[customerID]
	if !ok {
		return "", &domain.ErrNotFound{Resource: "customer", ID: customerID}
	}
	return c.PINHash, nil
}

// SetPINHash replaces the stored credential hash.
func (d *Directory) SetPINHash(customerID, hash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.customers[customerID]
	if !ok {
		return &domain.ErrNotFound{Resource: "customer", ID: customerID}
	}
	c.PINHash = hash
	return nil
}

// Account resolves an account id.
func (d *Directory) Account(id string) (*Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.accounts[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: id}
	}
	return a, nil
}

// OpenAccount creates a new account of the given kind for the customer,
// gated by age: Savings from 14, Checking from 18. The fresh account id is
// the numerically next one in the existing id space, and the reference is
// appended to the customer's owned list in acquisition order.
func (d *Directory) OpenAccount(customerID string, kind domain.AccountKind) (*Account, error) {
	if !kind.Valid() {
		return nil, &domain.ErrValidation{Field: "kind", Message: fmt.Sprintf("unknown account kind %q", kind)}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.customers[customerID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "customer", ID: customerID}
	}

	required := minSavingsAge
	if kind == domain.KindChecking {
		required = minCheckingAge
	}
	if c.Age < required {
		return nil, &domain.ErrIneligibleAge{Kind: kind, Age: c.Age, RequiredAt: required}
	}

	minBalance := decimal.Zero // unused by the savings policy
	if kind == domain.KindChecking {
		minBalance = defaultMinimumBalance
	}
	a := newAccount(d.nextID(accountIDPrefix), kind, minBalance, d.seq, d.clock)
	d.accounts[a.id] = a
	c.Accounts = append(c.Accounts, a.id)
	return a, nil
}

// CloseAccount removes the account reference from the customer's owned
// list. The account record itself is kept in the registry with its full
// transaction history: closed accounts are orphaned, not deleted.
func (d *Directory) CloseAccount(customerID, accountID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.customers[customerID]
	if !ok {
		return &domain.ErrNotFound{Resource: "customer", ID: customerID}
	}
	for i, id := range c.Accounts {
		if id == accountID {
			c.Accounts = append(c.Accounts[:i], c.Accounts[i+1:]...)
			return nil
		}
	}
	return &domain.ErrNotFound{Resource: "account", ID: accountID}
}

// nextID allocates the numerically next id with the given prefix across
// the relevant id space. Must be called with d.mu held.
func (d *Directory) nextID(prefix string) string {
	max := uint64(0)
	scan := func(id string) {
		raw, ok := strings.CutPrefix(id, prefix)
		if !ok {
			return
		}
		if n, err := strconv.ParseUint(raw, 10, 64); err == nil && n > max {
			max = n
		}
	}
	if prefix == accountIDPrefix {
		for id := range d.accounts {
			scan(id)
		}
	} else {
		for id := range d.customers {
			scan(id)
		}
	}
	return fmt.Sprintf("%s%03d", prefix, max+1)
}

func copyCustomer(c *domain.Customer) *domain.Customer {
	cp := *c
	cp.Accounts = append([]string(nil), c.Accounts...)
	return &cp
}
