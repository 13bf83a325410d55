// Package ledger implements the account ledger core: the transaction
// sequencer, accounts with variant-specific debit rules, the cross-account
// transfer coordinator and the customer directory.
package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// sequenceBase is the counter value the sequencer starts from. The first id
// ever issued is therefore TRX002, matching the restore-then-increment
// contract of the persisted data (TRX001 is the reserved base marker).
const sequenceBase = 1

// Sequencer issues globally unique, strictly increasing transaction ids.
// Safe for concurrent use: ids are handed out under a single lock, so two
// operations can never observe the same id.
type Sequencer struct {
	mu   sync.Mutex
	last uint64
}

// NewSequencer creates a sequencer seeded at the fixed base.
func NewSequencer() *Sequencer {
	return &Sequencer{last: sequenceBase}
}

// Next allocates and returns a fresh sequence id.
func (s *Sequencer) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	return FormatSequenceID(s.last)
}

// Seed advances the counter to the given id if it is ahead of the current
// position. Called during state restore with every persisted id, so the
// sequencer continues from max(seen)+1 and never reuses an id.
func (s *Sequencer) Seed(id string) error {
	n, err := ParseSequenceID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > s.last {
		s.last = n
	}
	return nil
}

// Last returns the most recently issued (or seeded) counter value.
func (s *Sequencer) Last() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// FormatSequenceID renders a counter value as a TRX-prefixed code,
// zero-padded to three digits (wider values keep all their digits).
func FormatSequenceID(n uint64) string {
	return fmt.Sprintf("TRX%03d", n)
}

// ParseSequenceID extracts the counter value from a TRX-prefixed code.
func ParseSequenceID(id string) (uint64, error) {
	raw, ok := strings.CutPrefix(id, "TRX")
	if !ok {
		return 0, fmt.Errorf("malformed sequence id %q", id)
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed sequence id %q: %w", id, err)
	}
	return n, nil
}
