// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the ledger core
// and service layer from concrete implementations.
package port

import (
	"context"

	"github.com/bkramer/bank-ledger-go/internal/domain"
)

// LedgerStore is the persistence gateway. Load runs once at startup to
// rebuild in-memory state; Save runs at each commit point with the full
// current state. Durability mid-operation is not assumed: the caller owns
// the commit boundary.
type LedgerStore interface {
	Load(ctx context.Context) (domain.Snapshot, error)
	Save(ctx context.Context, snap domain.Snapshot) error
}

// Cache provides generic caching with TTL. Used for transient auth state
// (failed-attempt tracking), never for ledger data.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
