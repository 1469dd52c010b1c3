// Package inventory implements the inventory ledger: the per-resource
// record of which discrete units are confirmed-occupied.  The ledger
// is the only component allowed to mutate the occupied set, and it
// does so under mutual exclusion scoped to a single resource instance
// so unrelated resources never block each other.
package inventory

import (
    "context"
    "errors"
)

// ErrDuplicateUnit is returned by Store.Add when the backing storage
// rejects a unit that is already occupied by a different transaction.
// The SQL backend surfaces this via its unique index, which acts as a
// second safety net under the ledger's own locking.
var ErrDuplicateUnit = errors.New("inventory: unit already occupied")

// OccupiedUnit is one confirmed-occupied unit together with the
// transaction that committed it.  The owner id makes finalize retries
// idempotent: re-adding a unit already owned by the same transaction
// is a no-op, not a conflict.
type OccupiedUnit struct {
    Unit          string
    TransactionID string
}

// Store is the persistence backend for the ledger.  Implementations
// must be safe for concurrent use; the ledger additionally serializes
// mutations per resource instance, so Add/Remove for the same
// (resourceID, travelDate) pair never race in-process.
type Store interface {
    // Occupied returns all confirmed-occupied units for one resource
    // instance.
    Occupied(ctx context.Context, resourceID uint64, travelDate string) ([]OccupiedUnit, error)
    // Add records units as occupied by the given transaction.  Units
    // already owned by the same transaction must be skipped silently.
    Add(ctx context.Context, resourceID uint64, travelDate string, units []string, transactionID string) error
    // Remove deletes units from the occupied set.  Removing absent
    // units is a no-op.
    Remove(ctx context.Context, resourceID uint64, travelDate string, units []string) error
}
