package inventory

import (
    "context"
    "fmt"
    "sync"
)

// MemoryStore keeps the occupied set in process memory.  It backs the
// ledger in tests and in deployments without a database; production
// uses the SQL store in the repository package.
type MemoryStore struct {
    mu       sync.RWMutex
    occupied map[string]map[string]string // instance key -> unit -> owning transaction
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
    return &MemoryStore{occupied: make(map[string]map[string]string)}
}

func instanceKey(resourceID uint64, travelDate string) string {
    return fmt.Sprintf("%d|%s", resourceID, travelDate)
}

// Occupied returns the occupied units for one resource instance.
func (m *MemoryStore) Occupied(ctx context.Context, resourceID uint64, travelDate string) ([]OccupiedUnit, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    units := m.occupied[instanceKey(resourceID, travelDate)]
    out := make([]OccupiedUnit, 0, len(units))
    for u, txn := range units {
        out = append(out, OccupiedUnit{Unit: u, TransactionID: txn})
    }
    return out, nil
}

// Add records units as occupied.  Units already owned by the same
// transaction are skipped; units owned by another transaction return
// ErrDuplicateUnit without partial mutation.
func (m *MemoryStore) Add(ctx context.Context, resourceID uint64, travelDate string, units []string, transactionID string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    key := instanceKey(resourceID, travelDate)
    set := m.occupied[key]
    if set == nil {
        set = make(map[string]string)
        m.occupied[key] = set
    }
    for _, u := range units {
        if owner, ok := set[u]; ok && owner != transactionID {
            return ErrDuplicateUnit
        }
    }
    for _, u := range units {
        set[u] = transactionID
    }
    return nil
}

// Remove deletes units from the occupied set.  Absent units are ignored.
func (m *MemoryStore) Remove(ctx context.Context, resourceID uint64, travelDate string, units []string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    set := m.occupied[instanceKey(resourceID, travelDate)]
    for _, u := range units {
        delete(set, u)
    }
    return nil
}
