package inventory

import (
    "context"
    "errors"
    "fmt"
    "sort"
    "strings"
    "sync"
)

// ConflictError reports which requested units were already occupied by
// a different transaction at reserve time.  It is a legitimate
// business outcome (the seat was sold while the traveler was at the
// gateway) and must be surfaced to a refund workflow, never swallowed.
type ConflictError struct {
    ResourceID uint64
    TravelDate string
    Units      []string
}

func (e *ConflictError) Error() string {
    return fmt.Sprintf("inventory conflict on resource %d (%s): units %s already occupied",
        e.ResourceID, e.TravelDate, strings.Join(e.Units, ","))
}

// Ledger coordinates reservation and release of units on top of a
// Store.  Mutations for one resource instance are serialized through a
// keyed mutex; different instances proceed independently.  Reads
// outside ReserveAtomically are advisory and must never gate a commit
// decision.
type Ledger struct {
    store Store

    mu    sync.Mutex
    locks map[string]*sync.Mutex
}

// NewLedger returns a ledger over the given store.
func NewLedger(store Store) *Ledger {
    if store == nil {
        panic("nil store passed to NewLedger")
    }
    return &Ledger{store: store, locks: make(map[string]*sync.Mutex)}
}

// lockFor returns the mutex guarding one resource instance, creating
// it on first use.  Locks are never removed; the map grows with the
// number of distinct instances, which is bounded by the catalog size.
func (l *Ledger) lockFor(resourceID uint64, travelDate string) *sync.Mutex {
    key := instanceKey(resourceID, travelDate)
    l.mu.Lock()
    defer l.mu.Unlock()
    m, ok := l.locks[key]
    if !ok {
        m = &sync.Mutex{}
        l.locks[key] = m
    }
    return m
}

// CheckAvailable reports whether none of the requested units are
// occupied, along with the currently occupied subset of the request.
// Side-effect-free and advisory only.
func (l *Ledger) CheckAvailable(ctx context.Context, resourceID uint64, travelDate string, units []string) (bool, []string, error) {
    occ, err := l.store.Occupied(ctx, resourceID, travelDate)
    if err != nil {
        return false, nil, err
    }
    taken := make(map[string]struct{}, len(occ))
    for _, o := range occ {
        taken[o.Unit] = struct{}{}
    }
    var conflicts []string
    for _, u := range units {
        if _, ok := taken[u]; ok {
            conflicts = append(conflicts, u)
        }
    }
    return len(conflicts) == 0, conflicts, nil
}

// ReserveAtomically adds units to the occupied set iff none of them is
// occupied by another transaction.  On overlap it returns a
// *ConflictError naming the contested units and mutates nothing.
// Units already owned by the same transaction are treated as reserved,
// which makes finalize retries idempotent.  Calls for the same
// resource instance are linearizable: exactly one caller wins each
// contested unit.
func (l *Ledger) ReserveAtomically(ctx context.Context, resourceID uint64, travelDate string, units []string, transactionID string) error {
    if len(units) == 0 {
        return errors.New("inventory: no units requested")
    }
    lock := l.lockFor(resourceID, travelDate)
    lock.Lock()
    defer lock.Unlock()

    occ, err := l.store.Occupied(ctx, resourceID, travelDate)
    if err != nil {
        return err
    }
    owners := make(map[string]string, len(occ))
    for _, o := range occ {
        owners[o.Unit] = o.TransactionID
    }
    var conflicts []string
    toAdd := make([]string, 0, len(units))
    for _, u := range units {
        owner, taken := owners[u]
        switch {
        case !taken:
            toAdd = append(toAdd, u)
        case owner != transactionID:
            conflicts = append(conflicts, u)
        }
    }
    if len(conflicts) > 0 {
        sort.Strings(conflicts)
        return &ConflictError{ResourceID: resourceID, TravelDate: travelDate, Units: conflicts}
    }
    if len(toAdd) == 0 {
        return nil // everything already owned by this transaction
    }
    if err := l.store.Add(ctx, resourceID, travelDate, toAdd, transactionID); err != nil {
        // The storage-level unique index caught a writer the in-process
        // lock could not see (another node).  Report it as a conflict.
        if errors.Is(err, ErrDuplicateUnit) {
            return &ConflictError{ResourceID: resourceID, TravelDate: travelDate, Units: units}
        }
        return err
    }
    return nil
}

// Release removes units from the occupied set.  Releasing units that
// are not occupied is a no-op, not an error.
func (l *Ledger) Release(ctx context.Context, resourceID uint64, travelDate string, units []string) error {
    if len(units) == 0 {
        return nil
    }
    lock := l.lockFor(resourceID, travelDate)
    lock.Lock()
    defer lock.Unlock()
    return l.store.Remove(ctx, resourceID, travelDate, units)
}

// OccupiedUnits returns the occupied unit codes for display purposes
// ("seats left" style reads).  Advisory only.
func (l *Ledger) OccupiedUnits(ctx context.Context, resourceID uint64, travelDate string) ([]string, error) {
    occ, err := l.store.Occupied(ctx, resourceID, travelDate)
    if err != nil {
        return nil, err
    }
    units := make([]string, 0, len(occ))
    for _, o := range occ {
        units = append(units, o.Unit)
    }
    sort.Strings(units)
    return units, nil
}
