package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/travel-reservation/internal/inventory"
)

// InventoryStore is the durable backend for the inventory ledger.  One
// row in occupied_units means one confirmed-occupied unit for a
// resource instance; UNIQUE(resource_id, travel_date, unit_code)
// enforces single ownership at the storage layer even if two server
// processes race past the in-process lock.
type InventoryStore struct {
    db *sql.DB
}

// NewInventoryStore returns an InventoryStore bound to the database.
func NewInventoryStore(db *sql.DB) *InventoryStore { return &InventoryStore{db: db} }

// Occupied returns all occupied units for one resource instance along
// with the transaction that committed each of them.
func (s *InventoryStore) Occupied(ctx context.Context, resourceID uint64, travelDate string) ([]inventory.OccupiedUnit, error) {
    rows, err := s.db.QueryContext(ctx,
        `SELECT unit_code, transaction_id FROM occupied_units WHERE resource_id = ? AND travel_date = ?`,
        resourceID, travelDate)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []inventory.OccupiedUnit
    for rows.Next() {
        var o inventory.OccupiedUnit
        if err := rows.Scan(&o.Unit, &o.TransactionID); err != nil {
            return nil, err
        }
        out = append(out, o)
    }
    return out, rows.Err()
}

// Add inserts occupied rows for the given units.  A duplicate-key
// rejection (MySQL error 1062) maps to inventory.ErrDuplicateUnit so
// the ledger can report a conflict instead of a storage failure.  The
// multi-row insert is atomic: on rejection nothing is written.
func (s *InventoryStore) Add(ctx context.Context, resourceID uint64, travelDate string, units []string, transactionID string) error {
    if len(units) == 0 {
        return nil
    }
    query := `INSERT INTO occupied_units (resource_id, travel_date, unit_code, transaction_id) VALUES `
    args := make([]interface{}, 0, len(units)*4)
    for i, u := range units {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?)"
        args = append(args, resourceID, travelDate, u, transactionID)
    }
    if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return inventory.ErrDuplicateUnit
        }
        return err
    }
    return nil
}

// Remove deletes occupied rows for the given units.  Absent rows are
// ignored, keeping release idempotent.
func (s *InventoryStore) Remove(ctx context.Context, resourceID uint64, travelDate string, units []string) error {
    if len(units) == 0 {
        return nil
    }
    placeholders := make([]string, len(units))
    args := make([]interface{}, 0, len(units)+2)
    args = append(args, resourceID, travelDate)
    for i, u := range units {
        placeholders[i] = "?"
        args = append(args, u)
    }
    _, err := s.db.ExecContext(ctx,
        `DELETE FROM occupied_units WHERE resource_id = ? AND travel_date = ? AND unit_code IN (`+strings.Join(placeholders, ",")+`)`,
        args...)
    return err
}
