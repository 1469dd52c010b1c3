package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"
)

// RefundRecord is a charge that has no corresponding booking: the
// gateway collected money but finalization hit an inventory conflict.
// These must stay queryable by an operator until resolved; they are
// never fire-and-forget.
type RefundRecord struct {
    ID              uint64    `json:"id"`
    TransactionID   string    `json:"transaction_id"`
    TravelerID      uint64    `json:"traveler_id"`
    ResourceID      uint64    `json:"resource_id"`
    TravelDate      string    `json:"travel_date,omitempty"`
    UnitCodes       string    `json:"unit_codes"` // comma-joined, informational
    AmountPaidCents int64     `json:"amount_paid_cents"`
    Currency        string    `json:"currency"`
    Reason          string    `json:"reason"`
    Resolved        bool      `json:"resolved"`
    CreatedAt       time.Time `json:"created_at"`
}

// RefundRepo provides access to the refunds table.
type RefundRepo struct {
    db *sql.DB
}

// NewRefundRepo returns a RefundRepo bound to the given database.
func NewRefundRepo(db *sql.DB) *RefundRepo { return &RefundRepo{db: db} }

// Create records a refund case.  Re-recording the same transaction id
// is a no-op so a retried finalization cannot double-log the case.
func (r *RefundRepo) Create(ctx context.Context, rec *RefundRecord) error {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO refunds (transaction_id, traveler_id, resource_id, travel_date,
            unit_codes, amount_paid_cents, currency, reason)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
        rec.TransactionID, rec.TravelerID, rec.ResourceID, rec.TravelDate,
        rec.UnitCodes, rec.AmountPaidCents, rec.Currency, rec.Reason)
    if err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return nil // already recorded for this transaction
        }
        return err
    }
    if id, err := res.LastInsertId(); err == nil {
        rec.ID = uint64(id)
    }
    return nil
}

// ListPending returns unresolved refund cases, oldest first, for the
// operator view of "bookings pending manual refund".
func (r *RefundRepo) ListPending(ctx context.Context) ([]RefundRecord, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, transaction_id, traveler_id, resource_id, travel_date,
            unit_codes, amount_paid_cents, currency, reason, resolved, created_at
         FROM refunds WHERE resolved = 0 ORDER BY created_at`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]RefundRecord, 0)
    for rows.Next() {
        var rec RefundRecord
        if err := rows.Scan(&rec.ID, &rec.TransactionID, &rec.TravelerID, &rec.ResourceID,
            &rec.TravelDate, &rec.UnitCodes, &rec.AmountPaidCents, &rec.Currency,
            &rec.Reason, &rec.Resolved, &rec.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, rec)
    }
    return out, rows.Err()
}

// Resolve marks a refund case as handled by an operator.
func (r *RefundRepo) Resolve(ctx context.Context, id uint64) error {
    res, err := r.db.ExecContext(ctx, `UPDATE refunds SET resolved = 1 WHERE id = ?`, id)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        return sql.ErrNoRows
    }
    return nil
}
