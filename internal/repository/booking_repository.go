package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/travel-reservation/internal/model"
)

// BookingRepo provides access to bookings and their unit rows.  A
// booking is created exactly once per settled reservation session; the
// unique indexes on transaction_id and reference back the finalizer's
// idempotency at the storage layer.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// Create inserts a booking and its units in one transaction and
// populates the generated ID.  A duplicate transaction id or reference
// returns ErrDuplicateTransaction with nothing written.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    res, err := tx.ExecContext(ctx,
        `INSERT INTO bookings (reference, resource_id, travel_date, traveler_id,
            total_amount_cents, amount_paid_cents, remaining_amount_cents,
            payment_status, booking_status, transaction_id)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
        b.Reference, b.ResourceID, b.TravelDate, b.TravelerID,
        b.TotalAmountCents, b.AmountPaidCents, b.RemainingAmountCents,
        string(b.PaymentStatus), string(b.BookingStatus), b.TransactionID)
    if err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return ErrDuplicateTransaction
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)

    if len(b.UnitCodes) > 0 {
        query := `INSERT INTO booking_units (booking_id, unit_code) VALUES `
        args := make([]interface{}, 0, len(b.UnitCodes)*2)
        for i, u := range b.UnitCodes {
            if i > 0 {
                query += ","
            }
            query += "(?, ?)"
            args = append(args, b.ID, u)
        }
        if _, err := tx.ExecContext(ctx, query, args...); err != nil {
            return err
        }
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

const bookingColumns = `id, reference, resource_id, travel_date, traveler_id,
    total_amount_cents, amount_paid_cents, remaining_amount_cents,
    payment_status, booking_status, transaction_id, created_at, updated_at`

// scanBooking reads one booking row (without units).
func scanBooking(row *sql.Row) (*model.Booking, error) {
    var b model.Booking
    err := row.Scan(&b.ID, &b.Reference, &b.ResourceID, &b.TravelDate, &b.TravelerID,
        &b.TotalAmountCents, &b.AmountPaidCents, &b.RemainingAmountCents,
        (*string)(&b.PaymentStatus), (*string)(&b.BookingStatus), &b.TransactionID,
        &b.CreatedAt, &b.UpdatedAt)
    if err == sql.ErrNoRows {
        return nil, ErrBookingNotFound
    }
    if err != nil {
        return nil, err
    }
    return &b, nil
}

// loadUnits populates the unit codes for one booking.
func (r *BookingRepo) loadUnits(ctx context.Context, b *model.Booking) error {
    rows, err := r.db.QueryContext(ctx,
        `SELECT unit_code FROM booking_units WHERE booking_id = ? ORDER BY unit_code`, b.ID)
    if err != nil {
        return err
    }
    defer rows.Close()
    for rows.Next() {
        var u string
        if err := rows.Scan(&u); err != nil {
            return err
        }
        b.UnitCodes = append(b.UnitCodes, u)
    }
    return rows.Err()
}

// GetByTransactionID returns the booking for a reservation session's
// transaction id, or ErrBookingNotFound.  The finalizer uses this as
// its idempotency short-circuit.
func (r *BookingRepo) GetByTransactionID(ctx context.Context, transactionID string) (*model.Booking, error) {
    b, err := scanBooking(r.db.QueryRowContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings WHERE transaction_id = ?`, transactionID))
    if err != nil {
        return nil, err
    }
    if err := r.loadUnits(ctx, b); err != nil {
        return nil, err
    }
    return b, nil
}

// GetByReference returns the booking with the given traveler-facing
// reference code.
func (r *BookingRepo) GetByReference(ctx context.Context, reference string) (*model.Booking, error) {
    b, err := scanBooking(r.db.QueryRowContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings WHERE reference = ?`, reference))
    if err != nil {
        return nil, err
    }
    if err := r.loadUnits(ctx, b); err != nil {
        return nil, err
    }
    return b, nil
}

// ListByTraveler returns the traveler's bookings newest first, with
// unit codes populated in a single follow-up query.
func (r *BookingRepo) ListByTraveler(ctx context.Context, travelerID uint64) ([]model.Booking, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings WHERE traveler_id = ? ORDER BY created_at DESC`, travelerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    bookings := make([]model.Booking, 0)
    index := make(map[uint64]int)
    for rows.Next() {
        var b model.Booking
        if err := rows.Scan(&b.ID, &b.Reference, &b.ResourceID, &b.TravelDate, &b.TravelerID,
            &b.TotalAmountCents, &b.AmountPaidCents, &b.RemainingAmountCents,
            (*string)(&b.PaymentStatus), (*string)(&b.BookingStatus), &b.TransactionID,
            &b.CreatedAt, &b.UpdatedAt); err != nil {
            return nil, err
        }
        index[b.ID] = len(bookings)
        bookings = append(bookings, b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    if len(bookings) == 0 {
        return bookings, nil
    }
    ids := make([]interface{}, 0, len(bookings))
    placeholders := make([]string, 0, len(bookings))
    for _, b := range bookings {
        ids = append(ids, b.ID)
        placeholders = append(placeholders, "?")
    }
    urows, err := r.db.QueryContext(ctx,
        `SELECT booking_id, unit_code FROM booking_units WHERE booking_id IN (`+
            strings.Join(placeholders, ",")+`) ORDER BY booking_id, unit_code`, ids...)
    if err != nil {
        return nil, err
    }
    defer urows.Close()
    for urows.Next() {
        var bid uint64
        var u string
        if err := urows.Scan(&bid, &u); err != nil {
            return nil, err
        }
        if idx, ok := index[bid]; ok {
            bookings[idx].UnitCodes = append(bookings[idx].UnitCodes, u)
        }
    }
    return bookings, urows.Err()
}

// UpdateStatus sets a booking's administrative status.
func (r *BookingRepo) UpdateStatus(ctx context.Context, bookingID uint64, status model.BookingStatus) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE bookings SET booking_status = ? WHERE id = ?`, string(status), bookingID)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        return ErrBookingNotFound
    }
    return nil
}
