package repository

import (
    "context"
    "errors"
    "regexp"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"

    "github.com/iliyamo/travel-reservation/internal/model"
)

func newMock(t *testing.T) (*BookingRepo, sqlmock.Sqlmock, func()) {
    t.Helper()
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    return NewBookingRepo(db), mock, func() { db.Close() }
}

func sampleBooking() *model.Booking {
    return &model.Booking{
        Reference:            "TRV-8KQZ4M2H",
        ResourceID:           1,
        TravelDate:           "2026-09-01",
        UnitCodes:            []string{"A1", "A2"},
        TravelerID:           42,
        TotalAmountCents:     100000,
        AmountPaidCents:      50000,
        RemainingAmountCents: 50000,
        PaymentStatus:        model.PaymentStatusAdvancePaid,
        BookingStatus:        model.BookingStatusBooked,
        TransactionID:        "txn-abc",
    }
}

func TestBookingCreate(t *testing.T) {
    repo, mock, done := newMock(t)
    defer done()

    b := sampleBooking()

    mock.ExpectBegin()
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
        WithArgs(b.Reference, b.ResourceID, b.TravelDate, b.TravelerID,
            b.TotalAmountCents, b.AmountPaidCents, b.RemainingAmountCents,
            "ADVANCE_PAID", "BOOKED", b.TransactionID).
        WillReturnResult(sqlmock.NewResult(7, 1))
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_units")).
        WithArgs(uint64(7), "A1", uint64(7), "A2").
        WillReturnResult(sqlmock.NewResult(1, 2))
    mock.ExpectCommit()

    if err := repo.Create(context.Background(), b); err != nil {
        t.Fatalf("create failed: %v", err)
    }
    if b.ID != 7 {
        t.Fatalf("generated id not populated: %d", b.ID)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Fatalf("unmet expectations: %v", err)
    }
}

func TestBookingCreateDuplicateTransaction(t *testing.T) {
    repo, mock, done := newMock(t)
    defer done()

    b := sampleBooking()

    mock.ExpectBegin()
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
        WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'txn-abc' for key 'bookings.uq_bookings_transaction'"))
    mock.ExpectRollback()

    if err := repo.Create(context.Background(), b); !errors.Is(err, ErrDuplicateTransaction) {
        t.Fatalf("expected ErrDuplicateTransaction, got %v", err)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Fatalf("unmet expectations: %v", err)
    }
}

func TestBookingGetByTransactionID(t *testing.T) {
    repo, mock, done := newMock(t)
    defer done()

    now := time.Now()
    rows := sqlmock.NewRows([]string{
        "id", "reference", "resource_id", "travel_date", "traveler_id",
        "total_amount_cents", "amount_paid_cents", "remaining_amount_cents",
        "payment_status", "booking_status", "transaction_id", "created_at", "updated_at",
    }).AddRow(7, "TRV-8KQZ4M2H", 1, "2026-09-01", 42,
        100000, 50000, 50000, "ADVANCE_PAID", "BOOKED", "txn-abc", now, now)

    mock.ExpectQuery("SELECT .+ FROM bookings WHERE transaction_id").
        WithArgs("txn-abc").
        WillReturnRows(rows)
    mock.ExpectQuery(regexp.QuoteMeta("SELECT unit_code FROM booking_units WHERE booking_id = ?")).
        WithArgs(uint64(7)).
        WillReturnRows(sqlmock.NewRows([]string{"unit_code"}).AddRow("A1").AddRow("A2"))

    b, err := repo.GetByTransactionID(context.Background(), "txn-abc")
    if err != nil {
        t.Fatalf("get failed: %v", err)
    }
    if b.Reference != "TRV-8KQZ4M2H" || b.PaymentStatus != model.PaymentStatusAdvancePaid {
        t.Fatalf("wrong booking: %+v", b)
    }
    if len(b.UnitCodes) != 2 || b.UnitCodes[0] != "A1" {
        t.Fatalf("units not loaded: %v", b.UnitCodes)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Fatalf("unmet expectations: %v", err)
    }
}

func TestBookingGetByTransactionIDNotFound(t *testing.T) {
    repo, mock, done := newMock(t)
    defer done()

    mock.ExpectQuery("SELECT .+ FROM bookings WHERE transaction_id").
        WithArgs("missing").
        WillReturnRows(sqlmock.NewRows([]string{"id"}))

    if _, err := repo.GetByTransactionID(context.Background(), "missing"); !errors.Is(err, ErrBookingNotFound) {
        t.Fatalf("expected ErrBookingNotFound, got %v", err)
    }
}

func TestBookingUpdateStatus(t *testing.T) {
    repo, mock, done := newMock(t)
    defer done()

    mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET booking_status = ? WHERE id = ?")).
        WithArgs("CANCELLED", uint64(7)).
        WillReturnResult(sqlmock.NewResult(0, 1))

    if err := repo.UpdateStatus(context.Background(), 7, model.BookingStatusCancelled); err != nil {
        t.Fatalf("update failed: %v", err)
    }

    mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET booking_status = ? WHERE id = ?")).
        WithArgs("CANCELLED", uint64(8)).
        WillReturnResult(sqlmock.NewResult(0, 0))

    if err := repo.UpdateStatus(context.Background(), 8, model.BookingStatusCancelled); !errors.Is(err, ErrBookingNotFound) {
        t.Fatalf("expected ErrBookingNotFound, got %v", err)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Fatalf("unmet expectations: %v", err)
    }
}
