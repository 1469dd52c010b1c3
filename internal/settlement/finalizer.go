package settlement

import (
    "context"
    "errors"
    "log"
    "strings"

    "github.com/iliyamo/travel-reservation/internal/inventory"
    "github.com/iliyamo/travel-reservation/internal/model"
    "github.com/iliyamo/travel-reservation/internal/repository"
    "github.com/iliyamo/travel-reservation/internal/utils"
)

// finalize converts a Settling session into a durable booking.  Side
// effects are strictly ordered: inventory commit happens-before
// booking persistence happens-before the session transition, so a
// crash at any point is recoverable by re-running finalize for the
// same transaction id.
//
// Idempotency:
//   - an existing booking for the transaction id short-circuits,
//   - re-reserving units already owned by this transaction is a no-op
//     in the ledger,
//   - a duplicate-key rejection from the booking store means a
//     concurrent retry won; its booking is returned.
func (e *Engine) finalize(ctx context.Context, sess *model.ReservationSession) (*model.Booking, error) {
    if b, err := e.bookings.GetByTransactionID(ctx, sess.TransactionID); err == nil {
        // Booking exists but the session never reached Committed
        // (crash between steps); repair the session and return.
        if _, terr := e.sessions.Transition(ctx, sess.TransactionID, model.SessionSettling, model.SessionCommitted); terr != nil {
            log.Printf("settlement: session repair %s: %v", sess.TransactionID, terr)
        }
        return b, nil
    } else if !errors.Is(err, repository.ErrBookingNotFound) {
        return nil, err
    }

    err := e.ledger.ReserveAtomically(ctx, sess.ResourceID, sess.TravelDate, sess.UnitCodes, sess.TransactionID)
    if err != nil {
        var conflict *inventory.ConflictError
        if errors.As(err, &conflict) {
            return nil, e.releaseAfterConflict(ctx, sess, conflict)
        }
        // Transient storage failure: leave the session Settling so the
        // recovery sweep retries.
        return nil, err
    }

    reference, err := utils.NewBookingReference()
    if err != nil {
        return nil, err
    }
    booking := &model.Booking{
        Reference:            reference,
        ResourceID:           sess.ResourceID,
        TravelDate:           sess.TravelDate,
        UnitCodes:            append([]string(nil), sess.UnitCodes...),
        TravelerID:           sess.TravelerID,
        TotalAmountCents:     sess.TotalAmountCents,
        AmountPaidCents:      sess.PaymentAmountCents,
        RemainingAmountCents: sess.RemainingAmountCents(),
        TransactionID:        sess.TransactionID,
    }
    if sess.PaymentMode == model.PaymentModeAdvance {
        booking.PaymentStatus = model.PaymentStatusAdvancePaid
        booking.BookingStatus = model.BookingStatusBooked
    } else {
        booking.PaymentStatus = model.PaymentStatusFullyPaid
        booking.BookingStatus = model.BookingStatusConfirmed
    }

    if err := e.bookings.Create(ctx, booking); err != nil {
        if errors.Is(err, repository.ErrDuplicateTransaction) {
            return e.bookings.GetByTransactionID(ctx, sess.TransactionID)
        }
        // Inventory is committed under this transaction id; the session
        // stays Settling and the recovery sweep will retry persistence.
        return nil, err
    }

    if _, err := e.sessions.Transition(ctx, sess.TransactionID, model.SessionSettling, model.SessionCommitted); err != nil {
        log.Printf("settlement: commit transition %s: %v", sess.TransactionID, err)
    }
    if err := e.events.BookingConfirmed(ctx, booking); err != nil {
        log.Printf("settlement: publish booking.confirmed %s: %v", booking.Reference, err)
    }
    return booking, nil
}

// releaseAfterConflict records the refund-eligible outcome: payment
// succeeded at the gateway but the units were committed by a competing
// session first.  The case is persisted for operators and announced on
// the refund queue before the session is released.
func (e *Engine) releaseAfterConflict(ctx context.Context, sess *model.ReservationSession, conflict *inventory.ConflictError) error {
    rec := &repository.RefundRecord{
        TransactionID:   sess.TransactionID,
        TravelerID:      sess.TravelerID,
        ResourceID:      sess.ResourceID,
        TravelDate:      sess.TravelDate,
        UnitCodes:       strings.Join(sess.UnitCodes, ","),
        AmountPaidCents: sess.PaymentAmountCents,
        Currency:        e.opts.Currency,
        Reason:          "inventory conflict: " + strings.Join(conflict.Units, ","),
    }
    if err := e.refunds.Create(ctx, rec); err != nil {
        // Never downgrade a charge-without-booking to fire and forget;
        // keep the session Settling so recovery retries the recording.
        log.Printf("settlement: RECORDING REFUND CASE FAILED for %s: %v", sess.TransactionID, err)
        return err
    }
    if err := e.events.RefundRequired(ctx, rec); err != nil {
        log.Printf("settlement: publish refund.required %s: %v", sess.TransactionID, err)
    }
    if _, err := e.sessions.Transition(ctx, sess.TransactionID, model.SessionSettling, model.SessionReleased); err != nil {
        log.Printf("settlement: release transition %s: %v", sess.TransactionID, err)
    }
    return &InventoryConflictError{
        TransactionID:   sess.TransactionID,
        TravelerID:      sess.TravelerID,
        AmountPaidCents: sess.PaymentAmountCents,
        Units:           conflict.Units,
    }
}
