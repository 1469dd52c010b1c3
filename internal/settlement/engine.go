// Package settlement implements the reservation lifecycle: checkout
// initialization against the payment gateway, the session state
// machine driven by asynchronous gateway callbacks, and finalization
// of settled sessions into durable bookings.
//
// The design is reserve-at-commit: selecting units never holds
// inventory.  The only mutation of the occupied set happens inside
// finalize, under the ledger's per-resource exclusion, after the
// gateway has confirmed payment.  Everything before that point is
// advisory.
package settlement

import (
    "context"
    "errors"
    "log"
    "time"

    "github.com/iliyamo/travel-reservation/internal/gateway"
    "github.com/iliyamo/travel-reservation/internal/inventory"
    "github.com/iliyamo/travel-reservation/internal/model"
    "github.com/iliyamo/travel-reservation/internal/repository"
    "github.com/iliyamo/travel-reservation/internal/session"
)

// ResourceCatalog is the read side of the resource repository the
// engine needs for pricing and validation.
type ResourceCatalog interface {
    GetByID(ctx context.Context, id uint64) (*model.Resource, error)
}

// BookingStore persists bookings.  Create must reject a duplicate
// transaction id with repository.ErrDuplicateTransaction.
type BookingStore interface {
    Create(ctx context.Context, b *model.Booking) error
    GetByTransactionID(ctx context.Context, transactionID string) (*model.Booking, error)
    GetByReference(ctx context.Context, reference string) (*model.Booking, error)
    UpdateStatus(ctx context.Context, bookingID uint64, status model.BookingStatus) error
}

// RefundStore records charges that have no corresponding booking.
type RefundStore interface {
    Create(ctx context.Context, rec *repository.RefundRecord) error
}

// Events publishes settlement outcomes to the message broker.  Publish
// failures are logged and ignored: events are a notification channel,
// not the system of record.
type Events interface {
    BookingConfirmed(ctx context.Context, b *model.Booking) error
    RefundRequired(ctx context.Context, rec *repository.RefundRecord) error
}

// Options tunes the engine.
type Options struct {
    Currency       string
    CallbackBase   string        // external base URL for IPN endpoints
    AdvancePercent int           // default advance ratio
    SettleGrace    time.Duration // age before a Settling session is re-finalized
}

// Engine coordinates sessions, inventory, bookings and the gateway.
// It is safe for concurrent use; all shared state lives behind the
// injected stores.
type Engine struct {
    opts      Options
    sessions  session.Store
    ledger    *inventory.Ledger
    resources ResourceCatalog
    bookings  BookingStore
    refunds   RefundStore
    gw        gateway.Gateway
    events    Events
}

// NewEngine wires the settlement engine.  All dependencies must be
// non-nil.
func NewEngine(opts Options, sessions session.Store, ledger *inventory.Ledger,
    resources ResourceCatalog, bookings BookingStore, refunds RefundStore,
    gw gateway.Gateway, events Events) *Engine {
    if sessions == nil || ledger == nil || resources == nil || bookings == nil || refunds == nil || gw == nil || events == nil {
        panic("nil dependency passed to NewEngine")
    }
    if opts.AdvancePercent <= 0 || opts.AdvancePercent >= 100 {
        opts.AdvancePercent = 50
    }
    if opts.SettleGrace <= 0 {
        opts.SettleGrace = 30 * time.Second
    }
    return &Engine{
        opts:      opts,
        sessions:  sessions,
        ledger:    ledger,
        resources: resources,
        bookings:  bookings,
        refunds:   refunds,
        gw:        gw,
        events:    events,
    }
}

// CheckoutRequest describes one checkout attempt.
type CheckoutRequest struct {
    ResourceID     uint64
    TravelDate     string
    UnitCodes      []string
    TravelerID     uint64
    PaymentMode    model.PaymentMode
    AdvancePercent int // 0 means the configured default
    CustomerName   string
    CustomerEmail  string
}

// CheckoutResult carries what the browser needs to continue payment.
type CheckoutResult struct {
    TransactionID      string    `json:"transaction_id"`
    RedirectURL        string    `json:"redirect_url"`
    TotalAmountCents   int64     `json:"total_amount_cents"`
    AmountPayableCents int64     `json:"amount_payable_cents"`
    ExpiresAt          time.Time `json:"expires_at"`
}

// InitiateCheckout prices the requested units, opens a reservation
// session and asks the gateway for a redirect URL.  No inventory is
// held at any point: selection stays advisory until the success
// callback finalizes.  The gateway call happens outside any inventory
// lock.
func (e *Engine) InitiateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
    units := dedupe(req.UnitCodes)
    if len(units) == 0 {
        return nil, errors.New("settlement: no units requested")
    }
    res, err := e.resources.GetByID(ctx, req.ResourceID)
    if err != nil {
        return nil, err
    }
    if !res.Active {
        return nil, repository.ErrResourceNotFound
    }
    total, ok := res.TotalPriceCents(units)
    if !ok {
        return nil, &UnavailableError{Units: units}
    }

    // Advisory pre-check so travelers are not sent to the gateway for
    // units that are already gone.  The atomic re-check at finalize is
    // the only authoritative one.
    if ok, conflicts, err := e.ledger.CheckAvailable(ctx, req.ResourceID, req.TravelDate, units); err != nil {
        return nil, err
    } else if !ok {
        return nil, &UnavailableError{Units: conflicts}
    }

    mode := req.PaymentMode
    if mode != model.PaymentModeAdvance {
        mode = model.PaymentModeFull
    }
    pct := req.AdvancePercent
    if pct <= 0 || pct >= 100 {
        pct = e.opts.AdvancePercent
    }

    sess, err := e.sessions.Create(ctx, session.CreateParams{
        ResourceID:       req.ResourceID,
        TravelDate:       req.TravelDate,
        UnitCodes:        units,
        TravelerID:       req.TravelerID,
        TotalAmountCents: total,
        PaymentMode:      mode,
        AdvancePercent:   pct,
    })
    if err != nil {
        return nil, err
    }

    init, err := e.gw.Initialize(ctx, gateway.InitRequest{
        TransactionID:      sess.TransactionID,
        AmountCents:        sess.PaymentAmountCents,
        Currency:           e.opts.Currency,
        SuccessURL:         e.opts.CallbackBase + "/v1/payments/success",
        FailURL:            e.opts.CallbackBase + "/v1/payments/fail",
        CancelURL:          e.opts.CallbackBase + "/v1/payments/cancel",
        CustomerName:       req.CustomerName,
        CustomerEmail:      req.CustomerEmail,
        ProductDescription: res.Name,
        Passthrough: gateway.Passthrough{
            ResourceID:       sess.ResourceID,
            TravelDate:       sess.TravelDate,
            UnitCodes:        sess.UnitCodes,
            TravelerID:       sess.TravelerID,
            PaymentMode:      string(sess.PaymentMode),
            TotalAmountCents: sess.TotalAmountCents,
        },
    })
    if err != nil {
        if _, terr := e.sessions.Transition(ctx, sess.TransactionID, model.SessionPending, model.SessionReleased); terr != nil {
            log.Printf("settlement: release after gateway failure %s: %v", sess.TransactionID, terr)
        }
        return nil, errors.Join(ErrGatewayInit, err)
    }

    return &CheckoutResult{
        TransactionID:      sess.TransactionID,
        RedirectURL:        init.RedirectURL,
        TotalAmountCents:   sess.TotalAmountCents,
        AmountPayableCents: sess.PaymentAmountCents,
        ExpiresAt:          sess.ExpiresAt,
    }, nil
}

// HandleSuccess processes a success callback from the gateway.  The
// first delivery for a transaction id wins the Pending->Settling
// transition and runs finalization; every later delivery is a no-op
// that returns the already-created booking.
func (e *Engine) HandleSuccess(ctx context.Context, cb gateway.Callback) (*model.Booking, error) {
    if cb.Status != gateway.StatusValid {
        return nil, ErrInvalidCallback
    }
    sess, err := e.sessions.Get(ctx, cb.TransactionID)
    if err != nil {
        if errors.Is(err, session.ErrSessionNotFound) {
            // The session may already be gone after commit; the booking
            // is the durable answer for replays.
            if b, berr := e.bookings.GetByTransactionID(ctx, cb.TransactionID); berr == nil {
                return b, nil
            }
            return nil, session.ErrSessionNotFound
        }
        return nil, err
    }

    switch sess.Status {
    case model.SessionCommitted:
        return e.bookings.GetByTransactionID(ctx, cb.TransactionID)
    case model.SessionReleased:
        return nil, session.ErrSessionNotFound
    }

    settling, err := e.sessions.Transition(ctx, cb.TransactionID, model.SessionPending, model.SessionSettling)
    if err != nil {
        if errors.Is(err, session.ErrInvalidTransition) {
            // Another delivery won the transition.  Report its result if
            // the booking is already visible.
            if b, berr := e.bookings.GetByTransactionID(ctx, cb.TransactionID); berr == nil {
                return b, nil
            }
            return nil, ErrSettlementInProgress
        }
        return nil, err
    }
    return e.finalize(ctx, settling)
}

// HandleFailure processes a fail or cancel callback: Pending sessions
// are released (nothing to undo in inventory, none was held), terminal
// or unknown sessions are benign no-ops.
func (e *Engine) HandleFailure(ctx context.Context, transactionID, reason string) error {
    if _, err := e.sessions.Get(ctx, transactionID); err != nil {
        if errors.Is(err, session.ErrSessionNotFound) {
            log.Printf("settlement: fail/cancel for unknown session %s (%s)", transactionID, reason)
            return nil
        }
        return err
    }
    if _, err := e.sessions.Transition(ctx, transactionID, model.SessionPending, model.SessionReleased); err != nil {
        if errors.Is(err, session.ErrInvalidTransition) || errors.Is(err, session.ErrSessionNotFound) {
            log.Printf("settlement: duplicate fail/cancel for %s ignored", transactionID)
            return nil
        }
        return err
    }
    return nil
}

// RecoverStuck re-runs finalization for sessions that entered Settling
// but never reached a terminal state, e.g. because the process died
// mid-finalize.  Finalize is idempotent keyed on the transaction id,
// so re-running it can only complete the original outcome, never
// invent a new booking.
func (e *Engine) RecoverStuck(ctx context.Context) {
    sessions, err := e.sessions.ListByStatus(ctx, model.SessionSettling)
    if err != nil {
        log.Printf("settlement: recovery list failed: %v", err)
        return
    }
    cutoff := time.Now().UTC().Add(-e.opts.SettleGrace)
    for _, sess := range sessions {
        if sess.CreatedAt.After(cutoff) {
            continue // too fresh; the original finalize may still be running
        }
        if _, err := e.finalize(ctx, sess); err != nil {
            log.Printf("settlement: recovery finalize %s: %v", sess.TransactionID, err)
        } else {
            log.Printf("settlement: recovered stuck session %s", sess.TransactionID)
        }
    }
}

// SweepExpired removes expired sessions.  Expiry has no inventory
// effect by construction; this only reclaims store space.
func (e *Engine) SweepExpired(ctx context.Context) {
    if n, err := e.sessions.SweepExpired(ctx); err != nil {
        log.Printf("settlement: session sweep failed: %v", err)
    } else if n > 0 {
        log.Printf("settlement: swept %d expired sessions", n)
    }
}

// CancelBooking performs the explicit cancellation operation: the
// booking flips to CANCELLED and its units are released back to the
// pool.  Cancelling an already-cancelled booking is a no-op.
func (e *Engine) CancelBooking(ctx context.Context, reference string, travelerID uint64, isAdmin bool) (*model.Booking, error) {
    b, err := e.bookings.GetByReference(ctx, reference)
    if err != nil {
        return nil, err
    }
    if !isAdmin && b.TravelerID != travelerID {
        return nil, repository.ErrForbidden
    }
    switch b.BookingStatus {
    case model.BookingStatusCancelled:
        return b, nil
    case model.BookingStatusCompleted:
        return nil, ErrNotCancellable
    }
    if err := e.bookings.UpdateStatus(ctx, b.ID, model.BookingStatusCancelled); err != nil {
        return nil, err
    }
    if err := e.ledger.Release(ctx, b.ResourceID, b.TravelDate, b.UnitCodes); err != nil {
        // The booking is already cancelled; a failed release leaves
        // units occupied until an operator re-runs the release.
        log.Printf("settlement: release after cancel %s failed: %v", reference, err)
    }
    b.BookingStatus = model.BookingStatusCancelled
    return b, nil
}

// dedupe removes duplicate and empty unit codes preserving order.
func dedupe(codes []string) []string {
    seen := make(map[string]struct{}, len(codes))
    out := make([]string, 0, len(codes))
    for _, c := range codes {
        if c == "" {
            continue
        }
        if _, ok := seen[c]; ok {
            continue
        }
        seen[c] = struct{}{}
        out = append(out, c)
    }
    return out
}
