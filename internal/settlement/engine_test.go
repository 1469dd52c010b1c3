package settlement

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/iliyamo/travel-reservation/internal/gateway"
    "github.com/iliyamo/travel-reservation/internal/inventory"
    "github.com/iliyamo/travel-reservation/internal/model"
    "github.com/iliyamo/travel-reservation/internal/repository"
    "github.com/iliyamo/travel-reservation/internal/session"
)

// ----- fakes -----

type fakeCatalog struct {
    resources map[uint64]*model.Resource
}

func (f *fakeCatalog) GetByID(ctx context.Context, id uint64) (*model.Resource, error) {
    res, ok := f.resources[id]
    if !ok {
        return nil, repository.ErrResourceNotFound
    }
    return res, nil
}

type fakeBookings struct {
    mu      sync.Mutex
    nextID  uint64
    byTxn   map[string]*model.Booking
    byRef   map[string]*model.Booking
    created int
}

func newFakeBookings() *fakeBookings {
    return &fakeBookings{nextID: 1, byTxn: map[string]*model.Booking{}, byRef: map[string]*model.Booking{}}
}

func (f *fakeBookings) Create(ctx context.Context, b *model.Booking) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if _, ok := f.byTxn[b.TransactionID]; ok {
        return repository.ErrDuplicateTransaction
    }
    b.ID = f.nextID
    f.nextID++
    cp := *b
    f.byTxn[b.TransactionID] = &cp
    f.byRef[b.Reference] = &cp
    f.created++
    return nil
}

func (f *fakeBookings) GetByTransactionID(ctx context.Context, transactionID string) (*model.Booking, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    b, ok := f.byTxn[transactionID]
    if !ok {
        return nil, repository.ErrBookingNotFound
    }
    cp := *b
    return &cp, nil
}

func (f *fakeBookings) GetByReference(ctx context.Context, reference string) (*model.Booking, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    b, ok := f.byRef[reference]
    if !ok {
        return nil, repository.ErrBookingNotFound
    }
    cp := *b
    return &cp, nil
}

func (f *fakeBookings) UpdateStatus(ctx context.Context, bookingID uint64, status model.BookingStatus) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    for _, b := range f.byTxn {
        if b.ID == bookingID {
            b.BookingStatus = status
            return nil
        }
    }
    return repository.ErrBookingNotFound
}

type fakeRefunds struct {
    mu      sync.Mutex
    records []*repository.RefundRecord
}

func (f *fakeRefunds) Create(ctx context.Context, rec *repository.RefundRecord) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    for _, r := range f.records {
        if r.TransactionID == rec.TransactionID {
            return nil
        }
    }
    f.records = append(f.records, rec)
    return nil
}

type fakeGateway struct {
    mu       sync.Mutex
    requests []gateway.InitRequest
    fail     bool
}

func (f *fakeGateway) Initialize(ctx context.Context, req gateway.InitRequest) (*gateway.InitResponse, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.fail {
        return nil, errors.New("gateway down")
    }
    f.requests = append(f.requests, req)
    return &gateway.InitResponse{RedirectURL: "https://pay.example/session/" + req.TransactionID}, nil
}

type nopEvents struct {
    mu        sync.Mutex
    confirmed []string
    refunds   []string
}

func (n *nopEvents) BookingConfirmed(ctx context.Context, b *model.Booking) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    n.confirmed = append(n.confirmed, b.Reference)
    return nil
}

func (n *nopEvents) RefundRequired(ctx context.Context, rec *repository.RefundRecord) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    n.refunds = append(n.refunds, rec.TransactionID)
    return nil
}

// ----- harness -----

type harness struct {
    engine   *Engine
    sessions *session.MemoryStore
    ledger   *inventory.Ledger
    bookings *fakeBookings
    refunds  *fakeRefunds
    gw       *fakeGateway
    events   *nopEvents
}

func newHarness(t *testing.T) *harness {
    t.Helper()
    catalog := &fakeCatalog{resources: map[uint64]*model.Resource{
        1: {
            ID: 1, Name: "Dhaka-Sylhet AC Coach", Kind: model.ResourceKindBus, Active: true,
            Units: []model.Unit{
                {Code: "A1", Label: "Seat A1", PriceCents: 500},
                {Code: "A2", Label: "Seat A2", PriceCents: 500},
                {Code: "A3", Label: "Seat A3", PriceCents: 500},
            },
        },
        2: {
            ID: 2, Name: "Closed Route", Kind: model.ResourceKindBus, Active: false,
            Units: []model.Unit{{Code: "B1", PriceCents: 500}},
        },
    }}
    sessions := session.NewMemoryStore(30 * time.Minute)
    ledger := inventory.NewLedger(inventory.NewMemoryStore())
    bookings := newFakeBookings()
    refunds := &fakeRefunds{}
    gw := &fakeGateway{}
    events := &nopEvents{}
    engine := NewEngine(Options{Currency: "BDT", CallbackBase: "https://api.example", AdvancePercent: 50, SettleGrace: 30 * time.Second},
        sessions, ledger, catalog, bookings, refunds, gw, events)
    return &harness{engine: engine, sessions: sessions, ledger: ledger, bookings: bookings, refunds: refunds, gw: gw, events: events}
}

func (h *harness) checkout(t *testing.T, traveler uint64, units []string, mode model.PaymentMode) *CheckoutResult {
    t.Helper()
    res, err := h.engine.InitiateCheckout(context.Background(), CheckoutRequest{
        ResourceID:  1,
        TravelDate:  "2026-09-01",
        UnitCodes:   units,
        TravelerID:  traveler,
        PaymentMode: mode,
    })
    if err != nil {
        t.Fatalf("checkout failed: %v", err)
    }
    return res
}

func validCallback(txnID string) gateway.Callback {
    return gateway.Callback{TransactionID: txnID, Status: gateway.StatusValid}
}

// ----- tests -----

func TestCheckoutThenSuccessCreatesBooking(t *testing.T) {
    h := newHarness(t)
    ctx := context.Background()

    out := h.checkout(t, 42, []string{"A1", "A2"}, model.PaymentModeFull)
    if out.TotalAmountCents != 1000 || out.AmountPayableCents != 1000 {
        t.Fatalf("full mode amounts wrong: %+v", out)
    }
    if out.RedirectURL == "" {
        t.Fatal("missing redirect url")
    }

    // Checkout holds nothing.
    occupied, _ := h.ledger.OccupiedUnits(ctx, 1, "2026-09-01")
    if len(occupied) != 0 {
        t.Fatalf("checkout must not occupy units: %v", occupied)
    }

    b, err := h.engine.HandleSuccess(ctx, validCallback(out.TransactionID))
    if err != nil {
        t.Fatalf("success callback failed: %v", err)
    }
    if b.BookingStatus != model.BookingStatusConfirmed || b.PaymentStatus != model.PaymentStatusFullyPaid {
        t.Fatalf("full payment should confirm immediately: %+v", b)
    }
    if b.AmountPaidCents != 1000 || b.RemainingAmountCents != 0 {
        t.Fatalf("amounts wrong: %+v", b)
    }
    if b.Reference == "" || b.TransactionID != out.TransactionID {
        t.Fatalf("booking identity wrong: %+v", b)
    }

    occupied, _ = h.ledger.OccupiedUnits(ctx, 1, "2026-09-01")
    if len(occupied) != 2 {
        t.Fatalf("units not committed: %v", occupied)
    }

    sess, err := h.sessions.Get(ctx, out.TransactionID)
    if err != nil {
        t.Fatalf("session gone: %v", err)
    }
    if sess.Status != model.SessionCommitted {
        t.Fatalf("session should be COMMITTED, got %s", sess.Status)
    }
    if len(h.events.confirmed) != 1 {
        t.Fatalf("expected one confirmed event, got %d", len(h.events.confirmed))
    }
}

func TestAdvanceModeSplitsPayment(t *testing.T) {
    h := newHarness(t)
    ctx := context.Background()

    out := h.checkout(t, 7, []string{"A1"}, model.PaymentModeAdvance)
    if out.TotalAmountCents != 500 || out.AmountPayableCents != 250 {
        t.Fatalf("advance split wrong: %+v", out)
    }

    b, err := h.engine.HandleSuccess(ctx, validCallback(out.TransactionID))
    if err != nil {
        t.Fatalf("success failed: %v", err)
    }
    if b.PaymentStatus != model.PaymentStatusAdvancePaid || b.BookingStatus != model.BookingStatusBooked {
        t.Fatalf("advance payment state wrong: %+v", b)
    }
    if b.AmountPaidCents != 250 || b.RemainingAmountCents != 250 {
        t.Fatalf("advance amounts wrong: paid=%d remaining=%d", b.AmountPaidCents, b.RemainingAmountCents)
    }
    if b.AmountPaidCents+b.RemainingAmountCents != b.TotalAmountCents {
        t.Fatalf("split does not reconstruct total: %+v", b)
    }
}

func TestDuplicateSuccessDeliveriesSettleOnce(t *testing.T) {
    h := newHarness(t)
    ctx := context.Background()

    out := h.checkout(t, 7, []string{"A3"}, model.PaymentModeAdvance)

    first, err := h.engine.HandleSuccess(ctx, validCallback(out.TransactionID))
    if err != nil {
        t.Fatalf("first delivery failed: %v", err)
    }
    second, err := h.engine.HandleSuccess(ctx, validCallback(out.TransactionID))
    if err != nil {
        t.Fatalf("replay failed: %v", err)
    }
    if first.Reference != second.Reference || first.ID != second.ID {
        t.Fatalf("replay produced a different booking: %s vs %s", first.Reference, second.Reference)
    }
    if h.bookings.created != 1 {
        t.Fatalf("expected exactly one booking, created %d", h.bookings.created)
    }
    occupied, _ := h.ledger.OccupiedUnits(ctx, 1, "2026-09-01")
    if len(occupied) != 1 {
        t.Fatalf("replay duplicated inventory: %v", occupied)
    }
}

func TestConflictAfterPaymentRecordsRefund(t *testing.T) {
    h := newHarness(t)
    ctx := context.Background()

    // Both travelers pass the advisory check before either settles.
    a := h.checkout(t, 1, []string{"A1"}, model.PaymentModeFull)
    b := h.checkout(t, 2, []string{"A1", "A2"}, model.PaymentModeFull)

    if _, err := h.engine.HandleSuccess(ctx, validCallback(a.TransactionID)); err != nil {
        t.Fatalf("first settlement failed: %v", err)
    }

    _, err := h.engine.HandleSuccess(ctx, validCallback(b.TransactionID))
    var conflict *InventoryConflictError
    if !errors.As(err, &conflict) {
        t.Fatalf("expected InventoryConflictError, got %v", err)
    }
    if conflict.TransactionID != b.TransactionID || conflict.TravelerID != 2 {
        t.Fatalf("conflict identity wrong: %+v", conflict)
    }
    if conflict.AmountPaidCents != 1000 {
        t.Fatalf("conflict must carry the charged amount: %d", conflict.AmountPaidCents)
    }
    if len(conflict.Units) != 1 || conflict.Units[0] != "A1" {
        t.Fatalf("conflict units wrong: %v", conflict.Units)
    }

    // The loser's uncontested unit must not be committed either.
    occupied, _ := h.ledger.OccupiedUnits(ctx, 1, "2026-09-01")
    if len(occupied) != 1 || occupied[0] != "A1" {
        t.Fatalf("partial commit leaked: %v", occupied)
    }

    if len(h.refunds.records) != 1 {
        t.Fatalf("expected one refund record, got %d", len(h.refunds.records))
    }
    rec := h.refunds.records[0]
    if rec.TransactionID != b.TransactionID || rec.AmountPaidCents != 1000 || rec.Currency != "BDT" {
        t.Fatalf("refund record wrong: %+v", rec)
    }
    if len(h.events.refunds) != 1 {
        t.Fatalf("refund event not published")
    }

    sess, err := h.sessions.Get(ctx, b.TransactionID)
    if err != nil {
        t.Fatalf("session gone: %v", err)
    }
    if sess.Status != model.SessionReleased {
        t.Fatalf("loser session should be RELEASED, got %s", sess.Status)
    }

    // A replayed success for the released session must not book.
    if _, err := h.engine.HandleSuccess(ctx, validCallback(b.TransactionID)); !errors.Is(err, session.ErrSessionNotFound) {
        t.Fatalf("replay on released session should report not found, got %v", err)
    }
}

func TestFailAndCancelReleaseSession(t *testing.T) {
    h := newHarness(t)
    ctx := context.Background()

    out := h.checkout(t, 9, []string{"A1"}, model.PaymentModeFull)
    if err := h.engine.HandleFailure(ctx, out.TransactionID, "card declined"); err != nil {
        t.Fatalf("failure callback errored: %v", err)
    }
    sess, _ := h.sessions.Get(ctx, out.TransactionID)
    if sess.Status != model.SessionReleased {
        t.Fatalf("session should be RELEASED, got %s", sess.Status)
    }

    // Duplicate and unknown deliveries are benign.
    if err := h.engine.HandleFailure(ctx, out.TransactionID, "retry"); err != nil {
        t.Fatalf("duplicate failure should be a no-op: %v", err)
    }
    if err := h.engine.HandleFailure(ctx, "unknown-txn", "cancelled"); err != nil {
        t.Fatalf("unknown transaction should be a no-op: %v", err)
    }

    // The unit is free for the next traveler.
    if _, err := h.engine.InitiateCheckout(ctx, CheckoutRequest{
        ResourceID: 1, TravelDate: "2026-09-01", UnitCodes: []string{"A1"}, TravelerID: 10, PaymentMode: model.PaymentModeFull,
    }); err != nil {
        t.Fatalf("unit should be available after release: %v", err)
    }
}

func TestInvalidCallbackStatusRejected(t *testing.T) {
    h := newHarness(t)
    out := h.checkout(t, 3, []string{"A2"}, model.PaymentModeFull)

    cb := gateway.Callback{TransactionID: out.TransactionID, Status: gateway.StatusFailed}
    if _, err := h.engine.HandleSuccess(context.Background(), cb); !errors.Is(err, ErrInvalidCallback) {
        t.Fatalf("expected ErrInvalidCallback, got %v", err)
    }
    occupied, _ := h.ledger.OccupiedUnits(context.Background(), 1, "2026-09-01")
    if len(occupied) != 0 {
        t.Fatalf("invalid callback must not commit inventory: %v", occupied)
    }
}

func TestExpiredSessionCannotSettle(t *testing.T) {
    h := newHarness(t)
    ctx := context.Background()

    base := time.Now().UTC()
    now := base
    h.sessions.SetClock(func() time.Time { return now })

    out := h.checkout(t, 5, []string{"A1"}, model.PaymentModeFull)
    now = base.Add(31 * time.Minute)

    if _, err := h.engine.HandleSuccess(ctx, validCallback(out.TransactionID)); !errors.Is(err, session.ErrSessionNotFound) {
        t.Fatalf("expired session should be unknown, got %v", err)
    }
    occupied, _ := h.ledger.OccupiedUnits(ctx, 1, "2026-09-01")
    if len(occupied) != 0 {
        t.Fatalf("expiry must not touch inventory: %v", occupied)
    }
}

func TestCheckoutRejectsOccupiedAndUnknownUnits(t *testing.T) {
    h := newHarness(t)
    ctx := context.Background()

    out := h.checkout(t, 1, []string{"A1"}, model.PaymentModeFull)
    if _, err := h.engine.HandleSuccess(ctx, validCallback(out.TransactionID)); err != nil {
        t.Fatalf("settle failed: %v", err)
    }

    _, err := h.engine.InitiateCheckout(ctx, CheckoutRequest{
        ResourceID: 1, TravelDate: "2026-09-01", UnitCodes: []string{"A1", "A2"}, TravelerID: 2, PaymentMode: model.PaymentModeFull,
    })
    var unavailable *UnavailableError
    if !errors.As(err, &unavailable) {
        t.Fatalf("expected UnavailableError, got %v", err)
    }
    if len(unavailable.Units) != 1 || unavailable.Units[0] != "A1" {
        t.Fatalf("unavailable units wrong: %v", unavailable.Units)
    }

    // Unknown unit codes fail pricing.
    if _, err := h.engine.InitiateCheckout(ctx, CheckoutRequest{
        ResourceID: 1, TravelDate: "2026-09-01", UnitCodes: []string{"Z9"}, TravelerID: 2, PaymentMode: model.PaymentModeFull,
    }); !errors.As(err, &unavailable) {
        t.Fatalf("unknown unit should be unavailable, got %v", err)
    }

    // Inactive resources are not bookable.
    if _, err := h.engine.InitiateCheckout(ctx, CheckoutRequest{
        ResourceID: 2, UnitCodes: []string{"B1"}, TravelerID: 2, PaymentMode: model.PaymentModeFull,
    }); !errors.Is(err, repository.ErrResourceNotFound) {
        t.Fatalf("inactive resource should look absent, got %v", err)
    }
}

func TestGatewayFailureReleasesSession(t *testing.T) {
    h := newHarness(t)
    h.gw.fail = true

    _, err := h.engine.InitiateCheckout(context.Background(), CheckoutRequest{
        ResourceID: 1, TravelDate: "2026-09-01", UnitCodes: []string{"A1"}, TravelerID: 4, PaymentMode: model.PaymentModeFull,
    })
    if !errors.Is(err, ErrGatewayInit) {
        t.Fatalf("expected ErrGatewayInit, got %v", err)
    }

    // No dangling pending session: a retry must be able to take the units.
    h.gw.fail = false
    if _, err := h.engine.InitiateCheckout(context.Background(), CheckoutRequest{
        ResourceID: 1, TravelDate: "2026-09-01", UnitCodes: []string{"A1"}, TravelerID: 4, PaymentMode: model.PaymentModeFull,
    }); err != nil {
        t.Fatalf("retry after gateway failure should work: %v", err)
    }
}

func TestRecoverStuckFinalizesOldSettlingSessions(t *testing.T) {
    h := newHarness(t)
    ctx := context.Background()

    base := time.Now().UTC().Add(-time.Hour)
    h.sessions.SetClock(func() time.Time { return base })

    out := h.checkout(t, 6, []string{"A2"}, model.PaymentModeFull)
    // Simulate a crash right after winning the CAS.
    if _, err := h.sessions.Transition(ctx, out.TransactionID, model.SessionPending, model.SessionSettling); err != nil {
        t.Fatalf("transition failed: %v", err)
    }

    h.engine.RecoverStuck(ctx)

    b, err := h.bookings.GetByTransactionID(ctx, out.TransactionID)
    if err != nil {
        t.Fatalf("recovery did not create the booking: %v", err)
    }
    if b.BookingStatus != model.BookingStatusConfirmed {
        t.Fatalf("recovered booking state wrong: %+v", b)
    }
    occupied, _ := h.ledger.OccupiedUnits(ctx, 1, "2026-09-01")
    if len(occupied) != 1 || occupied[0] != "A2" {
        t.Fatalf("recovery did not commit inventory: %v", occupied)
    }
}

func TestCancelBookingReleasesUnits(t *testing.T) {
    h := newHarness(t)
    ctx := context.Background()

    out := h.checkout(t, 11, []string{"A1", "A2"}, model.PaymentModeFull)
    b, err := h.engine.HandleSuccess(ctx, validCallback(out.TransactionID))
    if err != nil {
        t.Fatalf("settle failed: %v", err)
    }

    // Another traveler cannot cancel it.
    if _, err := h.engine.CancelBooking(ctx, b.Reference, 99, false); !errors.Is(err, repository.ErrForbidden) {
        t.Fatalf("foreign cancel should be forbidden, got %v", err)
    }

    got, err := h.engine.CancelBooking(ctx, b.Reference, 11, false)
    if err != nil {
        t.Fatalf("cancel failed: %v", err)
    }
    if got.BookingStatus != model.BookingStatusCancelled {
        t.Fatalf("booking not cancelled: %+v", got)
    }
    occupied, _ := h.ledger.OccupiedUnits(ctx, 1, "2026-09-01")
    if len(occupied) != 0 {
        t.Fatalf("units not released on cancel: %v", occupied)
    }

    // Cancelling again is a no-op.
    if _, err := h.engine.CancelBooking(ctx, b.Reference, 11, false); err != nil {
        t.Fatalf("repeat cancel should be a no-op: %v", err)
    }
}

func TestConcurrentSuccessDeliveriesSingleBooking(t *testing.T) {
    h := newHarness(t)
    ctx := context.Background()

    out := h.checkout(t, 8, []string{"A3"}, model.PaymentModeFull)

    const deliveries = 16
    var wg sync.WaitGroup
    results := make([]*model.Booking, deliveries)
    errs := make([]error, deliveries)
    start := make(chan struct{})
    for i := 0; i < deliveries; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            <-start
            results[i], errs[i] = h.engine.HandleSuccess(ctx, validCallback(out.TransactionID))
        }(i)
    }
    close(start)
    wg.Wait()

    var reference string
    for i := 0; i < deliveries; i++ {
        if errs[i] != nil {
            // Losers racing the finalizer may see in-progress; that is
            // the signal for the gateway to redeliver.
            if !errors.Is(errs[i], ErrSettlementInProgress) {
                t.Fatalf("delivery %d unexpected error: %v", i, errs[i])
            }
            continue
        }
        if reference == "" {
            reference = results[i].Reference
        } else if results[i].Reference != reference {
            t.Fatalf("two different bookings settled: %s vs %s", reference, results[i].Reference)
        }
    }
    if reference == "" {
        t.Fatal("no delivery settled the session")
    }
    if h.bookings.created != 1 {
        t.Fatalf("expected one booking, created %d", h.bookings.created)
    }
}
