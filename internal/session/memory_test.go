package session

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/iliyamo/travel-reservation/internal/model"
)

func testParams() CreateParams {
    return CreateParams{
        ResourceID:       1,
        TravelDate:       "2026-09-01",
        UnitCodes:        []string{"A1", "A2"},
        TravelerID:       42,
        TotalAmountCents: 100000,
        PaymentMode:      model.PaymentModeAdvance,
        AdvancePercent:   50,
    }
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
    store := NewMemoryStore(30 * time.Minute)
    ctx := context.Background()

    sess, err := store.Create(ctx, testParams())
    if err != nil {
        t.Fatalf("create failed: %v", err)
    }
    if len(sess.TransactionID) != 64 {
        t.Fatalf("transaction id should be 64 hex chars, got %q", sess.TransactionID)
    }
    if sess.Status != model.SessionPending {
        t.Fatalf("new session should be PENDING, got %s", sess.Status)
    }
    if sess.PaymentAmountCents != 50000 {
        t.Fatalf("advance split wrong: %d", sess.PaymentAmountCents)
    }
    if sess.RemainingAmountCents() != 50000 {
        t.Fatalf("remaining wrong: %d", sess.RemainingAmountCents())
    }

    got, err := store.Get(ctx, sess.TransactionID)
    if err != nil {
        t.Fatalf("get failed: %v", err)
    }
    if got.TransactionID != sess.TransactionID || got.ResourceID != 1 {
        t.Fatalf("get returned wrong session: %+v", got)
    }

    // Each create must mint a distinct transaction id.
    other, err := store.Create(ctx, testParams())
    if err != nil {
        t.Fatalf("second create failed: %v", err)
    }
    if other.TransactionID == sess.TransactionID {
        t.Fatal("duplicate transaction id")
    }
}

func TestMemoryStoreGetUnknown(t *testing.T) {
    store := NewMemoryStore(time.Minute)
    if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
        t.Fatalf("expected ErrSessionNotFound, got %v", err)
    }
}

func TestMemoryStoreTransitionCAS(t *testing.T) {
    store := NewMemoryStore(time.Minute)
    ctx := context.Background()
    sess, _ := store.Create(ctx, testParams())

    got, err := store.Transition(ctx, sess.TransactionID, model.SessionPending, model.SessionSettling)
    if err != nil {
        t.Fatalf("transition failed: %v", err)
    }
    if got.Status != model.SessionSettling {
        t.Fatalf("status not updated: %s", got.Status)
    }

    // A second Pending->Settling must lose the CAS.
    if _, err := store.Transition(ctx, sess.TransactionID, model.SessionPending, model.SessionSettling); !errors.Is(err, ErrInvalidTransition) {
        t.Fatalf("duplicate transition should fail with ErrInvalidTransition, got %v", err)
    }

    if _, err := store.Transition(ctx, sess.TransactionID, model.SessionSettling, model.SessionCommitted); err != nil {
        t.Fatalf("commit transition failed: %v", err)
    }
    // Terminal states refuse further movement.
    if _, err := store.Transition(ctx, sess.TransactionID, model.SessionCommitted, model.SessionReleased); !errors.Is(err, ErrInvalidTransition) {
        t.Fatalf("terminal transition should fail, got %v", err)
    }
}

func TestMemoryStoreExpiry(t *testing.T) {
    store := NewMemoryStore(30 * time.Minute)
    ctx := context.Background()

    base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
    now := base
    store.SetClock(func() time.Time { return now })

    sess, _ := store.Create(ctx, testParams())

    now = base.Add(29 * time.Minute)
    if _, err := store.Get(ctx, sess.TransactionID); err != nil {
        t.Fatalf("session should still be live: %v", err)
    }

    now = base.Add(31 * time.Minute)
    if _, err := store.Get(ctx, sess.TransactionID); !errors.Is(err, ErrSessionNotFound) {
        t.Fatalf("expired pending session should be gone, got %v", err)
    }
}

func TestMemoryStoreSettlingDoesNotExpire(t *testing.T) {
    store := NewMemoryStore(30 * time.Minute)
    ctx := context.Background()

    base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
    now := base
    store.SetClock(func() time.Time { return now })

    sess, _ := store.Create(ctx, testParams())
    if _, err := store.Transition(ctx, sess.TransactionID, model.SessionPending, model.SessionSettling); err != nil {
        t.Fatalf("transition failed: %v", err)
    }

    // A Settling session past the TTL is recovery's business, not expiry's.
    now = base.Add(2 * time.Hour)
    got, err := store.Get(ctx, sess.TransactionID)
    if err != nil {
        t.Fatalf("settling session must survive expiry: %v", err)
    }
    if got.Status != model.SessionSettling {
        t.Fatalf("unexpected status: %s", got.Status)
    }

    list, err := store.ListByStatus(ctx, model.SessionSettling)
    if err != nil || len(list) != 1 {
        t.Fatalf("settling session should be listed for recovery: %v %d", err, len(list))
    }
}

func TestMemoryStoreSweepExpired(t *testing.T) {
    store := NewMemoryStore(10 * time.Minute)
    ctx := context.Background()

    base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
    now := base
    store.SetClock(func() time.Time { return now })

    a, _ := store.Create(ctx, testParams())
    b, _ := store.Create(ctx, testParams())
    if _, err := store.Transition(ctx, b.TransactionID, model.SessionPending, model.SessionSettling); err != nil {
        t.Fatalf("transition failed: %v", err)
    }

    now = base.Add(11 * time.Minute)
    removed, err := store.SweepExpired(ctx)
    if err != nil {
        t.Fatalf("sweep failed: %v", err)
    }
    if removed != 1 {
        t.Fatalf("sweep should remove only the pending session, removed %d", removed)
    }
    if _, err := store.Get(ctx, a.TransactionID); !errors.Is(err, ErrSessionNotFound) {
        t.Fatalf("pending session should be swept, got %v", err)
    }
    if _, err := store.Get(ctx, b.TransactionID); err != nil {
        t.Fatalf("settling session should survive sweep: %v", err)
    }
}
