// Package session implements the reservation session store: the
// ephemeral, keyed-by-transaction-id record linking a payment attempt
// to the units, traveler, amount split and expiry.  Sessions never
// touch the inventory ledger; their loss before commit is recoverable
// (the traveler restarts checkout) and their loss after commit is
// irrelevant (the booking already exists).
package session

import (
    "context"
    "crypto/rand"
    "encoding/hex"
    "errors"
    "time"

    "github.com/iliyamo/travel-reservation/internal/model"
)

// ErrSessionNotFound signals an unknown or expired transaction id.
// Callers must treat it as a non-retryable, user-visible failure
// ("payment session invalid or expired").
var ErrSessionNotFound = errors.New("session: not found or expired")

// ErrInvalidTransition signals a state change the machine forbids,
// typically a callback arriving for a session already in a terminal
// state.  It is a benign duplicate-delivery no-op for callers.
var ErrInvalidTransition = errors.New("session: invalid status transition")

// CreateParams carries everything needed to open a new session.  The
// store generates the transaction id and computes the amount split.
type CreateParams struct {
    ResourceID       uint64
    TravelDate       string
    UnitCodes        []string
    TravelerID       uint64
    TotalAmountCents int64
    PaymentMode      model.PaymentMode
    AdvancePercent   int
}

// Store is the reservation session store contract.  Implementations
// must be safe under concurrent access from multiple request handlers
// and must enforce the session state machine on Transition.
type Store interface {
    // Create opens a Pending session with a fresh unique transaction id.
    Create(ctx context.Context, p CreateParams) (*model.ReservationSession, error)
    // Get returns the session for a transaction id, or
    // ErrSessionNotFound for unknown or expired ids.  Expired Pending
    // sessions are swept lazily on lookup.
    Get(ctx context.Context, transactionID string) (*model.ReservationSession, error)
    // Transition atomically moves a session from one status to another.
    // It fails with ErrInvalidTransition when the current status is not
    // `from` or the move is not allowed by the state machine.  Exactly
    // one concurrent caller wins any given transition.
    Transition(ctx context.Context, transactionID string, from, to model.SessionStatus) (*model.ReservationSession, error)
    // ListByStatus returns sessions currently in the given status; used
    // by the Settling recovery sweep.
    ListByStatus(ctx context.Context, status model.SessionStatus) ([]*model.ReservationSession, error)
    // SweepExpired releases expired Pending sessions and drops terminal
    // sessions past their expiry.  Returns the number removed.
    SweepExpired(ctx context.Context) (int, error)
}

// newSession builds the session record shared by all store
// implementations.  The transaction id is 32 random bytes hex encoded.
func newSession(p CreateParams, ttl time.Duration) (*model.ReservationSession, error) {
    id, err := randomTransactionID()
    if err != nil {
        return nil, err
    }
    now := time.Now().UTC()
    return &model.ReservationSession{
        TransactionID:      id,
        ResourceID:         p.ResourceID,
        TravelDate:         p.TravelDate,
        UnitCodes:          append([]string(nil), p.UnitCodes...),
        TravelerID:         p.TravelerID,
        TotalAmountCents:   p.TotalAmountCents,
        PaymentAmountCents: model.PaymentAmountCents(p.TotalAmountCents, p.PaymentMode, p.AdvancePercent),
        AdvancePercent:     p.AdvancePercent,
        PaymentMode:        p.PaymentMode,
        Status:             model.SessionPending,
        CreatedAt:          now,
        ExpiresAt:          now.Add(ttl),
    }, nil
}

// randomTransactionID returns a 64 character hex string from
// cryptographically secure random bytes.
func randomTransactionID() (string, error) {
    b := make([]byte, 32)
    if _, err := rand.Read(b); err != nil {
        return "", err
    }
    return hex.EncodeToString(b), nil
}
