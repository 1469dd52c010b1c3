package model

import "time"

// PaymentMode selects between charging the full amount now or an
// advance portion with the remainder settled later.
type PaymentMode string

const (
    PaymentModeFull    PaymentMode = "FULL"
    PaymentModeAdvance PaymentMode = "ADVANCE"
)

// SessionStatus is the lifecycle state of a reservation session.
// Pending sessions await the gateway callback; Settling sessions are
// being finalized; Committed and Released are terminal.
type SessionStatus string

const (
    SessionPending   SessionStatus = "PENDING"
    SessionSettling  SessionStatus = "SETTLING"
    SessionCommitted SessionStatus = "COMMITTED"
    SessionReleased  SessionStatus = "RELEASED"
)

// ValidSessionTransition reports whether moving a session from one
// status to another is allowed.  The machine is strictly forward:
//
//  PENDING  -> SETTLING (first success callback)
//  PENDING  -> RELEASED (fail/cancel callback or expiry)
//  SETTLING -> COMMITTED (finalization success)
//  SETTLING -> RELEASED (inventory conflict)
func ValidSessionTransition(from, to SessionStatus) bool {
    switch from {
    case SessionPending:
        return to == SessionSettling || to == SessionReleased
    case SessionSettling:
        return to == SessionCommitted || to == SessionReleased
    }
    return false
}

// ReservationSession links one payment attempt to the booking intent
// that started it.  Sessions are ephemeral: they never touch the
// inventory ledger and are destroyed on terminal transition or expiry.
// The session store owns all mutation; other components read only.
//
// Fields:
//  TransactionID      – opaque unique id, also sent to the gateway as the
//                       correlation value.
//  ResourceID         – resource being booked.
//  TravelDate         – instance date in YYYY-MM-DD, empty for undated
//                       resources such as package slots.
//  UnitCodes          – requested units, deduplicated and non-empty.
//  TravelerID         – user initiating the payment.
//  TotalAmountCents   – full price of the requested units.
//  PaymentAmountCents – amount actually charged now (= total for FULL,
//                       rounded advance split otherwise).
//  AdvancePercent     – advance ratio used for the split (ignored for FULL).
//  PaymentMode        – FULL or ADVANCE.
//  Status             – see SessionStatus.
type ReservationSession struct {
    TransactionID      string        `json:"transaction_id"`
    ResourceID         uint64        `json:"resource_id"`
    TravelDate         string        `json:"travel_date,omitempty"`
    UnitCodes          []string      `json:"unit_codes"`
    TravelerID         uint64        `json:"traveler_id"`
    TotalAmountCents   int64         `json:"total_amount_cents"`
    PaymentAmountCents int64         `json:"payment_amount_cents"`
    AdvancePercent     int           `json:"advance_percent"`
    PaymentMode        PaymentMode   `json:"payment_mode"`
    Status             SessionStatus `json:"status"`
    CreatedAt          time.Time     `json:"created_at"`
    ExpiresAt          time.Time     `json:"expires_at"`
}

// RemainingAmountCents is the balance still owed after the current
// payment.  Zero for FULL mode.
func (s *ReservationSession) RemainingAmountCents() int64 {
    return s.TotalAmountCents - s.PaymentAmountCents
}

// Expired reports whether the session is past its expiry.  Only
// Pending sessions expire; Settling sessions are recovered, not swept.
func (s *ReservationSession) Expired(now time.Time) bool {
    return s.Status == SessionPending && now.After(s.ExpiresAt)
}
