package settlement

import (
    "errors"
    "fmt"
    "strings"
)

// ErrGatewayInit signals that the payment gateway could not produce a
// redirect URL.  Recoverable: the caller retries checkout, which
// allocates a fresh transaction id.
var ErrGatewayInit = errors.New("payment gateway initialization failed")

// ErrInvalidCallback signals a success-endpoint delivery whose status
// field does not carry the gateway's VALID sentinel.
var ErrInvalidCallback = errors.New("callback status is not valid")

// ErrSettlementInProgress is returned to a duplicate success delivery
// that races the one currently finalizing, before the booking row is
// visible.  The gateway's retry will find the booking.
var ErrSettlementInProgress = errors.New("settlement already in progress")

// ErrNotCancellable is returned when cancelling a completed booking.
var ErrNotCancellable = errors.New("booking can no longer be cancelled")

// UnavailableError rejects a checkout whose requested units are already
// occupied at selection time.  Advisory: the authoritative check is the
// atomic reserve at finalization.
type UnavailableError struct {
    Units []string
}

func (e *UnavailableError) Error() string {
    return fmt.Sprintf("units not available: %s", strings.Join(e.Units, ","))
}

// InventoryConflictError reports the refund-eligible outcome where the
// gateway charged the traveler but the requested units were confirmed
// by a competing session first.  It carries enough data to drive a
// refund workflow and must never be silently dropped.
type InventoryConflictError struct {
    TransactionID   string
    TravelerID      uint64
    AmountPaidCents int64
    Units           []string
}

func (e *InventoryConflictError) Error() string {
    return fmt.Sprintf("inventory conflict after payment: transaction %s, units %s already booked",
        e.TransactionID, strings.Join(e.Units, ","))
}
