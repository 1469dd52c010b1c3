// Package gateway defines the contract with the external payment
// gateway.  The engine only needs the initialize request/response
// shape and the asynchronous callback payload; signature verification
// and network-level replay protection are the gateway's own
// responsibility.  The engine's state machine stays the independent
// idempotency safety net regardless.
package gateway

import "context"

// Gateway-defined status sentinels delivered on the IPN callback.
const (
    StatusValid     = "VALID"
    StatusFailed    = "FAILED"
    StatusCancelled = "CANCELLED"
)

// Passthrough is the opaque correlation blob sent with the initialize
// request and echoed back on callbacks.  It lets a callback be settled
// even if the session store was lost, and is the defense against
// re-deriving booking intent from a side store.
type Passthrough struct {
    ResourceID       uint64   `json:"resource_id"`
    TravelDate       string   `json:"travel_date,omitempty"`
    UnitCodes        []string `json:"unit_codes"`
    TravelerID       uint64   `json:"traveler_id"`
    PaymentMode      string   `json:"payment_mode"`
    TotalAmountCents int64    `json:"total_amount_cents"`
}

// InitRequest asks the gateway to open a hosted payment page.
// TransactionID is the engine-generated correlation value; AmountCents
// is the amount actually charged now (the advance portion for ADVANCE
// mode).
type InitRequest struct {
    TransactionID      string
    AmountCents        int64
    Currency           string
    SuccessURL         string
    FailURL            string
    CancelURL          string
    CustomerName       string
    CustomerEmail      string
    ProductDescription string
    Passthrough        Passthrough
}

// InitResponse carries the browser redirect target and the gateway's
// own transaction reference.
type InitResponse struct {
    RedirectURL          string
    GatewayTransactionID string
}

// Callback is the gateway's asynchronous server-to-server notification
// (IPN) delivered to the success/fail/cancel endpoints.
type Callback struct {
    TransactionID string `json:"tran_id" form:"tran_id"`
    Status        string `json:"status" form:"status"`
    AmountCents   int64  `json:"amount_cents" form:"amount_cents"`
    Currency      string `json:"currency" form:"currency"`
    Passthrough   string `json:"value_a" form:"value_a"`
    Reason        string `json:"reason" form:"reason"`
}

// Gateway initializes payments with the external provider.  The call
// may block briefly on the network and must therefore never be made
// while holding an inventory lock.
type Gateway interface {
    Initialize(ctx context.Context, req InitRequest) (*InitResponse, error)
}
