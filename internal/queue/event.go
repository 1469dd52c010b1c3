// Package queue defines message payloads exchanged over the message broker
// and the background consumers that drain them.
package queue

// BookingConfirmedEvent is published when a settled session becomes a
// durable booking. It contains enough information for downstream
// consumers to log, notify, or trigger analytics without querying the
// primary database.
type BookingConfirmedEvent struct {
    BookingID            uint64   `json:"booking_id"`
    Reference            string   `json:"reference"`
    TransactionID        string   `json:"transaction_id"`
    TravelerID           uint64   `json:"traveler_id"`
    ResourceID           uint64   `json:"resource_id"`
    ResourceName         string   `json:"resource_name,omitempty"`
    TravelDate           string   `json:"travel_date,omitempty"`
    UnitCodes            []string `json:"units"`
    TotalAmountCents     int64    `json:"total_amount_cents"`
    AmountPaidCents      int64    `json:"amount_paid_cents"`
    RemainingAmountCents int64    `json:"remaining_amount_cents"`
    PaymentStatus        string   `json:"payment_status"`
    ConfirmedAt          string   `json:"confirmed_at"`
}

// RefundRequiredEvent is published when the gateway collected a payment
// but finalization lost the inventory race, so the charge has no
// booking behind it. Consumers drive the manual refund workflow.
type RefundRequiredEvent struct {
    TransactionID   string `json:"transaction_id"`
    TravelerID      uint64 `json:"traveler_id"`
    ResourceID      uint64 `json:"resource_id"`
    TravelDate      string `json:"travel_date,omitempty"`
    UnitCodes       string `json:"unit_codes"`
    AmountPaidCents int64  `json:"amount_paid_cents"`
    Currency        string `json:"currency"`
    Reason          string `json:"reason"`
    RecordedAt      string `json:"recorded_at"`
}
