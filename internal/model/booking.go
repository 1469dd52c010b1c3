package model

import "time"

// PaymentStatus records how much of a booking's total has been paid.
type PaymentStatus string

const (
    PaymentStatusAdvancePaid PaymentStatus = "ADVANCE_PAID"
    PaymentStatusFullyPaid   PaymentStatus = "FULLY_PAID"
)

// BookingStatus is the administrative lifecycle of a booking after it
// has been created by the finalizer.
type BookingStatus string

const (
    BookingStatusBooked    BookingStatus = "BOOKED"
    BookingStatusConfirmed BookingStatus = "CONFIRMED"
    BookingStatusCancelled BookingStatus = "CANCELLED"
    BookingStatusCompleted BookingStatus = "COMPLETED"
)

// Booking is the durable record produced by the finalizer, exactly
// once per successfully settled reservation session.  It is never
// recreated for the same transaction id; the bookings table enforces
// UNIQUE(transaction_id) as a second safety net under the state
// machine's own idempotency.
//
// Fields:
//  ID                   – primary key identifier.
//  Reference            – short opaque code shown to travelers.
//  ResourceID           – booked resource.
//  TravelDate           – instance date (empty for undated resources).
//  UnitCodes            – units committed to the inventory ledger.
//  TravelerID           – owner of the booking.
//  TotalAmountCents     – full price.
//  AmountPaidCents      – amount charged by the gateway.
//  RemainingAmountCents – total minus paid; zero when fully paid.
//  PaymentStatus        – ADVANCE_PAID or FULLY_PAID.
//  BookingStatus        – BOOKED/CONFIRMED/CANCELLED/COMPLETED.
//  TransactionID        – the session's transaction id (unique).
type Booking struct {
    ID                   uint64        `json:"id"`
    Reference            string        `json:"reference"`
    ResourceID           uint64        `json:"resource_id"`
    TravelDate           string        `json:"travel_date,omitempty"`
    UnitCodes            []string      `json:"unit_codes"`
    TravelerID           uint64        `json:"traveler_id"`
    TotalAmountCents     int64         `json:"total_amount_cents"`
    AmountPaidCents      int64         `json:"amount_paid_cents"`
    RemainingAmountCents int64         `json:"remaining_amount_cents"`
    PaymentStatus        PaymentStatus `json:"payment_status"`
    BookingStatus        BookingStatus `json:"booking_status"`
    TransactionID        string        `json:"transaction_id"`
    CreatedAt            time.Time     `json:"created_at"`
    UpdatedAt            time.Time     `json:"updated_at"`
}
