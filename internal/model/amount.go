package model

// PaymentAmountCents computes the amount to charge now for the given
// total and payment mode.  FULL charges the whole total.  ADVANCE
// charges advancePercent of the total, rounded half-up on minor units
// so that payment + remaining always reconstructs the total exactly
// with no fractional-cent drift.
func PaymentAmountCents(totalCents int64, mode PaymentMode, advancePercent int) int64 {
    if mode != PaymentModeAdvance {
        return totalCents
    }
    if advancePercent <= 0 {
        advancePercent = 50
    }
    if advancePercent >= 100 {
        return totalCents
    }
    return (totalCents*int64(advancePercent) + 50) / 100
}
