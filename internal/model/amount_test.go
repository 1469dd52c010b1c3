package model

import "testing"

func TestPaymentAmountCentsFull(t *testing.T) {
    got := PaymentAmountCents(100000, PaymentModeFull, 50)
    if got != 100000 {
        t.Fatalf("full mode: got %d, want 100000", got)
    }
}

func TestPaymentAmountCentsAdvanceRoundsHalfUp(t *testing.T) {
    cases := []struct {
        total int64
        pct   int
        want  int64
    }{
        {100000, 50, 50000},
        {99900, 50, 49950},
        {101, 50, 51},    // 50.5 rounds up
        {99, 50, 50},     // 49.5 rounds up
        {1, 50, 1},       // 0.5 rounds up, never zero for nonzero total
        {100000, 30, 30000},
        {33333, 33, 11000}, // 10999.89 rounds to 11000
    }
    for _, tc := range cases {
        got := PaymentAmountCents(tc.total, PaymentModeAdvance, tc.pct)
        if got != tc.want {
            t.Fatalf("advance %d%% of %d: got %d, want %d", tc.pct, tc.total, got, tc.want)
        }
    }
}

func TestPaymentAmountCentsAdvanceDefaultsAndClamps(t *testing.T) {
    if got := PaymentAmountCents(1000, PaymentModeAdvance, 0); got != 500 {
        t.Fatalf("pct 0 should default to 50: got %d", got)
    }
    if got := PaymentAmountCents(1000, PaymentModeAdvance, -5); got != 500 {
        t.Fatalf("negative pct should default to 50: got %d", got)
    }
    if got := PaymentAmountCents(1000, PaymentModeAdvance, 100); got != 1000 {
        t.Fatalf("pct >= 100 should charge the full total: got %d", got)
    }
}

// Paid plus remaining must always reconstruct the total exactly, for
// any percentage, so no cent is created or lost by the split.
func TestAmountConservation(t *testing.T) {
    totals := []int64{1, 99, 100, 101, 999, 1000, 33333, 99999, 100000}
    for _, total := range totals {
        for pct := 1; pct < 100; pct++ {
            paid := PaymentAmountCents(total, PaymentModeAdvance, pct)
            if paid < 0 || paid > total {
                t.Fatalf("paid %d out of range for total %d pct %d", paid, total, pct)
            }
            remaining := total - paid
            if paid+remaining != total {
                t.Fatalf("conservation broken: %d + %d != %d", paid, remaining, total)
            }
        }
    }
}

func TestValidSessionTransition(t *testing.T) {
    valid := []struct{ from, to SessionStatus }{
        {SessionPending, SessionSettling},
        {SessionPending, SessionReleased},
        {SessionSettling, SessionCommitted},
        {SessionSettling, SessionReleased},
    }
    for _, tc := range valid {
        if !ValidSessionTransition(tc.from, tc.to) {
            t.Fatalf("%s -> %s should be valid", tc.from, tc.to)
        }
    }
    invalid := []struct{ from, to SessionStatus }{
        {SessionCommitted, SessionReleased},
        {SessionReleased, SessionSettling},
        {SessionReleased, SessionCommitted},
        {SessionSettling, SessionPending},
        {SessionPending, SessionCommitted}, // must pass through Settling
        {SessionCommitted, SessionSettling},
    }
    for _, tc := range invalid {
        if ValidSessionTransition(tc.from, tc.to) {
            t.Fatalf("%s -> %s should be invalid", tc.from, tc.to)
        }
    }
}
