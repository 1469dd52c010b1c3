package handler

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/travel-reservation/internal/gateway"
    "github.com/iliyamo/travel-reservation/internal/session"
    "github.com/iliyamo/travel-reservation/internal/settlement"
)

// PaymentHandler terminates the gateway's asynchronous callbacks (IPN).
// The gateway delivers form-encoded POSTs and retries on non-200
// responses, so every recognized outcome answers 200, including
// business rejections; only a malformed payload earns a 400.  These
// routes carry no JWT: the callback's own status sentinel plus the
// engine's idempotent state machine are the authentication model.
type PaymentHandler struct {
    Engine *settlement.Engine
}

func NewPaymentHandler(engine *settlement.Engine) *PaymentHandler {
    if engine == nil {
        panic("nil engine passed to NewPaymentHandler")
    }
    return &PaymentHandler{Engine: engine}
}

// Success settles a paid session into a booking.  Duplicate deliveries
// and replays converge on the same booking reference.
func (h *PaymentHandler) Success(c echo.Context) error {
    var cb gateway.Callback
    if err := c.Bind(&cb); err != nil || cb.TransactionID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "malformed callback"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
    defer cancel()

    b, err := h.Engine.HandleSuccess(ctx, cb)
    if err != nil {
        var conflict *settlement.InventoryConflictError
        switch {
        case errors.As(err, &conflict):
            return c.JSON(http.StatusOK, echo.Map{
                "success": false,
                "message": "payment received but units no longer available; refund has been recorded",
            })
        case errors.Is(err, settlement.ErrInvalidCallback):
            return c.JSON(http.StatusOK, echo.Map{"success": false, "message": "callback status not valid"})
        case errors.Is(err, settlement.ErrSettlementInProgress):
            return c.JSON(http.StatusOK, echo.Map{"success": false, "message": "settlement in progress, retry shortly"})
        case errors.Is(err, session.ErrSessionNotFound):
            return c.JSON(http.StatusOK, echo.Map{"success": false, "message": "unknown or expired transaction"})
        }
        return c.JSON(http.StatusOK, echo.Map{"success": false, "message": "settlement failed, will be retried"})
    }

    return c.JSON(http.StatusOK, echo.Map{
        "success":           true,
        "booking_reference": b.Reference,
        "booking_status":    b.BookingStatus,
        "payment_status":    b.PaymentStatus,
    })
}

// Fail releases the session for a failed payment.
func (h *PaymentHandler) Fail(c echo.Context) error {
    return h.release(c, "failed")
}

// Cancel releases the session for a traveler-cancelled payment.
func (h *PaymentHandler) Cancel(c echo.Context) error {
    return h.release(c, "cancelled")
}

func (h *PaymentHandler) release(c echo.Context, outcome string) error {
    var cb gateway.Callback
    if err := c.Bind(&cb); err != nil || cb.TransactionID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "malformed callback"})
    }
    reason := cb.Reason
    if reason == "" {
        reason = outcome
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Engine.HandleFailure(ctx, cb.TransactionID, reason); err != nil {
        return c.JSON(http.StatusOK, echo.Map{"success": false, "message": "release failed, will be retried"})
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "payment " + outcome + ", session released"})
}
