package handler

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/travel-reservation/internal/repository"
    "github.com/iliyamo/travel-reservation/internal/settlement"
)

// BookingHandler serves the customer's view of their bookings and the
// explicit cancellation operation.
type BookingHandler struct {
    Engine   *settlement.Engine
    Bookings *repository.BookingRepo
}

func NewBookingHandler(engine *settlement.Engine, bookings *repository.BookingRepo) *BookingHandler {
    if engine == nil || bookings == nil {
        panic("nil dependency passed to NewBookingHandler")
    }
    return &BookingHandler{Engine: engine, Bookings: bookings}
}

// ListMine returns the caller's bookings, newest first.
func (h *BookingHandler) ListMine(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    bookings, err := h.Bookings.ListByTraveler(ctx, uid)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
}

// Get returns one booking by reference.  Customers only see their own;
// admins see any.
func (h *BookingHandler) Get(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    reference := c.Param("reference")

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    b, err := h.Bookings.GetByReference(ctx, reference)
    if err != nil {
        if errors.Is(err, repository.ErrBookingNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if b.TravelerID != uid && !isAdmin(c) {
        // 404, not 403: references are unguessable and existence is not leaked.
        return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
    }
    return c.JSON(http.StatusOK, b)
}

// Cancel flips a booking to CANCELLED and returns its units to the
// pool.  Cancelling twice is a no-op; completed trips are refused.
func (h *BookingHandler) Cancel(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    reference := c.Param("reference")

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    b, err := h.Engine.CancelBooking(ctx, reference, uid, isAdmin(c))
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrBookingNotFound), errors.Is(err, repository.ErrForbidden):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        case errors.Is(err, settlement.ErrNotCancellable):
            return c.JSON(http.StatusConflict, echo.Map{"error": "booking can no longer be cancelled"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
    }
    return c.JSON(http.StatusOK, b)
}
