package handler

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/travel-reservation/internal/model"
    "github.com/iliyamo/travel-reservation/internal/repository"
    "github.com/iliyamo/travel-reservation/internal/settlement"
)

// CheckoutHandler opens reservation sessions.  The response carries the
// gateway redirect URL; nothing is reserved until the gateway's success
// callback settles the session.
type CheckoutHandler struct {
    Engine *settlement.Engine
}

func NewCheckoutHandler(engine *settlement.Engine) *CheckoutHandler {
    if engine == nil {
        panic("nil engine passed to NewCheckoutHandler")
    }
    return &CheckoutHandler{Engine: engine}
}

type checkoutReq struct {
    ResourceID     uint64   `json:"resource_id"`
    TravelDate     string   `json:"travel_date"`
    UnitCodes      []string `json:"unit_codes"`
    PaymentMode    string   `json:"payment_mode"`    // FULL | ADVANCE
    AdvancePercent int      `json:"advance_percent"` // 0 uses the configured default
    CustomerName   string   `json:"customer_name"`
    CustomerEmail  string   `json:"customer_email"`
}

// Checkout validates the selection, opens a session and returns the
// gateway redirect target.
func (h *CheckoutHandler) Checkout(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    var req checkoutReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.ResourceID == 0 || len(req.UnitCodes) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "resource_id and unit_codes required"})
    }
    if req.TravelDate != "" {
        if _, err := time.Parse("2006-01-02", req.TravelDate); err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "travel_date must be YYYY-MM-DD"})
        }
    }
    mode := model.PaymentMode(req.PaymentMode)
    if mode != model.PaymentModeAdvance {
        mode = model.PaymentModeFull
    }

    // 15s covers the gateway round trip on top of the DB reads.
    ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
    defer cancel()

    result, err := h.Engine.InitiateCheckout(ctx, settlement.CheckoutRequest{
        ResourceID:     req.ResourceID,
        TravelDate:     req.TravelDate,
        UnitCodes:      req.UnitCodes,
        TravelerID:     uid,
        PaymentMode:    mode,
        AdvancePercent: req.AdvancePercent,
        CustomerName:   req.CustomerName,
        CustomerEmail:  req.CustomerEmail,
    })
    if err != nil {
        var unavailable *settlement.UnavailableError
        switch {
        case errors.As(err, &unavailable):
            return c.JSON(http.StatusConflict, echo.Map{"error": "units not available", "units": unavailable.Units})
        case errors.Is(err, repository.ErrResourceNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
        case errors.Is(err, settlement.ErrGatewayInit):
            return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment gateway unavailable, please retry"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "checkout failed"})
    }
    return c.JSON(http.StatusCreated, result)
}
