package handler

import (
    "context"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/travel-reservation/internal/inventory"
    "github.com/iliyamo/travel-reservation/internal/repository"
)

// ResourceHandler serves the public catalog: resource listings and the
// advisory availability view travelers browse before checkout.
type ResourceHandler struct {
    Resources *repository.ResourceRepo
    Ledger    *inventory.Ledger
}

func NewResourceHandler(resources *repository.ResourceRepo, ledger *inventory.Ledger) *ResourceHandler {
    if resources == nil || ledger == nil {
        panic("nil dependency passed to NewResourceHandler")
    }
    return &ResourceHandler{Resources: resources, Ledger: ledger}
}

// List returns all active resources with their unit inventory.
func (h *ResourceHandler) List(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    resources, err := h.Resources.List(ctx, true)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"resources": resources})
}

// Get returns one active resource by id.
func (h *ResourceHandler) Get(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid resource id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    res, err := h.Resources.GetByID(ctx, id)
    if err != nil {
        if err == repository.ErrResourceNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if !res.Active {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
    }
    return c.JSON(http.StatusOK, res)
}

type availabilityUnit struct {
    Code       string `json:"code"`
    Label      string `json:"label"`
    PriceCents int64  `json:"price_cents"`
    Available  bool   `json:"available"`
}

// Availability returns the per-unit occupancy snapshot for a resource
// instance.  The travel_date query parameter selects the instance; it
// may be omitted for undated resources such as fixed packages.  The
// snapshot is advisory: units can be taken between this read and a
// checkout's settlement.
func (h *ResourceHandler) Availability(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid resource id"})
    }
    travelDate := c.QueryParam("travel_date")
    if travelDate != "" {
        if _, err := time.Parse("2006-01-02", travelDate); err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "travel_date must be YYYY-MM-DD"})
        }
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    res, err := h.Resources.GetByID(ctx, id)
    if err != nil {
        if err == repository.ErrResourceNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if !res.Active {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
    }

    occupied, err := h.Ledger.OccupiedUnits(ctx, id, travelDate)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "availability read failed"})
    }
    taken := make(map[string]bool, len(occupied))
    for _, u := range occupied {
        taken[u] = true
    }

    units := make([]availabilityUnit, 0, len(res.Units))
    free := 0
    for _, u := range res.Units {
        av := !taken[u.Code]
        if av {
            free++
        }
        units = append(units, availabilityUnit{Code: u.Code, Label: u.Label, PriceCents: u.PriceCents, Available: av})
    }

    return c.JSON(http.StatusOK, echo.Map{
        "resource_id": id,
        "travel_date": travelDate,
        "total_units": len(units),
        "free_units":  free,
        "units":       units,
    })
}
