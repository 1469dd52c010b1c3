package handler

import (
    "context"
    "database/sql"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/travel-reservation/internal/model"
    "github.com/iliyamo/travel-reservation/internal/repository"
)

// AdminHandler serves resource management and the refund work queue.
type AdminHandler struct {
    Resources *repository.ResourceRepo
    Refunds   *repository.RefundRepo
}

func NewAdminHandler(resources *repository.ResourceRepo, refunds *repository.RefundRepo) *AdminHandler {
    if resources == nil || refunds == nil {
        panic("nil dependency passed to NewAdminHandler")
    }
    return &AdminHandler{Resources: resources, Refunds: refunds}
}

type createUnitReq struct {
    Code       string `json:"code"`
    Label      string `json:"label"`
    PriceCents int64  `json:"price_cents"`
}

type createResourceReq struct {
    Name        string          `json:"name"`
    Kind        string          `json:"kind"` // BUS | HOUSEBOAT | PACKAGE
    Description string          `json:"description"`
    Schedule    string          `json:"schedule"`
    Units       []createUnitReq `json:"units"`
}

// CreateResource registers a resource with its full unit inventory.
// Unit codes must be unique within the resource; capacity is fixed at
// creation.
func (h *AdminHandler) CreateResource(c echo.Context) error {
    var req createResourceReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Name = strings.TrimSpace(req.Name)
    if req.Name == "" || len(req.Units) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and units required"})
    }
    kind := model.ResourceKind(strings.ToUpper(strings.TrimSpace(req.Kind)))
    switch kind {
    case model.ResourceKindBus, model.ResourceKindHouseboat, model.ResourceKindPackage:
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "kind must be BUS, HOUSEBOAT or PACKAGE"})
    }

    seen := make(map[string]bool, len(req.Units))
    units := make([]model.Unit, 0, len(req.Units))
    for _, u := range req.Units {
        code := strings.TrimSpace(u.Code)
        if code == "" || u.PriceCents <= 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "every unit needs a code and a positive price"})
        }
        if seen[code] {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "duplicate unit code: " + code})
        }
        seen[code] = true
        units = append(units, model.Unit{Code: code, Label: u.Label, PriceCents: u.PriceCents})
    }

    res := &model.Resource{
        Name:        req.Name,
        Kind:        kind,
        Description: req.Description,
        Schedule:    req.Schedule,
        Active:      true,
        Units:       units,
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    if err := h.Resources.Create(ctx, res); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create resource failed"})
    }
    return c.JSON(http.StatusCreated, res)
}

// ListResources returns the full catalog including inactive resources.
func (h *AdminHandler) ListResources(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    resources, err := h.Resources.List(ctx, false)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"resources": resources})
}

// ListRefunds returns unresolved refund cases, oldest first.  Each is a
// gateway charge that has no booking behind it and needs a manual
// refund through the gateway's merchant panel.
func (h *AdminHandler) ListRefunds(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    refunds, err := h.Refunds.ListPending(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"refunds": refunds})
}

// ResolveRefund marks a refund case as handled.
func (h *AdminHandler) ResolveRefund(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid refund id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Refunds.Resolve(ctx, id); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "refund case not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resolve failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"resolved": true})
}
