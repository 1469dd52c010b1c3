package model

import "time"

// ResourceKind categorizes a bookable resource.  The engine treats all
// kinds identically; the kind only informs presentation and the unit
// label vocabulary (seat numbers for buses, cabin codes for houseboats,
// slot numbers for packages).
type ResourceKind string

const (
    ResourceKindBus       ResourceKind = "BUS"
    ResourceKindHouseboat ResourceKind = "HOUSEBOAT"
    ResourceKindPackage   ResourceKind = "PACKAGE"
)

// Unit is one discrete addressable slot inside a Resource: a seat
// number, a cabin code or a package slot.  The Label carries the
// human-readable variant ("Seat 12", "Upper Deck Cabin A") and is pure
// metadata; all engine logic keys on Code.
type Unit struct {
    Code       string `json:"code"`        // resource_units.unit_code
    Label      string `json:"label"`       // resource_units.label
    PriceCents int64  `json:"price_cents"` // resource_units.price_cents
}

// Resource is a bookable container with a fixed set of units.  Capacity
// is immutable once a booking references the resource; only
// informational fields (name, schedule, description) may change.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name ("Dhaka–Sylhet AC Coach", "Sundarban Houseboat").
//  Kind        – BUS, HOUSEBOAT or PACKAGE.
//  Description – free-form marketing text, unused by the engine.
//  Schedule    – optional departure/validity note (e.g. "daily 22:30").
//  Active      – inactive resources are hidden and cannot be booked.
//  Units       – the full unit inventory with per-unit prices.
type Resource struct {
    ID          uint64       `json:"id"`
    Name        string       `json:"name"`
    Kind        ResourceKind `json:"kind"`
    Description string       `json:"description,omitempty"`
    Schedule    string       `json:"schedule,omitempty"`
    Active      bool         `json:"active"`
    Units       []Unit       `json:"units,omitempty"`
    CreatedAt   time.Time    `json:"created_at"`
    UpdatedAt   time.Time    `json:"updated_at"`
}

// UnitByCode returns the unit with the given code, if present.
func (r *Resource) UnitByCode(code string) (Unit, bool) {
    for _, u := range r.Units {
        if u.Code == code {
            return u, true
        }
    }
    return Unit{}, false
}

// TotalPriceCents sums the prices of the requested unit codes.  The
// second return value is false when any code does not exist on the
// resource.
func (r *Resource) TotalPriceCents(codes []string) (int64, bool) {
    var total int64
    for _, code := range codes {
        u, ok := r.UnitByCode(code)
        if !ok {
            return 0, false
        }
        total += u.PriceCents
    }
    return total, true
}
