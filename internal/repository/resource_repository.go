package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/travel-reservation/internal/model"
)

// ResourceRepo provides CRUD access to resources and their unit
// inventory.  A resource row describes the bookable container; its
// discrete units live in resource_units with a per-unit price.
// Capacity is append-only at creation time: units are inserted once
// with the resource and never removed while bookings reference them.
type ResourceRepo struct {
    db *sql.DB
}

// NewResourceRepo returns a ResourceRepo bound to the given database.
func NewResourceRepo(db *sql.DB) *ResourceRepo { return &ResourceRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning multiple repositories.
func (r *ResourceRepo) DB() *sql.DB { return r.db }

// Create inserts a resource and its units in one transaction and
// populates the generated ID on the provided model.
func (r *ResourceRepo) Create(ctx context.Context, res *model.Resource) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    result, err := tx.ExecContext(ctx,
        `INSERT INTO resources (name, kind, description, schedule, is_active) VALUES (?, ?, ?, ?, ?)`,
        res.Name, string(res.Kind), res.Description, res.Schedule, res.Active)
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)

    if len(res.Units) > 0 {
        query := `INSERT INTO resource_units (resource_id, unit_code, label, price_cents) VALUES `
        args := make([]interface{}, 0, len(res.Units)*4)
        for i, u := range res.Units {
            if i > 0 {
                query += ","
            }
            query += "(?, ?, ?, ?)"
            args = append(args, res.ID, u.Code, u.Label, u.PriceCents)
        }
        if _, err := tx.ExecContext(ctx, query, args...); err != nil {
            return err
        }
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// GetByID returns a resource with its full unit list, or
// ErrResourceNotFound.
func (r *ResourceRepo) GetByID(ctx context.Context, id uint64) (*model.Resource, error) {
    var res model.Resource
    err := r.db.QueryRowContext(ctx,
        `SELECT id, name, kind, description, schedule, is_active, created_at, updated_at
         FROM resources WHERE id = ?`, id).
        Scan(&res.ID, &res.Name, (*string)(&res.Kind), &res.Description, &res.Schedule, &res.Active, &res.CreatedAt, &res.UpdatedAt)
    if err == sql.ErrNoRows {
        return nil, ErrResourceNotFound
    }
    if err != nil {
        return nil, err
    }
    rows, err := r.db.QueryContext(ctx,
        `SELECT unit_code, label, price_cents FROM resource_units WHERE resource_id = ? ORDER BY unit_code`, id)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var u model.Unit
        if err := rows.Scan(&u.Code, &u.Label, &u.PriceCents); err != nil {
            return nil, err
        }
        res.Units = append(res.Units, u)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return &res, nil
}

// List returns resources, optionally restricted to active ones, with
// their units populated in a single follow-up query.
func (r *ResourceRepo) List(ctx context.Context, onlyActive bool) ([]model.Resource, error) {
    q := `SELECT id, name, kind, description, schedule, is_active, created_at, updated_at FROM resources`
    if onlyActive {
        q += ` WHERE is_active = 1`
    }
    q += ` ORDER BY id`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    resources := make([]model.Resource, 0)
    index := make(map[uint64]int)
    for rows.Next() {
        var res model.Resource
        if err := rows.Scan(&res.ID, &res.Name, (*string)(&res.Kind), &res.Description, &res.Schedule, &res.Active, &res.CreatedAt, &res.UpdatedAt); err != nil {
            return nil, err
        }
        index[res.ID] = len(resources)
        resources = append(resources, res)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    if len(resources) == 0 {
        return resources, nil
    }
    ids := make([]interface{}, 0, len(resources))
    placeholders := make([]string, 0, len(resources))
    for _, res := range resources {
        ids = append(ids, res.ID)
        placeholders = append(placeholders, "?")
    }
    unitQ := `SELECT resource_id, unit_code, label, price_cents FROM resource_units
              WHERE resource_id IN (` + strings.Join(placeholders, ",") + `) ORDER BY resource_id, unit_code`
    urows, err := r.db.QueryContext(ctx, unitQ, ids...)
    if err != nil {
        return nil, err
    }
    defer urows.Close()
    for urows.Next() {
        var rid uint64
        var u model.Unit
        if err := urows.Scan(&rid, &u.Code, &u.Label, &u.PriceCents); err != nil {
            return nil, err
        }
        if idx, ok := index[rid]; ok {
            resources[idx].Units = append(resources[idx].Units, u)
        }
    }
    if err := urows.Err(); err != nil {
        return nil, err
    }
    return resources, nil
}
