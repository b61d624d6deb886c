// Package repository contains data access logic for the slot window
// catalog. A SlotWindow is one bookable time window offered by an
// organization; together with a visit date it forms the partition that
// scopes one queue and one capacity limit. The window row doubles as
// the lock anchor for partition-scoped exclusivity: the booking core
// takes SELECT ... FOR UPDATE on it before touching reservation or
// queue rows.
package repository

import (
	"context"
	"database/sql"
)

// SlotWindow mirrors the 'slot_windows' table. StartsAt/EndsAt are
// times of day stored as "HH:MM:SS"; Capacity is the fixed admission
// limit per (organization, date, window) partition.
type SlotWindow struct {
	ID             uint64
	OrganizationID uint64
	Label          string
	StartsAt       string
	EndsAt         string
	Capacity       uint32
	IsActive       bool
	CreatedAt      string
	UpdatedAt      string
}

// WindowRepo manages persistence for slot windows.
type WindowRepo struct {
	db *sql.DB
}

// NewWindowRepo constructs a WindowRepo with the given DB handle.
func NewWindowRepo(db *sql.DB) *WindowRepo { return &WindowRepo{db: db} }

// DB exposes the underlying sql.DB for callers that need to begin
// transactions spanning multiple repositories.
func (r *WindowRepo) DB() *sql.DB { return r.db }

// Create inserts a new slot window and populates the generated ID and
// DB-default fields on the given struct.
func (r *WindowRepo) Create(ctx context.Context, w *SlotWindow) error {
	const q = `INSERT INTO slot_windows (organization_id, label, starts_at, ends_at, capacity) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, w.OrganizationID, w.Label, w.StartsAt, w.EndsAt, w.Capacity)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	w.ID = uint64(id)
	const sel = `SELECT id, organization_id, label, starts_at, ends_at, capacity, is_active, created_at, updated_at
	             FROM slot_windows WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, w.ID).Scan(
		&w.ID, &w.OrganizationID, &w.Label, &w.StartsAt, &w.EndsAt,
		&w.Capacity, &w.IsActive, &w.CreatedAt, &w.UpdatedAt,
	)
}

// GetForOrg fetches one window scoped to an organization. Returns
// sql.ErrNoRows when the window does not exist or belongs to a
// different organization.
func (r *WindowRepo) GetForOrg(ctx context.Context, windowID, orgID uint64) (*SlotWindow, error) {
	const q = `SELECT id, organization_id, label, starts_at, ends_at, capacity, is_active, created_at, updated_at
	           FROM slot_windows WHERE id = ? AND organization_id = ?`
	var w SlotWindow
	err := r.db.QueryRowContext(ctx, q, windowID, orgID).Scan(
		&w.ID, &w.OrganizationID, &w.Label, &w.StartsAt, &w.EndsAt,
		&w.Capacity, &w.IsActive, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetForUpdateTx loads an active window scoped to an organization and
// takes an exclusive row lock on it for the duration of the caller's
// transaction. Every admission and withdrawal on a partition acquires
// this lock first, which serializes all capacity checks, position
// assignments and renumbering on the partition. Returns sql.ErrNoRows
// when no active window matches, which callers surface as ErrNotFound.
func (r *WindowRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, windowID, orgID uint64) (*SlotWindow, error) {
	const q = `SELECT id, organization_id, label, starts_at, ends_at, capacity, is_active, created_at, updated_at
	           FROM slot_windows WHERE id = ? AND organization_id = ? AND is_active = 1 FOR UPDATE`
	var w SlotWindow
	err := tx.QueryRowContext(ctx, q, windowID, orgID).Scan(
		&w.ID, &w.OrganizationID, &w.Label, &w.StartsAt, &w.EndsAt,
		&w.Capacity, &w.IsActive, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// LockTx takes the partition's exclusive window row lock without the
// is_active filter. Withdrawals use this variant: a reservation on a
// window that has since been deactivated must still be cancellable,
// and its partition still needs serialized renumbering.
func (r *WindowRepo) LockTx(ctx context.Context, tx *sql.Tx, windowID, orgID uint64) error {
	const q = `SELECT id FROM slot_windows WHERE id = ? AND organization_id = ? FOR UPDATE`
	var id uint64
	return tx.QueryRowContext(ctx, q, windowID, orgID).Scan(&id)
}

// ListByOrg returns all windows for an organization ordered by start
// time. When activeOnly is true, inactive windows are filtered out.
func (r *WindowRepo) ListByOrg(ctx context.Context, orgID uint64, activeOnly bool) ([]SlotWindow, error) {
	q := `SELECT id, organization_id, label, starts_at, ends_at, capacity, is_active, created_at, updated_at
	      FROM slot_windows WHERE organization_id = ?`
	if activeOnly {
		q += ` AND is_active = 1`
	}
	q += ` ORDER BY starts_at, id`
	rows, err := r.db.QueryContext(ctx, q, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]SlotWindow, 0)
	for rows.Next() {
		var w SlotWindow
		if err := rows.Scan(&w.ID, &w.OrganizationID, &w.Label, &w.StartsAt, &w.EndsAt,
			&w.Capacity, &w.IsActive, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// Update modifies label, times, capacity and active flag of a window
// owned by the given organization. Shrinking capacity below the
// current number of Active reservations is allowed: existing
// reservations keep their positions and only new admissions are
// rejected. Returns sql.ErrNoRows when nothing matched.
func (r *WindowRepo) Update(ctx context.Context, w *SlotWindow) error {
	const q = `UPDATE slot_windows SET label = ?, starts_at = ?, ends_at = ?, capacity = ?, is_active = ?
	           WHERE id = ? AND organization_id = ?`
	res, err := r.db.ExecContext(ctx, q, w.Label, w.StartsAt, w.EndsAt, w.Capacity, w.IsActive, w.ID, w.OrganizationID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a window owned by the given organization. A window
// that still has Active reservations (on any date) cannot be deleted;
// the caller gets ErrConflict and must cancel or wait out the
// reservations first. Returns sql.ErrNoRows when the window does not
// exist for the organization.
func (r *WindowRepo) Delete(ctx context.Context, windowID, orgID uint64) error {
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
	var n int
	const cnt = `SELECT COUNT(*) FROM reservations WHERE window_id = ? AND organization_id = ? AND status = 'ACTIVE'`
	if err := tx.QueryRowContext(ctx, cnt, windowID, orgID).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	const del = `DELETE FROM slot_windows WHERE id = ? AND organization_id = ?`
	res, err := tx.ExecContext(ctx, del, windowID, orgID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
