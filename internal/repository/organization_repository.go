package repository

import (
	"context"
	"database/sql"
	"strings"
)

// Organization mirrors the 'organizations' table. Each organization
// belongs to one owner with the ORG role and is the anchor for its
// slot window catalog and reservation queues.
type Organization struct {
	ID          uint64
	OwnerID     uint64
	Name        string
	Description *string
	IsActive    bool
	CreatedAt   string
	UpdatedAt   string
}

// OrganizationRepo manages persistence for organizations.
type OrganizationRepo struct {
	db *sql.DB
}

// NewOrganizationRepo constructs an OrganizationRepo with the given DB handle.
func NewOrganizationRepo(db *sql.DB) *OrganizationRepo { return &OrganizationRepo{db: db} }

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *OrganizationRepo) DB() *sql.DB { return r.db }

// Create inserts a new organization for the given owner and assigns the
// generated ID back to the struct.  A duplicate name for the same owner
// maps to ErrConflict.
func (r *OrganizationRepo) Create(ctx context.Context, o *Organization) error {
	const q = `INSERT INTO organizations (owner_id, name, description) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, o.OwnerID, o.Name, o.Description)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	const sel = `SELECT id, owner_id, name, description, is_active, created_at, updated_at FROM organizations WHERE id = ?`
	var desc sql.NullString
	if err := r.db.QueryRowContext(ctx, sel, o.ID).Scan(
		&o.ID, &o.OwnerID, &o.Name, &desc, &o.IsActive, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return err
	}
	if desc.Valid {
		d := desc.String
		o.Description = &d
	}
	return nil
}

// GetByID fetches one organization by id. Returns sql.ErrNoRows when
// it does not exist.
func (r *OrganizationRepo) GetByID(ctx context.Context, id uint64) (*Organization, error) {
	const q = `SELECT id, owner_id, name, description, is_active, created_at, updated_at FROM organizations WHERE id = ?`
	var o Organization
	var desc sql.NullString
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&o.ID, &o.OwnerID, &o.Name, &desc, &o.IsActive, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		o.Description = &d
	}
	return &o, nil
}

// GetByOwner fetches the organization owned by the given user.  Handlers
// use this to resolve the acting organization from the authenticated
// ORG user.  Returns sql.ErrNoRows when the user has no organization.
func (r *OrganizationRepo) GetByOwner(ctx context.Context, ownerID uint64) (*Organization, error) {
	const q = `SELECT id, owner_id, name, description, is_active, created_at, updated_at FROM organizations WHERE owner_id = ? LIMIT 1`
	var o Organization
	var desc sql.NullString
	err := r.db.QueryRowContext(ctx, q, ownerID).Scan(
		&o.ID, &o.OwnerID, &o.Name, &desc, &o.IsActive, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		o.Description = &d
	}
	return &o, nil
}

// ListActive returns all active organizations ordered by name.  Used by
// the public browse endpoints.
func (r *OrganizationRepo) ListActive(ctx context.Context) ([]Organization, error) {
	const q = `SELECT id, owner_id, name, description, is_active, created_at, updated_at
	           FROM organizations WHERE is_active = 1 ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Organization, 0)
	for rows.Next() {
		var o Organization
		var desc sql.NullString
		if err := rows.Scan(&o.ID, &o.OwnerID, &o.Name, &desc, &o.IsActive, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		if desc.Valid {
			d := desc.String
			o.Description = &d
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
