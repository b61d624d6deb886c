package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/visit-queue-reservation/internal/model"
)

// QueueRepo provides persistence for queue entries, the ordinal ranks
// of Active reservations inside one (organization, date, window)
// partition. Positions of Active entries always form the exact
// contiguous sequence {1..N}; every method that could disturb that
// invariant runs inside the caller's transaction while the partition's
// window row lock is held.
type QueueRepo struct {
	db *sql.DB
}

// NewQueueRepo returns a new QueueRepo bound to the given database.
func NewQueueRepo(db *sql.DB) *QueueRepo { return &QueueRepo{db: db} }

// MaxPositionTx returns the highest position currently assigned in the
// partition, 0 when the partition is empty. The next admission takes
// max+1. Safe only under the partition lock; a bare read would race
// with a concurrent admit.
func (r *QueueRepo) MaxPositionTx(ctx context.Context, tx *sql.Tx, orgID, windowID uint64, date time.Time) (uint32, error) {
	const q = `SELECT COALESCE(MAX(position), 0) FROM queue_entries
	           WHERE organization_id = ? AND window_id = ? AND visit_date = ?`
	var max uint32
	if err := tx.QueryRowContext(ctx, q, orgID, windowID, date.Format("2006-01-02")).Scan(&max); err != nil {
		return 0, err
	}
	return max, nil
}

// InsertTx persists a new queue entry within the caller's transaction.
// Created atomically with its owning reservation: neither row may
// commit without the other.
func (r *QueueRepo) InsertTx(ctx context.Context, tx *sql.Tx, e *model.QueueEntry) error {
	const q = `INSERT INTO queue_entries (reservation_id, organization_id, window_id, visit_date, position) VALUES (?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, e.ReservationID, e.OrganizationID, e.WindowID, e.VisitDate.Format("2006-01-02"), e.Position)
	return err
}

// EntryForReservationTx loads the queue entry owned by a reservation
// inside the caller's transaction. Every reservation has one, but the
// withdrawal flow handles sql.ErrNoRows defensively for repaired or
// legacy data.
func (r *QueueRepo) EntryForReservationTx(ctx context.Context, tx *sql.Tx, reservationID uint64) (*model.QueueEntry, error) {
	const q = `SELECT reservation_id, organization_id, window_id, visit_date, position, created_at
	           FROM queue_entries WHERE reservation_id = ?`
	var e model.QueueEntry
	err := tx.QueryRowContext(ctx, q, reservationID).Scan(
		&e.ReservationID, &e.OrganizationID, &e.WindowID, &e.VisitDate, &e.Position, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// DeleteTx removes the queue entry of a withdrawn reservation within
// the caller's transaction.
func (r *QueueRepo) DeleteTx(ctx context.Context, tx *sql.Tx, reservationID uint64) error {
	const q = `DELETE FROM queue_entries WHERE reservation_id = ?`
	_, err := tx.ExecContext(ctx, q, reservationID)
	return err
}

// ShiftDownTx closes the gap left by a removed position: every entry in
// the partition with a higher position moves down by exactly one, in a
// single bulk statement. The ascending ORDER BY makes the row updates
// apply lowest-first so the unique (partition, position) key is never
// transiently violated. Must run inside the withdrawal's transaction,
// after DeleteTx, while the partition lock is held.
func (r *QueueRepo) ShiftDownTx(ctx context.Context, tx *sql.Tx, orgID, windowID uint64, date time.Time, removedPosition uint32) error {
	const q = `UPDATE queue_entries SET position = position - 1
	           WHERE organization_id = ? AND window_id = ? AND visit_date = ? AND position > ?
	           ORDER BY position ASC`
	_, err := tx.ExecContext(ctx, q, orgID, windowID, date.Format("2006-01-02"), removedPosition)
	return err
}

// PositionForReservation returns the current queue position of one
// reservation. Returns sql.ErrNoRows when the reservation has no queue
// entry (withdrawn or unknown).
func (r *QueueRepo) PositionForReservation(ctx context.Context, reservationID uint64) (uint32, error) {
	const q = `SELECT position FROM queue_entries WHERE reservation_id = ?`
	var pos uint32
	if err := r.db.QueryRowContext(ctx, q, reservationID).Scan(&pos); err != nil {
		return 0, err
	}
	return pos, nil
}

// QueueRow is one line of the organization's daily queue listing.
type QueueRow struct {
	WindowID      uint64  `json:"window_id"`
	WindowLabel   string  `json:"window_label"`
	Position      uint32  `json:"position"`
	ReservationID uint64  `json:"reservation_id"`
	DisplayName   string  `json:"display_name"`
	Status        string  `json:"status"`
	Validated     bool    `json:"validated"`
	CheckedIn     bool    `json:"checked_in"`
}

// ListForOrgDate returns all queue entries of an organization for one
// date, ordered by window start time then position, joined with the
// visitor's display name and reservation flags. A read-only projection;
// it relies on committed state only.
func (r *QueueRepo) ListForOrgDate(ctx context.Context, orgID uint64, date time.Time) ([]QueueRow, error) {
	const q = `SELECT q.window_id, w.label, q.position, q.reservation_id,
	                  u.display_name, r.status, r.validated, r.checked_in
	           FROM queue_entries q
	           JOIN slot_windows w ON w.id = q.window_id
	           JOIN reservations r ON r.id = q.reservation_id
	           JOIN users u ON u.id = r.user_id
	           WHERE q.organization_id = ? AND q.visit_date = ?
	           ORDER BY w.starts_at, w.id, q.position`
	rows, err := r.db.QueryContext(ctx, q, orgID, date.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]QueueRow, 0)
	for rows.Next() {
		var row QueueRow
		if err := rows.Scan(&row.WindowID, &row.WindowLabel, &row.Position, &row.ReservationID,
			&row.DisplayName, &row.Status, &row.Validated, &row.CheckedIn); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
