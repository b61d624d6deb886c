package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/visit-queue-reservation/internal/model"
)

// ReservationRepo provides persistence for reservations, the
// authoritative record of a user's claim on a slot window. Rows are
// created ACTIVE, flip to WITHDRAWN at most once and are never
// physically deleted. All mutating methods that participate in an
// admission or withdrawal take an explicit *sql.Tx so the booking core
// can commit them together with the matching queue entry change.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying sql.DB for transaction control.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationCols = `id, user_id, organization_id, window_id, visit_date, status, validated, checked_in, checkin_token, token_issued, created_at, updated_at`

func scanReservation(row *sql.Row) (*model.Reservation, error) {
	var res model.Reservation
	var token sql.NullString
	err := row.Scan(
		&res.ID, &res.UserID, &res.OrganizationID, &res.WindowID, &res.VisitDate,
		&res.Status, &res.Validated, &res.CheckedIn, &token, &res.TokenIssued,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if token.Valid {
		t := token.String
		res.CheckinToken = &t
	}
	return &res, nil
}

// CreateTx inserts a new ACTIVE reservation within the scope of an
// existing transaction and populates the generated ID and DB-default
// fields on the provided struct. The caller must commit or roll back
// the transaction; a reservation must never commit without its queue
// entry.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (user_id, organization_id, window_id, visit_date, status) VALUES (?, ?, ?, ?, 'ACTIVE')`
	result, err := tx.ExecContext(ctx, q, res.UserID, res.OrganizationID, res.WindowID, res.VisitDate.Format("2006-01-02"))
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	// Query back the full row to populate timestamps and defaults
	const sel = `SELECT ` + reservationCols + ` FROM reservations WHERE id = ?`
	loaded, err := scanReservation(tx.QueryRowContext(ctx, sel, res.ID))
	if err != nil {
		return err
	}
	*res = *loaded
	return nil
}

// HasActiveTx reports whether the user already holds an ACTIVE
// reservation for the given partition. Executed inside the admission
// transaction, after the partition lock is held, so the answer cannot
// be invalidated by a concurrent admit.
func (r *ReservationRepo) HasActiveTx(ctx context.Context, tx *sql.Tx, userID, orgID, windowID uint64, date time.Time) (bool, error) {
	const q = `SELECT COUNT(*) FROM reservations
	           WHERE user_id = ? AND organization_id = ? AND window_id = ? AND visit_date = ? AND status = 'ACTIVE'`
	var n int
	if err := tx.QueryRowContext(ctx, q, userID, orgID, windowID, date.Format("2006-01-02")).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountActiveTx returns the number of ACTIVE reservations bound to the
// partition. Compared against the window capacity inside the admission
// transaction.
func (r *ReservationRepo) CountActiveTx(ctx context.Context, tx *sql.Tx, orgID, windowID uint64, date time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM reservations
	           WHERE organization_id = ? AND window_id = ? AND visit_date = ? AND status = 'ACTIVE'`
	var n int
	if err := tx.QueryRowContext(ctx, q, orgID, windowID, date.Format("2006-01-02")).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// AttachTokenTx assigns the single-use check-in token to a reservation.
// The token_issued guard makes the assignment happen at most once; a
// second attempt affects zero rows and returns ErrConflict. The token
// is immutable from this point on.
func (r *ReservationRepo) AttachTokenTx(ctx context.Context, tx *sql.Tx, reservationID uint64, token string) error {
	const q = `UPDATE reservations SET checkin_token = ?, token_issued = 1 WHERE id = ? AND token_issued = 0`
	res, err := tx.ExecContext(ctx, q, token, reservationID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// GetByID loads one reservation by id. Returns sql.ErrNoRows when it
// does not exist.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id = ?`
	return scanReservation(r.db.QueryRowContext(ctx, q, id))
}

// GetForUpdateTx loads one reservation by id and takes an exclusive row
// lock for the duration of the transaction. The withdrawal flow re-reads
// the reservation under this lock after acquiring the partition lock so
// its lifecycle checks cannot race with a concurrent check-in or second
// withdrawal.
func (r *ReservationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id = ? FOR UPDATE`
	return scanReservation(tx.QueryRowContext(ctx, q, id))
}

// MarkWithdrawnTx flips an ACTIVE reservation to WITHDRAWN inside the
// caller's transaction. The status guard means a concurrent withdrawal
// that won the race leaves this one affecting zero rows, reported as
// ErrAlreadyWithdrawn.
func (r *ReservationRepo) MarkWithdrawnTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	const q = `UPDATE reservations SET status = 'WITHDRAWN' WHERE id = ? AND status = 'ACTIVE'`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyWithdrawn
	}
	return nil
}

// ConfirmCheckin atomically sets validated and checked_in for the
// reservation matching the token within the presenting organization.
// The checked_in = 0 guard makes the write conditional: of two
// near-simultaneous confirms exactly one affects a row, the other
// observes zero rows affected. This is the only statement anywhere that
// writes the two flags.
func (r *ReservationRepo) ConfirmCheckin(ctx context.Context, token string, orgID uint64) (bool, error) {
	const q = `UPDATE reservations SET validated = 1, checked_in = 1
	           WHERE checkin_token = ? AND organization_id = ? AND status = 'ACTIVE' AND checked_in = 0`
	res, err := r.db.ExecContext(ctx, q, token, orgID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CheckinDetail is the projection returned for scan/confirm prompts:
// the reservation joined with the visitor's display name, the window
// label and the current queue position (zero when the queue entry is
// gone, e.g. for repaired legacy rows).
type CheckinDetail struct {
	ReservationID uint64    `json:"reservation_id"`
	DisplayName   string    `json:"display_name"`
	WindowLabel   string    `json:"window_label"`
	VisitDate     time.Time `json:"-"`
	Status        string    `json:"status"`
	Validated     bool      `json:"validated"`
	CheckedIn     bool      `json:"checked_in"`
	Position      uint32    `json:"position"`
}

// GetByToken resolves a check-in token to its reservation detail,
// scoped to the organization presenting the token. Tokens do not cross
// organizations: a token minted for another organization's reservation
// yields sql.ErrNoRows here, indistinguishable from an unknown token.
func (r *ReservationRepo) GetByToken(ctx context.Context, token string, orgID uint64) (*CheckinDetail, error) {
	const q = `SELECT r.id, u.display_name, w.label, r.visit_date, r.status, r.validated, r.checked_in,
	                  COALESCE(q.position, 0)
	           FROM reservations r
	           JOIN users u ON u.id = r.user_id
	           JOIN slot_windows w ON w.id = r.window_id
	           LEFT JOIN queue_entries q ON q.reservation_id = r.id
	           WHERE r.checkin_token = ? AND r.organization_id = ?`
	var d CheckinDetail
	err := r.db.QueryRowContext(ctx, q, token, orgID).Scan(
		&d.ReservationID, &d.DisplayName, &d.WindowLabel, &d.VisitDate,
		&d.Status, &d.Validated, &d.CheckedIn, &d.Position,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ReservationDetail is the per-user listing projection: reservation
// core fields joined with the organization name, window label and
// current queue position.
type ReservationDetail struct {
	ID               uint64    `json:"id"`
	OrganizationID   uint64    `json:"organization_id"`
	OrganizationName string    `json:"organization_name"`
	WindowID         uint64    `json:"window_id"`
	WindowLabel      string    `json:"window_label"`
	VisitDate        time.Time `json:"-"`
	Status           string    `json:"status"`
	CheckedIn        bool      `json:"checked_in"`
	Position         uint32    `json:"position"`
	CheckinToken     *string   `json:"checkin_token,omitempty"`
}

// ListByUser returns all reservations for the given user ordered by
// visit date descending. The check-in token is included so the client
// can render the scannable code; it is only ever returned to the
// reservation's owner.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]ReservationDetail, error) {
	const q = `SELECT r.id, r.organization_id, o.name, r.window_id, w.label, r.visit_date,
	                  r.status, r.checked_in, COALESCE(q.position, 0), r.checkin_token
	           FROM reservations r
	           JOIN organizations o ON o.id = r.organization_id
	           JOIN slot_windows w ON w.id = r.window_id
	           LEFT JOIN queue_entries q ON q.reservation_id = r.id
	           WHERE r.user_id = ?
	           ORDER BY r.visit_date DESC, r.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ReservationDetail, 0)
	for rows.Next() {
		var d ReservationDetail
		var token sql.NullString
		if err := rows.Scan(&d.ID, &d.OrganizationID, &d.OrganizationName, &d.WindowID, &d.WindowLabel,
			&d.VisitDate, &d.Status, &d.CheckedIn, &d.Position, &token); err != nil {
			return nil, err
		}
		if token.Valid {
			t := token.String
			d.CheckinToken = &t
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
