package booking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/visit-queue-reservation/internal/model"
	"github.com/iliyamo/visit-queue-reservation/internal/repository"
	"github.com/iliyamo/visit-queue-reservation/internal/utils"
)

// Requester identifies the caller of a booking mutation. The auth
// middleware establishes who the caller is; handlers translate that
// into a Requester and the core only enforces that it matches the
// reservation. UserID is always set; OrgID is non-zero only when the
// caller acts on behalf of an organization.
type Requester struct {
	UserID uint64
	OrgID  uint64
}

// allows reports whether the requester may mutate the reservation: the
// owning user or the owning organization, nobody else.
func (q Requester) allows(res *model.Reservation) bool {
	if q.UserID != 0 && q.UserID == res.UserID {
		return true
	}
	return q.OrgID != 0 && q.OrgID == res.OrganizationID
}

// Ledger owns the authoritative record of reservations and performs
// capacity admission. Admit is the only way a reservation comes into
// existence.
type Ledger struct {
	db           *sql.DB
	windows      *repository.WindowRepo
	reservations *repository.ReservationRepo
	queue        *repository.QueueRepo
	sequencer    *Sequencer
	maxRetries   int
}

// NewLedger constructs a Ledger. maxRetries bounds the transparent
// retries on lock-conflict aborts; 0 disables retrying.
func NewLedger(db *sql.DB, windows *repository.WindowRepo, reservations *repository.ReservationRepo, queue *repository.QueueRepo, maxRetries int) *Ledger {
	return &Ledger{
		db:           db,
		windows:      windows,
		reservations: reservations,
		queue:        queue,
		sequencer:    NewSequencer(queue),
		maxRetries:   maxRetries,
	}
}

// Admission is the result of a successful admit: the persisted
// reservation (with its check-in token) and the queue position it was
// assigned.
type Admission struct {
	Reservation *model.Reservation
	Position    uint32
}

// Admit accepts or rejects a reservation request against the window's
// capacity. Inside one transaction it locks the partition, checks that
// the window exists (repository.ErrNotFound), that the user holds no
// other Active reservation for the partition (ErrDuplicateReservation)
// and that the partition is below capacity (ErrCapacityExceeded), then
// persists the reservation, mints its check-in token and asks the
// sequencer for the next position. Any failure past the checks rolls
// everything back: a reservation never exists without a queue
// position, and vice versa. Lock-conflict aborts are retried a bounded
// number of times; precondition rejections are returned to the caller
// unretried.
func (l *Ledger) Admit(ctx context.Context, userID, orgID, windowID uint64, date time.Time) (*Admission, error) {
	var adm Admission
	err := runInTx(ctx, l.db, l.maxRetries, func(tx *sql.Tx) error {
		w, err := l.windows.GetForUpdateTx(ctx, tx, windowID, orgID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrNotFound
			}
			return storageErr(err)
		}
		dup, err := l.reservations.HasActiveTx(ctx, tx, userID, orgID, windowID, date)
		if err != nil {
			return storageErr(err)
		}
		if dup {
			return repository.ErrDuplicateReservation
		}
		active, err := l.reservations.CountActiveTx(ctx, tx, orgID, windowID, date)
		if err != nil {
			return storageErr(err)
		}
		if active >= int(w.Capacity) {
			return repository.ErrCapacityExceeded
		}
		res := &model.Reservation{
			UserID:         userID,
			OrganizationID: orgID,
			WindowID:       windowID,
			VisitDate:      date,
		}
		if err := l.reservations.CreateTx(ctx, tx, res); err != nil {
			return storageErr(err)
		}
		token, err := utils.NewCheckinToken(res.ID, userID)
		if err != nil {
			return storageErr(err)
		}
		if err := l.reservations.AttachTokenTx(ctx, tx, res.ID, token); err != nil {
			return storageErr(err)
		}
		res.CheckinToken = &token
		res.TokenIssued = true
		pos, err := l.sequencer.AssignNext(ctx, tx, orgID, windowID, date, res.ID)
		if err != nil {
			return err
		}
		adm = Admission{Reservation: res, Position: pos}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &adm, nil
}

// Position returns the current queue position of one reservation for
// its owning user or organization. Withdrawn or unknown reservations
// yield repository.ErrNotFound; foreign callers get ErrForbidden.
func (l *Ledger) Position(ctx context.Context, reservationID uint64, req Requester) (uint32, error) {
	res, err := l.reservations.GetByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, storageErr(err)
	}
	if !req.allows(res) {
		return 0, repository.ErrForbidden
	}
	pos, err := l.queue.PositionForReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, storageErr(err)
	}
	return pos, nil
}
