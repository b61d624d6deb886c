package booking

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/visit-queue-reservation/internal/model"
	"github.com/iliyamo/visit-queue-reservation/internal/repository"
)

// Canceller coordinates withdrawal of a reservation and the matching
// queue renumbering as one atomic unit. Neither the renumbering nor
// the state flip ever commits without the other.
type Canceller struct {
	db           *sql.DB
	windows      *repository.WindowRepo
	reservations *repository.ReservationRepo
	queue        *repository.QueueRepo
	sequencer    *Sequencer
	maxRetries   int
}

// NewCanceller constructs a Canceller. maxRetries bounds the
// transparent retries on lock-conflict aborts.
func NewCanceller(db *sql.DB, windows *repository.WindowRepo, reservations *repository.ReservationRepo, queue *repository.QueueRepo, maxRetries int) *Canceller {
	return &Canceller{
		db:           db,
		windows:      windows,
		reservations: reservations,
		queue:        queue,
		sequencer:    NewSequencer(queue),
		maxRetries:   maxRetries,
	}
}

// Withdraw cancels a reservation on behalf of its owning user or
// organization. A first plain read establishes the partition, then the
// transaction takes the partition lock in the same order Admit does and
// re-reads the reservation under its row lock before judging it:
// ErrAlreadyWithdrawn for a second withdrawal, ErrForbidden for any
// other caller, ErrAlreadyValidated when check-in already happened. A
// checked-in reservation is frozen against withdrawal forever. On
// success the queue entry is removed, higher positions shift down by
// one and the reservation flips to WITHDRAWN, all committing together.
func (c *Canceller) Withdraw(ctx context.Context, reservationID uint64, req Requester) error {
	probe, err := c.reservations.GetByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return storageErr(err)
	}
	return runInTx(ctx, c.db, c.maxRetries, func(tx *sql.Tx) error {
		if err := c.windows.LockTx(ctx, tx, probe.WindowID, probe.OrganizationID); err != nil {
			// Window rows outlive their reservations, so a missing row only
			// occurs for repaired legacy data; the reservation row lock below
			// still guards the withdrawal itself.
			if !errors.Is(err, sql.ErrNoRows) {
				return storageErr(err)
			}
		}
		res, err := c.reservations.GetForUpdateTx(ctx, tx, reservationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrNotFound
			}
			return storageErr(err)
		}
		if res.Status == model.ReservationWithdrawn {
			return repository.ErrAlreadyWithdrawn
		}
		if !req.allows(res) {
			return repository.ErrForbidden
		}
		if res.Validated || res.CheckedIn {
			return repository.ErrAlreadyValidated
		}
		entry, err := c.queue.EntryForReservationTx(ctx, tx, reservationID)
		switch {
		case err == nil:
			if err := c.sequencer.RenumberAfter(ctx, tx, entry.OrganizationID, entry.WindowID, entry.VisitDate, reservationID, entry.Position); err != nil {
				return err
			}
		case errors.Is(err, sql.ErrNoRows):
			// Repaired or legacy data without a queue entry: nothing to
			// renumber, the state flip below still applies.
		default:
			return storageErr(err)
		}
		if err := c.reservations.MarkWithdrawnTx(ctx, tx, reservationID); err != nil {
			if errors.Is(err, repository.ErrAlreadyWithdrawn) {
				return err
			}
			return storageErr(err)
		}
		return nil
	})
}
