package booking

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/visit-queue-reservation/internal/model"
	"github.com/iliyamo/visit-queue-reservation/internal/repository"
)

// Sequencer owns ordinal position assignment within a partition. It
// guarantees that after every committed admit or withdrawal the
// positions of Active entries form a contiguous ascending sequence
// starting at 1. Both methods execute inside the caller's transaction
// and assume the caller already holds the partition's window row lock;
// they are not safe to call outside that discipline.
type Sequencer struct {
	queue *repository.QueueRepo
}

// NewSequencer returns a Sequencer over the given queue repository.
func NewSequencer(queue *repository.QueueRepo) *Sequencer {
	return &Sequencer{queue: queue}
}

// AssignNext computes 1 + max(position) over the partition (1 when the
// partition is empty), persists a new queue entry at that position for
// the reservation and returns it. The read and the insert commit
// together with the caller's reservation insert or not at all.
func (s *Sequencer) AssignNext(ctx context.Context, tx *sql.Tx, orgID, windowID uint64, date time.Time, reservationID uint64) (uint32, error) {
	max, err := s.queue.MaxPositionTx(ctx, tx, orgID, windowID, date)
	if err != nil {
		return 0, storageErr(err)
	}
	pos := max + 1
	entry := &model.QueueEntry{
		ReservationID:  reservationID,
		OrganizationID: orgID,
		WindowID:       windowID,
		VisitDate:      date,
		Position:       pos,
	}
	if err := s.queue.InsertTx(ctx, tx, entry); err != nil {
		return 0, storageErr(err)
	}
	return pos, nil
}

// RenumberAfter removes the queue entry of a withdrawn reservation and
// shifts every higher position in the partition down by one, restoring
// contiguity in a single bulk statement. Runs inside the withdrawal's
// transaction; a failure rolls back the entire withdrawal.
func (s *Sequencer) RenumberAfter(ctx context.Context, tx *sql.Tx, orgID, windowID uint64, date time.Time, reservationID uint64, removedPosition uint32) error {
	if err := s.queue.DeleteTx(ctx, tx, reservationID); err != nil {
		return storageErr(err)
	}
	if err := s.queue.ShiftDownTx(ctx, tx, orgID, windowID, date, removedPosition); err != nil {
		return storageErr(err)
	}
	return nil
}
