package booking

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/visit-queue-reservation/internal/model"
	"github.com/iliyamo/visit-queue-reservation/internal/repository"
)

// Validator mediates the two-step check-in protocol keyed by a
// reservation's single-use token and is the only writer of the
// terminal validated/checked-in state. The per-reservation state
// machine is Unvalidated → PendingConfirmation (after a successful
// scan, held only by the operator's screen, never persisted) →
// Validated. Validated is terminal.
type Validator struct {
	reservations *repository.ReservationRepo
}

// NewValidator constructs a Validator over the reservation repository.
func NewValidator(reservations *repository.ReservationRepo) *Validator {
	return &Validator{reservations: reservations}
}

// resolve maps a token lookup to the core error taxonomy. Tokens are
// scoped to the presenting organization; an unknown token, a foreign
// organization's token and a withdrawn reservation's token are all
// indistinguishable ErrNotFound. A consumed token is inert:
// ErrAlreadyCheckedIn, never re-processed.
func (v *Validator) resolve(ctx context.Context, token string, orgID uint64) (*repository.CheckinDetail, error) {
	d, err := v.reservations.GetByToken(ctx, token, orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, storageErr(err)
	}
	if d.Status != model.ReservationActive {
		return nil, repository.ErrNotFound
	}
	if d.CheckedIn {
		return d, repository.ErrAlreadyCheckedIn
	}
	return d, nil
}

// Scan resolves a presented token and returns the confirmation prompt
// payload: who is checking in, their queue position, the visit date and
// current status. Scan mutates nothing; it may be called any number of
// times without consuming the token.
func (v *Validator) Scan(ctx context.Context, token string, orgID uint64) (*repository.CheckinDetail, error) {
	d, err := v.resolve(ctx, token, orgID)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Confirm consumes the token: a conditional update guarded on the
// current checked_in value sets validated and checked_in in one
// statement, so of two racing confirms exactly one applies and the
// other observes ErrAlreadyCheckedIn. Confirm never trusts an earlier
// Scan; it re-resolves the token itself. Writing the flags freezes the
// reservation against withdrawal permanently.
func (v *Validator) Confirm(ctx context.Context, token string, orgID uint64) (*repository.CheckinDetail, error) {
	applied, err := v.reservations.ConfirmCheckin(ctx, token, orgID)
	if err != nil {
		return nil, storageErr(err)
	}
	d, err := v.resolve(ctx, token, orgID)
	if applied {
		// This call won the conditional update; resolve necessarily sees
		// checked_in = 1 now, which is the success payload, not an error.
		if d == nil {
			return nil, err
		}
		return d, nil
	}
	if err != nil {
		return nil, err
	}
	// Zero rows affected yet resolve found an un-checked-in Active
	// reservation: the row changed between the two statements. Report it
	// as consumed; the caller re-scans if it believes this is wrong.
	return nil, repository.ErrAlreadyCheckedIn
}
