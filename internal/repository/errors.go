// Package repository defines error values that are reused across
// repositories and the booking core. These sentinel values allow
// higher layers such as handlers to distinguish between different
// failure scenarios and map each one to a distinct, stable HTTP
// response. All of them except ErrStorage describe expected,
// recoverable outcomes of normal usage; they must never be coerced
// into a generic failure.
package repository

import "errors"

// ErrNotFound is returned when a referenced reservation, window or
// check-in token does not exist, or does not belong to the caller's
// organization/user scope. Handlers should translate this into an
// HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrDuplicateReservation is returned when the caller already holds
// an ACTIVE reservation for the target (organization, date, window)
// partition. Handlers should translate this into an HTTP 409
// response.
var ErrDuplicateReservation = errors.New("duplicate reservation")

// ErrCapacityExceeded is returned when the target partition is full
// at the moment of admission. Handlers should translate this into
// an HTTP 409 response.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrAlreadyWithdrawn is returned when a withdrawal targets a
// reservation that has already been withdrawn.
var ErrAlreadyWithdrawn = errors.New("already withdrawn")

// ErrAlreadyValidated is returned when a withdrawal targets a
// reservation past check-in. A validated or checked-in reservation
// is immutable with respect to withdrawal.
var ErrAlreadyValidated = errors.New("already validated")

// ErrAlreadyCheckedIn is returned when a scan or confirm targets a
// token whose reservation has already been checked in. The token is
// inert from that point on; further scans are rejected, not
// re-processed.
var ErrAlreadyCheckedIn = errors.New("already checked in")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as attempting to
// delete a slot window that still has active reservations.
// Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrStorage wraps unclassified failures of the underlying atomic
// unit of work (connectivity loss, constraint violation, aborted
// transaction). Callers receive it after the unit has been rolled
// back in full.
var ErrStorage = errors.New("storage error")
