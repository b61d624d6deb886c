package model

import "time"

// Reservation status values.  A reservation is created ACTIVE and
// flips to WITHDRAWN exactly once; there is no other transition and
// rows are never physically deleted.
const (
	ReservationActive    = "ACTIVE"
	ReservationWithdrawn = "WITHDRAWN"
)

// Reservation records one user's claim on one time window on one
// date at one organization.  At most one ACTIVE reservation may
// exist per (user, organization, date, window).  The validated and
// checked-in flags are written only by a confirmed check-in and are
// one-way: once true the reservation can no longer be withdrawn.
//
// Fields:
//  ID             – primary key identifier.
//  UserID         – user who made the reservation.
//  OrganizationID – organization being visited.
//  WindowID       – slot window being reserved.
//  VisitDate      – visit date (date component only, UTC).
//  Status         – ACTIVE or WITHDRAWN.
//  Validated      – set true only by confirmed check-in.
//  CheckedIn      – set true only by confirmed check-in.
//  CheckinToken   – single-use opaque token, assigned at most once.
//  TokenIssued    – guards against token regeneration.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Reservation struct {
	ID             uint64    // reservations.id
	UserID         uint64    // reservations.user_id
	OrganizationID uint64    // reservations.organization_id
	WindowID       uint64    // reservations.window_id
	VisitDate      time.Time // reservations.visit_date (DATE)
	Status         string    // reservations.status
	Validated      bool      // reservations.validated
	CheckedIn      bool      // reservations.checked_in
	CheckinToken   *string   // reservations.checkin_token (nullable)
	TokenIssued    bool      // reservations.token_issued
	CreatedAt      time.Time // reservations.created_at
	UpdatedAt      time.Time // reservations.updated_at
}

// QueueEntry holds a reservation's ordinal rank among all ACTIVE
// reservations sharing the same (organization, date, window)
// partition.  Positions of ACTIVE entries always form the exact
// contiguous sequence {1..N} after every committed admit or
// withdrawal.  An entry is created atomically with its reservation
// and is mutated only by the renumbering step of a withdrawal.
//
// Fields:
//  ReservationID  – owning reservation (1:1).
//  OrganizationID – partition key component.
//  WindowID       – partition key component.
//  VisitDate      – partition key component.
//  Position       – ordinal rank, >= 1.
//  CreatedAt      – creation timestamp.
type QueueEntry struct {
	ReservationID  uint64    // queue_entries.reservation_id
	OrganizationID uint64    // queue_entries.organization_id
	WindowID       uint64    // queue_entries.window_id
	VisitDate      time.Time // queue_entries.visit_date (DATE)
	Position       uint32    // queue_entries.position
	CreatedAt      time.Time // queue_entries.created_at
}
