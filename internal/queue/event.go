// Package queue defines message payloads exchanged over the message broker.
package queue

// Event types published on the reservation.events queue.
const (
	EventReservationCreated   = "reservation.created"
	EventReservationWithdrawn = "reservation.withdrawn"
	EventReservationCheckedIn = "reservation.checked_in"
)

// ReservationEvent is published after a booking mutation commits. It
// contains enough information for downstream consumers to log, notify
// or trigger analytics without querying the primary database. Position
// is the assigned queue position for created events and the freed
// position for withdrawn events; it is zero for check-ins.
type ReservationEvent struct {
	Type             string `json:"type"`
	ReservationID    uint64 `json:"reservation_id"`
	UserID           uint64 `json:"user_id"`
	OrganizationID   uint64 `json:"organization_id"`
	OrganizationName string `json:"organization_name,omitempty"`
	WindowID         uint64 `json:"window_id"`
	WindowLabel      string `json:"window_label,omitempty"`
	VisitDate        string `json:"visit_date"`
	Position         uint32 `json:"position,omitempty"`
	OccurredAt       string `json:"occurred_at"`
}
