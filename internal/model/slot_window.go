package model

import "time"

// SlotWindow describes one bookable time window offered by an
// organization.  A window applies to any visit date; the
// (organization, date, window) triple scopes one independent queue
// and one capacity limit.  Capacity is fixed per window: the number
// of Active reservations in a partition may never exceed it.
//
// Fields:
//  ID             – primary key identifier.
//  OrganizationID – owning organization.
//  Label          – human-readable window name (e.g. "Morning").
//  StartsAt       – time of day the window opens, "HH:MM" 24h.
//  EndsAt         – time of day the window closes, "HH:MM" 24h.
//  Capacity       – maximum number of Active reservations per date.
//  IsActive       – whether the window is currently bookable.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type SlotWindow struct {
	ID             uint64    // slot_windows.id
	OrganizationID uint64    // slot_windows.organization_id
	Label          string    // slot_windows.label
	StartsAt       string    // slot_windows.starts_at ("HH:MM")
	EndsAt         string    // slot_windows.ends_at ("HH:MM")
	Capacity       uint32    // slot_windows.capacity
	IsActive       bool      // slot_windows.is_active
	CreatedAt      time.Time // slot_windows.created_at
	UpdatedAt      time.Time // slot_windows.updated_at
}
