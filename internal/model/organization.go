package model

import "time"

// Organization represents a venue that accepts visit reservations.
// Each organization is owned by one user with the ORG role and
// defines its own catalog of bookable slot windows.  This struct
// corresponds to a row in the `organizations` table.
//
// Fields:
//  ID          – primary key identifier.
//  OwnerID     – user ID of the organization owner.
//  Name        – unique name of the organization per owner.
//  Description – optional free-text description.
//  IsActive    – whether the organization accepts new reservations.
//  CreatedAt   – timestamp when the organization was created.
//  UpdatedAt   – timestamp of last update.
type Organization struct {
	ID          uint64    // organizations.id
	OwnerID     uint64    // organizations.owner_id
	Name        string    // organizations.name
	Description *string   // organizations.description (nullable)
	IsActive    bool      // organizations.is_active
	CreatedAt   time.Time // organizations.created_at
	UpdatedAt   time.Time // organizations.updated_at
}
