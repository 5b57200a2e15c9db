package models

import "time"

// FacilityRoleOverride represents a facility-specific role assignment that
// replaces the user's global role for access decisions scoped to that
// facility. At most one override may be active per (user, facility) pair;
// the access store enforces the invariant at read and write time. Overrides
// are soft-deleted via IsActive=false, never hard-deleted, to preserve the
// grant history; a role change is modeled as revoke-then-grant.
type FacilityRoleOverride struct {
	// ID is the unique identifier for the override.
	ID uint64 `gorm:"primaryKey"`
	// UserID is the ID of the user the override applies to.
	UserID uint64 `gorm:"not null;index:idx_override_user_facility"`
	// FacilityID is the ID of the facility the override is scoped to.
	FacilityID uint64 `gorm:"not null;index:idx_override_user_facility"`
	// User is the associated user (loaded via foreign key).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	// Facility is the associated facility (loaded via foreign key).
	Facility Facility `gorm:"foreignKey:FacilityID;constraint:OnDelete:CASCADE"`
	// Role is the role name the user holds at this facility. Must be a
	// member of the closed role set.
	Role string `gorm:"size:50;not null"`
	// GrantedBy is the ID of the user who granted the override.
	GrantedBy uint64 `gorm:"not null"`
	// GrantedAt is when the override was granted.
	GrantedAt time.Time `gorm:"not null"`
	// IsActive indicates whether the override currently applies.
	IsActive bool `gorm:"not null;default:true;index"`
	// RevokedBy is the ID of the user who revoked the override, zero while active.
	RevokedBy uint64
	// RevokedAt is when the override was revoked.
	RevokedAt *time.Time
	// CreatedAt is the timestamp when the row was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the row was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the FacilityRoleOverride model.
// This overrides GORM's default pluralized table naming.
func (FacilityRoleOverride) TableName() string {
	return "facility_role_overrides"
}
