package models

import "time"

// ConditionalPermission represents an ad-hoc, optionally time- and
// location-constrained grant of a capability the holder's role does not
// include. The Conditions column holds the JSON encoding of the typed
// condition structure (access.Conditions); the access store decodes it and
// treats malformed JSON as a store failure, which fails the check closed.
//
// Grants are never deleted: they are marked inactive or left to expire.
// Expiry is evaluated at check time, not by a background sweep, so an
// expired grant never satisfies a check even while IsActive is still true.
type ConditionalPermission struct {
	// ID is the unique identifier for the grant.
	ID uint64 `gorm:"primaryKey"`
	// UserID is the ID of the user holding the grant.
	UserID uint64 `gorm:"not null;index:idx_grant_lookup"`
	// FacilityID is the ID of the facility the grant is scoped to.
	FacilityID uint64 `gorm:"not null;index:idx_grant_lookup"`
	// User is the holder (loaded via foreign key).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	// PermissionName is the capability being granted (resource.action format).
	PermissionName string `gorm:"size:100;not null;index:idx_grant_lookup"`
	// Conditions is the JSON-encoded condition structure; empty means unconditional.
	Conditions []byte
	// IsActive indicates whether the grant currently applies.
	IsActive bool `gorm:"not null;default:true;index"`
	// GrantedBy is the ID of the user who granted the permission.
	GrantedBy uint64 `gorm:"not null"`
	// ExpiresAt is the optional expiry instant; nil means no expiry.
	ExpiresAt *time.Time
	// RevokedBy is the ID of the user who revoked the grant, zero while active.
	RevokedBy uint64
	// RevokedAt is when the grant was revoked.
	RevokedAt *time.Time
	// CreatedAt is the timestamp when the grant was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the grant was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the ConditionalPermission model.
// This overrides GORM's default pluralized table naming.
func (ConditionalPermission) TableName() string {
	return "conditional_permissions"
}
