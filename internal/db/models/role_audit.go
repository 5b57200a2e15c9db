package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoleAuditLog is the append-only record of one role or grant mutation.
// Every mutation writes exactly one entry in the same transaction as the
// mutation itself; the trail is the sole source of truth for who changed
// which role, when, and why.
type RoleAuditLog struct {
	// ID is the UUID primary key of the entry.
	ID string `gorm:"primaryKey;size:36"`
	// UserID is the ID of the acting user.
	UserID uint64 `gorm:"not null;index"`
	// TargetUserID is the ID of the user whose role or grant changed.
	TargetUserID uint64 `gorm:"not null;index"`
	// Action names the mutation (global_role_change, facility_role_assign, ...).
	Action string `gorm:"size:50;not null"`
	// RoleType is "global" or "facility_specific".
	RoleType string `gorm:"size:30;not null"`
	// OldRole is the previous role name, empty when not applicable.
	OldRole string `gorm:"size:50"`
	// NewRole is the new role name, empty when not applicable.
	NewRole string `gorm:"size:50"`
	// FacilityID is the facility in scope, zero for global mutations.
	FacilityID uint64 `gorm:"index"`
	// Reason is the operator-supplied justification.
	Reason string `gorm:"size:500"`
	// Metadata is the JSON-encoded auxiliary detail map.
	Metadata []byte
	// CreatedAt is the timestamp of the mutation.
	CreatedAt time.Time `gorm:"not null;index"`
}

// BeforeCreate assigns the UUID primary key.
func (l *RoleAuditLog) BeforeCreate(_ *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}

	return nil
}

// TableName specifies the database table name for the RoleAuditLog model.
// This overrides GORM's default pluralized table naming.
func (RoleAuditLog) TableName() string {
	return "role_audit_logs"
}
