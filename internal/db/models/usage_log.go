package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PermissionUsageLog is the append-only record of one resolved access
// decision. Rows are write-once and never updated; this is the sole audit
// trail for conditional grants. Rows use UUID primary keys so appends from
// concurrent request handlers never contend on a sequence.
type PermissionUsageLog struct {
	// ID is the UUID primary key of the entry.
	ID string `gorm:"primaryKey;size:36"`
	// UserID is the ID of the user whose access was checked.
	UserID uint64 `gorm:"not null;index"`
	// PermissionName is the capability that was checked.
	PermissionName string `gorm:"size:100;not null"`
	// ResourceType is the kind of resource accessed, if any.
	ResourceType string `gorm:"size:100"`
	// ResourceID identifies the accessed resource, if any.
	ResourceID string `gorm:"size:100"`
	// FacilityID is the facility in scope, zero when none.
	FacilityID uint64 `gorm:"index"`
	// AccessGranted records the decision outcome.
	AccessGranted bool `gorm:"not null"`
	// AccessMethod records how a grant was reached (global_role,
	// facility_role, conditional), empty on deny.
	AccessMethod string `gorm:"size:30"`
	// ConditionsMet is the JSON-encoded list of conditions evaluated as true.
	ConditionsMet []byte
	// Cause holds the internal reason of a backend-error deny, for operators.
	Cause string `gorm:"size:500"`
	// CreatedAt is the timestamp of the decision.
	CreatedAt time.Time `gorm:"not null;index"`
}

// BeforeCreate assigns the UUID primary key.
func (l *PermissionUsageLog) BeforeCreate(_ *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}

	return nil
}

// TableName specifies the database table name for the PermissionUsageLog model.
// This overrides GORM's default pluralized table naming.
func (PermissionUsageLog) TableName() string {
	return "permission_usage_logs"
}
