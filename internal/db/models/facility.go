package models

import "time"

// FacilityType represents the kind of health facility.
type FacilityType string

const (
	// FacilityTypeHospital is a hospital facility.
	FacilityTypeHospital FacilityType = "hospital"
	// FacilityTypeHealthCenter is a primary health center.
	FacilityTypeHealthCenter FacilityType = "health_center"
	// FacilityTypeWarehouse is a supply warehouse.
	FacilityTypeWarehouse FacilityType = "warehouse"
)

// Facility represents a health facility participating in the supply chain.
// Facilities are the scoping unit for role overrides and conditional
// permission grants, and the owner of all consumption records.
type Facility struct {
	// ID is the unique identifier for the facility.
	ID uint64 `gorm:"primaryKey"`
	// Code is the unique short code of the facility (e.g., "HF-0042").
	Code string `gorm:"unique;size:50;not null"`
	// Name is the display name of the facility.
	Name string `gorm:"size:255;not null"`
	// Type is the kind of facility (hospital, health_center, warehouse).
	Type FacilityType `gorm:"type:varchar(30);not null"`
	// Zone is the administrative zone the facility belongs to.
	Zone string `gorm:"size:100"`
	// Region is the administrative region the facility belongs to.
	Region string `gorm:"size:100"`
	// Active indicates whether the facility is operational. Facilities are
	// deactivated, never deleted, so consumption history stays attributable.
	Active bool `gorm:"default:true"`
	// CreatedAt is the timestamp when the facility was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the facility was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Facility model.
// This overrides GORM's default pluralized table naming.
func (Facility) TableName() string {
	return "facilities"
}
