package models

import "time"

// ConsumptionRecord represents one reported consumption figure for a
// product at a facility over a reporting period. Records are append-only
// from the application's point of view; corrections are new records.
type ConsumptionRecord struct {
	// ID is the unique identifier for the record.
	ID uint64 `gorm:"primaryKey"`
	// FacilityID is the ID of the reporting facility.
	FacilityID uint64 `gorm:"not null;index"`
	// ProductID is the ID of the consumed product.
	ProductID uint64 `gorm:"not null;index"`
	// Facility is the reporting facility (loaded via foreign key).
	Facility Facility `gorm:"foreignKey:FacilityID;constraint:OnDelete:RESTRICT"`
	// Product is the consumed product (loaded via foreign key).
	Product Product `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
	// PeriodStart is the first day of the reporting period.
	PeriodStart time.Time `gorm:"not null;index"`
	// Quantity is the consumed quantity in the product's unit.
	Quantity int64 `gorm:"not null"`
	// StockOnHand is the stock remaining at the end of the period.
	StockOnHand int64
	// RecordedBy is the ID of the user who reported the record.
	RecordedBy uint64 `gorm:"not null"`
	// CreatedAt is the timestamp when the record was created (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the ConsumptionRecord model.
// This overrides GORM's default pluralized table naming.
func (ConsumptionRecord) TableName() string {
	return "consumption_records"
}
