package models

import "time"

// AssociationStatus represents the approval state of a facility-product association.
type AssociationStatus string

const (
	// AssociationPending is awaiting review.
	AssociationPending AssociationStatus = "pending"
	// AssociationApproved has been approved; the facility may report
	// consumption for the product.
	AssociationApproved AssociationStatus = "approved"
	// AssociationRejected has been rejected.
	AssociationRejected AssociationStatus = "rejected"
)

// FacilityProduct represents the association between a facility and a
// product it stocks. Associations go through a request/approval lifecycle:
// requested by facility staff, approved or rejected by a user holding the
// association.approve capability.
type FacilityProduct struct {
	// ID is the unique identifier for the association.
	ID uint64 `gorm:"primaryKey"`
	// FacilityID is the ID of the facility in this association.
	FacilityID uint64 `gorm:"not null;uniqueIndex:idx_facility_product"`
	// ProductID is the ID of the product in this association.
	ProductID uint64 `gorm:"not null;uniqueIndex:idx_facility_product"`
	// Facility is the associated facility (loaded via foreign key).
	Facility Facility `gorm:"foreignKey:FacilityID;constraint:OnDelete:CASCADE"`
	// Product is the associated product (loaded via foreign key).
	Product Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	// Status is the approval state of the association.
	Status AssociationStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	// RequestedBy is the ID of the user who requested the association.
	RequestedBy uint64 `gorm:"not null"`
	// ReviewedBy is the ID of the user who approved or rejected it, zero while pending.
	ReviewedBy uint64
	// ReviewedAt is when the association was approved or rejected.
	ReviewedAt *time.Time
	// CreatedAt is the timestamp when the association was requested (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the association was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the FacilityProduct model.
// This overrides GORM's default pluralized table naming.
func (FacilityProduct) TableName() string {
	return "facility_products"
}
