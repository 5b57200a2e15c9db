// Package association manages the request/approval lifecycle of
// facility-product associations. A facility may only report consumption
// for products whose association has been approved.
package association

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/db/models"
)

const (
	pairQueryPattern = "facility_id = ? AND product_id = ?"
)

var (
	// ErrAssociationNotFound is returned when an association is not found.
	ErrAssociationNotFound = errors.New("association not found")
	// ErrAssociationExists is returned when the facility-product pair already has an association.
	ErrAssociationExists = errors.New("association already exists")
	// ErrAssociationNotPending is returned when reviewing an association that is not pending.
	ErrAssociationNotPending = errors.New("association is not pending review")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// GetByID retrieves an association by its ID, with facility and product preloaded.
func GetByID(db *gorm.DB, id uint64) (*models.FacilityProduct, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var assoc models.FacilityProduct
	result := db.Preload("Facility").Preload("Product").First(&assoc, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAssociationNotFound
		}
		return nil, result.Error
	}

	return &assoc, nil
}

// GetByPair retrieves the association for a facility-product pair.
func GetByPair(db *gorm.DB, facilityID, productID uint64) (*models.FacilityProduct, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var assoc models.FacilityProduct
	result := db.Where(pairQueryPattern, facilityID, productID).First(&assoc)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAssociationNotFound
		}
		return nil, result.Error
	}

	return &assoc, nil
}

// GetByFacility retrieves all associations of a facility, with products preloaded.
func GetByFacility(db *gorm.DB, facilityID uint64) ([]models.FacilityProduct, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var assocs []models.FacilityProduct
	result := db.Preload("Product").Where("facility_id = ?", facilityID).Find(&assocs)
	if result.Error != nil {
		return nil, result.Error
	}

	return assocs, nil
}

// GetPending retrieves all associations awaiting review, oldest first.
func GetPending(db *gorm.DB) ([]models.FacilityProduct, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var assocs []models.FacilityProduct
	result := db.Preload("Facility").Preload("Product").
		Where("status = ?", models.AssociationPending).
		Order("created_at").
		Find(&assocs)
	if result.Error != nil {
		return nil, result.Error
	}

	return assocs, nil
}

// Request creates a pending association for the facility-product pair.
// A rejected association can be re-requested; it goes back to pending.
func Request(db *gorm.DB, facilityID, productID, requestedBy uint64) (*models.FacilityProduct, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var existing models.FacilityProduct
	result := db.Where(pairQueryPattern, facilityID, productID).First(&existing)
	if result.Error == nil {
		if existing.Status != models.AssociationRejected {
			return nil, ErrAssociationExists
		}

		existing.Status = models.AssociationPending
		existing.RequestedBy = requestedBy
		existing.ReviewedBy = 0
		existing.ReviewedAt = nil
		if err := db.Save(&existing).Error; err != nil {
			return nil, err
		}

		return &existing, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	assoc := &models.FacilityProduct{
		FacilityID:  facilityID,
		ProductID:   productID,
		Status:      models.AssociationPending,
		RequestedBy: requestedBy,
	}
	if err := db.Create(assoc).Error; err != nil {
		return nil, err
	}

	return assoc, nil
}

// Approve marks a pending association as approved.
func Approve(db *gorm.DB, id, reviewedBy uint64) (*models.FacilityProduct, error) {
	return review(db, id, reviewedBy, models.AssociationApproved)
}

// Reject marks a pending association as rejected.
func Reject(db *gorm.DB, id, reviewedBy uint64) (*models.FacilityProduct, error) {
	return review(db, id, reviewedBy, models.AssociationRejected)
}

func review(db *gorm.DB, id, reviewedBy uint64, status models.AssociationStatus) (*models.FacilityProduct, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var assoc models.FacilityProduct
	result := db.First(&assoc, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAssociationNotFound
		}
		return nil, result.Error
	}

	if assoc.Status != models.AssociationPending {
		return nil, ErrAssociationNotPending
	}

	now := time.Now()
	assoc.Status = status
	assoc.ReviewedBy = reviewedBy
	assoc.ReviewedAt = &now
	if err := db.Save(&assoc).Error; err != nil {
		return nil, err
	}

	return &assoc, nil
}

// IsApproved reports whether the facility-product pair has an approved association.
func IsApproved(db *gorm.DB, facilityID, productID uint64) (bool, error) {
	if db == nil {
		return false, ErrDBNil
	}

	var count int64
	result := db.Model(&models.FacilityProduct{}).
		Where(pairQueryPattern, facilityID, productID).
		Where("status = ?", models.AssociationApproved).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}

	return count > 0, nil
}
