// Package facility provides CRUD operations for managing health facilities.
package facility

import (
	"errors"

	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/db/models"
)

const (
	codeQueryPattern = "code = ?"
)

var (
	// ErrFacilityNotFound is returned when a facility is not found.
	ErrFacilityNotFound = errors.New("facility not found")
	// ErrFacilityCodeEmpty is returned when attempting to create a facility with an empty code.
	ErrFacilityCodeEmpty = errors.New("facility code cannot be empty")
	// ErrFacilityNameEmpty is returned when attempting to create a facility with an empty name.
	ErrFacilityNameEmpty = errors.New("facility name cannot be empty")
	// ErrFacilityAlreadyExists is returned when a facility with the same code already exists.
	ErrFacilityAlreadyExists = errors.New("facility already exists")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// GetByID retrieves a facility by its ID.
func GetByID(db *gorm.DB, id uint64) (*models.Facility, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var facility models.Facility
	result := db.First(&facility, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrFacilityNotFound
		}
		return nil, result.Error
	}

	return &facility, nil
}

// GetByCode retrieves a facility by its unique code.
func GetByCode(db *gorm.DB, code string) (*models.Facility, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if code == "" {
		return nil, ErrFacilityCodeEmpty
	}

	var facility models.Facility
	result := db.Where(codeQueryPattern, code).First(&facility)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrFacilityNotFound
		}
		return nil, result.Error
	}

	return &facility, nil
}

// GetAll retrieves all facilities, ordered by code.
func GetAll(db *gorm.DB) ([]models.Facility, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var facilities []models.Facility
	result := db.Order("code").Find(&facilities)
	if result.Error != nil {
		return nil, result.Error
	}

	return facilities, nil
}

// GetActive retrieves all active facilities, ordered by code.
func GetActive(db *gorm.DB) ([]models.Facility, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var facilities []models.Facility
	result := db.Where("active = ?", true).Order("code").Find(&facilities)
	if result.Error != nil {
		return nil, result.Error
	}

	return facilities, nil
}

// Create creates a new facility in the database.
func Create(db *gorm.DB, facility *models.Facility) (*models.Facility, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if facility.Code == "" {
		return nil, ErrFacilityCodeEmpty
	}
	if facility.Name == "" {
		return nil, ErrFacilityNameEmpty
	}

	// Check if a facility with this code already exists
	var existing models.Facility
	result := db.Where(codeQueryPattern, facility.Code).First(&existing)
	if result.Error == nil {
		return nil, ErrFacilityAlreadyExists
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	facility.Active = true
	result = db.Create(facility)
	if result.Error != nil {
		return nil, result.Error
	}

	return facility, nil
}

// Update updates an existing facility's descriptive fields by ID.
// The code is immutable once assigned.
func Update(db *gorm.DB, id uint64, name string, facilityType models.FacilityType, zone, region string) (*models.Facility, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if name == "" {
		return nil, ErrFacilityNameEmpty
	}

	var facility models.Facility
	result := db.First(&facility, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrFacilityNotFound
		}
		return nil, result.Error
	}

	facility.Name = name
	facility.Type = facilityType
	facility.Zone = zone
	facility.Region = region
	result = db.Save(&facility)
	if result.Error != nil {
		return nil, result.Error
	}

	return &facility, nil
}

// SetActive activates or deactivates a facility. Facilities are never
// deleted so historical consumption stays attributable.
func SetActive(db *gorm.DB, id uint64, active bool) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Model(&models.Facility{}).Where("id = ?", id).Update("active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrFacilityNotFound
	}

	return nil
}
