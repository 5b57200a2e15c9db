// Package product provides CRUD operations for managing pharmaceutical products.
package product

import (
	"errors"

	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/db/models"
)

const (
	codeQueryPattern = "code = ?"
)

var (
	// ErrProductNotFound is returned when a product is not found.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductCodeEmpty is returned when attempting to create a product with an empty code.
	ErrProductCodeEmpty = errors.New("product code cannot be empty")
	// ErrProductNameEmpty is returned when attempting to create a product with an empty name.
	ErrProductNameEmpty = errors.New("product name cannot be empty")
	// ErrProductUnitEmpty is returned when attempting to create a product with an empty unit.
	ErrProductUnitEmpty = errors.New("product unit cannot be empty")
	// ErrProductAlreadyExists is returned when a product with the same code already exists.
	ErrProductAlreadyExists = errors.New("product already exists")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// GetByID retrieves a product by its ID.
func GetByID(db *gorm.DB, id uint64) (*models.Product, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var product models.Product
	result := db.First(&product, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, result.Error
	}

	return &product, nil
}

// GetByCode retrieves a product by its unique code.
func GetByCode(db *gorm.DB, code string) (*models.Product, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if code == "" {
		return nil, ErrProductCodeEmpty
	}

	var product models.Product
	result := db.Where(codeQueryPattern, code).First(&product)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, result.Error
	}

	return &product, nil
}

// GetAll retrieves all products, ordered by code.
func GetAll(db *gorm.DB) ([]models.Product, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var products []models.Product
	result := db.Order("code").Find(&products)
	if result.Error != nil {
		return nil, result.Error
	}

	return products, nil
}

// GetByProgram retrieves all products belonging to a health programme.
func GetByProgram(db *gorm.DB, program string) ([]models.Product, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var products []models.Product
	result := db.Where("program = ?", program).Order("code").Find(&products)
	if result.Error != nil {
		return nil, result.Error
	}

	return products, nil
}

// Create creates a new product in the database.
func Create(db *gorm.DB, product *models.Product) (*models.Product, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if product.Code == "" {
		return nil, ErrProductCodeEmpty
	}
	if product.Name == "" {
		return nil, ErrProductNameEmpty
	}
	if product.Unit == "" {
		return nil, ErrProductUnitEmpty
	}

	// Check if a product with this code already exists
	var existing models.Product
	result := db.Where(codeQueryPattern, product.Code).First(&existing)
	if result.Error == nil {
		return nil, ErrProductAlreadyExists
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	product.Active = true
	result = db.Create(product)
	if result.Error != nil {
		return nil, result.Error
	}

	return product, nil
}

// Update updates an existing product's descriptive fields by ID.
// The code is immutable once assigned.
func Update(db *gorm.DB, id uint64, name, category, unit, program string) (*models.Product, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if name == "" {
		return nil, ErrProductNameEmpty
	}
	if unit == "" {
		return nil, ErrProductUnitEmpty
	}

	var product models.Product
	result := db.First(&product, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, result.Error
	}

	product.Name = name
	product.Category = category
	product.Unit = unit
	product.Program = program
	result = db.Save(&product)
	if result.Error != nil {
		return nil, result.Error
	}

	return &product, nil
}

// SetActive activates or deactivates a product.
func SetActive(db *gorm.DB, id uint64, active bool) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Model(&models.Product{}).Where("id = ?", id).Update("active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}
