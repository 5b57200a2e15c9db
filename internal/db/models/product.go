package models

import "time"

// Product represents a pharmaceutical product tracked through the supply chain.
type Product struct {
	// ID is the unique identifier for the product.
	ID uint64 `gorm:"primaryKey"`
	// Code is the unique product code (e.g., "AMX-500-CAP").
	Code string `gorm:"unique;size:50;not null"`
	// Name is the display name of the product.
	Name string `gorm:"size:255;not null"`
	// Category is the therapeutic category (e.g., "antibiotic", "antimalarial").
	Category string `gorm:"size:100"`
	// Unit is the dispensing unit (e.g., "tablet", "vial", "bottle").
	Unit string `gorm:"size:50;not null"`
	// Program is the health programme the product belongs to, if any.
	Program string `gorm:"size:100"`
	// Active indicates whether the product is currently tracked.
	Active bool `gorm:"default:true"`
	// CreatedAt is the timestamp when the product was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the product was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Product model.
// This overrides GORM's default pluralized table naming.
func (Product) TableName() string {
	return "products"
}
