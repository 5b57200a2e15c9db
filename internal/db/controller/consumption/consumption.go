// Package consumption manages consumption records and their aggregation.
// Records can only be created for approved facility-product associations.
package consumption

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/db/controller/association"
	"github.com/pharmview/pharmview/internal/db/models"
)

var (
	// ErrRecordNotFound is returned when a consumption record is not found.
	ErrRecordNotFound = errors.New("consumption record not found")
	// ErrQuantityNegative is returned when the reported quantity is negative.
	ErrQuantityNegative = errors.New("quantity cannot be negative")
	// ErrAssociationNotApproved is returned when recording for a pair
	// without an approved association.
	ErrAssociationNotApproved = errors.New("facility-product association is not approved")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Filter narrows a consumption listing. Zero values mean "no constraint".
type Filter struct {
	FacilityID uint64
	ProductID  uint64
	From       time.Time
	To         time.Time
}

// ProductSummary is one row of an aggregated consumption report.
type ProductSummary struct {
	ProductID     uint64 `json:"product_id"`
	ProductCode   string `json:"product_code"`
	ProductName   string `json:"product_name"`
	TotalQuantity int64  `json:"total_quantity"`
	RecordCount   int64  `json:"record_count"`
}

// Create validates and stores a consumption record. The facility-product
// association must be approved first.
func Create(db *gorm.DB, record *models.ConsumptionRecord) (*models.ConsumptionRecord, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if record.Quantity < 0 {
		return nil, ErrQuantityNegative
	}

	approved, err := association.IsApproved(db, record.FacilityID, record.ProductID)
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, ErrAssociationNotApproved
	}

	if err := db.Create(record).Error; err != nil {
		return nil, err
	}

	return record, nil
}

// GetByID retrieves a consumption record by its ID.
func GetByID(db *gorm.DB, id uint64) (*models.ConsumptionRecord, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var record models.ConsumptionRecord
	result := db.First(&record, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}

	return &record, nil
}

// List retrieves consumption records matching the filter, newest period first,
// with facility and product preloaded.
func List(db *gorm.DB, filter Filter) ([]models.ConsumptionRecord, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var records []models.ConsumptionRecord
	result := applyFilter(db, filter).
		Preload("Facility").
		Preload("Product").
		Order("period_start DESC").
		Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}

	return records, nil
}

// SummarizeByProduct aggregates consumption per product over the filter,
// largest consumers first.
func SummarizeByProduct(db *gorm.DB, filter Filter) ([]ProductSummary, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var rows []ProductSummary
	result := applyFilter(db.Model(&models.ConsumptionRecord{}), filter).
		Select("consumption_records.product_id AS product_id, " +
			"products.code AS product_code, " +
			"products.name AS product_name, " +
			"SUM(consumption_records.quantity) AS total_quantity, " +
			"COUNT(consumption_records.id) AS record_count").
		Joins("JOIN products ON products.id = consumption_records.product_id").
		Group("consumption_records.product_id, products.code, products.name").
		Order("total_quantity DESC").
		Scan(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	return rows, nil
}

// StockStatus is one row of the low-stock report: the stock level from the
// most recent record of a facility-product pair.
type StockStatus struct {
	FacilityID   uint64    `json:"facility_id"`
	FacilityCode string    `json:"facility_code"`
	FacilityName string    `json:"facility_name"`
	ProductID    uint64    `json:"product_id"`
	ProductCode  string    `json:"product_code"`
	ProductName  string    `json:"product_name"`
	StockOnHand  int64     `json:"stock_on_hand"`
	PeriodStart  time.Time `json:"period_start"`
}

// LowStock reports facility-product pairs whose latest recorded stock is
// below the threshold, lowest stock first. Only the most recent period per
// pair counts; older records are history, not stock state.
func LowStock(db *gorm.DB, facilityID uint64, threshold int64) ([]StockStatus, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	latest := db.Model(&models.ConsumptionRecord{}).
		Select("facility_id, product_id, MAX(period_start) AS latest_period").
		Group("facility_id, product_id")

	query := db.Model(&models.ConsumptionRecord{}).
		Select("consumption_records.facility_id AS facility_id, " +
			"facilities.code AS facility_code, " +
			"facilities.name AS facility_name, " +
			"consumption_records.product_id AS product_id, " +
			"products.code AS product_code, " +
			"products.name AS product_name, " +
			"consumption_records.stock_on_hand AS stock_on_hand, " +
			"consumption_records.period_start AS period_start").
		Joins("JOIN (?) latest ON latest.facility_id = consumption_records.facility_id "+
			"AND latest.product_id = consumption_records.product_id "+
			"AND latest.latest_period = consumption_records.period_start", latest).
		Joins("JOIN facilities ON facilities.id = consumption_records.facility_id").
		Joins("JOIN products ON products.id = consumption_records.product_id").
		Where("consumption_records.stock_on_hand < ?", threshold).
		Order("consumption_records.stock_on_hand")

	if facilityID != 0 {
		query = query.Where("consumption_records.facility_id = ?", facilityID)
	}

	var rows []StockStatus
	if result := query.Scan(&rows); result.Error != nil {
		return nil, result.Error
	}

	return rows, nil
}

// CountRecords returns the number of records matching the filter.
func CountRecords(db *gorm.DB, filter Filter) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	var count int64
	result := applyFilter(db.Model(&models.ConsumptionRecord{}), filter).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}

func applyFilter(tx *gorm.DB, filter Filter) *gorm.DB {
	if filter.FacilityID != 0 {
		tx = tx.Where("consumption_records.facility_id = ?", filter.FacilityID)
	}
	if filter.ProductID != 0 {
		tx = tx.Where("consumption_records.product_id = ?", filter.ProductID)
	}
	if !filter.From.IsZero() {
		tx = tx.Where("consumption_records.period_start >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		tx = tx.Where("consumption_records.period_start < ?", filter.To)
	}

	return tx
}
