package consumption

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/db/controller/association"
	"github.com/pharmview/pharmview/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(
		&models.Facility{},
		&models.Product{},
		&models.FacilityProduct{},
		&models.ConsumptionRecord{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}

// seedApprovedPair creates a facility and a product with an approved
// association and returns their ids.
func seedApprovedPair(t *testing.T, db *gorm.DB, facilityCode, productCode string) (uint64, uint64) {
	t.Helper()

	facility := models.Facility{Code: facilityCode, Name: "Facility " + facilityCode, Type: models.FacilityTypeHospital, Active: true}
	require.NoError(t, db.Create(&facility).Error)

	product := models.Product{Code: productCode, Name: "Product " + productCode, Unit: "tablet", Active: true}
	require.NoError(t, db.Create(&product).Error)

	assoc, err := association.Request(db, facility.ID, product.ID, 7)
	require.NoError(t, err)

	_, err = association.Approve(db, assoc.ID, 9)
	require.NoError(t, err)

	return facility.ID, product.ID
}

func period(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

func TestCreate(t *testing.T) {
	db := setupTestDB(t)
	facilityID, productID := seedApprovedPair(t, db, "HF-0001", "AMX-500-CAP")

	record, err := Create(db, &models.ConsumptionRecord{
		FacilityID:  facilityID,
		ProductID:   productID,
		PeriodStart: period(2025, time.May),
		Quantity:    1200,
		StockOnHand: 300,
		RecordedBy:  7,
	})
	require.NoError(t, err)
	assert.NotZero(t, record.ID)
}

func TestCreateRequiresApprovedAssociation(t *testing.T) {
	db := setupTestDB(t)

	facility := models.Facility{Code: "HF-0001", Name: "Central", Type: models.FacilityTypeHospital, Active: true}
	require.NoError(t, db.Create(&facility).Error)

	product := models.Product{Code: "AMX-500-CAP", Name: "Amoxicillin", Unit: "capsule", Active: true}
	require.NoError(t, db.Create(&product).Error)

	// No association at all.
	_, err := Create(db, &models.ConsumptionRecord{
		FacilityID: facility.ID, ProductID: product.ID, PeriodStart: period(2025, time.May), Quantity: 10, RecordedBy: 7,
	})
	assert.ErrorIs(t, err, ErrAssociationNotApproved)

	// A pending association is not enough.
	_, err = association.Request(db, facility.ID, product.ID, 7)
	require.NoError(t, err)

	_, err = Create(db, &models.ConsumptionRecord{
		FacilityID: facility.ID, ProductID: product.ID, PeriodStart: period(2025, time.May), Quantity: 10, RecordedBy: 7,
	})
	assert.ErrorIs(t, err, ErrAssociationNotApproved)
}

func TestCreateRejectsNegativeQuantity(t *testing.T) {
	db := setupTestDB(t)
	facilityID, productID := seedApprovedPair(t, db, "HF-0001", "AMX-500-CAP")

	_, err := Create(db, &models.ConsumptionRecord{
		FacilityID: facilityID, ProductID: productID, PeriodStart: period(2025, time.May), Quantity: -1, RecordedBy: 7,
	})
	assert.ErrorIs(t, err, ErrQuantityNegative)
}

func TestListFilters(t *testing.T) {
	db := setupTestDB(t)
	facilityID, productID := seedApprovedPair(t, db, "HF-0001", "AMX-500-CAP")
	otherFacility, otherProduct := seedApprovedPair(t, db, "HF-0002", "ACT-20-TAB")

	seed := []models.ConsumptionRecord{
		{FacilityID: facilityID, ProductID: productID, PeriodStart: period(2025, time.April), Quantity: 100, RecordedBy: 7},
		{FacilityID: facilityID, ProductID: productID, PeriodStart: period(2025, time.May), Quantity: 150, RecordedBy: 7},
		{FacilityID: otherFacility, ProductID: otherProduct, PeriodStart: period(2025, time.May), Quantity: 40, RecordedBy: 8},
	}
	for i := range seed {
		_, err := Create(db, &seed[i])
		require.NoError(t, err)
	}

	records, err := List(db, Filter{FacilityID: facilityID})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, period(2025, time.May), records[0].PeriodStart.UTC(), "newest period first")
	assert.Equal(t, "AMX-500-CAP", records[0].Product.Code, "product is preloaded")

	records, err = List(db, Filter{From: period(2025, time.May), To: period(2025, time.June)})
	require.NoError(t, err)
	assert.Len(t, records, 2, "period range spans both facilities")

	count, err := CountRecords(db, Filter{ProductID: otherProduct})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestSummarizeByProduct(t *testing.T) {
	db := setupTestDB(t)
	facilityID, productID := seedApprovedPair(t, db, "HF-0001", "AMX-500-CAP")
	otherFacility, otherProduct := seedApprovedPair(t, db, "HF-0002", "ACT-20-TAB")

	seed := []models.ConsumptionRecord{
		{FacilityID: facilityID, ProductID: productID, PeriodStart: period(2025, time.April), Quantity: 100, RecordedBy: 7},
		{FacilityID: facilityID, ProductID: productID, PeriodStart: period(2025, time.May), Quantity: 150, RecordedBy: 7},
		{FacilityID: otherFacility, ProductID: otherProduct, PeriodStart: period(2025, time.May), Quantity: 400, RecordedBy: 8},
	}
	for i := range seed {
		_, err := Create(db, &seed[i])
		require.NoError(t, err)
	}

	rows, err := SummarizeByProduct(db, Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Largest consumers first.
	assert.Equal(t, "ACT-20-TAB", rows[0].ProductCode)
	assert.EqualValues(t, 400, rows[0].TotalQuantity)
	assert.EqualValues(t, 1, rows[0].RecordCount)

	assert.Equal(t, "AMX-500-CAP", rows[1].ProductCode)
	assert.EqualValues(t, 250, rows[1].TotalQuantity)
	assert.EqualValues(t, 2, rows[1].RecordCount)

	// The filter narrows the aggregation too.
	rows, err = SummarizeByProduct(db, Filter{FacilityID: facilityID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 250, rows[0].TotalQuantity)
}

func TestLowStock(t *testing.T) {
	db := setupTestDB(t)
	facilityID, productID := seedApprovedPair(t, db, "HF-0001", "AMX-500-CAP")
	otherFacilityID, otherProductID := seedApprovedPair(t, db, "HF-0002", "PCM-500-TAB")

	// older record is low but superseded by a healthy one
	_, err := Create(db, &models.ConsumptionRecord{
		FacilityID: facilityID, ProductID: productID,
		PeriodStart: period(2025, time.April), Quantity: 900, StockOnHand: 20, RecordedBy: 7,
	})
	require.NoError(t, err)

	_, err = Create(db, &models.ConsumptionRecord{
		FacilityID: facilityID, ProductID: productID,
		PeriodStart: period(2025, time.May), Quantity: 800, StockOnHand: 450, RecordedBy: 7,
	})
	require.NoError(t, err)

	// latest record of the other pair is below threshold
	_, err = Create(db, &models.ConsumptionRecord{
		FacilityID: otherFacilityID, ProductID: otherProductID,
		PeriodStart: period(2025, time.May), Quantity: 300, StockOnHand: 15, RecordedBy: 7,
	})
	require.NoError(t, err)

	rows, err := LowStock(db, 0, 100)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, otherProductID, rows[0].ProductID)
	assert.Equal(t, "PCM-500-TAB", rows[0].ProductCode)
	assert.Equal(t, int64(15), rows[0].StockOnHand)

	// facility scope excludes the low pair
	rows, err = LowStock(db, facilityID, 100)
	require.NoError(t, err)
	assert.Empty(t, rows)

	// nil db guard
	_, err = LowStock(nil, 0, 100)
	assert.ErrorIs(t, err, ErrDBNil)
}
