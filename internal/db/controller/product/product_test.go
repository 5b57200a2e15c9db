package product

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(&models.Product{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func TestCreate(t *testing.T) {
	db := setupTestDB(t)

	testCases := []struct {
		name          string
		dbParam       *gorm.DB
		product       models.Product
		expectedError error
	}{
		{
			name:          "nil database",
			dbParam:       nil,
			product:       models.Product{Code: "AMX-500-CAP", Name: "Amoxicillin 500mg", Unit: "capsule"},
			expectedError: ErrDBNil,
		},
		{
			name:          "empty code",
			dbParam:       db,
			product:       models.Product{Name: "Amoxicillin 500mg", Unit: "capsule"},
			expectedError: ErrProductCodeEmpty,
		},
		{
			name:          "empty name",
			dbParam:       db,
			product:       models.Product{Code: "AMX-500-CAP", Unit: "capsule"},
			expectedError: ErrProductNameEmpty,
		},
		{
			name:          "empty unit",
			dbParam:       db,
			product:       models.Product{Code: "AMX-500-CAP", Name: "Amoxicillin 500mg"},
			expectedError: ErrProductUnitEmpty,
		},
		{
			name:    "successful create",
			dbParam: db,
			product: models.Product{Code: "AMX-500-CAP", Name: "Amoxicillin 500mg", Unit: "capsule", Category: "antibiotic"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.dbParam != nil {
				require.NoError(t, db.Exec("DELETE FROM products").Error)
			}

			product := tc.product
			created, err := Create(tc.dbParam, &product)

			if tc.expectedError != nil {
				assert.ErrorIs(t, err, tc.expectedError)
				return
			}

			require.NoError(t, err)
			assert.NotZero(t, created.ID)
			assert.True(t, created.Active)
		})
	}
}

func TestCreateDuplicateCode(t *testing.T) {
	db := setupTestDB(t)

	_, err := Create(db, &models.Product{Code: "AMX-500-CAP", Name: "Amoxicillin 500mg", Unit: "capsule"})
	require.NoError(t, err)

	_, err = Create(db, &models.Product{Code: "AMX-500-CAP", Name: "Duplicate", Unit: "capsule"})
	assert.ErrorIs(t, err, ErrProductAlreadyExists)
}

func TestUpdate(t *testing.T) {
	db := setupTestDB(t)

	created, err := Create(db, &models.Product{Code: "AMX-500-CAP", Name: "Amoxicillin 500mg", Unit: "capsule"})
	require.NoError(t, err)

	updated, err := Update(db, created.ID, "Amoxicillin 500mg Capsule", "antibiotic", "capsule", "essential-medicines")
	require.NoError(t, err)
	assert.Equal(t, "Amoxicillin 500mg Capsule", updated.Name)
	assert.Equal(t, "essential-medicines", updated.Program)
	assert.Equal(t, "AMX-500-CAP", updated.Code, "code is immutable")

	_, err = Update(db, 999, "Ghost", "", "tablet", "")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestGetByProgram(t *testing.T) {
	db := setupTestDB(t)

	for _, p := range []models.Product{
		{Code: "ACT-20-TAB", Name: "Artemether 20mg", Unit: "tablet", Program: "malaria"},
		{Code: "RDT-MAL", Name: "Malaria RDT", Unit: "kit", Program: "malaria"},
		{Code: "AMX-500-CAP", Name: "Amoxicillin 500mg", Unit: "capsule", Program: "essential-medicines"},
	} {
		product := p
		_, err := Create(db, &product)
		require.NoError(t, err)
	}

	malaria, err := GetByProgram(db, "malaria")
	require.NoError(t, err)
	require.Len(t, malaria, 2)
	assert.Equal(t, "ACT-20-TAB", malaria[0].Code, "listing is ordered by code")
}

func TestSetActive(t *testing.T) {
	db := setupTestDB(t)

	created, err := Create(db, &models.Product{Code: "AMX-500-CAP", Name: "Amoxicillin 500mg", Unit: "capsule"})
	require.NoError(t, err)

	require.NoError(t, SetActive(db, created.ID, false))

	product, err := GetByID(db, created.ID)
	require.NoError(t, err)
	assert.False(t, product.Active)

	assert.ErrorIs(t, SetActive(db, 999, true), ErrProductNotFound)
}
