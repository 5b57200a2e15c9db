package facility_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/auth"
	"github.com/pharmview/pharmview/internal/config"
	"github.com/pharmview/pharmview/internal/db/models"
	"github.com/pharmview/pharmview/internal/web/handler/facility"
)

func setupTestApp(t *testing.T) (*fiber.App, *gorm.DB, *auth.Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Facility{},
		&models.FacilityRoleOverride{},
		&models.ConditionalPermission{},
		&models.PermissionUsageLog{},
		&models.RoleAuditLog{},
	))

	authService := auth.NewService(db, auth.NewTokenIssuer("test-secret", time.Hour))

	app := fiber.New()

	svc := facility.Service{}
	svc.Init(app, &config.Config{Title: "test"}, db, authService)

	return app, db, authService
}

func seedUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	t.Helper()

	user := models.User{
		Username:   username,
		Email:      username + "@example.org",
		Active:     true,
		Role:       role,
		AuthSource: models.AuthSourceLocal,
	}
	require.NoError(t, db.Create(&user).Error)

	return &user
}

func bearerRequest(t *testing.T, authService *auth.Service, user *models.User, method, target string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	token, err := authService.Tokens().Issue(user)
	require.NoError(t, err)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	return req
}

func TestCreateFacility(t *testing.T) {
	app, db, authService := setupTestApp(t)
	manager := seedUser(t, db, "pm", "program_manager")

	body := facility.UpsertRequest{
		Code: "HF-0001",
		Name: "Central Hospital",
		Type: "hospital",
		Zone: "north",
	}

	resp, err := app.Test(bearerRequest(t, authService, manager, fiber.MethodPost, facility.Path, body))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created models.Facility
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "HF-0001", created.Code)
	assert.True(t, created.Active)

	// same code again conflicts
	resp, err = app.Test(bearerRequest(t, authService, manager, fiber.MethodPost, facility.Path, body))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestCreateFacilityDeniedForViewer(t *testing.T) {
	app, db, authService := setupTestApp(t)
	viewer := seedUser(t, db, "viewer", "viewer")

	body := facility.UpsertRequest{Code: "HF-0002", Name: "Clinic", Type: "health_center"}

	resp, err := app.Test(bearerRequest(t, authService, viewer, fiber.MethodPost, facility.Path, body))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// the denial is recorded in the usage log
	var count int64
	require.NoError(t, db.Model(&models.PermissionUsageLog{}).
		Where("user_id = ? AND access_granted = ?", viewer.ID, false).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestFacilityRequiresAuth(t *testing.T) {
	app, _, _ := setupTestApp(t)

	req := httptest.NewRequest(fiber.MethodGet, facility.Path, nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestListActiveFacilities(t *testing.T) {
	app, db, authService := setupTestApp(t)
	viewer := seedUser(t, db, "viewer", "viewer")

	require.NoError(t, db.Create(&models.Facility{
		Code: "HF-1", Name: "One", Type: models.FacilityTypeHospital, Active: true,
	}).Error)
	require.NoError(t, db.Create(&models.Facility{
		Code: "HF-2", Name: "Two", Type: models.FacilityTypeWarehouse, Active: false,
	}).Error)

	resp, err := app.Test(bearerRequest(t, authService, viewer, fiber.MethodGet, facility.Path+"?active=true", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var facilities []models.Facility
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&facilities))
	require.Len(t, facilities, 1)
	assert.Equal(t, "HF-1", facilities[0].Code)
}

func TestGetFacilityNotFound(t *testing.T) {
	app, db, authService := setupTestApp(t)
	viewer := seedUser(t, db, "viewer", "viewer")

	resp, err := app.Test(bearerRequest(t, authService, viewer, fiber.MethodGet, facility.Path+"/999", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestFacilityOverridePromotesInScope(t *testing.T) {
	app, db, authService := setupTestApp(t)
	viewer := seedUser(t, db, "scoped", "viewer")

	require.NoError(t, db.Create(&models.Facility{
		Code: "HF-9", Name: "Nine", Type: models.FacilityTypeHospital, Active: true,
	}).Error)

	require.NoError(t, db.Create(&models.FacilityRoleOverride{
		UserID:     viewer.ID,
		FacilityID: 1,
		Role:       "program_manager",
		IsActive:   true,
		GrantedBy:  viewer.ID,
	}).Error)

	body := facility.UpsertRequest{Code: "HF-10", Name: "Ten", Type: "hospital"}

	// without the facility scope the global viewer role applies
	resp, err := app.Test(bearerRequest(t, authService, viewer, fiber.MethodPost, facility.Path, body))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// inside the override's facility the promoted role applies
	req := bearerRequest(t, authService, viewer, fiber.MethodPost, facility.Path, body)
	req.Header.Set("X-Facility-ID", "1")

	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}
