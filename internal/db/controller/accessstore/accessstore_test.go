package accessstore

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/access"
	"github.com/pharmview/pharmview/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(
		&models.User{},
		&models.Facility{},
		&models.FacilityRoleOverride{},
		&models.ConditionalPermission{},
		&models.PermissionUsageLog{},
		&models.RoleAuditLog{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func seedUser(t *testing.T, db *gorm.DB, id uint64, role access.Role) {
	t.Helper()

	err := db.Create(&models.User{
		ID:       id,
		Active:   true,
		Username: time.Now().Format("user-150405.000000000") + string(role),
		Email:    "user@example.org",
		Role:     string(role),
	}).Error
	require.NoError(t, err, "failed to seed user")
}

func auditEntry(actor, target uint64, action access.AuditAction) access.RoleAuditEntry {
	return access.RoleAuditEntry{
		ActorID:      actor,
		TargetUserID: target,
		Action:       action,
		RoleType:     access.RoleTypeFacility,
		CreatedAt:    time.Now(),
	}
}

func TestFetchGlobalRole(t *testing.T) {
	db := setupTestDB(t)
	store := New(db)

	seedUser(t, db, 1, access.RoleProcurement)

	role, err := store.FetchGlobalRole(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, access.RoleProcurement, role)

	_, err = store.FetchGlobalRole(context.Background(), 99)
	assert.ErrorIs(t, err, access.ErrUserNotFound)
}

func TestFetchActiveFacilityOverride(t *testing.T) {
	db := setupTestDB(t)
	store := New(db)

	seedUser(t, db, 1, access.RoleNational)

	// No override yet.
	override, err := store.FetchActiveFacilityOverride(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Nil(t, override)

	require.NoError(t, db.Create(&models.FacilityRoleOverride{
		UserID: 1, FacilityID: 5, Role: "viewer", GrantedBy: 2, GrantedAt: time.Now(), IsActive: true,
	}).Error)

	override, err = store.FetchActiveFacilityOverride(context.Background(), 1, 5)
	require.NoError(t, err)
	require.NotNil(t, override)
	assert.Equal(t, access.RoleViewer, override.Role)

	// An inactive row for another pair state does not interfere.
	override, err = store.FetchActiveFacilityOverride(context.Background(), 1, 6)
	require.NoError(t, err)
	assert.Nil(t, override)
}

func TestFetchActiveFacilityOverrideInconsistent(t *testing.T) {
	db := setupTestDB(t)
	store := New(db)

	// Two active rows for the same pair: the invariant is violated and the
	// lookup must fail rather than pick one.
	for _, role := range []string{"qa", "zonal"} {
		require.NoError(t, db.Create(&models.FacilityRoleOverride{
			UserID: 1, FacilityID: 5, Role: role, GrantedBy: 2, GrantedAt: time.Now(), IsActive: true,
		}).Error)
	}

	_, err := store.FetchActiveFacilityOverride(context.Background(), 1, 5)
	assert.ErrorIs(t, err, access.ErrInconsistentOverride)
}

func TestUpdateGlobalRoleWritesAuditAtomically(t *testing.T) {
	db := setupTestDB(t)
	store := New(db)

	seedUser(t, db, 1, access.RoleViewer)

	audit := access.RoleAuditEntry{
		ActorID:      2,
		TargetUserID: 1,
		Action:       access.AuditActionGlobalRoleChange,
		RoleType:     access.RoleTypeGlobal,
		OldRole:      access.RoleViewer,
		NewRole:      access.RoleQA,
		Reason:       "promotion",
		CreatedAt:    time.Now(),
	}

	require.NoError(t, store.UpdateGlobalRole(context.Background(), 1, access.RoleQA, audit))

	role, err := store.FetchGlobalRole(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, access.RoleQA, role)

	var audits []models.RoleAuditLog
	require.NoError(t, db.Find(&audits).Error)
	require.Len(t, audits, 1)
	assert.Equal(t, "global_role_change", audits[0].Action)
	assert.Equal(t, "qa", audits[0].NewRole)
	assert.NotEmpty(t, audits[0].ID, "audit rows get UUID ids")
}

func TestUpdateGlobalRoleUnknownUserWritesNothing(t *testing.T) {
	db := setupTestDB(t)
	store := New(db)

	err := store.UpdateGlobalRole(context.Background(), 42, access.RoleQA,
		auditEntry(1, 42, access.AuditActionGlobalRoleChange))
	assert.ErrorIs(t, err, access.ErrUserNotFound)

	var count int64
	require.NoError(t, db.Model(&models.RoleAuditLog{}).Count(&count).Error)
	assert.Zero(t, count, "failed mutations must leave no audit entries")
}

func TestCreateFacilityOverride(t *testing.T) {
	db := setupTestDB(t)
	store := New(db)

	seedUser(t, db, 1, access.RoleViewer)

	id, err := store.CreateFacilityOverride(context.Background(), access.FacilityRoleOverride{
		UserID: 1, FacilityID: 5, Role: access.RoleFacilityManager, GrantedBy: 2, GrantedAt: time.Now(),
	}, auditEntry(2, 1, access.AuditActionOverrideAssign))
	require.NoError(t, err)
	assert.NotZero(t, id)

	// A second active grant for the same pair must conflict and leave no
	// second audit entry behind.
	_, err = store.CreateFacilityOverride(context.Background(), access.FacilityRoleOverride{
		UserID: 1, FacilityID: 5, Role: access.RoleViewer, GrantedBy: 2, GrantedAt: time.Now(),
	}, auditEntry(2, 1, access.AuditActionOverrideAssign))
	assert.ErrorIs(t, err, access.ErrOverrideExists)

	var count int64
	require.NoError(t, db.Model(&models.RoleAuditLog{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDeactivateFacilityOverride(t *testing.T) {
	db := setupTestDB(t)
	store := New(db)

	id, err := store.CreateFacilityOverride(context.Background(), access.FacilityRoleOverride{
		UserID: 1, FacilityID: 5, Role: access.RoleQA, GrantedBy: 2, GrantedAt: time.Now(),
	}, auditEntry(2, 1, access.AuditActionOverrideAssign))
	require.NoError(t, err)

	err = store.DeactivateFacilityOverride(context.Background(), id,
		auditEntry(2, 1, access.AuditActionOverrideRevoke))
	require.NoError(t, err)

	override, err := store.FetchFacilityOverride(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, override.IsActive)

	// Revoking again is a no-op failure, not a second audit entry.
	err = store.DeactivateFacilityOverride(context.Background(), id,
		auditEntry(2, 1, access.AuditActionOverrideRevoke))
	assert.ErrorIs(t, err, access.ErrOverrideNotFound)

	var row models.FacilityRoleOverride
	require.NoError(t, db.First(&row, id).Error)
	assert.EqualValues(t, 2, row.RevokedBy)
	assert.NotNil(t, row.RevokedAt)
}

func TestConditionalPermissionRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	store := New(db)

	expiry := time.Now().Add(48 * time.Hour).Truncate(time.Second)

	id, err := store.CreateConditionalPermission(context.Background(), access.ConditionalPermission{
		UserID:     1,
		FacilityID: 5,
		Capability: access.CapAnalyticsExport,
		GrantedBy:  2,
		ExpiresAt:  &expiry,
		Conditions: access.Conditions{
			TimeWindows:      []access.TimeWindow{{StartHour: 9, EndHour: 17, AllowedDays: []int{1, 2, 3, 4, 5}}},
			RequiredFacility: 5,
		},
	}, auditEntry(2, 1, access.AuditActionConditionalGrant))
	require.NoError(t, err)

	grants, err := store.FetchActiveConditionalPermissions(context.Background(), 1, 5, access.CapAnalyticsExport)
	require.NoError(t, err)
	require.Len(t, grants, 1)

	grant := grants[0]
	assert.Equal(t, id, grant.ID)
	assert.True(t, grant.IsActive)
	require.Len(t, grant.Conditions.TimeWindows, 1)
	assert.Equal(t, 9, grant.Conditions.TimeWindows[0].StartHour)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, grant.Conditions.TimeWindows[0].AllowedDays)
	assert.EqualValues(t, 5, grant.Conditions.RequiredFacility)
	require.NotNil(t, grant.ExpiresAt)

	// Wrong capability or facility: no match.
	grants, err = store.FetchActiveConditionalPermissions(context.Background(), 1, 5, access.CapAdminUsers)
	require.NoError(t, err)
	assert.Empty(t, grants)

	grants, err = store.FetchActiveConditionalPermissions(context.Background(), 1, 6, access.CapAnalyticsExport)
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestConditionalPermissionMalformedConditions(t *testing.T) {
	db := setupTestDB(t)
	store := New(db)

	require.NoError(t, db.Create(&models.ConditionalPermission{
		UserID:         1,
		FacilityID:     5,
		PermissionName: string(access.CapAnalyticsExport),
		Conditions:     []byte("{not json"),
		IsActive:       true,
		GrantedBy:      2,
	}).Error)

	_, err := store.FetchActiveConditionalPermissions(context.Background(), 1, 5, access.CapAnalyticsExport)
	assert.Error(t, err, "malformed conditions must fail the lookup, not be ignored")
}

func TestDeactivateConditionalPermission(t *testing.T) {
	db := setupTestDB(t)
	store := New(db)

	id, err := store.CreateConditionalPermission(context.Background(), access.ConditionalPermission{
		UserID: 1, FacilityID: 5, Capability: access.CapAnalyticsExport, GrantedBy: 2,
	}, auditEntry(2, 1, access.AuditActionConditionalGrant))
	require.NoError(t, err)

	require.NoError(t, store.DeactivateConditionalPermission(context.Background(), id,
		auditEntry(2, 1, access.AuditActionConditionalRevoke)))

	grants, err := store.FetchActiveConditionalPermissions(context.Background(), 1, 5, access.CapAnalyticsExport)
	require.NoError(t, err)
	assert.Empty(t, grants, "revoked grants must not be returned as active")

	err = store.DeactivateConditionalPermission(context.Background(), id,
		auditEntry(2, 1, access.AuditActionConditionalRevoke))
	assert.ErrorIs(t, err, access.ErrGrantNotFound)
}

func TestAppendUsageLogEntry(t *testing.T) {
	db := setupTestDB(t)
	store := New(db)

	err := store.AppendUsageLogEntry(context.Background(), access.UsageLogEntry{
		UserID:        1,
		Capability:    access.CapAnalyticsExport,
		ResourceType:  "consumption_export",
		ResourceID:    "2025-06",
		FacilityID:    5,
		AccessGranted: true,
		AccessMethod:  access.MethodConditional,
		ConditionsMet: []string{"time_window"},
		CreatedAt:     time.Now(),
	})
	require.NoError(t, err)

	var rows []models.PermissionUsageLog
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.NotEmpty(t, rows[0].ID)
	assert.True(t, rows[0].AccessGranted)
	assert.Equal(t, "conditional", rows[0].AccessMethod)
	assert.JSONEq(t, `["time_window"]`, string(rows[0].ConditionsMet))
}

// The store together with the core: the full layered resolution against a
// real database.
func TestCheckAccessEndToEnd(t *testing.T) {
	db := setupTestDB(t)
	store := New(db)

	seedUser(t, db, 1, access.RoleNational)

	_, err := store.CreateFacilityOverride(context.Background(), access.FacilityRoleOverride{
		UserID: 1, FacilityID: 5, Role: access.RoleViewer, GrantedBy: 2, GrantedAt: time.Now(),
	}, auditEntry(2, 1, access.AuditActionOverrideAssign))
	require.NoError(t, err)

	checker := access.NewChecker(store)

	// Demoted in scope: admin.users denied at facility 5.
	decision := checker.CheckAccess(context.Background(), access.Request{
		UserID: 1, FacilityID: 5, Capability: access.CapAdminUsers,
	})
	assert.False(t, decision.Granted)

	// Unscoped, the global role still grants it.
	decision = checker.CheckAccess(context.Background(), access.Request{
		UserID: 1, Capability: access.CapAdminUsers,
	})
	assert.True(t, decision.Granted)
	assert.Equal(t, access.MethodGlobalRole, decision.Method)

	var count int64
	require.NoError(t, db.Model(&models.PermissionUsageLog{}).Count(&count).Error)
	assert.EqualValues(t, 2, count, "every check logs exactly once")
}

func TestFetchGlobalRoleFailsClosedForDisabledAccounts(t *testing.T) {
	db := setupTestDB(t)
	store := New(db)

	seedUser(t, db, 42, access.RoleNational)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", 42).
		Update("active", false).Error)

	_, err := store.FetchGlobalRole(context.Background(), 42)
	assert.ErrorIs(t, err, access.ErrUserNotFound, "deactivated account must fail closed")

	// A still-valid token means nothing once the account is off.
	checker := access.NewChecker(store)
	decision := checker.CheckAccess(context.Background(), access.Request{
		UserID: 42, Capability: access.CapAdminUsers,
	})
	assert.False(t, decision.Granted)

	// Soft deletion cuts access the same way.
	seedUser(t, db, 43, access.RoleNational)
	now := time.Now()
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", 43).
		Update("deleted_at", &now).Error)

	_, err = store.FetchGlobalRole(context.Background(), 43)
	assert.ErrorIs(t, err, access.ErrUserNotFound)
}
