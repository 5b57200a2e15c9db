// Package accessstore implements the access core's Store contract on top
// of the application database. It owns the mapping between the gorm models
// and the core's types, and the transactional coupling of role mutations
// with their audit entries.
package accessstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/access"
	"github.com/pharmview/pharmview/internal/db/models"
)

// Store is the gorm-backed implementation of access.Store.
type Store struct {
	db *gorm.DB
}

// New creates a new access store on top of db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ access.Store = (*Store)(nil)

// FetchGlobalRole returns the user's global role. Deactivated and
// soft-deleted accounts report ErrUserNotFound so a still-valid token or
// session loses all access the moment the account is switched off.
func (s *Store) FetchGlobalRole(ctx context.Context, userID uint64) (access.Role, error) {
	var user models.User

	err := s.db.WithContext(ctx).Select("role", "active", "deleted_at").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", access.ErrUserNotFound
	}

	if err != nil {
		return "", fmt.Errorf("query user role: %w", err)
	}

	if !user.Active || user.DeletedAt != nil {
		return "", access.ErrUserNotFound
	}

	// The role column is external data as far as the core is concerned;
	// the resolver re-validates it, this is just the typed handoff.
	return access.Role(user.Role), nil
}

// FetchActiveFacilityOverride returns the single active override for the
// pair, nil when none exists, and ErrInconsistentOverride when the
// at-most-one-active invariant is violated.
func (s *Store) FetchActiveFacilityOverride(
	ctx context.Context,
	userID, facilityID uint64,
) (*access.FacilityRoleOverride, error) {
	var rows []models.FacilityRoleOverride

	err := s.db.WithContext(ctx).
		Where("user_id = ? AND facility_id = ? AND is_active = ?", userID, facilityID, true).
		Limit(2).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query facility override: %w", err)
	}

	switch len(rows) {
	case 0:
		return nil, nil //nolint:nilnil // nil override means "no override", not an error
	case 1:
		out := overrideFromModel(&rows[0])
		return &out, nil
	default:
		return nil, access.ErrInconsistentOverride
	}
}

// FetchFacilityOverride returns an override by id regardless of state.
func (s *Store) FetchFacilityOverride(ctx context.Context, overrideID uint64) (*access.FacilityRoleOverride, error) {
	var row models.FacilityRoleOverride

	err := s.db.WithContext(ctx).First(&row, overrideID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, access.ErrOverrideNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("query facility override: %w", err)
	}

	out := overrideFromModel(&row)

	return &out, nil
}

// FetchActiveConditionalPermissions returns the active grants matching the
// lookup key. Expiry is left to the evaluator; malformed condition JSON is
// a store failure so the check fails closed instead of ignoring the shape.
func (s *Store) FetchActiveConditionalPermissions(
	ctx context.Context,
	userID, facilityID uint64,
	capability access.Capability,
) ([]access.ConditionalPermission, error) {
	var rows []models.ConditionalPermission

	err := s.db.WithContext(ctx).
		Where("user_id = ? AND facility_id = ? AND permission_name = ? AND is_active = ?",
			userID, facilityID, string(capability), true).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query conditional permissions: %w", err)
	}

	out := make([]access.ConditionalPermission, 0, len(rows))

	for i := range rows {
		grant, err := grantFromModel(&rows[i])
		if err != nil {
			return nil, err
		}

		out = append(out, grant)
	}

	return out, nil
}

// FetchConditionalPermission returns a grant by id regardless of state.
func (s *Store) FetchConditionalPermission(ctx context.Context, grantID uint64) (*access.ConditionalPermission, error) {
	var row models.ConditionalPermission

	err := s.db.WithContext(ctx).First(&row, grantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, access.ErrGrantNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("query conditional permission: %w", err)
	}

	grant, err := grantFromModel(&row)
	if err != nil {
		return nil, err
	}

	return &grant, nil
}

// AppendUsageLogEntry appends one permission usage record.
func (s *Store) AppendUsageLogEntry(ctx context.Context, entry access.UsageLogEntry) error {
	var conditionsMet []byte

	if len(entry.ConditionsMet) > 0 {
		out, err := json.Marshal(entry.ConditionsMet)
		if err != nil {
			return fmt.Errorf("encode conditions met: %w", err)
		}

		conditionsMet = out
	}

	row := models.PermissionUsageLog{
		UserID:         entry.UserID,
		PermissionName: string(entry.Capability),
		ResourceType:   entry.ResourceType,
		ResourceID:     entry.ResourceID,
		FacilityID:     entry.FacilityID,
		AccessGranted:  entry.AccessGranted,
		AccessMethod:   string(entry.AccessMethod),
		ConditionsMet:  conditionsMet,
		Cause:          entry.Cause,
		CreatedAt:      entry.CreatedAt,
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("append usage log entry: %w", err)
	}

	return nil
}

// UpdateGlobalRole sets the user's global role and appends the audit entry
// in one transaction. A mutation that cannot be audited is rolled back.
func (s *Store) UpdateGlobalRole(
	ctx context.Context,
	userID uint64,
	newRole access.Role,
	audit access.RoleAuditEntry,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Updates(map[string]interface{}{"role": string(newRole), "updated_at": time.Now()})
		if result.Error != nil {
			return fmt.Errorf("update user role: %w", result.Error)
		}

		if result.RowsAffected == 0 {
			return access.ErrUserNotFound
		}

		return appendAudit(tx, audit)
	})
}

// CreateFacilityOverride inserts an active override and its audit entry in
// one transaction. The at-most-one-active invariant is re-checked inside
// the transaction so two concurrent grants cannot both commit.
func (s *Store) CreateFacilityOverride(
	ctx context.Context,
	override access.FacilityRoleOverride,
	audit access.RoleAuditEntry,
) (uint64, error) {
	var id uint64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64

		err := tx.Model(&models.FacilityRoleOverride{}).
			Where("user_id = ? AND facility_id = ? AND is_active = ?", override.UserID, override.FacilityID, true).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("check existing override: %w", err)
		}

		if count > 0 {
			return access.ErrOverrideExists
		}

		row := models.FacilityRoleOverride{
			UserID:     override.UserID,
			FacilityID: override.FacilityID,
			Role:       string(override.Role),
			GrantedBy:  override.GrantedBy,
			GrantedAt:  override.GrantedAt,
			IsActive:   true,
		}

		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("create override: %w", err)
		}

		id = row.ID

		return appendAudit(tx, audit)
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// DeactivateFacilityOverride soft-deletes an active override and appends
// the audit entry in one transaction.
func (s *Store) DeactivateFacilityOverride(ctx context.Context, overrideID uint64, audit access.RoleAuditEntry) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		result := tx.Model(&models.FacilityRoleOverride{}).
			Where("id = ? AND is_active = ?", overrideID, true).
			Updates(map[string]interface{}{
				"is_active":  false,
				"revoked_by": audit.ActorID,
				"revoked_at": now,
			})
		if result.Error != nil {
			return fmt.Errorf("deactivate override: %w", result.Error)
		}

		if result.RowsAffected == 0 {
			return access.ErrOverrideNotFound
		}

		return appendAudit(tx, audit)
	})
}

// CreateConditionalPermission inserts an active grant and its audit entry
// in one transaction.
func (s *Store) CreateConditionalPermission(
	ctx context.Context,
	grant access.ConditionalPermission,
	audit access.RoleAuditEntry,
) (uint64, error) {
	conditions, err := encodeConditions(grant.Conditions)
	if err != nil {
		return 0, err
	}

	var id uint64

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.ConditionalPermission{
			UserID:         grant.UserID,
			FacilityID:     grant.FacilityID,
			PermissionName: string(grant.Capability),
			Conditions:     conditions,
			IsActive:       true,
			GrantedBy:      grant.GrantedBy,
			ExpiresAt:      grant.ExpiresAt,
		}

		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("create conditional permission: %w", err)
		}

		id = row.ID

		return appendAudit(tx, audit)
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// DeactivateConditionalPermission soft-deletes an active grant and appends
// the audit entry in one transaction.
func (s *Store) DeactivateConditionalPermission(ctx context.Context, grantID uint64, audit access.RoleAuditEntry) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		result := tx.Model(&models.ConditionalPermission{}).
			Where("id = ? AND is_active = ?", grantID, true).
			Updates(map[string]interface{}{
				"is_active":  false,
				"revoked_by": audit.ActorID,
				"revoked_at": now,
			})
		if result.Error != nil {
			return fmt.Errorf("deactivate conditional permission: %w", result.Error)
		}

		if result.RowsAffected == 0 {
			return access.ErrGrantNotFound
		}

		return appendAudit(tx, audit)
	})
}

// appendAudit writes the role audit entry within the mutation transaction.
func appendAudit(tx *gorm.DB, audit access.RoleAuditEntry) error {
	var metadata []byte

	if len(audit.Metadata) > 0 {
		out, err := json.Marshal(audit.Metadata)
		if err != nil {
			return fmt.Errorf("encode audit metadata: %w", err)
		}

		metadata = out
	}

	row := models.RoleAuditLog{
		UserID:       audit.ActorID,
		TargetUserID: audit.TargetUserID,
		Action:       string(audit.Action),
		RoleType:     string(audit.RoleType),
		OldRole:      string(audit.OldRole),
		NewRole:      string(audit.NewRole),
		FacilityID:   audit.FacilityID,
		Reason:       audit.Reason,
		Metadata:     metadata,
		CreatedAt:    audit.CreatedAt,
	}

	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("append role audit entry: %w", err)
	}

	return nil
}

func overrideFromModel(row *models.FacilityRoleOverride) access.FacilityRoleOverride {
	return access.FacilityRoleOverride{
		ID:         row.ID,
		UserID:     row.UserID,
		FacilityID: row.FacilityID,
		Role:       access.Role(row.Role),
		GrantedBy:  row.GrantedBy,
		GrantedAt:  row.GrantedAt,
		IsActive:   row.IsActive,
	}
}

func grantFromModel(row *models.ConditionalPermission) (access.ConditionalPermission, error) {
	grant := access.ConditionalPermission{
		ID:         row.ID,
		UserID:     row.UserID,
		FacilityID: row.FacilityID,
		Capability: access.Capability(row.PermissionName),
		IsActive:   row.IsActive,
		GrantedBy:  row.GrantedBy,
		ExpiresAt:  row.ExpiresAt,
	}

	if len(row.Conditions) > 0 {
		if err := json.Unmarshal(row.Conditions, &grant.Conditions); err != nil {
			return access.ConditionalPermission{}, fmt.Errorf("decode conditions of grant %d: %w", row.ID, err)
		}
	}

	return grant, nil
}

func encodeConditions(c access.Conditions) ([]byte, error) {
	if len(c.TimeWindows) == 0 && c.RequiredFacility == 0 {
		return nil, nil
	}

	out, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode conditions: %w", err)
	}

	return out, nil
}
