package access

import (
	"context"
	"fmt"
	"time"
)

// minMutationRole is the minimum global role allowed to change another
// user's role or grants. Only zonal, regional and national rank at least
// this high.
const minMutationRole = RoleZonal

// Manager performs role and grant mutations. Every mutation verifies the
// acting user's seniority first, then writes the mutation together with its
// RoleAuditEntry in one store transaction; a mutation that cannot be
// audited does not happen.
//
// Mutation failures propagate to the caller (unlike access checks, which
// resolve to deny): the admin surface must be able to show the operator why
// a mutation did not happen. Nothing is retried here; a retry without
// re-verifying seniority would be unsound, since the actor's own role may
// have changed between attempts.
type Manager struct {
	store   Store
	timeout time.Duration
	now     func() time.Time
}

// NewManager creates a new mutation manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:   store,
		timeout: defaultCheckTimeout,
		now:     time.Now,
	}
}

// requireSeniority verifies that the actor's global role ranks at least
// minMutationRole. The global role gates mutations deliberately: a
// facility-scoped demotion must not strip an administrator of the ability
// to manage roles elsewhere, and a facility-scoped elevation must not grant
// it.
func (m *Manager) requireSeniority(ctx context.Context, actorID uint64) (Role, error) {
	actorRole, err := m.store.FetchGlobalRole(ctx, actorID)
	if err != nil {
		return "", fmt.Errorf("%w: fetch actor role: %v", ErrExternalStore, err)
	}

	ok, err := HasSeniorityAtLeast(actorRole, minMutationRole)
	if err != nil {
		return "", err
	}

	if !ok {
		return "", fmt.Errorf("%w: role %q may not mutate roles", ErrInsufficientSeniority, actorRole)
	}

	return actorRole, nil
}

// ChangeGlobalRole sets the target user's global role.
func (m *Manager) ChangeGlobalRole(ctx context.Context, actorID, targetID uint64, newRole Role, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if _, err := ParseRole(string(newRole)); err != nil {
		return err
	}

	if _, err := m.requireSeniority(ctx, actorID); err != nil {
		return err
	}

	oldRole, err := m.store.FetchGlobalRole(ctx, targetID)
	if err != nil {
		return fmt.Errorf("%w: fetch target role: %v", ErrExternalStore, err)
	}

	audit := RoleAuditEntry{
		ActorID:      actorID,
		TargetUserID: targetID,
		Action:       AuditActionGlobalRoleChange,
		RoleType:     RoleTypeGlobal,
		OldRole:      oldRole,
		NewRole:      newRole,
		Reason:       reason,
		CreatedAt:    m.now(),
	}

	if err := m.store.UpdateGlobalRole(ctx, targetID, newRole, audit); err != nil {
		return fmt.Errorf("update global role: %w", err)
	}

	return nil
}

// GrantFacilityOverride creates an active facility role override for the
// target user. Changing an existing override is modeled as revoke-then-grant;
// granting over an active override fails with ErrOverrideExists.
func (m *Manager) GrantFacilityOverride(
	ctx context.Context,
	actorID, targetID, facilityID uint64,
	role Role,
	reason string,
) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if _, err := ParseRole(string(role)); err != nil {
		return 0, err
	}

	if _, err := m.requireSeniority(ctx, actorID); err != nil {
		return 0, err
	}

	existing, err := m.store.FetchActiveFacilityOverride(ctx, targetID, facilityID)
	if err != nil {
		return 0, fmt.Errorf("%w: check existing override: %v", ErrExternalStore, err)
	}

	if existing != nil {
		return 0, ErrOverrideExists
	}

	override := FacilityRoleOverride{
		UserID:     targetID,
		FacilityID: facilityID,
		Role:       role,
		GrantedBy:  actorID,
		GrantedAt:  m.now(),
		IsActive:   true,
	}

	audit := RoleAuditEntry{
		ActorID:      actorID,
		TargetUserID: targetID,
		Action:       AuditActionOverrideAssign,
		RoleType:     RoleTypeFacility,
		NewRole:      role,
		FacilityID:   facilityID,
		Reason:       reason,
		CreatedAt:    m.now(),
	}

	id, err := m.store.CreateFacilityOverride(ctx, override, audit)
	if err != nil {
		return 0, fmt.Errorf("create facility override: %w", err)
	}

	return id, nil
}

// RevokeFacilityOverride soft-deletes an active override.
func (m *Manager) RevokeFacilityOverride(ctx context.Context, actorID, overrideID uint64, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if _, err := m.requireSeniority(ctx, actorID); err != nil {
		return err
	}

	override, err := m.store.FetchFacilityOverride(ctx, overrideID)
	if err != nil {
		return err
	}

	if !override.IsActive {
		return ErrOverrideNotFound
	}

	audit := RoleAuditEntry{
		ActorID:      actorID,
		TargetUserID: override.UserID,
		Action:       AuditActionOverrideRevoke,
		RoleType:     RoleTypeFacility,
		OldRole:      override.Role,
		FacilityID:   override.FacilityID,
		Reason:       reason,
		CreatedAt:    m.now(),
	}

	if err := m.store.DeactivateFacilityOverride(ctx, overrideID, audit); err != nil {
		return fmt.Errorf("deactivate facility override: %w", err)
	}

	return nil
}

// BulkGrantFacilityOverrides grants the same facility override to several
// users. Seniority is verified once; each grant is applied and audited
// individually, so a failure part-way leaves the earlier grants (each fully
// audited) in place and reports the ids that succeeded.
func (m *Manager) BulkGrantFacilityOverrides(
	ctx context.Context,
	actorID uint64,
	targetIDs []uint64,
	facilityID uint64,
	role Role,
	reason string,
) ([]uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}

	if _, err := m.requireSeniority(ctx, actorID); err != nil {
		return nil, err
	}

	granted := make([]uint64, 0, len(targetIDs))

	for _, targetID := range targetIDs {
		existing, err := m.store.FetchActiveFacilityOverride(ctx, targetID, facilityID)
		if err != nil {
			return granted, fmt.Errorf("%w: check existing override: %v", ErrExternalStore, err)
		}

		if existing != nil {
			return granted, fmt.Errorf("user %d: %w", targetID, ErrOverrideExists)
		}

		override := FacilityRoleOverride{
			UserID:     targetID,
			FacilityID: facilityID,
			Role:       role,
			GrantedBy:  actorID,
			GrantedAt:  m.now(),
			IsActive:   true,
		}

		audit := RoleAuditEntry{
			ActorID:      actorID,
			TargetUserID: targetID,
			Action:       AuditActionBulkOverrideAssign,
			RoleType:     RoleTypeFacility,
			NewRole:      role,
			FacilityID:   facilityID,
			Reason:       reason,
			Metadata:     map[string]string{"bulk_size": fmt.Sprintf("%d", len(targetIDs))},
			CreatedAt:    m.now(),
		}

		id, err := m.store.CreateFacilityOverride(ctx, override, audit)
		if err != nil {
			return granted, fmt.Errorf("user %d: create facility override: %w", targetID, err)
		}

		granted = append(granted, id)
	}

	return granted, nil
}

// GrantConditionalPermission creates an active conditional permission.
// Condition shapes are validated up front so the evaluator never has to
// guess about malformed windows.
func (m *Manager) GrantConditionalPermission(
	ctx context.Context,
	actorID uint64,
	grant ConditionalPermission,
	reason string,
) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if grant.Capability == "" {
		return 0, fmt.Errorf("%w: capability is empty", ErrInvalidCondition)
	}

	// A grant on a misspelled capability would never match any check.
	if !IsValidCapability(string(grant.Capability)) {
		return 0, fmt.Errorf("%w: unknown capability %q", ErrInvalidCondition, grant.Capability)
	}

	if err := validateConditions(grant.Conditions); err != nil {
		return 0, err
	}

	if _, err := m.requireSeniority(ctx, actorID); err != nil {
		return 0, err
	}

	grant.GrantedBy = actorID
	grant.IsActive = true

	audit := RoleAuditEntry{
		ActorID:      actorID,
		TargetUserID: grant.UserID,
		Action:       AuditActionConditionalGrant,
		RoleType:     RoleTypeFacility,
		FacilityID:   grant.FacilityID,
		Reason:       reason,
		Metadata:     map[string]string{"capability": string(grant.Capability)},
		CreatedAt:    m.now(),
	}

	id, err := m.store.CreateConditionalPermission(ctx, grant, audit)
	if err != nil {
		return 0, fmt.Errorf("create conditional permission: %w", err)
	}

	return id, nil
}

// RevokeConditionalPermission soft-deletes an active conditional permission.
func (m *Manager) RevokeConditionalPermission(ctx context.Context, actorID, grantID uint64, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if _, err := m.requireSeniority(ctx, actorID); err != nil {
		return err
	}

	grant, err := m.store.FetchConditionalPermission(ctx, grantID)
	if err != nil {
		return err
	}

	if !grant.IsActive {
		return ErrGrantNotFound
	}

	audit := RoleAuditEntry{
		ActorID:      actorID,
		TargetUserID: grant.UserID,
		Action:       AuditActionConditionalRevoke,
		RoleType:     RoleTypeFacility,
		FacilityID:   grant.FacilityID,
		Reason:       reason,
		Metadata:     map[string]string{"capability": string(grant.Capability)},
		CreatedAt:    m.now(),
	}

	if err := m.store.DeactivateConditionalPermission(ctx, grantID, audit); err != nil {
		return fmt.Errorf("deactivate conditional permission: %w", err)
	}

	return nil
}

// validateConditions rejects malformed condition shapes at grant time.
func validateConditions(c Conditions) error {
	for _, w := range c.TimeWindows {
		if w.StartHour < 0 || w.EndHour > 24 || w.StartHour >= w.EndHour {
			return fmt.Errorf("%w: time window [%d, %d)", ErrInvalidCondition, w.StartHour, w.EndHour)
		}

		for _, d := range w.AllowedDays {
			if d < 0 || d > 6 {
				return fmt.Errorf("%w: allowed day %d out of range", ErrInvalidCondition, d)
			}
		}
	}

	return nil
}
