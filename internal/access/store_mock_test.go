package access

import (
	"context"
	"fmt"
)

// fakeStore is an in-memory Store for exercising the core without a
// database. Error fields inject failures per operation.
type fakeStore struct {
	roles     map[uint64]Role
	overrides []FacilityRoleOverride
	grants    []ConditionalPermission
	usage     []UsageLogEntry
	audits    []RoleAuditEntry

	nextID uint64

	globalRoleErr error
	overrideErr   error
	grantsErr     error
	usageErr      error
	mutateErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{roles: make(map[uint64]Role)}
}

func (f *fakeStore) FetchGlobalRole(_ context.Context, userID uint64) (Role, error) {
	if f.globalRoleErr != nil {
		return "", f.globalRoleErr
	}

	role, ok := f.roles[userID]
	if !ok {
		return "", ErrUserNotFound
	}

	return role, nil
}

func (f *fakeStore) FetchActiveFacilityOverride(_ context.Context, userID, facilityID uint64) (*FacilityRoleOverride, error) {
	if f.overrideErr != nil {
		return nil, f.overrideErr
	}

	var found *FacilityRoleOverride

	for i := range f.overrides {
		ov := &f.overrides[i]
		if !ov.IsActive || ov.UserID != userID || ov.FacilityID != facilityID {
			continue
		}

		if found != nil {
			return nil, ErrInconsistentOverride
		}

		found = ov
	}

	return found, nil
}

func (f *fakeStore) FetchFacilityOverride(_ context.Context, overrideID uint64) (*FacilityRoleOverride, error) {
	for i := range f.overrides {
		if f.overrides[i].ID == overrideID {
			return &f.overrides[i], nil
		}
	}

	return nil, ErrOverrideNotFound
}

func (f *fakeStore) FetchActiveConditionalPermissions(
	_ context.Context,
	userID, facilityID uint64,
	capability Capability,
) ([]ConditionalPermission, error) {
	if f.grantsErr != nil {
		return nil, f.grantsErr
	}

	var out []ConditionalPermission

	for _, g := range f.grants {
		if g.IsActive && g.UserID == userID && g.FacilityID == facilityID && g.Capability == capability {
			out = append(out, g)
		}
	}

	return out, nil
}

func (f *fakeStore) FetchConditionalPermission(_ context.Context, grantID uint64) (*ConditionalPermission, error) {
	for i := range f.grants {
		if f.grants[i].ID == grantID {
			return &f.grants[i], nil
		}
	}

	return nil, ErrGrantNotFound
}

func (f *fakeStore) AppendUsageLogEntry(_ context.Context, entry UsageLogEntry) error {
	if f.usageErr != nil {
		return f.usageErr
	}

	f.usage = append(f.usage, entry)

	return nil
}

func (f *fakeStore) UpdateGlobalRole(_ context.Context, userID uint64, newRole Role, audit RoleAuditEntry) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}

	if _, ok := f.roles[userID]; !ok {
		return ErrUserNotFound
	}

	f.roles[userID] = newRole
	f.audits = append(f.audits, audit)

	return nil
}

func (f *fakeStore) CreateFacilityOverride(
	ctx context.Context,
	override FacilityRoleOverride,
	audit RoleAuditEntry,
) (uint64, error) {
	if f.mutateErr != nil {
		return 0, f.mutateErr
	}

	existing, err := f.FetchActiveFacilityOverride(ctx, override.UserID, override.FacilityID)
	if err != nil {
		return 0, err
	}

	if existing != nil {
		return 0, ErrOverrideExists
	}

	f.nextID++
	override.ID = f.nextID
	f.overrides = append(f.overrides, override)
	f.audits = append(f.audits, audit)

	return override.ID, nil
}

func (f *fakeStore) DeactivateFacilityOverride(_ context.Context, overrideID uint64, audit RoleAuditEntry) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}

	for i := range f.overrides {
		if f.overrides[i].ID == overrideID {
			f.overrides[i].IsActive = false
			f.audits = append(f.audits, audit)

			return nil
		}
	}

	return ErrOverrideNotFound
}

func (f *fakeStore) CreateConditionalPermission(
	_ context.Context,
	grant ConditionalPermission,
	audit RoleAuditEntry,
) (uint64, error) {
	if f.mutateErr != nil {
		return 0, f.mutateErr
	}

	f.nextID++
	grant.ID = f.nextID
	f.grants = append(f.grants, grant)
	f.audits = append(f.audits, audit)

	return grant.ID, nil
}

func (f *fakeStore) DeactivateConditionalPermission(_ context.Context, grantID uint64, audit RoleAuditEntry) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}

	for i := range f.grants {
		if f.grants[i].ID == grantID {
			f.grants[i].IsActive = false
			f.audits = append(f.audits, audit)

			return nil
		}
	}

	return ErrGrantNotFound
}

// addOverride seeds an override bypassing the uniqueness check, for
// exercising the inconsistent-state path.
func (f *fakeStore) addOverride(ov FacilityRoleOverride) uint64 {
	f.nextID++
	ov.ID = f.nextID
	f.overrides = append(f.overrides, ov)

	return ov.ID
}

func (f *fakeStore) addGrant(g ConditionalPermission) uint64 {
	f.nextID++
	g.ID = f.nextID
	f.grants = append(f.grants, g)

	return g.ID
}

var _ Store = (*fakeStore)(nil)

// errFake stands in for an arbitrary backend failure.
var errFake = fmt.Errorf("backend unreachable")
