package access

import (
	"context"
	"errors"
	"fmt"
)

// Resolver computes the single effective role governing an access decision
// for a (user, optional facility) pair.
type Resolver struct {
	store Store
}

// NewResolver creates a new effective role resolver backed by store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// EffectiveRole resolves the role whose CapabilitySet governs a decision
// scoped to facilityID. A facilityID of zero means no facility is in scope
// and the user's global role applies.
//
// When an active override exists for the exact (user, facility) pair its
// role replaces the global role, even when the override ranks lower than
// the global role: demotion-in-scope is permitted and expected. The second
// return value reports whether an override was applied.
//
// The resolver fails closed: a store failure resolves to the
// lowest-privilege role together with a wrapped ErrExternalStore, never to
// the user's possibly higher global role. An inconsistent override state
// (more than one active record for the pair) surfaces
// ErrInconsistentOverride and must deny the request.
func (r *Resolver) EffectiveRole(ctx context.Context, userID, facilityID uint64) (Role, bool, error) {
	globalRole, err := r.store.FetchGlobalRole(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return RoleViewer, false, err
		}

		return RoleViewer, false, fmt.Errorf("%w: fetch global role: %v", ErrExternalStore, err)
	}

	if !IsValidRole(string(globalRole)) {
		return RoleViewer, false, fmt.Errorf("%w: stored global role %q", ErrUnknownRole, globalRole)
	}

	if facilityID == 0 {
		return globalRole, false, nil
	}

	override, err := r.store.FetchActiveFacilityOverride(ctx, userID, facilityID)
	if err != nil {
		if errors.Is(err, ErrInconsistentOverride) {
			return RoleViewer, false, err
		}

		return RoleViewer, false, fmt.Errorf("%w: fetch facility override: %v", ErrExternalStore, err)
	}

	if override == nil {
		return globalRole, false, nil
	}

	if !IsValidRole(string(override.Role)) {
		return RoleViewer, false, fmt.Errorf("%w: stored override role %q", ErrUnknownRole, override.Role)
	}

	return override.Role, true, nil
}
