package access

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Role is a member of the closed role set used for role-based access control.
// The set is fixed at compile time; role strings arriving from the database
// or from user input must pass through ParseRole (or FallbackRole) before
// they are trusted.
type Role string

const (
	// RoleViewer is the lowest-privilege role. It is also the explicit
	// fallback role for external role strings that fail validation.
	RoleViewer Role = "viewer"
	// RoleFacilityOfficer records consumption and registers products for a facility.
	RoleFacilityOfficer Role = "facility_officer"
	// RoleFacilityManager runs the day-to-day operations of a facility.
	RoleFacilityManager Role = "facility_manager"
	// RoleQA reviews product data and approves facility-product associations.
	RoleQA Role = "qa"
	// RoleProcurement manages the product catalogue for purchasing.
	RoleProcurement Role = "procurement"
	// RoleFinance has read and export access to consumption analytics.
	RoleFinance Role = "finance"
	// RoleDataAnalyst has read and export access to all analytics.
	RoleDataAnalyst Role = "data_analyst"
	// RoleProgramManager oversees a health programme across facilities.
	RoleProgramManager Role = "program_manager"
	// RoleZonal administers users and roles within a zone.
	RoleZonal Role = "zonal"
	// RoleRegional administers users, roles and settings within a region.
	RoleRegional Role = "regional"
	// RoleNational is the highest-privilege role.
	RoleNational Role = "national"
)

// roleRanks is the single authoritative seniority table. Ranks are strictly
// increasing along the seniority chain but deliberately non-contiguous so
// roles can be inserted later without renumbering.
var roleRanks = map[Role]int{ //nolint:gochecknoglobals
	RoleViewer:          10,
	RoleFacilityOfficer: 20,
	RoleFacilityManager: 30,
	RoleQA:              40,
	RoleProcurement:     50,
	RoleFinance:         60,
	RoleDataAnalyst:     70,
	RoleProgramManager:  80,
	RoleZonal:           90,
	RoleRegional:        100,
	RoleNational:        110,
}

// Roles returns every role of the closed set in ascending seniority order.
func Roles() []Role {
	return []Role{
		RoleViewer,
		RoleFacilityOfficer,
		RoleFacilityManager,
		RoleQA,
		RoleProcurement,
		RoleFinance,
		RoleDataAnalyst,
		RoleProgramManager,
		RoleZonal,
		RoleRegional,
		RoleNational,
	}
}

// RankOf returns the seniority rank of a role.
// It fails with ErrUnknownRole for any role outside the closed set.
func RankOf(role Role) (int, error) {
	rank, ok := roleRanks[role]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	return rank, nil
}

// HasSeniorityAtLeast reports whether role ranks at least as high as minRole.
// Both arguments must be members of the closed set.
func HasSeniorityAtLeast(role, minRole Role) (bool, error) {
	rank, err := RankOf(role)
	if err != nil {
		return false, err
	}

	minRank, err := RankOf(minRole)
	if err != nil {
		return false, err
	}

	return rank >= minRank, nil
}

// IsValidRole reports whether candidate names a role of the closed set.
// It is a pure predicate for external-data boundaries; callers that need
// the typed role should use ParseRole instead.
func IsValidRole(candidate string) bool {
	_, ok := roleRanks[Role(candidate)]
	return ok
}

// ParseRole converts an external role string into a Role.
// An unknown string is a hard failure (ErrUnknownRole); it is never coerced
// to a default that could grant access.
func ParseRole(candidate string) (Role, error) {
	if !IsValidRole(candidate) {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, candidate)
	}

	return Role(candidate), nil
}

// FallbackRole converts an external role string into a Role, explicitly
// falling back to the lowest-privilege role when the string is not a member
// of the closed set. The fallback is logged so the policy choice is visible
// to operators; callers that cannot tolerate a silent downgrade must use
// ParseRole instead.
func FallbackRole(candidate string) Role {
	if IsValidRole(candidate) {
		return Role(candidate)
	}

	log.Warn().Str("role", candidate).Str("fallback", string(RoleViewer)).
		Msg("unknown role string, falling back to lowest-privilege role")

	return RoleViewer
}
