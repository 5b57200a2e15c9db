package access

import "fmt"

// Capability is a named boolean permission bit in resource.action format.
// Capabilities are bundled per role into a CapabilitySet; a capability a
// role does not grant can still be granted ad hoc through a conditional
// permission (see evaluator.go).
type Capability string

const (
	// CapDashboardView allows viewing the main dashboard summary.
	CapDashboardView Capability = "dashboard.view"

	// CapAnalyticsView allows viewing consumption analytics and charts.
	CapAnalyticsView Capability = "analytics.view"
	// CapAnalyticsExport allows exporting consumption data.
	CapAnalyticsExport Capability = "analytics.export"

	// CapProductCreate allows registering new products.
	CapProductCreate Capability = "product.create"
	// CapProductUpdate allows editing existing products.
	CapProductUpdate Capability = "product.update"

	// CapFacilityManage allows creating, editing and deactivating facilities.
	CapFacilityManage Capability = "facility.manage"

	// CapConsumptionRecord allows recording consumption data for a facility.
	CapConsumptionRecord Capability = "consumption.record"

	// CapAssociationApprove allows approving or rejecting facility-product associations.
	CapAssociationApprove Capability = "association.approve"

	// CapAdminUsers allows managing user accounts.
	CapAdminUsers Capability = "admin.users"
	// CapAdminRolesAssign allows changing global roles and facility role overrides.
	CapAdminRolesAssign Capability = "admin.roles.assign"
	// CapAdminGrants allows managing conditional permission grants.
	CapAdminGrants Capability = "admin.grants"
	// CapAdminAuditView allows reading the role audit and permission usage trails.
	CapAdminAuditView Capability = "admin.audit.view"
	// CapAdminSettings allows managing application-wide settings.
	CapAdminSettings Capability = "admin.settings"
)

// CapabilitySet maps every defined capability to whether a role grants it.
// A CapabilitySet is always complete: lookups never hit a missing key.
type CapabilitySet map[Capability]bool

// Capabilities returns every defined capability.
func Capabilities() []Capability {
	return []Capability{
		CapDashboardView,
		CapAnalyticsView,
		CapAnalyticsExport,
		CapProductCreate,
		CapProductUpdate,
		CapFacilityManage,
		CapConsumptionRecord,
		CapAssociationApprove,
		CapAdminUsers,
		CapAdminRolesAssign,
		CapAdminGrants,
		CapAdminAuditView,
		CapAdminSettings,
	}
}

// IsValidCapability reports whether candidate names a defined capability.
func IsValidCapability(candidate string) bool {
	for _, capability := range Capabilities() {
		if Capability(candidate) == capability {
			return true
		}
	}

	return false
}

// grants builds a complete CapabilitySet with the given capabilities set to
// true and every other defined capability set to false.
func grants(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(Capabilities()))
	for _, capability := range Capabilities() {
		set[capability] = false
	}

	for _, capability := range caps {
		set[capability] = true
	}

	return set
}

// capabilitiesByRole is the single authoritative base-grant table.
// It is populated once at process start and never mutated afterwards;
// CapabilitiesFor hands out copies so callers cannot change it either.
var capabilitiesByRole = map[Role]CapabilitySet{ //nolint:gochecknoglobals
	RoleViewer: grants(
		CapDashboardView,
		CapAnalyticsView,
	),
	RoleFacilityOfficer: grants(
		CapDashboardView,
		CapAnalyticsView,
		CapConsumptionRecord,
		CapProductCreate,
	),
	RoleFacilityManager: grants(
		CapDashboardView,
		CapAnalyticsView,
		CapConsumptionRecord,
		CapProductCreate,
		CapProductUpdate,
	),
	RoleQA: grants(
		CapDashboardView,
		CapAnalyticsView,
		CapProductUpdate,
		CapAssociationApprove,
	),
	RoleProcurement: grants(
		CapDashboardView,
		CapAnalyticsView,
		CapAnalyticsExport,
		CapProductCreate,
		CapProductUpdate,
	),
	RoleFinance: grants(
		CapDashboardView,
		CapAnalyticsView,
		CapAnalyticsExport,
	),
	RoleDataAnalyst: grants(
		CapDashboardView,
		CapAnalyticsView,
		CapAnalyticsExport,
	),
	RoleProgramManager: grants(
		CapDashboardView,
		CapAnalyticsView,
		CapAnalyticsExport,
		CapProductCreate,
		CapProductUpdate,
		CapFacilityManage,
		CapConsumptionRecord,
		CapAssociationApprove,
		CapAdminAuditView,
	),
	RoleZonal: grants(
		CapDashboardView,
		CapAnalyticsView,
		CapAnalyticsExport,
		CapProductCreate,
		CapProductUpdate,
		CapFacilityManage,
		CapConsumptionRecord,
		CapAssociationApprove,
		CapAdminAuditView,
		CapAdminUsers,
		CapAdminRolesAssign,
		CapAdminGrants,
	),
	RoleRegional: grants(
		CapDashboardView,
		CapAnalyticsView,
		CapAnalyticsExport,
		CapProductCreate,
		CapProductUpdate,
		CapFacilityManage,
		CapConsumptionRecord,
		CapAssociationApprove,
		CapAdminAuditView,
		CapAdminUsers,
		CapAdminRolesAssign,
		CapAdminGrants,
		CapAdminSettings,
	),
	RoleNational: grants(Capabilities()...),
}

// CapabilitiesFor returns the complete CapabilitySet of a role.
// It fails with ErrUnknownRole for any role outside the closed set and
// never returns a partial map. The returned set is a copy.
func CapabilitiesFor(role Role) (CapabilitySet, error) {
	set, ok := capabilitiesByRole[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	out := make(CapabilitySet, len(set))
	for capability, granted := range set {
		out[capability] = granted
	}

	return out, nil
}
