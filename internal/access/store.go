package access

import (
	"context"
	"time"
)

// FacilityRoleOverride is a per-facility role assignment that replaces the
// holder's global role for decisions scoped to that facility. At most one
// override may be active per (user, facility) pair. Overrides are revoked by
// flipping IsActive, never by deleting the row, so the grant history stays
// intact.
type FacilityRoleOverride struct {
	ID         uint64
	UserID     uint64
	FacilityID uint64
	Role       Role
	GrantedBy  uint64
	GrantedAt  time.Time
	IsActive   bool
}

// TimeWindow restricts a conditional permission to an hour-of-day range on
// selected weekdays. The window covers [StartHour, EndHour) in the server's
// local time. AllowedDays holds time.Weekday values (0 = Sunday); a nil
// slice means every day, an empty slice matches no day at all. Windows with
// StartHour >= EndHour are invalid configuration and never match.
type TimeWindow struct {
	StartHour   int   `json:"start_hour"`
	EndHour     int   `json:"end_hour"`
	AllowedDays []int `json:"allowed_days,omitempty"`
}

// Conditions is the typed condition shape attached to a conditional
// permission. The zero value means the grant is unconditional while active
// and unexpired.
type Conditions struct {
	TimeWindows []TimeWindow `json:"time_windows,omitempty"`
	// RequiredFacility restricts the grant to access attempts scoped to
	// exactly this facility. Zero means unconstrained.
	RequiredFacility uint64 `json:"required_facility,omitempty"`
}

// ConditionalPermission is an ad-hoc grant of a capability that the
// holder's role-based CapabilitySet does not include. It is evaluated on
// every access attempt and is never auto-deleted, only marked inactive or
// left to expire.
type ConditionalPermission struct {
	ID         uint64
	UserID     uint64
	FacilityID uint64
	Capability Capability
	Conditions Conditions
	IsActive   bool
	GrantedBy  uint64
	ExpiresAt  *time.Time
}

// UsageLogEntry is the append-only record of one resolved access decision.
// Exactly one entry is written per CheckAccess call regardless of outcome.
type UsageLogEntry struct {
	UserID        uint64
	Capability    Capability
	ResourceType  string
	ResourceID    string
	FacilityID    uint64
	AccessGranted bool
	AccessMethod  AccessMethod
	ConditionsMet []string
	// Cause carries the internal reason of a backend-error deny for
	// operators. It is never surfaced to the requesting user.
	Cause     string
	CreatedAt time.Time
}

// RoleType distinguishes global role mutations from facility-scoped ones in
// the role audit trail.
type RoleType string

const (
	// RoleTypeGlobal marks a mutation of a user's global role.
	RoleTypeGlobal RoleType = "global"
	// RoleTypeFacility marks a mutation scoped to a single facility.
	RoleTypeFacility RoleType = "facility_specific"
)

// AuditAction names the mutation recorded by a RoleAuditEntry.
type AuditAction string

const (
	// AuditActionGlobalRoleChange records a change of a user's global role.
	AuditActionGlobalRoleChange AuditAction = "global_role_change"
	// AuditActionOverrideAssign records the grant of a facility role override.
	AuditActionOverrideAssign AuditAction = "facility_role_assign"
	// AuditActionOverrideRevoke records the revocation of a facility role override.
	AuditActionOverrideRevoke AuditAction = "facility_role_revoke"
	// AuditActionBulkOverrideAssign records one grant of a bulk override assignment.
	AuditActionBulkOverrideAssign AuditAction = "bulk_facility_role_assign"
	// AuditActionConditionalGrant records the grant of a conditional permission.
	AuditActionConditionalGrant AuditAction = "conditional_grant"
	// AuditActionConditionalRevoke records the revocation of a conditional permission.
	AuditActionConditionalRevoke AuditAction = "conditional_revoke"
)

// RoleAuditEntry is the append-only record of one role mutation. Every
// mutation produces exactly one entry, written in the same transaction as
// the mutation itself; the trail is the sole source of truth for who
// changed which role, when, and why.
type RoleAuditEntry struct {
	ActorID      uint64
	TargetUserID uint64
	Action       AuditAction
	RoleType     RoleType
	OldRole      Role
	NewRole      Role
	FacilityID   uint64
	Reason       string
	Metadata     map[string]string
	CreatedAt    time.Time
}

// Store is the persistence contract of the access control core. The core
// owns the semantics only; schema and transport belong to the
// implementation (see internal/db/controller/accessstore).
//
// All reads are snapshot reads. Implementations must bound every call with
// the deadline carried by ctx and surface any backend failure as an error;
// the core resolves read failures as deny and write failures as rollback.
type Store interface {
	// FetchGlobalRole returns the user's global role.
	// Returns ErrUserNotFound when the user does not exist.
	FetchGlobalRole(ctx context.Context, userID uint64) (Role, error)

	// FetchActiveFacilityOverride returns the single active override for
	// the (user, facility) pair, or nil when none exists. Implementations
	// must detect the at-most-one-active invariant and return
	// ErrInconsistentOverride when it is violated.
	FetchActiveFacilityOverride(ctx context.Context, userID, facilityID uint64) (*FacilityRoleOverride, error)

	// FetchFacilityOverride returns an override by id regardless of state.
	// Returns ErrOverrideNotFound when the id is unknown.
	FetchFacilityOverride(ctx context.Context, overrideID uint64) (*FacilityRoleOverride, error)

	// FetchActiveConditionalPermissions returns the active conditional
	// permissions matching (user, facility, capability). Expiry is
	// evaluated by the caller at check time, not filtered here, so an
	// expired-but-active record is still returned.
	FetchActiveConditionalPermissions(ctx context.Context, userID, facilityID uint64, capability Capability) ([]ConditionalPermission, error)

	// FetchConditionalPermission returns a grant by id regardless of state.
	// Returns ErrGrantNotFound when the id is unknown.
	FetchConditionalPermission(ctx context.Context, grantID uint64) (*ConditionalPermission, error)

	// AppendUsageLogEntry appends one permission usage record.
	AppendUsageLogEntry(ctx context.Context, entry UsageLogEntry) error

	// UpdateGlobalRole sets the user's global role and appends the audit
	// entry in one transaction. Neither write survives without the other.
	UpdateGlobalRole(ctx context.Context, userID uint64, newRole Role, audit RoleAuditEntry) error

	// CreateFacilityOverride inserts an active override and appends the
	// audit entry in one transaction. Returns ErrOverrideExists when an
	// active override for the pair already exists.
	CreateFacilityOverride(ctx context.Context, override FacilityRoleOverride, audit RoleAuditEntry) (uint64, error)

	// DeactivateFacilityOverride soft-deletes an active override and
	// appends the audit entry in one transaction.
	DeactivateFacilityOverride(ctx context.Context, overrideID uint64, audit RoleAuditEntry) error

	// CreateConditionalPermission inserts an active grant and appends the
	// audit entry in one transaction.
	CreateConditionalPermission(ctx context.Context, grant ConditionalPermission, audit RoleAuditEntry) (uint64, error)

	// DeactivateConditionalPermission soft-deletes an active grant and
	// appends the audit entry in one transaction.
	DeactivateConditionalPermission(ctx context.Context, grantID uint64, audit RoleAuditEntry) error
}
