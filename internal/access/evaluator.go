package access

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// AccessMethod records how a granted decision was reached.
type AccessMethod string

const (
	// MethodGlobalRole means the user's global role granted the capability.
	MethodGlobalRole AccessMethod = "global_role"
	// MethodFacilityRole means a facility role override granted the capability.
	MethodFacilityRole AccessMethod = "facility_role"
	// MethodConditional means an ad-hoc conditional permission granted the capability.
	MethodConditional AccessMethod = "conditional"
)

// Condition names noted in UsageLogEntry.ConditionsMet when a conditional
// grant satisfies an access attempt.
const (
	conditionTimeWindow    = "time_window"
	conditionLocation      = "location"
	conditionUnconditional = "unconditional"
)

// defaultCheckTimeout bounds all store lookups of a single access check.
const defaultCheckTimeout = 5 * time.Second

// Request describes one access attempt.
type Request struct {
	UserID     uint64
	FacilityID uint64 // zero when no facility is in scope
	Capability Capability
	// ResourceType and ResourceID identify what is being accessed, for the
	// usage trail only; they play no part in the decision.
	ResourceType string
	ResourceID   string
}

// Decision is the outcome of one access check. A denied decision carries no
// distinction between "denied by policy" and "denied by backend failure";
// the underlying cause goes to the usage log for operators only.
type Decision struct {
	Granted       bool
	Method        AccessMethod
	Role          Role
	ConditionsMet []string
}

// Checker decides access attempts. It resolves the effective role, falls
// back to conditional permission evaluation when the role does not grant
// the capability, and records every decision in the usage trail.
//
// A Checker is safe for concurrent use: all reads are snapshot reads
// against the store and the only side effect is the usage log append.
type Checker struct {
	store    Store
	resolver *Resolver
	timeout  time.Duration
	now      func() time.Time
}

// NewChecker creates a new access checker backed by store.
func NewChecker(store Store) *Checker {
	return &Checker{
		store:    store,
		resolver: NewResolver(store),
		timeout:  defaultCheckTimeout,
		now:      time.Now,
	}
}

// Resolver exposes the checker's effective role resolver for callers that
// need the role without a full capability decision.
func (c *Checker) Resolver() *Resolver {
	return c.resolver
}

// CheckAccess decides one access attempt. It never returns an error: every
// failure path resolves to a deny, and exactly one usage log entry is
// written per call regardless of outcome. When the usage log append itself
// fails, a would-be grant is flipped to deny: the trail is the only audit
// of conditional grants and is not skippable.
func (c *Checker) CheckAccess(ctx context.Context, req Request) Decision {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	decision, cause := c.decide(ctx, req)

	entry := UsageLogEntry{
		UserID:        req.UserID,
		Capability:    req.Capability,
		ResourceType:  req.ResourceType,
		ResourceID:    req.ResourceID,
		FacilityID:    req.FacilityID,
		AccessGranted: decision.Granted,
		AccessMethod:  decision.Method,
		ConditionsMet: decision.ConditionsMet,
		CreatedAt:     c.now(),
	}
	if cause != nil {
		entry.Cause = cause.Error()
	}

	if err := c.store.AppendUsageLogEntry(ctx, entry); err != nil {
		log.Error().Err(err).Uint64("user_id", req.UserID).Str("capability", string(req.Capability)).
			Msg("failed to append permission usage log entry")

		if decision.Granted {
			decision = Decision{Granted: false, Role: decision.Role}
		}
	}

	observeDecision(decision)

	return decision
}

// decide runs the layered resolution. The returned error is the internal
// cause of a deny; it never crosses the CheckAccess boundary.
func (c *Checker) decide(ctx context.Context, req Request) (Decision, error) {
	role, overridden, err := c.resolver.EffectiveRole(ctx, req.UserID, req.FacilityID)
	if err != nil {
		return Decision{Role: role}, err
	}

	caps, err := CapabilitiesFor(role)
	if err != nil {
		return Decision{Role: role}, err
	}

	if caps[req.Capability] {
		method := MethodGlobalRole
		if overridden {
			method = MethodFacilityRole
		}

		return Decision{Granted: true, Method: method, Role: role}, nil
	}

	// The role does not grant the capability; conditional grants are only
	// consulted on this path.
	permissions, err := c.store.FetchActiveConditionalPermissions(ctx, req.UserID, req.FacilityID, req.Capability)
	if err != nil {
		return Decision{Role: role}, fmt.Errorf("%w: fetch conditional permissions: %v", ErrExternalStore, err)
	}

	now := c.now()

	for i := range permissions {
		if met, ok := c.satisfied(&permissions[i], req, now); ok {
			return Decision{Granted: true, Method: MethodConditional, Role: role, ConditionsMet: met}, nil
		}
	}

	return Decision{Role: role}, nil
}

// satisfied reports whether a single conditional permission covers the
// access attempt at the given instant, and which conditions were evaluated
// as true.
func (c *Checker) satisfied(grant *ConditionalPermission, req Request, now time.Time) ([]string, bool) {
	if !grant.IsActive {
		return nil, false
	}

	// An expired grant never satisfies, even when is_active was never
	// flipped; expiry is evaluated at check time, not by background sweep.
	if grant.ExpiresAt != nil && !now.Before(*grant.ExpiresAt) {
		return nil, false
	}

	var met []string

	if len(grant.Conditions.TimeWindows) > 0 {
		if !anyWindowMatches(grant.Conditions.TimeWindows, now) {
			return nil, false
		}

		met = append(met, conditionTimeWindow)
	}

	if grant.Conditions.RequiredFacility != 0 {
		if req.FacilityID != grant.Conditions.RequiredFacility {
			return nil, false
		}

		met = append(met, conditionLocation)
	}

	if len(met) == 0 {
		met = append(met, conditionUnconditional)
	}

	return met, true
}

// anyWindowMatches reports whether now falls inside at least one window.
// Windows with StartHour >= EndHour are invalid configuration: overnight
// wrap semantics are undefined, so such a window never matches.
func anyWindowMatches(windows []TimeWindow, now time.Time) bool {
	for _, w := range windows {
		if w.StartHour >= w.EndHour || w.StartHour < 0 || w.EndHour > 24 {
			log.Warn().Int("start_hour", w.StartHour).Int("end_hour", w.EndHour).
				Msg("rejecting invalid time window on conditional permission")

			continue
		}

		hour := now.Hour()
		if hour < w.StartHour || hour >= w.EndHour {
			continue
		}

		if !dayAllowed(w.AllowedDays, now.Weekday()) {
			continue
		}

		return true
	}

	return false
}

// dayAllowed applies the allowed_days convention: nil means every day,
// an empty slice matches no day at all.
func dayAllowed(days []int, day time.Weekday) bool {
	if days == nil {
		return true
	}

	for _, d := range days {
		if d == int(day) {
			return true
		}
	}

	return false
}
