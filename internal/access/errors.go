package access

import "errors"

var (
	// ErrUnknownRole is returned when a role string is not a member of the
	// closed role set. It is always fatal to the calling operation and is
	// never silently coerced to a default that grants access.
	ErrUnknownRole = errors.New("unknown role")

	// ErrInconsistentOverride is returned when more than one active facility
	// role override exists for the same (user, facility) pair. This is a
	// data-integrity violation; the request fails closed rather than
	// arbitrarily picking one record.
	ErrInconsistentOverride = errors.New("multiple active overrides for user and facility")

	// ErrInsufficientSeniority is returned when the acting user lacks the
	// rank required to mutate another user's role. The mutation is never
	// partially applied.
	ErrInsufficientSeniority = errors.New("acting user lacks required seniority")

	// ErrExternalStore is returned when the backing store times out or
	// fails. Read paths resolve it as deny; write paths roll back.
	ErrExternalStore = errors.New("external store failure")

	// ErrUserNotFound is returned when no user exists for the given id.
	ErrUserNotFound = errors.New("user not found")

	// ErrOverrideNotFound is returned when no active facility role override
	// exists for the given id.
	ErrOverrideNotFound = errors.New("facility role override not found")

	// ErrOverrideExists is returned when an active override already exists
	// for the (user, facility) pair. A role change is modeled as
	// revoke-then-grant, never as an in-place mutation.
	ErrOverrideExists = errors.New("active override already exists for user and facility")

	// ErrGrantNotFound is returned when no active conditional permission
	// exists for the given id.
	ErrGrantNotFound = errors.New("conditional permission not found")

	// ErrInvalidCondition is returned when a conditional permission is
	// granted with a malformed condition, for example a time window with
	// start_hour >= end_hour. Overnight windows are deliberately rejected
	// rather than guessing a wrap-past-midnight interpretation.
	ErrInvalidCondition = errors.New("invalid permission condition")
)
