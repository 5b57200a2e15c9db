// Package access implements the access control resolution core: the closed
// role set with its seniority order and per-role capability grants, the
// effective role resolver handling facility-specific overrides, and the
// conditional permission evaluator applying time-window and location
// constraints to ad-hoc grants.
//
// The package is pure with respect to application state: every operation
// takes the authenticated user id and facility id as arguments and reads
// through the Store contract, so the core is independently testable and
// consulted the same way from every handler. All uncertainty fails closed.
package access
