package auth

import (
	"context"

	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/access"
	"github.com/pharmview/pharmview/internal/db/controller/accessstore"
)

// Service bundles the authorization entry points handlers work with: the
// access checker for capability decisions and the manager for audited role
// mutations. Both run on the same database-backed store so a role change
// is visible to the very next check.
type Service struct {
	db      *gorm.DB
	checker *access.Checker
	manager *access.Manager
	tokens  *TokenIssuer
}

// NewService creates a new auth service on top of db.
func NewService(db *gorm.DB, tokens *TokenIssuer) *Service {
	store := accessstore.New(db)

	return &Service{
		db:      db,
		checker: access.NewChecker(store),
		manager: access.NewManager(store),
		tokens:  tokens,
	}
}

// Checker returns the access checker for capability decisions.
func (s *Service) Checker() *access.Checker {
	return s.checker
}

// Manager returns the role mutation manager.
func (s *Service) Manager() *access.Manager {
	return s.manager
}

// Tokens returns the bearer token issuer.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// HasCapability reports whether the user holds the capability in the given
// facility scope (0 for the global scope). It is a convenience wrapper for
// handlers that only need the yes/no answer; the full decision, including
// the access method, comes from CheckAccess.
func (s *Service) HasCapability(
	ctx context.Context,
	userID, facilityID uint64,
	capability access.Capability,
) bool {
	decision := s.checker.CheckAccess(ctx, access.Request{
		UserID:     userID,
		FacilityID: facilityID,
		Capability: capability,
	})

	return decision.Granted
}

// CheckAccess runs a full capability check and returns the decision.
func (s *Service) CheckAccess(ctx context.Context, req access.Request) access.Decision {
	return s.checker.CheckAccess(ctx, req)
}

// EffectiveRole resolves the user's effective role in the facility scope.
func (s *Service) EffectiveRole(ctx context.Context, userID, facilityID uint64) (access.Role, bool, error) {
	return s.checker.Resolver().EffectiveRole(ctx, userID, facilityID)
}
