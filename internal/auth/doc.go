// Package auth provides authentication and authorization entry points for
// the application.
//
// Authentication supports two sources:
//   - Local database accounts with Argon2id password hashing and an
//     optional TOTP second factor
//   - OpenID Connect (OIDC) identity providers like Keycloak, Okta, and
//     Azure AD
//
// Browser sessions and signed bearer tokens (JWT) are both accepted on
// every route; the TokenIssuer serves API clients that cannot hold a
// cookie session.
//
// # Authorization
//
// Authorization decisions are delegated to the internal/access package:
// the Service wires its capability checker and role mutation manager to
// the application database. Providers never carry authorization; an OIDC
// identity maps to an account, not to a role, and new accounts always
// start at the least-privileged role.
//
// # Middleware
//
// Fiber middleware functions protect routes:
//   - RequireCapability: authenticate and require one capability in the
//     request's facility scope
//   - RequireAuthenticated: authenticate only
//
// Example usage:
//
//	tokens := auth.NewTokenIssuer(cfg.Webserver.TokenSecret, 12*time.Hour)
//	authService := auth.NewService(db, tokens)
//
//	app.Get("/api/v1/products",
//	    auth.RequireCapability(authService, access.CapDashboardView),
//	    handler,
//	)
package auth
