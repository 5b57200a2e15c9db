// Package oidc provides handlers for the OpenID Connect (OIDC)
// authentication flow: login initiation with CSRF state tokens, the
// authorization callback with ID token verification, and logout with
// provider end-session support. External identities map to accounts only;
// a first login provisions the account at the least-privileged role.
package oidc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/auth"
	"github.com/pharmview/pharmview/internal/config"
	"github.com/pharmview/pharmview/internal/web/handler"
	"github.com/pharmview/pharmview/internal/web/session"
)

const (
	// LoginPath is the path to initiate OIDC login.
	LoginPath = handler.RootPath + "auth/oidc/login"

	// CallbackPath is the path for OIDC callback.
	CallbackPath = handler.RootPath + "auth/oidc/callback"

	// LogoutPath is the path for OIDC logout.
	LogoutPath = handler.RootPath + "auth/oidc/logout"

	// stateTTL is how long a state token stays valid.
	stateTTL = 5 * time.Minute
)

// Service is the OIDC handler service.
type Service struct {
	cfg          *config.Config
	db           *gorm.DB
	oidcProvider *auth.OIDCProvider

	stateMu    sync.Mutex
	stateStore map[string]time.Time
}

// Handler is the OIDC handler.
var Handler = Service{
	stateStore: make(map[string]time.Time),
}

// Init initializes the OIDC handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, _ *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg

	if !cfg.OIDC.Enabled {
		return
	}

	oidcConfig := auth.OIDCConfig{
		Enabled:      cfg.OIDC.Enabled,
		ProviderURL:  cfg.OIDC.ProviderURL,
		ClientID:     cfg.OIDC.ClientID,
		ClientSecret: cfg.OIDC.ClientSecret,
		RedirectURL:  cfg.OIDC.RedirectURL,
		Scopes:       cfg.OIDC.Scopes,
	}

	oidcProvider, err := auth.NewOIDCProvider(context.Background(), &oidcConfig, db)
	if err != nil {
		if errors.Is(err, auth.ErrOIDCDisabled) {
			log.Info().Msg("OIDC authentication is disabled by configuration")
		} else {
			log.Warn().Err(err).Msg("failed to initialize OIDC provider, OIDC authentication will be disabled")
		}

		return // Don't fail, just disable OIDC
	}

	s.oidcProvider = oidcProvider

	log.Info().Msg("OIDC authentication provider initialized")

	// Register routes
	app.Get(LoginPath, s.Login)
	app.Get(CallbackPath, s.Callback)
	app.Get(LogoutPath, s.Logout)

	// Start state cleanup goroutine
	go s.cleanupStates()
}

// Login initiates the OIDC login flow.
func (s *Service) Login(c *fiber.Ctx) error {
	if s.oidcProvider == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "oidc authentication is not available"})
	}

	// Generate state token for CSRF protection
	state, err := auth.GenerateStateToken()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate state token")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	s.stateMu.Lock()
	s.stateStore[state] = time.Now().Add(stateTTL)
	s.stateMu.Unlock()

	// Redirect to OIDC provider
	return c.Redirect(s.oidcProvider.GetAuthURL(state))
}

// Callback handles the OIDC callback.
func (s *Service) Callback(c *fiber.Ctx) error {
	if s.oidcProvider == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "oidc authentication is not available"})
	}

	code := c.Query("code")
	state := c.Query("state")

	if code == "" || state == "" {
		log.Error().Msg("missing code or state in OIDC callback")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid callback parameters"})
	}

	if !s.consumeState(state) {
		log.Error().Msg("invalid or expired state in OIDC callback")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid callback parameters"})
	}

	authenticatedUser, err := s.oidcProvider.HandleCallback(c.UserContext(), code)
	if err != nil {
		log.Error().Err(err).Msg("OIDC callback failed")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication failed"})
	}

	// Create session
	sessionID, errSession := session.GenerateSessionID()
	if errSession != nil {
		log.Error().Err(errSession).Msg("failed to generate session ID")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	userSession := &session.Data{
		User: *authenticatedUser,
	}

	if err = userSession.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	// Set login cookie
	cookieSettings := &fiber.Cookie{
		Name:     "session",
		Value:    sessionID,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	}

	if s.cfg.DevMode {
		cookieSettings.Secure = false
	}

	c.Cookie(cookieSettings)

	log.Info().Str("username", authenticatedUser.Username).Msg("user logged in via OIDC")

	return c.Redirect(handler.RootPath)
}

// Logout handles OIDC logout.
func (s *Service) Logout(c *fiber.Ctx) error {
	c.ClearCookie("session")

	if s.oidcProvider != nil {
		postLogoutRedirectURI := s.cfg.Webserver.URL
		logoutURL := s.oidcProvider.GetLogoutURL("", postLogoutRedirectURI)

		if logoutURL != "" {
			return c.Redirect(logoutURL)
		}
	}

	return c.Redirect(handler.RootPath)
}

// consumeState validates a state token and removes it; a token is good for
// exactly one callback.
func (s *Service) consumeState(state string) bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	expiration, exists := s.stateStore[state]
	delete(s.stateStore, state)

	return exists && time.Now().Before(expiration)
}

// cleanupStates periodically removes expired state tokens.
func (s *Service) cleanupStates() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.stateMu.Lock()

		now := time.Now()
		for state, expiration := range s.stateStore {
			if now.After(expiration) {
				delete(s.stateStore, state)
			}
		}

		s.stateMu.Unlock()
	}
}
