package login

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/auth"
	"github.com/pharmview/pharmview/internal/config"
	"github.com/pharmview/pharmview/internal/web/handler"
	"github.com/pharmview/pharmview/internal/web/session"
)

const (
	// Path is the path to the login endpoint.
	Path = handler.APIBase + "/auth/login"
)

// Request is the login request body.
type Request struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	TOTPCode string `json:"totp_code"`
}

// Response is the successful login response body.
type Response struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

// UserInfo is the subset of the account returned to the client.
type UserInfo struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// Service is the login handler service.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	auth      *auth.Service
	local     *auth.LocalProvider
	validator *validator.Validate
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.auth = authService
	s.local = auth.NewLocalProvider(db)
	s.validator = validator.New()

	app.Post(Path, s.Post)
}

// Post handles the login request. On success it sets a session cookie for
// browser clients and returns a bearer token for API clients.
func (s *Service) Post(c *fiber.Ctx) error {
	req := new(Request)

	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInvalidBody.Error()})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInvalidBody.Error()})
	}

	user, err := s.local.Authenticate(req.Username, req.Password, req.TOTPCode)

	switch {
	case errors.Is(err, auth.ErrTOTPRequired):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":         auth.ErrTOTPRequired.Error(),
			"totp_required": true,
		})
	case errors.Is(err, auth.ErrUserAccountDisabled):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": auth.ErrUserAccountDisabled.Error()})
	case err != nil:
		// Not-found and bad-password collapse into one answer so the
		// endpoint cannot be used to probe for accounts.
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": ErrInvalidCredentials.Error()})
	}

	sessionID, err := session.GenerateSessionID()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate session ID")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": ErrInternalServerError.Error()})
	}

	userSession := &session.Data{
		User: *user,
	}

	if err = userSession.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": ErrInternalServerError.Error()})
	}

	token, err := s.auth.Tokens().Issue(user)
	if err != nil {
		log.Error().Err(err).Msg("failed to issue token")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": ErrInternalServerError.Error()})
	}

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

	log.Info().Uint64("user_id", user.ID).Str("username", user.Username).Msg("user logged in")

	return c.JSON(Response{
		Token: token,
		User: UserInfo{
			ID:        user.ID,
			Username:  user.Username,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Role:      user.Role,
		},
	})
}
