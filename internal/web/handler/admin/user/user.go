// Package user provides handlers for managing user accounts in the admin area.
package user

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/access"
	"github.com/pharmview/pharmview/internal/auth"
	"github.com/pharmview/pharmview/internal/config"
	userctl "github.com/pharmview/pharmview/internal/db/controller/user"
	"github.com/pharmview/pharmview/internal/db/models"
	"github.com/pharmview/pharmview/internal/web/handler"
)

// Path is the base path for user administration.
const Path = handler.APIBase + "/admin/users"

// CreateRequest is the body for creating a local user account.
type CreateRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=12"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

// UpdateRequest is the body for updating a user's profile.
type UpdateRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

// RoleRequest is the body for changing a user's global role.
type RoleRequest struct {
	Role   string `json:"role" validate:"required"`
	Reason string `json:"reason" validate:"required,max=500"`
}

// View is the sanitized representation returned to clients. Password
// hashes and TOTP secrets never leave the server.
type View struct {
	ID         uint64    `json:"id"`
	Active     bool      `json:"active"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Role       string    `json:"role"`
	AuthSource string    `json:"auth_source"`
	TOTPSet    bool      `json:"totp_enrolled"`
	CreatedAt  time.Time `json:"created_at"`
}

// Service provides user administration handlers.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	auth      *auth.Service
	local     *auth.LocalProvider
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
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

	app.Get(Path,
		auth.RequireCapability(authService, access.CapAdminUsers),
		s.List,
	)
	app.Get(Path+"/:id",
		auth.RequireCapability(authService, access.CapAdminUsers),
		s.Get,
	)
	app.Post(Path,
		auth.RequireCapability(authService, access.CapAdminUsers),
		s.Create,
	)
	app.Put(Path+"/:id",
		auth.RequireCapability(authService, access.CapAdminUsers),
		s.Update,
	)
	app.Post(Path+"/:id/deactivate",
		auth.RequireCapability(authService, access.CapAdminUsers),
		s.Deactivate,
	)
	app.Post(Path+"/:id/activate",
		auth.RequireCapability(authService, access.CapAdminUsers),
		s.Activate,
	)
	app.Put(Path+"/:id/role",
		auth.RequireCapability(authService, access.CapAdminRolesAssign),
		s.ChangeRole,
	)
}

// List returns all user accounts.
func (s *Service) List(c *fiber.Ctx) error {
	users, err := userctl.GetAll(s.db)
	if err != nil {
		log.Error().Err(err).Msg("failed to list users")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	views := make([]View, 0, len(users))
	for i := range users {
		views = append(views, toView(&users[i]))
	}

	return c.JSON(views)
}

// Get returns one user account by ID.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	user, err := userctl.GetByID(s.db, id)
	if errors.Is(err, userctl.ErrUserNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	} else if err != nil {
		log.Error().Err(err).Msg("failed to fetch user")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(toView(user))
}

// Create provisions a local account. New accounts always start with the
// least privileged role; promotions go through ChangeRole so they are
// audited.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(CreateRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	user, err := s.local.CreateUser(req.Username, req.Email, req.Password, req.FirstName, req.LastName)
	if errors.Is(err, userctl.ErrUserAlreadyExists) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	} else if err != nil {
		log.Error().Err(err).Msg("failed to create user")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Uint64("user_id", user.ID).Str("username", user.Username).
		Uint64("created_by", auth.UserID(c)).Msg("user created")

	return c.Status(fiber.StatusCreated).JSON(toView(user))
}

// Update changes a user's profile fields.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	req := new(UpdateRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	user, err := userctl.UpdateProfile(s.db, id, req.Email, req.FirstName, req.LastName)
	if errors.Is(err, userctl.ErrUserNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	} else if err != nil {
		log.Error().Err(err).Msg("failed to update user")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(toView(user))
}

// Deactivate disables a user account. Accounts are never deleted.
func (s *Service) Deactivate(c *fiber.Ctx) error {
	return s.setActive(c, false)
}

// Activate re-enables a user account.
func (s *Service) Activate(c *fiber.Ctx) error {
	return s.setActive(c, true)
}

func (s *Service) setActive(c *fiber.Ctx, active bool) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	if err := userctl.SetActive(s.db, id, active); errors.Is(err, userctl.ErrUserNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	} else if err != nil {
		log.Error().Err(err).Msg("failed to change user active state")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Uint64("user_id", id).Bool("active", active).
		Uint64("changed_by", auth.UserID(c)).Msg("user active state changed")

	return c.JSON(fiber.Map{"id": id, "active": active})
}

// ChangeRole replaces the target user's global role. The change is
// seniority checked and audited by the access manager; this handler only
// translates the transport.
func (s *Service) ChangeRole(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	req := new(RoleRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	err = s.auth.Manager().ChangeGlobalRole(c.UserContext(), auth.UserID(c), id, access.Role(req.Role), req.Reason)

	switch {
	case errors.Is(err, access.ErrUnknownRole):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, access.ErrInsufficientSeniority):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, access.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Error().Err(err).Msg("failed to change user role")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Uint64("user_id", id).Str("role", req.Role).
		Uint64("changed_by", auth.UserID(c)).Msg("global role changed")

	return c.JSON(fiber.Map{"id": id, "role": req.Role})
}

func parseID(c *fiber.Ctx) (uint64, error) {
	return strconv.ParseUint(c.Params("id"), 10, 64)
}

func toView(u *models.User) View {
	return View{
		ID:         u.ID,
		Active:     u.Active,
		Username:   u.Username,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Role:       u.Role,
		AuthSource: string(u.AuthSource),
		TOTPSet:    u.TOTPSecret != "",
		CreatedAt:  u.CreatedAt,
	}
}
