// Package override provides handlers for managing facility role overrides.
package override

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/access"
	"github.com/pharmview/pharmview/internal/auth"
	"github.com/pharmview/pharmview/internal/config"
	"github.com/pharmview/pharmview/internal/db/models"
	"github.com/pharmview/pharmview/internal/web/handler"
)

// Path is the base path for facility role override administration.
const Path = handler.APIBase + "/admin/overrides"

// GrantRequest is the body for assigning a facility scoped role.
type GrantRequest struct {
	UserID     uint64 `json:"user_id" validate:"required"`
	FacilityID uint64 `json:"facility_id" validate:"required"`
	Role       string `json:"role" validate:"required"`
	Reason     string `json:"reason" validate:"required,max=500"`
}

// BulkGrantRequest assigns the same facility scoped role to several users.
type BulkGrantRequest struct {
	UserIDs    []uint64 `json:"user_ids" validate:"required,min=1,dive,required"`
	FacilityID uint64   `json:"facility_id" validate:"required"`
	Role       string   `json:"role" validate:"required"`
	Reason     string   `json:"reason" validate:"required,max=500"`
}

// RevokeRequest is the body for revoking an override.
type RevokeRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Service provides facility role override handlers.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	auth      *auth.Service
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
	s.validator = validator.New()

	app.Get(Path,
		auth.RequireCapability(authService, access.CapAdminRolesAssign),
		s.List,
	)
	app.Post(Path,
		auth.RequireCapability(authService, access.CapAdminRolesAssign),
		s.Grant,
	)
	app.Post(Path+"/bulk",
		auth.RequireCapability(authService, access.CapAdminRolesAssign),
		s.BulkGrant,
	)
	app.Post(Path+"/:id/revoke",
		auth.RequireCapability(authService, access.CapAdminRolesAssign),
		s.Revoke,
	)
}

// List returns override rows, optionally filtered by user or facility.
// Revoked rows are included so the assignment history stays visible.
func (s *Service) List(c *fiber.Ctx) error {
	query := s.db.Order("created_at DESC")

	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user_id"})
		}

		query = query.Where("user_id = ?", id)
	}

	if raw := c.Query("facility_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid facility_id"})
		}

		query = query.Where("facility_id = ?", id)
	}

	if c.Query("active") == "true" {
		query = query.Where("is_active = ?", true)
	}

	var overrides []models.FacilityRoleOverride
	if err := query.Find(&overrides).Error; err != nil {
		log.Error().Err(err).Msg("failed to list facility role overrides")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(overrides)
}

// Grant assigns a facility scoped role to one user.
func (s *Service) Grant(c *fiber.Ctx) error {
	req := new(GrantRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	id, err := s.auth.Manager().GrantFacilityOverride(
		c.UserContext(), auth.UserID(c), req.UserID, req.FacilityID, access.Role(req.Role), req.Reason)

	if status, ok := mutationStatus(err); ok {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	} else if err != nil {
		log.Error().Err(err).Msg("failed to grant facility role override")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Uint64("override_id", id).Uint64("user_id", req.UserID).
		Uint64("facility_id", req.FacilityID).Str("role", req.Role).
		Uint64("granted_by", auth.UserID(c)).Msg("facility role override granted")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// BulkGrant assigns the same facility scoped role to several users in one
// transaction. The whole batch succeeds or none of it does.
func (s *Service) BulkGrant(c *fiber.Ctx) error {
	req := new(BulkGrantRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	ids, err := s.auth.Manager().BulkGrantFacilityOverrides(
		c.UserContext(), auth.UserID(c), req.UserIDs, req.FacilityID, access.Role(req.Role), req.Reason)

	if status, ok := mutationStatus(err); ok {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	} else if err != nil {
		log.Error().Err(err).Msg("failed to bulk grant facility role overrides")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Int("count", len(ids)).Uint64("facility_id", req.FacilityID).
		Str("role", req.Role).Uint64("granted_by", auth.UserID(c)).
		Msg("facility role overrides granted in bulk")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ids": ids})
}

// Revoke deactivates an override by ID.
func (s *Service) Revoke(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid override id"})
	}

	req := new(RevokeRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	err = s.auth.Manager().RevokeFacilityOverride(c.UserContext(), auth.UserID(c), id, req.Reason)

	if status, ok := mutationStatus(err); ok {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	} else if err != nil {
		log.Error().Err(err).Msg("failed to revoke facility role override")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Uint64("override_id", id).Uint64("revoked_by", auth.UserID(c)).
		Msg("facility role override revoked")

	return c.JSON(fiber.Map{"id": id, "active": false})
}

// mutationStatus maps the access manager's sentinel errors to HTTP
// statuses. It reports false for nil errors and for errors that should
// surface as an internal failure.
func mutationStatus(err error) (int, bool) {
	switch {
	case err == nil:
		return 0, false
	case errors.Is(err, access.ErrUnknownRole), errors.Is(err, access.ErrInvalidCondition):
		return fiber.StatusBadRequest, true
	case errors.Is(err, access.ErrInsufficientSeniority):
		return fiber.StatusForbidden, true
	case errors.Is(err, access.ErrUserNotFound),
		errors.Is(err, access.ErrOverrideNotFound),
		errors.Is(err, access.ErrGrantNotFound):
		return fiber.StatusNotFound, true
	case errors.Is(err, access.ErrOverrideExists):
		return fiber.StatusConflict, true
	default:
		return 0, false
	}
}
