// Package grant provides handlers for managing conditional permissions.
package grant

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
	"github.com/pharmview/pharmview/internal/db/models"
	"github.com/pharmview/pharmview/internal/web/handler"
)

// Path is the base path for conditional permission administration.
const Path = handler.APIBase + "/admin/grants"

// TimeWindow mirrors the access condition shape on the wire. Hours are
// half-open [start, end) in server local time; days use 0 for Sunday.
type TimeWindow struct {
	StartHour   int   `json:"start_hour" validate:"gte=0,lte=23"`
	EndHour     int   `json:"end_hour" validate:"gte=1,lte=24"`
	AllowedDays []int `json:"allowed_days,omitempty" validate:"omitempty,dive,gte=0,lte=6"`
}

// GrantRequest is the body for creating a conditional permission.
type GrantRequest struct {
	UserID           uint64       `json:"user_id" validate:"required"`
	FacilityID       uint64       `json:"facility_id"`
	Capability       string       `json:"capability" validate:"required"`
	TimeWindows      []TimeWindow `json:"time_windows,omitempty" validate:"omitempty,dive"`
	RequiredFacility uint64       `json:"required_facility,omitempty"`
	ExpiresAt        *time.Time   `json:"expires_at,omitempty"`
	Reason           string       `json:"reason" validate:"required,max=500"`
}

// RevokeRequest is the body for revoking a conditional permission.
type RevokeRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Service provides conditional permission handlers.
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
		auth.RequireCapability(authService, access.CapAdminGrants),
		s.List,
	)
	app.Post(Path,
		auth.RequireCapability(authService, access.CapAdminGrants),
		s.Grant,
	)
	app.Post(Path+"/:id/revoke",
		auth.RequireCapability(authService, access.CapAdminGrants),
		s.Revoke,
	)
}

// List returns conditional permission rows, optionally filtered by user.
func (s *Service) List(c *fiber.Ctx) error {
	query := s.db.Order("created_at DESC")

	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user_id"})
		}

		query = query.Where("user_id = ?", id)
	}

	if c.Query("active") == "true" {
		query = query.Where("is_active = ?", true)
	}

	var grants []models.ConditionalPermission
	if err := query.Find(&grants).Error; err != nil {
		log.Error().Err(err).Msg("failed to list conditional permissions")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(grants)
}

// Grant creates a conditional permission for a user. Condition shapes are
// validated by the access manager before anything is written.
func (s *Service) Grant(c *fiber.Ctx) error {
	req := new(GrantRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	grant := access.ConditionalPermission{
		UserID:     req.UserID,
		FacilityID: req.FacilityID,
		Capability: access.Capability(req.Capability),
		ExpiresAt:  req.ExpiresAt,
		Conditions: access.Conditions{
			RequiredFacility: req.RequiredFacility,
		},
	}

	for _, w := range req.TimeWindows {
		grant.Conditions.TimeWindows = append(grant.Conditions.TimeWindows, access.TimeWindow{
			StartHour:   w.StartHour,
			EndHour:     w.EndHour,
			AllowedDays: w.AllowedDays,
		})
	}

	id, err := s.auth.Manager().GrantConditionalPermission(c.UserContext(), auth.UserID(c), grant, req.Reason)

	switch {
	case errors.Is(err, access.ErrInvalidCondition):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, access.ErrInsufficientSeniority):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Error().Err(err).Msg("failed to grant conditional permission")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Uint64("grant_id", id).Uint64("user_id", req.UserID).
		Str("capability", req.Capability).Uint64("granted_by", auth.UserID(c)).
		Msg("conditional permission granted")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// Revoke deactivates a conditional permission by ID.
func (s *Service) Revoke(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid grant id"})
	}

	req := new(RevokeRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	err = s.auth.Manager().RevokeConditionalPermission(c.UserContext(), auth.UserID(c), id, req.Reason)

	switch {
	case errors.Is(err, access.ErrGrantNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, access.ErrInsufficientSeniority):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Error().Err(err).Msg("failed to revoke conditional permission")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Uint64("grant_id", id).Uint64("revoked_by", auth.UserID(c)).
		Msg("conditional permission revoked")

	return c.JSON(fiber.Map{"id": id, "active": false})
}
