// Package facility provides handlers for managing health facilities.
package facility

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/access"
	"github.com/pharmview/pharmview/internal/auth"
	"github.com/pharmview/pharmview/internal/config"
	facilityctl "github.com/pharmview/pharmview/internal/db/controller/facility"
	"github.com/pharmview/pharmview/internal/db/models"
	"github.com/pharmview/pharmview/internal/web/handler"
)

const (
	// Path is the base path for facility management.
	Path = handler.APIBase + "/facilities"
)

// UpsertRequest is the body for creating or updating a facility.
type UpsertRequest struct {
	Code   string `json:"code" validate:"omitempty,max=50"`
	Name   string `json:"name" validate:"required,max=255"`
	Type   string `json:"type" validate:"required,oneof=hospital health_center warehouse"`
	Zone   string `json:"zone" validate:"max=100"`
	Region string `json:"region" validate:"max=100"`
}

// Service provides CRUD operations for facilities.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
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
	s.validator = validator.New()

	app.Get(Path,
		auth.RequireCapability(authService, access.CapDashboardView),
		s.List,
	)
	app.Get(Path+"/:id",
		auth.RequireCapability(authService, access.CapDashboardView),
		s.Get,
	)
	app.Post(Path,
		auth.RequireCapability(authService, access.CapFacilityManage),
		s.Create,
	)
	app.Put(Path+"/:id",
		auth.RequireCapability(authService, access.CapFacilityManage),
		s.Update,
	)
	app.Post(Path+"/:id/deactivate",
		auth.RequireCapability(authService, access.CapFacilityManage),
		s.Deactivate,
	)
	app.Post(Path+"/:id/activate",
		auth.RequireCapability(authService, access.CapFacilityManage),
		s.Activate,
	)
}

// List returns all facilities; ?active=true narrows to operational ones.
func (s *Service) List(c *fiber.Ctx) error {
	var (
		facilities []models.Facility
		err        error
	)

	if c.QueryBool("active") {
		facilities, err = facilityctl.GetActive(s.db)
	} else {
		facilities, err = facilityctl.GetAll(s.db)
	}

	if err != nil {
		log.Error().Err(err).Msg("failed to list facilities")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(facilities)
}

// Get returns one facility by id.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid facility id"})
	}

	facility, err := facilityctl.GetByID(s.db, uint64(id))
	if errors.Is(err, facilityctl.ErrFacilityNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	if err != nil {
		log.Error().Err(err).Msg("failed to get facility")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(facility)
}

// Create registers a new facility.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(UpsertRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "code is required"})
	}

	if err := s.validator.StructExcept(req, "Code"); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	facility, err := facilityctl.Create(s.db, &models.Facility{
		Code:   req.Code,
		Name:   req.Name,
		Type:   models.FacilityType(req.Type),
		Zone:   req.Zone,
		Region: req.Region,
	})

	switch {
	case errors.Is(err, facilityctl.ErrFacilityAlreadyExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Error().Err(err).Msg("failed to create facility")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Uint64("facility_id", facility.ID).Str("code", facility.Code).
		Uint64("user_id", auth.UserID(c)).Msg("facility created")

	return c.Status(fiber.StatusCreated).JSON(facility)
}

// Update edits a facility's descriptive fields.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid facility id"})
	}

	req := new(UpsertRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.StructExcept(req, "Code"); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	facility, err := facilityctl.Update(s.db, uint64(id), req.Name, models.FacilityType(req.Type), req.Zone, req.Region)

	switch {
	case errors.Is(err, facilityctl.ErrFacilityNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Error().Err(err).Msg("failed to update facility")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(facility)
}

// Deactivate takes a facility out of operation.
func (s *Service) Deactivate(c *fiber.Ctx) error {
	return s.setActive(c, false)
}

// Activate brings a facility back into operation.
func (s *Service) Activate(c *fiber.Ctx) error {
	return s.setActive(c, true)
}

func (s *Service) setActive(c *fiber.Ctx, active bool) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid facility id"})
	}

	err = facilityctl.SetActive(s.db, uint64(id), active)

	switch {
	case errors.Is(err, facilityctl.ErrFacilityNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Error().Err(err).Msg("failed to change facility state")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(fiber.Map{"id": id, "active": active})
}
