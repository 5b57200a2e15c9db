// Package association provides handlers for the facility-product
// association lifecycle: facility staff request an association, a reviewer
// with the approval capability accepts or rejects it.
package association

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/access"
	"github.com/pharmview/pharmview/internal/auth"
	"github.com/pharmview/pharmview/internal/config"
	associationctl "github.com/pharmview/pharmview/internal/db/controller/association"
	"github.com/pharmview/pharmview/internal/db/models"
	"github.com/pharmview/pharmview/internal/web/handler"
)

const (
	// Path is the base path for association management.
	Path = handler.APIBase + "/associations"
)

// RequestBody is the body for requesting a new association.
type RequestBody struct {
	FacilityID uint64 `json:"facility_id" validate:"required"`
	ProductID  uint64 `json:"product_id" validate:"required"`
}

// Service provides handlers for the association lifecycle.
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
		s.ListByFacility,
	)
	app.Get(Path+"/pending",
		auth.RequireCapability(authService, access.CapAssociationApprove),
		s.ListPending,
	)
	app.Post(Path,
		auth.RequireCapability(authService, access.CapConsumptionRecord),
		s.Request,
	)
	app.Post(Path+"/:id/approve",
		auth.RequireCapability(authService, access.CapAssociationApprove),
		s.Approve,
	)
	app.Post(Path+"/:id/reject",
		auth.RequireCapability(authService, access.CapAssociationApprove),
		s.Reject,
	)
}

// ListByFacility returns the associations of the facility in scope.
func (s *Service) ListByFacility(c *fiber.Ctx) error {
	facilityID := auth.FacilityID(c)
	if facilityID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "facility scope required"})
	}

	assocs, err := associationctl.GetByFacility(s.db, facilityID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list associations")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(assocs)
}

// ListPending returns every association awaiting review.
func (s *Service) ListPending(c *fiber.Ctx) error {
	assocs, err := associationctl.GetPending(s.db)
	if err != nil {
		log.Error().Err(err).Msg("failed to list pending associations")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(assocs)
}

// Request creates a pending association for review.
func (s *Service) Request(c *fiber.Ctx) error {
	req := new(RequestBody)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	assoc, err := associationctl.Request(s.db, req.FacilityID, req.ProductID, auth.UserID(c))

	switch {
	case errors.Is(err, associationctl.ErrAssociationExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Error().Err(err).Msg("failed to request association")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Uint64("association_id", assoc.ID).Uint64("facility_id", req.FacilityID).
		Uint64("product_id", req.ProductID).Uint64("user_id", auth.UserID(c)).
		Msg("association requested")

	return c.Status(fiber.StatusCreated).JSON(assoc)
}

// Approve accepts a pending association.
func (s *Service) Approve(c *fiber.Ctx) error {
	return s.review(c, associationctl.Approve)
}

// Reject declines a pending association.
func (s *Service) Reject(c *fiber.Ctx) error {
	return s.review(c, associationctl.Reject)
}

func (s *Service) review(
	c *fiber.Ctx,
	fn func(db *gorm.DB, id, reviewedBy uint64) (*models.FacilityProduct, error),
) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid association id"})
	}

	assoc, err := fn(s.db, uint64(id), auth.UserID(c))

	switch {
	case errors.Is(err, associationctl.ErrAssociationNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, associationctl.ErrAssociationNotPending):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Error().Err(err).Msg("failed to review association")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Uint64("association_id", assoc.ID).Str("status", string(assoc.Status)).
		Uint64("user_id", auth.UserID(c)).Msg("association reviewed")

	return c.JSON(assoc)
}
