// Package product provides handlers for managing pharmaceutical products.
package product

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/access"
	"github.com/pharmview/pharmview/internal/auth"
	"github.com/pharmview/pharmview/internal/config"
	productctl "github.com/pharmview/pharmview/internal/db/controller/product"
	"github.com/pharmview/pharmview/internal/db/models"
	"github.com/pharmview/pharmview/internal/web/handler"
)

const (
	// Path is the base path for product management.
	Path = handler.APIBase + "/products"
)

// UpsertRequest is the body for creating or updating a product.
type UpsertRequest struct {
	Code     string `json:"code" validate:"omitempty,max=50"`
	Name     string `json:"name" validate:"required,max=255"`
	Category string `json:"category" validate:"max=100"`
	Unit     string `json:"unit" validate:"required,max=50"`
	Program  string `json:"program" validate:"max=100"`
}

// Service provides CRUD operations for products.
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
		auth.RequireCapability(authService, access.CapProductCreate),
		s.Create,
	)
	app.Put(Path+"/:id",
		auth.RequireCapability(authService, access.CapProductUpdate),
		s.Update,
	)
	app.Post(Path+"/:id/deactivate",
		auth.RequireCapability(authService, access.CapProductUpdate),
		s.Deactivate,
	)
	app.Post(Path+"/:id/activate",
		auth.RequireCapability(authService, access.CapProductUpdate),
		s.Activate,
	)
}

// List returns all products; ?program= narrows to one health programme.
func (s *Service) List(c *fiber.Ctx) error {
	var (
		products []models.Product
		err      error
	)

	if program := c.Query("program"); program != "" {
		products, err = productctl.GetByProgram(s.db, program)
	} else {
		products, err = productctl.GetAll(s.db)
	}

	if err != nil {
		log.Error().Err(err).Msg("failed to list products")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(products)
}

// Get returns one product by id.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}

	product, err := productctl.GetByID(s.db, uint64(id))
	if errors.Is(err, productctl.ErrProductNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	if err != nil {
		log.Error().Err(err).Msg("failed to get product")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(product)
}

// Create registers a new product.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(UpsertRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "code is required"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	product, err := productctl.Create(s.db, &models.Product{
		Code:     req.Code,
		Name:     req.Name,
		Category: req.Category,
		Unit:     req.Unit,
		Program:  req.Program,
	})

	switch {
	case errors.Is(err, productctl.ErrProductAlreadyExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Error().Err(err).Msg("failed to create product")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Uint64("product_id", product.ID).Str("code", product.Code).
		Uint64("user_id", auth.UserID(c)).Msg("product created")

	return c.Status(fiber.StatusCreated).JSON(product)
}

// Update edits a product's descriptive fields.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}

	req := new(UpsertRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	product, err := productctl.Update(s.db, uint64(id), req.Name, req.Category, req.Unit, req.Program)

	switch {
	case errors.Is(err, productctl.ErrProductNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Error().Err(err).Msg("failed to update product")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(product)
}

// Deactivate stops tracking a product.
func (s *Service) Deactivate(c *fiber.Ctx) error {
	return s.setActive(c, false)
}

// Activate resumes tracking a product.
func (s *Service) Activate(c *fiber.Ctx) error {
	return s.setActive(c, true)
}

func (s *Service) setActive(c *fiber.Ctx, active bool) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}

	err = productctl.SetActive(s.db, uint64(id), active)

	switch {
	case errors.Is(err, productctl.ErrProductNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Error().Err(err).Msg("failed to change product state")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(fiber.Map{"id": id, "active": active})
}
