// Package settings provides handlers for managing application settings.
package settings

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/access"
	"github.com/pharmview/pharmview/internal/auth"
	"github.com/pharmview/pharmview/internal/config"
	settingctl "github.com/pharmview/pharmview/internal/db/controller/setting"
	"github.com/pharmview/pharmview/internal/web/handler"
)

// Path is the base path for application settings.
const Path = handler.APIBase + "/admin/settings"

// SetRequest is the body for creating or replacing a setting.
type SetRequest struct {
	Value string `json:"value" validate:"required"`
}

// Service provides application setting handlers.
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
		auth.RequireCapability(authService, access.CapAdminSettings),
		s.List,
	)
	app.Get(Path+"/:name",
		auth.RequireCapability(authService, access.CapAdminSettings),
		s.Get,
	)
	app.Put(Path+"/:name",
		auth.RequireCapability(authService, access.CapAdminSettings),
		s.Set,
	)
	app.Delete(Path+"/:name",
		auth.RequireCapability(authService, access.CapAdminSettings),
		s.Delete,
	)
}

// List returns all settings.
func (s *Service) List(c *fiber.Ctx) error {
	settings, err := settingctl.GetAll(s.db)
	if err != nil {
		log.Error().Err(err).Msg("failed to list settings")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	out := make([]fiber.Map, 0, len(settings))
	for i := range settings {
		out = append(out, fiber.Map{"name": settings[i].Name, "value": string(settings[i].Value)})
	}

	return c.JSON(out)
}

// Get returns one setting by name.
func (s *Service) Get(c *fiber.Ctx) error {
	setting, err := settingctl.Get(s.db, c.Params("name"))
	if errors.Is(err, settingctl.ErrSettingNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	} else if err != nil {
		log.Error().Err(err).Msg("failed to fetch setting")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(fiber.Map{"name": setting.Name, "value": string(setting.Value)})
}

// Set creates or replaces a setting by name.
func (s *Service) Set(c *fiber.Ctx) error {
	req := new(SetRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	setting, err := settingctl.Set(s.db, c.Params("name"), []byte(req.Value))
	if errors.Is(err, settingctl.ErrSettingNameEmpty) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	} else if err != nil {
		log.Error().Err(err).Msg("failed to store setting")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Str("name", setting.Name).Uint64("changed_by", auth.UserID(c)).
		Msg("setting stored")

	return c.JSON(fiber.Map{"name": setting.Name, "value": string(setting.Value)})
}

// Delete removes a setting by name.
func (s *Service) Delete(c *fiber.Ctx) error {
	name := c.Params("name")

	if err := settingctl.DeleteByName(s.db, name); errors.Is(err, settingctl.ErrSettingNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	} else if err != nil {
		log.Error().Err(err).Msg("failed to delete setting")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Str("name", name).Uint64("deleted_by", auth.UserID(c)).Msg("setting deleted")

	return c.JSON(fiber.Map{"name": name, "deleted": true})
}
