// Package audit provides read-only handlers over the role audit trail and
// the permission usage log.
package audit

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/access"
	"github.com/pharmview/pharmview/internal/auth"
	"github.com/pharmview/pharmview/internal/config"
	"github.com/pharmview/pharmview/internal/db/models"
	"github.com/pharmview/pharmview/internal/web/handler"
)

const (
	// Path is the base path for audit trail queries.
	Path = handler.APIBase + "/admin/audit"

	// defaultLimit bounds result pages when the client does not ask for
	// a size.
	defaultLimit = 100
	// maxLimit is the hard cap on a single page.
	maxLimit = 1000

	dateLayout = "2006-01-02"
)

// Service provides audit trail handlers.
type Service struct {
	cfg *config.Config
	db  *gorm.DB
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

	app.Get(Path+"/roles",
		auth.RequireCapability(authService, access.CapAdminAuditView),
		s.RoleChanges,
	)
	app.Get(Path+"/usage",
		auth.RequireCapability(authService, access.CapAdminAuditView),
		s.Usage,
	)
}

// RoleChanges returns role mutation audit entries, newest first.
func (s *Service) RoleChanges(c *fiber.Ctx) error {
	query, err := s.window(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if raw := c.Query("target_user_id"); raw != "" {
		id, perr := strconv.ParseUint(raw, 10, 64)
		if perr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid target_user_id"})
		}

		query = query.Where("target_user_id = ?", id)
	}

	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}

	var entries []models.RoleAuditLog
	if err := query.Find(&entries).Error; err != nil {
		log.Error().Err(err).Msg("failed to query role audit log")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(entries)
}

// Usage returns permission usage log entries, newest first.
func (s *Service) Usage(c *fiber.Ctx) error {
	query, err := s.window(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if capability := c.Query("capability"); capability != "" {
		query = query.Where("permission_name = ?", capability)
	}

	if granted := c.Query("granted"); granted != "" {
		v, perr := strconv.ParseBool(granted)
		if perr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid granted flag"})
		}

		query = query.Where("access_granted = ?", v)
	}

	var entries []models.PermissionUsageLog
	if err := query.Find(&entries).Error; err != nil {
		log.Error().Err(err).Msg("failed to query permission usage log")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(entries)
}

// window applies the shared user, date range and limit query parameters.
func (s *Service) window(c *fiber.Ctx) (*gorm.DB, error) {
	query := s.db.Order("created_at DESC")

	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid user_id")
		}

		query = query.Where("user_id = ?", id)
	}

	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid from date, want YYYY-MM-DD")
		}

		query = query.Where("created_at >= ?", from)
	}

	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid to date, want YYYY-MM-DD")
		}

		query = query.Where("created_at < ?", to)
	}

	limit := defaultLimit

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid limit")
		}

		if n > maxLimit {
			n = maxLimit
		}

		limit = n
	}

	return query.Limit(limit), nil
}
