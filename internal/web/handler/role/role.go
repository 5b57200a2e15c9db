// Package role exposes the role catalog and the caller's resolved access
// context.
package role

import (
	"errors"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/access"
	"github.com/pharmview/pharmview/internal/auth"
	"github.com/pharmview/pharmview/internal/config"
	userctl "github.com/pharmview/pharmview/internal/db/controller/user"
	"github.com/pharmview/pharmview/internal/web/handler"
)

const (
	// Path lists the role catalog.
	Path = handler.APIBase + "/roles"
	// MePath returns the caller's profile and resolved role.
	MePath = handler.APIBase + "/me"
)

// Info describes one role in the catalog.
type Info struct {
	Name         string   `json:"name"`
	Rank         int      `json:"rank"`
	Capabilities []string `json:"capabilities"`
}

// Me is the caller's resolved access context for the requested facility
// scope.
type Me struct {
	ID            uint64   `json:"id"`
	Username      string   `json:"username"`
	Email         string   `json:"email"`
	GlobalRole    string   `json:"global_role"`
	FacilityID    uint64   `json:"facility_id,omitempty"`
	EffectiveRole string   `json:"effective_role"`
	FromOverride  bool     `json:"from_override"`
	Capabilities  []string `json:"capabilities"`
}

// Service provides the role catalog handlers.
type Service struct {
	cfg  *config.Config
	db   *gorm.DB
	auth *auth.Service
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

	app.Get(Path, auth.RequireAuthenticated(authService), s.List)
	app.Get(MePath, auth.RequireAuthenticated(authService), s.Me)
}

// List returns every role with its rank and capability set, ordered by
// seniority.
func (s *Service) List(c *fiber.Ctx) error {
	roles := access.Roles()

	infos := make([]Info, 0, len(roles))

	for _, r := range roles {
		rank, err := access.RankOf(r)
		if err != nil {
			continue
		}

		caps, err := access.CapabilitiesFor(r)
		if err != nil {
			continue
		}

		names := make([]string, 0, len(caps))
		for capability := range caps {
			names = append(names, string(capability))
		}

		sort.Strings(names)

		infos = append(infos, Info{Name: string(r), Rank: rank, Capabilities: names})
	}

	return c.JSON(infos)
}

// Me resolves the caller's effective role for the request's facility
// scope and returns it with the matching capability set.
func (s *Service) Me(c *fiber.Ctx) error {
	userID := auth.UserID(c)

	user, err := userctl.GetByID(s.db, userID)
	if errors.Is(err, userctl.ErrUserNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	} else if err != nil {
		log.Error().Err(err).Msg("failed to fetch current user")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	facilityID := auth.FacilityID(c)

	effective, fromOverride, err := s.auth.EffectiveRole(c.UserContext(), userID, facilityID)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve effective role")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	me := Me{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		GlobalRole:    user.Role,
		FacilityID:    facilityID,
		EffectiveRole: string(effective),
		FromOverride:  fromOverride,
	}

	if caps, err := access.CapabilitiesFor(effective); err == nil {
		me.Capabilities = make([]string, 0, len(caps))
		for capability := range caps {
			me.Capabilities = append(me.Capabilities, string(capability))
		}

		sort.Strings(me.Capabilities)
	}

	return c.JSON(me)
}
