package daemon

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/access"
	"github.com/pharmview/pharmview/internal/config"
	"github.com/pharmview/pharmview/internal/db/models"
)

// seed creates the initial national administrator when the user table is
// empty. The password must be changed after first login.
func seed(_ *config.Config, db *gorm.DB) {
	var count int64

	db.Model(&models.User{}).Count(&count)

	if count > 0 {
		return
	}

	admin := models.User{
		Username:   "admin",
		Email:      "admin@localhost",
		Password:   models.HashPassword("changeme"),
		Active:     true,
		Role:       string(access.RoleNational),
		AuthSource: models.AuthSourceLocal,
	}

	if err := db.Create(&admin).Error; err != nil {
		log.Error().Err(err).Msg("failed to seed admin user")
		return
	}

	log.Warn().Str("username", admin.Username).
		Msg("seeded initial admin user with default password, change it immediately")
}
