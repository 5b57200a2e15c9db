// Package daemon wires the database, session store and web service
// together and runs them.
package daemon

import (
	"fmt"
	"strings"

	"github.com/gofiber/storage"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v2"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/config"
	"github.com/pharmview/pharmview/internal/db/dsn"
	"github.com/pharmview/pharmview/internal/db/models"
	"github.com/pharmview/pharmview/internal/web"
	"github.com/pharmview/pharmview/internal/web/session"
)

// Daemon represents the main application daemon.
type Daemon struct {
	webService *web.Service
}

// Start starts the Daemon's web service and blocks until shutdown.
func (d *Daemon) Start() error {
	go d.webService.WaitShutdown()

	return d.webService.Start(d.webService.Addr())
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
		return nil
	}

	if err = migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
		return nil
	}

	seed(cfg, db)

	session.Init(sessionStorage(cfg))

	return &Daemon{
		webService: web.New(cfg, db),
	}
}

// openDatabase opens the configured engine with the matching gorm driver.
func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	connString := dsn.Create(cfg)

	var dialector gorm.Dialector

	switch {
	case strings.EqualFold(cfg.DB.GormEngine, dsn.EngineMySQL):
		dialector = gormmysql.Open(connString)
	case strings.EqualFold(cfg.DB.GormEngine, dsn.EnginePostgres), cfg.DB.GormEngine == "":
		dialector = gormpostgres.Open(connString)
	default:
		return nil, fmt.Errorf("unsupported database engine %q", cfg.DB.GormEngine)
	}

	return gorm.Open(dialector, &gorm.Config{})
}

// migrate creates or updates the schema for every model.
func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Facility{},
		&models.Product{},
		&models.FacilityProduct{},
		&models.ConsumptionRecord{},
		&models.FacilityRoleOverride{},
		&models.ConditionalPermission{},
		&models.PermissionUsageLog{},
		&models.RoleAuditLog{},
		&models.Setting{},
	)
}

// sessionStorage builds the fiber session storage on the same engine as
// the main database.
func sessionStorage(cfg *config.Config) storage.Storage {
	if strings.EqualFold(cfg.DB.GormEngine, dsn.EngineMySQL) {
		return sessionmysql.New(sessionmysql.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         "sessions",
		})
	}

	return sessionpostgres.New(sessionpostgres.Config{
		ConnectionURI: dsn.Create(cfg),
		Table:         "sessions",
	})
}
