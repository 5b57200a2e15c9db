// Package web implements the JSON API service.
package web

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/auth"
	"github.com/pharmview/pharmview/internal/config"
	adapterfiber "github.com/pharmview/pharmview/internal/logger/adapter/fiber"
	auditadmin "github.com/pharmview/pharmview/internal/web/handler/admin/audit"
	grantadmin "github.com/pharmview/pharmview/internal/web/handler/admin/grant"
	overrideadmin "github.com/pharmview/pharmview/internal/web/handler/admin/override"
	settingsadmin "github.com/pharmview/pharmview/internal/web/handler/admin/settings"
	useradmin "github.com/pharmview/pharmview/internal/web/handler/admin/user"
	"github.com/pharmview/pharmview/internal/web/handler/association"
	oidchandler "github.com/pharmview/pharmview/internal/web/handler/auth/oidc"
	"github.com/pharmview/pharmview/internal/web/handler/consumption"
	"github.com/pharmview/pharmview/internal/web/handler/dashboard"
	"github.com/pharmview/pharmview/internal/web/handler/facility"
	"github.com/pharmview/pharmview/internal/web/handler/login"
	"github.com/pharmview/pharmview/internal/web/handler/logout"
	"github.com/pharmview/pharmview/internal/web/handler/product"
	"github.com/pharmview/pharmview/internal/web/handler/role"
)

// checkAlivePath is exempt from access logging and flips to 503 during
// graceful shutdown so load balancers drain this instance.
const checkAlivePath = "/checkalive"

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
	authService  *auth.Service
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the web service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, db *gorm.DB) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
		},
	)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	app.Use(adapterfiber.New(adapterfiber.Config{
		Config:        cfg.Log,
		CheckAliveURI: checkAlivePath,
	}))

	authService := auth.NewService(db, auth.NewTokenIssuer(
		cfg.Webserver.TokenSecret,
		time.Duration(cfg.Webserver.TokenTTLHours)*time.Hour,
	))

	service := &Service{
		cfg:         cfg,
		App:         app,
		db:          db,
		authService: authService,
	}

	service.alive.Store(true)

	app.Get(checkAlivePath, func(c *fiber.Ctx) error {
		if !service.alive.Load() {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}

		return c.SendString("OK")
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// init handlers (they register their own routes with capability checks)
	login.Handler.Init(app, cfg, db, authService)
	logout.Handler.Init(app, cfg, db, authService)
	oidchandler.Handler.Init(app, cfg, db, authService)
	role.Handler.Init(app, cfg, db, authService)
	dashboard.Handler.Init(app, cfg, db, authService)
	facility.Handler.Init(app, cfg, db, authService)
	product.Handler.Init(app, cfg, db, authService)
	association.Handler.Init(app, cfg, db, authService)
	consumption.Handler.Init(app, cfg, db, authService)
	useradmin.Handler.Init(app, cfg, db, authService)
	overrideadmin.Handler.Init(app, cfg, db, authService)
	grantadmin.Handler.Init(app, cfg, db, authService)
	auditadmin.Handler.Init(app, cfg, db, authService)
	settingsadmin.Handler.Init(app, cfg, db, authService)

	return service
}

// Addr returns the listen address derived from the configuration.
func (s *Service) Addr() string {
	return fmt.Sprintf(":%d", s.cfg.Webserver.Port)
}
