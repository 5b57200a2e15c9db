// Package dashboard provides the summary endpoint backing the main
// dashboard view: headline counts and the top consumed products.
package dashboard

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/access"
	"github.com/pharmview/pharmview/internal/auth"
	"github.com/pharmview/pharmview/internal/config"
	"github.com/pharmview/pharmview/internal/db/controller/consumption"
	"github.com/pharmview/pharmview/internal/db/controller/setting"
	"github.com/pharmview/pharmview/internal/db/models"
	"github.com/pharmview/pharmview/internal/web/handler"
)

const (
	// Path is the path to the dashboard summary endpoint.
	Path = handler.APIBase + "/dashboard"

	// topProductCount limits the top-consumers list on the dashboard.
	topProductCount = 10

	// lowStockSetting names the stock threshold setting; facility-product
	// pairs whose latest stock is below it appear in the low-stock list.
	lowStockSetting = "low_stock_threshold"

	// defaultLowStockThreshold applies when the setting is absent or
	// unparsable.
	defaultLowStockThreshold = 100
)

// Summary is the dashboard response body.
type Summary struct {
	ActiveFacilities    int64                        `json:"active_facilities"`
	ActiveProducts      int64                        `json:"active_products"`
	PendingAssociations int64                        `json:"pending_associations"`
	RecordsLast90Days   int64                        `json:"records_last_90_days"`
	TopProducts         []consumption.ProductSummary `json:"top_products"`
	LowStock            []consumption.StockStatus    `json:"low_stock"`
}

// Service is the dashboard handler service.
type Service struct {
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the dashboard handler.
var Handler = Service{}

// Init initializes the dashboard handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg

	app.Get(Path,
		auth.RequireCapability(authService, access.CapDashboardView),
		s.Get,
	)
}

// Get returns the dashboard summary. A facility scope narrows the
// consumption figures to that facility.
func (s *Service) Get(c *fiber.Ctx) error {
	var summary Summary

	facilityID := auth.FacilityID(c)

	if err := s.db.Model(&models.Facility{}).Where("active = ?", true).
		Count(&summary.ActiveFacilities).Error; err != nil {
		return s.fail(c, err)
	}

	if err := s.db.Model(&models.Product{}).Where("active = ?", true).
		Count(&summary.ActiveProducts).Error; err != nil {
		return s.fail(c, err)
	}

	if err := s.db.Model(&models.FacilityProduct{}).
		Where("status = ?", models.AssociationPending).
		Count(&summary.PendingAssociations).Error; err != nil {
		return s.fail(c, err)
	}

	filter := consumption.Filter{
		FacilityID: facilityID,
		From:       time.Now().AddDate(0, 0, -90),
	}

	count, err := consumption.CountRecords(s.db, filter)
	if err != nil {
		return s.fail(c, err)
	}

	summary.RecordsLast90Days = count

	top, err := consumption.SummarizeByProduct(s.db, filter)
	if err != nil {
		return s.fail(c, err)
	}

	if len(top) > topProductCount {
		top = top[:topProductCount]
	}

	summary.TopProducts = top

	lowStock, err := consumption.LowStock(s.db, facilityID, s.lowStockThreshold())
	if err != nil {
		return s.fail(c, err)
	}

	summary.LowStock = lowStock

	return c.JSON(summary)
}

// lowStockThreshold reads the configured threshold, falling back to the
// default when the setting is absent or not a number.
func (s *Service) lowStockThreshold() int64 {
	stored, err := setting.Get(s.db, lowStockSetting)
	if err != nil {
		return defaultLowStockThreshold
	}

	threshold, err := strconv.ParseInt(string(stored.Value), 10, 64)
	if err != nil || threshold < 0 {
		log.Warn().Str("value", string(stored.Value)).Msg("ignoring invalid low stock threshold setting")
		return defaultLowStockThreshold
	}

	return threshold
}

func (s *Service) fail(c *fiber.Ctx, err error) error {
	log.Error().Err(err).Msg("failed to build dashboard summary")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}
