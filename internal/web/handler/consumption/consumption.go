// Package consumption provides handlers for recording, listing,
// aggregating and exporting consumption data.
package consumption

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pharmview/pharmview/internal/access"
	"github.com/pharmview/pharmview/internal/auth"
	"github.com/pharmview/pharmview/internal/config"
	consumptionctl "github.com/pharmview/pharmview/internal/db/controller/consumption"
	"github.com/pharmview/pharmview/internal/db/models"
	"github.com/pharmview/pharmview/internal/web/handler"
)

const (
	// Path is the base path for consumption data.
	Path = handler.APIBase + "/consumption"

	// periodLayout is the date format accepted in period fields and
	// range query parameters.
	periodLayout = "2006-01-02"
)

// RecordRequest is the body for reporting one consumption figure.
type RecordRequest struct {
	FacilityID  uint64 `json:"facility_id" validate:"required"`
	ProductID   uint64 `json:"product_id" validate:"required"`
	PeriodStart string `json:"period_start" validate:"required"`
	Quantity    int64  `json:"quantity" validate:"gte=0"`
	StockOnHand int64  `json:"stock_on_hand" validate:"gte=0"`
}

// Service provides consumption reporting and analytics handlers.
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

	app.Post(Path,
		auth.RequireCapability(authService, access.CapConsumptionRecord),
		s.Record,
	)
	app.Get(Path,
		auth.RequireCapability(authService, access.CapAnalyticsView),
		s.List,
	)
	app.Get(Path+"/summary",
		auth.RequireCapability(authService, access.CapAnalyticsView),
		s.Summary,
	)
	app.Get(Path+"/export",
		auth.RequireCapability(authService, access.CapAnalyticsExport),
		s.Export,
	)
}

// Record stores one consumption figure for an approved facility-product pair.
func (s *Service) Record(c *fiber.Ctx) error {
	req := new(RecordRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	periodStart, err := time.Parse(periodLayout, req.PeriodStart)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid period_start, want YYYY-MM-DD"})
	}

	record, err := consumptionctl.Create(s.db, &models.ConsumptionRecord{
		FacilityID:  req.FacilityID,
		ProductID:   req.ProductID,
		PeriodStart: periodStart,
		Quantity:    req.Quantity,
		StockOnHand: req.StockOnHand,
		RecordedBy:  auth.UserID(c),
	})

	switch {
	case errors.Is(err, consumptionctl.ErrAssociationNotApproved):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, consumptionctl.ErrQuantityNegative):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Error().Err(err).Msg("failed to record consumption")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Uint64("record_id", record.ID).Uint64("facility_id", req.FacilityID).
		Uint64("product_id", req.ProductID).Uint64("user_id", auth.UserID(c)).
		Msg("consumption recorded")

	return c.Status(fiber.StatusCreated).JSON(record)
}

// List returns consumption records matching the query filter.
func (s *Service) List(c *fiber.Ctx) error {
	filter, err := s.filterFromQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	records, err := consumptionctl.List(s.db, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to list consumption records")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(records)
}

// Summary returns per-product aggregates over the query filter.
func (s *Service) Summary(c *fiber.Ctx) error {
	filter, err := s.filterFromQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	rows, err := consumptionctl.SummarizeByProduct(s.db, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to summarize consumption")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(rows)
}

// Export streams the filtered records as CSV.
func (s *Service) Export(c *fiber.Ctx) error {
	filter, err := s.filterFromQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	records, err := consumptionctl.List(s.db, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to export consumption records")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	out, err := renderCSV(records)
	if err != nil {
		log.Error().Err(err).Msg("failed to render consumption export")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Int("records", len(records)).Uint64("user_id", auth.UserID(c)).
		Msg("consumption data exported")

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="consumption.csv"`)

	return c.Send(out)
}

// filterFromQuery builds the record filter from query parameters. The
// facility scope of the request always applies; a scoped user cannot
// export another facility's data by editing the query string.
func (s *Service) filterFromQuery(c *fiber.Ctx) (consumptionctl.Filter, error) {
	filter := consumptionctl.Filter{
		FacilityID: auth.FacilityID(c),
	}

	if raw := c.Query("product_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return filter, errors.New("invalid product_id")
		}

		filter.ProductID = id
	}

	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(periodLayout, raw)
		if err != nil {
			return filter, errors.New("invalid from date, want YYYY-MM-DD")
		}

		filter.From = from
	}

	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(periodLayout, raw)
		if err != nil {
			return filter, errors.New("invalid to date, want YYYY-MM-DD")
		}

		filter.To = to
	}

	return filter, nil
}

// renderCSV writes the export rows with a fixed header.
func renderCSV(records []models.ConsumptionRecord) ([]byte, error) {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)

	header := []string{
		"facility_code", "facility_name", "product_code", "product_name",
		"period_start", "quantity", "stock_on_hand",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for i := range records {
		r := &records[i]

		row := []string{
			r.Facility.Code,
			r.Facility.Name,
			r.Product.Code,
			r.Product.Name,
			r.PeriodStart.Format(periodLayout),
			strconv.FormatInt(r.Quantity, 10),
			strconv.FormatInt(r.StockOnHand, 10),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()

	return buf.Bytes(), w.Error()
}
