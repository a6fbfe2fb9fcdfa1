package dashboard

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"grocery-tracker/internal/cache"
	"grocery-tracker/internal/config"
	"grocery-tracker/internal/database"
	"grocery-tracker/internal/logger"
	"grocery-tracker/internal/metrics"
	"grocery-tracker/internal/projection"
)

func projectionOptions(cfg *config.Config) projection.Options {
	return projection.Options{IncludePendingOrders: cfg.ProjectPendingOrders}
}

// loadProjector builds a projector over a fresh snapshot of the database.
func loadProjector(c *fiber.Ctx, opts projection.Options) (*projection.Projector, error) {
	recs, err := database.LoadRecords(c.UserContext())
	if err != nil {
		logger.L().Error("load records", zap.Error(err))
		return nil, fiber.NewError(fiber.StatusInternalServerError, "could not load records")
	}
	p := projection.New(recs, opts)
	metrics.SetSkippedRecords(len(p.Issues()))
	return p, nil
}

// referenceDate reads ?date=YYYY-MM-DD, defaulting to today.
func referenceDate(c *fiber.Ctx) (time.Time, error) {
	raw := c.Query("date")
	if raw == "" {
		return time.Now(), nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
	}
	return t, nil
}

// cached answers from the dashboard cache when possible and stores the
// computed payload otherwise. Cache failures only cost a recomputation.
func cached(c *fiber.Ctx, name string, compute func() (any, error)) error {
	ctx := c.UserContext()

	var raw json.RawMessage
	found, err := cache.GetObject(ctx, name, &raw)
	if err != nil {
		logger.L().Warn("cache read failed", zap.String("key", name), zap.Error(err))
	}
	if found {
		metrics.CacheHit()
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(raw)
	}
	if cache.Enabled() {
		metrics.CacheMiss()
	}

	v, err := compute()
	if err != nil {
		return err
	}
	if err := cache.SetObject(ctx, name, v); err != nil {
		logger.L().Warn("cache write failed", zap.String("key", name), zap.Error(err))
	}
	return c.JSON(v)
}
