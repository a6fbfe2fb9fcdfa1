package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"grocery-tracker/internal/config"
	"grocery-tracker/internal/metrics"
	"grocery-tracker/internal/projection"
	"grocery-tracker/internal/week"
)

// GET /api/inventory?date=2025-03-05
func InventoryHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref, err := referenceDate(c)
		if err != nil {
			return err
		}
		current := week.FromDate(ref)

		return cached(c, "inventory:"+current.String(), func() (any, error) {
			p, err := loadProjector(c, projectionOptions(cfg))
			if err != nil {
				return nil, err
			}
			start := time.Now()
			defer metrics.ObserveProjection("inventory", start)
			return p.CurrentInventory(current)
		})
	}
}

// GET /api/product-stats?date=2025-03-05
func ProductStatsHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref, err := referenceDate(c)
		if err != nil {
			return err
		}
		current := week.FromDate(ref)

		return cached(c, "product-stats:"+current.String(), func() (any, error) {
			p, err := loadProjector(c, projectionOptions(cfg))
			if err != nil {
				return nil, err
			}
			start := time.Now()
			defer metrics.ObserveProjection("product_stats", start)
			return p.ProductSummaries(current)
		})
	}
}

// GET /api/history?view=orders|deliveries&q=milk
func HistoryHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view := projection.HistoryView(c.Query("view", string(projection.ViewDeliveries)))
		if view != projection.ViewOrders && view != projection.ViewDeliveries {
			return fiber.NewError(fiber.StatusBadRequest, "view must be orders or deliveries")
		}
		q := strings.TrimSpace(c.Query("q"))

		return cached(c, fmt.Sprintf("history:%s:%s", view, strings.ToLower(q)), func() (any, error) {
			p, err := loadProjector(c, projectionOptions(cfg))
			if err != nil {
				return nil, err
			}
			return p.History(view, q), nil
		})
	}
}

// GET /api/history/weekly
func WeeklyHistoryHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return cached(c, "history-weekly", func() (any, error) {
			p, err := loadProjector(c, projectionOptions(cfg))
			if err != nil {
				return nil, err
			}
			start := time.Now()
			defer metrics.ObserveProjection("weekly_history", start)
			return p.WeeklyHistory(), nil
		})
	}
}
