package dashboard

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"grocery-tracker/internal/config"
	"grocery-tracker/internal/metrics"
	"grocery-tracker/internal/projection"
	"grocery-tracker/internal/week"
)

// Upper bound for ?horizon, about two years.
const maxHorizon = 104

type TimelineResponse struct {
	CurrentWeek week.ID                    `json:"currentWeek"`
	Horizon     int                        `json:"horizon"`
	Weeks       []projection.TimelineEntry `json:"weeks"`
	Issues      []projection.Issue         `json:"issues"`
}

type WeekResponse struct {
	projection.WeekStats
	MondayOf  string `json:"mondayOf"`
	DeliverOn string `json:"deliverOn"` // Tuesday of the week
}

// GET /api/dashboard/timeline?date=2025-03-05&horizon=4
func TimelineHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref, err := referenceDate(c)
		if err != nil {
			return err
		}
		horizon := c.QueryInt("horizon", cfg.HorizonWeeks)
		if horizon < 0 || horizon > maxHorizon {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("horizon must be between 0 and %d", maxHorizon))
		}

		opts := projectionOptions(cfg)
		current := week.FromDate(ref)
		key := fmt.Sprintf("timeline:%s:%d:%t", current, horizon, opts.IncludePendingOrders)
		return cached(c, key, func() (any, error) {
			p, err := loadProjector(c, opts)
			if err != nil {
				return nil, err
			}

			start := time.Now()
			weeks, err := p.BuildTimeline(ref, horizon)
			metrics.ObserveProjection("timeline", start)
			if err != nil {
				return nil, err
			}

			return TimelineResponse{
				CurrentWeek: current,
				Horizon:     horizon,
				Weeks:       weeks,
				Issues:      p.Issues(),
			}, nil
		})
	}
}

// GET /api/dashboard/weeks/:weekId
func WeekHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := week.Parse(c.Params("weekId"))
		if err != nil {
			return err
		}

		opts := projectionOptions(cfg)
		key := fmt.Sprintf("week:%s:%t", id, opts.IncludePendingOrders)
		return cached(c, key, func() (any, error) {
			p, err := loadProjector(c, opts)
			if err != nil {
				return nil, err
			}

			start := time.Now()
			stats, err := p.ComputeWeek(id)
			if err != nil {
				return nil, err
			}
			prevID, err := week.Offset(id, -1)
			if err != nil {
				return nil, err
			}
			prev, err := p.ComputeWeek(prevID)
			if err != nil {
				return nil, err
			}
			metrics.ObserveProjection("week", start)
			stats.InventoryAtStart = prev.InventoryAtEnd

			monday, _ := week.MondayOf(id)
			tuesday, _ := week.Tuesday(id)
			return WeekResponse{
				WeekStats: stats,
				MondayOf:  monday.Format("2006-01-02"),
				DeliverOn: tuesday.Format("2006-01-02"),
			}, nil
		})
	}
}
