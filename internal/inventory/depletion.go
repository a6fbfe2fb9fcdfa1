package inventory

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"grocery-tracker/internal/cache"
	"grocery-tracker/internal/database"
	"grocery-tracker/internal/logger"
	"grocery-tracker/internal/metrics"
	"grocery-tracker/internal/models"
	"grocery-tracker/internal/projection"
	"grocery-tracker/internal/week"
)

// AutoCompleteDepleted closes every open consumption record whose estimated
// window ended before the week of now, setting effDuration = estDuration.
// It returns the ids it completed.
func AutoCompleteDepleted(ctx context.Context, now time.Time) ([]string, error) {
	recs, err := database.LoadRecords(ctx)
	if err != nil {
		return nil, err
	}
	current := week.Current(now)
	due, err := projection.New(recs, projection.Options{}).DueForCompletion(current)
	if err != nil {
		return nil, err
	}
	if len(due) == 0 {
		return []string{}, nil
	}

	ids := make([]string, 0, len(due))
	groupID := models.NewID()
	err = database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, cons := range due {
			before := cons
			eff := cons.EstDuration
			cons.Completed = true
			cons.EffDuration = &eff

			res := tx.Model(&models.Consumption{}).
				Where("id = ? AND completed = ?", cons.ID, false).
				Updates(map[string]interface{}{"completed": true, "eff_duration": eff})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			if err := writeLog(tx, models.EntityConsumption, cons.ID, models.AuditActionUpdate,
				"Consumption auto-completed after "+current.String(), before, cons, groupID); err != nil {
				return err
			}
			ids = append(ids, cons.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.AddAutoCompleted(len(ids))
	if len(ids) > 0 {
		cache.Invalidate(ctx)
		logger.L().Info("auto-completed depleted consumption", zap.Int("count", len(ids)), zap.String("week", current.String()))
	}
	return ids, nil
}

// POST /api/maintenance/auto-complete
func AutoCompleteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ids, err := AutoCompleteDepleted(c.UserContext(), time.Now())
		if err != nil {
			logger.L().Error("auto-complete failed", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "could not complete depleted consumption")
		}
		return c.JSON(fiber.Map{
			"completed": len(ids),
			"ids":       ids,
		})
	}
}
