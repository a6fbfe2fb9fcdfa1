package inventory

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"grocery-tracker/internal/cache"
	"grocery-tracker/internal/database"
	"grocery-tracker/internal/logger"
	"grocery-tracker/internal/models"
	"grocery-tracker/internal/week"
)

type CreateConsumptionRequest struct {
	ID          string            `json:"id"`
	SourceID    string            `json:"sourceId"`
	SourceType  models.SourceType `json:"sourceType"` // adhoc when empty
	Name        string            `json:"name"`
	Qty         *float64          `json:"qty"`
	Cost        decimal.Decimal   `json:"cost"`
	StartDate   string            `json:"startDate"`
	EstDuration int               `json:"estDuration"`
	EffDuration *int              `json:"effDuration"`
	Completed   bool              `json:"completed"`
}

type UpdateConsumptionRequest struct {
	Name        *string          `json:"name"`
	Qty         *float64         `json:"qty"`
	Cost        *decimal.Decimal `json:"cost"`
	StartDate   *string          `json:"startDate"`
	EstDuration *int             `json:"estDuration"`
	EffDuration *int             `json:"effDuration"`
	Completed   *bool            `json:"completed"`
}

type CompleteConsumptionRequest struct {
	EffDuration *int `json:"effDuration"`
}

// GET /api/consumption?completed=false
func ListConsumptionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).Model(&models.Consumption{})
		switch c.Query("completed") {
		case "true":
			dbq = dbq.Where("completed = ?", true)
		case "false":
			dbq = dbq.Where("completed = ?", false)
		}

		var records []models.Consumption
		if err := dbq.Order("created_at DESC").Find(&records).Error; err != nil {
			logger.L().Error("list consumption", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "could not list consumption")
		}
		return c.JSON(records)
	}
}

// POST /api/consumption
// Ad-hoc consumption (gifts, stock that was already in the house) points at
// itself when no source id is given.
func CreateConsumptionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateConsumptionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		cons := models.Consumption{
			ID:          orDefault(body.ID, models.NewID()),
			SourceID:    strings.TrimSpace(body.SourceID),
			SourceType:  body.SourceType,
			Name:        strings.TrimSpace(body.Name),
			Qty:         1,
			Cost:        body.Cost,
			StartDate:   orDefault(body.StartDate, week.Current(time.Now()).String()),
			EstDuration: body.EstDuration,
			EffDuration: body.EffDuration,
			Completed:   body.Completed,
		}
		if cons.SourceType == "" {
			cons.SourceType = models.SourceAdhoc
		}
		if cons.SourceID == "" && cons.SourceType == models.SourceAdhoc {
			cons.SourceID = cons.ID
		}
		if body.Qty != nil {
			cons.Qty = *body.Qty
		}
		if cons.EstDuration == 0 {
			cons.EstDuration = 1
		}
		if err := cons.Validate(); err != nil {
			return err
		}

		err := database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if cons.SourceType == models.SourceDelivery {
				var d models.Delivery
				if err := tx.First(&d, "id = ?", cons.SourceID).Error; err != nil {
					return fiber.NewError(fiber.StatusBadRequest, "sourceId does not reference a delivery")
				}
				if cons.Name == "" {
					cons.Name = d.Name
				}
			}
			if err := tx.Create(&cons).Error; err != nil {
				return err
			}
			return writeLog(tx, models.EntityConsumption, cons.ID, models.AuditActionCreate, "Consumption added: "+cons.Name, nil, cons, "")
		})
		if err != nil {
			return toHTTPError(err, "consumption")
		}

		cache.Invalidate(c.UserContext())
		return c.Status(fiber.StatusCreated).JSON(cons)
	}
}

// PUT /api/consumption/:id
func UpdateConsumptionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var body UpdateConsumptionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		var cons models.Consumption
		err := database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&cons, "id = ?", id).Error; err != nil {
				return err
			}
			before := cons

			if body.Name != nil {
				cons.Name = strings.TrimSpace(*body.Name)
			}
			if body.Qty != nil {
				cons.Qty = *body.Qty
			}
			if body.Cost != nil {
				cons.Cost = *body.Cost
			}
			if body.StartDate != nil {
				cons.StartDate = *body.StartDate
			}
			if body.EstDuration != nil {
				cons.EstDuration = *body.EstDuration
			}
			if body.Completed != nil {
				cons.Completed = *body.Completed
				if !cons.Completed {
					cons.EffDuration = nil
				}
			}
			if body.EffDuration != nil {
				cons.EffDuration = body.EffDuration
			}
			if err := cons.Validate(); err != nil {
				return err
			}

			if err := tx.Save(&cons).Error; err != nil {
				return err
			}
			return writeLog(tx, models.EntityConsumption, cons.ID, models.AuditActionUpdate, "Consumption updated: "+cons.Name, before, cons, "")
		})
		if err != nil {
			return toHTTPError(err, "consumption")
		}

		cache.Invalidate(c.UserContext())
		return c.JSON(cons)
	}
}

// POST /api/consumption/:id/complete
// Without an effDuration the batch lasted from its start week up to and
// including the current week.
func CompleteConsumptionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var body CompleteConsumptionRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
			}
		}

		var cons models.Consumption
		err := database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&cons, "id = ?", id).Error; err != nil {
				return err
			}
			if cons.Completed {
				return fiber.NewError(fiber.StatusConflict, "consumption is already completed")
			}
			before := cons

			eff := 0
			if body.EffDuration != nil {
				eff = *body.EffDuration
			} else {
				elapsed, err := week.Between(week.ID(cons.StartDate), week.Current(time.Now()))
				if err != nil {
					return err
				}
				eff = max(elapsed+1, 1)
			}

			cons.Completed = true
			cons.EffDuration = &eff
			if err := cons.Validate(); err != nil {
				return err
			}
			if err := tx.Save(&cons).Error; err != nil {
				return err
			}
			return writeLog(tx, models.EntityConsumption, cons.ID, models.AuditActionUpdate, "Consumption completed: "+cons.Name, before, cons, "")
		})
		if err != nil {
			return toHTTPError(err, "consumption")
		}

		cache.Invalidate(c.UserContext())
		return c.JSON(cons)
	}
}

// DELETE /api/consumption/:id
func DeleteConsumptionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		err := database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var cons models.Consumption
			if err := tx.First(&cons, "id = ?", id).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Consumption{}, "id = ?", id).Error; err != nil {
				return err
			}
			return writeLog(tx, models.EntityConsumption, cons.ID, models.AuditActionDelete, "Consumption deleted: "+cons.Name, cons, nil, "")
		})
		if err != nil {
			return toHTTPError(err, "consumption")
		}

		cache.Invalidate(c.UserContext())
		return c.SendStatus(fiber.StatusNoContent)
	}
}
