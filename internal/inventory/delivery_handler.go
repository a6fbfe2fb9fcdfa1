package inventory

import (
	"errors"
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

// CreateDeliveryRequest: with an orderId every omitted field is taken from
// the order; without one the delivery is ad-hoc and needs a product id or
// name.
type CreateDeliveryRequest struct {
	ID          string           `json:"id"`
	OrderID     *string          `json:"orderId"`
	ProductID   string           `json:"productId"`
	Name        string           `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	Qty         *float64         `json:"qty"`
	WeekID      string           `json:"weekId"`
	EstDuration *int             `json:"estDuration"`
	Variant     string           `json:"variant"`
}

type UpdateDeliveryRequest struct {
	Name        *string          `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	Qty         *float64         `json:"qty"`
	WeekID      *string          `json:"weekId"`
	EstDuration *int             `json:"estDuration"`
	Variant     *string          `json:"variant"`
}

// DeliveryResponse is a delivery with the consumption record it spawned.
type DeliveryResponse struct {
	models.Delivery
	Consumption *models.Consumption `json:"consumption,omitempty"`
}

// CreateDelivery stores a delivery and the open consumption record that
// tracks its depletion.
func CreateDelivery(tx *gorm.DB, req CreateDeliveryRequest, groupID string, now time.Time) (models.Delivery, models.Consumption, error) {
	d := models.Delivery{
		ID:      orDefault(req.ID, models.NewID()),
		Name:    strings.TrimSpace(req.Name),
		WeekID:  strings.TrimSpace(req.WeekID),
		Variant: strings.TrimSpace(req.Variant),
		Price:   decimal.Zero,
		Qty:     1,
	}

	if req.OrderID != nil && *req.OrderID != "" {
		var o models.Order
		if err := tx.First(&o, "id = ?", *req.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return d, models.Consumption{}, fiber.NewError(fiber.StatusNotFound, "order not found")
			}
			return d, models.Consumption{}, err
		}
		var delivered int64
		if err := tx.Model(&models.Delivery{}).Where("order_id = ?", o.ID).Count(&delivered).Error; err != nil {
			return d, models.Consumption{}, err
		}
		if delivered > 0 {
			return d, models.Consumption{}, fiber.NewError(fiber.StatusConflict, "this order has already been delivered")
		}

		orderID := o.ID
		d.OrderID = &orderID
		d.ProductID = o.ProductID
		d.Name = orDefault(d.Name, o.Name)
		d.Price = o.Price
		d.Qty = o.Qty
		d.WeekID = orDefault(d.WeekID, o.WeekID)
		d.EstDuration = o.EstDuration
	} else {
		p, err := findOrCreateProduct(tx, req.ProductID, d.Name, groupID)
		if err != nil {
			return d, models.Consumption{}, err
		}
		d.ProductID = p.ID
		d.Name = orDefault(d.Name, p.Name)
		d.WeekID = orDefault(d.WeekID, week.Current(now).String())
		d.EstDuration = 1
	}

	if req.Price != nil {
		d.Price = req.Price.Round(2)
	}
	if req.Qty != nil {
		d.Qty = *req.Qty
	}
	if req.EstDuration != nil {
		d.EstDuration = *req.EstDuration
	}
	if err := d.Validate(); err != nil {
		return d, models.Consumption{}, err
	}

	if err := tx.Create(&d).Error; err != nil {
		return d, models.Consumption{}, err
	}
	if err := writeLog(tx, models.EntityDelivery, d.ID, models.AuditActionCreate, "Delivery received: "+d.Name+" ("+d.WeekID+")", nil, d, groupID); err != nil {
		return d, models.Consumption{}, err
	}

	c := models.Consumption{
		ID:          models.NewID(),
		SourceID:    d.ID,
		SourceType:  models.SourceDelivery,
		Name:        d.Name,
		Qty:         d.Qty,
		Cost:        d.Total(),
		StartDate:   d.WeekID,
		EstDuration: d.EstDuration,
	}
	if err := tx.Create(&c).Error; err != nil {
		return d, c, err
	}
	return d, c, writeLog(tx, models.EntityConsumption, c.ID, models.AuditActionCreate, "Consumption started: "+c.Name, nil, c, groupID)
}

// GET /api/deliveries?weekId=2025-W10
func ListDeliveriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).Model(&models.Delivery{})

		if weekID := c.Query("weekId"); weekID != "" {
			if _, err := week.Parse(weekID); err != nil {
				return err
			}
			dbq = dbq.Where("week_id = ?", weekID)
		}

		var deliveries []models.Delivery
		if err := dbq.Order("created_at DESC").Find(&deliveries).Error; err != nil {
			logger.L().Error("list deliveries", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "could not list deliveries")
		}
		return c.JSON(deliveries)
	}
}

// POST /api/deliveries
func CreateDeliveryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateDeliveryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		var resp DeliveryResponse
		groupID := models.NewID()
		err := database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			d, cons, err := CreateDelivery(tx, body, groupID, time.Now())
			resp = DeliveryResponse{Delivery: d, Consumption: &cons}
			return err
		})
		if err != nil {
			return toHTTPError(err, "delivery")
		}

		cache.Invalidate(c.UserContext())
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// PUT /api/deliveries/:id
// Changes to name, price, qty or estDuration are copied to the linked
// consumption; its cost is recomputed as price × qty.
func UpdateDeliveryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var body UpdateDeliveryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		var resp DeliveryResponse
		groupID := models.NewID()
		err := database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var d models.Delivery
			if err := tx.First(&d, "id = ?", id).Error; err != nil {
				return err
			}
			before := d

			if body.Name != nil {
				d.Name = strings.TrimSpace(*body.Name)
			}
			if body.Price != nil {
				d.Price = body.Price.Round(2)
			}
			if body.Qty != nil {
				d.Qty = *body.Qty
			}
			if body.WeekID != nil {
				d.WeekID = *body.WeekID
			}
			if body.EstDuration != nil {
				d.EstDuration = *body.EstDuration
			}
			if body.Variant != nil {
				d.Variant = strings.TrimSpace(*body.Variant)
			}
			if err := d.Validate(); err != nil {
				return err
			}

			if err := tx.Save(&d).Error; err != nil {
				return err
			}
			if err := writeLog(tx, models.EntityDelivery, d.ID, models.AuditActionUpdate, "Delivery updated: "+d.Name, before, d, groupID); err != nil {
				return err
			}
			resp.Delivery = d

			if body.Name == nil && body.Price == nil && body.Qty == nil && body.WeekID == nil && body.EstDuration == nil {
				return nil
			}

			var cons models.Consumption
			err := tx.Where("source_id = ? AND source_type = ?", d.ID, models.SourceDelivery).Order("created_at").First(&cons).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			consBefore := cons

			cons.Name = d.Name
			cons.Qty = d.Qty
			cons.Cost = d.Total()
			cons.EstDuration = d.EstDuration
			cons.StartDate = d.WeekID
			if err := cons.Validate(); err != nil {
				return err
			}
			if err := tx.Save(&cons).Error; err != nil {
				return err
			}
			resp.Consumption = &cons
			return writeLog(tx, models.EntityConsumption, cons.ID, models.AuditActionUpdate, "Consumption synced with delivery: "+cons.Name, consBefore, cons, groupID)
		})
		if err != nil {
			return toHTTPError(err, "delivery")
		}

		cache.Invalidate(c.UserContext())
		return c.JSON(resp)
	}
}

// DELETE /api/deliveries/:id
// Consumption spawned by the delivery goes with it.
func DeleteDeliveryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		groupID := models.NewID()
		err := database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var d models.Delivery
			if err := tx.First(&d, "id = ?", id).Error; err != nil {
				return err
			}

			var linked []models.Consumption
			if err := tx.Where("source_id = ?", d.ID).Find(&linked).Error; err != nil {
				return err
			}
			for _, cons := range linked {
				if err := tx.Delete(&models.Consumption{}, "id = ?", cons.ID).Error; err != nil {
					return err
				}
				if err := writeLog(tx, models.EntityConsumption, cons.ID, models.AuditActionDelete, "Consumption removed with delivery: "+cons.Name, cons, nil, groupID); err != nil {
					return err
				}
			}

			if err := tx.Delete(&models.Delivery{}, "id = ?", d.ID).Error; err != nil {
				return err
			}
			return writeLog(tx, models.EntityDelivery, d.ID, models.AuditActionDelete, "Delivery deleted: "+d.Name, d, nil, groupID)
		})
		if err != nil {
			return toHTTPError(err, "delivery")
		}

		cache.Invalidate(c.UserContext())
		return c.SendStatus(fiber.StatusNoContent)
	}
}
