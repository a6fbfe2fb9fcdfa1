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

type CreateOrderRequest struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Qty         float64         `json:"qty"`
	WeekID      string          `json:"weekId"` // current week when empty
	EstDuration int             `json:"estDuration"`
}

type UpdateOrderRequest struct {
	ProductID   *string          `json:"productId"`
	Name        *string          `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	Qty         *float64         `json:"qty"`
	WeekID      *string          `json:"weekId"`
	EstDuration *int             `json:"estDuration"`
}

type BulkOrderItem struct {
	ProductID   string          `json:"productId"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Qty         float64         `json:"qty"`
	EstDuration int             `json:"estDuration"`
}

type BulkOrderRequest struct {
	WeekID string          `json:"weekId"`
	Orders []BulkOrderItem `json:"orders"`
}

// CreateOrder stores one order, creating its product when the id and the
// name are both unknown. Defaults: current week, one week estimate.
func CreateOrder(tx *gorm.DB, req CreateOrderRequest, groupID string, now time.Time) (models.Order, error) {
	name := strings.TrimSpace(req.Name)
	p, err := findOrCreateProduct(tx, req.ProductID, name, groupID)
	if err != nil {
		return models.Order{}, err
	}
	if name == "" {
		name = p.Name
	}

	o := models.Order{
		ID:          orDefault(req.ID, models.NewID()),
		ProductID:   p.ID,
		Name:        name,
		Price:       req.Price.Round(2),
		Qty:         req.Qty,
		WeekID:      orDefault(req.WeekID, week.Current(now).String()),
		EstDuration: req.EstDuration,
	}
	if o.EstDuration == 0 {
		o.EstDuration = 1
	}
	if err := o.Validate(); err != nil {
		return o, err
	}

	if err := tx.Create(&o).Error; err != nil {
		return o, err
	}
	return o, writeLog(tx, models.EntityOrder, o.ID, models.AuditActionCreate, "Order created: "+o.Name+" ("+o.WeekID+")", nil, o, groupID)
}

// GET /api/orders?weekId=2025-W10&pending=true
func ListOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).Model(&models.Order{})

		if weekID := c.Query("weekId"); weekID != "" {
			if _, err := week.Parse(weekID); err != nil {
				return err
			}
			dbq = dbq.Where("week_id = ?", weekID)
		}
		if c.QueryBool("pending", false) {
			dbq = dbq.Where("id NOT IN (?)", database.DB.Model(&models.Delivery{}).Select("order_id").Where("order_id IS NOT NULL"))
		}

		var orders []models.Order
		if err := dbq.Order("created_at DESC").Find(&orders).Error; err != nil {
			logger.L().Error("list orders", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "could not list orders")
		}
		return c.JSON(orders)
	}
}

// POST /api/orders
func CreateOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		var o models.Order
		groupID := models.NewID()
		err := database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var err error
			o, err = CreateOrder(tx, body, groupID, time.Now())
			return err
		})
		if err != nil {
			return toHTTPError(err, "order")
		}

		cache.Invalidate(c.UserContext())
		return c.Status(fiber.StatusCreated).JSON(o)
	}
}

// POST /api/orders/bulk
// All orders share the week id; the whole batch is stored or none of it.
func BulkCreateOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BulkOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if len(body.Orders) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "orders must not be empty")
		}

		created := make([]models.Order, 0, len(body.Orders))
		groupID := models.NewID()
		now := time.Now()
		err := database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			for _, item := range body.Orders {
				qty := item.Qty
				if qty == 0 {
					qty = 1
				}
				o, err := CreateOrder(tx, CreateOrderRequest{
					ProductID:   item.ProductID,
					Name:        item.Name,
					Price:       item.Price,
					Qty:         qty,
					WeekID:      body.WeekID,
					EstDuration: item.EstDuration,
				}, groupID, now)
				if err != nil {
					return err
				}
				created = append(created, o)
			}
			return nil
		})
		if err != nil {
			return toHTTPError(err, "order")
		}

		cache.Invalidate(c.UserContext())
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"count":   len(created),
			"orders":  created,
		})
	}
}

// PUT /api/orders/:id
func UpdateOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var body UpdateOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		var o models.Order
		err := database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&o, "id = ?", id).Error; err != nil {
				return err
			}
			before := o

			if body.ProductID != nil {
				var p models.Product
				if err := tx.First(&p, "id = ?", *body.ProductID).Error; err != nil {
					return fiber.NewError(fiber.StatusBadRequest, "unknown productId")
				}
				o.ProductID = p.ID
			}
			if body.Name != nil {
				o.Name = strings.TrimSpace(*body.Name)
			}
			if body.Price != nil {
				o.Price = body.Price.Round(2)
			}
			if body.Qty != nil {
				o.Qty = *body.Qty
			}
			if body.WeekID != nil {
				o.WeekID = *body.WeekID
			}
			if body.EstDuration != nil {
				o.EstDuration = *body.EstDuration
			}
			if err := o.Validate(); err != nil {
				return err
			}

			if err := tx.Save(&o).Error; err != nil {
				return err
			}
			return writeLog(tx, models.EntityOrder, o.ID, models.AuditActionUpdate, "Order updated: "+o.Name, before, o, "")
		})
		if err != nil {
			return toHTTPError(err, "order")
		}

		cache.Invalidate(c.UserContext())
		return c.JSON(o)
	}
}

// DELETE /api/orders/:id
// A delivery made for the order keeps its orderId and stays delivered.
func DeleteOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		err := database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var o models.Order
			if err := tx.First(&o, "id = ?", id).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Order{}, "id = ?", id).Error; err != nil {
				return err
			}
			return writeLog(tx, models.EntityOrder, o.ID, models.AuditActionDelete, "Order deleted: "+o.Name, o, nil, "")
		})
		if err != nil {
			return toHTTPError(err, "order")
		}

		cache.Invalidate(c.UserContext())
		return c.SendStatus(fiber.StatusNoContent)
	}
}
