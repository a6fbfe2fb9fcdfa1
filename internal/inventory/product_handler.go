package inventory

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"grocery-tracker/internal/cache"
	"grocery-tracker/internal/database"
	"grocery-tracker/internal/logger"
	"grocery-tracker/internal/models"
)

type CreateProductRequest struct {
	ID   string `json:"id"` // optional, generated when empty
	Name string `json:"name"`
}

type UpdateProductRequest struct {
	Name *string `json:"name"`
}

// GET /api/products
func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var products []models.Product
		if err := database.DB.WithContext(c.UserContext()).Order("name asc").Find(&products).Error; err != nil {
			logger.L().Error("list products", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "could not list products")
		}
		return c.JSON(products)
	}
}

// POST /api/products
func CreateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}

		p := models.Product{ID: orDefault(body.ID, models.NewID()), Name: body.Name}
		err := database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var existing int64
			if err := tx.Model(&models.Product{}).Where("id = ?", p.ID).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				return fiber.NewError(fiber.StatusConflict, "a product with this id already exists")
			}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			return writeLog(tx, models.EntityProduct, p.ID, models.AuditActionCreate, "Product created: "+p.Name, nil, p, "")
		})
		if err != nil {
			return toHTTPError(err, "product")
		}

		cache.Invalidate(c.UserContext())
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// PUT /api/products/:id
func UpdateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		var p models.Product
		err := database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&p, "id = ?", id).Error; err != nil {
				return err
			}
			before := p

			if body.Name != nil {
				name := strings.TrimSpace(*body.Name)
				if name == "" {
					return fiber.NewError(fiber.StatusBadRequest, "name cannot be empty")
				}
				p.Name = name
			}

			if err := tx.Save(&p).Error; err != nil {
				return err
			}
			return writeLog(tx, models.EntityProduct, p.ID, models.AuditActionUpdate, "Product updated: "+p.Name, before, p, "")
		})
		if err != nil {
			return toHTTPError(err, "product")
		}

		cache.Invalidate(c.UserContext())
		return c.JSON(p)
	}
}

// DELETE /api/products/:id
// Products still referenced by an order or delivery are kept.
func DeleteProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		err := database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var p models.Product
			if err := tx.First(&p, "id = ?", id).Error; err != nil {
				return err
			}

			var refs int64
			if err := tx.Model(&models.Order{}).Where("product_id = ?", id).Count(&refs).Error; err != nil {
				return err
			}
			var deliveries int64
			if err := tx.Model(&models.Delivery{}).Where("product_id = ?", id).Count(&deliveries).Error; err != nil {
				return err
			}
			if refs+deliveries > 0 {
				return fiber.NewError(fiber.StatusConflict, "product is still used by orders or deliveries")
			}

			if err := tx.Delete(&models.Product{}, "id = ?", id).Error; err != nil {
				return err
			}
			return writeLog(tx, models.EntityProduct, p.ID, models.AuditActionDelete, "Product deleted: "+p.Name, p, nil, "")
		})
		if err != nil {
			return toHTTPError(err, "product")
		}

		cache.Invalidate(c.UserContext())
		return c.SendStatus(fiber.StatusNoContent)
	}
}
