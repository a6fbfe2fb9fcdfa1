// Package inventory holds the CRUD handlers for products, orders, deliveries
// and consumption, and the depletion sweep. Every write runs in one
// transaction together with its audit log entries and invalidates the
// dashboard cache after commit.
package inventory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"grocery-tracker/internal/audit"
	"grocery-tracker/internal/logger"
	"grocery-tracker/internal/models"
)

// toHTTPError turns an error from a write transaction into a fiber error.
func toHTTPError(err error, what string) error {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe
	case errors.Is(err, models.ErrInvalidRecord):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.NewError(fiber.StatusNotFound, what+" not found")
	default:
		logger.L().Error("write failed", zap.String("entity", what), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "could not save "+what)
	}
}

// findOrCreateProduct resolves a product by id, then by exact name, and
// creates it when neither exists.
func findOrCreateProduct(tx *gorm.DB, id, name, groupID string) (models.Product, error) {
	var p models.Product
	if id != "" {
		err := tx.First(&p, "id = ?", id).Error
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return p, err
		}
	}
	if name != "" {
		err := tx.Where("name = ?", name).Order("created_at").First(&p).Error
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return p, err
		}
	}
	if name == "" {
		return p, fmt.Errorf("%w: a product id or name is required", models.ErrInvalidRecord)
	}

	p = models.Product{ID: id, Name: name}
	if p.ID == "" {
		p.ID = models.NewID()
	}
	if err := tx.Create(&p).Error; err != nil {
		return p, err
	}
	err := writeLog(tx, models.EntityProduct, p.ID, models.AuditActionCreate, "Product created: "+p.Name, nil, p, groupID)
	return p, err
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}

func writeLog(tx *gorm.DB, entityType, entityID string, action models.AuditAction, description string, before, after any, groupID string) error {
	return audit.WriteLog(audit.LogOptions{
		Tx:          tx,
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      action,
		Description: description,
		Before:      before,
		After:       after,
		GroupID:     groupID,
	})
}
