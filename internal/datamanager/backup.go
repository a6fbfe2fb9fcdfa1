package datamanager

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"grocery-tracker/internal/cache"
	"grocery-tracker/internal/database"
	"grocery-tracker/internal/logger"
	"grocery-tracker/internal/models"
	"grocery-tracker/internal/projection"
)

const restoreBatchSize = 200

// legacyImportedOrderID was written as orderId by older list imports; such
// deliveries have no real order.
const legacyImportedOrderID = "IMPORTED"

type RecordCounts struct {
	Products    int64 `json:"products"`
	Orders      int64 `json:"orders"`
	Deliveries  int64 `json:"deliveries"`
	Consumption int64 `json:"consumption"`
	AuditLogs   int64 `json:"auditLogs,omitempty"`
}

// GET /api/full-data[?download=true]
func FullDataHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		recs, err := database.LoadRecords(c.UserContext())
		if err != nil {
			logger.L().Error("load records", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "could not load records")
		}
		if c.QueryBool("download") {
			c.Attachment(fmt.Sprintf("grocery-backup-%s.json", time.Now().Format("2006-01-02")))
		}
		return c.JSON(recs)
	}
}

// normalizeBackup fills the defaults older backups leave out. Week ids are
// not checked: malformed records are kept and reported by the dashboard.
func normalizeBackup(recs *projection.Records) error {
	for i := range recs.Products {
		if recs.Products[i].ID == "" {
			return fmt.Errorf("product #%d has no id", i+1)
		}
	}
	for i := range recs.Orders {
		o := &recs.Orders[i]
		if o.ID == "" {
			return fmt.Errorf("order #%d has no id", i+1)
		}
		if o.EstDuration == 0 {
			o.EstDuration = 1
		}
	}
	for i := range recs.Deliveries {
		d := &recs.Deliveries[i]
		if d.ID == "" {
			return fmt.Errorf("delivery #%d has no id", i+1)
		}
		if d.OrderID != nil && (strings.TrimSpace(*d.OrderID) == "" || *d.OrderID == legacyImportedOrderID) {
			d.OrderID = nil
		}
		if d.EstDuration == 0 {
			d.EstDuration = 1
		}
	}
	for i := range recs.Consumption {
		c := &recs.Consumption[i]
		if c.ID == "" {
			return fmt.Errorf("consumption #%d has no id", i+1)
		}
		if c.SourceType == "" {
			c.SourceType = models.SourceDelivery
		}
		if c.EstDuration == 0 {
			c.EstDuration = 1
		}
		if !c.Completed {
			c.EffDuration = nil
		}
	}
	return nil
}

func upsert(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.OnConflict{UpdateAll: true})
}

// Restore merges a backup into the database: records are matched by id,
// existing ones are overwritten and missing ones created. Records absent
// from the backup are left alone.
func Restore(ctx context.Context, recs projection.Records) (RecordCounts, error) {
	var counts RecordCounts
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(recs.Products) > 0 {
			if err := upsert(tx).CreateInBatches(&recs.Products, restoreBatchSize).Error; err != nil {
				return fmt.Errorf("restore products: %w", err)
			}
			counts.Products = int64(len(recs.Products))
		}
		if len(recs.Orders) > 0 {
			if err := upsert(tx).CreateInBatches(&recs.Orders, restoreBatchSize).Error; err != nil {
				return fmt.Errorf("restore orders: %w", err)
			}
			counts.Orders = int64(len(recs.Orders))
		}
		if len(recs.Deliveries) > 0 {
			if err := upsert(tx).CreateInBatches(&recs.Deliveries, restoreBatchSize).Error; err != nil {
				return fmt.Errorf("restore deliveries: %w", err)
			}
			counts.Deliveries = int64(len(recs.Deliveries))
		}
		if len(recs.Consumption) > 0 {
			if err := upsert(tx).CreateInBatches(&recs.Consumption, restoreBatchSize).Error; err != nil {
				return fmt.Errorf("restore consumption: %w", err)
			}
			counts.Consumption = int64(len(recs.Consumption))
		}
		return nil
	})
	return counts, err
}

// POST /api/restore
func RestoreHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body projection.Records
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid backup: "+err.Error())
		}
		if err := normalizeBackup(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctx := c.UserContext()
		counts, err := Restore(ctx, body)
		if err != nil {
			logger.L().Error("restore failed", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "restore failed, nothing was changed")
		}
		cache.Invalidate(ctx)

		logger.L().Info("backup restored",
			zap.Int64("products", counts.Products),
			zap.Int64("orders", counts.Orders),
			zap.Int64("deliveries", counts.Deliveries),
			zap.Int64("consumption", counts.Consumption))
		return c.JSON(fiber.Map{
			"success": true,
			"message": "data merged",
			"counts":  counts,
		})
	}
}

// Clear deletes every record and the audit history that refers to them,
// dependents first.
func Clear(ctx context.Context) (RecordCounts, error) {
	var counts RecordCounts
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps := []struct {
			model any
			n     *int64
		}{
			{&models.Consumption{}, &counts.Consumption},
			{&models.Delivery{}, &counts.Deliveries},
			{&models.Order{}, &counts.Orders},
			{&models.Product{}, &counts.Products},
			{&models.AuditLog{}, &counts.AuditLogs},
		}
		for _, s := range steps {
			r := tx.Where("1 = 1").Delete(s.model)
			if r.Error != nil {
				return r.Error
			}
			*s.n = r.RowsAffected
		}
		return nil
	})
	return counts, err
}

// DELETE /api/clear
func ClearHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		counts, err := Clear(ctx)
		if err != nil {
			logger.L().Error("clear failed", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "could not clear data")
		}
		cache.Invalidate(ctx)

		logger.L().Warn("all data cleared",
			zap.Int64("products", counts.Products),
			zap.Int64("orders", counts.Orders),
			zap.Int64("deliveries", counts.Deliveries),
			zap.Int64("consumption", counts.Consumption))
		return c.JSON(fiber.Map{
			"success": true,
			"message": "all data cleared",
			"counts":  counts,
		})
	}
}
