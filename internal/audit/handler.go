package audit

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"grocery-tracker/internal/cache"
	"grocery-tracker/internal/database"
	"grocery-tracker/internal/logger"
	"grocery-tracker/internal/models"
)

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	EntityType  string             `json:"entity_type"`
	EntityID    string             `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	GroupID     string             `json:"group_id"`
	IsUndone    bool               `json:"is_undone"`
	UndoneAt    *string            `json:"undone_at"`
}

// GET /api/audit-logs?entity_type=delivery&entity_id=...&group_id=...&limit=100
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).Model(&models.AuditLog{})

		if entityType := c.Query("entity_type"); entityType != "" {
			dbq = dbq.Where("entity_type = ?", entityType)
		}
		if entityID := c.Query("entity_id"); entityID != "" {
			dbq = dbq.Where("entity_id = ?", entityID)
		}
		if groupID := c.Query("group_id"); groupID != "" {
			dbq = dbq.Where("group_id = ?", groupID)
		}

		limit := c.QueryInt("limit", 200)
		if limit <= 0 || limit > 1000 {
			limit = 200
		}

		var logs []models.AuditLog
		if err := dbq.Order("id DESC").Limit(limit).Find(&logs).Error; err != nil {
			logger.L().Error("list audit logs", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "could not list audit logs")
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, log := range logs {
			var undoneAtStr *string
			if log.UndoneAt != nil {
				formatted := log.UndoneAt.Format("2006-01-02 15:04:05")
				undoneAtStr = &formatted
			}

			resp = append(resp, AuditLogResponse{
				ID:          log.ID,
				CreatedAt:   log.CreatedAt.Format("2006-01-02 15:04:05"),
				EntityType:  log.EntityType,
				EntityID:    log.EntityID,
				Action:      log.Action,
				Description: log.Description,
				GroupID:     log.GroupID,
				IsUndone:    log.IsUndone,
				UndoneAt:    undoneAtStr,
			})
		}

		return c.JSON(resp)
	}
}

// POST /api/audit-logs/:id/undo
func UndoAuditLogHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		logID, err := strconv.ParseUint(c.Params("id"), 10, 64)
		if err != nil || logID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid log id")
		}

		n, err := UndoLog(uint(logID))
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return fiber.NewError(fiber.StatusNotFound, "log not found")
		case errors.Is(err, ErrAlreadyUndone):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		case errors.Is(err, ErrNotUndoable), errors.Is(err, ErrUnknownEntity):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case err != nil:
			logger.L().Error("undo failed", zap.Uint64("log_id", logID), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "could not undo the change")
		}

		cache.Invalidate(c.UserContext())
		return c.JSON(fiber.Map{
			"message": "change undone",
			"undone":  n,
		})
	}
}

// POST /api/audit-logs/:id/redo
func RedoAuditLogHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		logID, err := strconv.ParseUint(c.Params("id"), 10, 64)
		if err != nil || logID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid log id")
		}

		n, err := RedoLog(uint(logID))
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return fiber.NewError(fiber.StatusNotFound, "log not found")
		case errors.Is(err, ErrNotUndone):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		case errors.Is(err, ErrNotRedoable), errors.Is(err, ErrUnknownEntity):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case err != nil:
			logger.L().Error("redo failed", zap.Uint64("log_id", logID), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "could not redo the change")
		}

		cache.Invalidate(c.UserContext())
		return c.JSON(fiber.Map{
			"message": "change redone",
			"redone":  n,
		})
	}
}
