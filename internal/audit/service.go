package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"grocery-tracker/internal/database"
	"grocery-tracker/internal/models"
)

var (
	ErrAlreadyUndone = errors.New("this change has already been undone")
	ErrNotUndoable   = errors.New("this kind of change cannot be undone")
	ErrNotUndone     = errors.New("this change has not been undone")
	ErrNotRedoable   = errors.New("this kind of change cannot be redone")
	ErrUnknownEntity = errors.New("unknown entity type")
)

var changeActions = []models.AuditAction{models.AuditActionCreate, models.AuditActionUpdate, models.AuditActionDelete}

type LogOptions struct {
	// Tx is the transaction the change runs in; database.DB when nil.
	Tx *gorm.DB

	EntityType  string
	EntityID    string
	Action      models.AuditAction
	Description string
	Before      any
	After       any
	GroupID     string
}

func snapshot(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func WriteLog(opts LogOptions) error {
	db := opts.Tx
	if db == nil {
		db = database.DB
	}

	log := models.AuditLog{
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  snapshot(opts.Before),
		AfterData:   snapshot(opts.After),
		GroupID:     opts.GroupID,
	}

	if err := db.Create(&log).Error; err != nil {
		return fmt.Errorf("could not write audit log: %w", err)
	}
	return nil
}

// newEntity returns an empty record of the given entity type.
func newEntity(entityType string) (any, error) {
	switch entityType {
	case models.EntityProduct:
		return &models.Product{}, nil
	case models.EntityOrder:
		return &models.Order{}, nil
	case models.EntityDelivery:
		return &models.Delivery{}, nil
	case models.EntityConsumption:
		return &models.Consumption{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entityType)
	}
}

// UndoLog reverts a logged change together with every other change of the
// same group, newest first, in one transaction. It returns the number of
// entries undone.
func UndoLog(logID uint) (int, error) {
	undone := 0
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var log models.AuditLog
		if err := tx.First(&log, "id = ?", logID).Error; err != nil {
			return err
		}
		if log.IsUndone {
			return ErrAlreadyUndone
		}
		if !log.Action.Undoable() {
			return ErrNotUndoable
		}

		entries := []models.AuditLog{log}
		if log.GroupID != "" {
			entries = nil
			if err := tx.Where("group_id = ? AND is_undone = ? AND action IN ?", log.GroupID, false, changeActions).
				Find(&entries).Error; err != nil {
				return err
			}
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].ID > entries[j].ID })

		now := time.Now()
		for _, e := range entries {
			if err := revert(tx, e); err != nil {
				return fmt.Errorf("undo %s %s: %w", e.EntityType, e.EntityID, err)
			}

			e.IsUndone = true
			e.UndoneAt = &now
			if err := tx.Save(&e).Error; err != nil {
				return fmt.Errorf("could not update audit log: %w", err)
			}

			if err := WriteLog(LogOptions{
				Tx:          tx,
				EntityType:  e.EntityType,
				EntityID:    e.EntityID,
				Action:      models.AuditActionUndo,
				Description: "Undone: " + e.Description,
				Before:      json.RawMessage(e.AfterData),
				After:       json.RawMessage(e.BeforeData),
				GroupID:     e.GroupID,
			}); err != nil {
				return err
			}
			undone++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return undone, nil
}

func revert(tx *gorm.DB, e models.AuditLog) error {
	entity, err := newEntity(e.EntityType)
	if err != nil {
		return err
	}

	switch e.Action {
	case models.AuditActionCreate:
		return tx.Delete(entity, "id = ?", e.EntityID).Error

	case models.AuditActionUpdate:
		if err := json.Unmarshal([]byte(e.BeforeData), entity); err != nil {
			return err
		}
		return tx.Save(entity).Error

	case models.AuditActionDelete:
		// ids are strings, so the record comes back under its old id and
		// references to it stay valid
		if err := json.Unmarshal([]byte(e.BeforeData), entity); err != nil {
			return err
		}
		return tx.Create(entity).Error

	default:
		return ErrNotUndoable
	}
}

// RedoLog re-applies an undone change together with the rest of its group,
// oldest first. It returns the number of entries redone.
func RedoLog(logID uint) (int, error) {
	redone := 0
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var log models.AuditLog
		if err := tx.First(&log, "id = ?", logID).Error; err != nil {
			return err
		}
		if !log.Action.Undoable() {
			return ErrNotRedoable
		}
		if !log.IsUndone {
			return ErrNotUndone
		}

		entries := []models.AuditLog{log}
		if log.GroupID != "" {
			entries = nil
			if err := tx.Where("group_id = ? AND is_undone = ? AND action IN ?", log.GroupID, true, changeActions).
				Find(&entries).Error; err != nil {
				return err
			}
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

		for _, e := range entries {
			if err := reapply(tx, e); err != nil {
				return fmt.Errorf("redo %s %s: %w", e.EntityType, e.EntityID, err)
			}

			e.IsUndone = false
			e.UndoneAt = nil
			if err := tx.Save(&e).Error; err != nil {
				return fmt.Errorf("could not update audit log: %w", err)
			}

			if err := WriteLog(LogOptions{
				Tx:          tx,
				EntityType:  e.EntityType,
				EntityID:    e.EntityID,
				Action:      models.AuditActionRedo,
				Description: "Redone: " + e.Description,
				Before:      json.RawMessage(e.BeforeData),
				After:       json.RawMessage(e.AfterData),
				GroupID:     e.GroupID,
			}); err != nil {
				return err
			}
			redone++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return redone, nil
}

func reapply(tx *gorm.DB, e models.AuditLog) error {
	entity, err := newEntity(e.EntityType)
	if err != nil {
		return err
	}

	switch e.Action {
	case models.AuditActionCreate:
		if err := json.Unmarshal([]byte(e.AfterData), entity); err != nil {
			return err
		}
		return tx.Create(entity).Error

	case models.AuditActionUpdate:
		if err := json.Unmarshal([]byte(e.AfterData), entity); err != nil {
			return err
		}
		return tx.Save(entity).Error

	case models.AuditActionDelete:
		return tx.Delete(entity, "id = ?", e.EntityID).Error

	default:
		return ErrNotRedoable
	}
}
