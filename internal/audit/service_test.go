package audit

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery-tracker/internal/database"
	"grocery-tracker/internal/models"
)

func setupDB(t *testing.T) {
	t.Helper()
	db, err := database.OpenInMemory(t.Name())
	require.NoError(t, err)
	database.DB = db
}

func TestUndoCreateGroup(t *testing.T) {
	setupDB(t)
	db := database.DB

	group := models.NewID()
	d := models.Delivery{ID: "d1", ProductID: "p1", Name: "Milk", Price: decimal.NewFromInt(1), Qty: 2, WeekID: "2025-W10", EstDuration: 1}
	c := models.Consumption{ID: "c1", SourceID: "d1", SourceType: models.SourceDelivery, Qty: 2, Cost: decimal.NewFromInt(2), StartDate: "2025-W10", EstDuration: 1}
	require.NoError(t, db.Create(&d).Error)
	require.NoError(t, WriteLog(LogOptions{EntityType: models.EntityDelivery, EntityID: d.ID, Action: models.AuditActionCreate, After: d, GroupID: group}))
	require.NoError(t, db.Create(&c).Error)
	require.NoError(t, WriteLog(LogOptions{EntityType: models.EntityConsumption, EntityID: c.ID, Action: models.AuditActionCreate, After: c, GroupID: group}))

	var first models.AuditLog
	require.NoError(t, db.Order("id").First(&first).Error)

	n, err := UndoLog(first.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var count int64
	db.Model(&models.Delivery{}).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.Consumption{}).Count(&count)
	assert.Zero(t, count)

	_, err = UndoLog(first.ID)
	assert.ErrorIs(t, err, ErrAlreadyUndone)

	var undoEntries []models.AuditLog
	require.NoError(t, db.Where("action = ?", models.AuditActionUndo).Find(&undoEntries).Error)
	assert.Len(t, undoEntries, 2)

	_, err = UndoLog(undoEntries[0].ID)
	assert.ErrorIs(t, err, ErrNotUndoable)
}

func TestUndoUpdateRestoresBeforeSnapshot(t *testing.T) {
	setupDB(t)
	db := database.DB

	p := models.Product{ID: "p1", Name: "Milk"}
	require.NoError(t, db.Create(&p).Error)
	before := p
	p.Name = "Oat milk"
	require.NoError(t, db.Save(&p).Error)
	require.NoError(t, WriteLog(LogOptions{EntityType: models.EntityProduct, EntityID: p.ID, Action: models.AuditActionUpdate, Before: before, After: p}))

	var log models.AuditLog
	require.NoError(t, db.First(&log).Error)
	_, err := UndoLog(log.ID)
	require.NoError(t, err)

	var got models.Product
	require.NoError(t, db.First(&got, "id = ?", "p1").Error)
	assert.Equal(t, "Milk", got.Name)
}

func TestUndoDeleteRecreatesUnderSameID(t *testing.T) {
	setupDB(t)
	db := database.DB

	o := models.Order{ID: "o1", ProductID: "p1", Name: "Bread", Price: decimal.RequireFromString("2.50"), Qty: 1, WeekID: "2025-W11", EstDuration: 1}
	require.NoError(t, db.Create(&o).Error)
	require.NoError(t, db.Delete(&models.Order{}, "id = ?", o.ID).Error)
	require.NoError(t, WriteLog(LogOptions{EntityType: models.EntityOrder, EntityID: o.ID, Action: models.AuditActionDelete, Before: o}))

	var log models.AuditLog
	require.NoError(t, db.First(&log).Error)
	assert.Equal(t, "null", log.AfterData)

	_, err := UndoLog(log.ID)
	require.NoError(t, err)

	var got models.Order
	require.NoError(t, db.First(&got, "id = ?", "o1").Error)
	assert.Equal(t, "Bread", got.Name)
	assert.True(t, decimal.RequireFromString("2.50").Equal(got.Price))
}

func TestUndoUnknownEntity(t *testing.T) {
	setupDB(t)
	require.NoError(t, WriteLog(LogOptions{EntityType: "expense", EntityID: "x", Action: models.AuditActionCreate}))

	var log models.AuditLog
	require.NoError(t, database.DB.First(&log).Error)
	_, err := UndoLog(log.ID)
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestRedoReappliesUndoneGroup(t *testing.T) {
	setupDB(t)
	db := database.DB

	group := models.NewID()
	p := models.Product{ID: "p1", Name: "Milk"}
	require.NoError(t, db.Create(&p).Error)
	require.NoError(t, WriteLog(LogOptions{EntityType: models.EntityProduct, EntityID: p.ID, Action: models.AuditActionCreate, After: p, GroupID: group}))
	before := p
	p.Name = "Oat milk"
	require.NoError(t, db.Save(&p).Error)
	require.NoError(t, WriteLog(LogOptions{EntityType: models.EntityProduct, EntityID: p.ID, Action: models.AuditActionUpdate, Before: before, After: p, GroupID: group}))

	var first models.AuditLog
	require.NoError(t, db.Order("id").First(&first).Error)

	_, err := RedoLog(first.ID)
	assert.ErrorIs(t, err, ErrNotUndone)

	n, err := UndoLog(first.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	var count int64
	db.Model(&models.Product{}).Count(&count)
	assert.Zero(t, count)

	n, err = RedoLog(first.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var got models.Product
	require.NoError(t, db.First(&got, "id = ?", "p1").Error)
	assert.Equal(t, "Oat milk", got.Name)

	var redo models.AuditLog
	require.NoError(t, db.Where("action = ?", models.AuditActionRedo).First(&redo).Error)
	_, err = RedoLog(redo.ID)
	assert.ErrorIs(t, err, ErrNotRedoable)
	_, err = UndoLog(redo.ID)
	assert.ErrorIs(t, err, ErrNotUndoable)

	// the group can be undone again after a redo
	n, err = UndoLog(first.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
