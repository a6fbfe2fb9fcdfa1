package database

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery-tracker/internal/models"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	assert.Error(t, err)
}

func TestLoadRecordsFrom(t *testing.T) {
	db, err := OpenInMemory(t.Name())
	require.NoError(t, err)

	base := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	orderID := "o1"
	require.NoError(t, db.Create(&models.Product{ID: "p1", Name: "Milk", CreatedAt: base}).Error)
	require.NoError(t, db.Create(&models.Order{
		ID: orderID, ProductID: "p1", Name: "Milk", Price: decimal.RequireFromString("1.25"), Qty: 4,
		WeekID: "2025-W10", EstDuration: 2, CreatedAt: base.Add(time.Minute),
	}).Error)
	require.NoError(t, db.Create(&models.Delivery{
		ID: "d2", ProductID: "p1", Name: "Milk", Price: decimal.RequireFromString("1"), Qty: 1,
		WeekID: "2025-W11", EstDuration: 1, CreatedAt: base.Add(3 * time.Minute),
	}).Error)
	require.NoError(t, db.Create(&models.Delivery{
		ID: "d1", OrderID: &orderID, ProductID: "p1", Name: "Milk", Price: decimal.RequireFromString("1.25"), Qty: 4,
		WeekID: "2025-W10", EstDuration: 2, CreatedAt: base.Add(2 * time.Minute),
	}).Error)
	require.NoError(t, db.Create(&models.Consumption{
		ID: "c1", SourceID: "d1", SourceType: models.SourceDelivery, Qty: 4, Cost: decimal.RequireFromString("5"),
		StartDate: "2025-W10", EstDuration: 2, CreatedAt: base.Add(2 * time.Minute),
	}).Error)

	recs, err := LoadRecordsFrom(db)
	require.NoError(t, err)
	require.Len(t, recs.Products, 1)
	require.Len(t, recs.Orders, 1)
	require.Len(t, recs.Deliveries, 2)
	require.Len(t, recs.Consumption, 1)

	assert.Equal(t, "d1", recs.Deliveries[0].ID, "ordered by creation time")
	require.NotNil(t, recs.Deliveries[0].OrderID)
	assert.Equal(t, orderID, *recs.Deliveries[0].OrderID)
	assert.Nil(t, recs.Deliveries[1].OrderID)
	assert.True(t, decimal.RequireFromString("1.25").Equal(recs.Orders[0].Price))
	assert.False(t, recs.Consumption[0].Completed)
	assert.Nil(t, recs.Consumption[0].EffDuration)
}

func TestDeliveryOrderIsUnique(t *testing.T) {
	db, err := OpenInMemory(t.Name())
	require.NoError(t, err)

	orderID := "o1"
	require.NoError(t, db.Create(&models.Delivery{ID: "d1", OrderID: &orderID, ProductID: "p1", WeekID: "2025-W10", Qty: 1, EstDuration: 1}).Error)
	assert.Error(t, db.Create(&models.Delivery{ID: "d2", OrderID: &orderID, ProductID: "p1", WeekID: "2025-W10", Qty: 1, EstDuration: 1}).Error)

	// ad-hoc deliveries carry no order id and never collide
	require.NoError(t, db.Create(&models.Delivery{ID: "d3", ProductID: "p1", WeekID: "2025-W10", Qty: 1, EstDuration: 1}).Error)
	require.NoError(t, db.Create(&models.Delivery{ID: "d4", ProductID: "p1", WeekID: "2025-W10", Qty: 1, EstDuration: 1}).Error)
}
