package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestOrderValidate(t *testing.T) {
	ok := Order{ProductID: "p1", Price: Money(1), Qty: 4, WeekID: "2025-W10", EstDuration: 2}
	require.NoError(t, ok.Validate())
	assert.True(t, ok.Total().Equal(decimal.NewFromInt(4)))

	bad := ok
	bad.WeekID = "2025-10"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRecord)

	bad = ok
	bad.EstDuration = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRecord)

	bad = ok
	bad.Qty = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRecord)

	bad = ok
	bad.Price = Money(-1)
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRecord)
}

func TestDeliveryIsAdhoc(t *testing.T) {
	empty := ""
	orderID := "o1"
	assert.True(t, Delivery{}.IsAdhoc())
	assert.True(t, Delivery{OrderID: &empty}.IsAdhoc())
	assert.False(t, Delivery{OrderID: &orderID}.IsAdhoc())
}

func TestConsumptionDurationAndValidate(t *testing.T) {
	c := Consumption{SourceID: "d1", SourceType: SourceDelivery, Cost: Money(4), StartDate: "2025-W10", EstDuration: 2}
	require.NoError(t, c.Validate())
	assert.Equal(t, 2, c.Duration())

	c.EffDuration = intPtr(3)
	assert.ErrorIs(t, c.Validate(), ErrInvalidRecord, "effDuration without completed")

	c.Completed = true
	require.NoError(t, c.Validate())
	assert.Equal(t, 3, c.Duration())

	c.EffDuration = intPtr(0)
	assert.ErrorIs(t, c.Validate(), ErrInvalidRecord)

	c = Consumption{SourceID: "x", SourceType: "gift", StartDate: "2025-W10", EstDuration: 1}
	assert.ErrorIs(t, c.Validate(), ErrInvalidRecord)
}

func TestMoneyMarshalsAsNumber(t *testing.T) {
	b, err := json.Marshal(Order{Price: Money(1.5)})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"price":1.5`)

	var o Order
	require.NoError(t, json.Unmarshal([]byte(`{"price":2.25,"qty":3}`), &o))
	assert.True(t, o.Price.Equal(decimal.RequireFromString("2.25")))
}
