package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery-tracker/internal/database"
	"grocery-tracker/internal/models"
	"grocery-tracker/internal/testutil"
	"grocery-tracker/internal/week"
)

func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	testutil.SetupTestDB(t)

	app := testutil.SetupApp()
	api := app.Group("/api")
	api.Get("/products", ListProductsHandler())
	api.Post("/products", CreateProductHandler())
	api.Put("/products/:id", UpdateProductHandler())
	api.Delete("/products/:id", DeleteProductHandler())
	api.Get("/orders", ListOrdersHandler())
	api.Post("/orders", CreateOrderHandler())
	api.Post("/orders/bulk", BulkCreateOrdersHandler())
	api.Put("/orders/:id", UpdateOrderHandler())
	api.Delete("/orders/:id", DeleteOrderHandler())
	api.Get("/deliveries", ListDeliveriesHandler())
	api.Post("/deliveries", CreateDeliveryHandler())
	api.Put("/deliveries/:id", UpdateDeliveryHandler())
	api.Delete("/deliveries/:id", DeleteDeliveryHandler())
	api.Get("/consumption", ListConsumptionHandler())
	api.Post("/consumption", CreateConsumptionHandler())
	api.Put("/consumption/:id", UpdateConsumptionHandler())
	api.Post("/consumption/:id/complete", CompleteConsumptionHandler())
	api.Delete("/consumption/:id", DeleteConsumptionHandler())
	api.Post("/maintenance/auto-complete", AutoCompleteHandler())
	return app
}

func createOrder(t *testing.T, app *fiber.App, body fiber.Map) models.Order {
	t.Helper()
	resp, raw := testutil.DoRequest(t, app, "POST", "/api/orders", body)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(raw))
	return testutil.DecodeJSON[models.Order](t, raw)
}

func TestCreateOrderCreatesMissingProduct(t *testing.T) {
	app := setupApp(t)

	o := createOrder(t, app, fiber.Map{"name": "Milk", "price": 1.0, "qty": 4, "weekId": "2025-W10", "estDuration": 2})
	assert.NotEmpty(t, o.ID)
	assert.NotEmpty(t, o.ProductID)
	assert.True(t, decimal.NewFromInt(1).Equal(o.Price))

	again := createOrder(t, app, fiber.Map{"name": "Milk", "price": 1.1, "qty": 2, "weekId": "2025-W11"})
	assert.Equal(t, o.ProductID, again.ProductID, "existing product is reused by name")
	assert.Equal(t, 1, again.EstDuration)

	var products []models.Product
	require.NoError(t, database.DB.Find(&products).Error)
	require.Len(t, products, 1)
	assert.Equal(t, "Milk", products[0].Name)
}

func TestCreateOrderValidation(t *testing.T) {
	app := setupApp(t)

	resp, raw := testutil.DoRequest(t, app, "POST", "/api/orders", fiber.Map{"name": "Milk", "qty": 1, "weekId": "2025-10"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, string(raw))

	resp, _ = testutil.DoRequest(t, app, "POST", "/api/orders", fiber.Map{"name": "Milk", "qty": 0, "weekId": "2025-W10"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = testutil.DoRequest(t, app, "POST", "/api/orders", fiber.Map{"qty": 1, "weekId": "2025-W10"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = testutil.DoRequest(t, app, "GET", "/api/orders?weekId=nope", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var count int64
	database.DB.Model(&models.Product{}).Count(&count)
	assert.Zero(t, count, "failed requests roll back the product they created")
}

func TestBulkCreateOrders(t *testing.T) {
	app := setupApp(t)

	resp, raw := testutil.DoRequest(t, app, "POST", "/api/orders/bulk", fiber.Map{
		"weekId": "2025-W10",
		"orders": []fiber.Map{
			{"name": "Milk", "price": 1.0, "qty": 4, "estDuration": 2},
			{"name": "Bread", "price": 2.5},
		},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(raw))
	out := testutil.DecodeJSON[struct {
		Count  int            `json:"count"`
		Orders []models.Order `json:"orders"`
	}](t, raw)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, 1.0, out.Orders[1].Qty)
	assert.Equal(t, "2025-W10", out.Orders[1].WeekID)

	resp, raw = testutil.DoRequest(t, app, "GET", "/api/orders?weekId=2025-W10", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, testutil.DecodeJSON[[]models.Order](t, raw), 2)

	resp, _ = testutil.DoRequest(t, app, "POST", "/api/orders/bulk", fiber.Map{"weekId": "2025-W10", "orders": []fiber.Map{}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestDeliveryLifecycle(t *testing.T) {
	app := setupApp(t)
	o := createOrder(t, app, fiber.Map{"name": "Milk", "price": 1.0, "qty": 4, "weekId": "2025-W10", "estDuration": 2})

	resp, raw := testutil.DoRequest(t, app, "POST", "/api/deliveries", fiber.Map{"orderId": o.ID})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(raw))
	d := testutil.DecodeJSON[DeliveryResponse](t, raw)
	assert.Equal(t, o.ProductID, d.ProductID)
	assert.Equal(t, "2025-W10", d.WeekID)
	assert.Equal(t, 4.0, d.Qty)
	assert.Equal(t, 2, d.EstDuration)
	require.NotNil(t, d.Consumption)
	assert.Equal(t, d.ID, d.Consumption.SourceID)
	assert.Equal(t, models.SourceDelivery, d.Consumption.SourceType)
	assert.True(t, decimal.NewFromInt(4).Equal(d.Consumption.Cost))
	assert.Equal(t, "2025-W10", d.Consumption.StartDate)
	assert.False(t, d.Consumption.Completed)

	resp, _ = testutil.DoRequest(t, app, "POST", "/api/deliveries", fiber.Map{"orderId": o.ID})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode, "an order is delivered at most once")

	resp, _ = testutil.DoRequest(t, app, "GET", "/api/orders?pending=true", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, raw = testutil.DoRequest(t, app, "PUT", "/api/deliveries/"+d.ID, fiber.Map{"qty": 3, "price": 1.5, "estDuration": 3})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))
	updated := testutil.DecodeJSON[DeliveryResponse](t, raw)
	require.NotNil(t, updated.Consumption)
	assert.Equal(t, 3.0, updated.Consumption.Qty)
	assert.Equal(t, 3, updated.Consumption.EstDuration)
	assert.True(t, decimal.RequireFromString("4.5").Equal(updated.Consumption.Cost))
	assert.Equal(t, "2025-W10", updated.Consumption.StartDate)

	resp, raw = testutil.DoRequest(t, app, "PUT", "/api/deliveries/"+d.ID, fiber.Map{"weekId": "2025-W11"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))
	moved := testutil.DecodeJSON[DeliveryResponse](t, raw)
	assert.Equal(t, "2025-W11", moved.WeekID)
	require.NotNil(t, moved.Consumption)
	assert.Equal(t, "2025-W11", moved.Consumption.StartDate, "the consumption window follows the delivery week")

	var stored models.Consumption
	require.NoError(t, database.DB.First(&stored, "id = ?", d.Consumption.ID).Error)
	assert.Equal(t, "2025-W11", stored.StartDate)

	resp, _ = testutil.DoRequest(t, app, "DELETE", "/api/deliveries/"+d.ID, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	var count int64
	database.DB.Model(&models.Consumption{}).Count(&count)
	assert.Zero(t, count, "consumption is deleted with its delivery")

	resp, _ = testutil.DoRequest(t, app, "DELETE", "/api/deliveries/"+d.ID, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAdhocDelivery(t *testing.T) {
	app := setupApp(t)

	resp, raw := testutil.DoRequest(t, app, "POST", "/api/deliveries", fiber.Map{
		"name": "Cheese", "price": 0, "qty": 1, "weekId": "2025-W12", "estDuration": 3, "variant": "gift",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(raw))
	d := testutil.DecodeJSON[DeliveryResponse](t, raw)
	assert.True(t, d.IsAdhoc())
	assert.Equal(t, "gift", d.Variant)
	assert.Equal(t, 3, d.Consumption.EstDuration)

	resp, _ = testutil.DoRequest(t, app, "POST", "/api/deliveries", fiber.Map{"orderId": "missing"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestConsumptionCompletion(t *testing.T) {
	app := setupApp(t)

	start := week.Current(time.Now())
	resp, raw := testutil.DoRequest(t, app, "POST", "/api/consumption", fiber.Map{
		"name": "Rice", "qty": 1, "cost": 3, "startDate": start.String(), "estDuration": 4,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(raw))
	cons := testutil.DecodeJSON[models.Consumption](t, raw)
	assert.Equal(t, models.SourceAdhoc, cons.SourceType)
	assert.Equal(t, cons.ID, cons.SourceID)

	resp, raw = testutil.DoRequest(t, app, "POST", "/api/consumption/"+cons.ID+"/complete", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))
	done := testutil.DecodeJSON[models.Consumption](t, raw)
	assert.True(t, done.Completed)
	require.NotNil(t, done.EffDuration)
	assert.Equal(t, 1, *done.EffDuration)

	resp, _ = testutil.DoRequest(t, app, "POST", "/api/consumption/"+cons.ID+"/complete", fiber.Map{"effDuration": 2})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, raw = testutil.DoRequest(t, app, "PUT", "/api/consumption/"+cons.ID, fiber.Map{"completed": false})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))
	assert.Nil(t, testutil.DecodeJSON[models.Consumption](t, raw).EffDuration)

	resp, _ = testutil.DoRequest(t, app, "PUT", "/api/consumption/"+cons.ID, fiber.Map{"effDuration": 2})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "effDuration requires completed")

	resp, _ = testutil.DoRequest(t, app, "POST", "/api/consumption", fiber.Map{"sourceType": "delivery", "sourceId": "nope", "cost": 1})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = testutil.DoRequest(t, app, "DELETE", "/api/consumption/"+cons.ID, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestDeleteProductInUse(t *testing.T) {
	app := setupApp(t)
	o := createOrder(t, app, fiber.Map{"name": "Milk", "price": 1.0, "qty": 4, "weekId": "2025-W10"})

	resp, _ := testutil.DoRequest(t, app, "DELETE", "/api/products/"+o.ProductID, nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, raw := testutil.DoRequest(t, app, "PUT", "/api/products/"+o.ProductID, fiber.Map{"name": "Whole milk"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))

	resp, _ = testutil.DoRequest(t, app, "DELETE", "/api/orders/"+o.ID, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	resp, _ = testutil.DoRequest(t, app, "DELETE", "/api/products/"+o.ProductID, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestAutoCompleteDepleted(t *testing.T) {
	setupApp(t)
	now := time.Date(2025, time.March, 19, 12, 0, 0, 0, time.UTC) // 2025-W12

	require.NoError(t, database.DB.Create(&[]models.Consumption{
		{ID: "ended", SourceID: "ended", SourceType: models.SourceAdhoc, Qty: 1, Cost: decimal.NewFromInt(2), StartDate: "2025-W10", EstDuration: 2},
		{ID: "running", SourceID: "running", SourceType: models.SourceAdhoc, Qty: 1, Cost: decimal.NewFromInt(2), StartDate: "2025-W11", EstDuration: 2},
	}).Error)

	ids, err := AutoCompleteDepleted(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, []string{"ended"}, ids)

	var ended models.Consumption
	require.NoError(t, database.DB.First(&ended, "id = ?", "ended").Error)
	assert.True(t, ended.Completed)
	require.NotNil(t, ended.EffDuration)
	assert.Equal(t, 2, *ended.EffDuration)

	ids, err = AutoCompleteDepleted(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, ids, "sweep is idempotent")

	var logs int64
	database.DB.Model(&models.AuditLog{}).Where("entity_id = ?", "ended").Count(&logs)
	assert.Equal(t, int64(1), logs)
}
