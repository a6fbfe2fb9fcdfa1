package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"grocery-tracker/internal/audit"
	"grocery-tracker/internal/cache"
	"grocery-tracker/internal/config"
	"grocery-tracker/internal/dashboard"
	"grocery-tracker/internal/database"
	"grocery-tracker/internal/datamanager"
	"grocery-tracker/internal/inventory"
	"grocery-tracker/internal/logger"
	"grocery-tracker/internal/metrics"
	"grocery-tracker/internal/middleware"
)

func main() {
	cfg := config.Load()

	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic("could not build logger: " + err.Error())
	}
	defer log.Sync()

	database.Init(cfg)

	ctx := context.Background()
	cache.Connect(ctx, cfg)
	defer cache.Close()

	if cfg.AutoCompleteOnStart {
		if _, err := inventory.AutoCompleteDepleted(ctx, time.Now()); err != nil {
			log.Error("auto-complete on start failed", zap.Error(err))
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      "grocery-tracker",
		ErrorHandler: middleware.ErrorHandler,
		BodyLimit:    16 * 1024 * 1024, // backups and workbooks
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(metrics.Middleware())

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "cache": cache.Enabled()})
	})
	app.Get("/metrics", metrics.Handler())

	api := app.Group("/api")

	// Products
	api.Get("/products", inventory.ListProductsHandler())
	api.Post("/products", inventory.CreateProductHandler())
	api.Put("/products/:id", inventory.UpdateProductHandler())
	api.Delete("/products/:id", inventory.DeleteProductHandler())

	// Orders
	api.Get("/orders", inventory.ListOrdersHandler())
	api.Post("/orders", inventory.CreateOrderHandler())
	api.Post("/orders/bulk", inventory.BulkCreateOrdersHandler())
	api.Put("/orders/:id", inventory.UpdateOrderHandler())
	api.Delete("/orders/:id", inventory.DeleteOrderHandler())

	// Deliveries
	api.Get("/deliveries", inventory.ListDeliveriesHandler())
	api.Post("/deliveries", inventory.CreateDeliveryHandler())
	api.Put("/deliveries/:id", inventory.UpdateDeliveryHandler())
	api.Delete("/deliveries/:id", inventory.DeleteDeliveryHandler())

	// Consumption
	api.Get("/consumption", inventory.ListConsumptionHandler())
	api.Post("/consumption", inventory.CreateConsumptionHandler())
	api.Put("/consumption/:id", inventory.UpdateConsumptionHandler())
	api.Delete("/consumption/:id", inventory.DeleteConsumptionHandler())
	api.Post("/consumption/:id/complete", inventory.CompleteConsumptionHandler())

	// Dashboard
	api.Get("/dashboard/timeline", dashboard.TimelineHandler(cfg))
	api.Get("/dashboard/weeks/:weekId", dashboard.WeekHandler(cfg))
	api.Get("/inventory", dashboard.InventoryHandler(cfg))
	api.Get("/product-stats", dashboard.ProductStatsHandler(cfg))
	api.Get("/history", dashboard.HistoryHandler(cfg))
	api.Get("/history/weekly", dashboard.WeeklyHistoryHandler(cfg))

	// Data
	api.Get("/full-data", datamanager.FullDataHandler())
	api.Post("/restore", datamanager.RestoreHandler())
	api.Delete("/clear", datamanager.ClearHandler())
	api.Post("/import/tsv", datamanager.ImportTSVHandler())
	api.Post("/import/xlsx", datamanager.ImportXLSXHandler())
	api.Get("/export/xlsx", datamanager.ExportXLSXHandler())

	// Audit logs
	api.Get("/audit-logs", audit.ListAuditLogsHandler())
	api.Post("/audit-logs/:id/undo", audit.UndoAuditLogHandler())
	api.Post("/audit-logs/:id/redo", audit.RedoAuditLogHandler())

	// Maintenance
	api.Post("/maintenance/auto-complete", inventory.AutoCompleteHandler())

	go func() {
		log.Info("server listening", zap.String("port", cfg.HTTPPort))
		if err := app.Listen(":" + cfg.HTTPPort); err != nil {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
	if sqlDB, err := database.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
