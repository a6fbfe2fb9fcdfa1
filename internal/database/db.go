package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"grocery-tracker/internal/config"
	"grocery-tracker/internal/logger"
	"grocery-tracker/internal/models"
	"grocery-tracker/internal/projection"
)

var DB *gorm.DB

// zapWriter routes gorm's printf-style logging into zap.
type zapWriter struct {
	s *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...interface{}) {
	w.s.Warnf(format, args...)
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: gormlogger.New(zapWriter{s: logger.L().Named("gorm").Sugar()}, gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

// Open connects to the configured database. driver is "postgres" or
// "sqlite"; for sqlite the dsn is a file path or a memory URI.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	return gorm.Open(dialector, gormConfig())
}

// OpenInMemory returns a private in-memory SQLite database with the schema
// applied. name keeps concurrently opened databases apart.
func OpenInMemory(name string) (*gorm.DB, error) {
	db, err := Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		return nil, err
	}
	// one connection: shared-cache memory databases lock tables across
	// connections
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Product{},
		&models.Order{},
		&models.Delivery{},
		&models.Consumption{},
		&models.AuditLog{},
	)
}

func Init(cfg *config.Config) {
	log := logger.L()

	var err error
	DB, err = Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatal("could not connect to database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}

	if err := Migrate(DB); err != nil {
		log.Fatal("auto-migrate failed", zap.Error(err))
	}

	log.Info("database connected, migration done", zap.String("driver", cfg.DBDriver))
}

// LoadRecords reads the full record set in insertion order. The projection
// code works on this snapshot only.
func LoadRecords(ctx context.Context) (projection.Records, error) {
	return LoadRecordsFrom(DB.WithContext(ctx))
}

func LoadRecordsFrom(db *gorm.DB) (projection.Records, error) {
	var recs projection.Records
	if err := db.Order("created_at, id").Find(&recs.Products).Error; err != nil {
		return recs, fmt.Errorf("load products: %w", err)
	}
	if err := db.Order("created_at, id").Find(&recs.Orders).Error; err != nil {
		return recs, fmt.Errorf("load orders: %w", err)
	}
	if err := db.Order("created_at, id").Find(&recs.Deliveries).Error; err != nil {
		return recs, fmt.Errorf("load deliveries: %w", err)
	}
	if err := db.Order("created_at, id").Find(&recs.Consumption).Error; err != nil {
		return recs, fmt.Errorf("load consumption: %w", err)
	}
	return recs, nil
}
