package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultPostgresDSN = "host=localhost user=postgres password=postgres dbname=grocery port=5432 sslmode=disable"

type Config struct {
	HTTPPort    string
	DBDriver    string // postgres | sqlite
	DatabaseDSN string
	CORSOrigins string

	LogLevel  string
	LogFormat string // json | console

	RedisAddr     string // empty disables the dashboard cache
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	HorizonWeeks         int  // weeks shown after the current one on the dashboard
	ProjectPendingOrders bool // count undelivered orders as incoming stock
	AutoCompleteOnStart  bool
}

func Load() *Config {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] could not read .env: %v", err)
	}

	cfg := &Config{
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		DBDriver:             strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DatabaseDSN:          getEnv("DATABASE_DSN", ""),
		CORSOrigins:          getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "console"),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		CacheTTL:             getEnvDuration("CACHE_TTL", 10*time.Minute),
		HorizonWeeks:         getEnvInt("DASHBOARD_HORIZON_WEEKS", 4),
		ProjectPendingOrders: getEnvBool("PROJECT_PENDING_ORDERS", true),
		AutoCompleteOnStart:  getEnvBool("AUTO_COMPLETE_ON_START", true),
	}

	if cfg.DatabaseDSN == "" {
		switch cfg.DBDriver {
		case "sqlite":
			cfg.DatabaseDSN = "grocery.db"
		default:
			cfg.DatabaseDSN = defaultPostgresDSN
			log.Println("[WARN] DATABASE_DSN is not set, falling back to the local Postgres default.")
		}
	}
	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		log.Fatalf("[FATAL] invalid DB_DRIVER %q (expected postgres or sqlite)", cfg.DBDriver)
	}
	if cfg.HorizonWeeks < 0 {
		cfg.HorizonWeeks = 4
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[WARN] %s is not a number (%q), using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[WARN] %s is not a bool (%q), using default %t", key, v, def)
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[WARN] %s is not a duration (%q), using default %s", key, v, def)
		return def
	}
	return d
}
