// Package cache keeps computed dashboard payloads in Redis. Keys embed a
// revision counter that every write bumps, so stale entries are never read
// and simply expire. With no Redis configured every call is a miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"grocery-tracker/internal/config"
	"grocery-tracker/internal/logger"
)

const (
	keyPrefix   = "grocery"
	revisionKey = keyPrefix + ":revision"
)

var (
	rdb *redis.Client
	ttl = 10 * time.Minute
)

// Connect sets up the Redis client. It does not fail startup: when Redis is
// unreachable the service runs uncached.
func Connect(ctx context.Context, cfg *config.Config) {
	if cfg.RedisAddr == "" {
		logger.L().Info("redis not configured, dashboard cache disabled")
		return
	}
	if cfg.CacheTTL > 0 {
		ttl = cfg.CacheTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.L().Warn("redis unreachable, dashboard cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = client.Close()
		return
	}
	rdb = client
	logger.L().Info("connected to redis", zap.String("addr", cfg.RedisAddr))
}

// Use installs an existing client (nil disables the cache).
func Use(client *redis.Client) {
	rdb = client
}

func Enabled() bool {
	return rdb != nil
}

func Close() error {
	if rdb == nil {
		return nil
	}
	return rdb.Close()
}

func revision(ctx context.Context) (int64, error) {
	n, err := rdb.Get(ctx, revisionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Key builds the cache key of a payload for the given revision.
func Key(rev int64, name string) string {
	return fmt.Sprintf("%s:r%d:%s", keyPrefix, rev, name)
}

// GetObject loads the payload stored under name into dest. found is false
// on a miss or when the cache is disabled.
func GetObject(ctx context.Context, name string, dest interface{}) (bool, error) {
	if rdb == nil {
		return false, nil
	}
	rev, err := revision(ctx)
	if err != nil {
		return false, err
	}
	val, err := rdb.Get(ctx, Key(rev, name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

func SetObject(ctx context.Context, name string, obj interface{}) error {
	if rdb == nil {
		return nil
	}
	rev, err := revision(ctx)
	if err != nil {
		return err
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, Key(rev, name), b, ttl).Err()
}

// Invalidate bumps the revision so that every cached payload is ignored.
// Failures are logged only; a write must not fail because of the cache.
func Invalidate(ctx context.Context) {
	if rdb == nil {
		return
	}
	if err := rdb.Incr(ctx, revisionKey).Err(); err != nil {
		logger.L().Warn("cache invalidation failed", zap.Error(err))
	}
}
