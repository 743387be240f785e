package database

import (
	"context"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/vandelay/guacbot/internal/config"
)

// InitRedis returns nil when Redis is unreachable; callers continue without it.
func InitRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("[REDIS] connection failed, continuing without Redis", "addr", cfg.Addr(), "error", err)
		rdb.Close()
		return nil
	}

	slog.Info("[REDIS] connection established", "addr", cfg.Addr())
	return rdb
}
