// Package infra opens the external stores the service runs against.
package infra

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wochuna/Sacco/internal/config"
)

// Backends holds the optional Postgres and Redis connections. A nil field
// means the in-memory implementation is used for that concern.
type Backends struct {
	DB    *pgxpool.Pool
	Cache *redis.Client
}

// Open connects every backend configured in cfg. Outside development both
// are required.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Backends, error) {
	b := &Backends{}

	if cfg.DatabaseURL != "" {
		db, err := NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b.DB = db
	} else if !cfg.IsDev() {
		return nil, fmt.Errorf("database is required when APP_ENV=%s", cfg.AppEnv)
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory member store")
	}

	if cfg.RedisURL != "" {
		cache, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			b.Close(logger)
			return nil, err
		}
		b.Cache = cache
	} else if !cfg.IsDev() {
		b.Close(logger)
		return nil, fmt.Errorf("redis is required when APP_ENV=%s", cfg.AppEnv)
	} else {
		logger.Warn("REDIS_URL not set; using in-memory sessions")
	}

	return b, nil
}

// Close releases every open connection.
func (b *Backends) Close(logger *slog.Logger) {
	if b.Cache != nil {
		if err := b.Cache.Close(); err != nil {
			logger.Warn("close redis", "error", err)
		}
	}
	if b.DB != nil {
		b.DB.Close()
	}
}
