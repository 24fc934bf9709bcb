package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/cardaudit/internal/model"
)

// Open builds the cache backend selected by cfg
func Open(ctx context.Context, cfg model.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return NopCache{}, nil
	}

	switch strings.ToLower(cfg.Backend) {
	case "", "layered":
		return NewLayeredCache(NewDiskCache(cfg.Dir)), nil

	case "disk":
		return NewDiskCache(cfg.Dir), nil

	case "memory":
		return NewMemoryCache(), nil

	case "sqlite":
		store, err := NewSQLiteCache(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return NewLayeredCache(store), nil

	case "redis":
		store, err := NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return NewLayeredCache(store), nil

	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres cache requires a DSN")
		}
		store, err := NewPostgresCache(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return NewLayeredCache(store), nil

	default:
		return nil, fmt.Errorf("unknown cache backend: %s (supported: layered, disk, memory, sqlite, redis, postgres)", cfg.Backend)
	}
}
