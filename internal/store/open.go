package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/audit"
	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/config"
)

// Backend is an audit store that holds resources until closed.
type Backend interface {
	audit.Store
	Close() error
}

// Open builds the store selected by cfg.Audit.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	a := cfg.Audit
	switch a.Store {
	case "", config.StoreMemory:
		return NewMemory(), nil
	case config.StoreJSONL:
		return OpenJSONL(cfg.ResolvePath(a.Path))
	case config.StoreSQLite:
		dsn := a.DSN
		if dsn == "" {
			dsn = cfg.ResolvePath(a.Path)
		}
		return OpenSQLite(dsn)
	case config.StorePostgres:
		return OpenPostgres(a.DSN)
	case config.StoreRedis:
		return OpenRedis(ctx, &redis.Options{
			Addr:     a.Redis.Addr,
			Password: a.Redis.Password,
			DB:       a.Redis.DB,
		}, a.Redis.Key)
	default:
		return nil, fmt.Errorf("unknown audit store %q", a.Store)
	}
}
