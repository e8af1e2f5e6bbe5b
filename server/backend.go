package server

import (
	"context"
	"fmt"

	"tangled.sh/tangled.sh/notifications/config"
	"tangled.sh/tangled.sh/notifications/kv"
)

// OpenBackend builds the key-value store named by the configuration. The
// returned close func releases it and is safe to call when err is nil.
func OpenBackend(ctx context.Context, c *config.Config) (kv.Store, func() error, error) {
	var (
		store   kv.Store
		closers []func() error
	)

	switch c.Store.Backend {
	case config.BackendMemory:
		m := kv.NewMemoryStore()
		m.Attempts = c.Store.Attempts
		store = m

	case config.BackendSqlite:
		s, err := kv.NewSQLiteStore(c.Store.SqlitePath, kv.WithSqliteAttempts(c.Store.Attempts))
		if err != nil {
			return nil, nil, err
		}
		store = s
		closers = append(closers, s.Close)

	case config.BackendRedis:
		rdb := kv.NewRedisClient(c.Redis.Addr, c.Redis.Password, c.Redis.DB)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", c.Redis.Addr, err)
		}
		store = kv.NewRedisStore(rdb, kv.WithKeyPrefix("notify:"), kv.WithRedisAttempts(c.Store.Attempts))
		closers = append(closers, rdb.Close)

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.Cache.Enabled {
		cached, err := kv.NewCachedStore(store, kv.CacheConfig{MaxCost: c.Cache.MaxCost})
		if err != nil {
			for _, cl := range closers {
				cl()
			}
			return nil, nil, fmt.Errorf("failed to set up cache: %w", err)
		}
		store = cached
		closers = append([]func() error{func() error {
			cached.Close()
			return nil
		}}, closers...)
	}

	closeAll := func() error {
		var first error
		for _, cl := range closers {
			if err := cl(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	return store, closeAll, nil
}
