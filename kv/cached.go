package kv

import (
	"bytes"
	"context"
	"sync"

	"github.com/dgraph-io/ristretto"
)

// CachedStore serves Gets from an in-process cache and falls through to
// the wrapped store on a miss. Writes go to the wrapped store first and
// then drop the cached entry, so a reader never sees a value older than
// its own last write through this instance. Other instances writing to the
// same backend are only observed once the entry is evicted or rewritten.
//
// A fill that raced a write is discarded: every write bumps gen, and a
// miss only caches what it read if gen is unchanged since before the read.
type CachedStore struct {
	next  Store
	cache *ristretto.Cache

	mu  sync.Mutex
	gen uint64
}

type CacheConfig struct {
	// MaxCost bounds the cache in bytes of value.
	MaxCost int64
}

func NewCachedStore(next Store, cfg CacheConfig) (*CachedStore, error) {
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = 1 << 20
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.MaxCost / 8,
		MaxCost:     cfg.MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &CachedStore{next: next, cache: cache}, nil
}

func (c *CachedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := c.cache.Get(key); ok {
		if b, ok := v.([]byte); ok {
			return bytes.Clone(b), nil
		}
	}

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	value, err := c.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	// Set and Del share ristretto's buffer, so holding mu keeps a fill
	// ordered before any invalidation that follows it.
	c.mu.Lock()
	if c.gen == gen {
		c.cache.Set(key, bytes.Clone(value), int64(len(value)))
	}
	c.mu.Unlock()
	return value, nil
}

func (c *CachedStore) Put(ctx context.Context, key string, value []byte, resolve Resolver) error {
	err := c.next.Put(ctx, key, value, resolve)
	c.invalidate(key)
	return err
}

func (c *CachedStore) Delete(ctx context.Context, key string) error {
	err := c.next.Delete(ctx, key)
	c.invalidate(key)
	return err
}

func (c *CachedStore) invalidate(key string) {
	c.mu.Lock()
	c.gen++
	c.cache.Del(key)
	c.mu.Unlock()
}

// Wait blocks until buffered cache writes are applied.
func (c *CachedStore) Wait() {
	c.cache.Wait()
}

func (c *CachedStore) Close() {
	c.cache.Close()
}
