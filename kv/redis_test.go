package kv

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redisStore needs a live server; point NOTIFY_TEST_REDIS_ADDR at one to
// run these.
func redisStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("NOTIFY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("NOTIFY_TEST_REDIS_ADDR not set")
	}

	rdb := NewRedisClient(addr, "", 0)
	t.Cleanup(func() { rdb.Close() })

	prefix := fmt.Sprintf("notify-test:%d:", time.Now().UnixNano())
	return NewRedisStore(rdb, WithKeyPrefix(prefix), WithRedisAttempts(50))
}

func TestRedisStore_GetPutDelete(t *testing.T) {
	ctx := context.Background()
	r := redisStore(t)

	_, err := r.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.Put(ctx, "k", []byte("1"), nil))
	got, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	require.NoError(t, r.Delete(ctx, "k"))
	require.NoError(t, r.Delete(ctx, "k"))
	_, err = r.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_ConcurrentWritersConverge(t *testing.T) {
	ctx := context.Background()
	r := redisStore(t)

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			assert.NoError(t, r.Put(ctx, "k", []byte(strconv.Itoa(v)), func(siblings [][]byte) ([]byte, error) {
				best := 0
				for _, s := range siblings {
					n, _ := strconv.Atoi(string(s))
					best = max(best, n)
				}
				return []byte(strconv.Itoa(best)), nil
			}))
		}(i)
	}
	wg.Wait()

	got, err := r.Get(ctx, "k")
	require.NoError(t, err)
	// only writers that lost a race consult the resolver, so the final
	// value is some writer's value
	n, err := strconv.Atoi(string(got))
	require.NoError(t, err)
	assert.True(t, n >= 1 && n <= 20)

	require.NoError(t, r.Delete(ctx, "k"))
}
