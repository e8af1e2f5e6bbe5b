package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore records how often the wrapped store is read
type countingStore struct {
	*MemoryStore
	gets int
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	c.gets++
	return c.MemoryStore.Get(ctx, key)
}

func TestCachedStore(t *testing.T) {
	ctx := context.Background()
	backend := &countingStore{MemoryStore: NewMemoryStore()}

	c, err := NewCachedStore(backend, CacheConfig{})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Put(ctx, "k", []byte("1"), nil))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)
	c.Wait()

	got, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)
	assert.Equal(t, 1, backend.gets, "second read should be served from cache")

	// writes invalidate
	require.NoError(t, c.Put(ctx, "k", []byte("2"), nil))
	got, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)
	assert.Equal(t, 2, backend.gets)

	c.Wait()
	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachedStore_MissIsNotCached(t *testing.T) {
	ctx := context.Background()
	backend := &countingStore{MemoryStore: NewMemoryStore()}

	c, err := NewCachedStore(backend, CacheConfig{MaxCost: 1 << 10})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	c.Wait()
	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, backend.gets)
}

// stallingStore parks the first gated Get after it has read the backend,
// until release is closed
type stallingStore struct {
	*MemoryStore
	gate    bool
	read    chan struct{}
	release chan struct{}
}

func (s *stallingStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.MemoryStore.Get(ctx, key)
	if s.gate {
		s.gate = false
		close(s.read)
		<-s.release
	}
	return value, err
}

func TestCachedStore_WriteDuringFillWins(t *testing.T) {
	ctx := context.Background()
	backend := &stallingStore{
		MemoryStore: NewMemoryStore(),
		read:        make(chan struct{}),
		release:     make(chan struct{}),
	}

	c, err := NewCachedStore(backend, CacheConfig{})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Put(ctx, "k", []byte("1"), nil))

	backend.gate = true
	done := make(chan []byte)
	go func() {
		got, _ := c.Get(ctx, "k")
		done <- got
	}()

	// the reader holds "1" but has not cached it yet
	<-backend.read
	require.NoError(t, c.Put(ctx, "k", []byte("5"), nil))
	close(backend.release)
	assert.Equal(t, []byte("1"), <-done)
	c.Wait()

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("5"), got, "stale fill must not outlive the write")
}
