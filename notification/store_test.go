package notification

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextIDIsMonotonic(t *testing.T) {
	prev, _ := NextID()
	for range 1000 {
		id, at := NextID()
		require.Greater(t, id, prev)
		assert.WithinDuration(t, time.Now(), at, time.Minute)
		prev = id
	}
}

func TestStoreAndFetch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first, err := s.Store(ctx, "test", Notification{Category: "follow", Message: "first"})
	require.NoError(t, err)
	second, err := s.Store(ctx, "test", Notification{Category: "like", Message: "second"})
	require.NoError(t, err)
	_, err = s.Store(ctx, "other", Notification{Message: "elsewhere"})
	require.NoError(t, err)

	assert.NotZero(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	got, err := s.Fetch(ctx, "test")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID, "newest first")
	assert.Equal(t, first.ID, got[1].ID)

	// callers get a copy
	got[0].Message = "changed"
	again, _ := s.Fetch(ctx, "test")
	assert.Equal(t, "second", again[0].Message)
}

func TestStoreKeepsCreatedAt(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	n, err := NewMemoryStore().Store(context.Background(), "test", Notification{Message: "m", CreatedAt: at, Unseen: true})
	require.NoError(t, err)
	assert.Equal(t, at, n.CreatedAt)
	assert.False(t, n.Unseen)
}

func TestStoreRejectsEmptyMessage(t *testing.T) {
	_, err := NewMemoryStore().Store(context.Background(), "test", Notification{Category: "x"})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var ids []uint64
	for _, m := range []string{"a", "b", "c"} {
		n, err := s.Store(ctx, "test", Notification{Message: m})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}

	removed, err := s.Remove(ctx, "test", []uint64{ids[1], 12345})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	got, _ := s.Fetch(ctx, "test")
	require.Len(t, got, 2)
	assert.Equal(t, []uint64{ids[2], ids[0]}, []uint64{got[0].ID, got[1].ID})

	require.NoError(t, s.RemoveAll(ctx, "test"))
	got, _ = s.Fetch(ctx, "test")
	assert.Empty(t, got)

	// removing from a user with nothing is fine
	removed, err = s.Remove(ctx, "nobody", ids)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryStore()

	_, err := s.Fetch(ctx, "test")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.Store(ctx, "test", Notification{Message: "m"})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.Remove(ctx, "test", []uint64{1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.RemoveAll(ctx, "test"), context.Canceled)
}

func TestConcurrentStores(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Store(ctx, "test", Notification{Message: "m"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Fetch(ctx, "test")
	require.NoError(t, err)
	require.Len(t, got, 50)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i-1].ID, got[i].ID)
	}
}

func TestJSON(t *testing.T) {
	n := Notification{ID: 42, Category: "follow", Message: "hi", CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), Unseen: true}
	b, err := json.Marshal(n)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":42,"category":"follow","message":"hi","created_at":"2024-01-02T03:04:05Z","unseen":true}`, string(b))
}
