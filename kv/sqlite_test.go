package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createInMemoryStore(t *testing.T, opts ...SqliteStoreOpt) *SqliteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:", opts...)
	if err != nil {
		t.Fatalf("Failed to create in-memory store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewSQLiteStore(t *testing.T) {
	tests := []struct {
		name        string
		dbPath      string
		opts        []SqliteStoreOpt
		expectError bool
		expectTable string
	}{
		{
			name:        "default table name",
			dbPath:      ":memory:",
			expectTable: "kv",
		},
		{
			name:        "custom table name",
			dbPath:      ":memory:",
			opts:        []SqliteStoreOpt{WithTableName("cursors")},
			expectTable: "cursors",
		},
		{
			name:        "invalid database path",
			dbPath:      "/invalid/path/to/database.db",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewSQLiteStore(tt.dbPath, tt.opts...)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer store.Close()

			assert.Equal(t, tt.expectTable, store.tableName)
		})
	}
}

func TestSqliteStore_GetPutDelete(t *testing.T) {
	ctx := context.Background()
	s := createInMemoryStore(t)

	_, err := s.Get(ctx, "test-notifications")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "test-notifications", []byte("1"), nil))
	require.NoError(t, s.Put(ctx, "test-notifications", []byte("2"), nil))

	got, err := s.Get(ctx, "test-notifications")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)

	_, rev, err := s.read(ctx, "test-notifications")
	require.NoError(t, err)
	assert.Equal(t, revision(2), rev)

	require.NoError(t, s.Delete(ctx, "test-notifications"))
	require.NoError(t, s.Delete(ctx, "test-notifications"))

	_, err = s.Get(ctx, "test-notifications")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSqliteStore_ConflictUsesResolver(t *testing.T) {
	tests := []struct {
		name     string
		existing bool
	}{
		{"concurrent update", true},
		{"concurrent create", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := createInMemoryStore(t)
			if tt.existing {
				require.NoError(t, s.Put(ctx, "k", []byte("1"), nil))
			}

			injected := false
			s.beforeWrite = func(key string) {
				if injected {
					return
				}
				injected = true
				require.NoError(t, s.Put(ctx, key, []byte("8"), nil))
			}

			require.NoError(t, s.Put(ctx, "k", []byte("5"), highest))
			s.beforeWrite = nil

			got, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "8", string(got))
		})
	}
}

func TestSqliteStore_ConflictBudgetExhausted(t *testing.T) {
	ctx := context.Background()
	s := createInMemoryStore(t, WithSqliteAttempts(2))
	require.NoError(t, s.Put(ctx, "k", []byte("1"), nil))

	writes := 0
	s.beforeWrite = func(key string) {
		writes++
		_, err := s.db.Exec(`update kv set revision = revision + 1 where key = ?`, key)
		require.NoError(t, err)
	}

	err := s.Put(ctx, "k", []byte("2"), highest)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 2, writes)
}

func TestSqliteStore_DeleteThenRecreateConflicts(t *testing.T) {
	tests := []struct {
		name     string
		recreate bool
		want     string
		siblings []string
	}{
		{"deleted and written again", true, "9", []string{"9", "3"}},
		{"deleted only", false, "3", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := createInMemoryStore(t)
			require.NoError(t, s.Put(ctx, "k", []byte("5"), nil))

			// the writer below read "5", then the key is removed and
			// possibly rewritten before its write lands
			injected := false
			s.beforeWrite = func(key string) {
				if injected {
					return
				}
				injected = true
				require.NoError(t, s.Delete(ctx, key))
				if tt.recreate {
					require.NoError(t, s.Put(ctx, key, []byte("9"), nil))
				}
			}

			var seen []string
			resolve := func(siblings [][]byte) ([]byte, error) {
				for _, v := range siblings {
					seen = append(seen, string(v))
				}
				return highest(siblings)
			}
			require.NoError(t, s.Put(ctx, "k", []byte("3"), resolve))
			s.beforeWrite = nil

			got, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
			assert.Equal(t, tt.siblings, seen)
		})
	}
}
