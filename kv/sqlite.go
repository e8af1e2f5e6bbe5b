package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SqliteStore struct {
	db        *sql.DB
	tableName string
	attempts  uint

	// beforeWrite lets tests interleave a competing writer
	beforeWrite func(key string)
}

type SqliteStoreOpt func(*SqliteStore)

func WithTableName(name string) SqliteStoreOpt {
	return func(s *SqliteStore) {
		s.tableName = name
	}
}

func WithSqliteAttempts(n uint) SqliteStoreOpt {
	return func(s *SqliteStore) {
		s.attempts = n
	}
}

func NewSQLiteStore(dbPath string, opts ...SqliteStoreOpt) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// a single connection keeps ":memory:" databases coherent and avoids
	// SQLITE_BUSY between our own statements
	db.SetMaxOpenConns(1)

	store := &SqliteStore{
		db:        db,
		tableName: "kv",
		attempts:  DefaultAttempts,
	}

	for _, o := range opts {
		o(store)
	}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SqliteStore) init() error {
	createTable := fmt.Sprintf(`
	create table if not exists %s (
		key text primary key,
		value blob not null,
		revision integer not null,
		deleted integer not null default 0
	);`, s.tableName)
	_, err := s.db.Exec(createTable)
	return err
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, _, err := s.read(ctx, key)
	return value, err
}

func (s *SqliteStore) Put(ctx context.Context, key string, value []byte, resolve Resolver) error {
	return update(ctx, key, value, resolve, s.attempts, s.read, s.write)
}

// Delete leaves a tombstone behind so the key's revision keeps counting
// up if it is written again.
func (s *SqliteStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`
		update %s set value = x'', revision = revision + 1, deleted = 1
		where key = ? and deleted = 0;
	`, s.tableName)
	_, err := s.db.ExecContext(ctx, query, key)
	return err
}

func (s *SqliteStore) read(ctx context.Context, key string) ([]byte, revision, error) {
	query := fmt.Sprintf(`select value, revision, deleted from %s where key = ?;`, s.tableName)

	var (
		value   []byte
		rev     revision
		deleted bool
	)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value, &rev, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	if deleted {
		return nil, rev, ErrNotFound
	}
	return value, rev, nil
}

func (s *SqliteStore) write(ctx context.Context, key string, value []byte, rev revision) (bool, error) {
	if s.beforeWrite != nil {
		s.beforeWrite(key)
	}

	var (
		res sql.Result
		err error
	)
	if rev == 0 {
		query := fmt.Sprintf(`
			insert into %s (key, value, revision)
			values (?, ?, 1)
			on conflict(key) do nothing;
		`, s.tableName)
		res, err = s.db.ExecContext(ctx, query, key, value)
	} else {
		query := fmt.Sprintf(`
			update %s set value = ?, revision = revision + 1, deleted = 0
			where key = ? and revision = ?;
		`, s.tableName)
		res, err = s.db.ExecContext(ctx, query, value, key, rev)
	}
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
