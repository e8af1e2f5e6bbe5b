// Package kv is the narrow key-value capability the cursor store is built
// on: get, put with a conflict resolver, and delete. Backends are
// eventually consistent at best and may see concurrent writers; a put that
// loses a race is retried with the resolver applied to the competing
// values.
package kv

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
)

var (
	ErrNotFound = errors.New("key not found")
	ErrConflict = errors.New("conflicting concurrent write")
)

// Resolver merges sibling values produced by concurrent writers into one.
// The local write is always the last sibling.
type Resolver func(siblings [][]byte) ([]byte, error)

type Store interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put upserts value. resolve is consulted only when another writer
	// modified the key between our read and our write.
	Put(ctx context.Context, key string, value []byte, resolve Resolver) error
	// Delete removes the key; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// ensure that we are satisfying the interface
var (
	_ = []Store{
		&MemoryStore{},
		&SqliteStore{},
		&RedisStore{},
		&CachedStore{},
	}
)

const (
	DefaultAttempts = 5
	retryDelay      = 5 * time.Millisecond
)

// LastWriterWins keeps the local write.
func LastWriterWins(siblings [][]byte) ([]byte, error) {
	if len(siblings) == 0 {
		return nil, errors.New("no siblings to resolve")
	}
	return siblings[len(siblings)-1], nil
}

// revision identifies the state a write was based on. Zero means the key
// did not exist.
type revision int64

type readFunc func(ctx context.Context, key string) ([]byte, revision, error)

// writeFunc stores value if the key is still at rev and reports whether it
// did.
type writeFunc func(ctx context.Context, key string, value []byte, rev revision) (bool, error)

// update is the optimistic write loop shared by the revisioned backends.
func update(ctx context.Context, key string, value []byte, resolve Resolver, attempts uint, read readFunc, write writeFunc) error {
	if resolve == nil {
		resolve = LastWriterWins
	}
	if attempts == 0 {
		attempts = DefaultAttempts
	}

	conflicted := false
	return retry.Do(
		func() error {
			current, rev, err := read(ctx, key)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}

			next := value
			if conflicted && current != nil {
				next, err = resolve([][]byte{current, value})
				if err != nil {
					return err
				}
			}

			ok, err := write(ctx, key, next, rev)
			if err != nil {
				return err
			}
			if !ok {
				conflicted = true
				return ErrConflict
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrConflict)
		}),
	)
}
