package kv

import (
	"context"
	"errors"

	"github.com/avast/retry-go/v4"
	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	rdb      redis.UniversalClient
	prefix   string
	attempts uint
}

type RedisStoreOpt func(*RedisStore)

// WithKeyPrefix namespaces every key, e.g. "cursor:".
func WithKeyPrefix(prefix string) RedisStoreOpt {
	return func(r *RedisStore) {
		r.prefix = prefix
	}
}

func WithRedisAttempts(n uint) RedisStoreOpt {
	return func(r *RedisStore) {
		r.attempts = n
	}
}

func NewRedisStore(rdb redis.UniversalClient, opts ...RedisStoreOpt) *RedisStore {
	r := &RedisStore{
		rdb:      rdb,
		attempts: DefaultAttempts,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// NewRedisClient dials a single redis node.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Put watches the key for the duration of the read-modify-write. A watch
// failure means someone else wrote first; the next attempt resolves our
// value against theirs.
func (r *RedisStore) Put(ctx context.Context, key string, value []byte, resolve Resolver) error {
	if resolve == nil {
		resolve = LastWriterWins
	}
	key = r.prefix + key
	attempts := r.attempts
	if attempts == 0 {
		attempts = DefaultAttempts
	}

	conflicted := false
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		next := value
		if conflicted && err == nil {
			next, err = resolve([][]byte{current, value})
			if err != nil {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}

	return retry.Do(
		func() error {
			err := r.rdb.Watch(ctx, txf, key)
			if errors.Is(err, redis.TxFailedErr) {
				conflicted = true
				return ErrConflict
			}
			return err
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

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.prefix+key).Err()
}
