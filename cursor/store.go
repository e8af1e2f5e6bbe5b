package cursor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"tangled.sh/tangled.sh/notifications/kv"
	"tangled.sh/tangled.sh/notifications/log"
)

const (
	opFetch  = "fetch"
	opStore  = "store"
	opDelete = "delete"
)

// Store persists the last read position of each (user, stream) pair. It
// holds no locks of its own: concurrent writers, possibly in other
// processes, are reconciled by the backend through the resolver.
type Store struct {
	kv      kv.Store
	l       *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	resolve kv.Resolver
}

type StoreOpt func(*Store)

func WithLogger(l *slog.Logger) StoreOpt {
	return func(s *Store) {
		s.l = l
	}
}

func WithMetrics(m *Metrics) StoreOpt {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithTracer records a span per operation.
func WithTracer(t trace.Tracer) StoreOpt {
	return func(s *Store) {
		s.tracer = t
	}
}

// WithResolver replaces HighestPosition as the conflict resolver.
func WithResolver(r kv.Resolver) StoreOpt {
	return func(s *Store) {
		s.resolve = r
	}
}

func NewStore(backend kv.Store, opts ...StoreOpt) *Store {
	s := &Store{
		kv:      backend,
		resolve: HighestPosition,
	}
	for _, o := range opts {
		o(s)
	}
	if s.l == nil {
		s.l = log.New("cursor")
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("")
	}
	return s
}

// Key derives the storage key for a stream. Hyphens inside user or stream
// are not escaped, so ("a-b", "c") and ("a", "b-c") share a key.
func Key(user, stream string) string {
	return user + "-" + stream
}

func validate(user, stream string) error {
	if user == "" {
		return ErrEmptyUser
	}
	if stream == "" {
		return ErrEmptyStream
	}
	return nil
}

// Fetch returns the stored position; ok is false when there is none.
func (s *Store) Fetch(ctx context.Context, user, stream string) (position uint64, ok bool, err error) {
	if err := validate(user, stream); err != nil {
		return 0, false, err
	}
	key := Key(user, stream)
	ctx, span := s.startSpan(ctx, opFetch, key)
	defer span.End()

	start := time.Now()
	value, err := await(ctx, func(ctx context.Context) ([]byte, error) {
		return s.kv.Get(ctx, key)
	})
	if errors.Is(err, kv.ErrNotFound) {
		s.metrics.observe(opFetch, start, nil)
		return 0, false, nil
	}
	if err == nil {
		position, err = decodePosition(value)
		if err != nil {
			err = fmt.Errorf("corrupt position %q: %w", value, err)
		}
	}
	s.metrics.observe(opFetch, start, err)
	if err != nil {
		return 0, false, s.fail(span, opFetch, key, err)
	}

	return position, true, nil
}

// Store upserts the position for a stream.
func (s *Store) Store(ctx context.Context, user, stream string, position uint64) error {
	if err := validate(user, stream); err != nil {
		return err
	}
	key := Key(user, stream)
	ctx, span := s.startSpan(ctx, opStore, key)
	defer span.End()
	span.SetAttributes(attribute.Int64("cursor.position", int64(position)))

	start := time.Now()
	_, err := await(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.kv.Put(ctx, key, encodePosition(position), s.resolve)
	})
	s.metrics.observe(opStore, start, err)
	if err != nil {
		return s.fail(span, opStore, key, err)
	}

	s.l.Debug("stored cursor", "key", key, "position", position)
	return nil
}

// Delete removes the stream's position. Removing a missing one succeeds.
func (s *Store) Delete(ctx context.Context, user, stream string) error {
	if err := validate(user, stream); err != nil {
		return err
	}
	key := Key(user, stream)
	ctx, span := s.startSpan(ctx, opDelete, key)
	defer span.End()

	start := time.Now()
	_, err := await(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.kv.Delete(ctx, key)
	})
	if errors.Is(err, kv.ErrNotFound) {
		err = nil
	}
	s.metrics.observe(opDelete, start, err)
	if err != nil {
		return s.fail(span, opDelete, key, err)
	}

	return nil
}

func (s *Store) startSpan(ctx context.Context, op, key string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "cursor."+op, trace.WithAttributes(attribute.String("cursor.key", key)))
}

func (s *Store) fail(span trace.Span, op, key string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op+" failed")
	s.l.Error("cursor store operation failed", "op", op, "key", key, "err", err)
	return &OpError{Op: op, Key: key, Err: err}
}

type result[T any] struct {
	v   T
	err error
}

// await runs one backend call and waits for it or for ctx, whichever comes
// first. A call abandoned on cancellation finishes in the background; its
// result is dropped.
func await[T any](ctx context.Context, call func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	done := make(chan result[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result[T]{err: fmt.Errorf("backend panic: %v", r)}
			}
		}()
		v, err := call(ctx)
		done <- result[T]{v: v, err: err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
