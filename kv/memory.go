package kv

import (
	"bytes"
	"context"
	"sync"
)

type memoryEntry struct {
	value []byte
	rev   revision
}

// MemoryStore is a process-local Store. The zero value is ready to use.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	// seq hands out revisions store-wide, so a key that is deleted and
	// created again never repeats a revision a stale writer may hold.
	seq revision

	// BeforeWrite, when set, runs between the read and the write of every
	// Put attempt. Tests use it to inject a competing writer.
	BeforeWrite func(key string)
	Attempts    uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	value, _, err := m.read(ctx, key)
	return value, err
}

func (m *MemoryStore) Put(ctx context.Context, key string, value []byte, resolve Resolver) error {
	return update(ctx, key, value, resolve, m.Attempts, m.read, m.write)
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryStore) read(_ context.Context, key string) ([]byte, revision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, 0, ErrNotFound
	}
	return bytes.Clone(e.value), e.rev, nil
}

func (m *MemoryStore) write(ctx context.Context, key string, value []byte, rev revision) (bool, error) {
	if m.BeforeWrite != nil {
		m.BeforeWrite(key)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.entries == nil {
		m.entries = make(map[string]memoryEntry)
	}
	if m.entries[key].rev != rev {
		return false, nil
	}
	m.seq++
	m.entries[key] = memoryEntry{value: bytes.Clone(value), rev: m.seq}
	return true, nil
}
