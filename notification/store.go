package notification

import (
	"context"
	"errors"
	"slices"
	"sync"
)

var ErrEmptyMessage = errors.New("notification message cannot be empty")

// MemoryStore keeps each user's notifications newest first.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string][]Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string][]Notification)}
}

// Fetch returns a copy of the user's notifications, newest first.
func (s *MemoryStore) Fetch(ctx context.Context, username string) ([]Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.users[username]), nil
}

// Store assigns n a fresh id, stamps it if it carries no creation time,
// and returns what was stored.
func (s *MemoryStore) Store(ctx context.Context, username string, n Notification) (Notification, error) {
	if err := ctx.Err(); err != nil {
		return Notification{}, err
	}
	if n.Message == "" {
		return Notification{}, ErrEmptyMessage
	}

	id, at := NextID()
	n.ID = id
	n.Unseen = false
	if n.CreatedAt.IsZero() {
		n.CreatedAt = at
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := append(s.users[username], n)
	slices.SortStableFunc(list, Compare)
	s.users[username] = list
	return n, nil
}

// Remove deletes the given ids and reports how many were present.
func (s *MemoryStore) Remove(ctx context.Context, username string, ids []uint64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.users[username]
	before := len(list)
	list = slices.DeleteFunc(list, func(n Notification) bool {
		return slices.Contains(ids, n.ID)
	})
	if len(list) == 0 {
		delete(s.users, username)
	} else {
		s.users[username] = list
	}
	return before - len(list), nil
}

func (s *MemoryStore) RemoveAll(ctx context.Context, username string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, username)
	return nil
}
