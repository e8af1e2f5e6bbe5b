package pagination

import (
	"github.com/emirpasic/gods/sets/treeset"
)

// Set accumulates items in compare order. Items that compare equal to one
// already present are dropped, so the first one added wins and adding the
// same item twice is a no-op.
type Set[T any] struct {
	tree *treeset.Set
}

func NewSet[T any](compare func(a, b T) int) *Set[T] {
	return &Set[T]{
		tree: treeset.NewWith(func(a, b interface{}) int {
			return compare(a.(T), b.(T))
		}),
	}
}

func (s *Set[T]) Add(items ...T) {
	for _, it := range items {
		// treeset replaces equal keys; keep the earlier one
		if s.tree.Contains(it) {
			continue
		}
		s.tree.Add(it)
	}
}

func (s *Set[T]) Len() int {
	return s.tree.Size()
}

func (s *Set[T]) Values() []T {
	out := make([]T, 0, s.tree.Size())
	for _, v := range s.tree.Values() {
		out = append(out, v.(T))
	}
	return out
}
