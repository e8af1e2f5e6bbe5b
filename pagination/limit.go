package pagination

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

// Doer is the part of *http.Client the driver needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type limitedDoer struct {
	next Doer
	max  int64
	n    atomic.Int64
}

// LimitPages wraps a client so that it refuses to send more than max
// requests, failing the walk with ErrPageLimit instead. The count is kept
// for the lifetime of the returned Doer; wrap once per walk.
func LimitPages(next Doer, max int) Doer {
	return &limitedDoer{next: next, max: int64(max)}
}

func (l *limitedDoer) Do(req *http.Request) (*http.Response, error) {
	if n := l.n.Add(1); n > l.max {
		return nil, fmt.Errorf("%w: %d requests", ErrPageLimit, l.max)
	}
	return l.next.Do(req)
}
