// Package notification holds the item type served by the notification
// API and an in-memory store for it.
package notification

import (
	"cmp"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
)

type Notification struct {
	ID        uint64    `json:"id,omitempty"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	Unseen    bool      `json:"unseen,omitempty"`
}

// Compare orders notifications newest first. IDs grow with time, so the
// highest ID comes first.
func Compare(a, b Notification) int {
	return cmp.Compare(b.ID, a.ID)
}

func ID(n Notification) uint64 {
	return n.ID
}

var tidClock = syntax.NewTIDClock(0)

// NextID hands out ids that grow monotonically across the process, along
// with the time they encode.
func NextID() (uint64, time.Time) {
	tid := tidClock.Next()
	return tid.Integer(), tid.Time()
}
