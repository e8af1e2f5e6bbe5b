package cursor

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Cursor marks a position in a per-user stream. Key identifies the stream
// (usually "<user>-<stream>") and Value is the position, which compares
// numerically. Cursors are values; there are no setters.
type Cursor struct {
	key   string
	value string
}

func New(key, value string) Cursor {
	return Cursor{key: key, value: value}
}

func (c Cursor) Key() string   { return c.key }
func (c Cursor) Value() string { return c.value }

func (c Cursor) Equal(o Cursor) bool {
	return c.key == o.key && c.value == o.value
}

func (c Cursor) String() string {
	return fmt.Sprintf("Cursor{key=%s, value=%s}", c.key, c.value)
}

// Compare orders cursors by key ascending, then by value descending so the
// most advanced cursor of a stream comes first. Compare(a, b) == 0 exactly
// when a.Equal(b).
func Compare(a, b Cursor) int {
	if c := strings.Compare(a.key, b.key); c != 0 {
		return c
	}
	return compareValues(b.value, a.value)
}

// compareValues is an ascending comparison. Numeric values rank above
// non-numeric ones; "07" and "7" are numerically equal and are split by
// their spelling.
func compareValues(a, b string) int {
	an, aerr := strconv.ParseUint(a, 10, 64)
	bn, berr := strconv.ParseUint(b, 10, 64)

	switch {
	case aerr == nil && berr == nil:
		if an < bn {
			return -1
		}
		if an > bn {
			return 1
		}
	case aerr == nil:
		return 1
	case berr == nil:
		return -1
	}

	return strings.Compare(a, b)
}

// Sort orders cursors in place using Compare.
func Sort(cs []Cursor) {
	slices.SortFunc(cs, Compare)
}
