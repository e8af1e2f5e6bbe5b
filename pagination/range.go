package pagination

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// RangeHeader is the token format the server hands out, in the style of
// "id ]1234..; max=20": items with id strictly below 1234, at most 20 of
// them. A leading "]" makes the start exclusive, a trailing "[" makes the
// end exclusive. Clients never look inside it.
type RangeHeader struct {
	Field string

	From          uint64
	HasFrom       bool
	FromExclusive bool

	To          uint64
	HasTo       bool
	ToExclusive bool

	Max int
}

var rangeRe = regexp.MustCompile(`^([a-z_]+) +(\]|\[)?(\d*)\.\.(\d*)(\]|\[)?(?: *; *max=(\d+))?$`)

func ParseRange(s string) (RangeHeader, error) {
	fail := func(reason string) (RangeHeader, error) {
		return RangeHeader{}, &ProtocolError{Header: HeaderRange, Value: s, Reason: reason}
	}

	m := rangeRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return fail("malformed range")
	}

	r := RangeHeader{
		Field:         m[1],
		FromExclusive: m[2] == "]",
		ToExclusive:   m[5] == "[",
	}

	var err error
	if m[3] != "" {
		if r.From, err = strconv.ParseUint(m[3], 10, 64); err != nil {
			return fail("start out of range")
		}
		r.HasFrom = true
	} else if m[2] != "" {
		return fail("bracket without start")
	}
	if m[4] != "" {
		if r.To, err = strconv.ParseUint(m[4], 10, 64); err != nil {
			return fail("end out of range")
		}
		r.HasTo = true
	} else if m[5] != "" {
		return fail("bracket without end")
	}
	if m[6] != "" {
		if r.Max, err = strconv.Atoi(m[6]); err != nil || r.Max <= 0 {
			return fail("max must be positive")
		}
	}

	return r, nil
}

func (r RangeHeader) String() string {
	var b strings.Builder
	b.WriteString(r.Field)
	b.WriteByte(' ')
	if r.HasFrom {
		if r.FromExclusive {
			b.WriteByte(']')
		}
		b.WriteString(strconv.FormatUint(r.From, 10))
	}
	b.WriteString("..")
	if r.HasTo {
		b.WriteString(strconv.FormatUint(r.To, 10))
		if r.ToExclusive {
			b.WriteByte('[')
		}
	}
	if r.Max > 0 {
		fmt.Fprintf(&b, "; max=%d", r.Max)
	}
	return b.String()
}

// Includes reports whether id falls inside the range. Items run newest
// first, so From is the upper bound and To the lower one.
func (r RangeHeader) Includes(id uint64) bool {
	if r.HasFrom {
		if r.FromExclusive && id >= r.From {
			return false
		}
		if !r.FromExclusive && id > r.From {
			return false
		}
	}
	if r.HasTo {
		if r.ToExclusive && id <= r.To {
			return false
		}
		if !r.ToExclusive && id < r.To {
			return false
		}
	}
	return true
}

// Clamp fills in a default page size and caps it at limit.
func (r RangeHeader) Clamp(defaultMax, limit int) RangeHeader {
	if r.Max <= 0 {
		r.Max = defaultMax
	}
	if limit > 0 && r.Max > limit {
		r.Max = limit
	}
	return r
}
