package cursor

import (
	"errors"
	"strconv"
)

// HighestPosition is the default sibling resolver: every sibling becomes a
// Cursor on the same key, and the first one in Compare order, which is the
// most advanced position, is kept. Siblings that are not positions are
// ignored.
func HighestPosition(siblings [][]byte) ([]byte, error) {
	cs := make([]Cursor, 0, len(siblings))
	for _, s := range siblings {
		if _, err := decodePosition(s); err != nil {
			continue
		}
		cs = append(cs, New("", string(s)))
	}

	if len(cs) == 0 {
		if len(siblings) == 0 {
			return nil, errors.New("no siblings to resolve")
		}
		// nothing decodes; keep the local write
		return siblings[len(siblings)-1], nil
	}

	Sort(cs)
	return []byte(cs[0].Value()), nil
}

func encodePosition(position uint64) []byte {
	return strconv.AppendUint(nil, position, 10)
}

func decodePosition(b []byte) (uint64, error) {
	return strconv.ParseUint(string(b), 10, 64)
}
