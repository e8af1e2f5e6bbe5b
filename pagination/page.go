// Package pagination carries lists across HTTP one bounded page at a time.
//
// A client asks for the first page with a plain GET. When more data
// follows, the server answers with a Next-Range header; the client sends
// that value back verbatim as its Range header to get the next page. A
// response without Next-Range is the last one. The server keeps no
// session: the token is all it needs.
package pagination

import (
	"context"
	"net/http"
)

const (
	HeaderRange     = "Range"
	HeaderNextRange = "Next-Range"
)

// Page is one response of a paginated walk.
type Page[T any] struct {
	Number int // 1-based
	Status int
	Items  []T
	// Next is the continuation token; HasNext reports whether the server
	// sent one.
	Next    string
	HasNext bool
}

// IsSuccess reports whether a status carries items: full or partial
// content.
func IsSuccess(status int) bool {
	return status == http.StatusOK || status == http.StatusPartialContent
}

func (p Page[T]) Success() bool {
	return IsSuccess(p.Status)
}

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// FirstPage is the range a request without a Range header asks for.
func FirstPage() RangeHeader {
	return RangeHeader{
		Field: "id",
		Max:   DefaultLimit,
	}
}

type ctxKey struct{}

func IntoContext(ctx context.Context, r RangeHeader) context.Context {
	return context.WithValue(ctx, ctxKey{}, r)
}

func FromContext(ctx context.Context) RangeHeader {
	if ctx == nil {
		return FirstPage()
	}
	r, ok := ctx.Value(ctxKey{}).(RangeHeader)
	if !ok {
		return FirstPage()
	}
	return r
}
