package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"
	"tangled.sh/tangled.sh/notifications/log"
)

type Config struct {
	// Client sends the requests; http.DefaultClient when nil. Wrap it
	// with LimitPages to bound a walk.
	Client Doer
	Logger *slog.Logger
	// Accept is sent on every request, application/json by default.
	Accept    string
	UserAgent string
}

// Driver walks a paginated resource to the end. One walk issues one
// request at a time because each request depends on the previous
// response; separate walks share nothing and may run concurrently.
type Driver[T any] struct {
	client    Doer
	l         *slog.Logger
	accept    string
	userAgent string
	compare   func(a, b T) int
}

func NewDriver[T any](cfg Config, compare func(a, b T) int) *Driver[T] {
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New("pagination")
	}
	if cfg.Accept == "" {
		cfg.Accept = "application/json"
	}
	return &Driver[T]{
		client:    cfg.Client,
		l:         cfg.Logger,
		accept:    cfg.Accept,
		userAgent: cfg.UserAgent,
		compare:   compare,
	}
}

// FetchAll returns every item of target, ordered by compare without
// duplicates. Pages with a status other than 200 or 206 contribute
// nothing but do not stop the walk. On error nothing is returned.
func (d *Driver[T]) FetchAll(ctx context.Context, target string) ([]T, error) {
	set := NewSet(d.compare)

	err := d.Walk(ctx, target, func(p Page[T]) error {
		if !p.Success() {
			d.l.Warn("skipping page", "url", target, "page", p.Number, "status", p.Status, "has_next", p.HasNext)
			return nil
		}
		set.Add(p.Items...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return set.Values(), nil
}

// Walk calls fn with each page in order until a page arrives without a
// continuation token, or fn or the transport fails.
func (d *Driver[T]) Walk(ctx context.Context, target string, fn func(Page[T]) error) error {
	var (
		token    string
		hasToken bool
	)

	for n := 1; ; n++ {
		page, err := d.fetch(ctx, target, n, token, hasToken)
		if err != nil {
			return err
		}

		if err := fn(page); err != nil {
			return err
		}

		if !page.HasNext {
			return nil
		}
		token, hasToken = page.Next, true
	}
}

func (d *Driver[T]) fetch(ctx context.Context, target string, n int, token string, hasToken bool) (Page[T], error) {
	page := Page[T]{Number: n}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return page, err
	}
	req.Header.Set("Accept", d.accept)
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	if hasToken {
		req.Header.Set(HeaderRange, token)
	}

	d.l.Info("GET", "url", target, "page", n, "range", token)
	resp, err := d.client.Do(req)
	if err != nil {
		return page, fmt.Errorf("fetching page %d of %s: %w", n, target, err)
	}
	defer func() {
		// drain so the connection can be reused
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	page.Status = resp.StatusCode
	page.Next, page.HasNext, err = nextToken(resp.Header)
	if err != nil {
		return page, err
	}

	if page.Success() {
		err := json.NewDecoder(resp.Body).Decode(&page.Items)
		if err != nil && !errors.Is(err, io.EOF) {
			return page, fmt.Errorf("decoding page %d of %s: %w", n, target, err)
		}
	}

	return page, nil
}

func nextToken(h http.Header) (string, bool, error) {
	values := h.Values(HeaderNextRange)
	switch len(values) {
	case 0:
		return "", false, nil
	case 1:
	default:
		return "", false, &ProtocolError{Header: HeaderNextRange, Value: strings.Join(values, ", "), Reason: "sent more than once"}
	}

	v := values[0]
	if strings.TrimSpace(v) == "" {
		return "", false, &ProtocolError{Header: HeaderNextRange, Value: v, Reason: "empty token"}
	}
	if !httpguts.ValidHeaderFieldValue(v) {
		return "", false, &ProtocolError{Header: HeaderNextRange, Value: v, Reason: "not a valid header value"}
	}
	return v, true, nil
}
