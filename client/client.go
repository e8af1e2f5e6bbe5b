// Package client talks to a notification server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"tangled.sh/tangled.sh/notifications/log"
	"tangled.sh/tangled.sh/notifications/notification"
	"tangled.sh/tangled.sh/notifications/pagination"
)

var userAgent = "notifyctl/" + versioninfo.Short()

var (
	ErrEmptyUsername = errors.New("username cannot be empty")
	ErrNoIDs         = errors.New("ids cannot be empty")
)

// StatusError is a response outside the 2xx range.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.URL, e.Code, http.StatusText(e.Code), e.Body)
}

type NotificationClient struct {
	Url      *url.URL
	client   *http.Client
	timeout  time.Duration
	l        *slog.Logger
	maxPages int
}

type Opt func(*NotificationClient)

func WithHTTPClient(c *http.Client) Opt {
	return func(nc *NotificationClient) {
		nc.client = c
	}
}

// WithTimeout sets the per-request timeout. It applies to this client
// only and leaves a client passed to WithHTTPClient untouched.
func WithTimeout(d time.Duration) Opt {
	return func(nc *NotificationClient) {
		nc.timeout = d
	}
}

// WithMaxPages bounds how many pages a single Fetch may request. Zero
// means unbounded.
func WithMaxPages(n int) Opt {
	return func(nc *NotificationClient) {
		nc.maxPages = n
	}
}

func WithLogger(l *slog.Logger) Opt {
	return func(nc *NotificationClient) {
		nc.l = l
	}
}

func New(endpoint string, opts ...Opt) (*NotificationClient, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}

	nc := &NotificationClient{
		Url: u,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		l: log.New("client"),
	}
	for _, opt := range opts {
		opt(nc)
	}
	if nc.timeout > 0 {
		hc := *nc.client
		hc.Timeout = nc.timeout
		nc.client = &hc
	}

	return nc, nil
}

func (c *NotificationClient) target(username string) (*url.URL, error) {
	if username == "" {
		return nil, ErrEmptyUsername
	}
	return c.Url.JoinPath("/v1/notifications", url.PathEscape(username)), nil
}

func (c *NotificationClient) newRequest(ctx context.Context, method string, u *url.URL, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *NotificationClient) send(req *http.Request) ([]byte, error) {
	c.l.Debug(req.Method, "url", req.URL.String())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method: req.Method,
			URL:    req.URL.String(),
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
	}
	return body, nil
}

func do[T any](c *NotificationClient, req *http.Request) (*T, error) {
	body, err := c.send(req)
	if err != nil {
		return nil, err
	}

	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		c.l.Error("unmarshalling response body", "url", req.URL.String(), "err", err)
		return nil, err
	}
	return &result, nil
}

// Fetch returns every notification of username, newest first, following
// the server's pages to the end.
func (c *NotificationClient) Fetch(ctx context.Context, username string) ([]notification.Notification, error) {
	u, err := c.target(username)
	if err != nil {
		return nil, err
	}

	var doer pagination.Doer = c.client
	if c.maxPages > 0 {
		doer = pagination.LimitPages(doer, c.maxPages)
	}

	driver := pagination.NewDriver(pagination.Config{
		Client:    doer,
		Logger:    c.l,
		UserAgent: userAgent,
	}, notification.Compare)

	return driver.FetchAll(ctx, u.String())
}

// Store adds a notification for username and returns it as stored,
// carrying its new id.
func (c *NotificationClient) Store(ctx context.Context, username string, n notification.Notification) (*notification.Notification, error) {
	u, err := c.target(username)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, err
	}
	return do[notification.Notification](c, req)
}

// Delete removes individual notifications of username.
func (c *NotificationClient) Delete(ctx context.Context, username string, ids []uint64) error {
	if len(ids) == 0 {
		return ErrNoIDs
	}
	u, err := c.target(username)
	if err != nil {
		return err
	}

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatUint(id, 10))
	}
	query := url.Values{}
	query.Set("ids", strings.Join(parts, ","))
	u.RawQuery = query.Encode()

	req, err := c.newRequest(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	_, err = c.send(req)
	return err
}

// DeleteAll removes every notification of username.
func (c *NotificationClient) DeleteAll(ctx context.Context, username string) error {
	u, err := c.target(username)
	if err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	_, err = c.send(req)
	return err
}

// Ping reports whether the server answered its health check.
func (c *NotificationClient) Ping(ctx context.Context) (bool, error) {
	body, err := c.text(ctx, "/ping")
	if err != nil {
		return false, err
	}
	return body == "pong", nil
}

func (c *NotificationClient) Version(ctx context.Context) (string, error) {
	return c.text(ctx, "/version")
}

func (c *NotificationClient) text(ctx context.Context, endpoint string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.Url.JoinPath(endpoint), nil)
	if err != nil {
		return "", err
	}
	body, err := c.send(req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

func (c *NotificationClient) Close() {
	c.client.CloseIdleConnections()
}
