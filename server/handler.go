package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"tangled.sh/tangled.sh/notifications/config"
	"tangled.sh/tangled.sh/notifications/cursor"
	tlog "tangled.sh/tangled.sh/notifications/log"
	"tangled.sh/tangled.sh/notifications/notification"
)

// CursorStream names the cursor that remembers the newest notification
// each user has been shown.
const CursorStream = "notifications"

type Handle struct {
	c             *config.Config
	notifications *notification.MemoryStore
	cursors       *cursor.Store
	l             *slog.Logger
}

// Setup wires the routes. Metrics are served on /metrics when reg is not
// nil; mw runs ahead of everything else.
func Setup(c *config.Config, n *notification.MemoryStore, cs *cursor.Store, reg *prometheus.Registry, l *slog.Logger, mw ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	h := Handle{
		c:             c,
		notifications: n,
		cursors:       cs,
		l:             l,
	}

	r.Use(mw...)
	r.Use(h.RequestID)
	r.Use(h.RequestLogger)
	if !c.Server.Dev {
		r.Use(SecurityHeaders)
	}

	r.Get("/ping", h.Ping)
	r.Get("/version", h.Version)
	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	r.Route("/v1/notifications/{username}", func(r chi.Router) {
		r.Get("/", h.FetchNotifications)
		r.Post("/", h.StoreNotification)
		r.Delete("/", h.DeleteNotifications)
	})

	return r
}

// logger returns the request-scoped logger installed by RequestID.
func (h *Handle) logger(r *http.Request) *slog.Logger {
	return tlog.FromContext(r.Context())
}
