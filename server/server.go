package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"tangled.sh/tangled.sh/notifications/config"
	"tangled.sh/tangled.sh/notifications/cursor"
	"tangled.sh/tangled.sh/notifications/log"
	"tangled.sh/tangled.sh/notifications/notification"
	"tangled.sh/tangled.sh/notifications/telemetry"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "run the notification server",
		Action: Run,
		Description: `
Environment variables:
	NOTIFY_SERVER_LISTEN_ADDR   (default: 0.0.0.0:8080)
	NOTIFY_SERVER_DEV           (default: false)
	NOTIFY_LOG_LEVEL            (default: info)
	NOTIFY_STORE_BACKEND        (memory, sqlite or redis; default: memory)
	NOTIFY_STORE_SQLITE_PATH    (default: notifications.db)
	NOTIFY_STORE_ATTEMPTS       (default: 5)
	NOTIFY_REDIS_ADDR           (default: localhost:6379)
	NOTIFY_REDIS_PASS
	NOTIFY_REDIS_DB             (default: 0)
	NOTIFY_CACHE_ENABLED        (default: false)
	NOTIFY_CACHE_MAX_COST       (default: 1048576)
	NOTIFY_PAGE_DEFAULT_LIMIT   (default: 20)
	NOTIFY_PAGE_MAX_LIMIT       (default: 100)
	NOTIFY_TELEMETRY_ENABLED    (default: false)
`,
	}
}

func Run(ctx context.Context, cmd *cli.Command) error {
	c, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := c.Log.Level
	if c.Server.Dev {
		level = "debug"
	}
	logger := log.NewWithLevel("notifyd", level)

	backend, closeBackend, err := OpenBackend(ctx, c)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", c.Store.Backend, err)
	}
	defer func() {
		if err := closeBackend(); err != nil {
			logger.Error("closing store", "err", err)
		}
	}()
	logger.Info("opened store", "backend", c.Store.Backend, "cache", c.Cache.Enabled)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := cursor.NewMetrics()
	reg.MustRegister(metrics.Collectors()...)

	opts := []cursor.StoreOpt{
		cursor.WithLogger(log.SubLogger(logger, "cursor")),
		cursor.WithMetrics(metrics),
	}
	var mw []func(http.Handler) http.Handler
	if c.Telemetry.Enabled {
		tel, err := telemetry.NewTelemetry(ctx, "notifyd", Version(), c.Server.Dev)
		if err != nil {
			return fmt.Errorf("failed to set up telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tel.Shutdown(shutdownCtx); err != nil {
				logger.Error("flushing spans", "err", err)
			}
		}()
		opts = append(opts, cursor.WithTracer(tel.Tracer()))
		mw = append(mw, tel.Middleware())
		logger.Info("tracing enabled")
	}

	cursors := cursor.NewStore(backend, opts...)

	mux := Setup(c, notification.NewMemoryStore(), cursors, reg, logger, mw...)
	srv := &http.Server{
		Addr:              c.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutting down", "err", err)
		}
	}()

	logger.Info("starting server", "address", c.Server.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("server stopped")

	return nil
}
