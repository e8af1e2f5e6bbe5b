package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Server struct {
	ListenAddr string `env:"LISTEN_ADDR, default=0.0.0.0:8080"`
	// Dev logs at debug level and turns off the security headers.
	Dev bool `env:"DEV, default=false"`
}

type Log struct {
	Level string `env:"LEVEL, default=info"`
}

const (
	BackendMemory = "memory"
	BackendSqlite = "sqlite"
	BackendRedis  = "redis"
)

type Store struct {
	Backend    string `env:"BACKEND, default=memory"`
	SqlitePath string `env:"SQLITE_PATH, default=notifications.db"`
	// Attempts bounds how often a conflicting write is retried.
	Attempts uint `env:"ATTEMPTS, default=5"`
}

type Redis struct {
	Addr     string `env:"ADDR, default=localhost:6379"`
	Password string `env:"PASS"`
	DB       int    `env:"DB, default=0"`
}

type Cache struct {
	Enabled bool  `env:"ENABLED, default=false"`
	MaxCost int64 `env:"MAX_COST, default=1048576"`
}

type Telemetry struct {
	// Spans go to stdout in dev mode and to the OTEL_EXPORTER_OTLP_*
	// endpoint otherwise.
	Enabled bool `env:"ENABLED, default=false"`
}

type Page struct {
	DefaultLimit int `env:"DEFAULT_LIMIT, default=20"`
	MaxLimit     int `env:"MAX_LIMIT, default=100"`
}

type Client struct {
	Endpoint string        `env:"ENDPOINT, default=http://localhost:8080"`
	Timeout  time.Duration `env:"TIMEOUT, default=5s"`
	MaxPages int           `env:"MAX_PAGES, default=100"`
}

type Config struct {
	Server    Server    `env:",prefix=NOTIFY_SERVER_"`
	Log       Log       `env:",prefix=NOTIFY_LOG_"`
	Store     Store     `env:",prefix=NOTIFY_STORE_"`
	Redis     Redis     `env:",prefix=NOTIFY_REDIS_"`
	Cache     Cache     `env:",prefix=NOTIFY_CACHE_"`
	Page      Page      `env:",prefix=NOTIFY_PAGE_"`
	Client    Client    `env:",prefix=NOTIFY_CLIENT_"`
	Telemetry Telemetry `env:",prefix=NOTIFY_TELEMETRY_"`
}

func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	})
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendSqlite, BackendRedis:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Attempts == 0 {
		return fmt.Errorf("store attempts must be at least 1")
	}
	if c.Page.DefaultLimit <= 0 || c.Page.MaxLimit <= 0 {
		return fmt.Errorf("page limits must be positive")
	}
	if c.Page.DefaultLimit > c.Page.MaxLimit {
		return fmt.Errorf("default page limit %d exceeds max %d", c.Page.DefaultLimit, c.Page.MaxLimit)
	}
	if c.Cache.Enabled && c.Cache.MaxCost <= 0 {
		return fmt.Errorf("cache max cost must be positive")
	}
	return nil
}
