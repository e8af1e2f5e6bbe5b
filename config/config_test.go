package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.ListenAddr)
	assert.False(t, cfg.Server.Dev)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, uint(5), cfg.Store.Attempts)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 20, cfg.Page.DefaultLimit)
	assert.Equal(t, 100, cfg.Page.MaxLimit)
	assert.Equal(t, 5*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 100, cfg.Client.MaxPages)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"NOTIFY_SERVER_LISTEN_ADDR": "127.0.0.1:9000",
		"NOTIFY_SERVER_DEV":         "true",
		"NOTIFY_LOG_LEVEL":          "debug",
		"NOTIFY_STORE_BACKEND":      "redis",
		"NOTIFY_REDIS_ADDR":         "redis:6380",
		"NOTIFY_REDIS_PASS":         "hunter2",
		"NOTIFY_REDIS_DB":           "3",
		"NOTIFY_CACHE_ENABLED":      "true",
		"NOTIFY_CACHE_MAX_COST":     "4096",
		"NOTIFY_PAGE_DEFAULT_LIMIT": "10",
		"NOTIFY_PAGE_MAX_LIMIT":     "50",
		"NOTIFY_CLIENT_ENDPOINT":    "https://notify.example.com",
		"NOTIFY_CLIENT_TIMEOUT":     "30s",
		"NOTIFY_TELEMETRY_ENABLED":  "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.ListenAddr)
	assert.True(t, cfg.Server.Dev)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, Redis{Addr: "redis:6380", Password: "hunter2", DB: 3}, cfg.Redis)
	assert.Equal(t, Cache{Enabled: true, MaxCost: 4096}, cfg.Cache)
	assert.Equal(t, Page{DefaultLimit: 10, MaxLimit: 50}, cfg.Page)
	assert.Equal(t, "https://notify.example.com", cfg.Client.Endpoint)
	assert.Equal(t, 30*time.Second, cfg.Client.Timeout)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"NOTIFY_STORE_BACKEND": "cassandra"}},
		{"zero attempts", map[string]string{"NOTIFY_STORE_ATTEMPTS": "0"}},
		{"default above max", map[string]string{"NOTIFY_PAGE_DEFAULT_LIMIT": "200"}},
		{"negative max", map[string]string{"NOTIFY_PAGE_MAX_LIMIT": "-1"}},
		{"cache without room", map[string]string{"NOTIFY_CACHE_ENABLED": "true", "NOTIFY_CACHE_MAX_COST": "0"}},
		{"bad duration", map[string]string{"NOTIFY_CLIENT_TIMEOUT": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(context.Background(), envconfig.MapLookuper(tt.env))
			assert.Error(t, err)
		})
	}
}
