package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "files", cfg.Data.Source)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.InDelta(t, 2.5, cfg.Layout.DefaultWidthIn, 1e-9)
	assert.InDelta(t, 7.2, cfg.Layout.BasePxPerIn, 1e-9)
	assert.Equal(t, 4, cfg.Layout.StackOverrides["7548609166"])
	assert.InDelta(t, 1.2, cfg.Layout.ShelfScaleBoosts["4-2"], 1e-9)
	assert.InDelta(t, 1.25, cfg.Viewer.ZoomStep, 1e-9)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
data:
  dir: /srv/pog/data
layout:
  gap_px: 6
viewer:
  extract_wait: 10s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/srv/pog/data", cfg.Data.Dir)
	assert.InDelta(t, 6, cfg.Layout.GapPx, 1e-9)
	assert.Equal(t, 10*time.Second, cfg.Viewer.ExtractWait)
	// Unset keys keep their defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("POG_SERVER_PORT", "7070")
	t.Setenv("POG_CACHE_DRIVER", "redis")
	t.Setenv("POG_REDIS_ADDR", "redis.internal:6379")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "redis.internal:6379", cfg.Cache.Redis.Addr)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad data source", func(c *Config) { c.Data.Source = "s3" }},
		{"bad storage driver", func(c *Config) { c.Storage.Driver = "mysql" }},
		{"bad cache driver", func(c *Config) { c.Cache.Driver = "memcached" }},
		{"inverted scale bounds", func(c *Config) { c.Viewer.MaxScale = 0.1 }},
		{"zoom step too small", func(c *Config) { c.Viewer.ZoomStep = 1.0 }},
		{"zero default width", func(c *Config) { c.Layout.DefaultWidthIn = 0 }},
		{"zero base scale", func(c *Config) { c.Layout.BasePxPerIn = 0 }},
		{"bad stack override", func(c *Config) { c.Layout.StackOverrides = map[string]int{"1": 0} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
