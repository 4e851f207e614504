// Package config provides unified configuration loading for the planogram
// engine. Supports YAML files, environment variables, and programmatic
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the planogram engine.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Data          DataConfig          `yaml:"data"`
	Storage       StorageConfig       `yaml:"storage"`
	Cache         CacheConfig         `yaml:"cache"`
	Viewer        ViewerConfig        `yaml:"viewer"`
	Layout        LayoutConfig        `yaml:"layout"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// DataConfig points at the generated planogram data files.
type DataConfig struct {
	Source     string `yaml:"source"`      // files or store
	Dir        string `yaml:"dir"`         // directory holding stores.json and <type>.json
	PDFDir     string `yaml:"pdf_dir"`     // directory holding pallet.pdf / endcap.pdf
	StoresFile string `yaml:"stores_file"` // defaults to stores.json under Dir
}

// StorageConfig holds planogram store settings.
type StorageConfig struct {
	Driver   string         `yaml:"driver"` // sqlite or postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	JournalMode  string `yaml:"journal_mode"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// CacheConfig holds lookup-cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// ViewerConfig holds PDF viewer settings.
type ViewerConfig struct {
	MinScale  float64 `yaml:"min_scale"`
	MaxScale  float64 `yaml:"max_scale"`
	ZoomStep  float64 `yaml:"zoom_step"`
	ThumbScale float64 `yaml:"thumb_scale"`
	// ExtractWait bounds how long a pre-seeded search waits for text
	// extraction before searching whatever is indexed so far.
	ExtractWait time.Duration `yaml:"extract_wait"`
}

// LayoutConfig holds the shelf layout constants and the data-driven override
// tables for known problem shelves.
type LayoutConfig struct {
	DefaultWidthIn  float64 `yaml:"default_width_in"`
	DefaultHeightIn float64 `yaml:"default_height_in"`
	BasePxPerIn     float64 `yaml:"base_px_per_in"`
	GapPx           float64 `yaml:"gap_px"`
	EndcapPadRight  float64 `yaml:"endcap_pad_right"`
	EndcapZoom      float64 `yaml:"endcap_zoom"`

	// StackOverrides maps a UPC to the number of vertically stacked units
	// rendered per facing.
	StackOverrides map[string]int `yaml:"stack_overrides"`
	// ShelfScaleBoosts maps "<side>-<shelf>" to a scale multiplier applied
	// to non-stacked cards on that shelf.
	ShelfScaleBoosts map[string]float64 `yaml:"shelf_scale_boosts"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json or console
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults. The layout
// constants mirror the printed planogram sheets the data files are generated
// from; the override tables ship the two known problem fixtures.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8090,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     30 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 10 * time.Second,
		},
		Data: DataConfig{
			Source:     "files",
			Dir:        "data",
			PDFDir:     "pdfs",
			StoresFile: "stores.json",
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:         "pog-engine.db",
				MaxOpenConns: 1,
				JournalMode:  "WAL",
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        5 * time.Minute,
			MaxEntries: 10000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
			},
		},
		Viewer: ViewerConfig{
			MinScale:    0.25,
			MaxScale:    5.0,
			ZoomStep:    1.25,
			ThumbScale:  0.3,
			ExtractWait: 5 * time.Second,
		},
		Layout: LayoutConfig{
			DefaultWidthIn:  2.5,
			DefaultHeightIn: 6.0,
			BasePxPerIn:     7.2,
			GapPx:           4,
			EndcapPadRight:  24,
			EndcapZoom:      2.0,
			StackOverrides: map[string]int{
				"7548609166":   4,
				"934710805107": 3,
			},
			ShelfScaleBoosts: map[string]float64{
				"4-2": 1.2,
				"2-1": 1.2,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Data.Source != "files" && c.Data.Source != "store" {
		return fmt.Errorf("invalid data source: %s", c.Data.Source)
	}
	if c.Storage.Driver != "sqlite" && c.Storage.Driver != "postgres" {
		return fmt.Errorf("invalid storage driver: %s", c.Storage.Driver)
	}
	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}
	if c.Viewer.MinScale <= 0 || c.Viewer.MaxScale <= c.Viewer.MinScale {
		return fmt.Errorf("invalid viewer scale bounds: [%g, %g]", c.Viewer.MinScale, c.Viewer.MaxScale)
	}
	if c.Viewer.ZoomStep <= 1 {
		return fmt.Errorf("zoom_step must be greater than 1, got %g", c.Viewer.ZoomStep)
	}
	if c.Layout.DefaultWidthIn <= 0 || c.Layout.DefaultHeightIn <= 0 {
		return fmt.Errorf("default product dimensions must be positive")
	}
	if c.Layout.BasePxPerIn <= 0 {
		return fmt.Errorf("base_px_per_in must be positive, got %g", c.Layout.BasePxPerIn)
	}
	for upc, stack := range c.Layout.StackOverrides {
		if stack < 1 {
			return fmt.Errorf("stack override for %s must be at least 1, got %d", upc, stack)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POG_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("POG_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("POG_DATA_SOURCE"); v != "" {
		cfg.Data.Source = v
	}
	if v := os.Getenv("POG_DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("POG_PDF_DIR"); v != "" {
		cfg.Data.PDFDir = v
	}
	if v := os.Getenv("POG_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("POG_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLite.Path = v
	}
	if v := os.Getenv("POG_POSTGRES_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("POG_CACHE_DRIVER"); v != "" {
		cfg.Cache.Driver = v
	}
	if v := os.Getenv("POG_REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
	}
	if v := os.Getenv("POG_REDIS_PASSWORD"); v != "" {
		cfg.Cache.Redis.Password = v
	}
	if v := os.Getenv("POG_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("POG_LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
