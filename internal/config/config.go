// Package config loads the ingest daemon configuration from a YAML file and
// environment variables, with sane defaults for local development.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"wx_decoder/internal/storage"
)

// Config holds all configuration for the ingest daemon.
type Config struct {
	NATS     NATSConfig
	Fetch    FetchConfig
	Archive  ArchiveConfig
	Sinks    SinksConfig
	Metrics  MetricsConfig
	Log      LogConfig
	Stations []string
}

// NATSConfig holds feed connection settings.
type NATSConfig struct {
	URL      string
	Subjects []string
}

// FetchConfig holds settings for the periodic HTTP poller.
type FetchConfig struct {
	Enabled         bool
	Endpoint        string
	IntervalMinutes int
	RatePerSecond   float64
	Burst           int
}

// ArchiveConfig holds local SQLite paths.
type ArchiveConfig struct {
	BulletinDB string
	StateDB    string
}

// SinksConfig holds analytical and state sink settings.
type SinksConfig struct {
	ClickHouseEnabled bool
	PostgresEnabled   bool
	ClickHouse        storage.ClickHouseConfig
	Postgres          storage.PostgresConfig
	SyncSeconds       int
}

// MetricsConfig holds the Prometheus listener settings.
type MetricsConfig struct {
	Addr string
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from a config file (if present) and environment
// variables prefixed with WX_DECODER_.
func Load() (*Config, error) {
	v := viper.New()

	defaults := storage.DefaultConfig()

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subjects", []string{"wx.bulletins.>"})
	v.SetDefault("fetch.enabled", false)
	v.SetDefault("fetch.endpoint", "https://aviationweather.gov/api/data/metar")
	v.SetDefault("fetch.interval_minutes", 10)
	v.SetDefault("fetch.rate_per_second", 2.0)
	v.SetDefault("fetch.burst", 5)
	v.SetDefault("archive.bulletin_db", "bulletins.db")
	v.SetDefault("archive.state_db", "wx_state.db")
	v.SetDefault("sinks.clickhouse_enabled", false)
	v.SetDefault("sinks.postgres_enabled", false)
	v.SetDefault("sinks.clickhouse.host", defaults.ClickHouse.Host)
	v.SetDefault("sinks.clickhouse.port", defaults.ClickHouse.Port)
	v.SetDefault("sinks.clickhouse.database", defaults.ClickHouse.Database)
	v.SetDefault("sinks.clickhouse.user", defaults.ClickHouse.User)
	v.SetDefault("sinks.clickhouse.password", defaults.ClickHouse.Password)
	v.SetDefault("sinks.postgres.host", defaults.Postgres.Host)
	v.SetDefault("sinks.postgres.port", defaults.Postgres.Port)
	v.SetDefault("sinks.postgres.database", defaults.Postgres.Database)
	v.SetDefault("sinks.postgres.user", defaults.Postgres.User)
	v.SetDefault("sinks.postgres.password", defaults.Postgres.Password)
	v.SetDefault("sinks.sync_seconds", 30)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("stations", []string{})

	v.SetConfigName("wx_ingest")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/wx_decoder")
	v.AddConfigPath(".")

	if configPath := os.Getenv("WX_DECODER_CONFIG"); configPath != "" {
		v.SetConfigFile(configPath)
	}

	// A missing config file is fine; defaults plus env vars carry a dev
	// setup.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("WX_DECODER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		NATS: NATSConfig{
			URL:      v.GetString("nats.url"),
			Subjects: v.GetStringSlice("nats.subjects"),
		},
		Fetch: FetchConfig{
			Enabled:         v.GetBool("fetch.enabled"),
			Endpoint:        v.GetString("fetch.endpoint"),
			IntervalMinutes: v.GetInt("fetch.interval_minutes"),
			RatePerSecond:   v.GetFloat64("fetch.rate_per_second"),
			Burst:           v.GetInt("fetch.burst"),
		},
		Archive: ArchiveConfig{
			BulletinDB: v.GetString("archive.bulletin_db"),
			StateDB:    v.GetString("archive.state_db"),
		},
		Sinks: SinksConfig{
			ClickHouseEnabled: v.GetBool("sinks.clickhouse_enabled"),
			PostgresEnabled:   v.GetBool("sinks.postgres_enabled"),
			ClickHouse: storage.ClickHouseConfig{
				Host:     v.GetString("sinks.clickhouse.host"),
				Port:     v.GetInt("sinks.clickhouse.port"),
				Database: v.GetString("sinks.clickhouse.database"),
				User:     v.GetString("sinks.clickhouse.user"),
				Password: v.GetString("sinks.clickhouse.password"),
			},
			Postgres: storage.PostgresConfig{
				Host:     v.GetString("sinks.postgres.host"),
				Port:     v.GetInt("sinks.postgres.port"),
				Database: v.GetString("sinks.postgres.database"),
				User:     v.GetString("sinks.postgres.user"),
				Password: v.GetString("sinks.postgres.password"),
			},
			SyncSeconds: v.GetInt("sinks.sync_seconds"),
		},
		Metrics: MetricsConfig{
			Addr: v.GetString("metrics.addr"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Stations: v.GetStringSlice("stations"),
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.NATS.URL == "" {
		return fmt.Errorf("nats.url is required")
	}
	if len(cfg.NATS.Subjects) == 0 {
		return fmt.Errorf("nats.subjects must name at least one subject")
	}
	if cfg.Archive.BulletinDB == "" {
		return fmt.Errorf("archive.bulletin_db is required")
	}
	if cfg.Archive.StateDB == "" {
		return fmt.Errorf("archive.state_db is required")
	}
	if cfg.Fetch.Enabled {
		if cfg.Fetch.Endpoint == "" {
			return fmt.Errorf("fetch.endpoint is required when fetch is enabled")
		}
		if cfg.Fetch.IntervalMinutes <= 0 {
			return fmt.Errorf("fetch.interval_minutes must be greater than 0")
		}
		if cfg.Fetch.RatePerSecond <= 0 {
			return fmt.Errorf("fetch.rate_per_second must be greater than 0")
		}
		if len(cfg.Stations) == 0 {
			return fmt.Errorf("stations must list at least one ICAO id when fetch is enabled")
		}
	}
	if cfg.Sinks.SyncSeconds <= 0 {
		return fmt.Errorf("sinks.sync_seconds must be greater than 0")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Log.Level)
	}
	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[strings.ToLower(cfg.Log.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", cfg.Log.Format)
	}

	return nil
}

// SlogLevel maps the configured level string onto an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
