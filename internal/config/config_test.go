package config

import (
	"log/slog"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("NATS.URL = %q, want default", cfg.NATS.URL)
	}
	if len(cfg.NATS.Subjects) != 1 || cfg.NATS.Subjects[0] != "wx.bulletins.>" {
		t.Errorf("NATS.Subjects = %v, want [wx.bulletins.>]", cfg.NATS.Subjects)
	}
	if cfg.Archive.BulletinDB != "bulletins.db" {
		t.Errorf("Archive.BulletinDB = %q", cfg.Archive.BulletinDB)
	}
	if cfg.Fetch.Enabled {
		t.Error("Fetch.Enabled should default to false")
	}
	if cfg.Sinks.ClickHouse.Port != 9000 {
		t.Errorf("ClickHouse.Port = %d, want 9000", cfg.Sinks.ClickHouse.Port)
	}
	if cfg.Metrics.Addr != ":9090" {
		t.Errorf("Metrics.Addr = %q, want :9090", cfg.Metrics.Addr)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("WX_DECODER_NATS_URL", "nats://feed.example.net:4222")
	t.Setenv("WX_DECODER_LOG_LEVEL", "debug")
	t.Setenv("WX_DECODER_ARCHIVE_STATE_DB", "/var/lib/wx/state.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.NATS.URL != "nats://feed.example.net:4222" {
		t.Errorf("NATS.URL = %q, env override not applied", cfg.NATS.URL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Archive.StateDB != "/var/lib/wx/state.db" {
		t.Errorf("Archive.StateDB = %q", cfg.Archive.StateDB)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want debug", cfg.SlogLevel())
	}
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	t.Setenv("WX_DECODER_LOG_LEVEL", "loud")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should reject an unknown log level")
	}
	if !strings.Contains(err.Error(), "log level") {
		t.Errorf("error = %v, want mention of log level", err)
	}
}

func TestLoadFetchValidation(t *testing.T) {
	t.Setenv("WX_DECODER_FETCH_ENABLED", "true")

	// Fetch enabled without stations must fail.
	if _, err := Load(); err == nil {
		t.Fatal("Load() should require stations when fetch is enabled")
	}

	t.Setenv("WX_DECODER_STATIONS", "KJFK KLGA KEWR")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Stations) != 3 {
		t.Errorf("Stations = %v, want 3 entries", cfg.Stations)
	}
}

func TestValidateSyncSeconds(t *testing.T) {
	t.Setenv("WX_DECODER_SINKS_SYNC_SECONDS", "0")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject sync_seconds = 0")
	}
}

func TestSlogLevelFallback(t *testing.T) {
	c := &Config{Log: LogConfig{Level: "info"}}
	if c.SlogLevel() != slog.LevelInfo {
		t.Errorf("SlogLevel() = %v, want info", c.SlogLevel())
	}
	c.Log.Level = "ERROR"
	if c.SlogLevel() != slog.LevelError {
		t.Errorf("SlogLevel() = %v, want error", c.SlogLevel())
	}
}
