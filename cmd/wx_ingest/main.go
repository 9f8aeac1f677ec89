// The ingest daemon: consumes raw bulletins from the feed subjects, decodes
// them, archives every bulletin, tracks per-station state, and exports to the
// analytic and serving sinks. Optionally polls the upstream API for a fixed
// station list.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"wx_decoder/internal/config"
	"wx_decoder/internal/fetch"
	"wx_decoder/internal/ingest"
	"wx_decoder/internal/observability"
	_ "wx_decoder/internal/parsers" // register all parsers via init()
	"wx_decoder/internal/registry"
	"wx_decoder/internal/scheduler"
	"wx_decoder/internal/state"
	"wx_decoder/internal/storage"
)

func main() {
	// A local .env carries the dev setup; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.SlogLevel(), cfg.Log.Format)
	slog.SetDefault(logger)
	metrics := observability.NewMetrics()

	registry.Default().Sort()
	logger.Info("parsers registered", "count", registry.Default().ParserCount())

	archive, err := storage.OpenArchive(cfg.Archive.BulletinDB)
	if err != nil {
		logger.Error("failed to open bulletin archive", "path", cfg.Archive.BulletinDB, "error", err)
		os.Exit(1)
	}
	defer archive.Close()

	tracker, err := state.NewTracker(cfg.Archive.StateDB)
	if err != nil {
		logger.Error("failed to open state tracker", "path", cfg.Archive.StateDB, "error", err)
		os.Exit(1)
	}
	defer tracker.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var ch *storage.ClickHouseDB
	if cfg.Sinks.ClickHouseEnabled {
		ch, err = storage.OpenClickHouse(ctx, cfg.Sinks.ClickHouse)
		if err != nil {
			logger.Error("failed to connect to clickhouse", "error", err)
			os.Exit(1)
		}
		defer ch.Close()
		if err := ch.CreateSchema(ctx); err != nil {
			logger.Error("failed to create clickhouse schema", "error", err)
			os.Exit(1)
		}
		logger.Info("clickhouse sink enabled", "host", cfg.Sinks.ClickHouse.Host)
	} else {
		logger.Info("clickhouse sink disabled")
	}

	var pg *storage.PostgresDB
	if cfg.Sinks.PostgresEnabled {
		pg, err = storage.OpenPostgres(ctx, cfg.Sinks.Postgres)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.CreateSchema(ctx); err != nil {
			logger.Error("failed to create postgres schema", "error", err)
			os.Exit(1)
		}
		logger.Info("postgres sink enabled", "host", cfg.Sinks.Postgres.Host)
	} else {
		logger.Info("postgres sink disabled")
	}

	// The buffer only exists when ClickHouse takes its rows; without the sink
	// it would grow without bound.
	var buffer *ingest.Buffer
	if ch != nil {
		buffer = ingest.NewBuffer()
	}

	handler := ingest.NewHandler(registry.Default(), archive, tracker, buffer, logger, metrics)
	consumer := ingest.NewConsumer(cfg.NATS.URL, cfg.NATS.Subjects, handler, logger, metrics)

	sched := scheduler.New(ctx)

	var syncer *ingest.Syncer
	if ch != nil || pg != nil {
		syncer = ingest.NewSyncer(tracker, buffer, ch, pg,
			time.Duration(cfg.Sinks.SyncSeconds)*time.Second, logger, metrics)
		sched.AddTask(syncer)
	}

	if cfg.Fetch.Enabled {
		poller := fetch.New(fetch.Config{
			Endpoint:      cfg.Fetch.Endpoint,
			Stations:      cfg.Stations,
			Interval:      time.Duration(cfg.Fetch.IntervalMinutes) * time.Minute,
			RatePerSecond: cfg.Fetch.RatePerSecond,
			Burst:         cfg.Fetch.Burst,
		}, handler, logger)
		sched.AddTask(poller)
		logger.Info("upstream poller enabled",
			"stations", len(cfg.Stations), "interval_minutes", cfg.Fetch.IntervalMinutes)
	}

	srv := observability.NewServer(cfg.Metrics.Addr, handler, logger)

	// Start ops endpoints.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server error", "error", err)
		}
	}()

	sched.Start()

	// Start the feed consumer.
	go func() {
		if err := consumer.Run(ctx); err != nil {
			logger.Error("consumer error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	sched.Stop()

	// One last export so buffered rows and unsynced state survive the restart.
	if syncer != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := syncer.Run(flushCtx); err != nil {
			logger.Error("final sink flush failed", "error", err)
		}
		cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
