// Package main provides the conditions-api server for station weather data.
//
// This is a standalone REST API server that provides access to current
// station conditions stored in PostgreSQL. It's designed to be queried by
// flight-planning and map applications to colour stations by flight category
// and surface the forecast timeline decoded from raw bulletins.
//
// Usage:
//
//	conditions-api [options]
//
// Options:
//
//	-pg-host HOST       PostgreSQL host (default: localhost, env: POSTGRES_HOST)
//	-pg-port PORT       PostgreSQL port (default: 5432, env: POSTGRES_PORT)
//	-pg-database DB     PostgreSQL database (default: wx_state, env: POSTGRES_DATABASE)
//	-pg-user USER       PostgreSQL user (default: wx, env: POSTGRES_USER)
//	-pg-password PASS   PostgreSQL password (default: wx, env: POSTGRES_PASSWORD)
//	-ch                 Also connect to ClickHouse for transition stats
//	-ch-host HOST       ClickHouse host (default: localhost, env: CLICKHOUSE_HOST)
//	-ch-port PORT       ClickHouse port (default: 9000, env: CLICKHOUSE_PORT)
//	-ch-database DB     ClickHouse database (default: wx, env: CLICKHOUSE_DATABASE)
//	-ch-user USER       ClickHouse user (default: default, env: CLICKHOUSE_USER)
//	-ch-password PASS   ClickHouse password (env: CLICKHOUSE_PASSWORD)
//	-archive PATH       Bulletin archive for /search (env: ARCHIVE_DB; empty disables)
//	-port N             HTTP port (default: 8081)
//	-auth               Enable API key authentication
//	-api-keys KEYS      Comma-separated list of valid API keys
//
// API Endpoints:
//
//	GET /health
//	    Health check endpoint.
//
//	GET /stats
//	    Archive, category, and transition statistics.
//
//	GET /api/v1/stations/{icao}
//	    Full current conditions for a station.
//
//	GET /api/v1/stations/{icao}/category
//	    Just the flight category, cheap enough for map tiles.
//
//	GET /api/v1/stations/{icao}/forecast
//	    The decoded forecast timeline and the currently operative period.
//
//	GET /api/v1/categories?category=IFR
//	    All tracked stations, optionally filtered by category.
//
//	GET /api/v1/sigmets/active
//	    Advisories whose validity window contains now.
//
//	GET /api/v1/search?q=...
//	    Full-text search over archived bulletins.
//
// Authentication:
//
//	When -auth is enabled, requests must include an API key via:
//	  - X-API-Key header
//	  - Authorization: Bearer <key> header
//	  - ?api_key=<key> query parameter
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"wx_decoder/internal/api"
	"wx_decoder/internal/storage"
)

func main() {
	// PostgreSQL connection flags.
	pgHost := flag.String("pg-host", envOrDefault("POSTGRES_HOST", "localhost"), "PostgreSQL host")
	pgPort := flag.Int("pg-port", envOrDefaultInt("POSTGRES_PORT", 5432), "PostgreSQL port")
	pgUser := flag.String("pg-user", envOrDefault("POSTGRES_USER", "wx"), "PostgreSQL user")
	pgPassword := flag.String("pg-password", envOrDefault("POSTGRES_PASSWORD", "wx"), "PostgreSQL password")
	pgDB := flag.String("pg-database", envOrDefault("POSTGRES_DATABASE", "wx_state"), "PostgreSQL database")

	// Optional ClickHouse connection flags.
	chEnabled := flag.Bool("ch", false, "Also connect to ClickHouse for transition stats")
	chHost := flag.String("ch-host", envOrDefault("CLICKHOUSE_HOST", "localhost"), "ClickHouse host")
	chPort := flag.Int("ch-port", envOrDefaultInt("CLICKHOUSE_PORT", 9000), "ClickHouse port")
	chUser := flag.String("ch-user", envOrDefault("CLICKHOUSE_USER", "default"), "ClickHouse user")
	chPassword := flag.String("ch-password", envOrDefault("CLICKHOUSE_PASSWORD", ""), "ClickHouse password")
	chDB := flag.String("ch-database", envOrDefault("CLICKHOUSE_DATABASE", "wx"), "ClickHouse database")

	// Optional bulletin archive for full-text search.
	archivePath := flag.String("archive", envOrDefault("ARCHIVE_DB", ""), "Bulletin archive for /search (empty disables)")

	// API server flags.
	port := flag.Int("port", 8081, "HTTP port for API server")
	authEnabled := flag.Bool("auth", false, "Enable API key authentication")
	apiKeys := flag.String("api-keys", "", "Comma-separated list of valid API keys (when auth enabled)")

	flag.Parse()

	ctx := context.Background()

	// Open PostgreSQL database.
	pg, err := storage.OpenPostgres(ctx, storage.PostgresConfig{
		Host:     *pgHost,
		Port:     *pgPort,
		Database: *pgDB,
		User:     *pgUser,
		Password: *pgPassword,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	// Open ClickHouse when requested.
	var ch *storage.ClickHouseDB
	if *chEnabled {
		ch, err = storage.OpenClickHouse(ctx, storage.ClickHouseConfig{
			Host:     *chHost,
			Port:     *chPort,
			Database: *chDB,
			User:     *chUser,
			Password: *chPassword,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening ClickHouse: %v\n", err)
			os.Exit(1)
		}
		defer ch.Close()
	}

	// Open the bulletin archive when configured.
	var archive *storage.Archive
	if *archivePath != "" {
		archive, err = storage.OpenArchive(*archivePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening archive: %v\n", err)
			os.Exit(1)
		}
		defer archive.Close()
	}

	// Parse API keys.
	var keys []string
	if *apiKeys != "" {
		keys = strings.Split(*apiKeys, ",")
		for i := range keys {
			keys[i] = strings.TrimSpace(keys[i])
		}
	}

	// Create and run server.
	server := api.NewServer(pg, ch, archive, api.Config{
		Port:        *port,
		AuthEnabled: *authEnabled,
		APIKeys:     keys,
	})

	if err := server.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
