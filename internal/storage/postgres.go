package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// PostgresDB wraps a PostgreSQL connection pool for the central state mirror.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() {
	d.pool.Close()
}

// Pool returns the underlying connection pool for advanced operations.
func (d *PostgresDB) Pool() *pgxpool.Pool {
	return d.pool
}

// CreateSchema creates the PostgreSQL tables.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	-- Reference data: Reporting stations
	CREATE TABLE IF NOT EXISTS stations (
		icao            TEXT PRIMARY KEY,
		first_seen      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_seen       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		report_count    INTEGER NOT NULL DEFAULT 1,
		last_category   TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_stations_category ON stations(last_category);

	-- Operational: Current conditions per station
	CREATE TABLE IF NOT EXISTS station_conditions (
		station         TEXT PRIMARY KEY,
		category        TEXT,
		prev_category   TEXT,
		changed_at      TIMESTAMPTZ,
		report_type     TEXT,
		visibility_mi   DOUBLE PRECISION,
		ceiling_ft      INTEGER,
		wind_dir_deg    INTEGER,
		wind_speed_kt   INTEGER,
		wind_gust_kt    INTEGER,
		temperature_c   DOUBLE PRECISION,
		dew_point_c     DOUBLE PRECISION,
		altimeter_hpa   INTEGER,
		weather         JSONB,
		observed_at     TIMESTAMPTZ,
		raw_text        TEXT,
		report_count    INTEGER NOT NULL DEFAULT 1,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_station_conditions_category ON station_conditions(category);
	CREATE INDEX IF NOT EXISTS idx_station_conditions_updated ON station_conditions(updated_at);

	-- Operational: Current forecast per station
	CREATE TABLE IF NOT EXISTS station_forecast (
		station         TEXT PRIMARY KEY,
		issued          TIMESTAMPTZ NOT NULL,
		valid_from      TIMESTAMPTZ,
		valid_to        TIMESTAMPTZ,
		periods         JSONB,
		raw_text        TEXT,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_station_forecast_valid_to ON station_forecast(valid_to);

	-- Operational: Airspace advisories
	CREATE TABLE IF NOT EXISTS sigmet_advisories (
		id                  SERIAL PRIMARY KEY,
		advisory_id         TEXT NOT NULL,
		fir                 TEXT NOT NULL,
		phenomenon          TEXT,
		altitude            TEXT,
		movement            TEXT,
		valid_from          TIMESTAMPTZ,
		valid_to            TIMESTAMPTZ,
		boundary            JSONB,
		raw_text            TEXT,
		observation_count   INTEGER NOT NULL DEFAULT 1,
		first_seen          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_seen           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE(advisory_id, fir)
	);

	CREATE INDEX IF NOT EXISTS idx_sigmet_advisories_fir ON sigmet_advisories(fir);
	CREATE INDEX IF NOT EXISTS idx_sigmet_advisories_valid_to ON sigmet_advisories(valid_to);
	`

	_, err := d.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Station represents a reporting station record.
type Station struct {
	ICAO         string
	FirstSeen    time.Time
	LastSeen     time.Time
	ReportCount  int
	LastCategory string
}

// UpsertStation inserts or updates a station record.
func (d *PostgresDB) UpsertStation(ctx context.Context, s Station) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO stations (icao, first_seen, last_seen, report_count, last_category)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		ON CONFLICT (icao) DO UPDATE SET
			last_seen = EXCLUDED.last_seen,
			report_count = EXCLUDED.report_count,
			last_category = COALESCE(EXCLUDED.last_category, stations.last_category)
	`, s.ICAO, s.FirstSeen, s.LastSeen, s.ReportCount, s.LastCategory)
	return err
}

// GetStation retrieves a station record by ICAO.
func (d *PostgresDB) GetStation(ctx context.Context, icao string) (*Station, error) {
	var s Station
	var lastCategory *string
	err := d.pool.QueryRow(ctx, `
		SELECT icao, first_seen, last_seen, report_count, last_category
		FROM stations WHERE icao = $1
	`, icao).Scan(&s.ICAO, &s.FirstSeen, &s.LastSeen, &s.ReportCount, &lastCategory)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lastCategory != nil {
		s.LastCategory = *lastCategory
	}
	return &s, nil
}

// StationConditions represents current conditions for a station.
type StationConditions struct {
	Station      string
	Category     string
	PrevCategory string
	ChangedAt    *time.Time
	ReportType   string
	VisibilityMi *float64
	CeilingFt    *int
	WindDirDeg   *int
	WindSpeedKt  *int
	WindGustKt   *int
	TemperatureC *float64
	DewPointC    *float64
	AltimeterHPa *int
	Weather      []string
	ObservedAt   *time.Time
	RawText      string
	ReportCount  int
	UpdatedAt    time.Time
}

// UpsertStationConditions inserts or updates current conditions for a station.
func (d *PostgresDB) UpsertStationConditions(ctx context.Context, c StationConditions) error {
	weatherJSON, _ := json.Marshal(c.Weather)

	_, err := d.pool.Exec(ctx, `
		INSERT INTO station_conditions (station, category, prev_category, changed_at, report_type, visibility_mi, ceiling_ft, wind_dir_deg, wind_speed_kt, wind_gust_kt, temperature_c, dew_point_c, altimeter_hpa, weather, observed_at, raw_text, report_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (station) DO UPDATE SET
			category = EXCLUDED.category,
			prev_category = EXCLUDED.prev_category,
			changed_at = EXCLUDED.changed_at,
			report_type = EXCLUDED.report_type,
			visibility_mi = EXCLUDED.visibility_mi,
			ceiling_ft = EXCLUDED.ceiling_ft,
			wind_dir_deg = EXCLUDED.wind_dir_deg,
			wind_speed_kt = EXCLUDED.wind_speed_kt,
			wind_gust_kt = EXCLUDED.wind_gust_kt,
			temperature_c = EXCLUDED.temperature_c,
			dew_point_c = EXCLUDED.dew_point_c,
			altimeter_hpa = EXCLUDED.altimeter_hpa,
			weather = EXCLUDED.weather,
			observed_at = EXCLUDED.observed_at,
			raw_text = EXCLUDED.raw_text,
			report_count = EXCLUDED.report_count,
			updated_at = EXCLUDED.updated_at
	`, c.Station, c.Category, c.PrevCategory, c.ChangedAt, c.ReportType, c.VisibilityMi,
		c.CeilingFt, c.WindDirDeg, c.WindSpeedKt, c.WindGustKt, c.TemperatureC, c.DewPointC,
		c.AltimeterHPa, weatherJSON, c.ObservedAt, c.RawText, c.ReportCount, c.UpdatedAt)
	return err
}

// scanStationConditions scans one conditions row in the canonical column order.
func scanStationConditions(row pgx.Row) (*StationConditions, error) {
	var c StationConditions
	var category, prevCategory, reportType, rawText *string
	var weatherJSON []byte

	err := row.Scan(&c.Station, &category, &prevCategory, &c.ChangedAt, &reportType,
		&c.VisibilityMi, &c.CeilingFt, &c.WindDirDeg, &c.WindSpeedKt, &c.WindGustKt,
		&c.TemperatureC, &c.DewPointC, &c.AltimeterHPa, &weatherJSON, &c.ObservedAt,
		&rawText, &c.ReportCount, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if category != nil {
		c.Category = *category
	}
	if prevCategory != nil {
		c.PrevCategory = *prevCategory
	}
	if reportType != nil {
		c.ReportType = *reportType
	}
	if rawText != nil {
		c.RawText = *rawText
	}
	_ = json.Unmarshal(weatherJSON, &c.Weather)
	return &c, nil
}

const stationConditionsColumns = `station, category, prev_category, changed_at, report_type,
	visibility_mi, ceiling_ft, wind_dir_deg, wind_speed_kt, wind_gust_kt,
	temperature_c, dew_point_c, altimeter_hpa, weather, observed_at,
	raw_text, report_count, updated_at`

// GetStationConditions retrieves current conditions for a station.
func (d *PostgresDB) GetStationConditions(ctx context.Context, station string) (*StationConditions, error) {
	row := d.pool.QueryRow(ctx,
		`SELECT `+stationConditionsColumns+` FROM station_conditions WHERE station = $1`, station)

	c, err := scanStationConditions(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListStationsByCategory retrieves stations currently sitting in a category.
func (d *PostgresDB) ListStationsByCategory(ctx context.Context, category string, limit int) ([]StationConditions, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.pool.Query(ctx,
		`SELECT `+stationConditionsColumns+` FROM station_conditions
		WHERE category = $1 ORDER BY updated_at DESC LIMIT $2`, category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StationConditions
	for rows.Next() {
		c, err := scanStationConditions(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

// ListConditions retrieves current conditions for all stations, ordered by
// station identifier.
func (d *PostgresDB) ListConditions(ctx context.Context, limit int) ([]StationConditions, error) {
	if limit <= 0 {
		limit = 10000
	}
	rows, err := d.pool.Query(ctx,
		`SELECT `+stationConditionsColumns+` FROM station_conditions
		ORDER BY station LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StationConditions
	for rows.Next() {
		c, err := scanStationConditions(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

// SearchStations retrieves conditions for stations matching an ICAO prefix.
func (d *PostgresDB) SearchStations(ctx context.Context, prefix string, limit int) ([]StationConditions, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.pool.Query(ctx,
		`SELECT `+stationConditionsColumns+` FROM station_conditions
		WHERE station LIKE $1 || '%' ORDER BY station LIMIT $2`, prefix, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StationConditions
	for rows.Next() {
		c, err := scanStationConditions(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

// CountByCategory returns station counts grouped by current category.
func (d *PostgresDB) CountByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT category, COUNT(*) FROM station_conditions
		WHERE category IS NOT NULL AND category != ''
		GROUP BY category
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		counts[category] = count
	}
	return counts, rows.Err()
}

// StationForecast represents the current forecast for a station.
type StationForecast struct {
	Station   string
	Issued    time.Time
	ValidFrom *time.Time
	ValidTo   *time.Time
	Periods   json.RawMessage
	RawText   string
	UpdatedAt time.Time
}

// UpsertStationForecast inserts or updates the forecast for a station.
func (d *PostgresDB) UpsertStationForecast(ctx context.Context, f StationForecast) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO station_forecast (station, issued, valid_from, valid_to, periods, raw_text, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (station) DO UPDATE SET
			issued = EXCLUDED.issued,
			valid_from = EXCLUDED.valid_from,
			valid_to = EXCLUDED.valid_to,
			periods = EXCLUDED.periods,
			raw_text = EXCLUDED.raw_text,
			updated_at = EXCLUDED.updated_at
	`, f.Station, f.Issued, f.ValidFrom, f.ValidTo, []byte(f.Periods), f.RawText, f.UpdatedAt)
	return err
}

// GetStationForecast retrieves the forecast for a station.
func (d *PostgresDB) GetStationForecast(ctx context.Context, station string) (*StationForecast, error) {
	var f StationForecast
	var periods []byte
	var rawText *string

	err := d.pool.QueryRow(ctx, `
		SELECT station, issued, valid_from, valid_to, periods, raw_text, updated_at
		FROM station_forecast WHERE station = $1
	`, station).Scan(&f.Station, &f.Issued, &f.ValidFrom, &f.ValidTo, &periods, &rawText, &f.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	f.Periods = periods
	if rawText != nil {
		f.RawText = *rawText
	}
	return &f, nil
}

// Advisory represents an airspace advisory record.
type Advisory struct {
	ID               int
	AdvisoryID       string
	FIR              string
	Phenomenon       string
	Altitude         string
	Movement         string
	ValidFrom        *time.Time
	ValidTo          *time.Time
	Boundary         json.RawMessage
	RawText          string
	ObservationCount int
	FirstSeen        time.Time
	LastSeen         time.Time
}

// UpsertAdvisory inserts or updates an advisory, returning the row ID.
func (d *PostgresDB) UpsertAdvisory(ctx context.Context, a Advisory) (int, error) {
	var id int
	err := d.pool.QueryRow(ctx, `
		INSERT INTO sigmet_advisories (advisory_id, fir, phenomenon, altitude, movement, valid_from, valid_to, boundary, raw_text, observation_count, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (advisory_id, fir) DO UPDATE SET
			phenomenon = COALESCE(NULLIF(EXCLUDED.phenomenon, ''), sigmet_advisories.phenomenon),
			valid_from = COALESCE(EXCLUDED.valid_from, sigmet_advisories.valid_from),
			valid_to = COALESCE(EXCLUDED.valid_to, sigmet_advisories.valid_to),
			observation_count = EXCLUDED.observation_count,
			last_seen = EXCLUDED.last_seen
		RETURNING id
	`, a.AdvisoryID, a.FIR, a.Phenomenon, a.Altitude, a.Movement, a.ValidFrom, a.ValidTo,
		[]byte(a.Boundary), a.RawText, a.ObservationCount, a.FirstSeen, a.LastSeen).Scan(&id)
	return id, err
}

// scanAdvisoryRow scans one advisory row in the canonical column order.
func scanAdvisoryRow(row pgx.Row) (*Advisory, error) {
	var a Advisory
	var phenomenon, altitude, movement, rawText *string
	var boundary []byte

	err := row.Scan(&a.ID, &a.AdvisoryID, &a.FIR, &phenomenon, &altitude, &movement,
		&a.ValidFrom, &a.ValidTo, &boundary, &rawText,
		&a.ObservationCount, &a.FirstSeen, &a.LastSeen)
	if err != nil {
		return nil, err
	}

	if phenomenon != nil {
		a.Phenomenon = *phenomenon
	}
	if altitude != nil {
		a.Altitude = *altitude
	}
	if movement != nil {
		a.Movement = *movement
	}
	if rawText != nil {
		a.RawText = *rawText
	}
	a.Boundary = boundary
	return &a, nil
}

// ListActiveAdvisories retrieves advisories whose validity window contains
// the given instant, including those without a decoded window.
func (d *PostgresDB) ListActiveAdvisories(ctx context.Context, now time.Time) ([]Advisory, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, advisory_id, fir, phenomenon, altitude, movement, valid_from, valid_to, boundary, raw_text, observation_count, first_seen, last_seen
		FROM sigmet_advisories
		WHERE (valid_from IS NULL OR valid_from <= $1)
		  AND (valid_to IS NULL OR valid_to >= $1)
		ORDER BY fir, advisory_id
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var advisories []Advisory
	for rows.Next() {
		a, err := scanAdvisoryRow(rows)
		if err != nil {
			return nil, err
		}
		advisories = append(advisories, *a)
	}
	return advisories, rows.Err()
}

// GetAdvisory retrieves a single advisory by its advisory number and FIR.
func (d *PostgresDB) GetAdvisory(ctx context.Context, advisoryID, fir string) (*Advisory, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT id, advisory_id, fir, phenomenon, altitude, movement, valid_from, valid_to, boundary, raw_text, observation_count, first_seen, last_seen
		FROM sigmet_advisories WHERE advisory_id = $1 AND fir = $2
	`, advisoryID, fir)

	a, err := scanAdvisoryRow(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListStaleConditions retrieves stations whose conditions have not been
// refreshed since the cutoff, oldest first.
func (d *PostgresDB) ListStaleConditions(ctx context.Context, cutoff time.Time, limit int) ([]StationConditions, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.pool.Query(ctx,
		`SELECT `+stationConditionsColumns+` FROM station_conditions
		WHERE updated_at < $1 ORDER BY updated_at LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StationConditions
	for rows.Next() {
		c, err := scanStationConditions(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}
