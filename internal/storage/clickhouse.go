// Package storage provides persistent storage for decoded weather bulletins.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ClickHouseDB wraps a ClickHouse connection for the analytic streams:
// observations, category transitions and forecast periods are append-only.
type ClickHouseDB struct {
	conn driver.Conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	// Test the connection.
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the ClickHouse tables.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS observations (
			station        LowCardinality(String),
			report_type    LowCardinality(String),
			category       LowCardinality(String),
			visibility_mi  Nullable(Float64),
			ceiling_ft     Nullable(Int32),
			wind_dir_deg   Nullable(Int32),
			wind_speed_kt  Nullable(Int32),
			wind_gust_kt   Nullable(Int32),
			temperature_c  Nullable(Float64),
			dew_point_c    Nullable(Float64),
			altimeter_hpa  Nullable(Int32),
			weather        String,
			raw_text       String,
			observed_at    DateTime64(3),
			recorded_at    DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(observed_at)
		ORDER BY (station, observed_at)
		SETTINGS index_granularity = 8192`,

		`CREATE TABLE IF NOT EXISTS category_transitions (
			station        LowCardinality(String),
			from_category  LowCardinality(String),
			to_category    LowCardinality(String),
			worsened       UInt8,
			raw_text       String,
			occurred_at    DateTime64(3),
			recorded_at    DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(occurred_at)
		ORDER BY (station, occurred_at)`,

		`CREATE TABLE IF NOT EXISTS forecast_periods (
			station        LowCardinality(String),
			issued         DateTime64(3),
			marker         LowCardinality(String),
			probability    UInt8,
			category       LowCardinality(String),
			valid_from     DateTime64(3),
			valid_to       DateTime64(3),
			visibility_mi  Nullable(Float64),
			ceiling_ft     Nullable(Int32),
			raw_text       String,
			recorded_at    DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(issued)
		ORDER BY (station, issued, valid_from)`,
	}

	for _, q := range queries {
		if err := d.conn.Exec(ctx, q); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	// Add bloom filter index for full-text search (ignore error if already exists).
	_ = d.conn.Exec(ctx, `ALTER TABLE observations ADD INDEX IF NOT EXISTS idx_raw_text_bloom raw_text TYPE tokenbf_v1(32768, 3, 0) GRANULARITY 1`)

	return nil
}

// CHObservation represents one observation row in the analytic stream.
type CHObservation struct {
	Station      string
	ReportType   string
	Category     string
	VisibilityMi *float64
	CeilingFt    *int32
	WindDirDeg   *int32
	WindSpeedKt  *int32
	WindGustKt   *int32
	TemperatureC *float64
	DewPointC    *float64
	AltimeterHPa *int32
	Weather      string
	RawText      string
	ObservedAt   time.Time
}

// InsertObservations stores observation rows in ClickHouse efficiently.
func (d *ClickHouseDB) InsertObservations(ctx context.Context, obs []CHObservation) error {
	if len(obs) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO observations (station, report_type, category, visibility_mi, ceiling_ft, wind_dir_deg, wind_speed_kt, wind_gust_kt, temperature_c, dew_point_c, altimeter_hpa, weather, raw_text, observed_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range obs {
		err = batch.Append(o.Station, o.ReportType, o.Category, o.VisibilityMi, o.CeilingFt,
			o.WindDirDeg, o.WindSpeedKt, o.WindGustKt, o.TemperatureC, o.DewPointC,
			o.AltimeterHPa, o.Weather, o.RawText, o.ObservedAt)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// CHTransition represents one flight-category change in the analytic stream.
type CHTransition struct {
	Station      string
	FromCategory string
	ToCategory   string
	Worsened     bool
	RawText      string
	OccurredAt   time.Time
}

// InsertTransitions stores category transition rows in ClickHouse.
func (d *ClickHouseDB) InsertTransitions(ctx context.Context, transitions []CHTransition) error {
	if len(transitions) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO category_transitions (station, from_category, to_category, worsened, raw_text, occurred_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, tr := range transitions {
		var worsened uint8
		if tr.Worsened {
			worsened = 1
		}
		err = batch.Append(tr.Station, tr.FromCategory, tr.ToCategory, worsened, tr.RawText, tr.OccurredAt)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// CHForecastPeriod represents one forecast period row in the analytic stream.
type CHForecastPeriod struct {
	Station      string
	Issued       time.Time
	Marker       string
	Probability  uint8
	Category     string
	ValidFrom    time.Time
	ValidTo      time.Time
	VisibilityMi *float64
	CeilingFt    *int32
	RawText      string
}

// InsertForecastPeriods stores forecast period rows in ClickHouse.
func (d *ClickHouseDB) InsertForecastPeriods(ctx context.Context, periods []CHForecastPeriod) error {
	if len(periods) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO forecast_periods (station, issued, marker, probability, category, valid_from, valid_to, visibility_mi, ceiling_ft, raw_text)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range periods {
		err = batch.Append(p.Station, p.Issued, p.Marker, p.Probability, p.Category,
			p.ValidFrom, p.ValidTo, p.VisibilityMi, p.CeilingFt, p.RawText)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// CHStats contains aggregate statistics about the analytic streams.
type CHStats struct {
	TotalObservations    uint64
	ByCategory           map[string]uint64
	TopStations          map[string]uint64
	TotalTransitions     uint64
	TotalForecastPeriods uint64
}

// GetStats returns statistics about the stored streams.
func (d *ClickHouseDB) GetStats(ctx context.Context) (*CHStats, error) {
	stats := &CHStats{
		ByCategory:  make(map[string]uint64),
		TopStations: make(map[string]uint64),
	}

	// Total observations.
	row := d.conn.QueryRow(ctx, "SELECT count() FROM observations")
	if err := row.Scan(&stats.TotalObservations); err != nil {
		return nil, err
	}

	// By category.
	rows, err := d.conn.Query(ctx, "SELECT category, count() FROM observations GROUP BY category ORDER BY count() DESC")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var category string
		var count uint64
		if err := rows.Scan(&category, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan category stats: %w", err)
		}
		stats.ByCategory[category] = count
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate category stats: %w", err)
	}
	rows.Close()

	// Busiest stations.
	rows, err = d.conn.Query(ctx, "SELECT station, count() FROM observations GROUP BY station ORDER BY count() DESC LIMIT 20")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var station string
		var count uint64
		if err := rows.Scan(&station, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan station stats: %w", err)
		}
		stats.TopStations[station] = count
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate station stats: %w", err)
	}
	rows.Close()

	// Transition and forecast stream sizes.
	row = d.conn.QueryRow(ctx, "SELECT count() FROM category_transitions")
	if err := row.Scan(&stats.TotalTransitions); err != nil {
		return nil, err
	}
	row = d.conn.QueryRow(ctx, "SELECT count() FROM forecast_periods")
	if err := row.Scan(&stats.TotalForecastPeriods); err != nil {
		return nil, err
	}

	return stats, nil
}

// CountTransitionsSince returns the number of category transitions recorded
// after the given instant, optionally limited to worsening ones.
func (d *ClickHouseDB) CountTransitionsSince(ctx context.Context, since time.Time, worsenedOnly bool) (uint64, error) {
	var count uint64
	var err error
	if worsenedOnly {
		row := d.conn.QueryRow(ctx, "SELECT count() FROM category_transitions WHERE occurred_at >= ? AND worsened = 1", since)
		err = row.Scan(&count)
	} else {
		row := d.conn.QueryRow(ctx, "SELECT count() FROM category_transitions WHERE occurred_at >= ?", since)
		err = row.Scan(&count)
	}
	return count, err
}
