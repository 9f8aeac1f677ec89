// Package state provides station conditions tracking and reference data
// management.
package state

// schema contains the SQLite table definitions for state tracking.
const schema = `
-- Reference data: reporting stations with lifetime counters.
CREATE TABLE IF NOT EXISTS stations (
	icao          TEXT PRIMARY KEY,
	first_seen    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_seen     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	report_count  INTEGER NOT NULL DEFAULT 1,
	last_category TEXT,
	synced_at     DATETIME
);

CREATE INDEX IF NOT EXISTS idx_stations_synced ON stations(synced_at);

-- Operational: current conditions per station.
CREATE TABLE IF NOT EXISTS conditions_current (
	station        TEXT PRIMARY KEY,
	category       TEXT,
	prev_category  TEXT,
	changed_at     DATETIME,
	report_type    TEXT,
	visibility_mi  REAL,
	ceiling_ft     INTEGER,
	wind_dir_deg   INTEGER,
	wind_speed_kt  INTEGER,
	wind_gust_kt   INTEGER,
	temperature_c  REAL,
	dew_point_c    REAL,
	altimeter_hpa  INTEGER,
	weather        TEXT,  -- JSON array.
	observed_at    DATETIME,
	raw            TEXT,
	first_seen     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_seen      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	report_count   INTEGER NOT NULL DEFAULT 1,
	synced_at      DATETIME
);

CREATE INDEX IF NOT EXISTS idx_conditions_current_category ON conditions_current(category);
CREATE INDEX IF NOT EXISTS idx_conditions_current_synced ON conditions_current(synced_at);

-- Operational: conditions archived at each category change.
CREATE TABLE IF NOT EXISTS conditions_history (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	station        TEXT NOT NULL,
	category       TEXT,
	prev_category  TEXT,
	report_type    TEXT,
	visibility_mi  REAL,
	ceiling_ft     INTEGER,
	raw            TEXT,
	recorded_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_conditions_history_station ON conditions_history(station);
CREATE INDEX IF NOT EXISTS idx_conditions_history_time ON conditions_history(recorded_at);

-- Operational: current forecast per station.
CREATE TABLE IF NOT EXISTS forecast_current (
	station    TEXT PRIMARY KEY,
	issued     DATETIME NOT NULL,
	valid_from DATETIME,
	valid_to   DATETIME,
	periods    TEXT,  -- JSON array of period rows.
	raw        TEXT,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	synced_at  DATETIME
);

CREATE INDEX IF NOT EXISTS idx_forecast_current_synced ON forecast_current(synced_at);

-- Reference data: airspace advisories seen on the feeds.
CREATE TABLE IF NOT EXISTS advisories (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	advisory_id       TEXT NOT NULL,
	fir               TEXT NOT NULL,
	phenomenon        TEXT,
	altitude          TEXT,
	movement          TEXT,
	valid_from        DATETIME,
	valid_to          DATETIME,
	boundary          TEXT,  -- JSON array of lat/lon points.
	raw               TEXT,
	observation_count INTEGER NOT NULL DEFAULT 1,
	first_seen        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_seen         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	synced_at         DATETIME,
	UNIQUE(advisory_id, fir)
);

CREATE INDEX IF NOT EXISTS idx_advisories_fir ON advisories(fir);
CREATE INDEX IF NOT EXISTS idx_advisories_valid_to ON advisories(valid_to);
CREATE INDEX IF NOT EXISTS idx_advisories_synced ON advisories(synced_at);
`
