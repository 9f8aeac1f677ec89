package state

import (
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"wx_decoder/internal/extractor"
	"wx_decoder/internal/wx"
)

// Tracker manages station conditions state and reference data.
type Tracker struct {
	db    *sql.DB
	mu    sync.RWMutex
	clock clockwork.Clock

	// In-memory conditions cache for fast access.
	stations map[string]*StationState

	// Callbacks for change notifications.
	onStationNew      func(*Station)
	onCategoryChanged func(*Transition)
	onAdvisoryNew     func(*Advisory)
}

// NewTracker creates a new state tracker with the given database path.
// If dbPath is empty or ":memory:", uses an in-memory database.
func NewTracker(dbPath string) (*Tracker, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// Initialise the schema.
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	t := &Tracker{
		db:       db,
		clock:    clockwork.NewRealClock(),
		stations: make(map[string]*StationState),
	}

	// Load recent station states into memory.
	if err := t.loadStationStates(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return t, nil
}

// Close closes the database connection.
func (t *Tracker) Close() error {
	return t.db.Close()
}

// OnStationNew sets a callback for when a new station is seen.
func (t *Tracker) OnStationNew(fn func(*Station)) {
	t.onStationNew = fn
}

// OnCategoryChanged sets a callback for when a station's flight category
// changes.
func (t *Tracker) OnCategoryChanged(fn func(*Transition)) {
	t.onCategoryChanged = fn
}

// OnAdvisoryNew sets a callback for when a new airspace advisory is seen.
func (t *Tracker) OnAdvisoryNew(fn func(*Advisory)) {
	t.onAdvisoryNew = fn
}

// loadStationStates loads recently updated conditions from the database into
// memory, so category change detection carries across restarts.
func (t *Tracker) loadStationStates() error {
	rows, err := t.db.Query(`
		SELECT station, category, prev_category, changed_at, report_type,
		       visibility_mi, ceiling_ft, wind_dir_deg, wind_speed_kt, wind_gust_kt,
		       temperature_c, dew_point_c, altimeter_hpa, weather, observed_at, raw,
		       first_seen, last_seen, report_count
		FROM conditions_current
		WHERE last_seen > ?
	`, t.clock.Now().Add(-6*time.Hour))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		ss, err := scanStationState(rows)
		if err != nil {
			continue
		}
		t.stations[ss.Station] = ss
	}

	return rows.Err()
}

// UpdateConditions applies one conditions row to the tracker. It returns the
// updated state and, when the flight category changed, the transition.
func (t *Tracker) UpdateConditions(update *extractor.ConditionsUpdate) (*StationState, *Transition) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if update == nil || update.Station == "" {
		return nil, nil
	}

	now := t.clock.Now()

	ss, exists := t.stations[update.Station]
	if !exists {
		ss = &StationState{
			Station:   update.Station,
			FirstSeen: now,
		}
		t.stations[update.Station] = ss
	}

	// An Unknown classification is absence of data, not a state: it bumps the
	// counters but never overwrites known conditions.
	var transition *Transition
	if knownCategory(update.Category) {
		if update.Category != ss.Category {
			transition = &Transition{
				Station: ss.Station,
				From:    ss.Category,
				To:      update.Category,
				At:      now,
				Raw:     update.Raw,
			}
			ss.PrevCategory = ss.Category
			ss.Category = update.Category
			changed := now
			ss.ChangedAt = &changed
		}

		// Each report is a complete statement of current conditions, so its
		// fields replace the previous ones outright. A report that omits the
		// ceiling means there is no ceiling now, not that it went unmeasured.
		ss.ReportType = update.ReportType
		ss.VisibilityMi = update.VisibilityMi
		ss.CeilingFt = update.CeilingFt
		ss.WindDirDeg = update.WindDirDeg
		ss.WindSpeedKt = update.WindSpeedKt
		ss.WindGustKt = update.WindGustKt
		ss.TemperatureC = update.TemperatureC
		ss.DewPointC = update.DewPointC
		ss.AltimeterHPa = update.AltimeterHPa
		ss.Weather = update.Weather
		ss.ObservedAt = update.ObservedAt
		ss.Raw = update.Raw
	}

	ss.LastSeen = now
	ss.ReportCount++

	// Persist to database.
	t.saveStationState(ss)

	// Update the station reference row.
	t.updateStation(ss.Station, ss.Category)

	// Archive and notify on category change.
	if transition != nil {
		t.recordTransition(ss, transition)
		if t.onCategoryChanged != nil {
			t.onCategoryChanged(transition)
		}
	}

	return ss, transition
}

// knownCategory reports whether a category token names a real category on
// the LIFR..VFR scale.
func knownCategory(s string) bool {
	cat, ok := wx.ParseCategory(s)
	return ok && cat.Known()
}

// saveStationState persists a station state to the database.
func (t *Tracker) saveStationState(ss *StationState) {
	weather, _ := json.Marshal(ss.Weather)

	_, err := t.db.Exec(`
		INSERT INTO conditions_current (station, category, prev_category, changed_at, report_type,
		                                visibility_mi, ceiling_ft, wind_dir_deg, wind_speed_kt, wind_gust_kt,
		                                temperature_c, dew_point_c, altimeter_hpa, weather, observed_at, raw,
		                                first_seen, last_seen, report_count, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT(station) DO UPDATE SET
			category = excluded.category,
			prev_category = excluded.prev_category,
			changed_at = excluded.changed_at,
			report_type = excluded.report_type,
			visibility_mi = excluded.visibility_mi,
			ceiling_ft = excluded.ceiling_ft,
			wind_dir_deg = excluded.wind_dir_deg,
			wind_speed_kt = excluded.wind_speed_kt,
			wind_gust_kt = excluded.wind_gust_kt,
			temperature_c = excluded.temperature_c,
			dew_point_c = excluded.dew_point_c,
			altimeter_hpa = excluded.altimeter_hpa,
			weather = excluded.weather,
			observed_at = excluded.observed_at,
			raw = excluded.raw,
			last_seen = excluded.last_seen,
			report_count = excluded.report_count,
			synced_at = NULL
	`,
		ss.Station, ss.Category, ss.PrevCategory, ss.ChangedAt, ss.ReportType,
		ss.VisibilityMi, ss.CeilingFt, ss.WindDirDeg, ss.WindSpeedKt, ss.WindGustKt,
		ss.TemperatureC, ss.DewPointC, ss.AltimeterHPa, string(weather), ss.ObservedAt, ss.Raw,
		ss.FirstSeen, ss.LastSeen, ss.ReportCount,
	)
	// Silently ignore errors - conditions state is best-effort.
	_ = err
}

// updateStation updates or inserts a station reference record.
func (t *Tracker) updateStation(icao, category string) {
	now := t.clock.Now()

	// Check if this is a new station.
	var exists bool
	_ = t.db.QueryRow("SELECT 1 FROM stations WHERE icao = ?", icao).Scan(&exists)

	if !exists {
		// New station - insert and trigger callback.
		_, err := t.db.Exec(`
			INSERT INTO stations (icao, first_seen, last_seen, last_category)
			VALUES (?, ?, ?, ?)
		`, icao, now, now, category)

		if err == nil && t.onStationNew != nil {
			t.onStationNew(&Station{
				ICAO:         icao,
				FirstSeen:    now,
				LastSeen:     now,
				ReportCount:  1,
				LastCategory: category,
			})
		}
	} else {
		// Update existing station.
		_, _ = t.db.Exec(`
			UPDATE stations SET
				last_category = COALESCE(NULLIF(?, ''), last_category),
				last_seen = ?,
				report_count = report_count + 1,
				synced_at = NULL
			WHERE icao = ?
		`, category, now, icao)
	}
}

// recordTransition archives the new conditions at a category change.
func (t *Tracker) recordTransition(ss *StationState, tr *Transition) {
	_, _ = t.db.Exec(`
		INSERT INTO conditions_history (station, category, prev_category, report_type,
		                                visibility_mi, ceiling_ft, raw, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, ss.Station, tr.To, tr.From, ss.ReportType, ss.VisibilityMi, ss.CeilingFt, ss.Raw, tr.At)
}

// UpdateForecast stores the latest forecast for a station. Bulletins older
// than the stored forecast are ignored. Returns true when the forecast was
// stored.
func (t *Tracker) UpdateForecast(station string, issued time.Time, raw string, periods []*extractor.PeriodUpdate) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if station == "" || len(periods) == 0 {
		return false
	}

	var existing sql.NullTime
	_ = t.db.QueryRow("SELECT issued FROM forecast_current WHERE station = ?", station).Scan(&existing)
	if existing.Valid && issued.Before(existing.Time) {
		return false
	}

	validFrom, validTo := periods[0].From, periods[0].To
	for _, p := range periods {
		if p.From.Before(validFrom) {
			validFrom = p.From
		}
		if p.To.After(validTo) {
			validTo = p.To
		}
	}

	periodsJSON, _ := json.Marshal(periods)

	_, _ = t.db.Exec(`
		INSERT INTO forecast_current (station, issued, valid_from, valid_to, periods, raw, updated_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT(station) DO UPDATE SET
			issued = excluded.issued,
			valid_from = excluded.valid_from,
			valid_to = excluded.valid_to,
			periods = excluded.periods,
			raw = excluded.raw,
			updated_at = excluded.updated_at,
			synced_at = NULL
	`, station, issued, validFrom, validTo, string(periodsJSON), raw, t.clock.Now())

	return true
}

// GetForecast returns the stored forecast for a station, or nil if none.
func (t *Tracker) GetForecast(station string) (*ForecastState, error) {
	row := t.db.QueryRow(`
		SELECT station, issued, valid_from, valid_to, periods, raw, updated_at
		FROM forecast_current WHERE station = ?
	`, station)

	var fs ForecastState
	var validFrom, validTo sql.NullTime
	var periods, raw sql.NullString
	err := row.Scan(&fs.Station, &fs.Issued, &validFrom, &validTo, &periods, &raw, &fs.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	fs.ValidFrom = validFrom.Time
	fs.ValidTo = validTo.Time
	fs.Periods = periods.String
	fs.Raw = raw.String
	return &fs, nil
}

// UpdateAdvisory records an advisory sighting, inserting new advisories and
// bumping counts on repeats.
func (t *Tracker) UpdateAdvisory(update *extractor.AdvisoryUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if update == nil || update.ID == "" || update.FIR == "" {
		return
	}

	now := t.clock.Now()
	boundary, _ := json.Marshal(update.Boundary)

	// Check if this advisory exists.
	var id int64
	err := t.db.QueryRow(`
		SELECT id FROM advisories
		WHERE advisory_id = ? AND fir = ?
	`, update.ID, update.FIR).Scan(&id)

	switch err {
	case sql.ErrNoRows:
		// New advisory - insert and trigger callback.
		result, err := t.db.Exec(`
			INSERT INTO advisories (advisory_id, fir, phenomenon, altitude, movement,
			                        valid_from, valid_to, boundary, raw, first_seen, last_seen)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, update.ID, update.FIR, update.Phenomenon, update.Altitude, update.Movement,
			update.ValidFrom, update.ValidTo, string(boundary), update.Raw, now, now)

		if err == nil && t.onAdvisoryNew != nil {
			newID, _ := result.LastInsertId()
			t.onAdvisoryNew(&Advisory{
				ID:               newID,
				AdvisoryID:       update.ID,
				FIR:              update.FIR,
				Phenomenon:       update.Phenomenon,
				Altitude:         update.Altitude,
				Movement:         update.Movement,
				ValidFrom:        update.ValidFrom,
				ValidTo:          update.ValidTo,
				Boundary:         string(boundary),
				Raw:              update.Raw,
				ObservationCount: 1,
				FirstSeen:        now,
				LastSeen:         now,
			})
		}
	case nil:
		// Update existing advisory. Repeats sometimes carry a corrected
		// window, so non-null times replace the stored ones.
		_, _ = t.db.Exec(`
			UPDATE advisories SET
				phenomenon = COALESCE(NULLIF(?, ''), phenomenon),
				valid_from = COALESCE(?, valid_from),
				valid_to = COALESCE(?, valid_to),
				observation_count = observation_count + 1,
				last_seen = ?,
				synced_at = NULL
			WHERE id = ?
		`, update.Phenomenon, update.ValidFrom, update.ValidTo, now, id)
	default:
		// Silently ignore query errors.
	}
}

// GetStation returns the current conditions state for a station by ICAO.
func (t *Tracker) GetStation(icao string) *StationState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stations[icao]
}

// GetAllStations returns all tracked station states.
func (t *Tracker) GetAllStations() []*StationState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]*StationState, 0, len(t.stations))
	for _, ss := range t.stations {
		result = append(result, ss)
	}
	return result
}

// GetActiveStations returns stations that reported within the given duration.
func (t *Tracker) GetActiveStations(within time.Duration) []*StationState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cutoff := t.clock.Now().Add(-within)
	result := make([]*StationState, 0)
	for _, ss := range t.stations {
		if ss.LastSeen.After(cutoff) {
			result = append(result, ss)
		}
	}
	return result
}

// GetActiveAdvisories returns advisories whose validity window contains the
// present, including those without a decoded window.
func (t *Tracker) GetActiveAdvisories() ([]*Advisory, error) {
	now := t.clock.Now()
	rows, err := t.db.Query(`
		SELECT id, advisory_id, fir, phenomenon, altitude, movement,
		       valid_from, valid_to, boundary, raw, observation_count, first_seen, last_seen
		FROM advisories
		WHERE (valid_from IS NULL OR valid_from <= ?)
		  AND (valid_to IS NULL OR valid_to >= ?)
	`, now, now)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []*Advisory
	for rows.Next() {
		a, err := scanAdvisory(rows)
		if err != nil {
			continue
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// CleanupStale removes station states older than the given duration.
func (t *Tracker) CleanupStale(olderThan time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.clock.Now().Add(-olderThan)
	removed := 0

	for icao, ss := range t.stations {
		if ss.LastSeen.Before(cutoff) {
			delete(t.stations, icao)
			removed++
		}
	}

	// Also cleanup database.
	_, _ = t.db.Exec("DELETE FROM conditions_current WHERE last_seen < ?", cutoff)

	return removed
}

// GetUnsyncedStations returns station records that haven't been synced.
func (t *Tracker) GetUnsyncedStations() ([]*Station, error) {
	rows, err := t.db.Query(`
		SELECT icao, first_seen, last_seen, report_count, last_category
		FROM stations WHERE synced_at IS NULL
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []*Station
	for rows.Next() {
		var s Station
		var lastCategory sql.NullString
		if err := rows.Scan(&s.ICAO, &s.FirstSeen, &s.LastSeen,
			&s.ReportCount, &lastCategory); err != nil {
			continue
		}
		s.LastCategory = lastCategory.String
		result = append(result, &s)
	}
	return result, rows.Err()
}

// GetUnsyncedConditions returns conditions rows that haven't been synced.
func (t *Tracker) GetUnsyncedConditions() ([]*StationState, error) {
	rows, err := t.db.Query(`
		SELECT station, category, prev_category, changed_at, report_type,
		       visibility_mi, ceiling_ft, wind_dir_deg, wind_speed_kt, wind_gust_kt,
		       temperature_c, dew_point_c, altimeter_hpa, weather, observed_at, raw,
		       first_seen, last_seen, report_count
		FROM conditions_current WHERE synced_at IS NULL
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []*StationState
	for rows.Next() {
		ss, err := scanStationState(rows)
		if err != nil {
			continue
		}
		result = append(result, ss)
	}
	return result, rows.Err()
}

// GetUnsyncedForecasts returns forecast rows that haven't been synced.
func (t *Tracker) GetUnsyncedForecasts() ([]*ForecastState, error) {
	rows, err := t.db.Query(`
		SELECT station, issued, valid_from, valid_to, periods, raw, updated_at
		FROM forecast_current WHERE synced_at IS NULL
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []*ForecastState
	for rows.Next() {
		var fs ForecastState
		var validFrom, validTo sql.NullTime
		var periods, raw sql.NullString
		if err := rows.Scan(&fs.Station, &fs.Issued, &validFrom, &validTo,
			&periods, &raw, &fs.UpdatedAt); err != nil {
			continue
		}
		fs.ValidFrom = validFrom.Time
		fs.ValidTo = validTo.Time
		fs.Periods = periods.String
		fs.Raw = raw.String
		result = append(result, &fs)
	}
	return result, rows.Err()
}

// GetUnsyncedAdvisories returns advisories that haven't been synced.
func (t *Tracker) GetUnsyncedAdvisories() ([]*Advisory, error) {
	rows, err := t.db.Query(`
		SELECT id, advisory_id, fir, phenomenon, altitude, movement,
		       valid_from, valid_to, boundary, raw, observation_count, first_seen, last_seen
		FROM advisories WHERE synced_at IS NULL
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []*Advisory
	for rows.Next() {
		a, err := scanAdvisory(rows)
		if err != nil {
			continue
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// MarkStationSynced marks a station record as synced.
func (t *Tracker) MarkStationSynced(icao string) error {
	_, err := t.db.Exec("UPDATE stations SET synced_at = CURRENT_TIMESTAMP WHERE icao = ?", icao)
	return err
}

// MarkConditionsSynced marks a conditions row as synced.
func (t *Tracker) MarkConditionsSynced(station string) error {
	_, err := t.db.Exec("UPDATE conditions_current SET synced_at = CURRENT_TIMESTAMP WHERE station = ?", station)
	return err
}

// MarkForecastSynced marks a forecast row as synced.
func (t *Tracker) MarkForecastSynced(station string) error {
	_, err := t.db.Exec("UPDATE forecast_current SET synced_at = CURRENT_TIMESTAMP WHERE station = ?", station)
	return err
}

// MarkAdvisorySynced marks an advisory as synced.
func (t *Tracker) MarkAdvisorySynced(id int64) error {
	_, err := t.db.Exec("UPDATE advisories SET synced_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	return err
}

// Stats returns statistics about tracked data.
type Stats struct {
	ActiveStations   int
	TotalStations    int
	TotalAdvisories  int
	TotalTransitions int
	UnsyncedCount    int
}

func (t *Tracker) GetStats() Stats {
	t.mu.RLock()
	activeStations := len(t.stations)
	t.mu.RUnlock()

	var stats Stats
	stats.ActiveStations = activeStations

	_ = t.db.QueryRow("SELECT COUNT(*) FROM stations").Scan(&stats.TotalStations)
	_ = t.db.QueryRow("SELECT COUNT(*) FROM advisories").Scan(&stats.TotalAdvisories)
	_ = t.db.QueryRow("SELECT COUNT(*) FROM conditions_history").Scan(&stats.TotalTransitions)
	_ = t.db.QueryRow(`
		SELECT (SELECT COUNT(*) FROM stations WHERE synced_at IS NULL) +
		       (SELECT COUNT(*) FROM conditions_current WHERE synced_at IS NULL) +
		       (SELECT COUNT(*) FROM forecast_current WHERE synced_at IS NULL) +
		       (SELECT COUNT(*) FROM advisories WHERE synced_at IS NULL)
	`).Scan(&stats.UnsyncedCount)

	return stats
}

// scanStationState scans one conditions row in the canonical column order.
func scanStationState(rows *sql.Rows) (*StationState, error) {
	var ss StationState
	var category, prevCategory, reportType, weather, raw sql.NullString
	var changedAt, observedAt sql.NullTime
	var vis, temp, dew sql.NullFloat64
	var ceil, windDir, windSpd, windGust, altim sql.NullInt64

	err := rows.Scan(
		&ss.Station, &category, &prevCategory, &changedAt, &reportType,
		&vis, &ceil, &windDir, &windSpd, &windGust,
		&temp, &dew, &altim, &weather, &observedAt, &raw,
		&ss.FirstSeen, &ss.LastSeen, &ss.ReportCount,
	)
	if err != nil {
		return nil, err
	}

	ss.Category = category.String
	ss.PrevCategory = prevCategory.String
	ss.ReportType = reportType.String
	ss.Raw = raw.String
	if changedAt.Valid {
		v := changedAt.Time
		ss.ChangedAt = &v
	}
	if observedAt.Valid {
		v := observedAt.Time
		ss.ObservedAt = &v
	}
	if vis.Valid {
		v := vis.Float64
		ss.VisibilityMi = &v
	}
	if temp.Valid {
		v := temp.Float64
		ss.TemperatureC = &v
	}
	if dew.Valid {
		v := dew.Float64
		ss.DewPointC = &v
	}
	if ceil.Valid {
		v := int(ceil.Int64)
		ss.CeilingFt = &v
	}
	if windDir.Valid {
		v := int(windDir.Int64)
		ss.WindDirDeg = &v
	}
	if windSpd.Valid {
		v := int(windSpd.Int64)
		ss.WindSpeedKt = &v
	}
	if windGust.Valid {
		v := int(windGust.Int64)
		ss.WindGustKt = &v
	}
	ss.AltimeterHPa = int(altim.Int64)
	if weather.Valid && weather.String != "" {
		_ = json.Unmarshal([]byte(weather.String), &ss.Weather)
	}

	return &ss, nil
}

// scanAdvisory scans one advisory row in the canonical column order.
func scanAdvisory(rows *sql.Rows) (*Advisory, error) {
	var a Advisory
	var phenomenon, altitude, movement, boundary, raw sql.NullString
	var validFrom, validTo sql.NullTime

	err := rows.Scan(
		&a.ID, &a.AdvisoryID, &a.FIR, &phenomenon, &altitude, &movement,
		&validFrom, &validTo, &boundary, &raw,
		&a.ObservationCount, &a.FirstSeen, &a.LastSeen,
	)
	if err != nil {
		return nil, err
	}

	a.Phenomenon = phenomenon.String
	a.Altitude = altitude.String
	a.Movement = movement.String
	a.Boundary = boundary.String
	a.Raw = raw.String
	if validFrom.Valid {
		v := validFrom.Time
		a.ValidFrom = &v
	}
	if validTo.Valid {
		v := validTo.Time
		a.ValidTo = &v
	}

	return &a, nil
}
