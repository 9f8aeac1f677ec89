package state

import (
	"encoding/json"
	"time"

	"wx_decoder/internal/extractor"
	"wx_decoder/internal/wx"
)

// Station represents a reporting station with its lifetime counters.
type Station struct {
	ICAO         string     `json:"icao"`
	FirstSeen    time.Time  `json:"first_seen"`
	LastSeen     time.Time  `json:"last_seen"`
	ReportCount  int        `json:"report_count"`
	LastCategory string     `json:"last_category,omitempty"`
	SyncedAt     *time.Time `json:"synced_at,omitempty"`
}

// StationState represents the current known conditions at a station.
type StationState struct {
	Station      string     `json:"station"`
	Category     string     `json:"category,omitempty"`
	PrevCategory string     `json:"prev_category,omitempty"`
	ChangedAt    *time.Time `json:"changed_at,omitempty"` // when the category last changed
	ReportType   string     `json:"report_type,omitempty"`
	VisibilityMi *float64   `json:"visibility_mi,omitempty"`
	CeilingFt    *int       `json:"ceiling_ft,omitempty"`
	WindDirDeg   *int       `json:"wind_dir_deg,omitempty"`
	WindSpeedKt  *int       `json:"wind_speed_kt,omitempty"`
	WindGustKt   *int       `json:"wind_gust_kt,omitempty"`
	TemperatureC *float64   `json:"temperature_c,omitempty"`
	DewPointC    *float64   `json:"dew_point_c,omitempty"`
	AltimeterHPa int        `json:"altimeter_hpa,omitempty"`
	Weather      []string   `json:"weather,omitempty"`
	ObservedAt   *time.Time `json:"observed_at,omitempty"`
	Raw          string     `json:"raw,omitempty"`
	FirstSeen    time.Time  `json:"first_seen"`
	LastSeen     time.Time  `json:"last_seen"`
	ReportCount  int        `json:"report_count"`
}

// HasConditions returns true if the state carries any decoded conditions.
func (s *StationState) HasConditions() bool {
	return s.Category != "" || s.VisibilityMi != nil || s.CeilingFt != nil ||
		s.WindSpeedKt != nil || len(s.Weather) > 0
}

// IMC returns true when the station sits in instrument conditions (IFR or
// worse).
func (s *StationState) IMC() bool {
	cat, ok := wx.ParseCategory(s.Category)
	return ok && cat.Known() && cat <= wx.IFR
}

// Transition represents one flight-category change at a station.
type Transition struct {
	Station string    `json:"station"`
	From    string    `json:"from"` // empty for the first report seen
	To      string    `json:"to"`
	At      time.Time `json:"at"`
	Raw     string    `json:"raw,omitempty"`
}

// Worsened returns true when the transition moved down the category scale.
// Transitions into or out of Unknown never count as worsening.
func (tr *Transition) Worsened() bool {
	from, okFrom := wx.ParseCategory(tr.From)
	to, okTo := wx.ParseCategory(tr.To)
	if !okFrom || !okTo || !from.Known() || !to.Known() {
		return false
	}
	return to < from
}

// ForecastState represents the current forecast held for a station.
type ForecastState struct {
	Station   string     `json:"station"`
	Issued    time.Time  `json:"issued"`
	ValidFrom time.Time  `json:"valid_from"`
	ValidTo   time.Time  `json:"valid_to"`
	Periods   string     `json:"periods,omitempty"` // JSON array of period rows
	Raw       string     `json:"raw,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
	SyncedAt  *time.Time `json:"synced_at,omitempty"`
}

// DecodePeriods unmarshals the stored period rows.
func (f *ForecastState) DecodePeriods() []*extractor.PeriodUpdate {
	var periods []*extractor.PeriodUpdate
	if f.Periods != "" {
		_ = json.Unmarshal([]byte(f.Periods), &periods)
	}
	return periods
}

// CurrentPeriod selects the period that applies at the given instant.
func (f *ForecastState) CurrentPeriod(now time.Time) (*extractor.PeriodUpdate, bool) {
	return extractor.CurrentPeriod(f.DecodePeriods(), now)
}

// Advisory represents an airspace advisory observed on the feeds.
type Advisory struct {
	ID               int64      `json:"id"`
	AdvisoryID       string     `json:"advisory_id"`
	FIR              string     `json:"fir"`
	Phenomenon       string     `json:"phenomenon,omitempty"`
	Altitude         string     `json:"altitude,omitempty"`
	Movement         string     `json:"movement,omitempty"`
	ValidFrom        *time.Time `json:"valid_from,omitempty"`
	ValidTo          *time.Time `json:"valid_to,omitempty"`
	Boundary         string     `json:"boundary,omitempty"` // JSON array of lat/lon points
	Raw              string     `json:"raw,omitempty"`
	ObservationCount int        `json:"observation_count"`
	FirstSeen        time.Time  `json:"first_seen"`
	LastSeen         time.Time  `json:"last_seen"`
	SyncedAt         *time.Time `json:"synced_at,omitempty"`
}

// Active returns true if the advisory's validity window contains the instant.
// Advisories without a decoded window are treated as active.
func (a *Advisory) Active(now time.Time) bool {
	if a.ValidFrom != nil && now.Before(*a.ValidFrom) {
		return false
	}
	if a.ValidTo != nil && now.After(*a.ValidTo) {
		return false
	}
	return true
}
