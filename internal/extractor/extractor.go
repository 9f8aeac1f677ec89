// Package extractor provides functions for extracting conditions data from
// parsed weather bulletins. This package is database-agnostic and can be used
// with any storage backend.
package extractor

import (
	"encoding/json"
	"time"

	"wx_decoder/internal/bulletin"
	"wx_decoder/internal/patterns"
	"wx_decoder/internal/registry"
)

// ConditionsUpdate contains station conditions extracted from one observation
// report. Pointer fields distinguish "not reported" from legitimate zeros
// (calm wind, zero visibility).
type ConditionsUpdate struct {
	Station             string     `json:"station"`
	ReportType          string     `json:"report_type,omitempty"` // METAR or SPECI
	Category            string     `json:"category,omitempty"`
	VisibilityMi        *float64   `json:"visibility_mi,omitempty"`
	VisibilityUnbounded bool       `json:"visibility_unbounded,omitempty"`
	CeilingFt           *int       `json:"ceiling_ft,omitempty"`
	WindDirDeg          *int       `json:"wind_dir_deg,omitempty"`
	WindVariable        bool       `json:"wind_variable,omitempty"`
	WindSpeedKt         *int       `json:"wind_speed_kt,omitempty"`
	WindGustKt          *int       `json:"wind_gust_kt,omitempty"`
	TemperatureC        *float64   `json:"temperature_c,omitempty"`
	DewPointC           *float64   `json:"dew_point_c,omitempty"`
	AltimeterHPa        int        `json:"altimeter_hpa,omitempty"`
	SeaLevelPressureHPa float64    `json:"sea_level_pressure_hpa,omitempty"`
	Weather             []string   `json:"weather,omitempty"`
	ObservedAt          *time.Time `json:"observed_at,omitempty"`
	Raw                 string     `json:"raw,omitempty"`
}

// PeriodUpdate contains one forecast period extracted from a decoded bulletin.
type PeriodUpdate struct {
	Station      string    `json:"station"`
	Issued       time.Time `json:"issued"`
	Marker       string    `json:"marker"` // BASE, FM, TEMPO, BECMG, PROB
	Probability  int       `json:"probability,omitempty"`
	Category     string    `json:"category,omitempty"`
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	VisibilityMi *float64  `json:"visibility_mi,omitempty"`
	CeilingFt    *int      `json:"ceiling_ft,omitempty"`
	Raw          string    `json:"raw,omitempty"`
}

// AdvisoryUpdate contains airspace advisory data extracted from a SIGMET.
type AdvisoryUpdate struct {
	ID         string           `json:"id"`
	FIR        string           `json:"fir,omitempty"`
	Phenomenon string           `json:"phenomenon,omitempty"`
	Altitude   string           `json:"altitude,omitempty"`
	Movement   string           `json:"movement,omitempty"`
	ValidFrom  *time.Time       `json:"valid_from,omitempty"`
	ValidTo    *time.Time       `json:"valid_to,omitempty"`
	Boundary   []patterns.Point `json:"boundary,omitempty"`
	Raw        string           `json:"raw,omitempty"`
}

// UnparsedUpdate records a bulletin nothing could decode, for archival.
type UnparsedUpdate struct {
	Station string `json:"station,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Raw     string `json:"raw"`
}

// ExtractedData is a container for all data extracted from a bulletin.
type ExtractedData struct {
	Conditions []*ConditionsUpdate `json:"conditions,omitempty"`
	Periods    []*PeriodUpdate     `json:"periods,omitempty"`
	Advisories []*AdvisoryUpdate   `json:"advisories,omitempty"`
	Unparsed   *UnparsedUpdate     `json:"unparsed,omitempty"`
}

// CurrentPeriod selects the period operative at the given instant: the first
// period that contains it or has yet to start, falling back to the last
// period once the timeline has lapsed.
func CurrentPeriod(periods []*PeriodUpdate, now time.Time) (*PeriodUpdate, bool) {
	if len(periods) == 0 {
		return nil, false
	}
	for _, p := range periods {
		if !p.From.Before(now) {
			return p, true
		}
		if !now.After(p.To) {
			return p, true
		}
	}
	return periods[len(periods)-1], true
}

// Extract extracts relevant data from a bulletin and its parsed results.
// This function is database-agnostic and returns all extracted data for the
// caller to process as needed.
func Extract(b *bulletin.Bulletin, results []registry.Result) ExtractedData {
	data := ExtractedData{}

	// Process each parsed result to extract storage-ready rows.
	for _, result := range results {
		extractFromResult(&data, result)
	}

	// Backfill the station from the envelope when the report text had none.
	if station := b.EffectiveStation(); station != "" {
		for _, c := range data.Conditions {
			if c.Station == "" {
				c.Station = station
			}
		}
		for _, p := range data.Periods {
			if p.Station == "" {
				p.Station = station
			}
		}
	}

	return data
}

// extractFromResult extracts rows from a parsed result into the container.
func extractFromResult(data *ExtractedData, result registry.Result) {
	// Convert result to a map for generic field access.
	b, err := json.Marshal(result)
	if err != nil {
		return
	}

	var m map[string]interface{}
	if json.Unmarshal(b, &m) != nil {
		return
	}

	// Observation reports, decoded from text bulletins.
	if reports, ok := m["reports"].([]interface{}); ok {
		for _, r := range reports {
			if rm, ok := r.(map[string]interface{}); ok {
				if c := conditionsFromReport(rm); c != nil {
					data.Conditions = append(data.Conditions, c)
				}
			}
		}
	}

	// Observation records, passed through from structured feeds.
	if records, ok := m["records"].([]interface{}); ok {
		for _, r := range records {
			if rm, ok := r.(map[string]interface{}); ok {
				if c := conditionsFromReport(rm); c != nil {
					data.Conditions = append(data.Conditions, c)
				}
			}
		}
	}

	// Forecast timelines, flattened to one row per period.
	if forecasts, ok := m["forecasts"].([]interface{}); ok {
		for _, f := range forecasts {
			if fm, ok := f.(map[string]interface{}); ok {
				data.Periods = append(data.Periods, periodsFromForecast(fm)...)
			}
		}
	}

	// Airspace advisories.
	if advisories, ok := m["advisories"].([]interface{}); ok {
		for _, a := range advisories {
			if am, ok := a.(map[string]interface{}); ok {
				if adv := advisoryFromMap(am); adv != nil {
					data.Advisories = append(data.Advisories, adv)
				}
			}
		}
	}

	// Archive bulletins nothing could decode.
	if result.Type() == "unparsed" {
		u := &UnparsedUpdate{}
		u.Station, _ = m["station"].(string)
		u.Kind, _ = m["kind"].(string)
		u.Raw, _ = m["raw"].(string)
		if u.Raw != "" {
			data.Unparsed = u
		}
	}
}

// conditionsFromReport extracts a conditions row from one report map.
func conditionsFromReport(m map[string]interface{}) *ConditionsUpdate {
	obs, _ := m["observation"].(map[string]interface{})
	if obs == nil {
		return nil
	}

	c := &ConditionsUpdate{}
	c.Station, _ = obs["station"].(string)
	c.Raw, _ = obs["raw"].(string)
	c.ReportType, _ = m["report_type"].(string)
	c.Category, _ = m["category"].(string)
	c.ObservedAt = parseJSONTime(obs["issued"])

	if vis, ok := obs["visibility"].(map[string]interface{}); ok {
		if v, ok := vis["miles"].(float64); ok {
			c.VisibilityMi = &v
		}
		c.VisibilityUnbounded, _ = vis["unbounded"].(bool)
	}
	if ceil, ok := obs["ceiling"].(map[string]interface{}); ok {
		if v, ok := ceil["feet"].(float64); ok {
			ft := int(v)
			c.CeilingFt = &ft
		}
	}
	if wind, ok := obs["wind"].(map[string]interface{}); ok {
		if v, ok := wind["direction"].(float64); ok {
			deg := int(v)
			c.WindDirDeg = &deg
		}
		c.WindVariable, _ = wind["variable"].(bool)
		if v, ok := wind["speed"].(float64); ok {
			kt := int(v)
			c.WindSpeedKt = &kt
		}
		if v, ok := wind["gust"].(float64); ok && v != 0 {
			kt := int(v)
			c.WindGustKt = &kt
		}
	}
	if weather, ok := obs["weather"].([]interface{}); ok {
		for _, w := range weather {
			if s, ok := w.(string); ok && s != "" {
				c.Weather = append(c.Weather, s)
			}
		}
	}

	// Body temperatures. The remark T-group reports tenths of a degree, so it
	// overrides the whole-degree body values when present.
	if v, ok := m["temperature_c"].(float64); ok {
		c.TemperatureC = &v
	}
	if v, ok := m["dew_point_c"].(float64); ok {
		c.DewPointC = &v
	}
	if v, ok := m["altimeter_hpa"].(float64); ok {
		c.AltimeterHPa = int(v)
	}
	if rmk, ok := m["remarks"].(map[string]interface{}); ok {
		if v, ok := rmk["precise_temperature_c"].(float64); ok {
			c.TemperatureC = &v
		}
		if v, ok := rmk["precise_dew_point_c"].(float64); ok {
			c.DewPointC = &v
		}
		if v, ok := rmk["sea_level_pressure_hpa"].(float64); ok {
			c.SeaLevelPressureHPa = v
		}
	}

	// Only include the row if it identifies a station or carries report text.
	if c.Station == "" && c.Raw == "" {
		return nil
	}
	return c
}

// periodsFromForecast flattens one forecast map into period rows.
func periodsFromForecast(m map[string]interface{}) []*PeriodUpdate {
	station, _ := m["station"].(string)
	issued := timeOrZero(m["issued"])

	periods, ok := m["periods"].([]interface{})
	if !ok {
		return nil
	}

	var updates []*PeriodUpdate
	for _, p := range periods {
		pm, ok := p.(map[string]interface{})
		if !ok {
			continue
		}

		up := &PeriodUpdate{Station: station, Issued: issued}
		up.Marker, _ = pm["kind"].(string)
		if v, ok := pm["probability"].(float64); ok {
			up.Probability = int(v)
		}
		up.Category, _ = pm["category"].(string)
		up.From = timeOrZero(pm["from"])
		up.To = timeOrZero(pm["to"])
		if vis, ok := pm["visibility"].(map[string]interface{}); ok {
			if v, ok := vis["miles"].(float64); ok {
				up.VisibilityMi = &v
			}
		}
		if ceil, ok := pm["ceiling"].(map[string]interface{}); ok {
			if v, ok := ceil["feet"].(float64); ok {
				ft := int(v)
				up.CeilingFt = &ft
			}
		}
		up.Raw, _ = pm["raw"].(string)

		updates = append(updates, up)
	}
	return updates
}

// advisoryFromMap extracts an advisory row from one SIGMET map.
func advisoryFromMap(m map[string]interface{}) *AdvisoryUpdate {
	a := &AdvisoryUpdate{}
	a.ID, _ = m["id"].(string)
	a.FIR, _ = m["fir"].(string)
	a.Phenomenon, _ = m["phenomenon"].(string)
	a.Altitude, _ = m["altitude"].(string)
	a.Movement, _ = m["movement"].(string)
	a.Raw, _ = m["raw"].(string)
	a.ValidFrom = parseJSONTime(m["valid_from_time"])
	a.ValidTo = parseJSONTime(m["valid_to_time"])

	if boundary, ok := m["boundary"].([]interface{}); ok {
		for _, p := range boundary {
			if pm, ok := p.(map[string]interface{}); ok {
				lat, _ := pm["lat"].(float64)
				lon, _ := pm["lon"].(float64)
				a.Boundary = append(a.Boundary, patterns.Point{Lat: lat, Lon: lon})
			}
		}
	}

	if a.ID == "" && a.FIR == "" {
		return nil
	}
	return a
}

// parseJSONTime reads an RFC3339 time that survived a JSON round-trip.
// Returns nil for absent, malformed or zero values.
func parseJSONTime(v interface{}) *time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil || t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

// timeOrZero is parseJSONTime for fields where the zero value is acceptable.
func timeOrZero(v interface{}) time.Time {
	if t := parseJSONTime(v); t != nil {
		return *t
	}
	return time.Time{}
}
