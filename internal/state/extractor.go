package state

import (
	"wx_decoder/internal/bulletin"
	"wx_decoder/internal/extractor"
	"wx_decoder/internal/registry"
)

// ExtractAndUpdate extracts conditions data from parse results and applies it
// to the tracker in one step. It returns the category transitions the
// bulletin produced, if any.
func ExtractAndUpdate(t *Tracker, b *bulletin.Bulletin, results []registry.Result) []*Transition {
	return Apply(t, extractor.Extract(b, results))
}

// Apply feeds already-extracted data into the tracker. Callers that need the
// extracted rows for other sinks extract once and pass the data here.
func Apply(t *Tracker, data extractor.ExtractedData) []*Transition {
	var transitions []*Transition

	for _, c := range data.Conditions {
		_, tr := t.UpdateConditions(c)
		if tr != nil {
			transitions = append(transitions, tr)
		}
	}

	// Forecast periods arrive as one row per period. Store each bulletin's
	// set whole, keyed by station.
	if len(data.Periods) > 0 {
		byStation := make(map[string][]*extractor.PeriodUpdate)
		for _, p := range data.Periods {
			byStation[p.Station] = append(byStation[p.Station], p)
		}
		for station, periods := range byStation {
			t.UpdateForecast(station, periods[0].Issued, periods[0].Raw, periods)
		}
	}

	for _, a := range data.Advisories {
		t.UpdateAdvisory(a)
	}

	return transitions
}
