package extractor

import (
	"testing"
	"time"

	"wx_decoder/internal/bulletin"
	"wx_decoder/internal/parsers/fallback"
	"wx_decoder/internal/parsers/metar"
	"wx_decoder/internal/parsers/sigmet"
	"wx_decoder/internal/parsers/taf"
	"wx_decoder/internal/registry"
)

func TestExtractObservation(t *testing.T) {
	b := &bulletin.Bulletin{
		Kind:      bulletin.KindMETAR,
		Timestamp: "2025-09-09T20:30:00Z",
		Text: "METAR KPIT 091955Z 22015G25KT 3/4SM R28L/2600FT TSRA OVC010CB " +
			"18/16 A2992 RMK AO2 SLP045 T01830161",
	}

	p := &metar.Parser{}
	result := p.Parse(b)
	if result == nil {
		t.Fatal("Parse returned nil")
	}

	data := Extract(b, []registry.Result{result})
	if len(data.Conditions) != 1 {
		t.Fatalf("got %d conditions rows, want 1", len(data.Conditions))
	}

	c := data.Conditions[0]
	if c.Station != "KPIT" {
		t.Errorf("Station = %q, want KPIT", c.Station)
	}
	if c.ReportType != "METAR" {
		t.Errorf("ReportType = %q, want METAR", c.ReportType)
	}
	if c.Category != "LIFR" {
		t.Errorf("Category = %q, want LIFR", c.Category)
	}
	if c.VisibilityMi == nil || *c.VisibilityMi != 0.75 {
		t.Errorf("VisibilityMi = %v, want 0.75", c.VisibilityMi)
	}
	if c.CeilingFt == nil || *c.CeilingFt != 1000 {
		t.Errorf("CeilingFt = %v, want 1000", c.CeilingFt)
	}
	if c.WindDirDeg == nil || *c.WindDirDeg != 220 {
		t.Errorf("WindDirDeg = %v, want 220", c.WindDirDeg)
	}
	if c.WindSpeedKt == nil || *c.WindSpeedKt != 15 {
		t.Errorf("WindSpeedKt = %v, want 15", c.WindSpeedKt)
	}
	if c.WindGustKt == nil || *c.WindGustKt != 25 {
		t.Errorf("WindGustKt = %v, want 25", c.WindGustKt)
	}
	// Precise remark values override the whole-degree body temperatures.
	if c.TemperatureC == nil || *c.TemperatureC != 18.3 {
		t.Errorf("TemperatureC = %v, want 18.3", c.TemperatureC)
	}
	if c.DewPointC == nil || *c.DewPointC != 16.1 {
		t.Errorf("DewPointC = %v, want 16.1", c.DewPointC)
	}
	if c.AltimeterHPa != 1013 {
		t.Errorf("AltimeterHPa = %d, want 1013", c.AltimeterHPa)
	}
	if c.SeaLevelPressureHPa != 1004.5 {
		t.Errorf("SeaLevelPressureHPa = %v, want 1004.5", c.SeaLevelPressureHPa)
	}
	if len(c.Weather) != 1 || c.Weather[0] != "TSRA" {
		t.Errorf("Weather = %v, want [TSRA]", c.Weather)
	}
	want := time.Date(2025, time.September, 9, 19, 55, 0, 0, time.UTC)
	if c.ObservedAt == nil || !c.ObservedAt.Equal(want) {
		t.Errorf("ObservedAt = %v, want %v", c.ObservedAt, want)
	}
}

func TestExtractForecast(t *testing.T) {
	b := &bulletin.Bulletin{
		Kind:      bulletin.KindTAF,
		Timestamp: "2025-01-01T05:00:00Z",
		Text:      "TAF KXYZ 010600Z 0106/0206 18010KT P6SM FEW250 FM012000 22015G25KT 3SM BKN015",
	}

	p := &taf.Parser{}
	result := p.Parse(b)
	if result == nil {
		t.Fatal("Parse returned nil")
	}

	data := Extract(b, []registry.Result{result})
	if len(data.Periods) != 2 {
		t.Fatalf("got %d period rows, want 2", len(data.Periods))
	}

	base := data.Periods[0]
	if base.Station != "KXYZ" {
		t.Errorf("base Station = %q, want KXYZ", base.Station)
	}
	if base.Marker != "BASE" {
		t.Errorf("base Marker = %q, want BASE", base.Marker)
	}
	if base.Category != "VFR" {
		t.Errorf("base Category = %q, want VFR", base.Category)
	}
	if want := time.Date(2025, time.January, 1, 6, 0, 0, 0, time.UTC); !base.From.Equal(want) {
		t.Errorf("base From = %v, want %v", base.From, want)
	}
	if want := time.Date(2025, time.January, 1, 20, 0, 0, 0, time.UTC); !base.To.Equal(want) {
		t.Errorf("base To = %v, want %v", base.To, want)
	}
	if !base.Issued.Equal(time.Date(2025, time.January, 1, 6, 0, 0, 0, time.UTC)) {
		t.Errorf("base Issued = %v, want 2025-01-01T06:00Z", base.Issued)
	}

	fm := data.Periods[1]
	if fm.Marker != "FM" {
		t.Errorf("fm Marker = %q, want FM", fm.Marker)
	}
	if fm.Category != "MVFR" {
		t.Errorf("fm Category = %q, want MVFR", fm.Category)
	}
	if fm.VisibilityMi == nil || *fm.VisibilityMi != 3 {
		t.Errorf("fm VisibilityMi = %v, want 3", fm.VisibilityMi)
	}
	if fm.CeilingFt == nil || *fm.CeilingFt != 1500 {
		t.Errorf("fm CeilingFt = %v, want 1500", fm.CeilingFt)
	}
	if want := time.Date(2025, time.January, 2, 6, 0, 0, 0, time.UTC); !fm.To.Equal(want) {
		t.Errorf("fm To = %v, want %v", fm.To, want)
	}
}

func TestExtractAdvisory(t *testing.T) {
	b := &bulletin.Bulletin{
		Kind:      bulletin.KindSIGMET,
		Timestamp: "2025-09-04T02:00:00Z",
		Text: "SIGMET 7 VALID 040330/040730 SBAO- SBAO ATLANTICO FIR SEV TURB FCST WI " +
			"N4530 W02230 - N4745 W01815 - N4150 W01620 FL300/380 STNR NC=",
	}

	p := &sigmet.Parser{}
	result := p.Parse(b)
	if result == nil {
		t.Fatal("Parse returned nil")
	}

	data := Extract(b, []registry.Result{result})
	if len(data.Advisories) != 1 {
		t.Fatalf("got %d advisory rows, want 1", len(data.Advisories))
	}

	a := data.Advisories[0]
	if a.ID != "7" {
		t.Errorf("ID = %q, want 7", a.ID)
	}
	if a.FIR != "SBAO ATLANTICO" {
		t.Errorf("FIR = %q, want SBAO ATLANTICO", a.FIR)
	}
	if a.Phenomenon != "SEV TURB FCST" {
		t.Errorf("Phenomenon = %q, want SEV TURB FCST", a.Phenomenon)
	}
	if len(a.Boundary) != 3 {
		t.Fatalf("got %d boundary points, want 3", len(a.Boundary))
	}
	if a.Boundary[0].Lat != 45.5 || a.Boundary[0].Lon != -22.5 {
		t.Errorf("first point = %+v, want (45.5, -22.5)", a.Boundary[0])
	}
	if want := time.Date(2025, time.September, 4, 3, 30, 0, 0, time.UTC); a.ValidFrom == nil || !a.ValidFrom.Equal(want) {
		t.Errorf("ValidFrom = %v, want %v", a.ValidFrom, want)
	}
	if want := time.Date(2025, time.September, 4, 7, 30, 0, 0, time.UTC); a.ValidTo == nil || !a.ValidTo.Equal(want) {
		t.Errorf("ValidTo = %v, want %v", a.ValidTo, want)
	}
}

func TestExtractUnparsed(t *testing.T) {
	b := &bulletin.Bulletin{Text: "KPIT SOMETHING THE DECODERS CANNOT READ"}

	p := &fallback.Parser{}
	result := p.Parse(b)
	if result == nil {
		t.Fatal("Parse returned nil")
	}

	data := Extract(b, []registry.Result{result})
	if data.Unparsed == nil {
		t.Fatal("expected an unparsed row")
	}
	if data.Unparsed.Station != "KPIT" {
		t.Errorf("Station = %q, want KPIT", data.Unparsed.Station)
	}
	if data.Unparsed.Raw != b.Text {
		t.Errorf("Raw = %q, want the original text", data.Unparsed.Raw)
	}
	if len(data.Conditions) != 0 {
		t.Errorf("got %d conditions rows, want none", len(data.Conditions))
	}
}

func TestExtractStationBackfill(t *testing.T) {
	// The report text names no station, but the envelope does.
	b := &bulletin.Bulletin{
		Station:   "KPIT",
		Kind:      bulletin.KindMETAR,
		Timestamp: "2025-09-09T20:30:00Z",
		Text:      "091955Z 1/2SM FG OVC002",
	}

	p := &metar.Parser{}
	result := p.Parse(b)
	if result == nil {
		t.Fatal("Parse returned nil")
	}

	data := Extract(b, []registry.Result{result})
	if len(data.Conditions) != 1 {
		t.Fatalf("got %d conditions rows, want 1", len(data.Conditions))
	}
	if data.Conditions[0].Station != "KPIT" {
		t.Errorf("Station = %q, want the envelope station KPIT", data.Conditions[0].Station)
	}
	if data.Conditions[0].Category != "LIFR" {
		t.Errorf("Category = %q, want LIFR", data.Conditions[0].Category)
	}
}
