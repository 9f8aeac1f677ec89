package taf

import (
	"testing"
	"time"

	"wx_decoder/internal/bulletin"
	"wx_decoder/internal/wx"
)

func TestTafParser(t *testing.T) {
	p := &Parser{}
	b := &bulletin.Bulletin{
		Kind:      bulletin.KindTAF,
		Timestamp: "2025-01-01T05:00:00Z",
		Text:      "TAF KXYZ 010600Z 0106/0206 18010KT P6SM FEW250 FM012000 22015G25KT 3SM BKN015",
	}

	if !p.QuickCheck(b.Text) {
		t.Fatalf("QuickCheck failed")
	}

	result := p.Parse(b)
	if result == nil {
		t.Fatalf("Parse returned nil")
	}

	r, ok := result.(*Result)
	if !ok {
		t.Fatalf("Result is not *Result type")
	}
	if len(r.Forecasts) != 1 {
		t.Fatalf("got %d forecasts, want 1", len(r.Forecasts))
	}

	fc := r.Forecasts[0]
	if fc.Station != "KXYZ" {
		t.Errorf("station = %q, want KXYZ", fc.Station)
	}
	if r.Station() != "KXYZ" {
		t.Errorf("Station() = %q, want KXYZ", r.Station())
	}
	if len(fc.Periods) != 2 {
		t.Fatalf("got %d periods, want 2", len(fc.Periods))
	}

	base := fc.Periods[0]
	if base.Kind != wx.PeriodBase || base.Category != wx.VFR {
		t.Errorf("base = %v %v, want BASE VFR", base.Kind, base.Category)
	}
	wantSwitch := time.Date(2025, time.January, 1, 20, 0, 0, 0, time.UTC)
	if !base.To.Equal(wantSwitch) {
		t.Errorf("base ends %v, want %v", base.To, wantSwitch)
	}

	fm := fc.Periods[1]
	if fm.Kind != wx.PeriodFrom || fm.Category != wx.MVFR {
		t.Errorf("fm = %v %v, want FM MVFR", fm.Kind, fm.Category)
	}
	if !fm.From.Equal(wantSwitch) {
		t.Errorf("fm starts %v, want %v", fm.From, wantSwitch)
	}
	if !fm.To.Equal(fc.ValidTo) {
		t.Errorf("fm ends %v, want valid-to %v", fm.To, fc.ValidTo)
	}
}

func TestTafParserMultipleForecasts(t *testing.T) {
	p := &Parser{}
	b := &bulletin.Bulletin{
		Kind:      bulletin.KindTAF,
		Timestamp: "2025-01-01T05:00:00Z",
		Text: "TAF KSFO 010540Z 0106/0212 28012KT P6SM SKC\n" +
			"TAF KOAK 010542Z 0106/0212 27010KT 2SM BR OVC004",
	}

	result := p.Parse(b)
	if result == nil {
		t.Fatalf("Parse returned nil")
	}
	r := result.(*Result)
	if len(r.Forecasts) != 2 {
		t.Fatalf("got %d forecasts, want 2", len(r.Forecasts))
	}
	if r.Forecasts[0].Station != "KSFO" || r.Forecasts[1].Station != "KOAK" {
		t.Errorf("stations = %q, %q", r.Forecasts[0].Station, r.Forecasts[1].Station)
	}
	if got := r.Forecasts[1].Periods[0].Category; got != wx.LIFR {
		t.Errorf("KOAK base category = %v, want LIFR", got)
	}
}

func TestTafParserMalformed(t *testing.T) {
	p := &Parser{}
	b := &bulletin.Bulletin{
		Kind:      bulletin.KindTAF,
		Timestamp: "2025-06-15T10:20:00Z",
		Text:      "KXYZ FORECAST UNAVAILABLE / RETRY LATER",
	}

	// A malformed bulletin still yields a forecast with a collapsed window
	// instead of an error.
	result := p.Parse(b)
	if result == nil {
		t.Fatalf("Parse returned nil")
	}
	r := result.(*Result)
	if len(r.Forecasts) != 1 {
		t.Fatalf("got %d forecasts, want 1", len(r.Forecasts))
	}

	fc := r.Forecasts[0]
	want := time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)
	if !fc.ValidFrom.Equal(want) || !fc.ValidTo.Equal(want) {
		t.Errorf("window = %v / %v, want collapsed at %v", fc.ValidFrom, fc.ValidTo, want)
	}

	if got := p.Parse(&bulletin.Bulletin{Kind: bulletin.KindTAF, Text: ""}); got != nil {
		t.Errorf("Parse(empty) = %v, want nil", got)
	}
}
