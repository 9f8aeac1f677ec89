package metar

import (
	"testing"
	"time"

	"wx_decoder/internal/bulletin"
	"wx_decoder/internal/wx"
)

func TestMetarParser(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantStation  string
		wantType     string
		wantCategory wx.Category
		wantTemp     int
		wantAlt      int
	}{
		{
			name: "US metar with remarks",
			text: "METAR KPIT 091955Z 22015G25KT 3/4SM R28L/2600FT TSRA OVC010CB 18/16 A2992 RMK AO2 SLP045 T01830161",
			wantStation:  "KPIT",
			wantType:     "METAR",
			wantCategory: wx.LIFR,
			wantTemp:     18,
			wantAlt:      1013,
		},
		{
			name: "metric visibility",
			text: "EGLL 091950Z 24008KT 9999 SCT030 17/12 Q1015",
			wantStation:  "EGLL",
			wantType:     "METAR",
			wantCategory: wx.VFR,
			wantTemp:     17,
			wantAlt:      1015,
		},
		{
			name: "speci",
			text: "SPECI KJFK 092012Z 04008KT 1/2SM FG VV002 10/09 A2990",
			wantStation:  "KJFK",
			wantType:     "SPECI",
			wantCategory: wx.LIFR,
			wantTemp:     10,
			wantAlt:      1012,
		},
	}

	p := &Parser{}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &bulletin.Bulletin{
				Kind:      bulletin.KindMETAR,
				Timestamp: "2025-09-09T20:30:00Z",
				Text:      tt.text,
			}

			if !p.QuickCheck(tt.text) {
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
			if len(r.Reports) != 1 {
				t.Fatalf("got %d reports, want 1", len(r.Reports))
			}

			report := r.Reports[0]
			if report.Observation.Station != tt.wantStation {
				t.Errorf("station = %q, want %q", report.Observation.Station, tt.wantStation)
			}
			if report.ReportType != tt.wantType {
				t.Errorf("report type = %q, want %q", report.ReportType, tt.wantType)
			}
			if report.Category != tt.wantCategory {
				t.Errorf("category = %v, want %v", report.Category, tt.wantCategory)
			}
			if report.TemperatureC == nil || *report.TemperatureC != tt.wantTemp {
				t.Errorf("temperature = %v, want %d", report.TemperatureC, tt.wantTemp)
			}
			if report.AltimeterHPa != tt.wantAlt {
				t.Errorf("altimeter = %d, want %d", report.AltimeterHPa, tt.wantAlt)
			}
		})
	}
}

func TestMetarParserIssueTime(t *testing.T) {
	p := &Parser{}
	b := &bulletin.Bulletin{
		Kind:      bulletin.KindMETAR,
		Timestamp: "2025-03-10T00:15:00Z",
		Text:      "KPIT 091955Z 22015KT 10SM SCT250 18/16 A2992",
	}

	r := p.Parse(b).(*Result)
	issued := r.Reports[0].Observation.Issued
	want := time.Date(2025, time.March, 9, 19, 55, 0, 0, time.UTC)
	if issued == nil || !issued.Equal(want) {
		t.Errorf("issued = %v, want %v", issued, want)
	}
}

func TestMetarParserMultiReport(t *testing.T) {
	p := &Parser{}
	b := &bulletin.Bulletin{
		Kind:      bulletin.KindMETAR,
		Timestamp: "2025-09-09T20:30:00Z",
		Text:      "METAR KPIT 091955Z 22015KT 10SM SCT250= METAR KJFK 091951Z 04008KT 1SM BR OVC005=",
	}

	result := p.Parse(b)
	if result == nil {
		t.Fatalf("Parse returned nil")
	}
	r := result.(*Result)
	if len(r.Reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(r.Reports))
	}
	if r.Station() != "KPIT" {
		t.Errorf("Station() = %q, want KPIT", r.Station())
	}
	if r.Reports[1].Observation.Station != "KJFK" {
		t.Errorf("second station = %q, want KJFK", r.Reports[1].Observation.Station)
	}
	if r.Reports[1].Category != wx.IFR {
		t.Errorf("second category = %v, want IFR", r.Reports[1].Category)
	}
}

func TestMetarParserRejects(t *testing.T) {
	p := &Parser{}

	if got := p.Parse(&bulletin.Bulletin{Text: ""}); got != nil {
		t.Errorf("Parse(empty) = %v, want nil", got)
	}
	if got := p.Parse(&bulletin.Bulletin{Text: "NO DATA FOR STATION 12"}); got != nil {
		t.Errorf("Parse(garbage) = %v, want nil", got)
	}
}

func TestDecodeRemarks(t *testing.T) {
	r := decodeRemarks("AO2 PK WND 28045/15 SLP045 P0009 PRESFR T01830161")
	if r == nil {
		t.Fatalf("decodeRemarks returned nil")
	}

	if r.StationType != "AO2" {
		t.Errorf("station type = %q, want AO2", r.StationType)
	}
	if r.SeaLevelPressureHPa != 1004.5 {
		t.Errorf("slp = %v, want 1004.5", r.SeaLevelPressureHPa)
	}
	if r.PeakWind == nil || r.PeakWind.Direction != 280 || r.PeakWind.Speed != 45 || r.PeakWind.Time != "15" {
		t.Errorf("peak wind = %+v", r.PeakWind)
	}
	if r.HourlyPrecipIn != 0.09 {
		t.Errorf("precip = %v, want 0.09", r.HourlyPrecipIn)
	}
	if r.PressureTrend != "PRESFR" {
		t.Errorf("trend = %q, want PRESFR", r.PressureTrend)
	}
	if r.PreciseTemperatureC == nil || *r.PreciseTemperatureC != 18.3 {
		t.Errorf("precise temp = %v, want 18.3", r.PreciseTemperatureC)
	}
	if r.PreciseDewPointC == nil || *r.PreciseDewPointC != 16.1 {
		t.Errorf("precise dew = %v, want 16.1", r.PreciseDewPointC)
	}

	if low := decodeRemarks("SLP982"); low == nil || low.SeaLevelPressureHPa != 998.2 {
		t.Errorf("SLP982 = %+v, want 998.2", low)
	}

	neg := decodeRemarks("T10561050")
	if neg == nil || neg.PreciseTemperatureC == nil || *neg.PreciseTemperatureC != -5.6 {
		t.Errorf("negative tgroup = %+v, want -5.6", neg)
	}

	if got := decodeRemarks(""); got != nil {
		t.Errorf("decodeRemarks(empty) = %v, want nil", got)
	}
}
