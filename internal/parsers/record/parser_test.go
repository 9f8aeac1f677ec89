package record

import (
	"testing"

	"wx_decoder/internal/bulletin"
	"wx_decoder/internal/wx"
)

func TestRecordParser(t *testing.T) {
	p := &Parser{}
	b := &bulletin.Bulletin{
		Source: "awc",
		Text: `[
			{"icaoId": "KSEA", "obsTime": 1757447700, "rawOb": "KSEA 091955Z 18010KT 10SM FEW250", "visib": "10+", "fltCat": "VFR"},
			{"icaoId": "KBFI", "rawOb": "KBFI 091955Z 00000KT 2SM BR OVC008", "visib": 2}
		]`,
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
	if len(r.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(r.Records))
	}

	if r.Station() != "KSEA" {
		t.Errorf("Station() = %q, want KSEA", r.Station())
	}
	if r.Records[0].Category != wx.VFR {
		t.Errorf("first category = %v, want VFR", r.Records[0].Category)
	}
	if r.Records[1].Observation.Station != "KBFI" {
		t.Errorf("second station = %q, want KBFI", r.Records[1].Observation.Station)
	}
	if r.Records[1].Category != wx.IFR {
		t.Errorf("second category = %v, want IFR", r.Records[1].Category)
	}
}

func TestRecordParserSingleObject(t *testing.T) {
	p := &Parser{}
	b := &bulletin.Bulletin{
		Text: `{"icaoId": "EGLL", "rawOb": "EGLL 091950Z 24008KT 9999 SCT030 Q1015"}`,
	}

	result := p.Parse(b)
	if result == nil {
		t.Fatalf("Parse returned nil")
	}
	r := result.(*Result)
	if len(r.Records) != 1 || r.Records[0].Observation.Station != "EGLL" {
		t.Errorf("records = %+v, want one EGLL record", r.Records)
	}
}

func TestRecordParserRejects(t *testing.T) {
	p := &Parser{}

	if p.QuickCheck("KPIT 091955Z 22015KT") {
		t.Errorf("QuickCheck passed on raw report text")
	}
	if got := p.Parse(&bulletin.Bulletin{Text: `{"icaoId": `}); got != nil {
		t.Errorf("Parse(truncated json) = %v, want nil", got)
	}
	if got := p.Parse(&bulletin.Bulletin{Text: `[]`}); got != nil {
		t.Errorf("Parse(empty array) = %v, want nil", got)
	}
}
