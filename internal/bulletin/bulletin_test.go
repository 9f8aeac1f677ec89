package bulletin

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"wx_decoder/internal/wx"
)

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Kind
	}{
		{
			name: "taf keyword",
			text: "TAF KXYZ 010600Z 0106/0206 18010KT P6SM FEW250",
			want: KindTAF,
		},
		{
			name: "taf without keyword but with change group",
			text: "KXYZ 010600Z 0106/0206 18010KT P6SM FM012000 22015KT 3SM BKN015",
			want: KindTAF,
		},
		{
			name: "plain metar",
			text: "KPIT 091955Z 22015G25KT 3/4SM TSRA OVC010CB 18/16 A2992",
			want: KindMETAR,
		},
		{
			name: "metar with windowless trend stays metar",
			text: "EGLL 091950Z 24008KT 9999 SCT030 17/12 Q1015 TEMPO 4000 SHRA",
			want: KindMETAR,
		},
		{
			name: "sigmet",
			text: "WSSS20 SIGMET 3 VALID 091200/091600 WSSS- WSJC SINGAPORE FIR EMBD TS FCST",
			want: KindSIGMET,
		},
		{
			name: "garbage",
			text: "HELLO WORLD",
			want: KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectKind(tt.text); got != tt.want {
				t.Errorf("DetectKind(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestFlexFloat64(t *testing.T) {
	tests := []struct {
		in        string
		wantValue float64
		wantPlus  bool
	}{
		{`6.21`, 6.21, false},
		{`"4.5"`, 4.5, false},
		{`"10+"`, 10, true},
		{`""`, 0, false},
		{`"junk"`, 0, false},
	}
	for _, tt := range tests {
		var f FlexFloat64
		if err := json.Unmarshal([]byte(tt.in), &f); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", tt.in, err)
		}
		if f.Value != tt.wantValue || f.Plus != tt.wantPlus {
			t.Errorf("Unmarshal(%s) = %v plus=%v, want %v plus=%v", tt.in, f.Value, f.Plus, tt.wantValue, tt.wantPlus)
		}
	}

	b, err := json.Marshal(FlexFloat64{Value: 10, Plus: true})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(b) != `"10+"` {
		t.Errorf("Marshal(10, plus) = %s, want %q", b, "10+")
	}
}

func TestWindDirection(t *testing.T) {
	tests := []struct {
		in           string
		wantDegrees  int
		wantVariable bool
	}{
		{`240`, 240, false},
		{`"240"`, 240, false},
		{`"VRB"`, 0, true},
		{`""`, 0, false},
	}
	for _, tt := range tests {
		var d WindDirection
		if err := json.Unmarshal([]byte(tt.in), &d); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", tt.in, err)
		}
		if d.Degrees != tt.wantDegrees || d.Variable != tt.wantVariable {
			t.Errorf("Unmarshal(%s) = %d variable=%v, want %d variable=%v", tt.in, d.Degrees, d.Variable, tt.wantDegrees, tt.wantVariable)
		}
	}
}

func TestDecode(t *testing.T) {
	flat := []byte(`{"station":"KSEA","kind":"metar","text":"KSEA 091955Z 18010KT 10SM FEW250"}`)
	b, err := Decode(flat)
	if err != nil {
		t.Fatalf("Decode(flat) error = %v", err)
	}
	if b.Station != "KSEA" || b.Kind != KindMETAR {
		t.Errorf("Decode(flat) = %+v, want station KSEA kind metar", b)
	}

	wrapped := []byte(`{"source":{"name":"feedx"},"station":"KPIT","bulletin":{"text":"KPIT 091955Z 22015KT 10SM SCT250"}}`)
	b, err = Decode(wrapped)
	if err != nil {
		t.Fatalf("Decode(wrapped) error = %v", err)
	}
	if b.Station != "KPIT" {
		t.Errorf("wrapped station = %q, want KPIT", b.Station)
	}
	if b.Source != "feedx" {
		t.Errorf("wrapped source = %q, want feedx", b.Source)
	}

	if _, err := Decode([]byte(`{{{`)); err == nil {
		t.Error("Decode(malformed) expected an error")
	}
}

func TestBulletinReceivedAt(t *testing.T) {
	now := time.Date(2025, time.September, 9, 20, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		timestamp string
		want      time.Time
	}{
		{
			name:      "rfc3339",
			timestamp: "2025-09-09T19:55:00Z",
			want:      time.Date(2025, time.September, 9, 19, 55, 0, 0, time.UTC),
		},
		{
			name:      "cycle stamp",
			timestamp: "2025/09/09 19:55",
			want:      time.Date(2025, time.September, 9, 19, 55, 0, 0, time.UTC),
		},
		{
			name:      "unix seconds",
			timestamp: "1757447700",
			want:      time.Unix(1757447700, 0).UTC(),
		},
		{
			name:      "empty falls back to now",
			timestamp: "",
			want:      now,
		},
		{
			name:      "garbage falls back to now",
			timestamp: "not a time",
			want:      now,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Bulletin{Timestamp: tt.timestamp}
			if got := b.ReceivedAt(now); !got.Equal(tt.want) {
				t.Errorf("ReceivedAt(%q) = %v, want %v", tt.timestamp, got, tt.want)
			}
		})
	}
}

func TestAPIRecordToObservation(t *testing.T) {
	data := []byte(`{
		"icaoId": "KSEA",
		"obsTime": 1757447700,
		"rawOb": "KSEA 091955Z 18010KT 10SM FEW250",
		"wdir": 180,
		"wspd": 10,
		"visib": "10+",
		"fltCat": "VFR",
		"clouds": [{"cover": "FEW", "base": 25000}]
	}`)

	var rec APIRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	obs, cat := rec.ToObservation()
	if obs.Station != "KSEA" {
		t.Errorf("station = %q, want KSEA", obs.Station)
	}
	if obs.Visibility == nil || !obs.Visibility.Unbounded || obs.Visibility.Miles != 10 {
		t.Errorf("visibility = %+v, want unbounded 10", obs.Visibility)
	}
	if obs.Issued == nil || !obs.Issued.Equal(time.Unix(1757447700, 0).UTC()) {
		t.Errorf("issued = %v, want obsTime", obs.Issued)
	}
	if cat != wx.VFR {
		t.Errorf("category = %v, want VFR", cat)
	}
}

func TestAPIRecordStructuredOverrides(t *testing.T) {
	// The structured visibility wins over the text-derived one; the SM
	// marker in the raw text says it is statute miles.
	data := []byte(`{
		"icaoId": "KBFI",
		"rawOb": "KBFI 091955Z 00000KT 4SM BR OVC008",
		"visib": 2.5,
		"wdir": "VRB",
		"wspd": 3
	}`)

	var rec APIRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	obs, cat := rec.ToObservation()
	if obs.Visibility == nil || obs.Visibility.Miles != 2.5 {
		t.Errorf("visibility = %+v, want structured 2.5 mi", obs.Visibility)
	}
	if obs.Ceiling == nil || obs.Ceiling.Feet != 800 {
		t.Errorf("ceiling = %+v, want 800 ft from raw text", obs.Ceiling)
	}
	// 2.5 mi and 800 ft are both IFR.
	if cat != wx.IFR {
		t.Errorf("category = %v, want IFR", cat)
	}
	// The raw wind group wins over the structured fields.
	if obs.Wind == nil || obs.Wind.Variable || obs.Wind.Speed != 0 {
		t.Errorf("wind = %+v, want calm from raw text", obs.Wind)
	}
}

func TestSplitCycle(t *testing.T) {
	input := strings.Join([]string{
		"2025/09/09 19:55",
		"KPIT 091955Z 22015G25KT 3/4SM TSRA OVC010CB 18/16 A2992",
		"",
		"2025/09/09 20:00",
		"TAF KXYZ 010600Z 0106/0206 18010KT P6SM FEW250",
		"  FM012000 22015G25KT 3SM BKN015",
		"",
	}, "\n")

	got, err := SplitCycle(strings.NewReader(input))
	if err != nil {
		t.Fatalf("SplitCycle() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d bulletins, want 2", len(got))
	}

	if got[0].Kind != KindMETAR || got[0].Station != "KPIT" {
		t.Errorf("first = kind %q station %q, want metar KPIT", got[0].Kind, got[0].Station)
	}
	if got[0].Timestamp != "2025/09/09 19:55" {
		t.Errorf("first timestamp = %q, want the stamp line", got[0].Timestamp)
	}
	if got[1].Kind != KindTAF || got[1].Station != "KXYZ" {
		t.Errorf("second = kind %q station %q, want taf KXYZ", got[1].Kind, got[1].Station)
	}
	if !strings.Contains(got[1].Text, "FM012000") {
		t.Errorf("second text lost its continuation line: %q", got[1].Text)
	}
}
