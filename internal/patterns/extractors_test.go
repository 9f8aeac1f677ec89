package patterns

import (
	"reflect"
	"testing"
)

func TestExtractReportType(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "explicit metar keyword",
			text: "METAR KPIT 091955Z 22015G25KT 3/4SM TSRA OVC010CB",
			want: "METAR",
		},
		{
			name: "speci keyword",
			text: "SPECI KJFK 092012Z 04008KT 1/2SM FG VV002",
			want: "SPECI",
		},
		{
			name: "taf header",
			text: "TAF KXYZ 010600Z 0106/0206 18010KT P6SM FEW250",
			want: "TAF",
		},
		{
			name: "sigmet",
			text: "SIGMET 7 VALID 040330/040730 SBAO- SBAO ATLANTICO FIR SEV TURB FCST",
			want: "SIGMET",
		},
		{
			name: "bare observation falls back on issue time",
			text: "EGLL 091950Z 24008KT 9999 SCT030 17/12 Q1015",
			want: "METAR",
		},
		{
			name: "headerless forecast falls back on change group",
			text: "KSFO 010540Z 0106/0212 28012KT P6SM SKC FM011200 30015KT 4SM BR",
			want: "TAF",
		},
		{
			name: "unrecognized",
			text: "HELLO WORLD",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractReportType(tt.text); got != tt.want {
				t.Errorf("ExtractReportType(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractRemarks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "standard remarks",
			text: "KPIT 091955Z 22015KT 10SM SCT250 18/16 A2992 RMK AO2 SLP045 T01830161",
			want: "AO2 SLP045 T01830161",
		},
		{
			name: "remarks before terminator",
			text: "KPIT 091955Z 10SM SCT250 A2992 RMK SLP045=",
			want: "SLP045",
		},
		{
			name: "no remarks",
			text: "EGLL 091950Z 24008KT 9999 SCT030 Q1015",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractRemarks(tt.text); got != tt.want {
				t.Errorf("ExtractRemarks(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestSplitReports(t *testing.T) {
	text := "METAR KPIT 091955Z 10SM SCT250= METAR KJFK 091951Z 8SM BKN020= "
	got := SplitReports(text)
	if len(got) != 2 {
		t.Fatalf("SplitReports() returned %d reports, want 2", len(got))
	}
	if got[0] != "METAR KPIT 091955Z 10SM SCT250" {
		t.Errorf("first report = %q", got[0])
	}
	if got[1] != "METAR KJFK 091951Z 8SM BKN020" {
		t.Errorf("second report = %q", got[1])
	}

	single := SplitReports("KPIT 091955Z 10SM SCT250")
	if len(single) != 1 {
		t.Fatalf("SplitReports(no terminator) returned %d reports, want 1", len(single))
	}

	if got := SplitReports("  "); got != nil {
		t.Errorf("SplitReports(blank) = %v, want nil", got)
	}
}

func TestSplitForecasts(t *testing.T) {
	text := "TAF KSFO 010540Z 0106/0212 28012KT P6SM SKC\n" +
		"TAF KOAK 010542Z 0106/0212 27010KT P6SM FEW200"
	got := SplitForecasts(text)
	if len(got) != 2 {
		t.Fatalf("SplitForecasts() returned %d chunks, want 2", len(got))
	}
	if FindValidStation(got[0]) != "KSFO" {
		t.Errorf("first chunk station = %q, want KSFO", FindValidStation(got[0]))
	}
	if FindValidStation(got[1]) != "KOAK" {
		t.Errorf("second chunk station = %q, want KOAK", FindValidStation(got[1]))
	}

	whole := SplitForecasts("KSFO 010540Z 0106/0212 28012KT P6SM")
	if len(whole) != 1 {
		t.Fatalf("SplitForecasts(headerless) returned %d chunks, want 1", len(whole))
	}
}

func TestExtractAltimeter(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    int
		wantRaw string
	}{
		{
			name:    "hectopascals",
			text:    "EGLL 091950Z 24008KT 9999 Q1015",
			want:    1015,
			wantRaw: "Q1015",
		},
		{
			name:    "inches of mercury",
			text:    "KPIT 091955Z 22015KT 10SM A2992",
			want:    1013,
			wantRaw: "A2992",
		},
		{
			name: "absent",
			text: "KPIT 091955Z 22015KT 10SM",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, raw := ExtractAltimeter(tt.text)
			if got != tt.want || raw != tt.wantRaw {
				t.Errorf("ExtractAltimeter(%q) = %d, %q, want %d, %q", tt.text, got, raw, tt.want, tt.wantRaw)
			}
		})
	}
}

func TestExtractTempDew(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantTemp int
		wantDew  int
		wantOK   bool
	}{
		{
			name:     "positive pair",
			text:     "KPIT 091955Z 22015KT 10SM SCT250 18/16 A2992",
			wantTemp: 18,
			wantDew:  16,
			wantOK:   true,
		},
		{
			name:     "negative pair",
			text:     "PANC 091953Z 36006KT 10SM FEW035 M05/M08 A2977",
			wantTemp: -5,
			wantDew:  -8,
			wantOK:   true,
		},
		{
			name:   "absent",
			text:   "KPIT 091955Z 22015KT 10SM SCT250 A2992",
			wantOK: false,
		},
		{
			name:   "validity range is not a temperature",
			text:   "TAF KXYZ 010600Z 0106/0206 18010KT P6SM",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			temp, dew, ok := ExtractTempDew(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ExtractTempDew(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if ok && (temp != tt.wantTemp || dew != tt.wantDew) {
				t.Errorf("ExtractTempDew(%q) = %d/%d, want %d/%d", tt.text, temp, dew, tt.wantTemp, tt.wantDew)
			}
		})
	}
}

func TestExtractRVRs(t *testing.T) {
	tokens := Tokenize("KPIT 091955Z 22015KT 3/4SM R28L/2600FT R10/P2000N TSRA OVC010CB")
	got := ExtractRVRs(tokens)
	want := []string{"R28L/2600FT", "R10/P2000N"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractRVRs() = %v, want %v", got, want)
	}

	if got := ExtractRVRs(Tokenize("KPIT 091955Z 10SM SCT250")); got != nil {
		t.Errorf("ExtractRVRs(no rvr) = %v, want nil", got)
	}
}

func TestExtractAllStations(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "multiple stations in order",
			text: "METAR KPIT 091955Z= METAR KJFK 091951Z= METAR KPIT 092055Z=",
			want: []string{"KPIT", "KJFK"},
		},
		{
			name: "structure keywords are not stations",
			text: "TAF AMD KSFO 010540Z 0106/0212 TEMPO 0108/0112",
			want: []string{"KSFO"},
		},
		{
			name: "none",
			text: "NO REPORTS AVAILABLE",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractAllStations(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractAllStations(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestIsValidStation(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		// Valid station idents.
		{"KJFK", true},
		{"EGLL", true},
		{"YSSY", true},
		{"RJTT", true},
		{"ZSPD", true},
		{"PANC", true},

		// Invalid - wrong length.
		{"JFK", false},
		{"KJFKA", false},

		// Invalid - contains numbers.
		{"K1FK", false},

		// Invalid - blocklisted or structural words.
		{"AUTO", false},
		{"TEMP", false},
		{"WIND", false},
		{"CALM", false},
		{"TEST", false},

		// Invalid - no such regional prefix.
		{"QQQQ", false},
		{"XAXA", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := IsValidStation(tt.code); got != tt.want {
				t.Errorf("IsValidStation(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}
