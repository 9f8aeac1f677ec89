package wx

import (
	"encoding/json"
	"testing"
)

func TestClassifyBoundaries(t *testing.T) {
	// Sweep both inputs across every boundary value. Expected values follow
	// the FAA table with exclusive upper bounds: exactly 1 mi is IFR, exactly
	// 500 ft is IFR, and so on.
	values := []float64{0.5, 1, 2, 3, 4, 5, 499, 500, 999, 1000, 2999, 3000}
	visWant := map[float64]Category{
		0.5: LIFR, 1: IFR, 2: IFR, 3: MVFR, 4: MVFR, 5: VFR,
		499: VFR, 500: VFR, 999: VFR, 1000: VFR, 2999: VFR, 3000: VFR,
	}
	ceilWant := map[float64]Category{
		0.5: LIFR, 1: LIFR, 2: LIFR, 3: LIFR, 4: LIFR, 5: LIFR,
		499: LIFR, 500: IFR, 999: IFR, 1000: MVFR, 2999: MVFR, 3000: VFR,
	}

	for _, v := range values {
		if got := ClassifyVisibility(v); got != visWant[v] {
			t.Errorf("ClassifyVisibility(%v) = %v, want %v", v, got, visWant[v])
		}
		if got := ClassifyCeiling(v); got != ceilWant[v] {
			t.Errorf("ClassifyCeiling(%v) = %v, want %v", v, got, ceilWant[v])
		}
	}

	// Combined classification must always equal the worse of the two
	// independently computed categories.
	for _, v := range values {
		for _, c := range values {
			obs := Observation{
				Visibility: &Visibility{Miles: v},
				Ceiling:    &Ceiling{Feet: c},
			}
			want := Worse(visWant[v], ceilWant[c])
			if got := Classify(obs); got != want {
				t.Errorf("Classify(vis=%v, ceil=%v) = %v, want %v", v, c, got, want)
			}
		}
	}
}

func TestWorse(t *testing.T) {
	tests := []struct {
		a, b, want Category
	}{
		{LIFR, VFR, LIFR},
		{VFR, LIFR, LIFR},
		{MVFR, IFR, IFR},
		{VFR, VFR, VFR},
		{Unknown, VFR, VFR},
		{LIFR, Unknown, LIFR},
		{Unknown, Unknown, Unknown},
	}
	for _, tt := range tests {
		if got := Worse(tt.a, tt.b); got != tt.want {
			t.Errorf("Worse(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in     string
		want   Category
		wantOK bool
	}{
		{"VFR", VFR, true},
		{"MVFR", MVFR, true},
		{"IFR", IFR, true},
		{"LIFR", LIFR, true},
		{"lifr", LIFR, true},
		{" MVFR ", MVFR, true},
		{"UNKNOWN", Unknown, true},
		{"SVFR", Unknown, false},
		{"", Unknown, false},
	}
	for _, tt := range tests {
		got, ok := ParseCategory(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseCategory(%q) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestClassifyFallbacks(t *testing.T) {
	explicit := VFR
	ignored := Unknown

	tests := []struct {
		name string
		obs  Observation
		want Category
	}{
		{
			name: "visibility alone",
			obs:  Observation{Visibility: &Visibility{Miles: 0.75}},
			want: LIFR,
		},
		{
			name: "ceiling alone",
			obs:  Observation{Ceiling: &Ceiling{Feet: 2500}},
			want: MVFR,
		},
		{
			name: "unbounded visibility alone",
			obs:  Observation{Visibility: &Visibility{Unbounded: true}},
			want: VFR,
		},
		{
			name: "unlimited ceiling alone",
			obs:  Observation{Ceiling: &Ceiling{Unlimited: true}},
			want: VFR,
		},
		{
			name: "clear sky with no numbers",
			obs:  Observation{ClearSky: true},
			want: VFR,
		},
		{
			name: "nothing at all",
			obs:  Observation{},
			want: Unknown,
		},
		{
			name: "explicit category wins over computed",
			obs:  Observation{Visibility: &Visibility{Miles: 0.5}, ExplicitCategory: &explicit},
			want: VFR,
		},
		{
			name: "unknown explicit category is ignored",
			obs:  Observation{Visibility: &Visibility{Miles: 0.5}, ExplicitCategory: &ignored},
			want: LIFR,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.obs); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCategoryJSON(t *testing.T) {
	b, err := json.Marshal(MVFR)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(b) != `"MVFR"` {
		t.Errorf("Marshal(MVFR) = %s, want %q", b, "MVFR")
	}

	var c Category
	if err := json.Unmarshal([]byte(`"LIFR"`), &c); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if c != LIFR {
		t.Errorf("Unmarshal(LIFR) = %v, want LIFR", c)
	}

	if err := json.Unmarshal([]byte(`"BOGUS"`), &c); err == nil {
		t.Error("Unmarshal(BOGUS) expected an error")
	}
}
