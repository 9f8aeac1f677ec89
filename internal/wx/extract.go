package wx

import (
	"strconv"
	"strings"

	"wx_decoder/internal/patterns"
)

// metersToMiles converts metric visibility to statute miles.
const metersToMiles = 0.000621371

// mpsToKnots converts wind speeds reported in meters per second.
const mpsToKnots = 1.944

// beforeRemarks trims the remarks section. Remark groups carry bare numeric
// tokens (precipitation, pressure tendencies) that would false-positive
// against the body field patterns.
func beforeRemarks(text string) string {
	if i := strings.Index(text, " RMK"); i >= 0 {
		return text[:i]
	}
	return text
}

// ExtractVisibility pulls a visibility out of report text. Matching order:
// fractional statute miles, then whole/decimal statute miles, then a
// standalone 4-digit meters token, then the clear-sky markers which imply
// unrestricted visibility. A P prefix (P6SM) and the 9999 meters token mark
// the value as unbounded. Returns nil when no visibility is present.
func ExtractVisibility(text string) *Visibility {
	text = beforeRemarks(text)

	if m := patterns.VisibilityFractionPattern.FindStringSubmatch(text); m != nil {
		whole := 0.0
		if m[1] != "" {
			whole, _ = strconv.ParseFloat(m[1], 64)
		}
		num, _ := strconv.ParseFloat(m[2], 64)
		den, _ := strconv.ParseFloat(m[3], 64)
		if den > 0 {
			return &Visibility{Miles: whole + num/den}
		}
	}

	if m := patterns.VisibilitySMPattern.FindStringSubmatch(text); m != nil {
		if val, err := strconv.ParseFloat(m[2], 64); err == nil {
			return &Visibility{Miles: val, Unbounded: m[1] == "P"}
		}
	}

	for _, tok := range patterns.Tokenize(text) {
		m := patterns.VisibilityMetersPattern.FindStringSubmatch(tok)
		if m == nil {
			continue
		}
		if m[1] == "9999" {
			return &Visibility{Miles: 9999 * metersToMiles, Unbounded: true}
		}
		meters, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return &Visibility{Miles: meters * metersToMiles}
	}

	if patterns.ClearSkyPattern.MatchString(text) {
		return &Visibility{Unbounded: true}
	}
	return nil
}

// MergeStructuredVisibility reconciles an upstream-supplied numeric visibility
// with the raw text's unit convention: an SM marker anywhere in the raw text
// means the structured value is statute miles, otherwise it is meters.
func MergeStructuredVisibility(value float64, raw string) *Visibility {
	if strings.Contains(raw, "SM") {
		return &Visibility{Miles: value}
	}
	if value >= 9999 {
		return &Visibility{Miles: 9999 * metersToMiles, Unbounded: true}
	}
	return &Visibility{Miles: value * metersToMiles}
}

// ExtractCeiling derives the ceiling: the minimum height among BKN, OVC and
// VV groups. SCT and FEW never form a ceiling. With no ceiling-forming group,
// a clear-sky marker yields an unlimited ceiling; otherwise the ceiling is
// undefined and nil is returned. VV/// (indefinite ceiling, height unknown)
// is skipped.
func ExtractCeiling(text string) *Ceiling {
	text = beforeRemarks(text)

	best := -1
	for _, m := range patterns.CloudPattern.FindAllStringSubmatch(text, -1) {
		if m[1] != "BKN" && m[1] != "OVC" {
			continue
		}
		h, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if feet := h * 100; best < 0 || feet < best {
			best = feet
		}
	}
	for _, m := range patterns.VerticalVisPattern.FindAllStringSubmatch(text, -1) {
		if m[1] == "///" {
			continue
		}
		h, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if feet := h * 100; best < 0 || feet < best {
			best = feet
		}
	}

	if best >= 0 {
		return &Ceiling{Feet: float64(best)}
	}
	if patterns.ClearSkyPattern.MatchString(text) {
		return &Ceiling{Unlimited: true}
	}
	return nil
}

// ExtractClouds lists every cloud-layer group in the text, ceiling-forming
// or not, with convective suffixes retained.
func ExtractClouds(text string) []CloudLayer {
	text = beforeRemarks(text)

	var layers []CloudLayer
	for _, m := range patterns.CloudPattern.FindAllStringSubmatch(text, -1) {
		h, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		layers = append(layers, CloudLayer{
			Cover:      m[1],
			BaseFeet:   h * 100,
			Convective: m[3],
		})
	}
	return layers
}

// ExtractWind pulls the first wind group: direction or VRB, sustained speed,
// optional gust, with MPS speeds normalized to knots. A 350V020 style
// variation token fills the variation bounds when present.
func ExtractWind(text string) *Wind {
	text = beforeRemarks(text)

	m := patterns.WindPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	w := &Wind{}
	if m[1] == "VRB" {
		w.Variable = true
	} else {
		w.Direction, _ = strconv.Atoi(m[1])
	}
	w.Speed, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		w.Gust, _ = strconv.Atoi(m[3])
	}
	if m[4] == "MPS" {
		w.Speed = int(float64(w.Speed) * mpsToKnots)
		w.Gust = int(float64(w.Gust) * mpsToKnots)
	}

	if vm := patterns.WindVariationPattern.FindStringSubmatch(text); vm != nil {
		w.VariableFrom, _ = strconv.Atoi(vm[1])
		w.VariableTo, _ = strconv.Atoi(vm[2])
	}
	return w
}

// ExtractWeather lists present-weather codes in the body, in textual order.
// Bulletin-structure keywords and RVR tokens are filtered out before
// matching so they cannot false-positive against the weather grammar.
func ExtractWeather(text string) []string {
	text = beforeRemarks(text)

	var codes []string
	for _, tok := range patterns.Tokenize(text) {
		if patterns.StructureKeywords[tok] {
			continue
		}
		if patterns.RVRPattern.MatchString(tok) {
			continue
		}
		if patterns.WeatherPattern.MatchString(tok) {
			codes = append(codes, tok)
		}
	}
	return codes
}

// HasClearSky reports whether the body carries a clear-sky or
// no-significant-cloud marker.
func HasClearSky(text string) bool {
	return patterns.ClearSkyPattern.MatchString(beforeRemarks(text))
}

// ExtractCategory finds an explicit flight-category token, as appended by
// some enriched upstream feeds. Only the known values are accepted.
func ExtractCategory(text string) *Category {
	m := patterns.CategoryPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	if c, ok := ParseCategory(m[1]); ok && c.Known() {
		return &c
	}
	return nil
}

// ExtractIssueTime pulls apart the first DDHHMMZ token.
func ExtractIssueTime(text string) (day, hour, minute int, ok bool) {
	m := patterns.IssueTimePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, 0, false
	}
	day, _ = strconv.Atoi(m[1])
	hour, _ = strconv.Atoi(m[2])
	minute, _ = strconv.Atoi(m[3])
	return day, hour, minute, true
}
