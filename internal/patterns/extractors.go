// Extraction functions for weather bulletin parsing.

package patterns

import (
	"strconv"
	"strings"
)

// ExtractReportType determines the report type keyword for a bulletin body.
// Explicit keywords win; otherwise the structure decides.
func ExtractReportType(text string) string {
	upper := strings.ToUpper(text)

	// Explicit keywords first.
	if strings.Contains(upper, "SIGMET") {
		return "SIGMET"
	}
	if strings.Contains(upper, "SPECI ") || strings.HasPrefix(strings.TrimSpace(upper), "SPECI") {
		return "SPECI"
	}
	if TafHeaderPattern.MatchString(upper) {
		return "TAF"
	}
	if strings.Contains(upper, "METAR ") || strings.HasPrefix(strings.TrimSpace(upper), "METAR") {
		return "METAR"
	}

	// Structural fallback: change groups mean a forecast, a bare issue time
	// means an observation.
	if ChangeMarkerPattern.MatchString(upper) {
		return "TAF"
	}
	if IssueTimePattern.MatchString(upper) {
		return "METAR"
	}

	return ""
}

// ExtractRemarks returns the remarks section of a report, without the RMK
// keyword. Empty when the report carries no remarks.
func ExtractRemarks(text string) string {
	upper := strings.ToUpper(text)
	idx := strings.Index(upper, " RMK ")
	if idx < 0 {
		return ""
	}
	return StripTerminator(text[idx+5:])
}

// SplitReports splits a multi-report bulletin body on "=" terminators.
// Bodies without terminators come back as a single report.
func SplitReports(text string) []string {
	if !strings.Contains(text, "=") {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var reports []string
	for _, chunk := range strings.Split(text, "=") {
		chunk = strings.TrimSpace(chunk)
		if chunk != "" {
			reports = append(reports, chunk)
		}
	}
	return reports
}

// SplitForecasts splits text containing several TAF bulletins into one chunk
// per TAF header. Text without a header comes back whole.
func SplitForecasts(text string) []string {
	locs := TafHeaderPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var chunks []string
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		chunk := StripTerminator(text[loc[0]:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// ExtractAltimeter extracts the altimeter setting in hectopascals along with
// the raw group. A-prefixed groups are hundredths of inHg and get converted.
func ExtractAltimeter(text string) (int, string) {
	m := AltimeterPattern.FindStringSubmatch(strings.ToUpper(text))
	if len(m) < 3 {
		return 0, ""
	}

	val, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, ""
	}
	if m[1] == "A" {
		// A2992 = 29.92 inHg = ~1013 hPa
		val = int(float64(val) * 0.338639)
	}
	return val, m[0]
}

// ExtractTempDew extracts the temperature/dewpoint group in whole degrees
// Celsius. ok is false when the report carries none.
func ExtractTempDew(text string) (temp, dew int, ok bool) {
	m := TempDewPattern.FindStringSubmatch(strings.ToUpper(text))
	if len(m) < 3 {
		return 0, 0, false
	}
	return parseSignedTemp(m[1]), parseSignedTemp(m[2]), true
}

// parseSignedTemp converts an M-prefixed temperature string to a signed int.
func parseSignedTemp(s string) int {
	neg := strings.HasPrefix(s, "M")
	s = strings.TrimPrefix(s, "M")
	val, _ := strconv.Atoi(s)
	if neg {
		val = -val
	}
	return val
}

// ExtractRVRs collects raw runway-visual-range groups from tokenized text.
func ExtractRVRs(tokens []string) []string {
	var rvrs []string
	for _, tok := range tokens {
		if RVRPattern.MatchString(tok) {
			rvrs = append(rvrs, tok)
		}
	}
	return rvrs
}

// ExtractAllStations collects every valid station ident in text, in order of
// appearance, without duplicates.
func ExtractAllStations(text string) []string {
	var stations []string
	seen := make(map[string]bool)
	for _, m := range stationPattern.FindAllString(strings.ToUpper(text), -1) {
		if !IsValidStation(m) || seen[m] {
			continue
		}
		seen[m] = true
		stations = append(stations, m)
	}
	return stations
}
