// Package patterns provides shared regex patterns and helper functions for weather bulletin parsing.
package patterns

import (
	"regexp"
	"strings"
)

// Header and timing patterns used across multiple parsers.
var (
	// IssueTimePattern matches a DDHHMMZ issue-time token, e.g. "010600Z".
	IssueTimePattern = regexp.MustCompile(`\b(\d{2})(\d{2})(\d{2})Z\b`)

	// ValidityPattern matches a DDHH/DDHH validity-range token, e.g. "0106/0206".
	ValidityPattern = regexp.MustCompile(`\b(\d{2})(\d{2})/(\d{2})(\d{2})\b`)

	// TafHeaderPattern matches a TAF header line: TAF [AMD] [COR] ICAO DDHHMMZ DDHH/DDHH.
	TafHeaderPattern = regexp.MustCompile(`(?m)\bTAF\s+(?:AMD\s+)?(?:COR\s+)?([A-Z]{4})\s+(\d{6})Z\s+(\d{4}/\d{4})`)

	// MetarHeaderPattern matches a METAR/SPECI line: [METAR|SPECI] [COR] ICAO DDHHMMZ body.
	// The body runs to an "=" terminator or end of line.
	MetarHeaderPattern = regexp.MustCompile(`(?m)^(?:(METAR|SPECI)\s+)?(?:COR\s+)?([A-Z]{4})\s+(\d{6})Z\s+(.+?)(?:\s*=|$)`)
)

// Change-group patterns for forecast bulletin segmentation.
var (
	// FromGroupPattern matches an FM change group: FM + DDHHMM.
	FromGroupPattern = regexp.MustCompile(`\bFM(\d{2})(\d{2})(\d{2})\b`)

	// ChangeGroupPattern matches TEMPO/BECMG/PROBnn followed by its own
	// DDHH/DDHH window. The compound "PROB30 TEMPO" form is captured as a
	// single leader so the probability is not orphaned into the prior period.
	ChangeGroupPattern = regexp.MustCompile(`\b(PROB\d{2}\s+TEMPO|TEMPO|BECMG|PROB\d{2})\s+(\d{2})(\d{2})/(\d{2})(\d{2})\b`)

	// ChangeMarkerPattern matches any change-group leader token. Used to find
	// period boundaries in textual order before the groups themselves are decoded.
	ChangeMarkerPattern = regexp.MustCompile(`\bFM\d{6}\b|\b(?:PROB\d{2}\s+TEMPO|TEMPO|BECMG|PROB\d{2})\s+\d{4}/\d{4}\b`)
)

// Weather field patterns.
var (
	// WindPattern matches a wind group: direction (or VRB), speed, optional gust, KT or MPS.
	WindPattern = regexp.MustCompile(`\b(VRB|\d{3})(\d{2,3})(?:G(\d{2,3}))?(KT|MPS)\b`)

	// WindVariationPattern matches a variable-direction bounds token, e.g. "350V020".
	WindVariationPattern = regexp.MustCompile(`\b(\d{3})V(\d{3})\b`)

	// VisibilitySMPattern matches statute-mile visibility: 10SM, 2.5SM, P6SM.
	// The leading P means "greater than", M means "less than". Anchored to
	// whitespace so the trailing digits of a fraction never match alone.
	VisibilitySMPattern = regexp.MustCompile(`(?:^|\s)([PM])?(\d+(?:\.\d+)?)\s*SM\b`)

	// VisibilityFractionPattern matches fractional statute miles with an optional
	// whole-number part: "1 1/2SM", "3/4SM", "M1/4SM".
	VisibilityFractionPattern = regexp.MustCompile(`(?:^|\s)M?(?:(\d+)\s+)?(\d+)/(\d+)\s*SM\b`)

	// VisibilityMetersPattern matches a 4-digit metric visibility token.
	// Anchored for whole-token matching: wind groups, validity ranges and RVR
	// tokens all embed 4-digit runs that must not be read as visibility.
	// 9999 means 10 km or more.
	VisibilityMetersPattern = regexp.MustCompile(`^(\d{4})$`)

	// CloudPattern matches a cloud-layer group: cover + 3-digit height (hundreds
	// of feet) + optional convective suffix.
	CloudPattern = regexp.MustCompile(`\b(FEW|SCT|BKN|OVC)(\d{3})(CB|TCU)?\b`)

	// VerticalVisPattern matches a vertical-visibility group: VV + height, or
	// VV/// for an indefinite ceiling of unknown height.
	VerticalVisPattern = regexp.MustCompile(`\bVV(\d{3}|///)`)

	// ClearSkyPattern matches clear-sky and no-significant-cloud markers.
	ClearSkyPattern = regexp.MustCompile(`\b(SKC|CLR|NSC|NCD|CAVOK)\b`)

	// CategoryPattern matches an explicit flight-category token.
	CategoryPattern = regexp.MustCompile(`\b(LIFR|MVFR|IFR|VFR)\b`)

	// RVRPattern matches runway-visual-range tokens, e.g. "R06/1200FT" or
	// "R24L/P2000N". These must be excluded from weather-code scans: the digits
	// would otherwise false-positive against the metric visibility pattern.
	RVRPattern = regexp.MustCompile(`\bR\d{2}[LRC]?/[PM]?\d{4}(?:V[PM]?\d{4})?(?:FT)?/?[UDN]?\b`)

	// WeatherPattern matches a present-weather code: optional intensity,
	// optional vicinity/descriptor prefix, one or more phenomena. Anchored for
	// whole-token matching; TS appears in the phenomena set as well so a bare
	// TS or VCTS token matches.
	WeatherPattern = regexp.MustCompile(`^[+-]?(?:VC)?(?:MI|PR|BC|DR|BL|SH|TS|FZ)?(?:DZ|RA|SN|SG|IC|PL|GR|GS|UP|BR|FG|FU|VA|DU|SA|HZ|PO|SQ|FC|SS|DS|TS)+$`)

	// TempDewPattern matches a temperature/dewpoint group: TT/DD with an M
	// prefix for negative values. Two digits each side keeps validity ranges
	// and fractions from matching.
	TempDewPattern = regexp.MustCompile(`\b(M?\d{2})/(M?\d{2})\b`)

	// AltimeterPattern matches an altimeter-setting group: Q for hectopascals,
	// A for inches of mercury times one hundred.
	AltimeterPattern = regexp.MustCompile(`\b([QA])(\d{4})\b`)
)

// SIGMET patterns.
var (
	// SigmetPattern matches a SIGMET header: id, validity, originator, FIR.
	SigmetPattern = regexp.MustCompile(`SIGMET\s+(\w+)\s+VALID\s+(\d{6})/(\d{6})\s+([A-Z]{4})-\s+([A-Z]{4})\s+(\w+(?:\s+\w+)?)\s+FIR\s+(.+?)(?:\s*=|$)`)

	// SigmetAltPattern matches SIGMET altitude bands: FL300/380, TOP FL600, SFC/FL100.
	SigmetAltPattern = regexp.MustCompile(`(?:FL(\d{3})/(\d{3})|TOP\s+FL(\d{3})|SFC/FL(\d{3}))`)

	// SigmetMovePattern matches SIGMET movement: stationary or direction + speed.
	SigmetMovePattern = regexp.MustCompile(`\b(STNR|MOV\s+[NESW]+\s+\d+KT)\b`)
)

// StructureKeywords are bulletin-structure tokens that must never be treated
// as weather codes or station idents when scanning period text.
var StructureKeywords = map[string]bool{
	"TEMPO": true, "BECMG": true, "PROB": true, "RMK": true,
	"NOSIG": true, "AUTO": true, "COR": true, "AMD": true,
	"INTER": true, "CNL": true, "NIL": true, "TAF": true,
	"METAR": true, "SPECI": true,
}

// stationPattern matches a candidate 4-letter station ident.
var stationPattern = regexp.MustCompile(`\b([A-Z]{4})\b`)

// StationBlocklist contains 4-letter tokens that appear in bulletin text but
// are never station idents.
var StationBlocklist = map[string]bool{
	"AUTO": true, "TEMP": true, "WIND": true, "TURB": true,
	"ICEG": true, "SNOW": true, "HAIL": true, "MIST": true,
	"CALM": true, "CLDS": true, "OBSC": true, "PRES": true,
	"DATA": true, "TEST": true, "MISG": true, "UNKN": true,
}

// validStationPrefixes contains valid ICAO regional prefixes.
// K (USA) is handled separately as a single-letter prefix.
var validStationPrefixes = map[string]bool{
	// A - South Pacific (limited).
	"AG": true, "AN": true, "AY": true,
	// B - Greenland, Iceland, Kosovo.
	"BG": true, "BI": true, "BK": true,
	// C - Canada.
	"CY": true, "CZ": true,
	// D - West Africa (DI = Ivory Coast).
	"DA": true, "DB": true, "DF": true, "DG": true, "DI": true, "DN": true, "DR": true, "DT": true, "DX": true,
	// E - Northern Europe.
	"EB": true, "ED": true, "EE": true, "EF": true, "EG": true, "EH": true, "EI": true, "EK": true, "EL": true, "EN": true, "EP": true, "ES": true, "ET": true, "EV": true, "EY": true,
	// F - Central/Southern Africa, Indian Ocean.
	"FA": true, "FB": true, "FC": true, "FD": true, "FE": true, "FG": true, "FH": true, "FI": true, "FJ": true, "FK": true, "FL": true, "FM": true, "FN": true, "FO": true, "FP": true, "FQ": true, "FS": true, "FT": true, "FV": true, "FW": true, "FX": true, "FY": true, "FZ": true,
	// G - Western Africa, Maghreb.
	"GA": true, "GB": true, "GC": true, "GE": true, "GF": true, "GG": true, "GL": true, "GM": true, "GO": true, "GQ": true, "GS": true, "GU": true, "GV": true,
	// H - East Africa.
	"HA": true, "HB": true, "HC": true, "HD": true, "HE": true, "HH": true, "HK": true, "HL": true, "HR": true, "HS": true, "HT": true, "HU": true,
	// L - Southern Europe (including LS Switzerland, LL Israel, LM Malta).
	"LA": true, "LB": true, "LC": true, "LD": true, "LE": true, "LF": true, "LG": true, "LH": true, "LI": true, "LJ": true, "LK": true, "LL": true, "LM": true, "LN": true, "LO": true, "LP": true, "LQ": true, "LR": true, "LS": true, "LT": true, "LU": true, "LV": true, "LW": true, "LX": true, "LY": true, "LZ": true,
	// M - Central America, Mexico, Caribbean.
	"MB": true, "MD": true, "MG": true, "MH": true, "MK": true, "MM": true, "MN": true, "MP": true, "MR": true, "MS": true, "MT": true, "MU": true, "MW": true, "MY": true, "MZ": true,
	// N - Pacific.
	"NC": true, "NF": true, "NG": true, "NI": true, "NL": true, "NS": true, "NT": true, "NV": true, "NW": true, "NZ": true,
	// O - Middle East.
	"OA": true, "OB": true, "OE": true, "OI": true, "OJ": true, "OK": true, "OL": true, "OM": true, "OO": true, "OP": true, "OR": true, "OS": true, "OT": true, "OY": true,
	// P - Pacific, Alaska, Hawaii.
	"PA": true, "PB": true, "PC": true, "PF": true, "PG": true, "PH": true, "PJ": true, "PK": true, "PL": true, "PM": true, "PO": true, "PP": true, "PT": true, "PW": true,
	// R - Far East (RO = Japan Ryukyu/Okinawa).
	"RC": true, "RJ": true, "RK": true, "RO": true, "RP": true,
	// S - South America.
	"SA": true, "SB": true, "SC": true, "SD": true, "SE": true, "SF": true, "SG": true, "SK": true, "SL": true, "SM": true, "SN": true, "SO": true, "SP": true, "SS": true, "SU": true, "SV": true, "SW": true, "SY": true,
	// T - Caribbean (TB = Barbados, TF = French Caribbean, TI = US Virgin Islands).
	"TA": true, "TB": true, "TC": true, "TD": true, "TF": true, "TG": true, "TI": true, "TJ": true, "TK": true, "TL": true, "TN": true, "TQ": true, "TR": true, "TT": true, "TU": true, "TV": true, "TX": true,
	// U - Russia, former USSR.
	"UA": true, "UB": true, "UC": true, "UD": true, "UE": true, "UG": true, "UH": true, "UI": true, "UK": true, "UL": true, "UM": true, "UN": true, "UO": true, "UR": true, "US": true, "UT": true, "UU": true, "UW": true,
	// V - South/Southeast Asia (VA/VI = India, VC = Sri Lanka, VD = Cambodia, VM = Vietnam/Macau).
	"VA": true, "VC": true, "VD": true, "VE": true, "VG": true, "VH": true, "VI": true, "VL": true, "VM": true, "VN": true, "VO": true, "VQ": true, "VR": true, "VT": true, "VV": true, "VY": true,
	// W - Indonesia, Malaysia.
	"WA": true, "WB": true, "WI": true, "WM": true, "WP": true, "WR": true, "WS": true,
	// Y - Australia.
	"YA": true, "YB": true, "YC": true, "YD": true, "YF": true, "YG": true, "YH": true, "YI": true, "YL": true, "YM": true, "YN": true, "YO": true, "YP": true, "YR": true, "YS": true, "YT": true, "YU": true, "YV": true, "YW": true, "YY": true,
	// Z - China.
	"ZA": true, "ZB": true, "ZG": true, "ZH": true, "ZJ": true, "ZK": true, "ZL": true, "ZM": true, "ZP": true, "ZS": true, "ZU": true, "ZW": true, "ZY": true,
}

// hasValidStationPrefix checks if an ident starts with a valid regional prefix.
func hasValidStationPrefix(ident string) bool {
	if len(ident) < 2 {
		return false
	}
	// K is a single-letter prefix for USA.
	if ident[0] == 'K' {
		return true
	}
	return validStationPrefixes[ident[:2]]
}

// IsValidStation checks if a potential station ident is likely valid.
// Validates length, character set, regional prefix, and blocklist.
func IsValidStation(ident string) bool {
	if len(ident) != 4 {
		return false
	}
	if StationBlocklist[ident] || StructureKeywords[ident] {
		return false
	}
	for _, c := range ident {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	// Reject garbage like QQQQ or XAXA that happens to be 4 letters.
	return hasValidStationPrefix(ident)
}

// FindValidStation finds the first valid station ident in text.
func FindValidStation(text string) string {
	matches := stationPattern.FindAllString(text, -1)
	for _, m := range matches {
		if IsValidStation(m) {
			return m
		}
	}
	return ""
}

// IATAToICAO maps common IATA codes to ICAO station idents, for callers that
// configure station lists with 3-letter codes.
var IATAToICAO = map[string]string{
	"SFO": "KSFO", "LAX": "KLAX", "JFK": "KJFK", "ORD": "KORD",
	"DFW": "KDFW", "ATL": "KATL", "DEN": "KDEN", "SEA": "KSEA",
	"CLT": "KCLT", "PHX": "KPHX", "MIA": "KMIA", "BOS": "KBOS",
	"MSP": "KMSP", "DTW": "KDTW", "EWR": "KEWR", "LGA": "KLGA",
	"IAH": "KIAH", "ANC": "PANC", "HNL": "PHNL",
}

// NormalizeStation upper-cases an ident and expands known IATA codes.
// US 3-letter codes without a known mapping get a K prefix.
func NormalizeStation(ident string) string {
	ident = strings.ToUpper(strings.TrimSpace(ident))
	if len(ident) != 3 {
		return ident
	}
	if icao, ok := IATAToICAO[ident]; ok {
		return icao
	}
	return "K" + ident
}

// tokenReplacer is used by Tokenize for efficient single-pass replacement.
// Slashes are preserved: they are significant in validity ranges, fractional
// visibility, and VV/// groups.
var tokenReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\t", " ")

// Tokenize splits bulletin text into upper-cased tokens.
func Tokenize(text string) []string {
	text = tokenReplacer.Replace(text)

	fields := strings.Fields(text)
	tokens := make([]string, len(fields))
	for i, f := range fields {
		tokens[i] = strings.ToUpper(f)
	}
	return tokens
}

// StripTerminator removes a trailing "=" report terminator and surrounding space.
func StripTerminator(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "=")
	return strings.TrimSpace(text)
}
