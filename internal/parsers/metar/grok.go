// Grok-style pattern definitions for METAR remark decoding.

package metar

import "wx_decoder/internal/patterns"

// Formats defines the known METAR remark groups.
var Formats = []patterns.Format{
	// Automated station type: AO1 (no precipitation discriminator) or AO2.
	{
		Name:    "automated",
		Pattern: `\bAO(?P<ao>{AO_TYPE})\b`,
		Fields:  []string{"ao"},
	},
	// Sea-level pressure: SLP045 = 1004.5 hPa, SLP982 = 998.2 hPa.
	// Three digits are tenths of hPa; values below 50.0 sit above 1000.
	{
		Name:    "slp",
		Pattern: `\bSLP(?P<slp>{SLP})\b`,
		Fields:  []string{"slp"},
	},
	// Hourly temperature/dewpoint to tenths: T01830161 = 18.3/16.1,
	// sign digit 1 = negative.
	{
		Name: "tgroup",
		Pattern: `\bT(?P<tsign>{TSIGN})(?P<tval>{TVAL})` +
			`(?P<dsign>{TSIGN})(?P<dval>{TVAL})\b`,
		Fields: []string{"tsign", "tval", "dsign", "dval"},
	},
	// Peak wind: PK WND 28045/15 (direction, speed, minutes past the hour
	// or HHMM).
	{
		Name:    "peak_wind",
		Pattern: `\bPK\s+WND\s+(?P<dir>\d{3})(?P<spd>{WIND_SPD})/(?P<time>\d{2,4})\b`,
		Fields:  []string{"dir", "spd", "time"},
	},
	// Hourly precipitation in hundredths of an inch: P0009 = 0.09 in.
	{
		Name:    "hourly_precip",
		Pattern: `\bP(?P<precip>{PRECIP})\b`,
		Fields:  []string{"precip"},
	},
	// Pressure rising or falling rapidly.
	{
		Name:    "pressure_trend",
		Pattern: `\b(?P<trend>{PRESTREND})\b`,
		Fields:  []string{"trend"},
	},
}
