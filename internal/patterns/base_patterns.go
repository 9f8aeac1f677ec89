// Package patterns provides shared regex patterns and helper functions for weather bulletin parsing.
// This file contains grok-style base patterns for use with the Compiler.

package patterns

// BasePatterns defines reusable regex components for grok-style pattern composition.
// These are referenced in format patterns using {PATTERN_NAME} syntax.
var BasePatterns = map[string]string{
	// Station idents.
	"STATION": `[A-Z]{4}`,
	"IATA":    `[A-Z]{3}`,

	// Time components.
	"DAY":    `\d{2}`,    // Day of month, 01-31
	"HOUR":   `\d{2}`,    // Hour, 00-24 (24 = end of day in validity ranges)
	"MINUTE": `\d{2}`,    // Minute, 00-59
	"TIME4":  `\d{4}`,    // HHMM
	"TIME6":  `\d{6}`,    // DDHHMM
	"TIMEZ":  `\d{6}Z`,   // DDHHMM with Z suffix

	// Wind.
	"WIND_DIR": `\d{3}|VRB`, // Direction in degrees or variable
	"WIND_SPD": `\d{2,3}`,   // Speed in knots

	// Visibility.
	"VIS_SM": `\d+(?:\.\d+)?`, // Statute miles, integer or decimal
	"VIS_M":  `\d{4}`,         // Metres, 4 digits

	// Clouds.
	"COVER":  `FEW|SCT|BKN|OVC`,
	"HEIGHT": `\d{3}`, // Hundreds of feet

	// Remarks groups.
	"SLP":       `\d{3}`,   // Sea-level pressure, tenths of hPa above 900/1000
	"TSIGN":     `[01]`,    // T-group sign: 0 positive, 1 negative
	"TVAL":      `\d{3}`,   // T-group value, tenths of a degree
	"PRECIP":    `\d{4}`,   // Precipitation, hundredths of an inch
	"AO_TYPE":   `[12]`,    // Automated station type
	"PRESTREND": `PRESRR|PRESFR`,

	// Category token.
	"CATEGORY": `LIFR|MVFR|IFR|VFR`,
}
