// Package patterns provides shared regex patterns and helper functions for weather bulletin parsing.
// This file contains coordinate conversion utilities for SIGMET boundary points.

package patterns

import (
	"regexp"
	"strconv"
	"strings"
)

// SigmetPointPattern matches a SIGMET boundary point: N/S latitude then E/W
// longitude, degrees or degrees+minutes, with or without a separating space.
// Examples: "N4530 W02230", "S0213 E13530", "N42 W015", "N4530W02230".
var SigmetPointPattern = regexp.MustCompile(`\b([NS])(\d{4}|\d{2})\s*([EW])(\d{5}|\d{3})\b`)

// Point is a decoded boundary point in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ExtractBoundaryPoints collects all SIGMET boundary points from text, in
// order of appearance.
func ExtractBoundaryPoints(text string) []Point {
	var points []Point
	for _, m := range SigmetPointPattern.FindAllStringSubmatch(strings.ToUpper(text), -1) {
		points = append(points, Point{
			Lat: ParseLatitude(m[2], m[1]),
			Lon: ParseLongitude(m[4], m[3]),
		})
	}
	return points
}

// ParseDMSCoord parses coordinates in various DMS formats and returns decimal degrees.
// Supported formats:
//   - DD / DDD (e.g., 45 = 45°)
//   - DDMM / DDDMM (e.g., 4530 = 45°30')
//   - DDMM.M / DDDMM.M (e.g., 3413.8 = 34°13.8')
//   - DDMMSS / DDDMMSS (e.g., 341348 = 34°13'48")
//
// degDigits specifies how many digits are degrees (2 for lat, 3 for lon).
// dir is the direction (N/S/E/W) - S and W result in negative values.
func ParseDMSCoord(s string, degDigits int, dir string) float64 {
	if s == "" {
		return 0
	}

	var deg, min float64

	// Check if it contains a decimal point.
	if strings.Contains(s, ".") {
		parts := strings.Split(s, ".")
		if len(parts) != 2 {
			return 0
		}

		wholePart := parts[0]
		decPart := parts[1]

		if len(wholePart) < degDigits {
			return 0
		}

		// Extract degrees.
		degVal, err := strconv.Atoi(wholePart[:degDigits])
		if err != nil {
			return 0
		}
		deg = float64(degVal)

		// Extract minutes (rest of whole part + decimal).
		minVal, err := strconv.ParseFloat(wholePart[degDigits:]+"."+decPart, 64)
		if err != nil {
			return 0
		}
		min = minVal
	} else {
		switch len(s) - degDigits {
		case 0:
			// Whole degrees only.
			degVal, err := strconv.Atoi(s)
			if err != nil {
				return 0
			}
			deg = float64(degVal)

		case 2:
			// Degrees + whole minutes (the usual SIGMET form).
			degVal, err := strconv.Atoi(s[:degDigits])
			if err != nil {
				return 0
			}
			deg = float64(degVal)

			minVal, err := strconv.Atoi(s[degDigits:])
			if err != nil {
				return 0
			}
			min = float64(minVal)

		case 3:
			// Degrees + minutes + tenths of a minute.
			degVal, err := strconv.Atoi(s[:degDigits])
			if err != nil {
				return 0
			}
			deg = float64(degVal)

			minWhole, err := strconv.Atoi(s[degDigits : degDigits+2])
			if err != nil {
				return 0
			}
			minTenths, err := strconv.Atoi(s[degDigits+2:])
			if err != nil {
				return 0
			}
			min = float64(minWhole) + float64(minTenths)/10.0

		case 4:
			// Degrees + minutes + seconds.
			degVal, err := strconv.Atoi(s[:degDigits])
			if err != nil {
				return 0
			}
			deg = float64(degVal)

			minVal, err := strconv.Atoi(s[degDigits : degDigits+2])
			if err != nil {
				return 0
			}
			secVal, err := strconv.Atoi(s[degDigits+2:])
			if err != nil {
				return 0
			}
			min = float64(minVal) + float64(secVal)/60.0

		default:
			// Try simple decimal interpretation.
			val, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0
			}
			if val < 180 && val > -180 {
				if dir == "S" || dir == "W" {
					return -val
				}
				return val
			}
			return 0
		}
	}

	// Convert to decimal degrees.
	result := deg + min/60.0

	// Apply direction.
	if dir == "S" || dir == "W" {
		result = -result
	}

	return result
}

// ParseLatitude parses a latitude value with direction.
// Expects 2 degree digits.
func ParseLatitude(value, dir string) float64 {
	return ParseDMSCoord(value, 2, dir)
}

// ParseLongitude parses a longitude value with direction.
// Expects 3 degree digits.
func ParseLongitude(value, dir string) float64 {
	return ParseDMSCoord(value, 3, dir)
}

// ParseDecimalCoord parses coordinates that are already in decimal format.
// Applies direction sign (S/W = negative).
func ParseDecimalCoord(s string, dir string) float64 {
	if s == "" {
		return 0
	}

	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}

	if dir == "S" || dir == "W" {
		return -val
	}
	return val
}
