package wx

import (
	"strings"
	"time"

	"wx_decoder/internal/patterns"
)

// Visibility is a horizontal visibility. Unbounded marks "at or above the
// reporting limit" values (P6SM, 9999 meters, clear-sky markers); Miles then
// carries the floor when one is known.
type Visibility struct {
	Miles     float64 `json:"miles"`
	Unbounded bool    `json:"unbounded,omitempty"`
}

// Ceiling is the lowest broken, overcast or obscured layer. Unlimited marks
// clear skies; it is distinct from an absent ceiling, which decodes as a nil
// pointer.
type Ceiling struct {
	Feet      float64 `json:"feet"`
	Unlimited bool    `json:"unlimited,omitempty"`
}

// Wind is a surface wind group, speeds in knots.
type Wind struct {
	Direction    int  `json:"direction"`
	Variable     bool `json:"variable,omitempty"`
	Speed        int  `json:"speed"`
	Gust         int  `json:"gust,omitempty"`
	VariableFrom int  `json:"variable_from,omitempty"`
	VariableTo   int  `json:"variable_to,omitempty"`
}

// CloudLayer is one cloud group from the report body.
type CloudLayer struct {
	Cover      string `json:"cover"`
	BaseFeet   int    `json:"base_feet"`
	Convective string `json:"convective,omitempty"`
}

// Observation is the decoded form of one current-conditions report. Absent
// fields stay nil rather than zero so classification can tell "not reported"
// from "reported as zero".
type Observation struct {
	Station          string       `json:"station,omitempty"`
	Raw              string       `json:"raw"`
	Issued           *time.Time   `json:"issued,omitempty"`
	Wind             *Wind        `json:"wind,omitempty"`
	Visibility       *Visibility  `json:"visibility,omitempty"`
	Ceiling          *Ceiling     `json:"ceiling,omitempty"`
	Clouds           []CloudLayer `json:"clouds,omitempty"`
	Weather          []string     `json:"weather,omitempty"`
	ClearSky         bool         `json:"clear_sky,omitempty"`
	ExplicitCategory *Category    `json:"explicit_category,omitempty"`
}

// DecodeObservation decodes one raw report into an Observation and its
// flight category. It never fails: the worst case is an Observation carrying
// only the raw text, classified Unknown. Identical input always yields
// identical output.
func DecodeObservation(raw string) (Observation, Category) {
	body := patterns.StripTerminator(strings.ToUpper(raw))

	obs := Observation{
		Raw:              body,
		Wind:             ExtractWind(body),
		Visibility:       ExtractVisibility(body),
		Ceiling:          ExtractCeiling(body),
		Clouds:           ExtractClouds(body),
		Weather:          ExtractWeather(body),
		ClearSky:         HasClearSky(body),
		ExplicitCategory: ExtractCategory(body),
	}

	if m := patterns.MetarHeaderPattern.FindStringSubmatch(body); m != nil {
		obs.Station = m[2]
	} else {
		obs.Station = patterns.FindValidStation(body)
	}

	return obs, Classify(obs)
}

// DecodeObservationAt decodes a raw report and anchors its DDHHMMZ issue
// time against the receive instant.
func DecodeObservationAt(raw string, received time.Time) (Observation, Category) {
	obs, cat := DecodeObservation(raw)
	if day, hour, minute, ok := ExtractIssueTime(obs.Raw); ok {
		issued := ResolveDayTime(day, hour, minute, received)
		obs.Issued = &issued
	}
	return obs, cat
}
