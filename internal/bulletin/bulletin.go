// Package bulletin provides the raw weather bulletin envelope shared by the
// feed consumers: kind detection, flexible decoding of the loose JSON the
// upstream sources emit, and adapters that turn feed records into canonical
// observations.
package bulletin

import (
	"strconv"
	"strings"
	"time"

	"wx_decoder/internal/patterns"
)

// Kind classifies a raw bulletin's report type.
type Kind string

const (
	KindUnknown Kind = ""
	KindMETAR   Kind = "metar"
	KindTAF     Kind = "taf"
	KindSIGMET  Kind = "sigmet"
)

// Bulletin is one raw bulletin as delivered by a feed, with whatever
// structured sibling fields the source chose to include alongside the text.
type Bulletin struct {
	ID        FlexInt64 `json:"id,omitempty"`
	Station   string    `json:"station,omitempty"`
	Kind      Kind      `json:"kind,omitempty"`
	Source    string    `json:"source,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
	Text      string    `json:"text"`

	// Optional structured siblings. Feeds disagree on typing and units; the
	// flex types absorb that before the core sees anything.
	Visibility     *FlexFloat64 `json:"visibility,omitempty"`
	FlightCategory string       `json:"flight_category,omitempty"`
}

// timestampFormats are the wire formats feeds use, tried in order.
var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04",
}

// ReceivedAt parses the feed timestamp, falling back to now for absent or
// unparseable values. A bare integer is unix seconds.
func (b *Bulletin) ReceivedAt(now time.Time) time.Time {
	ts := strings.TrimSpace(b.Timestamp)
	if ts == "" {
		return now
	}
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.UTC()
		}
	}
	if secs, err := strconv.ParseInt(ts, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC()
	}
	return now
}

// EffectiveKind is the declared kind, detected from the text when the feed
// left it unset.
func (b *Bulletin) EffectiveKind() Kind {
	if b.Kind != KindUnknown {
		return b.Kind
	}
	return DetectKind(b.Text)
}

// EffectiveStation is the declared station, recovered from the text when the
// feed left it unset.
func (b *Bulletin) EffectiveStation() string {
	if b.Station != "" {
		return patterns.NormalizeStation(b.Station)
	}
	return patterns.FindValidStation(strings.ToUpper(b.Text))
}

// DetectKind classifies raw report text by its structure. Forecast bulletins
// announce themselves with a TAF header or carry change groups; a METAR-style
// trend (TEMPO without its own DDHH/DDHH window) does not count as one.
func DetectKind(text string) Kind {
	t := strings.ToUpper(text)
	switch {
	case strings.Contains(t, "SIGMET"):
		return KindSIGMET
	case strings.HasPrefix(strings.TrimSpace(t), "TAF "),
		patterns.TafHeaderPattern.MatchString(t),
		patterns.ChangeMarkerPattern.MatchString(t):
		return KindTAF
	case patterns.IssueTimePattern.MatchString(t):
		return KindMETAR
	default:
		return KindUnknown
	}
}
