package wx

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"wx_decoder/internal/patterns"
)

// PeriodKind identifies how a forecast period was introduced.
type PeriodKind string

const (
	PeriodBase     PeriodKind = "BASE"
	PeriodFrom     PeriodKind = "FM"
	PeriodTempo    PeriodKind = "TEMPO"
	PeriodBecoming PeriodKind = "BECMG"
	PeriodProb     PeriodKind = "PROB"
)

// ForecastPeriod is one span of a bulletin timeline with the conditions its
// text describes. TEMPO/BECMG/PROB periods state only what changes, so a
// period may carry no visibility or ceiling at all and classify Unknown.
type ForecastPeriod struct {
	Kind        PeriodKind   `json:"kind"`
	Probability int          `json:"probability,omitempty"`
	From        time.Time    `json:"from"`
	To          time.Time    `json:"to"`
	Raw         string       `json:"raw"`
	Wind        *Wind        `json:"wind,omitempty"`
	Visibility  *Visibility  `json:"visibility,omitempty"`
	Ceiling     *Ceiling     `json:"ceiling,omitempty"`
	Clouds      []CloudLayer `json:"clouds,omitempty"`
	Weather     []string     `json:"weather,omitempty"`
	Category    Category     `json:"category"`
}

// Forecast is a decoded bulletin: header fields plus the ordered period
// timeline.
type Forecast struct {
	Station   string           `json:"station,omitempty"`
	Raw       string           `json:"raw"`
	Issued    time.Time        `json:"issued"`
	ValidFrom time.Time        `json:"valid_from"`
	ValidTo   time.Time        `json:"valid_to"`
	Periods   []ForecastPeriod `json:"periods,omitempty"`
}

// DecodeForecast decodes a raw bulletin into its period timeline. The
// receive instant anchors the bulletin's day-of-month tokens onto full
// timestamps.
//
// The body before the first change group is the base period. An FM group
// replaces the base: it closes the running base (or previous FM) period at
// its own start time. TEMPO, BECMG and PROB groups are overlays with their
// own DDHH/DDHH windows; the period under them keeps running, so its end is
// the next FM anywhere later in the bulletin, else the overall validity end.
//
// Decoding never fails. Unparseable header fields degrade to the receive
// instant; an unparseable overlay window collapses to zero length.
func DecodeForecast(raw string, received time.Time) Forecast {
	body := patterns.StripTerminator(strings.ToUpper(raw))
	body = strings.Join(strings.Fields(body), " ")

	fc := Forecast{Raw: body, Issued: received.Truncate(time.Hour)}
	if body == "" {
		fc.ValidFrom, fc.ValidTo = fc.Issued, fc.Issued
		return fc
	}

	baseStart := 0
	if m := patterns.TafHeaderPattern.FindStringSubmatchIndex(body); m != nil {
		fc.Station = body[m[2]:m[3]]
		if day, hour, minute, ok := splitIssueTime(body[m[4]:m[5]]); ok {
			fc.Issued = ResolveDayTime(day, hour, minute, received)
		}
		fc.ValidFrom, fc.ValidTo = resolveWindow(body[m[6]:m[7]], fc.Issued)
		baseStart = m[1]
	} else {
		fc.Station = patterns.FindValidStation(body)
		if loc := patterns.IssueTimePattern.FindStringIndex(body); loc != nil {
			if day, hour, minute, ok := ExtractIssueTime(body); ok {
				fc.Issued = ResolveDayTime(day, hour, minute, received)
			}
			baseStart = loc[1]
		}
		// Only a range before the first change group can be the overall
		// validity; otherwise the match is some overlay's own window.
		if loc := patterns.ValidityPattern.FindStringIndex(body[baseStart:]); loc != nil {
			mk := patterns.ChangeMarkerPattern.FindStringIndex(body[baseStart:])
			if mk == nil || loc[0] < mk[0] {
				fc.ValidFrom, fc.ValidTo = resolveWindow(body[baseStart+loc[0]:baseStart+loc[1]], fc.Issued)
				baseStart += loc[1]
			}
		}
	}
	if fc.ValidFrom.IsZero() {
		fc.ValidFrom, fc.ValidTo = fc.Issued, fc.Issued
	}
	if fc.ValidTo.Before(fc.ValidFrom) {
		fc.ValidTo = fc.ValidFrom
	}

	rest := body[baseStart:]
	marks := patterns.ChangeMarkerPattern.FindAllStringIndex(rest, -1)

	baseEnd := len(rest)
	if len(marks) > 0 {
		baseEnd = marks[0][0]
	}
	fc.Periods = append(fc.Periods, buildPeriod(PeriodBase, 0, fc.ValidFrom, fc.ValidTo, rest[:baseEnd]))

	// Index of the running base-like period whose end the next FM sets.
	open := 0
	for i, mk := range marks {
		segEnd := len(rest)
		if i+1 < len(marks) {
			segEnd = marks[i+1][0]
		}
		seg := strings.TrimSpace(rest[mk[0]:segEnd])

		if fm := patterns.FromGroupPattern.FindStringSubmatch(seg); fm != nil && strings.HasPrefix(seg, "FM") {
			day, _ := strconv.Atoi(fm[1])
			hour, _ := strconv.Atoi(fm[2])
			minute, _ := strconv.Atoi(fm[3])
			from := ResolveDayTime(day, hour, minute, fc.Issued)

			fc.Periods[open].To = from
			fc.Periods = append(fc.Periods, buildPeriod(PeriodFrom, 0, from, fc.ValidTo, seg))
			open = len(fc.Periods) - 1
			continue
		}

		if cg := patterns.ChangeGroupPattern.FindStringSubmatch(seg); cg != nil {
			kind, prob := parseLeader(cg[1])
			from := ResolveDayTime(atoi2(cg[2]), atoi2(cg[3]), 0, fc.Issued)
			to := ResolveDayTime(atoi2(cg[4]), atoi2(cg[5]), 0, fc.Issued)
			if to.Before(from) {
				to = from
			}
			fc.Periods = append(fc.Periods, buildPeriod(kind, prob, from, to, seg))
		}
	}

	sort.SliceStable(fc.Periods, func(i, j int) bool {
		return fc.Periods[i].From.Before(fc.Periods[j].From)
	})
	return fc
}

// CurrentPeriod selects the single applicable period for a query instant:
// the first period, in chronological order, that contains the instant or has
// yet to start. Past the end of the timeline the last period applies. ok is
// false only when the forecast has no periods at all.
func (f Forecast) CurrentPeriod(now time.Time) (ForecastPeriod, bool) {
	if len(f.Periods) == 0 {
		return ForecastPeriod{}, false
	}
	for _, p := range f.Periods {
		if !p.From.Before(now) {
			return p, true
		}
		if !p.From.After(now) && !now.After(p.To) {
			return p, true
		}
	}
	return f.Periods[len(f.Periods)-1], true
}

// CurrentCategory is the flight category of the applicable period, Unknown
// when there is no forecast to consult.
func (f Forecast) CurrentCategory(now time.Time) Category {
	p, ok := f.CurrentPeriod(now)
	if !ok {
		return Unknown
	}
	return p.Category
}

// buildPeriod runs the field extractors over one period's text span and
// classifies it.
func buildPeriod(kind PeriodKind, prob int, from, to time.Time, text string) ForecastPeriod {
	p := ForecastPeriod{
		Kind:        kind,
		Probability: prob,
		From:        from,
		To:          to,
		Raw:         strings.TrimSpace(text),
		Wind:        ExtractWind(text),
		Visibility:  ExtractVisibility(text),
		Ceiling:     ExtractCeiling(text),
		Clouds:      ExtractClouds(text),
		Weather:     ExtractWeather(text),
	}
	p.Category = Classify(Observation{
		Visibility: p.Visibility,
		Ceiling:    p.Ceiling,
		ClearSky:   HasClearSky(text),
	})
	return p
}

// parseLeader splits a change-group leader into its kind and probability.
// Handles TEMPO, BECMG, PROBnn and the compound "PROBnn TEMPO".
func parseLeader(leader string) (PeriodKind, int) {
	prob := 0
	if strings.HasPrefix(leader, "PROB") && len(leader) >= 6 {
		if v, err := strconv.Atoi(leader[4:6]); err == nil {
			prob = v
		}
	}
	switch {
	case strings.HasSuffix(leader, "TEMPO"):
		return PeriodTempo, prob
	case leader == "BECMG":
		return PeriodBecoming, prob
	default:
		return PeriodProb, prob
	}
}

// splitIssueTime splits a 6-digit DDHHMM string.
func splitIssueTime(s string) (day, hour, minute int, ok bool) {
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	day, _ = strconv.Atoi(s[0:2])
	hour, _ = strconv.Atoi(s[2:4])
	minute, _ = strconv.Atoi(s[4:6])
	return day, hour, minute, true
}

// resolveWindow anchors a DDHH/DDHH validity range near the reference.
func resolveWindow(s string, reference time.Time) (from, to time.Time) {
	m := patterns.ValidityPattern.FindStringSubmatch(s)
	if m == nil {
		return reference, reference
	}
	from = ResolveDayTime(atoi2(m[1]), atoi2(m[2]), 0, reference)
	to = ResolveDayTime(atoi2(m[3]), atoi2(m[4]), 0, reference)
	if to.Before(from) {
		to = from
	}
	return from, to
}

func atoi2(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
