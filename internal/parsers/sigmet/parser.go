// Package sigmet parses SIGMET hazard advisories.
package sigmet

import (
	"strconv"
	"strings"
	"time"

	"wx_decoder/internal/bulletin"
	"wx_decoder/internal/patterns"
	"wx_decoder/internal/registry"
	"wx_decoder/internal/wx"
)

// Advisory represents a single parsed SIGMET.
type Advisory struct {
	ID         string           `json:"id"`
	ValidFrom  string           `json:"valid_from,omitempty"`
	ValidTo    string           `json:"valid_to,omitempty"`
	ValidFromT *time.Time       `json:"valid_from_time,omitempty"`
	ValidToT   *time.Time       `json:"valid_to_time,omitempty"`
	Originator string           `json:"originator,omitempty"`
	FIR        string           `json:"fir,omitempty"`
	Phenomenon string           `json:"phenomenon,omitempty"`
	Altitude   string           `json:"altitude,omitempty"`
	Movement   string           `json:"movement,omitempty"`
	Boundary   []patterns.Point `json:"boundary,omitempty"`
	Raw        string           `json:"raw"`
}

// Result represents the advisories decoded from one bulletin.
type Result struct {
	Timestamp  string     `json:"timestamp,omitempty"`
	Source     string     `json:"source,omitempty"`
	Advisories []Advisory `json:"advisories"`
}

func (r *Result) Type() string { return "sigmet" }

func (r *Result) Station() string {
	if len(r.Advisories) == 0 {
		return ""
	}
	return r.Advisories[0].Originator
}

// Parser parses SIGMET bulletins.
type Parser struct{}

func init() {
	registry.Register(&Parser{})
}

func (p *Parser) Name() string           { return "sigmet" }
func (p *Parser) Kinds() []bulletin.Kind { return []bulletin.Kind{bulletin.KindSIGMET} }
func (p *Parser) Priority() int          { return 10 }

// QuickCheck looks for the SIGMET keyword.
func (p *Parser) QuickCheck(text string) bool {
	return strings.Contains(strings.ToUpper(text), "SIGMET")
}

func (p *Parser) Parse(b *bulletin.Bulletin) registry.Result {
	if b.Text == "" {
		return nil
	}

	received := b.ReceivedAt(time.Now().UTC())

	result := &Result{
		Timestamp: b.Timestamp,
		Source:    b.Source,
	}

	matches := patterns.SigmetPattern.FindAllStringSubmatch(strings.ToUpper(b.Text), -1)
	for _, m := range matches {
		if len(m) < 8 {
			continue
		}

		adv := Advisory{
			ID:         m[1],
			ValidFrom:  m[2],
			ValidTo:    m[3],
			ValidFromT: resolveValidity(m[2], received),
			ValidToT:   resolveValidity(m[3], received),
			Originator: m[4],
			FIR:        m[5] + " " + m[6],
			Raw:        strings.TrimSpace(m[0]),
		}

		body := m[7]

		// Phenomenon runs up to the boundary, observation, or forecast marker.
		if idx := strings.Index(body, " WI "); idx > 0 {
			adv.Phenomenon = strings.TrimSpace(body[:idx])
		} else if idx := strings.Index(body, " OBS "); idx > 0 {
			adv.Phenomenon = strings.TrimSpace(body[:idx])
		} else if idx := strings.Index(body, " FCST "); idx > 0 {
			adv.Phenomenon = strings.TrimSpace(body[:idx])
		}

		if am := patterns.SigmetAltPattern.FindString(body); am != "" {
			adv.Altitude = am
		}
		if mm := patterns.SigmetMovePattern.FindString(body); mm != "" {
			adv.Movement = mm
		}
		adv.Boundary = patterns.ExtractBoundaryPoints(body)

		result.Advisories = append(result.Advisories, adv)
	}

	if len(result.Advisories) == 0 {
		return nil
	}
	return result
}

// resolveValidity anchors a DDHHMM validity token near the received time.
func resolveValidity(token string, received time.Time) *time.Time {
	if len(token) != 6 {
		return nil
	}
	day, err1 := strconv.Atoi(token[0:2])
	hour, err2 := strconv.Atoi(token[2:4])
	minute, err3 := strconv.Atoi(token[4:6])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil
	}
	t := wx.ResolveDayTime(day, hour, minute, received)
	return &t
}

// ParseWithTrace implements registry.Traceable for detailed debugging.
func (p *Parser) ParseWithTrace(b *bulletin.Bulletin) *registry.TraceResult {
	trace := &registry.TraceResult{
		Parser: p.Name(),
	}

	quickCheckPassed := p.QuickCheck(b.Text)
	trace.QuickCheck = &registry.QuickCheckTrace{
		Passed: quickCheckPassed,
	}

	if !quickCheckPassed {
		trace.QuickCheck.Reason = "No SIGMET keyword found"
		return trace
	}

	body := strings.ToUpper(b.Text)

	headers := patterns.SigmetPattern.FindAllString(body, -1)
	trace.Extractors = append(trace.Extractors, registry.ExtractorTrace{
		Name:    "sigmet",
		Matched: len(headers) > 0,
		Value:   strconv.Itoa(len(headers)) + " found",
	})

	alt := patterns.SigmetAltPattern.FindString(body)
	trace.Extractors = append(trace.Extractors, registry.ExtractorTrace{
		Name:    "altitude",
		Matched: alt != "",
		Value:   alt,
	})

	move := patterns.SigmetMovePattern.FindString(body)
	trace.Extractors = append(trace.Extractors, registry.ExtractorTrace{
		Name:    "movement",
		Matched: move != "",
		Value:   move,
	})

	points := patterns.ExtractBoundaryPoints(body)
	trace.Extractors = append(trace.Extractors, registry.ExtractorTrace{
		Name:    "boundary",
		Matched: len(points) > 0,
		Value:   strconv.Itoa(len(points)) + " points",
	})

	trace.Matched = p.Parse(b) != nil
	return trace
}
