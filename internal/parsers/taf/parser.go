// Package taf parses TAF forecast bulletins into categorized periods.
package taf

import (
	"strconv"
	"strings"
	"time"

	"wx_decoder/internal/bulletin"
	"wx_decoder/internal/patterns"
	"wx_decoder/internal/registry"
	"wx_decoder/internal/wx"
)

// Result represents the forecasts decoded from one bulletin. A bulletin can
// carry several TAFs; each becomes its own timeline.
type Result struct {
	Timestamp string        `json:"timestamp,omitempty"`
	Source    string        `json:"source,omitempty"`
	Forecasts []wx.Forecast `json:"forecasts"`
}

func (r *Result) Type() string { return "forecast" }

func (r *Result) Station() string {
	if len(r.Forecasts) == 0 {
		return ""
	}
	return r.Forecasts[0].Station
}

// Parser parses forecast bulletins.
type Parser struct{}

func init() {
	registry.Register(&Parser{})
}

func (p *Parser) Name() string           { return "taf" }
func (p *Parser) Kinds() []bulletin.Kind { return []bulletin.Kind{bulletin.KindTAF} }
func (p *Parser) Priority() int          { return 10 }

// QuickCheck looks for a validity-range slash.
func (p *Parser) QuickCheck(text string) bool {
	return strings.Contains(text, "/")
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

	// Malformed chunks still come back as a forecast with a zero-length
	// window; decoding a bulletin never aborts halfway.
	for _, chunk := range patterns.SplitForecasts(b.Text) {
		result.Forecasts = append(result.Forecasts, wx.DecodeForecast(chunk, received))
	}

	if len(result.Forecasts) == 0 {
		return nil
	}
	return result
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
		trace.QuickCheck.Reason = "No validity range found"
		return trace
	}

	body := strings.ToUpper(b.Text)

	header := patterns.TafHeaderPattern.FindString(body)
	trace.Extractors = append(trace.Extractors, registry.ExtractorTrace{
		Name:    "taf_header",
		Matched: header != "",
		Value:   header,
	})

	validity := patterns.ValidityPattern.FindString(body)
	trace.Extractors = append(trace.Extractors, registry.ExtractorTrace{
		Name:    "validity",
		Matched: validity != "",
		Value:   validity,
	})

	fromGroups := patterns.FromGroupPattern.FindAllString(body, -1)
	trace.Extractors = append(trace.Extractors, registry.ExtractorTrace{
		Name:    "from_groups",
		Matched: len(fromGroups) > 0,
		Value:   strconv.Itoa(len(fromGroups)) + " found",
	})

	changeGroups := patterns.ChangeGroupPattern.FindAllString(body, -1)
	trace.Extractors = append(trace.Extractors, registry.ExtractorTrace{
		Name:    "change_groups",
		Matched: len(changeGroups) > 0,
		Value:   strconv.Itoa(len(changeGroups)) + " found",
	})

	trace.Matched = p.Parse(b) != nil
	return trace
}
