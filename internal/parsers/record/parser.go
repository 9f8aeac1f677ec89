// Package record parses structured JSON observation records riding the feed,
// shaped like the aviationweather.gov API responses. Content-based: it checks
// every bulletin regardless of declared kind.
package record

import (
	"encoding/json"
	"strings"

	"wx_decoder/internal/bulletin"
	"wx_decoder/internal/registry"
	"wx_decoder/internal/wx"
)

// Decoded pairs an observation with its classified category.
type Decoded struct {
	Observation wx.Observation `json:"observation"`
	Category    wx.Category    `json:"category"`
}

// Result represents the records decoded from one bulletin.
type Result struct {
	Source  string    `json:"source,omitempty"`
	Records []Decoded `json:"records"`
}

func (r *Result) Type() string { return "observation" }

func (r *Result) Station() string {
	if len(r.Records) == 0 {
		return ""
	}
	return r.Records[0].Observation.Station
}

// Parser parses structured record bulletins.
type Parser struct{}

func init() {
	registry.Register(&Parser{})
}

func (p *Parser) Name() string           { return "record" }
func (p *Parser) Kinds() []bulletin.Kind { return nil }
func (p *Parser) Priority() int          { return 5 }

// QuickCheck looks for a JSON payload.
func (p *Parser) QuickCheck(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

func (p *Parser) Parse(b *bulletin.Bulletin) registry.Result {
	text := strings.TrimSpace(b.Text)
	if text == "" {
		return nil
	}

	var records []bulletin.APIRecord
	if strings.HasPrefix(text, "[") {
		if err := json.Unmarshal([]byte(text), &records); err != nil {
			return nil
		}
	} else {
		var rec bulletin.APIRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil
		}
		records = append(records, rec)
	}

	result := &Result{Source: b.Source}
	for _, rec := range records {
		obs, cat := rec.ToObservation()
		if obs.Station == "" && obs.Raw == "" {
			continue
		}
		result.Records = append(result.Records, Decoded{
			Observation: obs,
			Category:    cat,
		})
	}

	if len(result.Records) == 0 {
		return nil
	}
	return result
}
