// Package fallback captures bulletins no other parser could decode, so
// failures are archived and inspectable instead of dropped.
package fallback

import (
	"strings"

	"wx_decoder/internal/bulletin"
	"wx_decoder/internal/registry"
)

// Result represents an undecodable bulletin.
type Result struct {
	StationID string `json:"station,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Raw       string `json:"raw"`
}

func (r *Result) Type() string    { return "unparsed" }
func (r *Result) Station() string { return r.StationID }

// Parser is the catch-all for unrecognized bulletins.
type Parser struct{}

func init() {
	registry.RegisterCatchAll(&Parser{})
}

func (p *Parser) Name() string           { return "fallback" }
func (p *Parser) Kinds() []bulletin.Kind { return nil }
func (p *Parser) Priority() int          { return 1000 }

func (p *Parser) QuickCheck(text string) bool { return true }

func (p *Parser) Parse(b *bulletin.Bulletin) registry.Result {
	if strings.TrimSpace(b.Text) == "" {
		return nil
	}
	return &Result{
		StationID: b.EffectiveStation(),
		Kind:      string(b.EffectiveKind()),
		Raw:       b.Text,
	}
}
