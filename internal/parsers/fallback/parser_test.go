package fallback

import (
	"testing"

	"wx_decoder/internal/bulletin"
)

func TestFallbackParser(t *testing.T) {
	p := &Parser{}

	b := &bulletin.Bulletin{Text: "KPIT UNRECOGNIZED GIBBERISH 123"}
	result := p.Parse(b)
	if result == nil {
		t.Fatalf("Parse returned nil")
	}
	if result.Type() != "unparsed" {
		t.Errorf("type = %q, want unparsed", result.Type())
	}
	if result.Station() != "KPIT" {
		t.Errorf("station = %q, want KPIT", result.Station())
	}

	r := result.(*Result)
	if r.Raw != b.Text {
		t.Errorf("raw = %q, want original text", r.Raw)
	}
}

func TestFallbackParserEmpty(t *testing.T) {
	p := &Parser{}
	if got := p.Parse(&bulletin.Bulletin{Text: "   "}); got != nil {
		t.Errorf("Parse(blank) = %v, want nil", got)
	}
}
