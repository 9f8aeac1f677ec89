// Debug tracing for the wxcheck CLI. Parsers that implement Traceable replay
// a decode against one bulletin and report every gate, pattern, and extractor
// they tried along the way.

package registry

import "wx_decoder/internal/bulletin"

// TraceResult is one parser's account of a decode attempt.
type TraceResult struct {
	Parser     string
	Matched    bool
	QuickCheck *QuickCheckTrace
	Formats    []FormatTrace
	Extractors []ExtractorTrace
}

// QuickCheckTrace records the cheap pre-dispatch gate.
type QuickCheckTrace struct {
	Passed bool
	Reason string // set when the gate rejects, naming what was missing
}

// FormatTrace records one remark-format attempt from a grok-style parser.
type FormatTrace struct {
	Name     string
	Matched  bool
	Captures map[string]string // named groups, only when matched
}

// ExtractorTrace records a single field extractor pass.
type ExtractorTrace struct {
	Name    string
	Matched bool
	Value   string // what the extractor pulled out, or empty
}

// Traceable parsers can replay a decode step by step, without archiving or
// dispatch side effects.
type Traceable interface {
	ParseWithTrace(b *bulletin.Bulletin) *TraceResult
}
