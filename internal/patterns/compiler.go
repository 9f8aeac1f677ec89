// Grok-style pattern compiler: remark formats are written with {PLACEHOLDER}
// references into a base pattern table and expanded once at startup.

package patterns

import (
	"fmt"
	"regexp"
	"strings"
)

// Format is one named pattern with {PLACEHOLDER} references and named
// capture groups.
type Format struct {
	Name     string         // format name, reported on matches
	Pattern  string         // pattern with {PLACEHOLDER} references
	Compiled *regexp.Regexp // populated by Compile
	Fields   []string       // capture names in order, for documentation
}

// placeholderRe matches {NAME} references inside format patterns.
var placeholderRe = regexp.MustCompile(`\{[A-Z][A-Z0-9_]*\}`)

// Compiler expands and compiles a format set against a base pattern table.
type Compiler struct {
	base    map[string]string
	formats []Format
}

// NewCompiler builds a compiler over the global BasePatterns, overlaid with
// any local patterns. Locals win on name collisions.
func NewCompiler(formats []Format, local map[string]string) *Compiler {
	base := make(map[string]string, len(BasePatterns)+len(local))
	for k, v := range BasePatterns {
		base[k] = v
	}
	for k, v := range local {
		base[k] = v
	}

	c := &Compiler{base: base, formats: make([]Format, len(formats))}
	copy(c.formats, formats)
	return c
}

// Compile expands every format's placeholders and compiles the result.
// A placeholder with no base pattern is an error, not a literal: RE2 would
// otherwise quietly match the braces themselves.
func (c *Compiler) Compile() error {
	for i := range c.formats {
		f := &c.formats[i]
		expanded, err := c.expand(f.Pattern)
		if err != nil {
			return fmt.Errorf("format %s: %w", f.Name, err)
		}
		re, err := regexp.Compile(expanded)
		if err != nil {
			return fmt.Errorf("format %s: %w", f.Name, err)
		}
		f.Compiled = re
	}
	return nil
}

func (c *Compiler) expand(pattern string) (string, error) {
	var missing []string
	out := placeholderRe.ReplaceAllStringFunc(pattern, func(ref string) string {
		name := strings.Trim(ref, "{}")
		base, ok := c.base[name]
		if !ok {
			missing = append(missing, name)
			return ref
		}
		return base
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("unknown base pattern %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// Match is one successful format match.
type Match struct {
	FormatName string
	Captures   map[string]string
}

// GetCapture returns a named capture, or the default when the match is nil
// or the group came up empty.
func (m *Match) GetCapture(name, def string) string {
	if m == nil {
		return def
	}
	if v := m.Captures[name]; v != "" {
		return v
	}
	return def
}

// captureMap maps a submatch slice onto the pattern's named groups.
func captureMap(re *regexp.Regexp, match []string) map[string]string {
	caps := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		caps[name] = match[i]
	}
	return caps
}

// Parse returns the first format that matches the text, or nil.
func (c *Compiler) Parse(text string) *Match {
	text = strings.ToUpper(text)
	for _, f := range c.formats {
		if f.Compiled == nil {
			continue
		}
		if m := f.Compiled.FindStringSubmatch(text); m != nil {
			return &Match{FormatName: f.Name, Captures: captureMap(f.Compiled, m)}
		}
	}
	return nil
}

// ParseAll runs every format against the text. Remark sections routinely
// carry several independent groups, so all matching formats are reported,
// in declaration order.
func (c *Compiler) ParseAll(text string) []*Match {
	text = strings.ToUpper(text)
	var out []*Match
	for _, f := range c.formats {
		if f.Compiled == nil {
			continue
		}
		if m := f.Compiled.FindStringSubmatch(text); m != nil {
			out = append(out, &Match{FormatName: f.Name, Captures: captureMap(f.Compiled, m)})
		}
	}
	return out
}

// FormatTrace records one format attempt for debugging.
type FormatTrace struct {
	Name     string
	Matched  bool
	Pattern  string            // the expanded regex
	Captures map[string]string // populated when matched
}

// ParseTrace is the full record of a traced parse.
type ParseTrace struct {
	Formats []FormatTrace
	Match   *Match // first successful match, if any
}

// ParseWithTrace runs every format and records the outcome of each attempt,
// for the inspection tooling.
func (c *Compiler) ParseWithTrace(text string) *ParseTrace {
	text = strings.ToUpper(text)
	trace := &ParseTrace{Formats: make([]FormatTrace, 0, len(c.formats))}

	for _, f := range c.formats {
		ft := FormatTrace{Name: f.Name, Pattern: f.Pattern}
		if f.Compiled != nil {
			ft.Pattern = f.Compiled.String()
			if m := f.Compiled.FindStringSubmatch(text); m != nil {
				ft.Matched = true
				ft.Captures = captureMap(f.Compiled, m)
				if trace.Match == nil {
					trace.Match = &Match{FormatName: f.Name, Captures: ft.Captures}
				}
			}
		}
		trace.Formats = append(trace.Formats, ft)
	}

	return trace
}
