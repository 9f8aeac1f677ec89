// wxcheck decodes a single weather report and prints a human-readable summary
// with the derived flight category. The report comes from the command line or
// stdin, so raw bulletins can be piped straight in:
//
//	wxcheck KJFK 252151Z 18004KT 10SM FEW250 24/18 A3012
//	pbpaste | wxcheck -trace
//
// Options:
//
//	-kind KIND   Force the bulletin kind (metar, taf, sigmet)
//	-json        Emit the extracted rows as JSON instead of text
//	-trace       Show per-parser pattern traces
//	-no-color    Disable color output
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"

	"wx_decoder/internal/bulletin"
	"wx_decoder/internal/extractor"
	_ "wx_decoder/internal/parsers" // register all parsers via init()
	"wx_decoder/internal/registry"
)

// Color definitions using fatih/color.
var (
	labelColor   = color.New(color.FgCyan)
	dateColor    = color.New(color.FgGreen)
	sectionColor = color.New(color.FgBlue)
	numberColor  = color.New(color.FgGreen)

	// Flight category colors follow the standard map convention.
	vfrColor     = color.New(color.FgGreen, color.Bold)
	mvfrColor    = color.New(color.FgBlue, color.Bold)
	ifrColor     = color.New(color.FgRed, color.Bold)
	lifrColor    = color.New(color.FgMagenta, color.Bold)
	unknownColor = color.New(color.FgYellow)
)

func main() {
	kind := flag.String("kind", "", "Force the bulletin kind (metar, taf, sigmet)")
	asJSON := flag.Bool("json", false, "Emit the extracted rows as JSON instead of text")
	trace := flag.Bool("trace", false, "Show per-parser pattern traces")
	noColor := flag.Bool("no-color", false, "Disable color output")
	flag.Parse()

	if *noColor {
		color.NoColor = true // disables colorized output globally
	}

	text := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
			os.Exit(1)
		}
		text = strings.TrimSpace(string(data))
	}
	if text == "" {
		fmt.Fprintln(os.Stderr, "Usage: wxcheck [options] [report text...]  (or pipe a report on stdin)")
		os.Exit(2)
	}

	registry.Default().Sort()

	b := &bulletin.Bulletin{
		Kind: bulletin.Kind(strings.ToLower(*kind)),
		Text: text,
	}

	results := registry.Default().Dispatch(b)
	data := extractor.Extract(b, results)

	if *asJSON {
		enc, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON encode error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(enc))
	} else {
		printSummary(b, data)
	}

	if *trace {
		printTraces(b)
	}
}

func printSummary(b *bulletin.Bulletin, data extractor.ExtractedData) {
	labelColor.Print("Kind: ")
	fmt.Println(kindName(b.EffectiveKind()))

	for _, c := range data.Conditions {
		fmt.Println()
		sectionColor.Println("Observation:")
		printField("Station", c.Station)
		if c.ReportType != "" {
			printField("Report", c.ReportType)
		}
		if c.ObservedAt != nil {
			labelColor.Print("  Observed: ")
			dateColor.Println(c.ObservedAt.Format("2006-01-02 15:04 UTC"))
		}
		labelColor.Print("  Category: ")
		categoryColor(c.Category).Println(orUnknown(c.Category))
		if vis := formatVisibility(c.VisibilityMi, c.VisibilityUnbounded); vis != "" {
			printField("Visibility", vis)
		}
		if c.CeilingFt != nil {
			printField("Ceiling", fmt.Sprintf("%d feet", *c.CeilingFt))
		}
		if wind := formatWind(c.WindDirDeg, c.WindVariable, c.WindSpeedKt, c.WindGustKt); wind != "" {
			printField("Wind", wind)
		}
		if c.TemperatureC != nil {
			s := fmt.Sprintf("%.1f°C", *c.TemperatureC)
			if c.DewPointC != nil {
				s += fmt.Sprintf(", dew point %.1f°C", *c.DewPointC)
			}
			printField("Temperature", s)
		}
		if c.AltimeterHPa != 0 {
			printField("Altimeter", fmt.Sprintf("%d hPa", c.AltimeterHPa))
		}
		if len(c.Weather) > 0 {
			printField("Weather", strings.Join(c.Weather, " "))
		}
	}

	if len(data.Periods) > 0 {
		fmt.Println()
		sectionColor.Println("Forecast Periods:")
		for i, p := range data.Periods {
			fmt.Println()
			numberColor.Printf("%d. ", i+1)
			fmt.Print(markerName(p.Marker, p.Probability))
			if !p.From.IsZero() {
				fmt.Print(" ")
				dateColor.Print(p.From.Format("2006-01-02 15:04 UTC"))
				if !p.To.IsZero() {
					fmt.Print(" to ")
					dateColor.Print(p.To.Format("2006-01-02 15:04 UTC"))
				}
			}
			fmt.Println()
			fmt.Print("   ")
			labelColor.Print("Category: ")
			categoryColor(p.Category).Println(orUnknown(p.Category))
			if vis := formatVisibility(p.VisibilityMi, false); vis != "" {
				fmt.Print("   ")
				printField("Visibility", vis)
			}
			if p.CeilingFt != nil {
				fmt.Print("   ")
				printField("Ceiling", fmt.Sprintf("%d feet", *p.CeilingFt))
			}
		}
	}

	for _, a := range data.Advisories {
		fmt.Println()
		sectionColor.Println("Advisory:")
		printField("ID", a.ID)
		if a.FIR != "" {
			printField("FIR", a.FIR)
		}
		if a.Phenomenon != "" {
			printField("Phenomenon", a.Phenomenon)
		}
		if a.ValidFrom != nil && a.ValidTo != nil {
			labelColor.Print("  Valid: ")
			dateColor.Print(a.ValidFrom.Format("2006-01-02 15:04 UTC"))
			fmt.Print(" to ")
			dateColor.Println(a.ValidTo.Format("2006-01-02 15:04 UTC"))
		}
		if a.Altitude != "" {
			printField("Altitude", a.Altitude)
		}
		if a.Movement != "" {
			printField("Movement", a.Movement)
		}
		if len(a.Boundary) > 0 {
			printField("Boundary", fmt.Sprintf("%d points", len(a.Boundary)))
		}
	}

	if data.Unparsed != nil {
		fmt.Println()
		unknownColor.Println("No parser could decode this report.")
	}
}

func printField(label, value string) {
	labelColor.Printf("  %s: ", label)
	fmt.Println(value)
}

func kindName(k bulletin.Kind) string {
	if k == bulletin.KindUnknown {
		return "unknown"
	}
	return string(k)
}

func orUnknown(category string) string {
	if category == "" {
		return "UNKNOWN"
	}
	return category
}

// categoryColor returns the display color for a flight category.
func categoryColor(category string) *color.Color {
	switch strings.ToUpper(category) {
	case "VFR":
		return vfrColor
	case "MVFR":
		return mvfrColor
	case "IFR":
		return ifrColor
	case "LIFR":
		return lifrColor
	default:
		return unknownColor
	}
}

func formatVisibility(miles *float64, unbounded bool) string {
	if miles == nil {
		return ""
	}
	s := fmt.Sprintf("%g statute miles", *miles)
	if unbounded {
		s = "greater than " + s
	}
	return s
}

func formatWind(dir *int, variable bool, speed, gust *int) string {
	if dir == nil && !variable && speed == nil {
		return ""
	}

	windStr := ""
	if variable {
		windStr = "Variable"
	} else if dir != nil {
		windStr = fmt.Sprintf("From %d°", *dir)
	}
	if speed != nil {
		windStr += fmt.Sprintf(" at %d knots", *speed)
		if gust != nil {
			windStr += fmt.Sprintf(", gusting to %d knots", *gust)
		}
	}
	return strings.TrimSpace(windStr)
}

// printTraces runs every traceable parser against the bulletin and shows which
// patterns were tried, what matched, and what each extractor captured.
func printTraces(b *bulletin.Bulletin) {
	fmt.Println()
	sectionColor.Println("Parser traces:")

	for _, p := range registry.Default().AllParsers() {
		traceable, ok := p.(registry.Traceable)
		if !ok {
			continue
		}
		t := traceable.ParseWithTrace(b)
		if t == nil {
			continue
		}

		fmt.Println()
		labelColor.Print("  ")
		labelColor.Print(t.Parser)
		if t.Matched {
			vfrColor.Println("  [matched]")
		} else {
			unknownColor.Println("  [no match]")
		}

		if t.QuickCheck != nil {
			status := "failed"
			if t.QuickCheck.Passed {
				status = "passed"
			}
			fmt.Printf("    quick check: %s", status)
			if t.QuickCheck.Reason != "" {
				fmt.Printf(" (%s)", t.QuickCheck.Reason)
			}
			fmt.Println()
		}

		for _, f := range t.Formats {
			marker := "-"
			if f.Matched {
				marker = "+"
			}
			fmt.Printf("    %s %s\n", marker, f.Name)
			if f.Matched && len(f.Captures) > 0 {
				keys := make([]string, 0, len(f.Captures))
				for k := range f.Captures {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Printf("        %s=%q\n", k, f.Captures[k])
				}
			}
		}

		for _, e := range t.Extractors {
			if e.Matched {
				fmt.Printf("    + %s=%q\n", e.Name, e.Value)
			} else {
				fmt.Printf("    - %s\n", e.Name)
			}
		}
	}
}

// markerName expands a period marker the way pilots read them.
func markerName(marker string, probability int) string {
	switch marker {
	case "BASE":
		return "Base Forecast"
	case "FM":
		return "From"
	case "TEMPO":
		return "Temporary"
	case "BECMG":
		return "Becoming"
	case "PROB":
		return fmt.Sprintf("%d%% Probability", probability)
	default:
		return marker
	}
}
