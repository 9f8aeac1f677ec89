// Package metar parses METAR and SPECI observation bulletins.
package metar

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"wx_decoder/internal/bulletin"
	"wx_decoder/internal/patterns"
	"wx_decoder/internal/registry"
	"wx_decoder/internal/wx"
)

// Grok compiler singleton.
var (
	grokCompiler *patterns.Compiler
	grokOnce     sync.Once
	grokErr      error
)

func getCompiler() (*patterns.Compiler, error) {
	grokOnce.Do(func() {
		grokCompiler = patterns.NewCompiler(Formats, nil)
		grokErr = grokCompiler.Compile()
	})
	return grokCompiler, grokErr
}

// PeakWind is a decoded peak-wind remark group.
type PeakWind struct {
	Direction int    `json:"direction"`
	Speed     int    `json:"speed"`
	Time      string `json:"time"` // minutes past the hour, or HHMM
}

// Remarks holds the decoded remark groups of an observation.
type Remarks struct {
	Raw                 string    `json:"raw"`
	StationType         string    `json:"station_type,omitempty"` // AO1 or AO2
	SeaLevelPressureHPa float64   `json:"sea_level_pressure_hpa,omitempty"`
	PreciseTemperatureC *float64  `json:"precise_temperature_c,omitempty"`
	PreciseDewPointC    *float64  `json:"precise_dew_point_c,omitempty"`
	PeakWind            *PeakWind `json:"peak_wind,omitempty"`
	HourlyPrecipIn      float64   `json:"hourly_precip_in,omitempty"`
	PressureTrend       string    `json:"pressure_trend,omitempty"`
}

// Report is a single decoded observation with its flight category.
type Report struct {
	ReportType   string         `json:"report_type"` // METAR or SPECI
	Observation  wx.Observation `json:"observation"`
	Category     wx.Category    `json:"category"`
	TemperatureC *int           `json:"temperature_c,omitempty"`
	DewPointC    *int           `json:"dew_point_c,omitempty"`
	AltimeterHPa int            `json:"altimeter_hpa,omitempty"`
	RVRs         []string       `json:"rvrs,omitempty"`
	Remarks      *Remarks       `json:"remarks,omitempty"`
}

// Result represents the observations decoded from one bulletin.
type Result struct {
	Timestamp string   `json:"timestamp,omitempty"`
	Source    string   `json:"source,omitempty"`
	Reports   []Report `json:"reports"`
}

func (r *Result) Type() string { return "observation" }

func (r *Result) Station() string {
	if len(r.Reports) == 0 {
		return ""
	}
	return r.Reports[0].Observation.Station
}

// Parser parses observation bulletins.
type Parser struct{}

func init() {
	registry.Register(&Parser{})
}

func (p *Parser) Name() string           { return "metar" }
func (p *Parser) Kinds() []bulletin.Kind { return []bulletin.Kind{bulletin.KindMETAR} }
func (p *Parser) Priority() int          { return 10 }

// QuickCheck looks for an issue-time suffix.
func (p *Parser) QuickCheck(text string) bool {
	return len(text) >= 12 && strings.Contains(strings.ToUpper(text), "Z")
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

	for _, chunk := range patterns.SplitReports(b.Text) {
		if report, ok := decodeReport(chunk, received); ok {
			result.Reports = append(result.Reports, report)
		}
	}

	if len(result.Reports) == 0 {
		return nil
	}
	return result
}

// decodeReport decodes a single report chunk. ok is false when the chunk
// yields nothing an observation could use.
func decodeReport(chunk string, received time.Time) (Report, bool) {
	obs, cat := wx.DecodeObservationAt(chunk, received)
	if obs.Station == "" && obs.Visibility == nil && obs.Ceiling == nil &&
		obs.Wind == nil && !obs.ClearSky && len(obs.Weather) == 0 {
		return Report{}, false
	}

	report := Report{
		ReportType:  reportType(chunk),
		Observation: obs,
		Category:    cat,
	}

	if temp, dew, ok := patterns.ExtractTempDew(chunk); ok {
		report.TemperatureC = &temp
		report.DewPointC = &dew
	}
	if hpa, _ := patterns.ExtractAltimeter(chunk); hpa > 0 {
		report.AltimeterHPa = hpa
	}
	report.RVRs = patterns.ExtractRVRs(patterns.Tokenize(chunk))
	report.Remarks = decodeRemarks(patterns.ExtractRemarks(chunk))

	return report, true
}

// reportType distinguishes SPECI from METAR. Everything else in an
// observation bulletin is treated as METAR.
func reportType(chunk string) string {
	if patterns.ExtractReportType(chunk) == "SPECI" {
		return "SPECI"
	}
	return "METAR"
}

// decodeRemarks decodes the remark groups after RMK.
func decodeRemarks(text string) *Remarks {
	if text == "" {
		return nil
	}
	compiler, err := getCompiler()
	if err != nil {
		return nil
	}

	r := &Remarks{Raw: text}

	for _, m := range compiler.ParseAll(text) {
		switch m.FormatName {
		case "automated":
			r.StationType = "AO" + m.Captures["ao"]

		case "slp":
			if v, err := strconv.Atoi(m.Captures["slp"]); err == nil {
				// Three digits are tenths of hPa; the leading 9 or 10 is
				// implied. Values below 50.0 belong above 1000 hPa.
				if v < 500 {
					r.SeaLevelPressureHPa = 1000 + float64(v)/10
				} else {
					r.SeaLevelPressureHPa = 900 + float64(v)/10
				}
			}

		case "tgroup":
			if t, ok := tenths(m.Captures["tsign"], m.Captures["tval"]); ok {
				r.PreciseTemperatureC = &t
			}
			if d, ok := tenths(m.Captures["dsign"], m.Captures["dval"]); ok {
				r.PreciseDewPointC = &d
			}

		case "peak_wind":
			dir, _ := strconv.Atoi(m.Captures["dir"])
			spd, _ := strconv.Atoi(m.Captures["spd"])
			r.PeakWind = &PeakWind{
				Direction: dir,
				Speed:     spd,
				Time:      m.Captures["time"],
			}

		case "hourly_precip":
			if v, err := strconv.Atoi(m.Captures["precip"]); err == nil {
				r.HourlyPrecipIn = float64(v) / 100
			}

		case "pressure_trend":
			r.PressureTrend = m.Captures["trend"]
		}
	}

	return r
}

// tenths converts a T-group sign digit and three-digit value to degrees.
func tenths(sign, val string) (float64, bool) {
	v, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	t := float64(v) / 10
	if sign == "1" {
		t = -t
	}
	return t, true
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
		trace.QuickCheck.Reason = "No issue-time suffix or text too short"
		return trace
	}

	body := strings.ToUpper(b.Text)

	visTokens := patterns.VisibilitySMPattern.FindAllString(body, -1)
	trace.Extractors = append(trace.Extractors, registry.ExtractorTrace{
		Name:    "visibility_sm",
		Matched: len(visTokens) > 0,
		Value:   strings.TrimSpace(strings.Join(visTokens, " ")),
	})

	clouds := patterns.CloudPattern.FindAllString(body, -1)
	trace.Extractors = append(trace.Extractors, registry.ExtractorTrace{
		Name:    "clouds",
		Matched: len(clouds) > 0,
		Value:   strings.Join(clouds, " "),
	})

	wind := patterns.WindPattern.FindString(body)
	trace.Extractors = append(trace.Extractors, registry.ExtractorTrace{
		Name:    "wind",
		Matched: wind != "",
		Value:   wind,
	})

	if compiler, err := getCompiler(); err == nil {
		remarks := patterns.ExtractRemarks(body)
		compilerTrace := compiler.ParseWithTrace(remarks)
		for _, ft := range compilerTrace.Formats {
			trace.Formats = append(trace.Formats, registry.FormatTrace{
				Name:     ft.Name,
				Matched:  ft.Matched,
				Captures: ft.Captures,
			})
		}
	}

	trace.Matched = p.Parse(b) != nil
	return trace
}
