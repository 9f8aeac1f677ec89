// Package main provides a corpus analyzer for the bulletin archive.
// It analyzes bulletin distribution, decode coverage, and format patterns.
package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	dbPath := flag.String("db", "bulletins.db", "SQLite archive file")
	outputFormat := flag.String("format", "text", "Output format: text, json")
	showTemplates := flag.Bool("templates", false, "Include template analysis (slower)")
	topN := flag.Int("top", 20, "Show top N items in each category")
	kind := flag.String("kind", "", "Analyze specific bulletin kind only")
	suggest := flag.Bool("suggest", false, "Generate pattern suggestions for a kind (requires -kind)")
	minCluster := flag.Int("min-cluster", 3, "Minimum cluster size for suggestions")
	testPattern := flag.String("test", "", "Test a regex pattern against unparsed bulletins")

	flag.Parse()

	db, err := sql.Open("sqlite3", *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// Pattern testing mode.
	if *testPattern != "" {
		if *kind == "" {
			fmt.Fprintf(os.Stderr, "Error: -test requires -kind\n")
			os.Exit(1)
		}
		matches, total, matchIDs, nonMatchIDs := TestPattern(db, *testPattern, *kind)
		fmt.Printf("Pattern: %s\n", *testPattern)
		fmt.Printf("Kind: %s\n", *kind)
		fmt.Printf("Result: %d/%d match (%.1f%%)\n\n", matches, total, float64(matches)/float64(total)*100)

		if len(matchIDs) > 0 {
			fmt.Printf("Sample matches: %v\n", matchIDs)
		}
		if len(nonMatchIDs) > 0 {
			fmt.Printf("Sample non-matches: %v\n", nonMatchIDs)
		}
		return
	}

	// Suggestion mode.
	if *suggest {
		if *kind == "" {
			fmt.Fprintf(os.Stderr, "Error: -suggest requires -kind\n")
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Generating pattern suggestions for kind %s...\n", *kind)
		suggestions := SuggestPatterns(db, *kind, *minCluster, *topN)

		if *outputFormat == "json" {
			data, _ := json.MarshalIndent(suggestions, "", "  ")
			fmt.Println(string(data))
		} else {
			PrintSuggestions(suggestions, db)
		}
		return
	}

	report := &AnalysisReport{}

	// Run all analyses.
	fmt.Fprintf(os.Stderr, "Analyzing corpus...\n")

	report.Summary = analyzeSummary(db)
	fmt.Fprintf(os.Stderr, "  - Summary complete\n")

	report.KindDistribution = analyzeKindDistribution(db, *topN)
	fmt.Fprintf(os.Stderr, "  - Kind distribution complete\n")

	report.CategoryDistribution = analyzeCategoryDistribution(db)
	fmt.Fprintf(os.Stderr, "  - Category distribution complete\n")

	report.StationDistribution = analyzeStationDistribution(db, *topN)
	fmt.Fprintf(os.Stderr, "  - Station distribution complete\n")

	report.ParserCoverage = analyzeParserCoverage(db, *topN)
	fmt.Fprintf(os.Stderr, "  - Parser coverage complete\n")

	report.KindParsing = analyzeKindParsing(db, *kind)
	fmt.Fprintf(os.Stderr, "  - Kind parsing complete\n")

	report.ContentPatterns = analyzeContentPatterns(db, *kind, *topN)
	fmt.Fprintf(os.Stderr, "  - Content patterns complete\n")

	report.FieldCoverage = analyzeFieldCoverage(db)
	fmt.Fprintf(os.Stderr, "  - Field coverage complete\n")

	if *showTemplates {
		report.TemplateAnalysis = analyzeTemplates(db, *kind, *topN)
		fmt.Fprintf(os.Stderr, "  - Template analysis complete\n")
	}

	// Output.
	if *outputFormat == "json" {
		data, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(data))
	} else {
		printTextReport(report, *topN)
	}
}

// AnalysisReport contains all analysis results.
type AnalysisReport struct {
	Summary              SummaryStats          `json:"summary"`
	KindDistribution     []KindCount           `json:"kind_distribution"`
	CategoryDistribution []CategoryCount       `json:"category_distribution"`
	StationDistribution  []StationCount        `json:"station_distribution"`
	ParserCoverage       []ParserCount         `json:"parser_coverage"`
	KindParsing          []KindParseStats      `json:"kind_parsing"`
	ContentPatterns      []KindContentPatterns `json:"content_patterns"`
	FieldCoverage        []FieldCoverageStats  `json:"field_coverage"`
	TemplateAnalysis     []KindTemplates       `json:"template_analysis,omitempty"`
}

type SummaryStats struct {
	TotalBulletins    int     `json:"total_bulletins"`
	DecodedBulletins  int     `json:"decoded_bulletins"`
	UnparsedBulletins int     `json:"unparsed_bulletins"`
	DecodeRate        float64 `json:"decode_rate"`
	UniqueKinds       int     `json:"unique_kinds"`
	UniqueStations    int     `json:"unique_stations"`
	UniqueParserTypes int     `json:"unique_parser_types"`
	GoldenBulletins   int     `json:"golden_bulletins"`
	FlaggedBulletins  int     `json:"flagged_bulletins"`
}

type KindCount struct {
	Kind  string  `json:"kind"`
	Count int     `json:"count"`
	Pct   float64 `json:"percentage"`
}

type CategoryCount struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Pct      float64 `json:"percentage"`
}

type StationCount struct {
	Station string `json:"station"`
	Count   int    `json:"count"`
}

type ParserCount struct {
	ParserType string  `json:"parser_type"`
	Count      int     `json:"count"`
	Pct        float64 `json:"percentage"`
}

type KindParseStats struct {
	Kind       string   `json:"kind"`
	Total      int      `json:"total"`
	Decoded    int      `json:"decoded"`
	Unparsed   int      `json:"unparsed"`
	DecodeRate float64  `json:"decode_rate"`
	TopParsers []string `json:"top_parsers"`
}

type KindContentPatterns struct {
	Kind     string         `json:"kind"`
	Keywords []KeywordCount `json:"keywords"`
}

type KeywordCount struct {
	Keyword string  `json:"keyword"`
	Count   int     `json:"count"`
	Pct     float64 `json:"percentage"`
}

type FieldCoverageStats struct {
	ParserType string       `json:"parser_type"`
	Fields     []FieldCount `json:"fields"`
}

type FieldCount struct {
	Field   string  `json:"field"`
	Present int     `json:"present"`
	Missing int     `json:"missing"`
	Pct     float64 `json:"percentage"`
}

type KindTemplates struct {
	Kind            string          `json:"kind"`
	TotalBulletins  int             `json:"total_bulletins"`
	UniqueTemplates int             `json:"unique_templates"`
	TopTemplates    []TemplateCount `json:"top_templates"`
}

type TemplateCount struct {
	Template string `json:"template"`
	Count    int    `json:"count"`
	Example  string `json:"example"`
}

func analyzeSummary(db *sql.DB) SummaryStats {
	var stats SummaryStats

	db.QueryRow("SELECT COUNT(*) FROM bulletins").Scan(&stats.TotalBulletins)
	db.QueryRow("SELECT COUNT(*) FROM bulletins WHERE parser_type != 'unparsed' AND parser_type != ''").Scan(&stats.DecodedBulletins)
	stats.UnparsedBulletins = stats.TotalBulletins - stats.DecodedBulletins
	if stats.TotalBulletins > 0 {
		stats.DecodeRate = float64(stats.DecodedBulletins) / float64(stats.TotalBulletins) * 100
	}
	db.QueryRow("SELECT COUNT(DISTINCT kind) FROM bulletins").Scan(&stats.UniqueKinds)
	db.QueryRow("SELECT COUNT(DISTINCT station) FROM bulletins WHERE station != ''").Scan(&stats.UniqueStations)
	db.QueryRow("SELECT COUNT(DISTINCT parser_type) FROM bulletins WHERE parser_type != ''").Scan(&stats.UniqueParserTypes)
	db.QueryRow("SELECT COUNT(*) FROM bulletins WHERE is_golden = 1").Scan(&stats.GoldenBulletins)
	db.QueryRow("SELECT COUNT(*) FROM bulletins WHERE annotation IS NOT NULL AND annotation != ''").Scan(&stats.FlaggedBulletins)

	return stats
}

func analyzeKindDistribution(db *sql.DB, topN int) []KindCount {
	rows, err := db.Query(`
		SELECT kind, COUNT(*) as cnt
		FROM bulletins
		GROUP BY kind
		ORDER BY cnt DESC
		LIMIT ?`, topN)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var total int
	db.QueryRow("SELECT COUNT(*) FROM bulletins").Scan(&total)

	var results []KindCount
	for rows.Next() {
		var kc KindCount
		rows.Scan(&kc.Kind, &kc.Count)
		if total > 0 {
			kc.Pct = float64(kc.Count) / float64(total) * 100
		}
		results = append(results, kc)
	}
	return results
}

func analyzeCategoryDistribution(db *sql.DB) []CategoryCount {
	rows, err := db.Query(`
		SELECT COALESCE(NULLIF(category, ''), '(none)') as cat, COUNT(*) as cnt
		FROM bulletins
		GROUP BY cat
		ORDER BY cnt DESC`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var total int
	db.QueryRow("SELECT COUNT(*) FROM bulletins").Scan(&total)

	var results []CategoryCount
	for rows.Next() {
		var cc CategoryCount
		rows.Scan(&cc.Category, &cc.Count)
		if total > 0 {
			cc.Pct = float64(cc.Count) / float64(total) * 100
		}
		results = append(results, cc)
	}
	return results
}

func analyzeStationDistribution(db *sql.DB, topN int) []StationCount {
	rows, err := db.Query(`
		SELECT station, COUNT(*) as cnt
		FROM bulletins
		WHERE station IS NOT NULL AND station != ''
		GROUP BY station
		ORDER BY cnt DESC
		LIMIT ?`, topN)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var results []StationCount
	for rows.Next() {
		var sc StationCount
		rows.Scan(&sc.Station, &sc.Count)
		results = append(results, sc)
	}
	return results
}

func analyzeParserCoverage(db *sql.DB, topN int) []ParserCount {
	rows, err := db.Query(`
		SELECT COALESCE(NULLIF(parser_type, ''), 'unparsed') as ptype, COUNT(*) as cnt
		FROM bulletins
		GROUP BY ptype
		ORDER BY cnt DESC
		LIMIT ?`, topN)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var total int
	db.QueryRow("SELECT COUNT(*) FROM bulletins").Scan(&total)

	var results []ParserCount
	for rows.Next() {
		var pc ParserCount
		rows.Scan(&pc.ParserType, &pc.Count)
		if total > 0 {
			pc.Pct = float64(pc.Count) / float64(total) * 100
		}
		results = append(results, pc)
	}
	return results
}

func analyzeKindParsing(db *sql.DB, filterKind string) []KindParseStats {
	query := `
		SELECT
			kind,
			COUNT(*) as total,
			SUM(CASE WHEN parser_type != 'unparsed' AND parser_type != '' THEN 1 ELSE 0 END) as decoded
		FROM bulletins
	`
	if filterKind != "" {
		query += " WHERE kind = ?"
	}
	query += " GROUP BY kind ORDER BY total DESC LIMIT 30"

	var rows *sql.Rows
	var err error
	if filterKind != "" {
		rows, err = db.Query(query, filterKind)
	} else {
		rows, err = db.Query(query)
	}
	if err != nil {
		return nil
	}
	defer rows.Close()

	var results []KindParseStats
	for rows.Next() {
		var ks KindParseStats
		rows.Scan(&ks.Kind, &ks.Total, &ks.Decoded)
		ks.Unparsed = ks.Total - ks.Decoded
		if ks.Total > 0 {
			ks.DecodeRate = float64(ks.Decoded) / float64(ks.Total) * 100
		}

		// Get top parsers for this kind.
		prows, _ := db.Query(`
			SELECT parser_type, COUNT(*) as cnt
			FROM bulletins
			WHERE kind = ? AND parser_type != '' AND parser_type != 'unparsed'
			GROUP BY parser_type
			ORDER BY cnt DESC
			LIMIT 3`, ks.Kind)
		if prows != nil {
			for prows.Next() {
				var pt string
				var cnt int
				prows.Scan(&pt, &cnt)
				ks.TopParsers = append(ks.TopParsers, fmt.Sprintf("%s(%d)", pt, cnt))
			}
			prows.Close()
		}

		results = append(results, ks)
	}
	return results
}

// Tokens to look for in bulletins - these indicate decodable content.
var interestingTokens = []string{
	// Report headers.
	"METAR", "SPECI", "TAF", "SIGMET", "AIRMET",
	// Modifiers.
	"AUTO", "COR", "AMD", "NIL", "CNL", "CAVOK", "NOSIG",
	// Change groups.
	"TEMPO", "BECMG", "PROB30", "PROB40", "INTER",
	// Sky condition.
	"CLR", "SKC", "NSC", "NSW", "VV",
	// Present weather.
	"TS", "TSRA", "RA", "SHRA", "DZ", "SN", "BLSN", "FZRA", "FZFG",
	"FG", "BR", "HZ", "FU", "SQ", "GR", "GS", "VCSH", "VCTS",
	// Remarks.
	"RMK", "AO1", "AO2", "SLP", "PRESRR", "PRESFR", "FROPA",
	// Advisory phenomena.
	"TURB", "ICE", "MTW", "VA", "OBSC", "EMBD", "FRQ", "OCNL", "ISOL",
	"MOV", "STNR", "INTSF", "WKN",
	// Wind shear.
	"WS", "LLWS", "VRB",
}

func analyzeContentPatterns(db *sql.DB, filterKind string, topN int) []KindContentPatterns {
	// Get kinds to analyze.
	query := "SELECT DISTINCT kind FROM bulletins"
	var args []interface{}
	if filterKind != "" {
		query += " WHERE kind = ?"
		args = append(args, filterKind)
	}
	query += " ORDER BY kind"

	kindRows, err := db.Query(query, args...)
	if err != nil {
		return nil
	}
	defer kindRows.Close()

	var kinds []string
	for kindRows.Next() {
		var k string
		kindRows.Scan(&k)
		kinds = append(kinds, k)
	}

	keywordSet := make(map[string]bool, len(interestingTokens))
	for _, kw := range interestingTokens {
		keywordSet[kw] = true
	}

	var results []KindContentPatterns
	for _, k := range kinds {
		// Get sample of bulletins for this kind.
		rows, err := db.Query(`
			SELECT raw_text FROM bulletins
			WHERE kind = ?
			LIMIT 1000`, k)
		if err != nil {
			continue
		}

		keywordCounts := make(map[string]int)
		var total int

		for rows.Next() {
			var text string
			rows.Scan(&text)
			total++

			// Match whole tokens. Intensity prefixes (-RA, +TSRA) are stripped
			// so the base phenomenon still counts.
			seen := make(map[string]bool)
			for _, tok := range strings.Fields(strings.ToUpper(text)) {
				tok = strings.TrimLeft(tok, "+-")
				if keywordSet[tok] && !seen[tok] {
					keywordCounts[tok]++
					seen[tok] = true
				}
			}
		}
		rows.Close()

		if total == 0 {
			continue
		}

		// Sort keywords by count.
		var keywords []KeywordCount
		for kw, cnt := range keywordCounts {
			if cnt > 0 {
				keywords = append(keywords, KeywordCount{
					Keyword: kw,
					Count:   cnt,
					Pct:     float64(cnt) / float64(total) * 100,
				})
			}
		}
		sort.Slice(keywords, func(i, j int) bool {
			return keywords[i].Count > keywords[j].Count
		})
		if len(keywords) > topN {
			keywords = keywords[:topN]
		}

		if len(keywords) > 0 {
			results = append(results, KindContentPatterns{
				Kind:     k,
				Keywords: keywords,
			})
		}
	}

	return results
}

// Container array inside decoded_json carrying each parser type's extracted rows.
var parserContainers = map[string]string{
	"observation": "conditions",
	"forecast":    "periods",
	"sigmet":      "advisories",
}

func analyzeFieldCoverage(db *sql.DB) []FieldCoverageStats {
	// Get parser types with decoded_json.
	rows, err := db.Query(`
		SELECT DISTINCT parser_type
		FROM bulletins
		WHERE parser_type != '' AND parser_type != 'unparsed' AND decoded_json != ''
		ORDER BY parser_type`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var parserTypes []string
	for rows.Next() {
		var pt string
		rows.Scan(&pt)
		parserTypes = append(parserTypes, pt)
	}

	var results []FieldCoverageStats
	for _, pt := range parserTypes {
		container := parserContainers[pt]
		if container == "" {
			continue
		}

		// Sample decoded_json for this parser type.
		jrows, err := db.Query(`
			SELECT decoded_json FROM bulletins
			WHERE parser_type = ? AND decoded_json != ''
			LIMIT 500`, pt)
		if err != nil {
			continue
		}

		fieldPresent := make(map[string]int)
		fieldMissing := make(map[string]int)
		var total int

		for jrows.Next() {
			var jsonStr string
			jrows.Scan(&jsonStr)

			var data map[string]interface{}
			if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
				continue
			}

			// Each decoded bulletin holds an array of extracted rows; count
			// field presence across the rows.
			items, ok := data[container].([]interface{})
			if !ok {
				continue
			}

			for _, item := range items {
				row, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				total++

				for key, v := range row {
					// Skip the raw text carried for provenance.
					if key == "raw" {
						continue
					}

					isEmpty := false
					switch val := v.(type) {
					case string:
						isEmpty = val == ""
					case float64:
						isEmpty = val == 0
					case []interface{}:
						isEmpty = len(val) == 0
					case nil:
						isEmpty = true
					}

					if isEmpty {
						fieldMissing[key]++
					} else {
						fieldPresent[key]++
					}
				}
			}
		}
		jrows.Close()

		if total == 0 {
			continue
		}

		// Combine present and missing for all fields.
		allFields := make(map[string]bool)
		for f := range fieldPresent {
			allFields[f] = true
		}
		for f := range fieldMissing {
			allFields[f] = true
		}

		var fields []FieldCount
		for f := range allFields {
			present := fieldPresent[f]
			missing := fieldMissing[f]
			fields = append(fields, FieldCount{
				Field:   f,
				Present: present,
				Missing: missing,
				Pct:     float64(present) / float64(total) * 100,
			})
		}
		sort.Slice(fields, func(i, j int) bool {
			return fields[i].Present > fields[j].Present
		})

		results = append(results, FieldCoverageStats{
			ParserType: pt,
			Fields:     fields,
		})
	}

	return results
}

// Template analysis - collapses bulletins to their format skeleton.
var tokenPatterns = []struct {
	Name    string
	Pattern *regexp.Regexp
}{
	{"<WX>", regexp.MustCompile(`^[+-]?(VC)?(MI|PR|BC|DR|BL|SH|TS|FZ)?(DZ|RA|SN|SG|IC|PL|GR|GS|UP|BR|FG|FU|VA|DU|SA|HZ|PO|SQ|FC|SS|DS)+$`)},
	{"<ICAO>", regexp.MustCompile(`^[A-Z]{4}$`)},
	{"<DAYTIME>", regexp.MustCompile(`^[0-3]\d[0-2]\d[0-5]\dZ$`)},
	{"<WIND>", regexp.MustCompile(`^(VRB|\d{3})\d{2,3}(G\d{2,3})?(KT|MPS)$`)},
	{"<VARWIND>", regexp.MustCompile(`^\d{3}V\d{3}$`)},
	{"<VIS>", regexp.MustCompile(`^[MP]?\d{1,2}(/\d{1,2})?SM$`)},
	{"<RVR>", regexp.MustCompile(`^R\d{2}[LCR]?/[MP]?\d{4}(V[MP]?\d{4})?FT$`)},
	{"<CLOUD>", regexp.MustCompile(`^(FEW|SCT|BKN|OVC)\d{3}(CB|TCU)?$`)},
	{"<VV>", regexp.MustCompile(`^VV\d{3}$`)},
	{"<TEMPS>", regexp.MustCompile(`^M?\d{2}/(M?\d{2})?$`)},
	{"<ALTIM>", regexp.MustCompile(`^[AQ]\d{4}$`)},
	{"<VALIDITY>", regexp.MustCompile(`^[0-3]\d[0-2]\d/[0-3]\d[0-2]\d$`)},
	{"<FMTIME>", regexp.MustCompile(`^FM\d{6}$`)},
	{"<FL>", regexp.MustCompile(`^FL\d{2,3}$`)},
	{"<LATLON>", regexp.MustCompile(`^[NS]\d{2,4}$|^[EW]\d{3,5}$`)},
	{"<TIME>", regexp.MustCompile(`^[0-2]\d[0-5]\dZ?$`)},
	{"<NUM>", regexp.MustCompile(`^\d+$`)},
}

var literalKeywords = map[string]bool{
	"METAR": true, "SPECI": true, "TAF": true, "SIGMET": true, "AIRMET": true,
	"AUTO": true, "COR": true, "AMD": true, "NIL": true, "CNL": true,
	"CAVOK": true, "NOSIG": true, "RMK": true,
	"TEMPO": true, "BECMG": true, "INTER": true, "PROB30": true, "PROB40": true,
	"CLR": true, "SKC": true, "NSC": true, "NSW": true,
	"AO1": true, "AO2": true, "SLP": true,
	"VALID": true, "SFC": true, "TOP": true, "MOV": true, "STNR": true,
	"OBSC": true, "EMBD": true, "FRQ": true, "OCNL": true, "ISOL": true,
	"WI": true, "AND": true, "TO": true, "AT": true, "OF": true,
	"FIR": true, "OUTLOOK": true, "FCST": true, "OBS": true,
}

func analyzeTemplates(db *sql.DB, filterKind string, topN int) []KindTemplates {
	// Get kinds to analyze.
	query := `SELECT kind, COUNT(*) as cnt FROM bulletins GROUP BY kind HAVING cnt >= 10 ORDER BY cnt DESC LIMIT 20`
	var args []interface{}
	if filterKind != "" {
		query = `SELECT kind, COUNT(*) as cnt FROM bulletins WHERE kind = ? GROUP BY kind`
		args = append(args, filterKind)
	}

	kindRows, err := db.Query(query, args...)
	if err != nil {
		return nil
	}
	defer kindRows.Close()

	var kinds []string
	for kindRows.Next() {
		var k string
		var cnt int
		kindRows.Scan(&k, &cnt)
		kinds = append(kinds, k)
	}

	var results []KindTemplates
	for _, k := range kinds {
		rows, err := db.Query(`SELECT raw_text FROM bulletins WHERE kind = ? LIMIT 5000`, k)
		if err != nil {
			continue
		}

		templateCounts := make(map[string]int)
		templateExamples := make(map[string]string)
		var total int

		for rows.Next() {
			var text string
			rows.Scan(&text)
			total++

			tmpl := normaliseToTemplate(text)
			templateCounts[tmpl]++
			if _, ok := templateExamples[tmpl]; !ok {
				templateExamples[tmpl] = text
			}
		}
		rows.Close()

		var topTemplates []TemplateCount
		for tmpl, cnt := range templateCounts {
			topTemplates = append(topTemplates, TemplateCount{
				Template: truncate(tmpl, 100),
				Count:    cnt,
				Example:  truncate(templateExamples[tmpl], 200),
			})
		}
		sort.Slice(topTemplates, func(i, j int) bool {
			return topTemplates[i].Count > topTemplates[j].Count
		})
		if len(topTemplates) > topN {
			topTemplates = topTemplates[:topN]
		}

		results = append(results, KindTemplates{
			Kind:            k,
			TotalBulletins:  total,
			UniqueTemplates: len(templateCounts),
			TopTemplates:    topTemplates,
		})
	}

	return results
}

func normaliseToTemplate(text string) string {
	text = strings.ToUpper(text)
	lines := strings.Split(text, "\n")

	var normalisedLines []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		var normalisedTokens []string

		for _, tok := range tokens {
			norm := classifyToken(tok)
			normalisedTokens = append(normalisedTokens, norm)
		}

		if len(normalisedTokens) > 0 {
			normalisedLines = append(normalisedLines, strings.Join(normalisedTokens, " "))
		}
	}

	return strings.Join(normalisedLines, " | ")
}

func classifyToken(tok string) string {
	if literalKeywords[tok] {
		return tok
	}

	for _, tp := range tokenPatterns {
		if tp.Pattern.MatchString(tok) {
			return tp.Name
		}
	}

	if len(tok) <= 2 {
		return tok
	}

	if regexp.MustCompile(`^[A-Z]{3,8}$`).MatchString(tok) {
		return tok
	}

	return "<OTHER>"
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

func printTextReport(report *AnalysisReport, topN int) {
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("                   BULLETIN CORPUS ANALYSIS")
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println()

	// Summary.
	fmt.Println("SUMMARY")
	fmt.Println("───────")
	s := report.Summary
	fmt.Printf("Total Bulletins:     %d\n", s.TotalBulletins)
	fmt.Printf("Decoded:             %d (%.1f%%)\n", s.DecodedBulletins, s.DecodeRate)
	fmt.Printf("Unparsed:            %d (%.1f%%)\n", s.UnparsedBulletins, 100-s.DecodeRate)
	fmt.Printf("Unique Kinds:        %d\n", s.UniqueKinds)
	fmt.Printf("Unique Stations:     %d\n", s.UniqueStations)
	fmt.Printf("Unique Parser Types: %d\n", s.UniqueParserTypes)
	fmt.Printf("Golden Bulletins:    %d\n", s.GoldenBulletins)
	fmt.Printf("Flagged Bulletins:   %d\n", s.FlaggedBulletins)
	fmt.Println()

	// Kind distribution.
	fmt.Println("KIND DISTRIBUTION (Bulletins by kind)")
	fmt.Println("─────────────────")
	fmt.Printf("%-10s %10s %8s\n", "Kind", "Count", "Pct")
	for _, kc := range report.KindDistribution {
		kind := kc.Kind
		if kind == "" {
			kind = "(empty)"
		}
		fmt.Printf("%-10s %10d %7.1f%%\n", kind, kc.Count, kc.Pct)
	}
	fmt.Println()

	// Category distribution.
	fmt.Println("FLIGHT CATEGORIES (Bulletins by classified category)")
	fmt.Println("─────────────────")
	fmt.Printf("%-10s %10s %8s\n", "Category", "Count", "Pct")
	for _, cc := range report.CategoryDistribution {
		fmt.Printf("%-10s %10d %7.1f%%\n", cc.Category, cc.Count, cc.Pct)
	}
	fmt.Println()

	// Station distribution.
	fmt.Println("TOP STATIONS (Bulletins by reporting station)")
	fmt.Println("────────────")
	fmt.Printf("%-10s %10s\n", "Station", "Count")
	for _, sc := range report.StationDistribution {
		fmt.Printf("%-10s %10d\n", sc.Station, sc.Count)
	}
	fmt.Println()

	// Parser coverage.
	fmt.Println("PARSER COVERAGE (Bulletins by parser type)")
	fmt.Println("───────────────")
	fmt.Printf("%-20s %10s %8s\n", "Parser", "Count", "Pct")
	for _, pc := range report.ParserCoverage {
		fmt.Printf("%-20s %10d %7.1f%%\n", pc.ParserType, pc.Count, pc.Pct)
	}
	fmt.Println()

	// Kind parsing stats.
	fmt.Println("DECODING BY KIND (Coverage per bulletin kind)")
	fmt.Println("────────────────")
	fmt.Printf("%-10s %8s %8s %8s %8s  %s\n", "Kind", "Total", "Decoded", "Unparsed", "Rate", "Top Parsers")
	for _, ks := range report.KindParsing {
		kind := ks.Kind
		if kind == "" {
			kind = "(empty)"
		}
		parsers := strings.Join(ks.TopParsers, ", ")
		fmt.Printf("%-10s %8d %8d %8d %7.1f%%  %s\n", kind, ks.Total, ks.Decoded, ks.Unparsed, ks.DecodeRate, parsers)
	}
	fmt.Println()

	// Content patterns.
	fmt.Println("CONTENT PATTERNS (Tokens found per kind)")
	fmt.Println("────────────────")
	for _, cp := range report.ContentPatterns {
		if len(cp.Keywords) == 0 {
			continue
		}
		kind := cp.Kind
		if kind == "" {
			kind = "(empty)"
		}
		var kwStrs []string
		for _, kw := range cp.Keywords {
			if len(kwStrs) >= 8 {
				break
			}
			kwStrs = append(kwStrs, fmt.Sprintf("%s(%.0f%%)", kw.Keyword, kw.Pct))
		}
		fmt.Printf("%-10s: %s\n", kind, strings.Join(kwStrs, ", "))
	}
	fmt.Println()

	// Field coverage.
	fmt.Println("FIELD COVERAGE (Extraction rate per parser)")
	fmt.Println("──────────────")
	for _, fc := range report.FieldCoverage {
		fmt.Printf("\n%s:\n", fc.ParserType)
		for _, f := range fc.Fields {
			bar := strings.Repeat("█", int(f.Pct/5))
			fmt.Printf("  %-24s %5.1f%% %s\n", f.Field, f.Pct, bar)
		}
	}
	fmt.Println()

	// Template analysis.
	if len(report.TemplateAnalysis) > 0 {
		fmt.Println("TEMPLATE ANALYSIS (Format patterns per kind)")
		fmt.Println("─────────────────")
		for _, kt := range report.TemplateAnalysis {
			kind := kt.Kind
			if kind == "" {
				kind = "(empty)"
			}
			fmt.Printf("\n%s: %d bulletins, %d unique templates\n", kind, kt.TotalBulletins, kt.UniqueTemplates)
			for i, t := range kt.TopTemplates {
				if i >= 5 {
					break
				}
				fmt.Printf("  [%d] %s\n", t.Count, t.Template)
			}
		}
	}
}
