// Command-line entry point for the weather decoder (batch-focused).
//
// Note about input formats
// ------------------------
// The parsers in this repo expect a "bulletin.Bulletin" envelope with at least:
//   - text (the raw METAR/TAF/SIGMET report)
//   - kind (optional; detected from the text when absent)
//
// In the real world, you may have any of these inputs:
//  1. Feed wrapper JSONL:  {"bulletin":{...}, "source":{...}, ...}
//  2. Flat bulletin JSONL: {"station":"KJFK","text":"KJFK 252151Z ...", ...}
//  3. API record JSONL:    aviationweather.gov data API objects (icaoId/rawOb).
//  4. NOAA cycle files:    plain-text report blocks separated by blank lines.
//
// This CLI autodetects all four. Use -all to keep bulletins even if no parser
// matched.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"wx_decoder/internal/bulletin"
	"wx_decoder/internal/extractor"
	_ "wx_decoder/internal/parsers" // register all parsers via init()
	"wx_decoder/internal/registry"
	"wx_decoder/internal/review"
	"wx_decoder/internal/storage"
)

type DecodeOut struct {
	Bulletin *bulletin.Bulletin `json:"bulletin"`
	Results  []any              `json:"results,omitempty"`
}

type Stats struct {
	Lines        int
	Bulletins    int
	ParsedWrap   int
	ParsedFlat   int
	ParsedRecord int
	ParsedCycle  int
	SkippedBad   int
	Emitted      int
	Matched      int
	Archived     int
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "wx_decoder - commands:")
	fmt.Fprintln(w, "  decode  - parse bulletins (JSONL or cycle file) and output JSON")
	fmt.Fprintln(w, "  stats   - print archive statistics")
	fmt.Fprintln(w, "  review  - serve the web UI for reviewing archived bulletins")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  wx_decoder decode -input bulletins.jsonl [-output out.json] [-pretty] [-all] [-stats] [-archive bulletins.db]")
	fmt.Fprintln(w, "  wx_decoder stats -db bulletins.db [-json]")
	fmt.Fprintln(w, "  wx_decoder review -db bulletins.db [-port 8090] [-type metar]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - JSONL input (one JSON object per line) is detected by a leading '{'.")
	fmt.Fprintln(w, "  - Anything else is treated as a NOAA cycle file (blank-line separated reports).")
	fmt.Fprintln(w, "  - With -archive, every bulletin and its decode is stored in the SQLite archive.")
	fmt.Fprintln(w, "")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	cmd := strings.ToLower(os.Args[1])
	switch cmd {
	case "decode":
		runDecode(os.Args[2:])
	case "stats":
		runStats(os.Args[2:])
	case "review":
		runReview(os.Args[2:])
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}

func runDecode(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	inPath := fs.String("input", "", "Input file, JSONL or cycle format (default: stdin)")
	outPath := fs.String("output", "", "Output JSON file (default: stdout)")
	pretty := fs.Bool("pretty", false, "Pretty-print JSON output")
	includeAll := fs.Bool("all", false, "Include bulletins even if no parser matched")
	showStats := fs.Bool("stats", false, "Print basic counters to stderr")
	archivePath := fs.String("archive", "", "Also store bulletins in this SQLite archive")
	_ = fs.Parse(args)

	// Ensure parser priority ordering is stable.
	registry.Default().Sort()

	var r io.Reader = os.Stdin
	if *inPath != "" {
		f, err := os.Open(*inPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open input: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		r = f
	}

	var arch *storage.Archive
	if *archivePath != "" {
		a, err := storage.OpenArchive(*archivePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open archive: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()
		arch = a
	}

	out := make([]DecodeOut, 0, 1024)
	st := &Stats{}
	now := time.Now().UTC()

	br := bufio.NewReaderSize(r, 1024*1024)
	if looksLikeJSONL(br) {
		if err := decodeJSONL(br, arch, st, &out, *includeAll, now); err != nil {
			fmt.Fprintf(os.Stderr, "Input read error: %v\n", err)
			os.Exit(1)
		}
	} else {
		bulls, err := bulletin.SplitCycle(br)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Input read error: %v\n", err)
			os.Exit(1)
		}
		for i := range bulls {
			st.Bulletins++
			st.ParsedCycle++
			processBulletin(&bulls[i], arch, st, &out, *includeAll, now)
		}
	}

	var wout io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create output: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		wout = f
	}

	enc, err := marshalJSON(out, *pretty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "JSON encode error: %v\n", err)
		os.Exit(1)
	}
	_, _ = wout.Write(enc)
	if wout == os.Stdout {
		_, _ = wout.Write([]byte("\n"))
	}

	if *showStats {
		fmt.Fprintf(os.Stderr,
			"stats: lines=%d bulletins=%d parsed(wrap=%d flat=%d record=%d cycle=%d) skipped(bad)=%d emitted=%d matched=%d archived=%d\n",
			st.Lines, st.Bulletins, st.ParsedWrap, st.ParsedFlat, st.ParsedRecord, st.ParsedCycle,
			st.SkippedBad, st.Emitted, st.Matched, st.Archived,
		)
	}
}

// looksLikeJSONL peeks at the start of the stream: JSONL inputs open with an
// object brace, cycle files open with a date stamp or report text.
func looksLikeJSONL(br *bufio.Reader) bool {
	peek, _ := br.Peek(512)
	trimmed := bytes.TrimLeft(peek, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func decodeJSONL(r io.Reader, arch *storage.Archive, st *Stats, out *[]DecodeOut, includeAll bool, now time.Time) error {
	scanner := bufio.NewScanner(r)
	// Feed lines can be long; bump the buffer.
	buf := make([]byte, 0, 1024*1024)
	scanner.Buffer(buf, 32*1024*1024)

	for scanner.Scan() {
		st.Lines++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		b, kind := decodeLine([]byte(line))
		if b == nil {
			st.SkippedBad++
			continue
		}
		switch kind {
		case "wrap":
			st.ParsedWrap++
		case "flat":
			st.ParsedFlat++
		case "record":
			st.ParsedRecord++
		}
		st.Bulletins++
		processBulletin(b, arch, st, out, includeAll, now)
	}
	return scanner.Err()
}

// decodeLine parses one feed line, trying wrapped, flat, and API record forms.
func decodeLine(data []byte) (*bulletin.Bulletin, string) {
	// 1) Feed wrapper
	var w bulletin.FeedWrapper
	if err := json.Unmarshal(data, &w); err == nil && w.Bulletin != nil {
		if b := w.Flatten(); b != nil && strings.TrimSpace(b.Text) != "" {
			return b, "wrap"
		}
	}

	// 2) Flat bulletin (only accept if it actually carries report text)
	var b bulletin.Bulletin
	if err := json.Unmarshal(data, &b); err == nil {
		if strings.TrimSpace(b.Text) != "" {
			return &b, "flat"
		}
	}

	// 3) aviationweather.gov data API record
	var rec bulletin.APIRecord
	if err := json.Unmarshal(data, &rec); err == nil {
		if strings.TrimSpace(rec.RawOb) != "" {
			rb := rec.ToBulletin()
			return &rb, "record"
		}
	}

	return nil, ""
}

func processBulletin(b *bulletin.Bulletin, arch *storage.Archive, st *Stats, out *[]DecodeOut, includeAll bool, now time.Time) {
	results := registry.Default().Dispatch(b)

	// The catch-all parser matches everything; "matched" means a real decoder
	// produced something.
	matched := false
	for _, r := range results {
		if r.Type() != "unparsed" {
			matched = true
			break
		}
	}
	if matched {
		st.Matched++
	}

	if includeAll || matched {
		rany := make([]any, 0, len(results))
		for _, r := range results {
			rany = append(rany, r) // keep concrete types for JSON marshal
		}
		*out = append(*out, DecodeOut{Bulletin: b, Results: rany})
		st.Emitted++
	}

	if arch != nil {
		if err := archiveBulletin(arch, b, results, now); err != nil {
			fmt.Fprintf(os.Stderr, "Archive insert failed: %v\n", err)
			return
		}
		st.Archived++
	}
}

// archiveBulletin stores one bulletin and its decode in the SQLite archive,
// mirroring what the ingest daemon records for each feed message.
func archiveBulletin(arch *storage.Archive, b *bulletin.Bulletin, results []registry.Result, now time.Time) error {
	data := extractor.Extract(b, results)

	parserType := "unparsed"
	if len(results) > 0 {
		parserType = results[0].Type()
	}

	category := ""
	for _, c := range data.Conditions {
		if c.Category != "" {
			category = c.Category
			break
		}
	}

	var missing []string
	if data.Unparsed != nil {
		missing = []string{"decode"}
	} else if b.EffectiveStation() == "" {
		missing = []string{"station"}
	}

	_, err := arch.Insert(storage.InsertParams{
		ReceivedAt:    b.ReceivedAt(now).Format(time.RFC3339),
		Kind:          string(b.EffectiveKind()),
		ParserType:    parserType,
		Station:       b.EffectiveStation(),
		Source:        b.Source,
		FeedID:        int64(b.ID),
		Category:      category,
		RawText:       b.Text,
		DecodedData:   data,
		MissingFields: missing,
	})
	return err
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	dbPath := fs.String("db", "bulletins.db", "Archive database path")
	asJSON := fs.Bool("json", false, "Emit statistics as JSON")
	_ = fs.Parse(args)

	arch, err := storage.OpenArchive(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open archive: %v\n", err)
		os.Exit(1)
	}
	defer arch.Close()

	stats, err := arch.GetStats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read statistics: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc, err := marshalJSON(stats, true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON encode error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(enc))
		return
	}

	fmt.Printf("Total bulletins: %d\n", stats.TotalBulletins)
	fmt.Printf("With missing fields: %d\n", stats.WithMissing)
	fmt.Println("\nBy kind:")
	printCounts(stats.ByKind)
	fmt.Println("\nBy parser type:")
	printCounts(stats.ByParserType)
	if len(stats.TopMissingFields) > 0 {
		fmt.Println("\nTop missing fields:")
		printCounts(stats.TopMissingFields)
	}
}

func runReview(args []string) {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	dbPath := fs.String("db", "bulletins.db", "Archive database path")
	port := fs.Int("port", 8090, "HTTP port for the review UI")
	typeFilter := fs.String("type", "", "Only show bulletins from this parser type")
	_ = fs.Parse(args)

	arch, err := storage.OpenArchive(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open archive: %v\n", err)
		os.Exit(1)
	}
	defer arch.Close()

	if err := review.NewServer(arch, *port, *typeFilter).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Review server error: %v\n", err)
		os.Exit(1)
	}
}

// printCounts prints a count map sorted by count descending, name ascending on
// ties.
func printCounts(counts map[string]int) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		fmt.Printf("  %-16s %d\n", name, counts[name])
	}
}

func marshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
