// Package review provides a web UI for reviewing and annotating archived
// bulletins.
package review

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"

	"wx_decoder/internal/storage"
)

//go:embed static/*
var staticFiles embed.FS

// Server provides the review web UI.
type Server struct {
	db     *storage.Archive
	port   int
	filter string // Optional parser type filter
}

// NewServer creates a new review server.
func NewServer(db *storage.Archive, port int, filter string) *Server {
	return &Server{
		db:     db,
		port:   port,
		filter: filter,
	}
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	mux := http.NewServeMux()

	// API routes.
	mux.HandleFunc("/api/bulletins", s.handleBulletins)
	mux.HandleFunc("/api/bulletins/", s.handleBulletin) // /api/bulletins/{id}
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/types", s.handleTypes)
	mux.HandleFunc("/api/kinds", s.handleKinds)
	mux.HandleFunc("/api/export/json", s.handleExportJSON)
	mux.HandleFunc("/api/export/go", s.handleExportGo)

	// Static files.
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("embed static files: %w", err)
	}
	mux.Handle("/", http.FileServer(http.FS(staticFS)))

	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("Review UI starting at http://localhost%s", addr)
	if s.filter != "" {
		log.Printf("Filtering to parser type: %s", s.filter)
	}

	return http.ListenAndServe(addr, mux)
}

// APIBulletin is the JSON representation of an archived bulletin.
type APIBulletin struct {
	ID            int64                  `json:"id"`
	ReceivedAt    string                 `json:"received_at"`
	Kind          string                 `json:"kind"`
	ParserType    string                 `json:"parser_type"`
	Station       string                 `json:"station"`
	Source        string                 `json:"source"`
	Category      string                 `json:"category"`
	RawText       string                 `json:"raw_text"`
	Decoded       map[string]interface{} `json:"decoded"`
	MissingFields []string               `json:"missing_fields"`
	IsGolden      bool                   `json:"is_golden"`
	Annotation    string                 `json:"annotation"`
	Expected      map[string]interface{} `json:"expected,omitempty"`
}

func bulletinToAPI(b *storage.ArchivedBulletin) APIBulletin {
	api := APIBulletin{
		ID:         b.ID,
		ReceivedAt: b.ReceivedAt.Format("2006-01-02 15:04:05"),
		Kind:       b.Kind,
		ParserType: b.ParserType,
		Station:    b.Station,
		Source:     b.Source,
		Category:   b.Category,
		RawText:    b.RawText,
		IsGolden:   b.IsGolden,
		Annotation: b.Annotation,
	}

	// Parse missing fields.
	if b.MissingFields != "" {
		api.MissingFields = strings.Split(b.MissingFields, ",")
	}

	// Parse JSON fields.
	if b.DecodedJSON != "" {
		_ = json.Unmarshal([]byte(b.DecodedJSON), &api.Decoded)
	}
	if b.ExpectedJSON != "" {
		_ = json.Unmarshal([]byte(b.ExpectedJSON), &api.Expected)
	}

	return api
}

func (s *Server) handleBulletins(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse query parameters.
	q := r.URL.Query()
	params := storage.QueryParams{
		Kind:         q.Get("kind"),
		ParserType:   q.Get("type"),
		Station:      q.Get("station"),
		Category:     q.Get("category"),
		MissingField: q.Get("missing"),
		HasMissing:   q.Get("has_missing") == "true",
		GoldenOnly:   q.Get("golden") == "true",
		FullText:     q.Get("search"),
		OrderBy:      q.Get("order"),
		OrderDesc:    q.Get("desc") != "false",
	}

	// Apply server-level filter.
	if s.filter != "" && params.ParserType == "" {
		params.ParserType = s.filter
	}

	// Pagination.
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		params.Limit = limit
	} else {
		params.Limit = 50
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil {
		params.Offset = offset
	}

	bulletins, err := s.db.Query(params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Convert to API format.
	result := make([]APIBulletin, 0, len(bulletins))
	for i := range bulletins {
		result = append(result, bulletinToAPI(&bulletins[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (s *Server) handleBulletin(w http.ResponseWriter, r *http.Request) {
	// Extract ID from path: /api/bulletins/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/bulletins/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Missing bulletin ID", http.StatusBadRequest)
		return
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		http.Error(w, "Invalid bulletin ID", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getBulletin(w, id)
	case http.MethodPost, http.MethodPatch:
		// Check for sub-action.
		if len(parts) > 1 {
			switch parts[1] {
			case "golden":
				s.setGolden(w, r, id)
			case "annotation":
				s.setAnnotation(w, r, id)
			case "expected":
				s.setExpected(w, r, id)
			default:
				http.Error(w, "Unknown action", http.StatusBadRequest)
			}
		} else {
			http.Error(w, "No action specified", http.StatusBadRequest)
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) getBulletin(w http.ResponseWriter, id int64) {
	b, err := s.db.GetByID(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if b == nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(bulletinToAPI(b))
}

func (s *Server) setGolden(w http.ResponseWriter, r *http.Request, id int64) {
	var req struct {
		Golden bool `json:"golden"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.db.SetGolden(id, req.Golden); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (s *Server) setAnnotation(w http.ResponseWriter, r *http.Request, id int64) {
	var req struct {
		Annotation string `json:"annotation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.db.SetAnnotation(id, req.Annotation); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (s *Server) setExpected(w http.ResponseWriter, r *http.Request, id int64) {
	var req struct {
		Expected map[string]interface{} `json:"expected"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	expectedJSON, err := json.Marshal(req.Expected)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.db.SetExpectedJSON(id, string(expectedJSON)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := s.db.GetStats()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	types, err := s.db.Distinct("parser_type")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(types)
}

func (s *Server) handleKinds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	kinds, err := s.db.Distinct("kind")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(kinds)
}

// GoldenExport represents a golden bulletin for export.
type GoldenExport struct {
	ID         int64                  `json:"id"`
	RawText    string                 `json:"raw_text"`
	Kind       string                 `json:"kind"`
	Station    string                 `json:"station"`
	ParserType string                 `json:"parser_type"`
	Expected   map[string]interface{} `json:"expected"`
	Annotation string                 `json:"annotation,omitempty"`
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	bulletins, err := s.db.GetGoldenBulletins()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var exports []GoldenExport
	for _, b := range bulletins {
		export := GoldenExport{
			ID:         b.ID,
			RawText:    b.RawText,
			Kind:       b.Kind,
			Station:    b.Station,
			ParserType: b.ParserType,
			Annotation: b.Annotation,
		}

		// Use expected_json if set, otherwise use decoded_json.
		if b.ExpectedJSON != "" {
			_ = json.Unmarshal([]byte(b.ExpectedJSON), &export.Expected)
		} else if b.DecodedJSON != "" {
			_ = json.Unmarshal([]byte(b.DecodedJSON), &export.Expected)
		}

		exports = append(exports, export)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=golden_bulletins.json")
	_ = json.NewEncoder(w).Encode(exports)
}

func (s *Server) handleExportGo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	bulletins, err := s.db.GetGoldenBulletins()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Group by parser type.
	byType := make(map[string][]storage.ArchivedBulletin)
	for _, b := range bulletins {
		byType[b.ParserType] = append(byType[b.ParserType], b)
	}

	// Generate Go test code.
	var code strings.Builder
	code.WriteString("// Code generated from golden bulletins. DO NOT EDIT.\n\n")
	code.WriteString("package parsers_test\n\n")
	code.WriteString("import (\n")
	code.WriteString("\t\"testing\"\n\n")
	code.WriteString("\t\"wx_decoder/internal/bulletin\"\n")
	code.WriteString("\t\"wx_decoder/internal/registry\"\n")
	code.WriteString(")\n\n")

	for parserType, bulls := range byType {
		code.WriteString(fmt.Sprintf("func TestGolden_%s(t *testing.T) {\n", strings.ReplaceAll(parserType, "_", "")))
		code.WriteString("\treg := registry.Default()\n")
		code.WriteString("\treg.Sort()\n\n")
		code.WriteString("\tcases := []struct {\n")
		code.WriteString("\t\tname     string\n")
		code.WriteString("\t\traw      string\n")
		code.WriteString("\t\tkind     string\n")
		code.WriteString("\t\twantType string\n")
		code.WriteString("\t}{\n")

		for _, b := range bulls {
			name := fmt.Sprintf("bulletin_%d", b.ID)
			if b.Station != "" {
				name = fmt.Sprintf("%s_%d", b.Station, b.ID)
			}
			// Escape backticks in raw text.
			rawText := strings.ReplaceAll(b.RawText, "`", "` + \"`\" + `")
			code.WriteString(fmt.Sprintf("\t\t{%q, `%s`, %q, %q},\n", name, rawText, b.Kind, parserType))
		}

		code.WriteString("\t}\n\n")
		code.WriteString("\tfor _, tc := range cases {\n")
		code.WriteString("\t\tt.Run(tc.name, func(t *testing.T) {\n")
		code.WriteString("\t\t\tb := &bulletin.Bulletin{Kind: bulletin.Kind(tc.kind), Text: tc.raw}\n")
		code.WriteString("\t\t\tresults := reg.Dispatch(b)\n")
		code.WriteString("\t\t\tif len(results) == 0 {\n")
		code.WriteString("\t\t\t\tt.Errorf(\"expected parser match, got none\")\n")
		code.WriteString("\t\t\t\treturn\n")
		code.WriteString("\t\t\t}\n")
		code.WriteString("\t\t\tif results[0].Type() != tc.wantType {\n")
		code.WriteString("\t\t\t\tt.Errorf(\"got type %q, want %q\", results[0].Type(), tc.wantType)\n")
		code.WriteString("\t\t\t}\n")
		code.WriteString("\t\t})\n")
		code.WriteString("\t}\n")
		code.WriteString("}\n\n")
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=golden_test.go")
	_, _ = w.Write([]byte(code.String()))
}
