// Package api provides REST API endpoints for station weather conditions.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"wx_decoder/internal/extractor"
	"wx_decoder/internal/storage"
)

// Server provides REST API access to current conditions, forecasts, active
// advisories, and the bulletin archive.
type Server struct {
	pg          *storage.PostgresDB
	ch          *storage.ClickHouseDB // optional, enriches /stats
	archive     *storage.Archive      // optional, backs /search
	port        int
	authEnabled bool
	apiKeys     map[string]bool // Simple API key auth (when enabled).
}

// Config holds configuration for the conditions API server.
type Config struct {
	Port        int
	AuthEnabled bool
	APIKeys     []string // List of valid API keys.
}

// NewServer creates a conditions API server. The ClickHouse and archive
// handles may be nil; the endpoints backed by them report unavailable.
func NewServer(pg *storage.PostgresDB, ch *storage.ClickHouseDB, archive *storage.Archive, cfg Config) *Server {
	keys := make(map[string]bool)
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys[k] = true
		}
	}

	return &Server{
		pg:          pg,
		ch:          ch,
		archive:     archive,
		port:        cfg.Port,
		authEnabled: cfg.AuthEnabled,
		apiKeys:     keys,
	}
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	r := chi.NewRouter()

	// Standard middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS for browser access.
	r.Use(corsMiddleware)

	// Optional authentication.
	if s.authEnabled {
		r.Use(s.authMiddleware)
	}

	// API routes.
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stations/{icao}", s.handleStation)
		r.Get("/stations/{icao}/category", s.handleStationCategory)
		r.Get("/stations/{icao}/forecast", s.handleStationForecast)
		r.Get("/categories", s.handleCategories)
		r.Get("/sigmets/active", s.handleActiveSigmets)
		r.Get("/search", s.handleSearch)
	})

	// Health and stats live at the root for load balancer checks.
	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)

	addr := ":" + strconv.Itoa(s.port)
	log.Printf("Conditions API starting at http://localhost%s", addr)
	if s.authEnabled {
		log.Printf("Authentication: ENABLED (API key required)")
	} else {
		log.Printf("Authentication: DISABLED (open access)")
	}

	return http.ListenAndServe(addr, r)
}

// Router returns the configured chi router for embedding in other servers.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	// Optional authentication.
	if s.authEnabled {
		r.Use(s.authMiddleware)
	}

	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Get("/stations/{icao}", s.handleStation)
	r.Get("/stations/{icao}/category", s.handleStationCategory)
	r.Get("/stations/{icao}/forecast", s.handleStationForecast)
	r.Get("/categories", s.handleCategories)
	r.Get("/sigmets/active", s.handleActiveSigmets)
	r.Get("/search", s.handleSearch)

	return r
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates API key authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check X-API-Key header first.
		apiKey := r.Header.Get("X-API-Key")

		// Fall back to Authorization: Bearer <key>.
		if apiKey == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		// Fall back to query parameter (for simple testing).
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}

		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ConditionsResponse is the JSON response for station condition queries.
type ConditionsResponse struct {
	Station      string   `json:"station"`
	Category     string   `json:"category,omitempty"`
	PrevCategory string   `json:"prev_category,omitempty"`
	ChangedAt    string   `json:"changed_at,omitempty"`
	ReportType   string   `json:"report_type,omitempty"`
	VisibilityMi *float64 `json:"visibility_mi,omitempty"`
	CeilingFt    *int     `json:"ceiling_ft,omitempty"`
	WindDirDeg   *int     `json:"wind_dir_deg,omitempty"`
	WindSpeedKt  *int     `json:"wind_speed_kt,omitempty"`
	WindGustKt   *int     `json:"wind_gust_kt,omitempty"`
	TemperatureC *float64 `json:"temperature_c,omitempty"`
	DewPointC    *float64 `json:"dew_point_c,omitempty"`
	AltimeterHPa *int     `json:"altimeter_hpa,omitempty"`
	Weather      []string `json:"weather,omitempty"`
	ObservedAt   string   `json:"observed_at,omitempty"`
	RawText      string   `json:"raw_text,omitempty"`
	ReportCount  int      `json:"report_count"`
	UpdatedAt    string   `json:"updated_at"`
}

func conditionsToResponse(c *storage.StationConditions) ConditionsResponse {
	resp := ConditionsResponse{
		Station:      c.Station,
		Category:     c.Category,
		PrevCategory: c.PrevCategory,
		ReportType:   c.ReportType,
		VisibilityMi: c.VisibilityMi,
		CeilingFt:    c.CeilingFt,
		WindDirDeg:   c.WindDirDeg,
		WindSpeedKt:  c.WindSpeedKt,
		WindGustKt:   c.WindGustKt,
		TemperatureC: c.TemperatureC,
		DewPointC:    c.DewPointC,
		AltimeterHPa: c.AltimeterHPa,
		Weather:      c.Weather,
		RawText:      c.RawText,
		ReportCount:  c.ReportCount,
		UpdatedAt:    c.UpdatedAt.UTC().Format(time.RFC3339),
	}

	if c.ChangedAt != nil {
		resp.ChangedAt = c.ChangedAt.UTC().Format(time.RFC3339)
	}
	if c.ObservedAt != nil {
		resp.ObservedAt = c.ObservedAt.UTC().Format(time.RFC3339)
	}

	return resp
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStation(w http.ResponseWriter, r *http.Request) {
	icao, ok := s.requireStation(w, r)
	if !ok {
		return
	}

	c, err := s.pg.GetStationConditions(r.Context(), icao)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "No conditions known for station")
		return
	}

	writeJSON(w, http.StatusOK, conditionsToResponse(c))
}

// CategoryResponse is the JSON response for the category sub-resource.
type CategoryResponse struct {
	Station      string `json:"station"`
	Category     string `json:"category"`
	PrevCategory string `json:"prev_category,omitempty"`
	ChangedAt    string `json:"changed_at,omitempty"`
	ObservedAt   string `json:"observed_at,omitempty"`
}

func (s *Server) handleStationCategory(w http.ResponseWriter, r *http.Request) {
	icao, ok := s.requireStation(w, r)
	if !ok {
		return
	}

	c, err := s.pg.GetStationConditions(r.Context(), icao)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "No conditions known for station")
		return
	}

	resp := CategoryResponse{
		Station:      c.Station,
		Category:     c.Category,
		PrevCategory: c.PrevCategory,
	}
	if resp.Category == "" {
		resp.Category = "Unknown"
	}
	if c.ChangedAt != nil {
		resp.ChangedAt = c.ChangedAt.UTC().Format(time.RFC3339)
	}
	if c.ObservedAt != nil {
		resp.ObservedAt = c.ObservedAt.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, resp)
}

// ForecastResponse is the JSON response for forecast queries: the operative
// period now plus the full timeline.
type ForecastResponse struct {
	Station   string                    `json:"station"`
	Issued    string                    `json:"issued"`
	ValidFrom string                    `json:"valid_from,omitempty"`
	ValidTo   string                    `json:"valid_to,omitempty"`
	Current   *extractor.PeriodUpdate   `json:"current,omitempty"`
	Periods   []*extractor.PeriodUpdate `json:"periods"`
	RawText   string                    `json:"raw_text,omitempty"`
	UpdatedAt string                    `json:"updated_at"`
}

func (s *Server) handleStationForecast(w http.ResponseWriter, r *http.Request) {
	icao, ok := s.requireStation(w, r)
	if !ok {
		return
	}

	f, err := s.pg.GetStationForecast(r.Context(), icao)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if f == nil {
		writeError(w, http.StatusNotFound, "No forecast known for station")
		return
	}

	var periods []*extractor.PeriodUpdate
	if len(f.Periods) > 0 {
		_ = json.Unmarshal(f.Periods, &periods)
	}

	resp := ForecastResponse{
		Station:   f.Station,
		Issued:    f.Issued.UTC().Format(time.RFC3339),
		Periods:   periods,
		RawText:   f.RawText,
		UpdatedAt: f.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if f.ValidFrom != nil {
		resp.ValidFrom = f.ValidFrom.UTC().Format(time.RFC3339)
	}
	if f.ValidTo != nil {
		resp.ValidTo = f.ValidTo.UTC().Format(time.RFC3339)
	}
	if current, ok := extractor.CurrentPeriod(periods, time.Now().UTC()); ok {
		resp.Current = current
	}

	writeJSON(w, http.StatusOK, resp)
}

// CategoriesResponse summarizes the fleet-wide category distribution.
type CategoriesResponse struct {
	Counts   map[string]int       `json:"counts"`
	Stations []ConditionsResponse `json:"stations,omitempty"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if s.pg == nil {
		writeError(w, http.StatusServiceUnavailable, "State store not configured")
		return
	}

	counts, err := s.pg.CountByCategory(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := CategoriesResponse{Counts: counts}

	// An optional ?category= filter lists the stations currently in it.
	if category := r.URL.Query().Get("category"); category != "" {
		limit := queryInt(r, "limit", 100, 1000)
		stations, err := s.pg.ListStationsByCategory(r.Context(), category, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for i := range stations {
			resp.Stations = append(resp.Stations, conditionsToResponse(&stations[i]))
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// AdvisoryResponse is the JSON response for active advisory queries.
type AdvisoryResponse struct {
	AdvisoryID       string          `json:"advisory_id"`
	FIR              string          `json:"fir"`
	Phenomenon       string          `json:"phenomenon,omitempty"`
	Altitude         string          `json:"altitude,omitempty"`
	Movement         string          `json:"movement,omitempty"`
	ValidFrom        string          `json:"valid_from,omitempty"`
	ValidTo          string          `json:"valid_to,omitempty"`
	Boundary         json.RawMessage `json:"boundary,omitempty"`
	RawText          string          `json:"raw_text,omitempty"`
	ObservationCount int             `json:"observation_count"`
}

func (s *Server) handleActiveSigmets(w http.ResponseWriter, r *http.Request) {
	if s.pg == nil {
		writeError(w, http.StatusServiceUnavailable, "State store not configured")
		return
	}

	advisories, err := s.pg.ListActiveAdvisories(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	results := make([]AdvisoryResponse, 0, len(advisories))
	for _, a := range advisories {
		resp := AdvisoryResponse{
			AdvisoryID:       a.AdvisoryID,
			FIR:              a.FIR,
			Phenomenon:       a.Phenomenon,
			Altitude:         a.Altitude,
			Movement:         a.Movement,
			Boundary:         a.Boundary,
			RawText:          a.RawText,
			ObservationCount: a.ObservationCount,
		}
		if a.ValidFrom != nil {
			resp.ValidFrom = a.ValidFrom.UTC().Format(time.RFC3339)
		}
		if a.ValidTo != nil {
			resp.ValidTo = a.ValidTo.UTC().Format(time.RFC3339)
		}
		results = append(results, resp)
	}

	writeJSON(w, http.StatusOK, results)
}

// SearchResult is one archived bulletin in a search response.
type SearchResult struct {
	ID         int64  `json:"id"`
	ReceivedAt string `json:"received_at"`
	Kind       string `json:"kind"`
	ParserType string `json:"parser_type"`
	Station    string `json:"station,omitempty"`
	Category   string `json:"category,omitempty"`
	RawText    string `json:"raw_text"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "Archive not configured")
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	params := storage.QueryParams{
		FullText:  q,
		Kind:      r.URL.Query().Get("kind"),
		Station:   strings.ToUpper(r.URL.Query().Get("station")),
		Category:  r.URL.Query().Get("category"),
		Limit:     queryInt(r, "limit", 50, 500),
		OrderBy:   "received_at",
		OrderDesc: true,
	}

	rows, err := s.archive.Query(params)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	results := make([]SearchResult, 0, len(rows))
	for _, b := range rows {
		results = append(results, SearchResult{
			ID:         b.ID,
			ReceivedAt: b.ReceivedAt.UTC().Format(time.RFC3339),
			Kind:       b.Kind,
			ParserType: b.ParserType,
			Station:    b.Station,
			Category:   b.Category,
			RawText:    b.RawText,
		})
	}

	writeJSON(w, http.StatusOK, results)
}

// StatsResponse aggregates archive, state, and analytic store statistics.
type StatsResponse struct {
	Archive        *storage.ArchiveStats `json:"archive,omitempty"`
	Categories     map[string]int        `json:"categories,omitempty"`
	Transitions24h *uint64               `json:"transitions_24h,omitempty"`
	Worsenings24h  *uint64               `json:"worsenings_24h,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{}

	if s.archive != nil {
		stats, err := s.archive.GetStats()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Archive = stats
	}

	if s.pg != nil {
		counts, err := s.pg.CountByCategory(r.Context())
		if err == nil {
			resp.Categories = counts
		}
	}

	if s.ch != nil {
		since := time.Now().UTC().Add(-24 * time.Hour)
		if n, err := s.ch.CountTransitionsSince(r.Context(), since, false); err == nil {
			resp.Transitions24h = &n
		}
		if n, err := s.ch.CountTransitionsSince(r.Context(), since, true); err == nil {
			resp.Worsenings24h = &n
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// requireStation validates the {icao} URL parameter and the state store.
func (s *Server) requireStation(w http.ResponseWriter, r *http.Request) (string, bool) {
	if s.pg == nil {
		writeError(w, http.StatusServiceUnavailable, "State store not configured")
		return "", false
	}

	icao := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "icao")))
	if icao == "" {
		writeError(w, http.StatusBadRequest, "icao is required")
		return "", false
	}
	if len(icao) < 3 || len(icao) > 4 {
		writeError(w, http.StatusBadRequest, "icao must be a 3-4 character station ident")
		return "", false
	}
	return icao, true
}

// queryInt parses an integer query parameter with a default and a cap.
func queryInt(r *http.Request, name string, def, max int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// Helper functions.

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
