package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"wx_decoder/internal/extractor"
	"wx_decoder/internal/storage"
)

func TestHealthEndpoint(t *testing.T) {
	server := NewServer(nil, nil, nil, Config{Port: 8081})
	router := server.Router()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestAuthMiddleware(t *testing.T) {
	server := NewServer(nil, nil, nil, Config{
		Port:        8081,
		AuthEnabled: true,
		APIKeys:     []string{"test-key-123", "another-key"},
	})
	router := server.Router()

	tests := []struct {
		name       string
		apiKey     string
		keyHeader  string
		wantStatus int
	}{
		{
			name:       "no key",
			apiKey:     "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid key",
			apiKey:     "wrong-key",
			keyHeader:  "X-API-Key",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "valid key via X-API-Key",
			apiKey:     "test-key-123",
			keyHeader:  "X-API-Key",
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid key via Bearer",
			apiKey:     "another-key",
			keyHeader:  "Authorization",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tt.apiKey != "" {
				if tt.keyHeader == "Authorization" {
					req.Header.Set("Authorization", "Bearer "+tt.apiKey)
				} else {
					req.Header.Set(tt.keyHeader, tt.apiKey)
				}
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestAuthMiddlewareQueryParam(t *testing.T) {
	server := NewServer(nil, nil, nil, Config{
		Port:        8081,
		AuthEnabled: true,
		APIKeys:     []string{"query-key"},
	})
	router := server.Router()

	req := httptest.NewRequest(http.MethodGet, "/health?api_key=query-key", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestStationEndpointsWithoutStateStore(t *testing.T) {
	server := NewServer(nil, nil, nil, Config{Port: 8081})
	router := server.Router()

	paths := []string{
		"/stations/KJFK",
		"/stations/KJFK/category",
		"/stations/KJFK/forecast",
		"/categories",
		"/sigmets/active",
	}

	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected status 503 without state store, got %d", path, rec.Code)
		}
	}
}

func TestSearchValidation(t *testing.T) {
	archive, err := storage.OpenArchive(":memory:")
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer archive.Close()

	server := NewServer(nil, nil, archive, Config{Port: 8081})
	router := server.Router()

	// Missing q is a 400.
	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 without q, got %d", rec.Code)
	}

	// No archive configured is a 503.
	noArchive := NewServer(nil, nil, nil, Config{Port: 8081})
	req = httptest.NewRequest(http.MethodGet, "/search?q=fog", nil)
	rec = httptest.NewRecorder()
	noArchive.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503 without archive, got %d", rec.Code)
	}
}

func TestSearchOverArchive(t *testing.T) {
	archive, err := storage.OpenArchive(":memory:")
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer archive.Close()

	inserts := []storage.InsertParams{
		{
			ReceivedAt: "2025-09-25T12:51:00Z",
			Kind:       "metar",
			ParserType: "observation",
			Station:    "KBOS",
			Category:   "LIFR",
			RawText:    "KBOS 251254Z 04012KT 1/2SM FG OVC002 18/17 A2992",
		},
		{
			ReceivedAt: "2025-09-25T12:52:00Z",
			Kind:       "metar",
			ParserType: "observation",
			Station:    "KJFK",
			Category:   "VFR",
			RawText:    "KJFK 251251Z 31008KT 10SM FEW250 26/14 A3012",
		},
	}
	for _, p := range inserts {
		if _, err := archive.Insert(p); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	server := NewServer(nil, nil, archive, Config{Port: 8081})
	router := server.Router()

	req := httptest.NewRequest(http.MethodGet, "/search?q=FG", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var results []SearchResult
	if err := json.NewDecoder(rec.Body).Decode(&results); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Station != "KBOS" {
		t.Errorf("expected station KBOS, got %q", results[0].Station)
	}
	if results[0].Category != "LIFR" {
		t.Errorf("expected category LIFR, got %q", results[0].Category)
	}
}

func TestStatsWithArchiveOnly(t *testing.T) {
	archive, err := storage.OpenArchive(":memory:")
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer archive.Close()

	if _, err := archive.Insert(storage.InsertParams{
		ReceivedAt: "2025-09-25T12:51:00Z",
		Kind:       "taf",
		ParserType: "forecast",
		Station:    "KJFK",
		RawText:    "TAF KJFK 251130Z 2512/2618 31010KT P6SM SCT050",
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	server := NewServer(nil, nil, archive, Config{Port: 8081})
	router := server.Router()

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp StatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Archive == nil || resp.Archive.TotalBulletins != 1 {
		t.Errorf("expected archive stats with 1 bulletin, got %+v", resp.Archive)
	}
	if resp.Archive.ByKind["taf"] != 1 {
		t.Errorf("expected 1 taf bulletin, got %d", resp.Archive.ByKind["taf"])
	}
}

func TestConditionsResponseFormat(t *testing.T) {
	observed := time.Date(2025, 9, 25, 12, 54, 0, 0, time.UTC)
	changed := observed.Add(-time.Hour)
	vis := 0.5
	ceiling := 200
	windDir := 40
	windSpeed := 12

	c := &storage.StationConditions{
		Station:      "KBOS",
		Category:     "LIFR",
		PrevCategory: "IFR",
		ChangedAt:    &changed,
		ReportType:   "METAR",
		VisibilityMi: &vis,
		CeilingFt:    &ceiling,
		WindDirDeg:   &windDir,
		WindSpeedKt:  &windSpeed,
		Weather:      []string{"FG"},
		ObservedAt:   &observed,
		RawText:      "KBOS 251254Z 04012KT 1/2SM FG OVC002 18/17 A2992",
		ReportCount:  7,
		UpdatedAt:    observed,
	}

	resp := conditionsToResponse(c)

	if resp.Station != "KBOS" {
		t.Errorf("expected Station 'KBOS', got %q", resp.Station)
	}
	if resp.Category != "LIFR" {
		t.Errorf("expected Category 'LIFR', got %q", resp.Category)
	}
	if resp.PrevCategory != "IFR" {
		t.Errorf("expected PrevCategory 'IFR', got %q", resp.PrevCategory)
	}
	if resp.ChangedAt != changed.Format(time.RFC3339) {
		t.Errorf("expected ChangedAt %q, got %q", changed.Format(time.RFC3339), resp.ChangedAt)
	}
	if resp.VisibilityMi == nil || *resp.VisibilityMi != 0.5 {
		t.Errorf("expected VisibilityMi 0.5, got %v", resp.VisibilityMi)
	}
	if resp.CeilingFt == nil || *resp.CeilingFt != 200 {
		t.Errorf("expected CeilingFt 200, got %v", resp.CeilingFt)
	}
	if len(resp.Weather) != 1 || resp.Weather[0] != "FG" {
		t.Errorf("expected Weather [FG], got %v", resp.Weather)
	}
	if resp.ReportCount != 7 {
		t.Errorf("expected ReportCount 7, got %d", resp.ReportCount)
	}
}

func TestCORSHeaders(t *testing.T) {
	r := chi.NewRouter()
	r.Use(corsMiddleware)
	r.Get("/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Test OPTIONS request.
	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200 for OPTIONS, got %d", rec.Code)
	}

	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS Allow-Origin header")
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("expected CORS Allow-Methods header")
	}
}

func TestCurrentPeriodSelection(t *testing.T) {
	issued := time.Date(2025, 9, 25, 11, 30, 0, 0, time.UTC)
	periods := []*extractor.PeriodUpdate{
		{
			Station:  "KJFK",
			Issued:   issued,
			Marker:   "BASE",
			Category: "VFR",
			From:     time.Date(2025, 9, 25, 12, 0, 0, 0, time.UTC),
			To:       time.Date(2025, 9, 26, 0, 0, 0, 0, time.UTC),
		},
		{
			Station:  "KJFK",
			Issued:   issued,
			Marker:   "FM",
			Category: "IFR",
			From:     time.Date(2025, 9, 26, 0, 0, 0, 0, time.UTC),
			To:       time.Date(2025, 9, 26, 18, 0, 0, 0, time.UTC),
		},
	}

	// Inside the first period.
	p, ok := extractor.CurrentPeriod(periods, time.Date(2025, 9, 25, 15, 0, 0, 0, time.UTC))
	if !ok || p.Category != "VFR" {
		t.Errorf("expected VFR period, got %+v", p)
	}

	// Inside the FM period.
	p, ok = extractor.CurrentPeriod(periods, time.Date(2025, 9, 26, 6, 0, 0, 0, time.UTC))
	if !ok || p.Category != "IFR" {
		t.Errorf("expected IFR period, got %+v", p)
	}

	// After the timeline lapses the last period still answers.
	p, ok = extractor.CurrentPeriod(periods, time.Date(2025, 9, 27, 0, 0, 0, 0, time.UTC))
	if !ok || p.Marker != "FM" {
		t.Errorf("expected trailing FM period, got %+v", p)
	}

	if _, ok := extractor.CurrentPeriod(nil, time.Now()); ok {
		t.Error("expected no period from an empty timeline")
	}
}
