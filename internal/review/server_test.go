package review

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"wx_decoder/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.Archive) {
	t.Helper()
	arch, err := storage.OpenArchive(":memory:")
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { _ = arch.Close() })
	return NewServer(arch, 0, ""), arch
}

func seedBulletins(t *testing.T, arch *storage.Archive) (int64, int64) {
	t.Helper()
	id1, err := arch.Insert(storage.InsertParams{
		ReceivedAt:  "2025-09-09T20:00:00Z",
		Kind:        "metar",
		ParserType:  "observation",
		Station:     "KPIT",
		Source:      "awc",
		Category:    "IFR",
		RawText:     "METAR KPIT 091955Z 22010KT 2SM BR OVC008 18/16 A2992",
		DecodedData: map[string]interface{}{"conditions": []map[string]interface{}{{"station": "KPIT"}}},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	id2, err := arch.Insert(storage.InsertParams{
		ReceivedAt:    "2025-09-09T20:05:00Z",
		Kind:          "sigmet",
		ParserType:    "unparsed",
		Source:        "awc",
		RawText:       "WSUS31 KKCI 091955 SIGE CONVECTIVE SIGMET...",
		DecodedData:   map[string]interface{}{},
		MissingFields: []string{"decode"},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return id1, id2
}

func TestHandleBulletinsFilters(t *testing.T) {
	s, arch := newTestServer(t)
	id1, _ := seedBulletins(t, arch)
	if err := arch.SetGolden(id1, true); err != nil {
		t.Fatalf("set golden: %v", err)
	}

	get := func(query string) []APIBulletin {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/api/bulletins"+query, nil)
		w := httptest.NewRecorder()
		s.handleBulletins(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s: status %d: %s", query, w.Code, w.Body.String())
		}
		var out []APIBulletin
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		return out
	}

	if got := get(""); len(got) != 2 {
		t.Errorf("unfiltered list returned %d bulletins, want 2", len(got))
	}
	if got := get("?kind=metar"); len(got) != 1 || got[0].Station != "KPIT" {
		t.Errorf("kind filter returned %+v, want one KPIT row", got)
	}
	if got := get("?golden=true"); len(got) != 1 || !got[0].IsGolden {
		t.Errorf("golden filter returned %+v, want one golden row", got)
	}
	if got := get("?has_missing=true"); len(got) != 1 || got[0].ParserType != "unparsed" {
		t.Errorf("has_missing filter returned %+v, want the unparsed row", got)
	}
}

func TestBulletinActions(t *testing.T) {
	s, arch := newTestServer(t)
	id1, _ := seedBulletins(t, arch)

	post := func(path, body string) {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		w := httptest.NewRecorder()
		s.handleBulletin(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("POST %s: status %d: %s", path, w.Code, w.Body.String())
		}
	}

	base := "/api/bulletins/" + strconv.FormatInt(id1, 10)
	post(base+"/golden", `{"golden":true}`)
	post(base+"/annotation", `{"annotation":"ceiling should be 800ft"}`)
	post(base+"/expected", `{"expected":{"category":"IFR"}}`)

	req := httptest.NewRequest(http.MethodGet, base, nil)
	w := httptest.NewRecorder()
	s.handleBulletin(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET: status %d", w.Code)
	}
	var b APIBulletin
	if err := json.Unmarshal(w.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !b.IsGolden {
		t.Error("bulletin not marked golden")
	}
	if b.Annotation != "ceiling should be 800ft" {
		t.Errorf("annotation = %q", b.Annotation)
	}
	if b.Expected["category"] != "IFR" {
		t.Errorf("expected = %v", b.Expected)
	}
}

func TestExportGo(t *testing.T) {
	s, arch := newTestServer(t)
	id1, _ := seedBulletins(t, arch)
	if err := arch.SetGolden(id1, true); err != nil {
		t.Fatalf("set golden: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/export/go", nil)
	w := httptest.NewRecorder()
	s.handleExportGo(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}

	code := w.Body.String()
	for _, want := range []string{
		"package parsers_test",
		"wx_decoder/internal/bulletin",
		"func TestGolden_observation(t *testing.T)",
		"METAR KPIT 091955Z",
	} {
		if !strings.Contains(code, want) {
			t.Errorf("generated code missing %q", want)
		}
	}
}
