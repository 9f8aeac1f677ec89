package storage

import (
	"context"
	"os"
	"testing"
	"time"
)

// setupTestPostgres creates a test database connection.
// Returns nil if no PostgreSQL connection is available.
func setupTestPostgres(t *testing.T) *PostgresDB {
	t.Helper()

	// Check for environment variable or use defaults.
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		user = "wx"
	}
	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		password = "wx"
	}
	database := os.Getenv("POSTGRES_DB")
	if database == "" {
		database = "wx_state"
	}

	ctx := context.Background()
	pg, err := OpenPostgres(ctx, PostgresConfig{
		Host:     host,
		Port:     5432,
		User:     user,
		Password: password,
		Database: database,
	})
	if err != nil {
		return nil
	}

	// Ensure schema exists.
	if err := pg.CreateSchema(ctx); err != nil {
		pg.Close()
		return nil
	}

	return pg
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestUpsertStationConditions(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer pg.Close()

	ctx := context.Background()
	now := time.Date(2026, 1, 27, 19, 55, 0, 0, time.UTC)

	// Clean up test data before and after the test.
	cleanup := func() {
		_, _ = pg.pool.Exec(ctx, "DELETE FROM station_conditions WHERE station = 'ZZPT'")
	}
	cleanup()
	defer cleanup()

	// First upsert - a VFR report.
	err := pg.UpsertStationConditions(ctx, StationConditions{
		Station:      "ZZPT",
		Category:     "VFR",
		ReportType:   "METAR",
		VisibilityMi: floatPtr(10),
		RawText:      "ZZPT 271855Z 10SM SCT250",
		ReportCount:  1,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	// Second upsert - conditions dropped, the row replaces outright.
	changed := now.Add(time.Hour)
	err = pg.UpsertStationConditions(ctx, StationConditions{
		Station:      "ZZPT",
		Category:     "LIFR",
		PrevCategory: "VFR",
		ChangedAt:    &changed,
		ReportType:   "SPECI",
		VisibilityMi: floatPtr(0.25),
		CeilingFt:    intPtr(200),
		Weather:      []string{"FG"},
		RawText:      "ZZPT 271955Z 1/4SM FG OVC002",
		ReportCount:  2,
		UpdatedAt:    changed,
	})
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	result, err := pg.GetStationConditions(ctx, "ZZPT")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if result == nil {
		t.Fatal("expected result, got nil")
	}

	if result.Category != "LIFR" {
		t.Errorf("category = %q, want LIFR", result.Category)
	}
	if result.PrevCategory != "VFR" {
		t.Errorf("prev_category = %q, want VFR", result.PrevCategory)
	}
	if result.VisibilityMi == nil || *result.VisibilityMi != 0.25 {
		t.Errorf("visibility_mi = %v, want 0.25", result.VisibilityMi)
	}
	if result.CeilingFt == nil || *result.CeilingFt != 200 {
		t.Errorf("ceiling_ft = %v, want 200", result.CeilingFt)
	}
	if len(result.Weather) != 1 || result.Weather[0] != "FG" {
		t.Errorf("weather = %v, want [FG]", result.Weather)
	}
	if result.ReportCount != 2 {
		t.Errorf("report_count = %d, want 2", result.ReportCount)
	}
}

func TestUpsertAdvisory(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer pg.Close()

	ctx := context.Background()
	now := time.Date(2026, 1, 27, 3, 30, 0, 0, time.UTC)
	validTo := now.Add(4 * time.Hour)

	cleanup := func() {
		_, _ = pg.pool.Exec(ctx, "DELETE FROM sigmet_advisories WHERE fir = 'ZZZZ TESTFIR'")
	}
	cleanup()
	defer cleanup()

	id1, err := pg.UpsertAdvisory(ctx, Advisory{
		AdvisoryID:       "7",
		FIR:              "ZZZZ TESTFIR",
		Phenomenon:       "SEV TURB FCST",
		ValidFrom:        &now,
		ValidTo:          &validTo,
		ObservationCount: 1,
		FirstSeen:        now,
		LastSeen:         now,
	})
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	// A repeat sighting keeps the same row.
	id2, err := pg.UpsertAdvisory(ctx, Advisory{
		AdvisoryID:       "7",
		FIR:              "ZZZZ TESTFIR",
		ObservationCount: 2,
		FirstSeen:        now,
		LastSeen:         now.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if id1 != id2 {
		t.Errorf("repeat upsert returned id %d, want %d", id2, id1)
	}

	result, err := pg.GetAdvisory(ctx, "7", "ZZZZ TESTFIR")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if result == nil {
		t.Fatal("expected result, got nil")
	}

	// The empty repeat must not wipe the stored phenomenon.
	if result.Phenomenon != "SEV TURB FCST" {
		t.Errorf("phenomenon = %q, want SEV TURB FCST", result.Phenomenon)
	}
	if result.ObservationCount != 2 {
		t.Errorf("observation_count = %d, want 2", result.ObservationCount)
	}

	active, err := pg.ListActiveAdvisories(ctx, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("list active failed: %v", err)
	}
	found := false
	for _, a := range active {
		if a.FIR == "ZZZZ TESTFIR" {
			found = true
		}
	}
	if !found {
		t.Error("expected advisory in active window")
	}

	active, err = pg.ListActiveAdvisories(ctx, validTo.Add(time.Hour))
	if err != nil {
		t.Fatalf("list active failed: %v", err)
	}
	for _, a := range active {
		if a.FIR == "ZZZZ TESTFIR" {
			t.Error("lapsed advisory still listed as active")
		}
	}
}

func TestGetStationConditions_NotFound(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer pg.Close()

	ctx := context.Background()

	result, err := pg.GetStationConditions(ctx, "XXXX")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil for non-existent station, got %+v", result)
	}

	forecast, err := pg.GetStationForecast(ctx, "XXXX")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if forecast != nil {
		t.Errorf("expected nil for non-existent forecast, got %+v", forecast)
	}
}

func TestUpsertStation(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer pg.Close()

	ctx := context.Background()
	now := time.Date(2026, 1, 27, 19, 0, 0, 0, time.UTC)

	cleanup := func() {
		_, _ = pg.pool.Exec(ctx, "DELETE FROM stations WHERE icao = 'ZZPT'")
	}
	cleanup()
	defer cleanup()

	err := pg.UpsertStation(ctx, Station{
		ICAO:         "ZZPT",
		FirstSeen:    now,
		LastSeen:     now,
		ReportCount:  1,
		LastCategory: "VFR",
	})
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	// An update without a category keeps the stored one.
	err = pg.UpsertStation(ctx, Station{
		ICAO:        "ZZPT",
		FirstSeen:   now,
		LastSeen:    now.Add(time.Hour),
		ReportCount: 2,
	})
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	result, err := pg.GetStation(ctx, "ZZPT")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if result == nil {
		t.Fatal("expected result, got nil")
	}
	if result.LastCategory != "VFR" {
		t.Errorf("last_category = %q, want VFR", result.LastCategory)
	}
	if result.ReportCount != 2 {
		t.Errorf("report_count = %d, want 2", result.ReportCount)
	}
}
