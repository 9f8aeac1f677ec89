// Package main provides a tool to export current station conditions from the
// PostgreSQL database to CSV format. The first row is a header; one row per
// station follows with its flight category and decoded observation fields.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"wx_decoder/internal/storage"
)

func main() {
	// PostgreSQL connection flags.
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgUser := flag.String("pg-user", "wx", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "wx", "PostgreSQL password")
	pgDB := flag.String("pg-db", "wx_state", "PostgreSQL database")

	output := flag.String("output", "", "Output CSV file (default: stdout)")
	category := flag.String("category", "", "Only export stations in this flight category (VFR, MVFR, IFR, LIFR)")
	maxAge := flag.Duration("max-age", 0, "Exclude stations not updated within this window (0 = no limit)")
	showStats := flag.Bool("stats", false, "Show statistics only, don't export")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Parse()

	ctx := context.Background()

	pg, err := storage.OpenPostgres(ctx, storage.PostgresConfig{
		Host:     *pgHost,
		Port:     *pgPort,
		Database: *pgDB,
		User:     *pgUser,
		Password: *pgPassword,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	// Show stats mode.
	if *showStats {
		showConditionsStats(ctx, pg)
		return
	}

	// Query conditions.
	conditions, err := getConditions(ctx, pg, *category, *maxAge)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying conditions: %v\n", err)
		os.Exit(1)
	}

	if len(conditions) == 0 {
		fmt.Fprintf(os.Stderr, "No station conditions found matching criteria\n")
		os.Exit(0)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Exporting %d stations to CSV\n", len(conditions))
	}

	// Write output.
	var writer *csv.Writer
	if *output != "" {
		file, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating file: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = file.Close() }()
		writer = csv.NewWriter(file)
	} else {
		writer = csv.NewWriter(os.Stdout)
	}

	header := []string{
		"station", "category", "report_type", "visibility_mi", "ceiling_ft",
		"wind_dir_deg", "wind_speed_kt", "wind_gust_kt", "temperature_c",
		"dew_point_c", "altimeter_hpa", "weather", "observed_at", "updated_at",
	}
	if err := writer.Write(header); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing header: %v\n", err)
		os.Exit(1)
	}

	for _, c := range conditions {
		row := []string{
			c.Station,
			c.Category,
			c.ReportType,
			fmtFloat(c.VisibilityMi),
			fmtInt(c.CeilingFt),
			fmtInt(c.WindDirDeg),
			fmtInt(c.WindSpeedKt),
			fmtInt(c.WindGustKt),
			fmtFloat(c.TemperatureC),
			fmtFloat(c.DewPointC),
			fmtInt(c.AltimeterHPa),
			strings.Join(c.Weather, " "),
			fmtTime(c.ObservedAt),
			c.UpdatedAt.Format(time.RFC3339),
		}

		if err := writer.Write(row); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing row: %v\n", err)
			os.Exit(1)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		fmt.Fprintf(os.Stderr, "Error flushing CSV: %v\n", err)
		os.Exit(1)
	}

	if *verbose && *output != "" {
		fmt.Fprintf(os.Stderr, "Wrote %d stations to %s\n", len(conditions), *output)
	}
}

// getConditions retrieves station conditions with optional category and
// freshness filters.
func getConditions(ctx context.Context, pg *storage.PostgresDB, category string, maxAge time.Duration) ([]storage.StationConditions, error) {
	var conditions []storage.StationConditions
	var err error

	if category != "" {
		conditions, err = pg.ListStationsByCategory(ctx, strings.ToUpper(category), 10000)
	} else {
		conditions, err = pg.ListConditions(ctx, 0)
	}
	if err != nil {
		return nil, fmt.Errorf("querying conditions: %w", err)
	}

	if maxAge <= 0 {
		return conditions, nil
	}

	cutoff := time.Now().UTC().Add(-maxAge)
	var fresh []storage.StationConditions
	for _, c := range conditions {
		if c.UpdatedAt.Before(cutoff) {
			continue
		}
		fresh = append(fresh, c)
	}
	return fresh, nil
}

// fmtFloat renders an optional float, empty when not reported.
func fmtFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// fmtInt renders an optional int, empty when not reported.
func fmtInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// fmtTime renders an optional timestamp, empty when not reported.
func fmtTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

// showConditionsStats displays statistics about the station conditions in the
// database.
func showConditionsStats(ctx context.Context, pg *storage.PostgresDB) {
	pool := pg.Pool()

	var total int
	_ = pool.QueryRow(ctx, "SELECT COUNT(*) FROM station_conditions").Scan(&total)

	var avgReports float64
	_ = pool.QueryRow(ctx, "SELECT COALESCE(AVG(report_count), 0) FROM station_conditions").Scan(&avgReports)

	var maxReports int
	var maxStation string
	_ = pool.QueryRow(ctx, "SELECT station, report_count FROM station_conditions ORDER BY report_count DESC LIMIT 1").Scan(&maxStation, &maxReports)

	var oldestTime, newestTime *time.Time
	_ = pool.QueryRow(ctx, "SELECT MIN(updated_at), MAX(updated_at) FROM station_conditions").Scan(&oldestTime, &newestTime)

	fmt.Println("Station Conditions Statistics")
	fmt.Println("─────────────────────────────")
	fmt.Printf("Total stations:      %d\n", total)
	fmt.Printf("Average reports:     %.1f\n", avgReports)
	if maxStation != "" {
		fmt.Printf("Most reported:       %s (%d reports)\n", maxStation, maxReports)
	}
	if oldestTime != nil && newestTime != nil {
		fmt.Printf("Update range:        %s to %s\n", oldestTime.Format("2006-01-02 15:04"), newestTime.Format("2006-01-02 15:04"))
	}

	// Category distribution, worst conditions first.
	counts, err := pg.CountByCategory(ctx)
	if err == nil {
		fmt.Println("\nStations by Flight Category:")
		fmt.Printf("%-10s %10s\n", "Category", "Count")
		for _, cat := range []string{"LIFR", "IFR", "MVFR", "VFR"} {
			if counts[cat] > 0 {
				fmt.Printf("%-10s %10d\n", cat, counts[cat])
			}
		}
	}

	// Data age distribution.
	fmt.Println("\nData Age Distribution:")
	rows, err := pool.Query(ctx, `
		SELECT
			CASE
				WHEN updated_at > NOW() - INTERVAL '1 hour' THEN '<1h'
				WHEN updated_at > NOW() - INTERVAL '3 hours' THEN '1-3h'
				WHEN updated_at > NOW() - INTERVAL '6 hours' THEN '3-6h'
				WHEN updated_at > NOW() - INTERVAL '24 hours' THEN '6-24h'
				ELSE '24h+'
			END as bucket,
			COUNT(*) as cnt
		FROM station_conditions
		GROUP BY bucket
		ORDER BY MIN(updated_at) DESC
	`)
	if err == nil {
		defer rows.Close()
		fmt.Printf("%-10s %10s\n", "Age", "Count")
		for rows.Next() {
			var bucket string
			var cnt int
			_ = rows.Scan(&bucket, &cnt)
			fmt.Printf("%-10s %10d\n", bucket, cnt)
		}
	}

	// Top 10 most active stations.
	fmt.Println("\nTop 10 Most Reported Stations:")
	topRows, err := pool.Query(ctx, `
		SELECT station, COALESCE(category, ''), report_count, observed_at
		FROM station_conditions
		ORDER BY report_count DESC
		LIMIT 10
	`)
	if err == nil {
		defer topRows.Close()
		fmt.Printf("%-8s %-8s %8s %s\n", "Station", "Category", "Reports", "Observed")
		for topRows.Next() {
			var station, cat string
			var reports int
			var observedAt *time.Time
			_ = topRows.Scan(&station, &cat, &reports, &observedAt)
			observed := ""
			if observedAt != nil {
				observed = observedAt.Format("2006-01-02 15:04")
			}
			fmt.Printf("%-8s %-8s %8d %s\n", station, cat, reports, observed)
		}
	}
}
