// Package main provides a tool to export active airspace advisories from the
// PostgreSQL database to KML format. KML (Keyhole Markup Language) files can
// be viewed in Google Earth, Google Maps, and other mapping applications.
package main

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"wx_decoder/internal/patterns"
	"wx_decoder/internal/storage"
)

// KML structures for XML marshalling.
// These follow the KML 2.2 specification: https://developers.google.com/kml/documentation/kmlreference

// KML is the root element of a KML document.
type KML struct {
	XMLName   xml.Name `xml:"kml"`
	Namespace string   `xml:"xmlns,attr"`
	Document  Document `xml:"Document"`
}

// Document contains the document metadata and features.
type Document struct {
	Name        string      `xml:"name"`
	Description string      `xml:"description,omitempty"`
	Styles      []Style     `xml:"Style,omitempty"`
	Placemarks  []Placemark `xml:"Placemark"`
}

// Style defines the visual appearance of features.
type Style struct {
	ID        string     `xml:"id,attr"`
	LineStyle *LineStyle `xml:"LineStyle,omitempty"`
	PolyStyle *PolyStyle `xml:"PolyStyle,omitempty"`
}

// LineStyle defines how polygon outlines are displayed.
type LineStyle struct {
	Color string  `xml:"color"` // Format: aabbggrr
	Width float64 `xml:"width,omitempty"`
}

// PolyStyle defines how polygon fills are displayed.
type PolyStyle struct {
	Color string `xml:"color"` // Format: aabbggrr
}

// Placemark represents a geographic feature with geometry and metadata.
type Placemark struct {
	Name         string        `xml:"name"`
	Description  string        `xml:"description,omitempty"`
	StyleURL     string        `xml:"styleUrl,omitempty"`
	Polygon      *Polygon      `xml:"Polygon,omitempty"`
	Point        *Point        `xml:"Point,omitempty"`
	ExtendedData *ExtendedData `xml:"ExtendedData,omitempty"`
}

// Polygon represents a closed advisory area.
type Polygon struct {
	OuterBoundary OuterBoundary `xml:"outerBoundaryIs"`
}

// OuterBoundary wraps the outer ring of a polygon.
type OuterBoundary struct {
	LinearRing LinearRing `xml:"LinearRing"`
}

// LinearRing holds the closed coordinate ring of a polygon.
type LinearRing struct {
	Coordinates string `xml:"coordinates"` // Format: lon,lat,altitude triplets
}

// Point represents a geographic location.
type Point struct {
	Coordinates string `xml:"coordinates"` // Format: lon,lat,altitude
}

// ExtendedData holds custom data associated with a placemark.
type ExtendedData struct {
	Data []Data `xml:"Data"`
}

// Data represents a single piece of extended data.
type Data struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

func main() {
	// PostgreSQL connection flags.
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgUser := flag.String("pg-user", "wx", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "wx", "PostgreSQL password")
	pgDB := flag.String("pg-db", "wx_state", "PostgreSQL database")

	output := flag.String("output", "", "Output KML file (default: stdout)")
	phenomenon := flag.String("phenomenon", "", "Only include advisories matching this phenomenon (substring match)")
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
		showAdvisoryStats(ctx, pg)
		return
	}

	// Query active advisories.
	advisories, err := pg.ListActiveAdvisories(ctx, time.Now().UTC())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying advisories: %v\n", err)
		os.Exit(1)
	}

	if *phenomenon != "" {
		filter := strings.ToUpper(*phenomenon)
		var kept []storage.Advisory
		for _, a := range advisories {
			if strings.Contains(strings.ToUpper(a.Phenomenon), filter) {
				kept = append(kept, a)
			}
		}
		advisories = kept
	}

	if len(advisories) == 0 {
		fmt.Fprintf(os.Stderr, "No active advisories found matching criteria\n")
		os.Exit(0)
	}

	// Generate KML.
	kml, skipped := generateKML(advisories)

	if *verbose {
		fmt.Fprintf(os.Stderr, "Exporting %d advisories to KML (%d without boundary skipped)\n",
			len(kml.Document.Placemarks), skipped)
	}

	// Marshal to XML.
	xmlData, err := xml.MarshalIndent(kml, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating KML: %v\n", err)
		os.Exit(1)
	}

	// Add XML header.
	xmlOutput := xml.Header + string(xmlData)

	// Write output.
	if *output != "" {
		if err := os.WriteFile(*output, []byte(xmlOutput), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "Wrote %s\n", *output)
		}
	} else {
		fmt.Println(xmlOutput)
	}
}

// phenomenonStyles maps phenomenon classes to their KML style.
// KML colors are aabbggrr.
var phenomenonStyles = []struct {
	ID    string
	Match []string
	Color string
}{
	{"ts", []string{"TS"}, "7f0000ff"},          // thunderstorm: red
	{"turb", []string{"TURB"}, "7f007fff"},      // turbulence: orange
	{"ice", []string{"ICE", "ICG"}, "7fffbf00"}, // icing: light blue
	{"va", []string{"VA", "ASH"}, "7f808080"},   // volcanic ash: gray
	{"mtw", []string{"MTW"}, "7f800080"},        // mountain wave: purple
	{"other", nil, "7f00ffff"},                  // anything else: yellow
}

// styleForPhenomenon picks the style ID matching a phenomenon description.
func styleForPhenomenon(phenomenon string) string {
	upper := strings.ToUpper(phenomenon)
	for _, s := range phenomenonStyles {
		for _, m := range s.Match {
			if strings.Contains(upper, m) {
				return s.ID
			}
		}
	}
	return "other"
}

// generateKML creates a KML document from the advisories. Advisories without
// boundary coordinates cannot be placed and are counted as skipped.
func generateKML(advisories []storage.Advisory) (KML, int) {
	var placemarks []Placemark
	var skipped int

	for _, a := range advisories {
		var boundary []patterns.Point
		if len(a.Boundary) > 0 {
			_ = json.Unmarshal(a.Boundary, &boundary)
		}
		if len(boundary) == 0 {
			skipped++
			continue
		}

		name := a.AdvisoryID
		if a.FIR != "" {
			name = fmt.Sprintf("%s %s", a.FIR, a.AdvisoryID)
		}

		// Build description with metadata.
		var desc strings.Builder
		if a.Phenomenon != "" {
			fmt.Fprintf(&desc, "Phenomenon: %s\n", a.Phenomenon)
		}
		if a.Altitude != "" {
			fmt.Fprintf(&desc, "Altitude: %s\n", a.Altitude)
		}
		if a.Movement != "" {
			fmt.Fprintf(&desc, "Movement: %s\n", a.Movement)
		}
		if a.ValidFrom != nil && a.ValidTo != nil {
			fmt.Fprintf(&desc, "Valid: %s to %s\n",
				a.ValidFrom.Format("2006-01-02 15:04 UTC"),
				a.ValidTo.Format("2006-01-02 15:04 UTC"))
		}
		fmt.Fprintf(&desc, "Observations: %d", a.ObservationCount)

		pm := Placemark{
			Name:        name,
			Description: desc.String(),
			StyleURL:    "#" + styleForPhenomenon(a.Phenomenon),
			ExtendedData: &ExtendedData{
				Data: []Data{
					{Name: "fir", Value: a.FIR},
					{Name: "phenomenon", Value: a.Phenomenon},
					{Name: "altitude", Value: a.Altitude},
					{Name: "first_seen", Value: a.FirstSeen.Format(time.RFC3339)},
					{Name: "last_seen", Value: a.LastSeen.Format(time.RFC3339)},
				},
			},
		}

		// A polygon needs at least three vertices; degenerate boundaries
		// become a point at the first coordinate.
		if len(boundary) >= 3 {
			pm.Polygon = &Polygon{
				OuterBoundary: OuterBoundary{
					LinearRing: LinearRing{Coordinates: ringCoordinates(boundary)},
				},
			}
		} else {
			pm.Point = &Point{
				Coordinates: fmt.Sprintf("%.6f,%.6f,0", boundary[0].Lon, boundary[0].Lat),
			}
		}

		placemarks = append(placemarks, pm)
	}

	var styles []Style
	for _, s := range phenomenonStyles {
		styles = append(styles, Style{
			ID:        s.ID,
			LineStyle: &LineStyle{Color: s.Color, Width: 2},
			PolyStyle: &PolyStyle{Color: s.Color},
		})
	}

	return KML{
		Namespace: "http://www.opengis.net/kml/2.2",
		Document: Document{
			Name:        "Active Airspace Advisories",
			Description: fmt.Sprintf("SIGMET advisory areas decoded from weather bulletins. Generated %s.", time.Now().Format("2006-01-02 15:04:05")),
			Styles:      styles,
			Placemarks:  placemarks,
		},
	}, skipped
}

// ringCoordinates renders a boundary as a closed KML coordinate ring.
func ringCoordinates(boundary []patterns.Point) string {
	var sb strings.Builder
	for _, p := range boundary {
		fmt.Fprintf(&sb, "%.6f,%.6f,0 ", p.Lon, p.Lat)
	}
	// KML rings close on their first vertex.
	first := boundary[0]
	fmt.Fprintf(&sb, "%.6f,%.6f,0", first.Lon, first.Lat)
	return sb.String()
}

// showAdvisoryStats displays statistics about the advisories in the database.
func showAdvisoryStats(ctx context.Context, pg *storage.PostgresDB) {
	pool := pg.Pool()
	now := time.Now().UTC()

	var total int
	_ = pool.QueryRow(ctx, "SELECT COUNT(*) FROM sigmet_advisories").Scan(&total)

	var active int
	_ = pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM sigmet_advisories
		WHERE (valid_from IS NULL OR valid_from <= $1)
		  AND (valid_to IS NULL OR valid_to >= $1)`, now).Scan(&active)

	var avgObs float64
	_ = pool.QueryRow(ctx, "SELECT COALESCE(AVG(observation_count), 0) FROM sigmet_advisories").Scan(&avgObs)

	var maxObs int
	var maxID string
	_ = pool.QueryRow(ctx, "SELECT advisory_id, observation_count FROM sigmet_advisories ORDER BY observation_count DESC LIMIT 1").Scan(&maxID, &maxObs)

	var oldestTime, newestTime *time.Time
	_ = pool.QueryRow(ctx, "SELECT MIN(first_seen), MAX(last_seen) FROM sigmet_advisories").Scan(&oldestTime, &newestTime)

	fmt.Println("Advisory Statistics")
	fmt.Println("───────────────────")
	fmt.Printf("Total advisories:    %d\n", total)
	fmt.Printf("Currently active:    %d\n", active)
	fmt.Printf("Average updates:     %.1f\n", avgObs)
	if maxID != "" {
		fmt.Printf("Most observed:       %s (%d updates)\n", maxID, maxObs)
	}
	if oldestTime != nil && newestTime != nil {
		fmt.Printf("Date range:          %s to %s\n", oldestTime.Format("2006-01-02"), newestTime.Format("2006-01-02"))
	}

	// FIR distribution.
	fmt.Println("\nAdvisories by FIR:")
	rows, err := pool.Query(ctx, `
		SELECT fir, COUNT(*) as cnt
		FROM sigmet_advisories
		GROUP BY fir
		ORDER BY cnt DESC
		LIMIT 15
	`)
	if err == nil {
		defer rows.Close()
		fmt.Printf("%-10s %10s\n", "FIR", "Count")
		for rows.Next() {
			var fir string
			var cnt int
			_ = rows.Scan(&fir, &cnt)
			fmt.Printf("%-10s %10d\n", fir, cnt)
		}
	}
}
