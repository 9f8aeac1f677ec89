package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ArchivedBulletin represents a stored bulletin with its decode result.
type ArchivedBulletin struct {
	ID            int64
	ReceivedAt    time.Time
	Kind          string
	ParserType    string
	Station       string
	Source        string
	FeedID        int64
	Category      string
	RawText       string
	DecodedJSON   string
	MissingFields string
	IsGolden      bool
	Annotation    string
	ExpectedJSON  string
}

// Archive wraps a SQLite database for the local bulletin archive.
type Archive struct {
	db *sql.DB
}

// OpenArchive opens or creates a bulletin archive at the given path.
func OpenArchive(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	// Create schema.
	if err := createArchiveSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

// createArchiveSchema creates the archive tables and indices.
func createArchiveSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS bulletins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		received_at TEXT NOT NULL,
		kind TEXT NOT NULL,
		parser_type TEXT NOT NULL,
		station TEXT,
		source TEXT,
		feed_id INTEGER,
		category TEXT,
		raw_text TEXT NOT NULL,
		decoded_json TEXT NOT NULL,
		missing_fields TEXT,
		created_at TEXT DEFAULT (datetime('now')),
		is_golden INTEGER DEFAULT 0,
		annotation TEXT,
		expected_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_bulletins_kind ON bulletins(kind);
	CREATE INDEX IF NOT EXISTS idx_bulletins_parser_type ON bulletins(parser_type);
	CREATE INDEX IF NOT EXISTS idx_bulletins_station ON bulletins(station);
	CREATE INDEX IF NOT EXISTS idx_bulletins_category ON bulletins(category);
	CREATE INDEX IF NOT EXISTS idx_bulletins_missing ON bulletins(missing_fields);
	CREATE INDEX IF NOT EXISTS idx_bulletins_received ON bulletins(received_at);

	-- FTS5 virtual table for full-text search on raw bulletin text.
	CREATE VIRTUAL TABLE IF NOT EXISTS bulletins_fts USING fts5(
		raw_text,
		content='bulletins',
		content_rowid='id'
	);

	-- Triggers to keep FTS index in sync.
	CREATE TRIGGER IF NOT EXISTS bulletins_ai AFTER INSERT ON bulletins BEGIN
		INSERT INTO bulletins_fts(rowid, raw_text) VALUES (new.id, new.raw_text);
	END;

	CREATE TRIGGER IF NOT EXISTS bulletins_ad AFTER DELETE ON bulletins BEGIN
		INSERT INTO bulletins_fts(bulletins_fts, rowid, raw_text) VALUES('delete', old.id, old.raw_text);
	END;

	CREATE TRIGGER IF NOT EXISTS bulletins_au AFTER UPDATE ON bulletins BEGIN
		INSERT INTO bulletins_fts(bulletins_fts, rowid, raw_text) VALUES('delete', old.id, old.raw_text);
		INSERT INTO bulletins_fts(rowid, raw_text) VALUES (new.id, new.raw_text);
	END;
	`

	_, err := db.Exec(schema)
	if err != nil {
		return err
	}

	// Run migrations for existing databases.
	return migrateArchiveSchema(db)
}

// migrateArchiveSchema adds new columns to existing databases.
func migrateArchiveSchema(db *sql.DB) error {
	// Check if the fixture columns exist.
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('bulletins') WHERE name='is_golden'`).Scan(&count)
	if err != nil {
		return err
	}

	if count == 0 {
		migrations := []string{
			`ALTER TABLE bulletins ADD COLUMN is_golden INTEGER DEFAULT 0`,
			`ALTER TABLE bulletins ADD COLUMN annotation TEXT`,
			`ALTER TABLE bulletins ADD COLUMN expected_json TEXT`,
		}
		for _, m := range migrations {
			if _, err := db.Exec(m); err != nil {
				// Ignore "duplicate column" errors for idempotency.
				if !strings.Contains(err.Error(), "duplicate column") {
					return err
				}
			}
		}
		_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_bulletins_golden ON bulletins(is_golden)`)
	}

	return nil
}

// InsertParams contains the parameters for archiving a bulletin.
type InsertParams struct {
	ReceivedAt    string
	Kind          string
	ParserType    string
	Station       string
	Source        string
	FeedID        int64
	Category      string
	RawText       string
	DecodedData   interface{}
	MissingFields []string
}

// Insert stores a decoded bulletin in the archive.
func (a *Archive) Insert(p InsertParams) (int64, error) {
	decodedJSON, err := json.Marshal(p.DecodedData)
	if err != nil {
		return 0, fmt.Errorf("marshal decoded data: %w", err)
	}

	missingFields := strings.Join(p.MissingFields, ",")

	result, err := a.db.Exec(`
		INSERT INTO bulletins (received_at, kind, parser_type, station, source, feed_id, category, raw_text, decoded_json, missing_fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ReceivedAt, p.Kind, p.ParserType, p.Station, p.Source, p.FeedID, p.Category, p.RawText, string(decodedJSON), missingFields)
	if err != nil {
		return 0, fmt.Errorf("insert bulletin: %w", err)
	}

	return result.LastInsertId()
}

// QueryParams contains filtering options for querying the archive.
type QueryParams struct {
	ID           int64  // Filter by specific archive row ID.
	FeedID       int64  // Filter by upstream feed ID.
	Kind         string // Filter by bulletin kind (exact match).
	ParserType   string // Filter by parser type (exact match).
	Station      string // Filter by station (LIKE match).
	Category     string // Filter by flight category (exact match).
	MissingField string // Filter by specific missing field (LIKE match).
	HasMissing   bool   // Only show bulletins with any missing fields.
	GoldenOnly   bool   // Only show bulletins marked as fixtures.
	FullText     string // FTS5 full-text search on raw_text.
	Limit        int    // Max results (default 100).
	Offset       int    // Pagination offset.
	OrderBy      string // Sort field (received_at, kind, parser_type, station, category).
	OrderDesc    bool   // Sort descending.
}

const bulletinColumns = `id, received_at, kind, parser_type, station, source, feed_id, category,
	raw_text, decoded_json, missing_fields, is_golden, annotation, expected_json`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanBulletin scans one archive row in the canonical column order.
func scanBulletin(row rowScanner) (*ArchivedBulletin, error) {
	var b ArchivedBulletin
	var receivedAt, station, source, category, missing, annotation, expectedJSON sql.NullString
	var feedID, isGolden sql.NullInt64

	err := row.Scan(&b.ID, &receivedAt, &b.Kind, &b.ParserType, &station, &source, &feedID,
		&category, &b.RawText, &b.DecodedJSON, &missing, &isGolden, &annotation, &expectedJSON)
	if err != nil {
		return nil, err
	}

	if receivedAt.Valid {
		b.ReceivedAt, _ = time.Parse(time.RFC3339, receivedAt.String)
	}
	b.Station = station.String
	b.Source = source.String
	b.Category = category.String
	b.MissingFields = missing.String
	b.FeedID = feedID.Int64
	b.IsGolden = isGolden.Int64 == 1
	b.Annotation = annotation.String
	b.ExpectedJSON = expectedJSON.String
	return &b, nil
}

// Query retrieves archived bulletins matching the given parameters.
func (a *Archive) Query(p QueryParams) ([]ArchivedBulletin, error) {
	var conditions []string
	var args []interface{}

	if p.ID != 0 {
		conditions = append(conditions, "id = ?")
		args = append(args, p.ID)
	}
	if p.FeedID != 0 {
		conditions = append(conditions, "feed_id = ?")
		args = append(args, p.FeedID)
	}
	if p.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, p.Kind)
	}
	if p.ParserType != "" {
		conditions = append(conditions, "parser_type = ?")
		args = append(args, p.ParserType)
	}
	if p.Station != "" {
		conditions = append(conditions, "station LIKE ?")
		args = append(args, "%"+p.Station+"%")
	}
	if p.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, p.Category)
	}
	if p.MissingField != "" {
		conditions = append(conditions, "missing_fields LIKE ?")
		args = append(args, "%"+p.MissingField+"%")
	}
	if p.HasMissing {
		conditions = append(conditions, "missing_fields != '' AND missing_fields IS NOT NULL")
	}
	if p.GoldenOnly {
		conditions = append(conditions, "is_golden = 1")
	}

	// FTS5 search requires a JOIN with the FTS table.
	var query string
	if p.FullText != "" {
		query = `SELECT b.id, b.received_at, b.kind, b.parser_type, b.station, b.source, b.feed_id,
				b.category, b.raw_text, b.decoded_json, b.missing_fields, b.is_golden, b.annotation, b.expected_json
				FROM bulletins b
				JOIN bulletins_fts fts ON b.id = fts.rowid
				WHERE bulletins_fts MATCH ?`
		args = append([]interface{}{p.FullText}, args...)
		if len(conditions) > 0 {
			query += " AND " + strings.Join(conditions, " AND ")
		}
	} else {
		query = `SELECT ` + bulletinColumns + ` FROM bulletins`
		if len(conditions) > 0 {
			query += " WHERE " + strings.Join(conditions, " AND ")
		}
	}

	// Order by.
	orderField := "id"
	if p.OrderBy != "" {
		switch p.OrderBy {
		case "received_at", "kind", "parser_type", "station", "category":
			orderField = p.OrderBy
		}
	}
	direction := "ASC"
	if p.OrderDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", orderField, direction)

	// Limit and offset.
	limit := 100
	if p.Limit > 0 {
		limit = p.Limit
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, p.Offset)

	rows, err := a.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bulletins: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var bulletins []ArchivedBulletin
	for rows.Next() {
		b, err := scanBulletin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		bulletins = append(bulletins, *b)
	}

	return bulletins, rows.Err()
}

// GetByID retrieves a single archived bulletin by row ID.
func (a *Archive) GetByID(id int64) (*ArchivedBulletin, error) {
	row := a.db.QueryRow(`SELECT `+bulletinColumns+` FROM bulletins WHERE id = ?`, id)

	b, err := scanBulletin(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetByFeedID retrieves the most recent archived bulletin carrying the given
// upstream feed ID.
func (a *Archive) GetByFeedID(feedID int64) (*ArchivedBulletin, error) {
	row := a.db.QueryRow(`SELECT `+bulletinColumns+` FROM bulletins WHERE feed_id = ? ORDER BY id DESC LIMIT 1`, feedID)

	b, err := scanBulletin(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ArchiveStats contains aggregate statistics about the archive.
type ArchiveStats struct {
	TotalBulletins   int
	ByParserType     map[string]int
	ByKind           map[string]int
	WithMissing      int
	TopMissingFields map[string]int
}

// GetStats returns statistics about the archived bulletins.
func (a *Archive) GetStats() (*ArchiveStats, error) {
	stats := &ArchiveStats{
		ByParserType:     make(map[string]int),
		ByKind:           make(map[string]int),
		TopMissingFields: make(map[string]int),
	}

	// Total bulletins.
	row := a.db.QueryRow("SELECT COUNT(*) FROM bulletins")
	if err := row.Scan(&stats.TotalBulletins); err != nil {
		return nil, err
	}

	// By parser type.
	rows, err := a.db.Query("SELECT parser_type, COUNT(*) FROM bulletins GROUP BY parser_type ORDER BY COUNT(*) DESC")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var typ string
		var count int
		if err := rows.Scan(&typ, &count); err != nil {
			_ = rows.Close()
			return nil, err
		}
		stats.ByParserType[typ] = count
	}
	_ = rows.Close()

	// By kind.
	rows, err = a.db.Query("SELECT kind, COUNT(*) FROM bulletins GROUP BY kind ORDER BY COUNT(*) DESC")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			_ = rows.Close()
			return nil, err
		}
		stats.ByKind[kind] = count
	}
	_ = rows.Close()

	// With missing fields.
	row = a.db.QueryRow("SELECT COUNT(*) FROM bulletins WHERE missing_fields != '' AND missing_fields IS NOT NULL")
	if err := row.Scan(&stats.WithMissing); err != nil {
		return nil, err
	}

	// Top missing fields - requires parsing the comma-separated values.
	rows, err = a.db.Query("SELECT missing_fields FROM bulletins WHERE missing_fields != '' AND missing_fields IS NOT NULL")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var fields string
		if err := rows.Scan(&fields); err != nil {
			_ = rows.Close()
			return nil, err
		}
		for _, f := range strings.Split(fields, ",") {
			f = strings.TrimSpace(f)
			if f != "" {
				stats.TopMissingFields[f]++
			}
		}
	}
	_ = rows.Close()

	return stats, nil
}

// Distinct returns distinct values for a given column.
func (a *Archive) Distinct(column string) ([]string, error) {
	// Validate column name to prevent SQL injection.
	validColumns := map[string]bool{
		"kind":        true,
		"parser_type": true,
		"station":     true,
		"source":      true,
		"category":    true,
	}
	if !validColumns[column] {
		return nil, fmt.Errorf("invalid column: %s", column)
	}

	query := fmt.Sprintf("SELECT DISTINCT %s FROM bulletins WHERE %s IS NOT NULL AND %s != '' ORDER BY %s", column, column, column, column)
	rows, err := a.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// SetGolden marks or unmarks a bulletin as a regression fixture.
func (a *Archive) SetGolden(id int64, golden bool) error {
	val := 0
	if golden {
		val = 1
	}
	_, err := a.db.Exec(`UPDATE bulletins SET is_golden = ? WHERE id = ?`, val, id)
	return err
}

// SetAnnotation sets the annotation for a bulletin.
func (a *Archive) SetAnnotation(id int64, annotation string) error {
	_, err := a.db.Exec(`UPDATE bulletins SET annotation = ? WHERE id = ?`, annotation, id)
	return err
}

// SetExpectedJSON sets the expected decode result for a fixture bulletin.
func (a *Archive) SetExpectedJSON(id int64, expectedJSON string) error {
	_, err := a.db.Exec(`UPDATE bulletins SET expected_json = ? WHERE id = ?`, expectedJSON, id)
	return err
}

// UpdateDecodedParams contains parameters for updating a decode result.
type UpdateDecodedParams struct {
	ID            int64
	ParserType    string
	Station       string
	Category      string
	DecodedData   interface{}
	MissingFields []string
}

// UpdateDecoded replaces the decode result for an archived bulletin, used
// when bulletins are re-run through newer decoders.
func (a *Archive) UpdateDecoded(p UpdateDecodedParams) error {
	decodedJSON, err := json.Marshal(p.DecodedData)
	if err != nil {
		return fmt.Errorf("marshal decoded data: %w", err)
	}

	missingFields := strings.Join(p.MissingFields, ",")

	_, err = a.db.Exec(`UPDATE bulletins SET parser_type = ?, station = ?, category = ?, decoded_json = ?, missing_fields = ? WHERE id = ?`,
		p.ParserType, p.Station, p.Category, string(decodedJSON), missingFields, p.ID)
	if err != nil {
		return fmt.Errorf("update bulletin: %w", err)
	}

	return nil
}

// GetGoldenBulletins retrieves all bulletins marked as regression fixtures.
func (a *Archive) GetGoldenBulletins() ([]ArchivedBulletin, error) {
	return a.Query(QueryParams{
		GoldenOnly: true,
		Limit:      100000,
	})
}

// CountByType returns bulletin counts grouped by parser type.
func (a *Archive) CountByType() (map[string]int, error) {
	counts := make(map[string]int)
	rows, err := a.db.Query("SELECT parser_type, COUNT(*) FROM bulletins GROUP BY parser_type")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var typ string
		var count int
		if err := rows.Scan(&typ, &count); err != nil {
			return nil, err
		}
		counts[typ] = count
	}
	return counts, rows.Err()
}
