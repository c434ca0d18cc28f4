package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/docscrawl/internal/model"
)

// DBFileName is the database file name inside the data directory.
const DBFileName = "docscrawl.db"

// CrawlDB provides SQLite-based storage for checkpoints, page records and
// crawl summaries.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so readers (the summary
	// command) never block the crawl loop's writes.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in the specified directory.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- The current crawl checkpoint; at most one row (id = 1)
	CREATE TABLE IF NOT EXISTS checkpoints (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		state_json TEXT NOT NULL,
		saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Page records store the extracted data of each fetched page
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		title TEXT,
		category TEXT NOT NULL,
		methods TEXT,
		callbacks TEXT,
		code_blocks TEXT,
		content_hash TEXT,
		char_count INTEGER DEFAULT 0,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_pages_category ON pages(category);
	CREATE INDEX IF NOT EXISTS idx_pages_fetched_at ON pages(fetched_at);

	-- Crawl summaries produced when a crawl finishes
	CREATE TABLE IF NOT EXISTS summaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		summary_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_summaries_created_at ON summaries(created_at);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveState replaces the stored checkpoint with state in one transaction.
func (cdb *CrawlDB) SaveState(ctx context.Context, state *model.CrawlState) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to serialize crawl state: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin checkpoint transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	query := `
	INSERT INTO checkpoints (id, state_json) VALUES (1, ?)
	ON CONFLICT(id) DO UPDATE SET
		state_json = excluded.state_json,
		saved_at = CURRENT_TIMESTAMP
	`
	if _, err := tx.ExecContext(ctx, query, string(stateJSON)); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}
	return nil
}

// LoadState returns the stored checkpoint, or (nil, nil) if there is none.
func (cdb *CrawlDB) LoadState(ctx context.Context) (*model.CrawlState, error) {
	var stateJSON string
	err := cdb.db.QueryRowContext(ctx, `SELECT state_json FROM checkpoints WHERE id = 1`).Scan(&stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	var state model.CrawlState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint: %w", err)
	}
	return &state, nil
}

// CheckpointSavedAt returns when the checkpoint was last written.
// The zero time is returned when there is no checkpoint.
func (cdb *CrawlDB) CheckpointSavedAt(ctx context.Context) (time.Time, error) {
	var savedAt string
	err := cdb.db.QueryRowContext(ctx, `SELECT saved_at FROM checkpoints WHERE id = 1`).Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read checkpoint time: %w", err)
	}
	return parseTimestamp(savedAt), nil
}

// ClearState deletes the stored checkpoint.
func (cdb *CrawlDB) ClearState(ctx context.Context) error {
	if _, err := cdb.db.ExecContext(ctx, `DELETE FROM checkpoints`); err != nil {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}
	return nil
}

// PageRecord represents a stored page.
type PageRecord struct {
	ID          int64
	URL         string
	Title       string
	Category    string
	Methods     []string
	Callbacks   []string
	CodeBlocks  []string
	ContentHash string
	CharCount   int
	FetchedAt   time.Time
}

// InsertPageRecord inserts or updates the record for a fetched page.
// Uses UPSERT so a page fetched again replaces its old record.
func (cdb *CrawlDB) InsertPageRecord(ctx context.Context, page *model.PageResult) error {
	methods, err := json.Marshal(nonNil(page.Methods))
	if err != nil {
		return fmt.Errorf("failed to serialize methods: %w", err)
	}
	callbacks, err := json.Marshal(nonNil(page.Callbacks))
	if err != nil {
		return fmt.Errorf("failed to serialize callbacks: %w", err)
	}
	codeBlocks, err := json.Marshal(nonNil(page.CodeBlocks))
	if err != nil {
		return fmt.Errorf("failed to serialize code blocks: %w", err)
	}

	query := `
	INSERT INTO pages (url, title, category, methods, callbacks, code_blocks, content_hash, char_count)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		title = excluded.title,
		category = excluded.category,
		methods = excluded.methods,
		callbacks = excluded.callbacks,
		code_blocks = excluded.code_blocks,
		content_hash = excluded.content_hash,
		char_count = excluded.char_count,
		fetched_at = CURRENT_TIMESTAMP
	`

	_, err = cdb.db.ExecContext(ctx, query,
		page.URL,
		page.Title,
		page.Category,
		string(methods),
		string(callbacks),
		string(codeBlocks),
		page.ContentHash,
		page.CharCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert page record: %w", err)
	}
	return nil
}

// RecordPage implements crawler.PageSink.
func (cdb *CrawlDB) RecordPage(ctx context.Context, page *model.PageResult) error {
	return cdb.InsertPageRecord(ctx, page)
}

// GetPageRecord retrieves a page record by URL. It returns (nil, nil)
// when the page has not been recorded.
func (cdb *CrawlDB) GetPageRecord(ctx context.Context, url string) (*PageRecord, error) {
	query := `
	SELECT id, url, title, category, methods, callbacks, code_blocks, content_hash, char_count, fetched_at
	FROM pages
	WHERE url = ?
	`

	rec, err := scanPageRecord(cdb.db.QueryRowContext(ctx, query, url))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page record: %w", err)
	}
	return rec, nil
}

// ListPageRecords returns page records, optionally filtered by category,
// ordered by URL.
func (cdb *CrawlDB) ListPageRecords(ctx context.Context, category string) ([]*PageRecord, error) {
	query := `
	SELECT id, url, title, category, methods, callbacks, code_blocks, content_hash, char_count, fetched_at
	FROM pages
	WHERE 1=1
	`
	args := make([]any, 0, 1)
	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}
	query += " ORDER BY url"

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list page records: %w", err)
	}
	defer rows.Close()

	var records []*PageRecord
	for rows.Next() {
		rec, err := scanPageRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountPagesByCategory returns the number of recorded pages per category.
func (cdb *CrawlDB) CountPagesByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM pages GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to count pages: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("failed to scan page count: %w", err)
		}
		counts[category] = n
	}
	return counts, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPageRecord(row rowScanner) (*PageRecord, error) {
	var (
		rec        PageRecord
		title      sql.NullString
		methods    sql.NullString
		callbacks  sql.NullString
		codeBlocks sql.NullString
		hash       sql.NullString
		fetchedAt  string
	)

	if err := row.Scan(
		&rec.ID,
		&rec.URL,
		&title,
		&rec.Category,
		&methods,
		&callbacks,
		&codeBlocks,
		&hash,
		&rec.CharCount,
		&fetchedAt,
	); err != nil {
		return nil, err
	}

	rec.Title = title.String
	rec.ContentHash = hash.String
	rec.FetchedAt = parseTimestamp(fetchedAt)

	for _, f := range []struct {
		raw sql.NullString
		dst *[]string
	}{
		{methods, &rec.Methods},
		{callbacks, &rec.Callbacks},
		{codeBlocks, &rec.CodeBlocks},
	} {
		if !f.raw.Valid || f.raw.String == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.raw.String), f.dst); err != nil {
			return nil, fmt.Errorf("failed to parse page record column: %w", err)
		}
	}

	return &rec, nil
}

// SaveSummary stores a crawl summary.
func (cdb *CrawlDB) SaveSummary(ctx context.Context, summary *model.Summary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}

	query := `
	INSERT INTO summaries (succeeded, failed, summary_json)
	VALUES (?, ?, ?)
	`
	if _, err := cdb.db.ExecContext(ctx, query, summary.Succeeded, summary.Failed, string(summaryJSON)); err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

// GetLatestSummary returns the most recently stored summary, or (nil, nil).
func (cdb *CrawlDB) GetLatestSummary(ctx context.Context) (*model.Summary, error) {
	query := `
	SELECT summary_json FROM summaries
	ORDER BY id DESC
	LIMIT 1
	`

	var summaryJSON string
	err := cdb.db.QueryRowContext(ctx, query).Scan(&summaryJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}

	var summary model.Summary
	if err := json.Unmarshal([]byte(summaryJSON), &summary); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}
	return &summary, nil
}

// Reset deletes the checkpoint, all page records and all summaries in one
// transaction.
func (cdb *CrawlDB) Reset(ctx context.Context) error {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reset transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	for _, table := range []string{"checkpoints", "pages", "summaries"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// timestampFormats contains the timestamp formats that SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, it returns the zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
