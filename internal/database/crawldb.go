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

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/schemacrawl/internal/model"
)

// FileName is the database file created in the database directory.
const FileName = "schemacrawl.db"

// ErrRunNotFound is returned when no crawl run has the requested ID.
var ErrRunNotFound = errors.New("crawl run not found")

// ErrDatabaseNotFound is returned by Open when the file does not exist and
// creation is disabled.
var ErrDatabaseNotFound = errors.New("database not found")

// CrawlDB records crawl runs, the pages they fetched and the annotations
// found on those pages.
//
// One database file holds the history of every site, so runs of the same
// host can be compared.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so that readers such as the
	// history command do not block a running crawl.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	mode := "rw"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		mode = "rwc"
	} else if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, dbPath)
	} else if err != nil {
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	dsn := dbPath + "?mode=" + mode + "&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer; concurrent crawls queue on this connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{db: db, dbPath: dbPath}

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

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id TEXT PRIMARY KEY,
		seed_url TEXT NOT NULL,
		host TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		pages_visited INTEGER DEFAULT 0,
		pages_emitted INTEGER DEFAULT 0,
		pages_failed INTEGER DEFAULT 0,
		annotations_found INTEGER DEFAULT 0,
		annotations_valid INTEGER DEFAULT 0,
		annotations_stored INTEGER DEFAULT 0,
		cancelled INTEGER DEFAULT 0,
		error TEXT DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_host ON crawl_runs(host);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON crawl_runs(started_at);

	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES crawl_runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		final_url TEXT,
		title TEXT,
		status_code INTEGER,
		content_type TEXT,
		depth INTEGER,
		size INTEGER,
		content_hash TEXT,
		fetched_at TEXT,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);

	CREATE TABLE IF NOT EXISTS annotations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		page_id INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
		type TEXT,
		location TEXT,
		valid INTEGER,
		errors TEXT,
		data TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_annotations_page ON annotations(page_id);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is a stored crawl run.
type RunRecord struct {
	ID                string
	SeedURL           string
	Host              string
	StartedAt         time.Time
	FinishedAt        time.Time
	PagesVisited      int
	PagesEmitted      int
	PagesFailed       int
	AnnotationsFound  int
	AnnotationsValid  int
	AnnotationsStored int
	Cancelled         bool
	Error             string
}

// Finished reports whether the run was closed with FinishRun.
func (r *RunRecord) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// PageRecord is a stored page of a run.
type PageRecord struct {
	ID          int64
	RunID       string
	URL         string
	FinalURL    string
	Title       string
	StatusCode  int
	ContentType string
	Depth       int
	Size        int
	ContentHash string
	FetchedAt   time.Time

	// Annotations is the number of annotations recorded for the page.
	Annotations int
}

// AnnotationRecord is a stored annotation of a page.
type AnnotationRecord struct {
	ID       int64
	PageID   int64
	Type     string
	Location string
	Valid    bool
	Errors   []string
	Data     model.Annotation
}

// StartRun records a new crawl run and returns its ID.
func (cdb *CrawlDB) StartRun(ctx context.Context, seedURL, host string, startedAt time.Time) (string, error) {
	id := uuid.NewString()

	_, err := cdb.db.ExecContext(ctx,
		`INSERT INTO crawl_runs (id, seed_url, host, started_at) VALUES (?, ?, ?, ?)`,
		id, seedURL, host, formatTimestamp(startedAt),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	return id, nil
}

// FinishRun stores the final counters of summary in its run.
func (cdb *CrawlDB) FinishRun(ctx context.Context, summary *model.CrawlSummary) error {
	if summary.RunID == "" {
		return fmt.Errorf("%w: summary has no run ID", ErrRunNotFound)
	}

	finishedAt := summary.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}

	result, err := cdb.db.ExecContext(ctx, `
	UPDATE crawl_runs SET
		finished_at = ?,
		pages_visited = ?,
		pages_emitted = ?,
		pages_failed = ?,
		annotations_found = ?,
		annotations_valid = ?,
		annotations_stored = ?,
		cancelled = ?,
		error = ?
	WHERE id = ?
	`,
		formatTimestamp(finishedAt),
		summary.PagesVisited,
		summary.PagesEmitted,
		summary.PagesFailed,
		summary.AnnotationsFound,
		summary.AnnotationsValid,
		summary.AnnotationsStored,
		summary.Cancelled,
		summary.Error,
		summary.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, summary.RunID)
	}
	return nil
}

// InsertPage records a page of a run and returns its row ID.
// Recording the same URL twice in one run updates the existing row.
func (cdb *CrawlDB) InsertPage(ctx context.Context, runID string, page *model.Page) (int64, error) {
	var id int64
	err := cdb.db.QueryRowContext(ctx, `
	INSERT INTO pages (run_id, url, final_url, title, status_code, content_type, depth, size, content_hash, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		final_url = excluded.final_url,
		title = excluded.title,
		status_code = excluded.status_code,
		content_type = excluded.content_type,
		depth = excluded.depth,
		size = excluded.size,
		content_hash = excluded.content_hash,
		fetched_at = excluded.fetched_at
	RETURNING id
	`,
		runID,
		page.URL,
		page.FinalURL,
		page.Title,
		page.StatusCode,
		page.ContentType,
		page.Depth,
		page.Size(),
		page.Hash(),
		formatTimestamp(page.FetchedAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert page: %w", err)
	}
	return id, nil
}

// InsertAnnotation records an annotation of a stored page.
func (cdb *CrawlDB) InsertAnnotation(ctx context.Context, pageID int64, a *model.StoredAnnotation) error {
	errorsJSON, err := json.Marshal(a.Errors)
	if err != nil {
		return fmt.Errorf("failed to serialize validation errors: %w", err)
	}
	dataJSON, err := json.Marshal(a.Data)
	if err != nil {
		return fmt.Errorf("failed to serialize annotation: %w", err)
	}

	_, err = cdb.db.ExecContext(ctx,
		`INSERT INTO annotations (page_id, type, location, valid, errors, data) VALUES (?, ?, ?, ?, ?, ?)`,
		pageID, a.Type, a.Location, a.Valid(), string(errorsJSON), string(dataJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert annotation: %w", err)
	}
	return nil
}

const runColumns = `id, seed_url, host, started_at, finished_at, pages_visited, pages_emitted, pages_failed,
	annotations_found, annotations_valid, annotations_stored, cancelled, error`

// ListRuns returns runs newest first. An empty host lists every host.
// limit <= 0 returns all runs.
func (cdb *CrawlDB) ListRuns(ctx context.Context, host string, limit int) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM crawl_runs WHERE 1=1`
	args := make([]any, 0)

	if host != "" {
		query += " AND host = ?"
		args = append(args, host)
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun returns the run with the given ID, or the single run whose ID
// starts with it.
func (cdb *CrawlDB) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty ID", ErrRunNotFound)
	}

	rows, err := cdb.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM crawl_runs WHERE substr(id, 1, length(?)) = ? ORDER BY id = ? DESC LIMIT 2`,
		id, id, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	defer rows.Close()

	var found []*RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	switch {
	case len(found) == 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case found[0].ID == id || len(found) == 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %s matches more than one run", ErrRunNotFound, id)
	}
}

// ListPages returns the pages of a run in the order they were recorded.
func (cdb *CrawlDB) ListPages(ctx context.Context, runID string) ([]PageRecord, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT p.id, p.run_id, p.url, p.final_url, p.title, p.status_code, p.content_type,
		p.depth, p.size, p.content_hash, p.fetched_at, COUNT(a.id)
	FROM pages p
	LEFT JOIN annotations a ON a.page_id = p.id
	WHERE p.run_id = ?
	GROUP BY p.id
	ORDER BY p.id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var pages []PageRecord
	for rows.Next() {
		var p PageRecord
		var fetchedAt string
		if err := rows.Scan(&p.ID, &p.RunID, &p.URL, &p.FinalURL, &p.Title, &p.StatusCode,
			&p.ContentType, &p.Depth, &p.Size, &p.ContentHash, &fetchedAt, &p.Annotations); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		p.FetchedAt = parseTimestamp(fetchedAt)
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// ListAnnotations returns the annotations recorded for a page.
func (cdb *CrawlDB) ListAnnotations(ctx context.Context, pageID int64) ([]AnnotationRecord, error) {
	rows, err := cdb.db.QueryContext(ctx,
		`SELECT id, page_id, type, location, valid, errors, data FROM annotations WHERE page_id = ? ORDER BY id`,
		pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotations: %w", err)
	}
	defer rows.Close()

	var records []AnnotationRecord
	for rows.Next() {
		var r AnnotationRecord
		var errorsJSON, dataJSON string
		if err := rows.Scan(&r.ID, &r.PageID, &r.Type, &r.Location, &r.Valid, &errorsJSON, &dataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan annotation: %w", err)
		}
		if err := json.Unmarshal([]byte(errorsJSON), &r.Errors); err != nil {
			return nil, fmt.Errorf("failed to parse validation errors: %w", err)
		}
		if err := json.Unmarshal([]byte(dataJSON), &r.Data); err != nil {
			return nil, fmt.Errorf("failed to parse annotation: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// LastPageHash returns the content hash recorded for url by the most recent
// run other than excludeRunID, or "" if the page was never recorded.
func (cdb *CrawlDB) LastPageHash(ctx context.Context, url, excludeRunID string) (string, error) {
	var hash string
	err := cdb.db.QueryRowContext(ctx, `
	SELECT p.content_hash FROM pages p
	JOIN crawl_runs r ON r.id = p.run_id
	WHERE p.url = ? AND p.run_id != ?
	ORDER BY r.started_at DESC
	LIMIT 1
	`, url, excludeRunID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get page hash: %w", err)
	}
	return hash, nil
}

// DeleteRun removes a run with its pages and annotations.
func (cdb *CrawlDB) DeleteRun(ctx context.Context, id string) error {
	result, err := cdb.db.ExecContext(ctx, `DELETE FROM crawl_runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var run RunRecord
	var startedAt string
	var finishedAt sql.NullString
	if err := row.Scan(&run.ID, &run.SeedURL, &run.Host, &startedAt, &finishedAt,
		&run.PagesVisited, &run.PagesEmitted, &run.PagesFailed,
		&run.AnnotationsFound, &run.AnnotationsValid, &run.AnnotationsStored,
		&run.Cancelled, &run.Error); err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	run.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTimestamp(finishedAt.String)
	}
	return &run, nil
}

// timestampLayout has a fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that SQLite may return.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries each known format and returns the zero time when
// none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
