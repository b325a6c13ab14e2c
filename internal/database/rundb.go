package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/ballotresearch/internal/model"
)

// FileName is the database file name inside the data directory.
const FileName = "ballotresearch.db"

// storedTimeFormat has a fixed width so started_at sorts as text.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned by GetRun when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// RunDB provides storage for run reports and per-link resolutions.
type RunDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file when missing.
	CreateIfNotExists bool

	// EnableWAL turns on write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the run database in dbDir.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (rdb *RunDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

func (rdb *RunDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uuid TEXT,
		started_at TEXT NOT NULL,
		duration_ns INTEGER NOT NULL DEFAULT 0,
		source TEXT NOT NULL,
		input_name TEXT,
		text_digest TEXT NOT NULL,
		link_count INTEGER NOT NULL DEFAULT 0,
		resolved_count INTEGER NOT NULL DEFAULT 0,
		failed_count INTEGER NOT NULL DEFAULT 0,
		original_path TEXT,
		resolved_path TEXT,
		error TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_digest ON runs(text_digest);

	CREATE TABLE IF NOT EXISTS resolutions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		position INTEGER NOT NULL,
		link TEXT NOT NULL,
		destination TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		elapsed_ns INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_resolutions_run ON resolutions(run_id);
	CREATE INDEX IF NOT EXISTS idx_resolutions_link ON resolutions(link);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores report and its resolutions in one transaction and sets
// report.ID to the new row ID.
func (rdb *RunDB) SaveRun(ctx context.Context, report *model.RunReport) (int64, error) {
	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after Commit
	}()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (uuid, started_at, duration_ns, source, input_name, text_digest,
		link_count, resolved_count, failed_count, original_path, resolved_path, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.UUID,
		report.StartedAt.UTC().Format(storedTimeFormat),
		int64(report.Duration),
		string(report.Source),
		report.InputName,
		report.TextDigest,
		report.LinkCount,
		report.ResolvedCount,
		report.FailedCount,
		report.OriginalPath,
		report.ResolvedPath,
		report.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO resolutions (run_id, position, link, destination, status, error, elapsed_ns)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare resolution insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range report.Resolutions {
		if _, err := stmt.ExecContext(ctx,
			id, i, rec.Link, rec.Destination, rec.Status.String(), rec.Error, int64(rec.Elapsed),
		); err != nil {
			return 0, fmt.Errorf("failed to insert resolution: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	report.ID = id
	return id, nil
}

const runColumns = `id, uuid, started_at, duration_ns, source, input_name, text_digest,
	link_count, resolved_count, failed_count, original_path, resolved_path, error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.RunReport, error) {
	var (
		report     model.RunReport
		runUUID    sql.NullString
		startedAt  string
		durationNS int64
		source     string
		inputName  sql.NullString
		origPath   sql.NullString
		resPath    sql.NullString
		errText    sql.NullString
	)

	if err := row.Scan(
		&report.ID,
		&runUUID,
		&startedAt,
		&durationNS,
		&source,
		&inputName,
		&report.TextDigest,
		&report.LinkCount,
		&report.ResolvedCount,
		&report.FailedCount,
		&origPath,
		&resPath,
		&errText,
	); err != nil {
		return nil, err
	}

	report.UUID = runUUID.String
	report.StartedAt = parseTimestamp(startedAt)
	report.Duration = time.Duration(durationNS)
	report.Source = model.Source(source)
	report.InputName = inputName.String
	report.OriginalPath = origPath.String
	report.ResolvedPath = resPath.String
	report.Error = errText.String

	return &report, nil
}

// GetRun returns the run with the given ID, resolutions included.
func (rdb *RunDB) GetRun(ctx context.Context, id int64) (*model.RunReport, error) {
	row := rdb.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)

	report, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	resolutions, err := rdb.resolutionsOf(ctx, id)
	if err != nil {
		return nil, err
	}
	report.Resolutions = resolutions

	return report, nil
}

func (rdb *RunDB) resolutionsOf(ctx context.Context, runID int64) ([]model.ResolutionRecord, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT link, destination, status, error, elapsed_ns
	FROM resolutions
	WHERE run_id = ?
	ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolutions: %w", err)
	}
	defer rows.Close()

	var records []model.ResolutionRecord
	for rows.Next() {
		var (
			rec       model.ResolutionRecord
			status    string
			errText   sql.NullString
			elapsedNS int64
		)
		if err := rows.Scan(&rec.Link, &rec.Destination, &status, &errText, &elapsedNS); err != nil {
			return nil, fmt.Errorf("failed to scan resolution: %w", err)
		}
		rec.Status = model.ParseStatus(status)
		rec.Error = errText.String
		rec.Elapsed = time.Duration(elapsedNS)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// ListRuns returns the most recent runs, newest first, without resolutions.
// A non-positive limit returns every run.
func (rdb *RunDB) ListRuns(ctx context.Context, limit int) ([]*model.RunReport, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id DESC"
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.RunReport
	for rows.Next() {
		report, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, report)
	}

	return runs, rows.Err()
}

// LookupResolution returns the destination of the most recent successful
// resolution of link. ok is false when the link was never resolved.
func (rdb *RunDB) LookupResolution(ctx context.Context, link string) (destination string, ok bool, err error) {
	err = rdb.db.QueryRowContext(ctx, `
	SELECT r.destination
	FROM resolutions r
	JOIN runs ON runs.id = r.run_id
	WHERE r.link = ? AND r.status = ?
	ORDER BY runs.started_at DESC, r.id DESC
	LIMIT 1
	`, link, model.StatusResolved.String()).Scan(&destination)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up resolution: %w", err)
	}
	return destination, true, nil
}

// timestampFormats lists the layouts SQLite text timestamps may use,
// most specific first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp returns the zero time when no layout matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
