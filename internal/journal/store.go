package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"clinikondo/internal/services"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes shape. A version
// mismatch asks the user to delete the journal rather than migrating.
const schemaVersion = 1

// ErrSchemaMismatch indicates the journal was written by a different
// schema version.
var ErrSchemaMismatch = errors.New("journal schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store manages run journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the journal database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "journal", "open", "open sqlite db", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, services.Wrap(services.ErrPersistence, "journal", "open", fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}
	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "journal", "init_schema", "check schema_version table", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return services.Wrap(services.ErrPersistence, "journal", "init_schema", "read schema version", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "journal", "create_schema", "begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return services.Wrap(services.ErrPersistence, "journal", "create_schema", "apply schema", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return services.Wrap(services.ErrPersistence, "journal", "create_schema", "record version", err)
	}
	if err := tx.Commit(); err != nil {
		return services.Wrap(services.ErrPersistence, "journal", "create_schema", "commit", err)
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

// BeginRun inserts a new run row and returns its generated identifier.
func (s *Store) BeginRun(ctx context.Context, dryRun bool) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: s.now().UTC(),
		DryRun:    dryRun,
	}
	err := s.execWithRetry(ctx,
		"INSERT INTO runs (id, started_at, dry_run) VALUES (?, ?, ?)",
		run.ID, run.StartedAt.Format(time.RFC3339Nano), boolToInt(dryRun))
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "journal", "begin_run", "insert run", err)
	}
	return run, nil
}

// FinishRun stamps the run with its end time and final counters.
func (s *Store) FinishRun(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("journal finish run: nil run")
	}
	finished := s.now().UTC()
	err := s.execWithRetry(ctx,
		"UPDATE runs SET finished_at = ?, processed = ?, filed = ?, failed = ?, duplicates = ? WHERE id = ?",
		finished.Format(time.RFC3339Nano), run.Processed, run.Filed, run.Failed, run.Duplicates, run.ID)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "journal", "finish_run", "update run", err)
	}
	run.FinishedAt = &finished
	return nil
}

// RecordDocument appends one document outcome to the run.
func (s *Store) RecordDocument(ctx context.Context, entry DocumentEntry) error {
	if strings.TrimSpace(entry.RunID) == "" {
		return errors.New("journal record document: run id required")
	}
	recorded := entry.RecordedAt
	if recorded.IsZero() {
		recorded = s.now().UTC()
	}
	err := s.execWithRetry(ctx,
		`INSERT INTO documents
			(run_id, source_path, outcome, destination_path, patient_slug, document_type, failure_kind, detail, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID, entry.SourcePath, string(entry.Outcome), entry.DestinationPath,
		entry.PatientSlug, entry.DocumentType, entry.FailureKind, entry.Detail,
		recorded.Format(time.RFC3339Nano))
	if err != nil {
		return services.Wrap(services.ErrPersistence, "journal", "record_document", "insert document", err)
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, dry_run, processed, filed, failed, duplicates
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "journal", "recent_runs", "query runs", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			startedRaw string
			finished   sql.NullString
			dryRun     int
		)
		if err := rows.Scan(&run.ID, &startedRaw, &finished, &dryRun, &run.Processed, &run.Filed, &run.Failed, &run.Duplicates); err != nil {
			return nil, services.Wrap(services.ErrPersistence, "journal", "recent_runs", "scan run", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedRaw)
		run.DryRun = dryRun != 0
		if finished.Valid {
			if parsed, parseErr := time.Parse(time.RFC3339Nano, finished.String); parseErr == nil {
				run.FinishedAt = &parsed
			}
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "journal", "recent_runs", "iterate runs", err)
	}
	return runs, nil
}

// RunDocuments returns every document outcome recorded for a run, in
// insertion order.
func (s *Store) RunDocuments(ctx context.Context, runID string) ([]DocumentEntry, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, source_path, outcome, destination_path, patient_slug, document_type, failure_kind, detail, recorded_at
		 FROM documents WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "journal", "run_documents", "query documents", err)
	}
	defer rows.Close()

	var entries []DocumentEntry
	for rows.Next() {
		var (
			entry       DocumentEntry
			outcome     string
			recordedRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.RunID, &entry.SourcePath, &outcome, &entry.DestinationPath,
			&entry.PatientSlug, &entry.DocumentType, &entry.FailureKind, &entry.Detail, &recordedRaw); err != nil {
			return nil, services.Wrap(services.ErrPersistence, "journal", "run_documents", "scan document", err)
		}
		entry.Outcome = Outcome(outcome)
		entry.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedRaw)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "journal", "run_documents", "iterate documents", err)
	}
	return entries, nil
}

// OutcomeTotals aggregates document outcomes across all runs.
func (s *Store) OutcomeTotals(ctx context.Context) (map[Outcome]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT outcome, COUNT(1) FROM documents GROUP BY outcome")
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "journal", "outcome_totals", "query totals", err)
	}
	defer rows.Close()

	totals := make(map[Outcome]int)
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, services.Wrap(services.ErrPersistence, "journal", "outcome_totals", "scan total", err)
		}
		totals[Outcome(outcome)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "journal", "outcome_totals", "iterate totals", err)
	}
	return totals, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
