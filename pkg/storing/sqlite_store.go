package storing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"UsageForecaster/pkg/models"
)

// SQLiteStore keeps the run log in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the database at dbPath. Runs that were
// still marked running by a previous process are closed as failed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(10000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			slog.Warn("Failed to set pragma", "pragma", p, "error", err)
		}
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	n, err := store.closeInterrupted()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if n > 0 {
		slog.Warn("Marked interrupted runs as failed", "count", n)
	}
	slog.Info("Run log opened", "db", dbPath)
	return store, nil
}

// InitSchema creates the tables and records the schema version.
func (s *SQLiteStore) InitSchema() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for schema initialization: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(SchemaVersionTable); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var current int
	err = tx.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	if current < 1 {
		if _, err := tx.Exec(RunSchema); err != nil {
			return fmt.Errorf("failed to create runs table: %w", err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("failed to update schema version to %d: %w", schemaVersion, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) closeInterrupted() (int64, error) {
	res, err := s.db.Exec(
		"UPDATE runs SET status = ?, failure = ?, finished_at = ? WHERE status = ?",
		string(models.RunFailed), "interrupted by restart", time.Now().UnixMicro(), string(models.RunRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to close interrupted runs: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Save(ctx context.Context, run models.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var finished sql.NullInt64
	if run.FinishedAt != nil {
		finished = sql.NullInt64{Int64: run.FinishedAt.UnixMicro(), Valid: true}
	}
	var stderr sql.NullString
	if run.Error != nil {
		stderr = sql.NullString{String: *run.Error, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, model, status, exit_code, output, error, failure, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			exit_code = excluded.exit_code,
			output = excluded.output,
			error = excluded.error,
			failure = excluded.failure,
			finished_at = excluded.finished_at`,
		run.ID, run.Model, string(run.Status), run.ExitCode, run.Output, stderr, run.Failure,
		run.StartedAt.UnixMicro(), finished,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

const runColumns = "id, model, status, exit_code, output, error, failure, started_at, finished_at"

func (s *SQLiteStore) Get(ctx context.Context, id string) (models.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RunResult{}, ErrRunNotFound
	}
	if err != nil {
		return models.RunResult{}, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]models.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		query strings.Builder
		args  []interface{}
	)
	query.WriteString("SELECT " + runColumns + " FROM runs")
	if filter.Model != "" {
		query.WriteString(" WHERE model = ?")
		args = append(args, filter.Model)
	}
	query.WriteString(" ORDER BY started_at DESC, rowid DESC LIMIT ?")
	args = append(args, filter.limit())

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.RunResult
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (models.RunResult, error) {
	var (
		run      models.RunResult
		status   string
		stderr   sql.NullString
		started  int64
		finished sql.NullInt64
	)
	err := row.Scan(&run.ID, &run.Model, &status, &run.ExitCode, &run.Output, &stderr, &run.Failure, &started, &finished)
	if err != nil {
		return models.RunResult{}, err
	}
	run.Status = models.RunStatus(status)
	run.StartedAt = time.UnixMicro(started).UTC()
	if stderr.Valid {
		v := stderr.String
		run.Error = &v
	}
	if finished.Valid {
		t := time.UnixMicro(finished.Int64).UTC()
		run.FinishedAt = &t
	}
	return run, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
