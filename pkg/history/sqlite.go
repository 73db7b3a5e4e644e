package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the history database at path.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// one connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	s, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an open database, creating the schema if needed.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS run_history (
		run_id TEXT PRIMARY KEY,
		scenario TEXT NOT NULL,
		passed INTEGER NOT NULL,
		gates_passed INTEGER NOT NULL,
		failed_step TEXT,
		error TEXT,
		duration_ns INTEGER,
		checked INTEGER,
		spawned_url TEXT,
		screenshot TEXT,
		steps TEXT,
		started_at_ns INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_run_history_scenario ON run_history(scenario);
	CREATE INDEX IF NOT EXISTS idx_run_history_passed ON run_history(passed);
	CREATE INDEX IF NOT EXISTS idx_run_history_started_at ON run_history(started_at_ns);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.RunID == "" {
		return errors.New("record needs a run ID")
	}
	steps, err := json.Marshal(rec.Steps)
	if err != nil {
		return fmt.Errorf("failed to encode steps: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO run_history
		(run_id, scenario, passed, gates_passed, failed_step, error, duration_ns, checked, spawned_url, screenshot, steps, started_at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.RunID,
		rec.Scenario,
		rec.Passed,
		rec.GatesPassed,
		rec.FailedStep,
		rec.Error,
		rec.Duration.Nanoseconds(),
		rec.Checked,
		rec.SpawnedURL,
		rec.Screenshot,
		string(steps),
		rec.StartedAt.UnixNano(),
	)
	return err
}

const selectColumns = `
	SELECT run_id, scenario, passed, gates_passed, failed_step, error, duration_ns, checked, spawned_url, screenshot, steps, started_at_ns
	FROM run_history
`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	rec := &Record{}
	var durationNs, startedNs int64
	var stepsJSON string

	err := row.Scan(
		&rec.RunID,
		&rec.Scenario,
		&rec.Passed,
		&rec.GatesPassed,
		&rec.FailedStep,
		&rec.Error,
		&durationNs,
		&rec.Checked,
		&rec.SpawnedURL,
		&rec.Screenshot,
		&stepsJSON,
		&startedNs,
	)
	if err != nil {
		return nil, err
	}

	rec.Duration = time.Duration(durationNs)
	rec.StartedAt = time.Unix(0, startedNs)
	if stepsJSON != "" {
		if err := json.Unmarshal([]byte(stepsJSON), &rec.Steps); err != nil {
			return nil, fmt.Errorf("failed to decode steps for run %s: %w", rec.RunID, err)
		}
	}
	return rec, nil
}

func (s *SQLiteStore) Get(ctx context.Context, runID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE run_id = ?", runID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return rec, err
}

func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]*Record, error) {
	query := selectColumns + " WHERE 1=1"
	args := []any{}

	if filter.Scenario != "" {
		query += " AND scenario = ?"
		args = append(args, filter.Scenario)
	}
	if filter.Passed != nil {
		query += " AND passed = ?"
		args = append(args, *filter.Passed)
	}
	if !filter.After.IsZero() {
		query += " AND started_at_ns > ?"
		args = append(args, filter.After.UnixNano())
	}
	if !filter.Before.IsZero() {
		query += " AND started_at_ns < ?"
		args = append(args, filter.Before.UnixNano())
	}

	query += " ORDER BY started_at_ns DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}

	return results, rows.Err()
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) as total,
			COALESCE(SUM(CASE WHEN passed = 1 THEN 1 ELSE 0 END), 0) as passed,
			COALESCE(SUM(CASE WHEN passed = 0 THEN 1 ELSE 0 END), 0) as failed,
			COALESCE(AVG(duration_ns), 0.0) as avg_duration_ns
		FROM run_history
	`)

	stats := &Stats{FailedSteps: make(map[string]int64)}
	var avgDurationNs float64

	if err := row.Scan(&stats.TotalRuns, &stats.PassedRuns, &stats.FailedRuns, &avgDurationNs); err != nil {
		return nil, err
	}
	stats.AvgDuration = time.Duration(int64(avgDurationNs))

	rows, err := s.db.QueryContext(ctx, `
		SELECT failed_step, COUNT(*)
		FROM run_history
		WHERE passed = 0 AND failed_step != ''
		GROUP BY failed_step
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var step string
		var count int64
		if err := rows.Scan(&step, &count); err != nil {
			return nil, err
		}
		stats.FailedSteps[step] = count
	}

	return stats, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
