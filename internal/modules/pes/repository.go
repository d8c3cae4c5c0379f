package pes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrRunNotFound is returned when no scan run has the requested id.
var ErrRunNotFound = errors.New("scan run not found")

// RunStatus is the lifecycle state of a scan run.
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// Run is a persisted scan request together with its outcome.
type Run struct {
	ID            string     `json:"id"`
	Molecule      string     `json:"molecule"`
	Points        []float64  `json:"points"`
	Ansatz        string     `json:"ansatz"`
	Reps          int        `json:"reps"`
	MaxIterations int        `json:"max_iterations"`
	Seed          int64      `json:"seed"`
	Workers       int        `json:"workers"`
	Status        RunStatus  `json:"status"`
	Error         string     `json:"error,omitempty"`
	Result        *Result    `json:"result,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Options returns the scanner options recorded in the run.
func (r *Run) Options() Options {
	return Options{
		Ansatz:        r.Ansatz,
		Reps:          r.Reps,
		MaxIterations: r.MaxIterations,
		Seed:          r.Seed,
		Workers:       r.Workers,
	}
}

// Repository stores scan runs in the scan_runs table.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new scan run repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "scan_runs").Logger(),
	}
}

const runColumns = `id, molecule, points, ansatz, reps, max_iterations, seed, workers,
	status, error, result, created_at, started_at, completed_at`

// Create inserts a pending run. An empty ID is replaced by a new UUID.
func (r *Repository) Create(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = StatusPending
	}
	if run.Workers <= 0 {
		run.Workers = 1
	}

	points, err := json.Marshal(run.Points)
	if err != nil {
		return fmt.Errorf("failed to marshal points: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO scan_runs (id, molecule, points, ansatz, reps, max_iterations, seed, workers, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Molecule, string(points), run.Ansatz, run.Reps, run.MaxIterations,
		run.Seed, run.Workers, string(run.Status), run.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert scan run: %w", err)
	}

	r.log.Debug().Str("id", run.ID).Str("molecule", run.Molecule).Msg("Scan run created")
	return nil
}

// Get returns the run with the given id or ErrRunNotFound.
func (r *Repository) Get(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM scan_runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan run %s: %w", id, err)
	}
	return run, nil
}

// List returns the newest runs first. A non-positive limit returns all runs.
func (r *Repository) List(ctx context.Context, limit int) ([]*Run, error) {
	query := "SELECT " + runColumns + " FROM scan_runs ORDER BY created_at DESC, id"
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scan runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scan runs: %w", err)
	}
	return runs, nil
}

// MarkRunning records the start of a run.
func (r *Repository) MarkRunning(ctx context.Context, id string) error {
	return r.update(ctx, id, `UPDATE scan_runs SET status = ?, started_at = ? WHERE id = ?`,
		string(StatusRunning), time.Now().Unix(), id)
}

// Complete stores the result table of a finished run.
func (r *Repository) Complete(ctx context.Context, id string, result *Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	return r.update(ctx, id, `UPDATE scan_runs SET status = ?, result = ?, error = '', completed_at = ? WHERE id = ?`,
		string(StatusCompleted), string(data), time.Now().Unix(), id)
}

// Fail records the error that aborted a run.
func (r *Repository) Fail(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return r.update(ctx, id, `UPDATE scan_runs SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(StatusFailed), msg, time.Now().Unix(), id)
}

// CountByStatus returns the number of runs per status.
func (r *Repository) CountByStatus(ctx context.Context) (map[RunStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM scan_runs GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count scan runs: %w", err)
	}
	defer rows.Close()

	counts := make(map[RunStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[RunStatus(status)] = n
	}
	return counts, rows.Err()
}

// ResetStale marks runs created before the given time and still pending or
// running as failed. Created times have second precision.
func (r *Repository) ResetStale(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scan_runs SET status = ?, error = ?, completed_at = ? WHERE status IN (?, ?) AND created_at < ?`,
		string(StatusFailed), "interrupted by restart", time.Now().Unix(),
		string(StatusPending), string(StatusRunning), before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to reset stale scan runs: %w", err)
	}
	return res.RowsAffected()
}

func (r *Repository) update(ctx context.Context, id, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update scan run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update scan run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run         Run
		points      string
		status      string
		result      sql.NullString
		createdAt   int64
		startedAt   sql.NullInt64
		completedAt sql.NullInt64
	)
	err := row.Scan(&run.ID, &run.Molecule, &points, &run.Ansatz, &run.Reps, &run.MaxIterations,
		&run.Seed, &run.Workers, &status, &run.Error, &result, &createdAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(points), &run.Points); err != nil {
		return nil, fmt.Errorf("failed to unmarshal points: %w", err)
	}
	if result.Valid && result.String != "" {
		var res Result
		if err := json.Unmarshal([]byte(result.String), &res); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		run.Result = &res
	}

	run.Status = RunStatus(status)
	run.CreatedAt = time.Unix(createdAt, 0)
	if startedAt.Valid {
		t := time.Unix(startedAt.Int64, 0)
		run.StartedAt = &t
	}
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0)
		run.CompletedAt = &t
	}
	return &run, nil
}
