package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the outcome of a recorded run.
type RunStatus string

const (
	RunRunning     RunStatus = "running"
	RunCompleted   RunStatus = "completed"
	RunInterrupted RunStatus = "interrupted"
	// RunAbandoned marks a run cut short by a target change or shutdown.
	RunAbandoned RunStatus = "abandoned"
)

// Run is one recorded start-up attempt.
type Run struct {
	ID         string     `json:"id"`
	Target     string     `json:"target"`
	Procedure  string     `json:"procedure"`
	Status     RunStatus  `json:"status"`
	LastStep   string     `json:"last_step,omitempty"`
	Progress   float64    `json:"progress"`
	SimSeconds *float64   `json:"sim_seconds,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewRun creates a running record with a fresh ID.
func NewRun(target, procedure string, now time.Time) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Target:    target,
		Procedure: procedure,
		Status:    RunRunning,
		StartedAt: now.UTC(),
	}
}

// RunRepository persists run history.
type RunRepository interface {
	Create(ctx context.Context, run *Run) error
	Update(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, limit int) ([]Run, error)
}

const runColumns = `id, target, procedure, status, last_step, progress, sim_seconds, started_at, finished_at`

// SQLiteRepository implements RunRepository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new run record.
func (r *SQLiteRepository) Create(ctx context.Context, run *Run) error {
	query := `INSERT INTO sequence_runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.Target,
		run.Procedure,
		string(run.Status),
		nullableString(run.LastStep),
		run.Progress,
		nullableFloat(run.SimSeconds),
		run.StartedAt.Format(time.RFC3339),
		nullableTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// Update stores the mutable fields of an existing run.
func (r *SQLiteRepository) Update(ctx context.Context, run *Run) error {
	query := `
		UPDATE sequence_runs SET
			status = ?, last_step = ?, progress = ?, sim_seconds = ?, finished_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(run.Status),
		nullableString(run.LastStep),
		run.Progress,
		nullableFloat(run.SimSeconds),
		nullableTime(run.FinishedAt),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Get retrieves a run by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM sequence_runs WHERE id = ?`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return run, nil
}

// List retrieves the most recent runs, newest first.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	query := `SELECT ` + runColumns + ` FROM sequence_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning run: %w", scanErr)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(scanner rowScanner) (*Run, error) {
	var run Run
	var status, startedAt string
	var lastStep, finishedAt sql.NullString
	var simSeconds sql.NullFloat64

	err := scanner.Scan(
		&run.ID,
		&run.Target,
		&run.Procedure,
		&status,
		&lastStep,
		&run.Progress,
		&simSeconds,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)
	if lastStep.Valid {
		run.LastStep = lastStep.String
	}
	if simSeconds.Valid {
		s := simSeconds.Float64
		run.SimSeconds = &s
	}
	if t, parseErr := time.Parse(time.RFC3339, startedAt); parseErr == nil {
		run.StartedAt = t
	}
	if finishedAt.Valid {
		if t, parseErr := time.Parse(time.RFC3339, finishedAt.String); parseErr == nil {
			run.FinishedAt = &t
		}
	}
	return &run, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}
