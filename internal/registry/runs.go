package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Run states.
const (
	RunRunning  = "running"
	RunFinished = "finished"
	RunFailed   = "failed"
)

// Lineage directions.
const (
	DirectionInput  = "input"
	DirectionOutput = "output"
)

// Run is one execution of a job.
type Run struct {
	ID         string
	JobType    string
	State      string
	Config     string // canonical JSON object
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// LineageEntry links a run to a version it consumed or produced.
type LineageEntry struct {
	Seq       int64
	Direction string
	Version   Version
}

// CreateRun inserts a run in the running state.
func (r *Registry) CreateRun(ctx context.Context, id, jobType string, startedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (id, job_type, state, config, started_at)
		VALUES (?, ?, ?, '{}', ?)
	`, id, jobType, RunRunning, formatTime(startedAt))
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// SetRunConfig replaces the stored configuration of a run.
func (r *Registry) SetRunConfig(ctx context.Context, id, configJSON string) error {
	return r.updateRun(ctx, "set run config", `UPDATE runs SET config = ? WHERE id = ?`, configJSON, id)
}

// FinishRun moves a run to its terminal state. errText is recorded for
// failed runs.
func (r *Registry) FinishRun(ctx context.Context, id, state, errText string, finishedAt time.Time) error {
	if state != RunFinished && state != RunFailed {
		return fmt.Errorf("finish run: invalid terminal state %q", state)
	}
	return r.updateRun(ctx, "finish run", `
		UPDATE runs SET state = ?, error = ?, finished_at = ? WHERE id = ?
	`, state, errText, formatTime(finishedAt), id)
}

func (r *Registry) updateRun(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: run %s: %w", op, args[len(args)-1], ErrNotFound)
	}
	return nil
}

// GetRun retrieves a run by id. Returns ErrNotFound if absent.
func (r *Registry) GetRun(ctx context.Context, id string) (Run, error) {
	var run Run
	var startedAt string
	var finishedAt sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, job_type, state, config, error, started_at, finished_at
		FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.JobType, &run.State, &run.Config, &run.Error, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}

	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return Run{}, err
	}
	if finishedAt.Valid {
		t, err := parseTime(finishedAt.String)
		if err != nil {
			return Run{}, err
		}
		run.FinishedAt = &t
	}
	return run, nil
}

// RecordLineage links a run to a version. Uses ON CONFLICT DO NOTHING so
// recording the same edge twice is a no-op. Each new edge gets the next
// per-run sequence number.
func (r *Registry) RecordLineage(ctx context.Context, runID string, versionID int64, direction string) error {
	if direction != DirectionInput && direction != DirectionOutput {
		return fmt.Errorf("record lineage: invalid direction %q", direction)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO run_artifacts (run_id, version_id, direction, seq)
		SELECT ?, ?, ?, COALESCE(MAX(seq), 0) + 1 FROM run_artifacts WHERE run_id = ?
		ON CONFLICT(run_id, version_id, direction) DO NOTHING
	`, runID, versionID, direction, runID)
	if err != nil {
		return fmt.Errorf("record lineage: %w", err)
	}
	return nil
}

// ReadLineage returns a run's lineage edges ordered by seq.
// Returns an empty slice (not nil) if the run has none.
func (r *Registry) ReadLineage(ctx context.Context, runID string) ([]LineageEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ra.seq, ra.direction, ra.version_id
		FROM run_artifacts ra
		WHERE ra.run_id = ?
		ORDER BY ra.seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query lineage: %w", err)
	}

	type edge struct {
		seq       int64
		direction string
		versionID int64
	}
	var edges []edge
	for rows.Next() {
		var e edge
		if err := rows.Scan(&e.seq, &e.direction, &e.versionID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan lineage: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate lineage: %w", err)
	}
	rows.Close()

	// Versions are fetched after the cursor is closed: the pool has a single
	// connection.
	entries := make([]LineageEntry, 0, len(edges))
	for _, e := range edges {
		v, err := r.GetVersionByID(ctx, e.versionID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, LineageEntry{Seq: e.seq, Direction: e.direction, Version: v})
	}
	return entries, nil
}
