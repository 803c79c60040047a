package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/cloudmesh/internal/pipeline"
)

// ErrRunNotFound reports a run ID with no stored record.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is one stored pipeline run.
type RunRecord struct {
	pipeline.Summary
	InputPath  string `json:"input_path"`
	OutputPath string `json:"output_path"`
	// Error holds the failure message for runs that did not finish.
	Error      string `json:"error,omitempty"`
	ConfigJSON string `json:"config_json"`
}

// InsertRun stores rec and its stage timings in one transaction.
func (db *DB) InsertRun(ctx context.Context, rec RunRecord) error {
	if rec.RunID == "" {
		return fmt.Errorf("run record has no run_id")
	}
	if rec.ConfigJSON == "" {
		rec.ConfigJSON = "{}"
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO pipeline_runs (
			run_id, started_at_ns, input_path, output_path, strategy, mesh_mode,
			input_points, filtered_points, refined_points, vertices, faces,
			small_faces, surface_area, refine_fallback, refine_error, error,
			total_ms, config_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.StartedAt.UnixNano(), rec.InputPath, rec.OutputPath,
		rec.Strategy, rec.MeshMode, rec.InputPoints, rec.FilteredPoints,
		rec.RefinedPoints, rec.Vertices, rec.Faces, rec.SmallFaces,
		rec.SurfaceArea, rec.RefineFallback, rec.RefineError, rec.Error,
		rec.TotalMS, rec.ConfigJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", rec.RunID, err)
	}

	for i, s := range rec.Stages {
		_, err = tx.ExecContext(ctx, `INSERT INTO pipeline_stage_timings (
				run_id, seq, stage, input_size, output_size, duration_ms
			) VALUES (?, ?, ?, ?, ?, ?)`,
			rec.RunID, i, string(s.Stage), s.InputSize, s.OutputSize, s.DurationMS,
		)
		if err != nil {
			return fmt.Errorf("failed to insert stage %s for run %s: %w", s.Stage, rec.RunID, err)
		}
	}
	return tx.Commit()
}

const runColumns = `run_id, started_at_ns, input_path, output_path, strategy, mesh_mode,
	input_points, filtered_points, refined_points, vertices, faces,
	small_faces, surface_area, refine_fallback, refine_error, error,
	total_ms, config_json`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (RunRecord, error) {
	var (
		rec       RunRecord
		startedNS int64
	)
	err := row.Scan(
		&rec.RunID, &startedNS, &rec.InputPath, &rec.OutputPath,
		&rec.Strategy, &rec.MeshMode, &rec.InputPoints, &rec.FilteredPoints,
		&rec.RefinedPoints, &rec.Vertices, &rec.Faces, &rec.SmallFaces,
		&rec.SurfaceArea, &rec.RefineFallback, &rec.RefineError, &rec.Error,
		&rec.TotalMS, &rec.ConfigJSON,
	)
	if err != nil {
		return RunRecord{}, err
	}
	rec.StartedAt = time.Unix(0, startedNS).UTC()
	return rec, nil
}

// GetRun loads one run with its stage timings.
func (db *DB) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM pipeline_runs WHERE run_id = ?`, runID)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return RunRecord{}, err
	}

	rec.Stages, err = db.stageTimings(ctx, runID)
	if err != nil {
		return RunRecord{}, err
	}
	return rec, nil
}

func (db *DB) stageTimings(ctx context.Context, runID string) ([]pipeline.StageSummary, error) {
	rows, err := db.QueryContext(ctx, `SELECT stage, input_size, output_size, duration_ms
		FROM pipeline_stage_timings WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stages := []pipeline.StageSummary{}
	for rows.Next() {
		var s pipeline.StageSummary
		if err := rows.Scan(&s.Stage, &s.InputSize, &s.OutputSize, &s.DurationMS); err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

// ListRuns returns the most recent runs, newest first, without stage
// timings. limit <= 0 returns every run.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM pipeline_runs ORDER BY started_at_ns DESC, run_id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its stage timings.
func (db *DB) DeleteRun(ctx context.Context, runID string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM pipeline_runs WHERE run_id = ?`, runID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}
