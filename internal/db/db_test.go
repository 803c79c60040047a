package db

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cloudmesh/internal/pipeline"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := NewDB(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func sampleRecord(id string, started time.Time) RunRecord {
	return RunRecord{
		Summary: pipeline.Summary{
			RunID:          id,
			StartedAt:      started,
			Strategy:       "radius_prune",
			MeshMode:       "planar_delaunay",
			InputPoints:    25,
			FilteredPoints: 25,
			RefinedPoints:  25,
			Vertices:       25,
			Faces:          32,
			SmallFaces:     2,
			SurfaceArea:    8,
			TotalMS:        12.5,
			Stages: []pipeline.StageSummary{
				{Stage: pipeline.StageNormalize, InputSize: 25, OutputSize: 25, DurationMS: 0.5},
				{Stage: pipeline.StageReconstruct, InputSize: 25, OutputSize: 32, DurationMS: 4},
			},
		},
		InputPath:  "grid.xyz",
		OutputPath: "grid.ply",
		ConfigJSON: `{"gamma":3}`,
	}
}

func TestNewDB_MigratesSchema(t *testing.T) {
	database := setupTestDB(t)

	version, dirty, err := database.MigrateVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	for _, table := range []string{"pipeline_runs", "pipeline_stage_timings"} {
		var name string
		err := database.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestNewDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	first, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, first.InsertRun(context.Background(), sampleRecord("a", time.Unix(100, 0))))
	require.NoError(t, first.Close())

	second, err := NewDB(path)
	require.NoError(t, err)
	defer second.Close()
	runs, err := second.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestMigrateDown(t *testing.T) {
	database := setupTestDB(t)
	require.NoError(t, database.MigrateDown(MigrationsFS()))

	version, _, err := database.MigrateVersion(MigrationsFS())
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)

	var n int
	err = database.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name='pipeline_runs'`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMigrateUp_CustomFS(t *testing.T) {
	database, err := OpenDB(filepath.Join(t.TempDir(), "custom.db"))
	require.NoError(t, err)
	defer database.Close()

	migrations := fstest.MapFS{
		"000001_init.up.sql":   &fstest.MapFile{Data: []byte("CREATE TABLE IF NOT EXISTS t1 (id INTEGER PRIMARY KEY);")},
		"000001_init.down.sql": &fstest.MapFile{Data: []byte("DROP TABLE IF EXISTS t1;")},
	}
	require.NoError(t, database.MigrateUp(migrations))
	// Second run is a no-op.
	require.NoError(t, database.MigrateUp(migrations))

	_, err = database.Exec(`INSERT INTO t1 (id) VALUES (1)`)
	assert.NoError(t, err)
}

func TestMigrateUp_ClosedDB(t *testing.T) {
	database, err := OpenDB(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	database.Close()
	assert.Error(t, database.MigrateUp(MigrationsFS()))
}

func TestInsertAndGetRun(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	rec := sampleRecord("run-1", started)
	rec.RefineFallback = true
	rec.RefineError = "solver did not converge"
	require.NoError(t, database.InsertRun(ctx, rec))

	got, err := database.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestInsertRun_Errors(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	assert.Error(t, database.InsertRun(ctx, RunRecord{}))

	rec := sampleRecord("dup", time.Unix(1, 0))
	require.NoError(t, database.InsertRun(ctx, rec))
	assert.Error(t, database.InsertRun(ctx, rec))

	// The failed duplicate must not leave stray stage rows.
	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM pipeline_stage_timings WHERE run_id='dup'`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestInsertRun_DefaultsConfigJSON(t *testing.T) {
	database := setupTestDB(t)
	rec := sampleRecord("noconf", time.Unix(5, 0).UTC())
	rec.ConfigJSON = ""
	rec.Stages = nil
	require.NoError(t, database.InsertRun(context.Background(), rec))

	got, err := database.GetRun(context.Background(), "noconf")
	require.NoError(t, err)
	assert.Equal(t, "{}", got.ConfigJSON)
	assert.Empty(t, got.Stages)
}

func TestGetRun_NotFound(t *testing.T) {
	database := setupTestDB(t)
	_, err := database.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, database.InsertRun(ctx, sampleRecord(id, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := database.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{runs[0].RunID, runs[1].RunID, runs[2].RunID})
	assert.Nil(t, runs[0].Stages)

	runs, err = database.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestDeleteRun(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, database.InsertRun(ctx, sampleRecord("gone", time.Unix(1, 0))))

	require.NoError(t, database.DeleteRun(ctx, "gone"))
	_, err := database.GetRun(ctx, "gone")
	assert.ErrorIs(t, err, ErrRunNotFound)

	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM pipeline_stage_timings`).Scan(&n))
	assert.Equal(t, 0, n)

	assert.ErrorIs(t, database.DeleteRun(ctx, "gone"), ErrRunNotFound)
}
