package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cloudmesh/internal/codec"
	"github.com/banshee-data/cloudmesh/internal/config"
	"github.com/banshee-data/cloudmesh/internal/db"
	"github.com/banshee-data/cloudmesh/internal/pipeline"
	"github.com/banshee-data/cloudmesh/internal/pointcloud"
)

func writeGrid(t *testing.T, dir, name string, n int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, codec.WritePoints(path, pointcloud.Grid(n, n, 1)))
	return path
}

func TestParseFlags(t *testing.T) {
	cfg, err := parseFlags([]string{"-in", "a.xyz", "-strategy", "radius_prune", "-gamma", "2.5", "-camera", "1,0,0,0.5,0,0", "b.xyz"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.xyz", "b.xyz"}, cfg.Inputs)
	require.NotNil(t, cfg.Overrides.RefinementStrategy)
	assert.Equal(t, "radius_prune", *cfg.Overrides.RefinementStrategy)
	assert.Equal(t, 2.5, *cfg.Overrides.Gamma)
	assert.Equal(t, []float64{1, 0, 0, 0.5, 0, 0}, cfg.Overrides.InitialCamera)
	assert.Nil(t, cfg.Overrides.MeshMode, "unset flags leave overrides nil")
	assert.Nil(t, cfg.Overrides.AlphaRadius)

	tests := []struct {
		name string
		args []string
	}{
		{"no input", []string{}},
		{"bad camera count", []string{"-in", "a.xyz", "-camera", "1,2"}},
		{"bad camera value", []string{"-in", "a.xyz", "-camera", "1,2,3,4,5,x"}},
		{"list without db", []string{"-list-runs", "3"}},
		{"report with many inputs", []string{"-report", "r.html", "a.xyz", "b.xyz"}},
		{"unknown flag", []string{"-nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args, io.Discard)
			assert.Error(t, err)
		})
	}

	cfg, err = parseFlags([]string{"-version"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, cfg.Version)
}

func TestUsageDescribesVerbose(t *testing.T) {
	var usage bytes.Buffer
	_, err := parseFlags([]string{"-h"}, &usage)
	require.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, usage.String(), "Log stage start and file read/write events")
	assert.NotContains(t, usage.String(), "solver progress")
}

func TestPipelineConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("refinement_strategy: radius_prune\ngamma: 7\nmesh_mode: alpha_shape\n"), 0o644))

	c, err := parseFlags([]string{"-in", "x.xyz", "-config", cfgPath, "-gamma", "9"}, io.Discard)
	require.NoError(t, err)
	pcfg, err := pipelineConfig(c)
	require.NoError(t, err)
	assert.Equal(t, config.StrategyRadiusPrune, pcfg.GetRefinementStrategy())
	assert.Equal(t, 9.0, pcfg.GetGamma())
	assert.Equal(t, config.MeshModeAlphaShape, pcfg.GetMeshMode())

	c, err = parseFlags([]string{"-in", "x.xyz", "-mesh-mode", "poisson"}, io.Discard)
	require.NoError(t, err)
	_, err = pipelineConfig(c)
	assert.Error(t, err)
}

func TestRunSingleInput(t *testing.T) {
	dir := t.TempDir()
	in := writeGrid(t, dir, "grid.xyz", 5)
	out := filepath.Join(dir, "grid.obj")
	dbPath := filepath.Join(dir, "runs.db")

	c, err := parseFlags([]string{
		"-in", in, "-out", out, "-points-out", filepath.Join(dir, "smoothed.pcd"),
		"-strategy", "radius_prune", "-gamma", "100", "-min-area", "0.3",
		"-db", dbPath, "-report", filepath.Join(dir, "r.html"), "-plot", filepath.Join(dir, "w.png"), "-json",
	}, io.Discard)
	require.NoError(t, err)

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), c, &stdout))

	var s pipeline.Summary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &s))
	assert.Equal(t, 32, s.Faces)
	assert.Equal(t, 32, s.SmallFaces)

	m, err := os.Open(out)
	require.NoError(t, err)
	defer m.Close()
	decoded, err := codec.DecodeMesh(m, codec.FormatOBJ)
	require.NoError(t, err)
	assert.Len(t, decoded.Faces, 32)

	for _, name := range []string{"smoothed.pcd", "r.html", "w.png"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	store, err := db.NewDB(dbPath)
	require.NoError(t, err)
	defer store.Close()
	rec, err := store.GetRun(context.Background(), s.RunID)
	require.NoError(t, err)
	assert.Equal(t, in, rec.InputPath)
	assert.Equal(t, out, rec.OutputPath)
	assert.Contains(t, rec.ConfigJSON, `"gamma":100`)
	assert.Len(t, rec.Stages, 6)
}

func TestRunMultipleInputs(t *testing.T) {
	dir := t.TempDir()
	a := writeGrid(t, dir, "a.xyz", 5)
	b := writeGrid(t, dir, "b.xyz", 3)
	outDir := filepath.Join(dir, "meshes")
	require.NoError(t, os.Mkdir(outDir, 0o755))

	c, err := parseFlags([]string{"-out", outDir, "-strategy", "radius_prune", "-gamma", "100", a, b}, io.Discard)
	require.NoError(t, err)

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), c, &stdout))
	assert.Contains(t, stdout.String(), "a.xyz")
	assert.Contains(t, stdout.String(), "b.xyz")

	for _, name := range []string{"a.ply", "b.ply"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}
}

func TestRunFailureIsRecorded(t *testing.T) {
	dir := t.TempDir()
	in := writeGrid(t, dir, "grid.xyz", 5)
	dbPath := filepath.Join(dir, "runs.db")

	c, err := parseFlags([]string{"-in", in, "-camera", "1,0,0,0.5,0,0", "-max-iterations", "0", "-db", dbPath}, io.Discard)
	require.NoError(t, err)
	err = run(context.Background(), c, io.Discard)
	assert.ErrorIs(t, err, pointcloud.ErrConvergence)

	c, err = parseFlags([]string{"-db", dbPath, "-list-runs", "5"}, io.Discard)
	require.NoError(t, err)
	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), c, &stdout))
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "failed")
}

func TestRunMissingInput(t *testing.T) {
	c, err := parseFlags([]string{"-in", filepath.Join(t.TempDir(), "none.xyz")}, io.Discard)
	require.NoError(t, err)
	assert.Error(t, run(context.Background(), c, io.Discard))
}
