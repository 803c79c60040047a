package main

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cloudmesh/internal/codec"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		args []string
		want int
	}{
		{[]string{"-shape", "grid", "-n", "4"}, 16},
		{[]string{"-shape", "lattice", "-n", "3"}, 27},
		{[]string{"-shape", "sphere", "-n", "40"}, 40},
		{[]string{"-shape", "uniform", "-n", "25", "-noise", "0.1"}, 25},
		{[]string{"-shape", "grid", "-n", "5", "-outliers", "3"}, 28},
	}
	for _, tt := range tests {
		cfg, err := parseFlags(tt.args, io.Discard)
		require.NoError(t, err)
		pts, err := generate(cfg)
		require.NoError(t, err)
		assert.Len(t, pts, tt.want, "%v", tt.args)
	}
}

func TestGenerateIsSeeded(t *testing.T) {
	cfg, err := parseFlags([]string{"-shape", "uniform", "-n", "10", "-seed", "42"}, io.Discard)
	require.NoError(t, err)
	a, err := generate(cfg)
	require.NoError(t, err)
	b, err := generate(cfg)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParseFlagsErrors(t *testing.T) {
	for _, args := range [][]string{{"-n", "0"}, {"-noise", "-1"}, {"-outliers", "-2"}, {"-bogus"}} {
		_, err := parseFlags(args, io.Discard)
		assert.Error(t, err, "%v", args)
	}

	cfg, err := parseFlags([]string{"-shape", "torus"}, io.Discard)
	require.NoError(t, err)
	_, err = generate(cfg)
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	cfg, err := parseFlags([]string{"-shape", "grid", "-n", "3"}, io.Discard)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, run(cfg, &buf))
	pts, err := codec.DecodePoints(&buf, codec.FormatXYZ)
	require.NoError(t, err)
	assert.Len(t, pts, 9)

	cfg.Out = filepath.Join(t.TempDir(), "grid.pcd")
	require.NoError(t, run(cfg, io.Discard))
	pts, err = codec.ReadPoints(cfg.Out)
	require.NoError(t, err)
	assert.Len(t, pts, 9)
}
