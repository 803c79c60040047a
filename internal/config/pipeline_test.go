package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPipelineConfig(t *testing.T) {
	cfg := DefaultPipelineConfig()

	if cfg.RefinementStrategy == nil || *cfg.RefinementStrategy != StrategyReprojection {
		t.Errorf("Expected RefinementStrategy %q, got %v", StrategyReprojection, cfg.RefinementStrategy)
	}
	if cfg.Gamma == nil || *cfg.Gamma != 3.0 {
		t.Errorf("Expected Gamma 3.0, got %v", cfg.Gamma)
	}
	if cfg.MeshMode == nil || *cfg.MeshMode != MeshModePlanarDelaunay {
		t.Errorf("Expected MeshMode %q, got %v", MeshModePlanarDelaunay, cfg.MeshMode)
	}

	assert.Equal(t, 0.001, cfg.GetProcessNoiseCov())
	assert.Equal(t, 0.01, cfg.GetMeasurementNoiseCov())
	assert.Equal(t, 1.0, cfg.GetAlphaRadius())
	assert.Equal(t, 100, cfg.GetSolverMaxIterations())
	assert.Equal(t, 1e-6, cfg.GetSolverTolerance())
	assert.Equal(t, make([]float64, CameraParamCount), cfg.GetInitialCamera())
	assert.False(t, cfg.GetSkipSmoothing())
	assert.False(t, cfg.GetRefineFallback())
	assert.NoError(t, cfg.Validate())
}

func TestEmptyConfigMatchesDefaults(t *testing.T) {
	empty := EmptyPipelineConfig()
	def := DefaultPipelineConfig()

	assert.Equal(t, def.GetRefinementStrategy(), empty.GetRefinementStrategy())
	assert.Equal(t, def.GetGamma(), empty.GetGamma())
	assert.Equal(t, def.GetMeshMode(), empty.GetMeshMode())
	assert.Equal(t, def.GetMaxEdgeLength(), empty.GetMaxEdgeLength())
	assert.Equal(t, def.GetMinFaceArea(), empty.GetMinFaceArea())
}

func TestLoadPipelineConfigJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "pipeline.json")

	testJSON := `{
  "refinement_strategy": "radius_prune",
  "gamma": 2.5,
  "mesh_mode": "alpha_shape",
  "alpha_radius": 0.75,
  "skip_smoothing": true,
  "initial_camera": [100, 0, 0, 0.001, 0, 0]
}`
	require.NoError(t, os.WriteFile(configPath, []byte(testJSON), 0644))

	cfg, err := LoadPipelineConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, StrategyRadiusPrune, cfg.GetRefinementStrategy())
	assert.Equal(t, 2.5, cfg.GetGamma())
	assert.Equal(t, MeshModeAlphaShape, cfg.GetMeshMode())
	assert.Equal(t, 0.75, cfg.GetAlphaRadius())
	assert.True(t, cfg.GetSkipSmoothing())
	assert.Equal(t, []float64{100, 0, 0, 0.001, 0, 0}, cfg.GetInitialCamera())

	// Unset keys keep defaults
	assert.Equal(t, 0.001, cfg.GetProcessNoiseCov())
	assert.Equal(t, 100, cfg.GetSolverMaxIterations())
}

func TestLoadPipelineConfigYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "pipeline.yaml")

	testYAML := `
refinement_strategy: radius_prune
gamma: 4
process_noise_cov: 0.5
measurement_noise_cov: 0.25
max_edge_length: 1.5
`
	require.NoError(t, os.WriteFile(configPath, []byte(testYAML), 0644))

	cfg, err := LoadPipelineConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, StrategyRadiusPrune, cfg.GetRefinementStrategy())
	assert.Equal(t, 4.0, cfg.GetGamma())
	assert.Equal(t, 0.5, cfg.GetProcessNoiseCov())
	assert.Equal(t, 0.25, cfg.GetMeasurementNoiseCov())
	assert.Equal(t, 1.5, cfg.GetMaxEdgeLength())
}

func TestLoadPipelineConfigErrors(t *testing.T) {
	tmpDir := t.TempDir()

	write := func(name, body string) string {
		p := filepath.Join(tmpDir, name)
		if err := os.WriteFile(p, []byte(body), 0644); err != nil {
			t.Fatalf("Failed to write test config: %v", err)
		}
		return p
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", "/nonexistent/path/to/config.json"},
		{"wrong extension", write("pipeline.toml", "gamma = 1")},
		{"invalid json", write("bad.json", `{"gamma": "invalid"`)},
		{"invalid yaml", write("bad.yaml", "gamma: [1, 2\n")},
		{"unknown strategy", write("strategy.json", `{"refinement_strategy": "icp"}`)},
		{"negative gamma", write("gamma.json", `{"gamma": -1}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadPipelineConfig(tt.path); err == nil {
				t.Errorf("LoadPipelineConfig(%q) expected error, got nil", tt.path)
			}
		})
	}
}

func TestLoadPipelineConfigTooLarge(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "huge.json")
	big := make([]byte, 1024*1024+1)
	for i := range big {
		big[i] = ' '
	}
	require.NoError(t, os.WriteFile(configPath, big, 0644))

	_, err := LoadPipelineConfig(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *PipelineConfig
		wantErr bool
	}{
		{
			name:    "valid config",
			cfg:     DefaultPipelineConfig(),
			wantErr: false,
		},
		{
			name:    "empty config is valid",
			cfg:     &PipelineConfig{},
			wantErr: false,
		},
		{
			name:    "unknown refinement strategy",
			cfg:     &PipelineConfig{RefinementStrategy: ptrString("bundle")},
			wantErr: true,
		},
		{
			name:    "unknown mesh mode",
			cfg:     &PipelineConfig{MeshMode: ptrString("poisson")},
			wantErr: true,
		},
		{
			name:    "negative process noise",
			cfg:     &PipelineConfig{ProcessNoiseCov: ptrFloat64(-0.1)},
			wantErr: true,
		},
		{
			name:    "negative measurement noise",
			cfg:     &PipelineConfig{MeasurementNoiseCov: ptrFloat64(-0.1)},
			wantErr: true,
		},
		{
			name:    "negative iterations",
			cfg:     &PipelineConfig{SolverMaxIterations: ptrInt(-1)},
			wantErr: true,
		},
		{
			name:    "negative tolerance",
			cfg:     &PipelineConfig{SolverTolerance: ptrFloat64(-1e-3)},
			wantErr: true,
		},
		{
			name:    "short camera vector",
			cfg:     &PipelineConfig{InitialCamera: []float64{1, 2, 3}},
			wantErr: true,
		},
		{
			name:    "negative max edge length",
			cfg:     &PipelineConfig{MaxEdgeLength: ptrFloat64(-2)},
			wantErr: true,
		},
		{
			name:    "negative min face area",
			cfg:     &PipelineConfig{MinFaceArea: ptrFloat64(-2)},
			wantErr: true,
		},
		{
			name:    "nan gamma",
			cfg:     &PipelineConfig{Gamma: ptrFloat64(math.NaN())},
			wantErr: true,
		},
		{
			name:    "infinite tolerance",
			cfg:     &PipelineConfig{SolverTolerance: ptrFloat64(math.Inf(1))},
			wantErr: true,
		},
		{
			name:    "nan alpha",
			cfg:     &PipelineConfig{AlphaRadius: ptrFloat64(math.NaN())},
			wantErr: true,
		},
		{
			name:    "negative infinite alpha",
			cfg:     &PipelineConfig{AlphaRadius: ptrFloat64(math.Inf(-1))},
			wantErr: true,
		},
		{
			name:    "nan process noise",
			cfg:     &PipelineConfig{ProcessNoiseCov: ptrFloat64(math.NaN())},
			wantErr: true,
		},
		{
			name:    "infinite measurement noise",
			cfg:     &PipelineConfig{MeasurementNoiseCov: ptrFloat64(math.Inf(1))},
			wantErr: true,
		},
		{
			name:    "nan max edge length",
			cfg:     &PipelineConfig{MaxEdgeLength: ptrFloat64(math.NaN())},
			wantErr: true,
		},
		{
			name:    "infinite min face area",
			cfg:     &PipelineConfig{MinFaceArea: ptrFloat64(math.Inf(1))},
			wantErr: true,
		},
		{
			name:    "nan camera entry",
			cfg:     &PipelineConfig{InitialCamera: []float64{1, 2, math.NaN(), 4, 5, 6}},
			wantErr: true,
		},
		{
			name:    "negative alpha is valid",
			cfg:     &PipelineConfig{AlphaRadius: ptrFloat64(-1)},
			wantErr: false,
		},
		{
			name:    "zero alpha is valid",
			cfg:     &PipelineConfig{AlphaRadius: ptrFloat64(0)},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, StrategyReprojection, cfg.GetRefinementStrategy())
	assert.Equal(t, MeshModePlanarDelaunay, cfg.GetMeshMode())
	assert.Equal(t, 3.0, cfg.GetGamma())
}

func TestClone(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.InitialCamera = []float64{1, 2, 3, 4, 5, 6}
	c := cfg.Clone()
	c.InitialCamera[0] = 99

	assert.Equal(t, 1.0, cfg.InitialCamera[0])
	assert.Equal(t, cfg, cfg.Clone())

	*c.Gamma = 42
	*c.RefinementStrategy = StrategyRadiusPrune
	*c.SolverMaxIterations = 1
	*c.RefineFallback = !*cfg.RefineFallback
	*c.MeshMode = MeshModeAlphaShape
	*c.MinFaceArea = 7

	want := DefaultPipelineConfig()
	assert.Equal(t, want.GetGamma(), cfg.GetGamma())
	assert.Equal(t, want.GetRefinementStrategy(), cfg.GetRefinementStrategy())
	assert.Equal(t, want.GetSolverMaxIterations(), cfg.GetSolverMaxIterations())
	assert.Equal(t, want.GetRefineFallback(), cfg.GetRefineFallback())
	assert.Equal(t, want.GetMeshMode(), cfg.GetMeshMode())
	assert.Equal(t, want.GetMinFaceArea(), cfg.GetMinFaceArea())

	empty := (&PipelineConfig{}).Clone()
	assert.Equal(t, &PipelineConfig{}, empty)
}
