package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical pipeline defaults file.
const DefaultConfigPath = "config/pipeline.defaults.json"

// Refinement strategy names accepted by refinement_strategy.
const (
	StrategyReprojection = "reprojection"
	StrategyRadiusPrune  = "radius_prune"
)

// Mesh mode names accepted by mesh_mode.
const (
	MeshModePlanarDelaunay = "planar_delaunay"
	MeshModeAlphaShape     = "alpha_shape"
)

// CameraParamCount is the length of initial_camera.
const CameraParamCount = 6

// PipelineConfig is the configuration surface consumed by the processing
// pipeline. Every field is optional; the Get* accessors supply defaults so
// partial files are safe. The same keys are accepted from JSON and YAML.
type PipelineConfig struct {
	// Geometric refinement
	RefinementStrategy  *string   `json:"refinement_strategy,omitempty" yaml:"refinement_strategy,omitempty"`
	Gamma               *float64  `json:"gamma,omitempty" yaml:"gamma,omitempty"` // radius_prune threshold
	SolverMaxIterations *int      `json:"solver_max_iterations,omitempty" yaml:"solver_max_iterations,omitempty"`
	SolverTolerance     *float64  `json:"solver_tolerance,omitempty" yaml:"solver_tolerance,omitempty"` // RMS residual
	InitialCamera       []float64 `json:"initial_camera,omitempty" yaml:"initial_camera,omitempty"`     // [f, cx, cy, k1, k2, reserved]
	RefineFallback      *bool     `json:"refine_fallback,omitempty" yaml:"refine_fallback,omitempty"`

	// Smoother
	ProcessNoiseCov     *float64 `json:"process_noise_cov,omitempty" yaml:"process_noise_cov,omitempty"`
	MeasurementNoiseCov *float64 `json:"measurement_noise_cov,omitempty" yaml:"measurement_noise_cov,omitempty"`
	SkipSmoothing       *bool    `json:"skip_smoothing,omitempty" yaml:"skip_smoothing,omitempty"`

	// Mesh reconstruction
	MeshMode    *string  `json:"mesh_mode,omitempty" yaml:"mesh_mode,omitempty"`
	AlphaRadius *float64 `json:"alpha_radius,omitempty" yaml:"alpha_radius,omitempty"` // <= 0 means convex hull

	// Mesh post-processing (0 disables)
	MaxEdgeLength *float64 `json:"max_edge_length,omitempty" yaml:"max_edge_length,omitempty"`
	MinFaceArea   *float64 `json:"min_face_area,omitempty" yaml:"min_face_area,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyPipelineConfig returns a PipelineConfig with all fields unset.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// DefaultPipelineConfig returns a config with every field populated from
// the built-in defaults.
func DefaultPipelineConfig() *PipelineConfig {
	c := EmptyPipelineConfig()
	return &PipelineConfig{
		RefinementStrategy:  ptrString(c.GetRefinementStrategy()),
		Gamma:               ptrFloat64(c.GetGamma()),
		SolverMaxIterations: ptrInt(c.GetSolverMaxIterations()),
		SolverTolerance:     ptrFloat64(c.GetSolverTolerance()),
		InitialCamera:       c.GetInitialCamera(),
		RefineFallback:      ptrBool(c.GetRefineFallback()),
		ProcessNoiseCov:     ptrFloat64(c.GetProcessNoiseCov()),
		MeasurementNoiseCov: ptrFloat64(c.GetMeasurementNoiseCov()),
		SkipSmoothing:       ptrBool(c.GetSkipSmoothing()),
		MeshMode:            ptrString(c.GetMeshMode()),
		AlphaRadius:         ptrFloat64(c.GetAlphaRadius()),
		MaxEdgeLength:       ptrFloat64(c.GetMaxEdgeLength()),
		MinFaceArea:         ptrFloat64(c.GetMinFaceArea()),
	}
}

// LoadPipelineConfig loads a PipelineConfig from a .json, .yaml or .yml
// file no larger than 1MB. Fields omitted from the file keep their defaults.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPipelineConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents up to the repo root.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *PipelineConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/<tool>/ or deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadPipelineConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *PipelineConfig) Validate() error {
	if c.RefinementStrategy != nil {
		switch *c.RefinementStrategy {
		case StrategyReprojection, StrategyRadiusPrune:
		default:
			return fmt.Errorf("refinement_strategy must be %q or %q, got %q",
				StrategyReprojection, StrategyRadiusPrune, *c.RefinementStrategy)
		}
	}

	if c.MeshMode != nil {
		switch *c.MeshMode {
		case MeshModePlanarDelaunay, MeshModeAlphaShape:
		default:
			return fmt.Errorf("mesh_mode must be %q or %q, got %q",
				MeshModePlanarDelaunay, MeshModeAlphaShape, *c.MeshMode)
		}
	}

	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"gamma", c.Gamma},
		{"solver_tolerance", c.SolverTolerance},
		{"process_noise_cov", c.ProcessNoiseCov},
		{"measurement_noise_cov", c.MeasurementNoiseCov},
		{"alpha_radius", c.AlphaRadius},
		{"max_edge_length", c.MaxEdgeLength},
		{"min_face_area", c.MinFaceArea},
	} {
		if f.v != nil && !isFinite(*f.v) {
			return fmt.Errorf("%s must be finite, got %f", f.name, *f.v)
		}
	}
	for i, v := range c.InitialCamera {
		if !isFinite(v) {
			return fmt.Errorf("initial_camera[%d] must be finite, got %f", i, v)
		}
	}

	if c.Gamma != nil && *c.Gamma < 0 {
		return fmt.Errorf("gamma must be non-negative, got %f", *c.Gamma)
	}
	if c.SolverMaxIterations != nil && *c.SolverMaxIterations < 0 {
		return fmt.Errorf("solver_max_iterations must be non-negative, got %d", *c.SolverMaxIterations)
	}
	if c.SolverTolerance != nil && *c.SolverTolerance < 0 {
		return fmt.Errorf("solver_tolerance must be non-negative, got %f", *c.SolverTolerance)
	}
	if c.InitialCamera != nil && len(c.InitialCamera) != CameraParamCount {
		return fmt.Errorf("initial_camera must have %d values, got %d", CameraParamCount, len(c.InitialCamera))
	}
	if c.ProcessNoiseCov != nil && *c.ProcessNoiseCov < 0 {
		return fmt.Errorf("process_noise_cov must be non-negative, got %f", *c.ProcessNoiseCov)
	}
	if c.MeasurementNoiseCov != nil && *c.MeasurementNoiseCov < 0 {
		return fmt.Errorf("measurement_noise_cov must be non-negative, got %f", *c.MeasurementNoiseCov)
	}
	if c.MaxEdgeLength != nil && *c.MaxEdgeLength < 0 {
		return fmt.Errorf("max_edge_length must be non-negative, got %f", *c.MaxEdgeLength)
	}
	if c.MinFaceArea != nil && *c.MinFaceArea < 0 {
		return fmt.Errorf("min_face_area must be non-negative, got %f", *c.MinFaceArea)
	}

	return nil
}

// GetRefinementStrategy returns the refinement_strategy value or the default.
func (c *PipelineConfig) GetRefinementStrategy() string {
	if c.RefinementStrategy == nil || *c.RefinementStrategy == "" {
		return StrategyReprojection
	}
	return *c.RefinementStrategy
}

// GetGamma returns the gamma value or the default.
func (c *PipelineConfig) GetGamma() float64 {
	if c.Gamma == nil {
		return 3.0
	}
	return *c.Gamma
}

// GetSolverMaxIterations returns the solver_max_iterations value or the default.
func (c *PipelineConfig) GetSolverMaxIterations() int {
	if c.SolverMaxIterations == nil {
		return 100
	}
	return *c.SolverMaxIterations
}

// GetSolverTolerance returns the solver_tolerance value or the default.
func (c *PipelineConfig) GetSolverTolerance() float64 {
	if c.SolverTolerance == nil {
		return 1e-6
	}
	return *c.SolverTolerance
}

// GetInitialCamera returns a copy of initial_camera, or all zeros (the
// degenerate "no projection" guess) when unset.
func (c *PipelineConfig) GetInitialCamera() []float64 {
	out := make([]float64, CameraParamCount)
	if len(c.InitialCamera) == CameraParamCount {
		copy(out, c.InitialCamera)
	}
	return out
}

// GetRefineFallback returns the refine_fallback value or the default.
func (c *PipelineConfig) GetRefineFallback() bool {
	if c.RefineFallback == nil {
		return false
	}
	return *c.RefineFallback
}

// GetProcessNoiseCov returns the process_noise_cov value or the default.
func (c *PipelineConfig) GetProcessNoiseCov() float64 {
	if c.ProcessNoiseCov == nil {
		return 0.001
	}
	return *c.ProcessNoiseCov
}

// GetMeasurementNoiseCov returns the measurement_noise_cov value or the default.
func (c *PipelineConfig) GetMeasurementNoiseCov() float64 {
	if c.MeasurementNoiseCov == nil {
		return 0.01
	}
	return *c.MeasurementNoiseCov
}

// GetSkipSmoothing returns the skip_smoothing value or the default.
func (c *PipelineConfig) GetSkipSmoothing() bool {
	if c.SkipSmoothing == nil {
		return false
	}
	return *c.SkipSmoothing
}

// GetMeshMode returns the mesh_mode value or the default.
func (c *PipelineConfig) GetMeshMode() string {
	if c.MeshMode == nil || *c.MeshMode == "" {
		return MeshModePlanarDelaunay
	}
	return *c.MeshMode
}

// GetAlphaRadius returns the alpha_radius value or the default.
func (c *PipelineConfig) GetAlphaRadius() float64 {
	if c.AlphaRadius == nil {
		return 1.0
	}
	return *c.AlphaRadius
}

// GetMaxEdgeLength returns the max_edge_length value or the default (disabled).
func (c *PipelineConfig) GetMaxEdgeLength() float64 {
	if c.MaxEdgeLength == nil {
		return 0
	}
	return *c.MaxEdgeLength
}

// GetMinFaceArea returns the min_face_area value or the default (disabled).
func (c *PipelineConfig) GetMinFaceArea() float64 {
	if c.MinFaceArea == nil {
		return 0
	}
	return *c.MinFaceArea
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Clone returns a deep copy of c; no pointer is shared with the original.
func (c *PipelineConfig) Clone() *PipelineConfig {
	out := &PipelineConfig{
		RefinementStrategy:  clonePtr(c.RefinementStrategy),
		Gamma:               clonePtr(c.Gamma),
		SolverMaxIterations: clonePtr(c.SolverMaxIterations),
		SolverTolerance:     clonePtr(c.SolverTolerance),
		RefineFallback:      clonePtr(c.RefineFallback),
		ProcessNoiseCov:     clonePtr(c.ProcessNoiseCov),
		MeasurementNoiseCov: clonePtr(c.MeasurementNoiseCov),
		SkipSmoothing:       clonePtr(c.SkipSmoothing),
		MeshMode:            clonePtr(c.MeshMode),
		AlphaRadius:         clonePtr(c.AlphaRadius),
		MaxEdgeLength:       clonePtr(c.MaxEdgeLength),
		MinFaceArea:         clonePtr(c.MinFaceArea),
	}
	if c.InitialCamera != nil {
		out.InitialCamera = append([]float64(nil), c.InitialCamera...)
	}
	return out
}
