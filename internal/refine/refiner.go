package refine

import (
	"context"
	"fmt"

	"github.com/banshee-data/cloudmesh/internal/config"
	"github.com/banshee-data/cloudmesh/internal/pointcloud"
)

// Strategy names a refinement strategy.
type Strategy string

const (
	StrategyReprojection Strategy = config.StrategyReprojection
	StrategyRadiusPrune  Strategy = config.StrategyRadiusPrune
)

// Refiner is the geometric refinement stage contract.
type Refiner interface {
	Name() Strategy
	Refine(ctx context.Context, points pointcloud.PointSet) (pointcloud.PointSet, error)
}

// Config selects and parameterizes a Refiner.
type Config struct {
	Strategy      Strategy
	Gamma         float64
	InitialCamera CameraModel
	Solver        SolverSettings
}

// ConfigFromPipeline extracts the refinement settings from a pipeline config.
func ConfigFromPipeline(cfg *config.PipelineConfig) Config {
	return Config{
		Strategy:      Strategy(cfg.GetRefinementStrategy()),
		Gamma:         cfg.GetGamma(),
		InitialCamera: CameraFromSlice(cfg.GetInitialCamera()),
		Solver: SolverSettings{
			MaxIterations: cfg.GetSolverMaxIterations(),
			Tolerance:     cfg.GetSolverTolerance(),
		},
	}
}

// New returns the Refiner named by cfg.Strategy.
func New(cfg Config) (Refiner, error) {
	switch cfg.Strategy {
	case StrategyReprojection:
		return NewReprojectionRefiner(cfg.InitialCamera, cfg.Solver), nil
	case StrategyRadiusPrune:
		return NewRadiusPruner(cfg.Gamma), nil
	default:
		return nil, fmt.Errorf("unknown refinement strategy %q", cfg.Strategy)
	}
}
