package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/cloudmesh/internal/config"
	"github.com/banshee-data/cloudmesh/internal/mesh"
	"github.com/banshee-data/cloudmesh/internal/pointcloud"
	"github.com/banshee-data/cloudmesh/internal/refine"
	"github.com/banshee-data/cloudmesh/internal/smooth"
	"github.com/banshee-data/cloudmesh/internal/timeutil"
)

// Pipeline runs the processing stages for one configuration.
type Pipeline struct {
	cfg      *config.PipelineConfig
	refiner  refine.Refiner
	smoother *smooth.Smoother
	meshOpts mesh.Options
	observer Observer
	clock    timeutil.Clock
	newID    func() string
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithObserver sets the stage observer. The default is NopObserver.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithClock sets the clock used for stage timings.
func WithClock(c timeutil.Clock) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithRefiner replaces the refiner built from configuration.
func WithRefiner(r refine.Refiner) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.refiner = r
		}
	}
}

// WithIDGenerator replaces the run ID source.
func WithIDGenerator(f func() string) Option {
	return func(p *Pipeline) {
		if f != nil {
			p.newID = f
		}
	}
}

// New validates cfg and builds a Pipeline. A nil cfg uses defaults.
func New(cfg *config.PipelineConfig, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.EmptyPipelineConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	cfg = cfg.Clone()

	r, err := refine.New(refine.ConfigFromPipeline(cfg))
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:      cfg,
		refiner:  r,
		smoother: smooth.NewSmoother(cfg.GetProcessNoiseCov(), cfg.GetMeasurementNoiseCov()),
		meshOpts: mesh.Options{
			Mode:        mesh.Mode(cfg.GetMeshMode()),
			AlphaRadius: cfg.GetAlphaRadius(),
		},
		observer: NopObserver{},
		clock:    timeutil.RealClock{},
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns a copy of the pipeline configuration.
func (p *Pipeline) Config() *config.PipelineConfig {
	return p.cfg.Clone()
}

// runStage checks ctx, times fn and reports the boundary to the observer.
// fn returns the stage output size.
func (p *Pipeline) runStage(ctx context.Context, res *Result, stage Stage, inputSize int, fn func() (int, error)) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}
	p.observer.StageStarted(res.RunID, stage, inputSize)
	start := p.clock.Now()
	out, err := fn()
	elapsed := p.clock.Since(start)
	p.observer.StageFinished(res.RunID, stage, out, elapsed, err)
	if err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}
	res.Timings = append(res.Timings, StageTiming{
		Stage:      stage,
		InputSize:  inputSize,
		OutputSize: out,
		Duration:   elapsed,
	})
	return nil
}

// Run processes points through every stage in order. The input is not
// modified. On failure the returned Result holds the stages completed so
// far alongside the error.
func (p *Pipeline) Run(ctx context.Context, points pointcloud.PointSet) (*Result, error) {
	res := &Result{
		RunID:     p.newID(),
		StartedAt: p.clock.Now(),
		Strategy:  p.refiner.Name(),
		MeshMode:  p.meshOpts.Mode,
		Input:     points.Clone(),
	}

	err := p.runStage(ctx, res, StageNormalize, len(points), func() (int, error) {
		res.Normalized = pointcloud.Normalize(res.Input)
		return len(res.Normalized), nil
	})
	if err != nil {
		return res, err
	}

	err = p.runStage(ctx, res, StageFilter, len(res.Normalized), func() (int, error) {
		res.Filtered = pointcloud.FilterOutliers(res.Normalized)
		return len(res.Filtered), nil
	})
	if err != nil {
		return res, err
	}

	err = p.runStage(ctx, res, StageRefine, len(res.Filtered), func() (int, error) {
		refined, err := p.refiner.Refine(ctx, res.Filtered)
		if err != nil {
			if !p.cfg.GetRefineFallback() || !errors.Is(err, pointcloud.ErrConvergence) {
				return 0, err
			}
			res.RefineFallback = true
			res.RefineError = err.Error()
			refined = res.Filtered.Clone()
		}
		res.Refined = refined
		return len(refined), nil
	})
	if err != nil {
		return res, err
	}

	meshInput := res.Refined
	if !p.cfg.GetSkipSmoothing() {
		err = p.runStage(ctx, res, StageSmooth, len(res.Refined), func() (int, error) {
			smoothed, err := p.smoother.Smooth(res.Refined)
			if err != nil {
				return 0, err
			}
			res.Smoothed = smoothed
			return len(smoothed), nil
		})
		if err != nil {
			return res, err
		}
		meshInput = res.Smoothed
	}

	err = p.runStage(ctx, res, StageReconstruct, len(meshInput), func() (int, error) {
		m, err := mesh.Reconstruct(ctx, meshInput, p.meshOpts)
		if err != nil {
			return 0, err
		}
		res.Mesh = m
		return len(m.Faces), nil
	})
	if err != nil {
		return res, err
	}

	maxEdge, minArea := p.cfg.GetMaxEdgeLength(), p.cfg.GetMinFaceArea()
	if maxEdge > 0 || minArea > 0 {
		err = p.runStage(ctx, res, StagePostProcess, len(res.Mesh.Faces), func() (int, error) {
			res.Mesh = mesh.PruneLongEdges(res.Mesh, maxEdge)
			res.SmallFaces = mesh.FlagSmallFaces(res.Mesh, minArea)
			return len(res.Mesh.Faces), nil
		})
		if err != nil {
			return res, err
		}
	} else {
		res.SmallFaces = make([]bool, len(res.Mesh.Faces))
	}

	res.Elapsed = p.clock.Since(res.StartedAt)
	res.Completed = true
	return res, nil
}

// RunAll processes each point set concurrently with its own Run call and
// returns results in input order. The first error cancels the remaining
// runs.
func (p *Pipeline) RunAll(ctx context.Context, sets []pointcloud.PointSet) ([]*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		idx int
		res *Result
		err error
	}
	ch := make(chan outcome, len(sets))
	for i, s := range sets {
		go func(i int, s pointcloud.PointSet) {
			res, err := p.Run(ctx, s)
			ch <- outcome{idx: i, res: res, err: err}
		}(i, s)
	}

	results := make([]*Result, len(sets))
	var firstErr error
	for range sets {
		o := <-ch
		results[o.idx] = o.res
		if o.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("point set %d: %w", o.idx, o.err)
			cancel()
		}
	}
	return results, firstErr
}

// StageTiming records one completed stage.
type StageTiming struct {
	Stage      Stage
	InputSize  int
	OutputSize int
	Duration   time.Duration
}
