package refine

import (
	"context"
	"fmt"

	"github.com/banshee-data/cloudmesh/internal/pointcloud"
)

// ReprojectionRefiner fits a CameraModel to the cloud and undistorts every
// point through the fitted model.
type ReprojectionRefiner struct {
	Initial CameraModel
	Solver  SolverSettings
}

// NewReprojectionRefiner returns a refiner starting from initial.
func NewReprojectionRefiner(initial CameraModel, solver SolverSettings) *ReprojectionRefiner {
	return &ReprojectionRefiner{Initial: initial, Solver: solver}
}

// Name implements Refiner.
func (r *ReprojectionRefiner) Name() Strategy { return StrategyReprojection }

// Fit runs the least-squares camera fit over points. The returned model is
// the best found even when err is non-nil.
func (r *ReprojectionRefiner) Fit(ctx context.Context, points pointcloud.PointSet) (CameraModel, SolverResult, error) {
	res, err := LevenbergMarquardt(ctx, reprojectionResiduals(points), 3*len(points), r.Initial[:], r.Solver)
	return CameraFromSlice(res.Params), res, err
}

// Refine implements Refiner. Empty input returns an empty set without
// running the solver.
func (r *ReprojectionRefiner) Refine(ctx context.Context, points pointcloud.PointSet) (pointcloud.PointSet, error) {
	if len(points) == 0 {
		return pointcloud.PointSet{}, nil
	}

	cam, res, err := r.Fit(ctx, points)
	if err != nil {
		return nil, fmt.Errorf("reprojection fit (%d iterations): %w", res.Iterations, err)
	}

	out := make(pointcloud.PointSet, len(points))
	for i, p := range points {
		out[i] = cam.Undistort(p)
	}
	return out, nil
}
