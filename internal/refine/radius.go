package refine

import (
	"context"

	"github.com/banshee-data/cloudmesh/internal/pointcloud"
)

// RadiusPruner drops every point whose distance from the centroid exceeds
// Gamma. Survivors keep their order.
type RadiusPruner struct {
	Gamma float64
}

// NewRadiusPruner returns a pruner with the given radius threshold.
func NewRadiusPruner(gamma float64) *RadiusPruner {
	return &RadiusPruner{Gamma: gamma}
}

// Name implements Refiner.
func (r *RadiusPruner) Name() Strategy { return StrategyRadiusPrune }

// Refine implements Refiner. It never fails except on a done context.
func (r *RadiusPruner) Refine(ctx context.Context, points pointcloud.PointSet) (pointcloud.PointSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(pointcloud.PointSet, 0, len(points))
	if len(points) == 0 {
		return out, nil
	}

	c := points.Centroid()
	for _, p := range points {
		centered := p.Sub(c)
		if centered.Norm() <= r.Gamma {
			out = append(out, centered.Add(c))
		}
	}
	return out, nil
}
