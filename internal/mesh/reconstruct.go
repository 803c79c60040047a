package mesh

import (
	"context"
	"fmt"

	"github.com/banshee-data/cloudmesh/internal/pointcloud"
)

// Mode names a reconstruction algorithm. Values match the mesh_mode
// configuration key.
type Mode string

const (
	ModePlanarDelaunay Mode = "planar_delaunay"
	ModeAlphaShape     Mode = "alpha_shape"
)

// Options selects and parameterizes reconstruction.
type Options struct {
	Mode        Mode
	AlphaRadius float64 // alpha_shape only; <= 0 yields the convex hull
}

// Reconstruct builds a mesh over points. The mesh vertices are a copy of
// points in input order and every face indexes that order.
func Reconstruct(ctx context.Context, points pointcloud.PointSet, opts Options) (*Mesh, error) {
	var (
		faces []Face
		err   error
	)
	switch opts.Mode {
	case ModePlanarDelaunay, "":
		faces, err = PlanarDelaunay(ctx, points)
	case ModeAlphaShape:
		faces, err = AlphaShape(ctx, points, opts.AlphaRadius)
	default:
		return nil, fmt.Errorf("unknown mesh mode %q", opts.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", modeName(opts.Mode), err)
	}
	if faces == nil {
		faces = []Face{}
	}
	return &Mesh{Vertices: points.Clone(), Faces: faces}, nil
}

func modeName(m Mode) Mode {
	if m == "" {
		return ModePlanarDelaunay
	}
	return m
}
