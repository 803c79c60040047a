package mesh

import (
	"context"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cloudmesh/internal/pointcloud"
)

// AlphaShape returns the boundary triangles of the alpha complex of points:
// the Delaunay tetrahedra whose circumradius is at most alpha, reduced to
// the faces owned by exactly one kept tetrahedron and oriented outward.
//
// alpha <= 0 means an unbounded radius and yields the convex hull. An alpha
// smaller than every circumradius yields no faces and no error.
func AlphaShape(ctx context.Context, points pointcloud.PointSet, alpha float64) ([]Face, error) {
	pp, err := prepare3D(points)
	if err != nil {
		return nil, err
	}
	if alpha <= 0 {
		return convexHull(pp)
	}

	tets, err := tetrahedralize(ctx, pp)
	if err != nil {
		return nil, err
	}

	kept := make([][4]int, 0, len(tets))
	for _, t := range tets {
		a, b, c, d := points[t[0]].Vec(), points[t[1]].Vec(), points[t[2]].Vec(), points[t[3]].Vec()
		if circumradius(a, b, c, d) <= alpha {
			kept = append(kept, t)
		}
	}
	return boundaryFaces(points, kept), nil
}

// boundaryFaces returns the faces that belong to exactly one tetrahedron,
// each wound so its normal points away from that tetrahedron.
func boundaryFaces(points pointcloud.PointSet, tets [][4]int) []Face {
	count := make(map[[3]int]int, len(tets)*4)
	for _, t := range tets {
		for k := 0; k < 4; k++ {
			f := faceOpposite(t, k)
			count[sortedFace(f[0], f[1], f[2])]++
		}
	}

	var faces []Face
	for _, t := range tets {
		for k := 0; k < 4; k++ {
			f := faceOpposite(t, k)
			if count[sortedFace(f[0], f[1], f[2])] != 1 {
				continue
			}
			a, b, c := points[f[0]].Vec(), points[f[1]].Vec(), points[f[2]].Vec()
			n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
			if r3.Dot(n, r3.Sub(points[t[k]].Vec(), a)) > 0 {
				f[1], f[2] = f[2], f[1]
			}
			faces = append(faces, Face(f))
		}
	}
	return faces
}
