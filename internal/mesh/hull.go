package mesh

import (
	"fmt"

	georr3 "github.com/golang/geo/r3"
	"github.com/markus-wa/quickhull-go/v2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cloudmesh/internal/pointcloud"
)

const hullEps = 1e-10

// ConvexHull returns the outward-facing triangles of the 3D convex hull of
// points. It needs at least four non-coplanar points.
func ConvexHull(points pointcloud.PointSet) ([]Face, error) {
	pp, err := prepare3D(points)
	if err != nil {
		return nil, err
	}
	return convexHull(pp)
}

func convexHull(pp *prepared3D) ([]Face, error) {
	vs := make([]georr3.Vector, len(pp.norm))
	var centroid r3.Vec
	for i, p := range pp.norm {
		vs[i] = georr3.Vector{X: p.X, Y: p.Y, Z: p.Z}
		centroid = r3.Add(centroid, p)
	}
	centroid = r3.Scale(1/float64(len(pp.norm)), centroid)

	qh := new(quickhull.QuickHull)
	ch := qh.ConvexHull(vs, true, true, hullEps)
	if len(ch.Indices) == 0 || len(ch.Indices)%3 != 0 {
		return nil, fmt.Errorf("%w: convex hull returned %d indices", pointcloud.ErrDegenerateInput, len(ch.Indices))
	}

	faces := make([]Face, 0, len(ch.Indices)/3)
	for i := 0; i < len(ch.Indices); i += 3 {
		a, b, c := ch.Indices[i], ch.Indices[i+1], ch.Indices[i+2]
		if a == b || b == c || a == c {
			continue
		}
		pa, pb, pc := pp.norm[a], pp.norm[b], pp.norm[c]
		n := r3.Cross(r3.Sub(pb, pa), r3.Sub(pc, pa))
		if r3.Dot(n, r3.Sub(pa, centroid)) < 0 {
			b, c = c, b
		}
		faces = append(faces, Face{pp.orig[a], pp.orig[b], pp.orig[c]})
	}
	return faces, nil
}
