package mesh

import (
	"context"
	"fmt"
	"math"
	"sort"

	georr3 "github.com/golang/geo/r3"
	"github.com/markus-wa/quickhull-go/v2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cloudmesh/internal/pointcloud"
)

const (
	// ctxCheckInterval is how many insertions or faces are processed between
	// context checks.
	ctxCheckInterval = 256
	// degenerateEps bounds the normalized area/volume under which input is
	// treated as collinear/coplanar.
	degenerateEps = 1e-12
	// liftEps is the quickhull tolerance for the paraboloid lift, relative
	// to the lifted extent.
	liftEps = 1e-13
	// sliverEps bounds twice the normalized area under which a lower hull
	// face is a vertical wall seen edge-on.
	sliverEps = 1e-14
)

// planarInput is the XY projection of a point set, centred on its bounding
// box and scaled into [-0.5, 0.5], with repeated positions dropped. orig maps
// each entry back to its input index.
type planarInput struct {
	pts  []vec2
	orig []int
}

func preparePlanar(points pointcloud.PointSet) (*planarInput, error) {
	if len(points) < 3 {
		return nil, fmt.Errorf("%w: planar delaunay needs 3 points, got %d", pointcloud.ErrInsufficientPoints, len(points))
	}
	for i, p := range points {
		if !p.IsFinite() {
			return nil, fmt.Errorf("%w: point %d is not finite", pointcloud.ErrDegenerateInput, i)
		}
	}

	lo, hi := points.Bounds()
	scale := math.Max(hi.X-lo.X, hi.Y-lo.Y)
	if scale == 0 {
		return nil, fmt.Errorf("%w: all points share one XY position", pointcloud.ErrInsufficientPoints)
	}
	midX, midY := (lo.X+hi.X)/2, (lo.Y+hi.Y)/2

	pi := &planarInput{
		pts:  make([]vec2, 0, len(points)),
		orig: make([]int, 0, len(points)),
	}
	seen := make(map[vec2]struct{}, len(points))
	for i, p := range points {
		q := vec2{(p.X - midX) / scale, (p.Y - midY) / scale}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		pi.pts = append(pi.pts, q)
		pi.orig = append(pi.orig, i)
	}
	return pi, nil
}

// baseTriangle picks a well-spread counter-clockwise triangle: the first
// point, the point farthest from it, and the point farthest from the line
// through both. ok is false when every point is collinear.
func baseTriangle(pts []vec2) (tri [3]int, ok bool) {
	far, best := 0, 0.0
	for i, p := range pts {
		dx, dy := p.x-pts[0].x, p.y-pts[0].y
		if d2 := dx*dx + dy*dy; d2 > best {
			far, best = i, d2
		}
	}
	if best == 0 {
		return tri, false
	}
	third, area := 0, 0.0
	for i, p := range pts {
		if o := math.Abs(orient2(pts[0], pts[far], p)); o > area {
			third, area = i, o
		}
	}
	if area <= degenerateEps {
		return tri, false
	}
	if orient2(pts[0], pts[far], pts[third]) < 0 {
		return [3]int{0, third, far}, true
	}
	return [3]int{0, far, third}, true
}

// cocircular reports whether every point lies on the circumcircle of base.
// The lifted points are then coplanar and any triangulation is Delaunay.
func cocircular(pts []vec2, base [3]int) bool {
	a, b, c := pts[base[0]], pts[base[1]], pts[base[2]]
	for _, p := range pts {
		if math.Abs(inCircle(a, b, c, p)) > inCircleEps {
			return false
		}
	}
	return true
}

// fanTriangulate triangulates points in convex position by sorting them
// around their centroid and fanning from the first.
func fanTriangulate(pts []vec2) [][3]int {
	var cx, cy float64
	for _, p := range pts {
		cx += p.x
		cy += p.y
	}
	cx /= float64(len(pts))
	cy /= float64(len(pts))

	order := make([]int, len(pts))
	angle := make([]float64, len(pts))
	for i, p := range pts {
		order[i] = i
		angle[i] = math.Atan2(p.y-cy, p.x-cx)
	}
	sort.Slice(order, func(i, j int) bool { return angle[order[i]] < angle[order[j]] })

	tris := make([][3]int, 0, len(pts)-2)
	for k := 1; k+1 < len(order); k++ {
		tris = append(tris, [3]int{order[0], order[k], order[k+1]})
	}
	return tris
}

// lowerHull lifts pts onto the paraboloid z = x^2 + y^2 and returns the
// downward-facing faces of the lifted convex hull, counter-clockwise in XY.
// Those faces are the Delaunay triangles of pts.
func lowerHull(ctx context.Context, pts []vec2) ([][3]int, error) {
	lifted := make([]r3.Vec, len(pts))
	vs := make([]georr3.Vector, len(pts))
	var centroid r3.Vec
	for i, p := range pts {
		lifted[i] = r3.Vec{X: p.x, Y: p.y, Z: p.x*p.x + p.y*p.y}
		vs[i] = georr3.Vector{X: lifted[i].X, Y: lifted[i].Y, Z: lifted[i].Z}
		centroid = r3.Add(centroid, lifted[i])
	}
	centroid = r3.Scale(1/float64(len(pts)), centroid)

	qh := new(quickhull.QuickHull)
	ch := qh.ConvexHull(vs, true, true, liftEps)
	if len(ch.Indices) == 0 || len(ch.Indices)%3 != 0 {
		return nil, fmt.Errorf("%w: lifted hull returned %d indices", pointcloud.ErrDegenerateInput, len(ch.Indices))
	}

	tris := make([][3]int, 0, len(ch.Indices)/6)
	for i := 0; i < len(ch.Indices); i += 3 {
		if (i/3)%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		a, b, c := ch.Indices[i], ch.Indices[i+1], ch.Indices[i+2]
		if a == b || b == c || a == c {
			continue
		}
		// The outward normal's Z component is orient2 of the outward-wound
		// triangle, so the face is lower when the two signs disagree.
		la := lifted[a]
		n := r3.Cross(r3.Sub(lifted[b], la), r3.Sub(lifted[c], la))
		outward := r3.Dot(n, r3.Sub(la, centroid))
		o := orient2(pts[a], pts[b], pts[c])
		if math.Abs(o) <= sliverEps || (o > 0) == (outward > 0) {
			continue
		}
		if o < 0 {
			b, c = c, b
		}
		tris = append(tris, [3]int{a, b, c})
	}
	return tris, nil
}

// PlanarDelaunay triangulates the XY projection of points. Faces index the
// input order and are counter-clockwise seen from +Z. Points whose XY
// projection repeats an earlier point take no part in connectivity.
func PlanarDelaunay(ctx context.Context, points pointcloud.PointSet) ([]Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pi, err := preparePlanar(points)
	if err != nil {
		return nil, err
	}
	base, ok := baseTriangle(pi.pts)
	if !ok {
		return nil, fmt.Errorf("%w: %d distinct XY positions are collinear", pointcloud.ErrInsufficientPoints, len(pi.pts))
	}

	var tris [][3]int
	if len(pi.pts) == 3 || cocircular(pi.pts, base) {
		tris = fanTriangulate(pi.pts)
	} else if tris, err = lowerHull(ctx, pi.pts); err != nil {
		return nil, err
	}
	if len(tris) == 0 {
		return nil, fmt.Errorf("%w: triangulation produced no faces", pointcloud.ErrDegenerateInput)
	}

	faces := make([]Face, len(tris))
	for i, t := range tris {
		faces[i] = Face{pi.orig[t[0]], pi.orig[t[1]], pi.orig[t[2]]}
	}
	return faces, nil
}
