package mesh

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cloudmesh/internal/pointcloud"
)

// superScale places the enclosing tetrahedron vertices far outside the unit
// box the input is normalized into.
const superScale = 1000.0

type tet struct {
	v     [4]int // positive orient3
	alive bool
}

// faceSlots holds up to two tetrahedra sharing a face, stored as id+1 so the
// zero value means empty.
type faceSlots [2]int

// delaunay3D is an incremental Bowyer-Watson tetrahedralization. pts holds
// the real points followed by the four super-tetrahedron vertices.
type delaunay3D struct {
	pts   []r3.Vec
	n     int
	tets  []tet
	faces map[[3]int]faceSlots
	last  int
}

func sortedFace(a, b, c int) [3]int {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return [3]int{a, b, c}
}

// faceOpposite returns the vertices of tet t other than v[k], in order.
func faceOpposite(v [4]int, k int) [3]int {
	var f [3]int
	j := 0
	for i := 0; i < 4; i++ {
		if i != k {
			f[j] = v[i]
			j++
		}
	}
	return f
}

func newDelaunay3D(pts []r3.Vec) *delaunay3D {
	n := len(pts)
	all := make([]r3.Vec, n, n+4)
	copy(all, pts)
	c := r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}
	all = append(all,
		r3.Add(c, r3.Vec{X: superScale, Y: superScale, Z: superScale}),
		r3.Add(c, r3.Vec{X: superScale, Y: -superScale, Z: -superScale}),
		r3.Add(c, r3.Vec{X: -superScale, Y: superScale, Z: -superScale}),
		r3.Add(c, r3.Vec{X: -superScale, Y: -superScale, Z: superScale}),
	)
	d := &delaunay3D{
		pts:   all,
		n:     n,
		faces: make(map[[3]int]faceSlots, 12*n+4),
	}
	v := [4]int{n, n + 1, n + 2, n + 3}
	if orient3(all[v[0]], all[v[1]], all[v[2]], all[v[3]]) < 0 {
		v[2], v[3] = v[3], v[2]
	}
	d.addTet(v)
	return d
}

func (d *delaunay3D) addTet(v [4]int) {
	id := len(d.tets)
	d.tets = append(d.tets, tet{v: v, alive: true})
	for k := 0; k < 4; k++ {
		f := faceOpposite(v, k)
		key := sortedFace(f[0], f[1], f[2])
		s := d.faces[key]
		if s[0] == 0 {
			s[0] = id + 1
		} else {
			s[1] = id + 1
		}
		d.faces[key] = s
	}
	d.last = id
}

func (d *delaunay3D) removeTet(id int) {
	t := &d.tets[id]
	t.alive = false
	for k := 0; k < 4; k++ {
		f := faceOpposite(t.v, k)
		key := sortedFace(f[0], f[1], f[2])
		s := d.faces[key]
		if s[0] == id+1 {
			s[0], s[1] = s[1], 0
		} else if s[1] == id+1 {
			s[1] = 0
		}
		if s[0] == 0 {
			delete(d.faces, key)
		} else {
			d.faces[key] = s
		}
	}
}

// neighbor returns the tetrahedron across the face opposite v[k] of id.
func (d *delaunay3D) neighbor(id, k int) (int, bool) {
	f := faceOpposite(d.tets[id].v, k)
	s := d.faces[sortedFace(f[0], f[1], f[2])]
	switch {
	case s[0] != 0 && s[0] != id+1:
		return s[0] - 1, true
	case s[1] != 0 && s[1] != id+1:
		return s[1] - 1, true
	}
	return 0, false
}

// sideOf returns orient3 of tet id with v[k] replaced by p: negative when p
// lies beyond the face opposite v[k].
func (d *delaunay3D) sideOf(id, k int, p r3.Vec) float64 {
	v := d.tets[id].v
	var q [4]r3.Vec
	for i := 0; i < 4; i++ {
		q[i] = d.pts[v[i]]
	}
	q[k] = p
	return orient3(q[0], q[1], q[2], q[3])
}

func (d *delaunay3D) locate(p r3.Vec) int {
	t := d.last
	for steps := 0; steps <= len(d.tets); steps++ {
		moved := false
		for k := 0; k < 4; k++ {
			if d.sideOf(t, k, p) < 0 {
				nb, ok := d.neighbor(t, k)
				if !ok {
					return -1
				}
				t = nb
				moved = true
				break
			}
		}
		if !moved {
			return t
		}
	}
	for id := range d.tets {
		if !d.tets[id].alive {
			continue
		}
		inside := true
		for k := 0; k < 4 && inside; k++ {
			inside = d.sideOf(id, k, p) >= 0
		}
		if inside {
			return id
		}
	}
	return -1
}

func (d *delaunay3D) insert(pi int) error {
	p := d.pts[pi]
	seed := d.locate(p)
	if seed < 0 {
		return fmt.Errorf("%w: point %d lies outside the tetrahedralization", pointcloud.ErrDegenerateInput, pi)
	}

	inCavity := map[int]bool{seed: true}
	cavity := []int{seed}
	for i := 0; i < len(cavity); i++ {
		t := cavity[i]
		for k := 0; k < 4; k++ {
			nb, ok := d.neighbor(t, k)
			if !ok || inCavity[nb] {
				continue
			}
			v := d.tets[nb].v
			if inSphere(d.pts[v[0]], d.pts[v[1]], d.pts[v[2]], d.pts[v[3]], p) > inSphereEps {
				inCavity[nb] = true
				cavity = append(cavity, nb)
			}
		}
	}

	// Each boundary face joined to p must form a positively oriented
	// tetrahedron; absorb the neighbour behind any face that does not.
	for i := 0; i < len(cavity); i++ {
		t := cavity[i]
		for k := 0; k < 4; k++ {
			nb, ok := d.neighbor(t, k)
			if ok && inCavity[nb] {
				continue
			}
			if d.sideOf(t, k, p) > 0 {
				continue
			}
			if !ok {
				return fmt.Errorf("%w: point %d touches the outer boundary", pointcloud.ErrDegenerateInput, pi)
			}
			inCavity[nb] = true
			cavity = append(cavity, nb)
			i = -1
			break
		}
	}

	var created [][4]int
	for _, t := range cavity {
		for k := 0; k < 4; k++ {
			if nb, ok := d.neighbor(t, k); ok && inCavity[nb] {
				continue
			}
			v := d.tets[t].v
			v[k] = pi
			created = append(created, v)
		}
	}
	for _, t := range cavity {
		d.removeTet(t)
	}
	for _, v := range created {
		d.addTet(v)
	}
	return nil
}

// tetrahedra returns the tetrahedra that use real points only.
func (d *delaunay3D) tetrahedra() [][4]int {
	var out [][4]int
	for _, t := range d.tets {
		if !t.alive {
			continue
		}
		keep := true
		for _, v := range t.v {
			if v >= d.n {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, t.v)
		}
	}
	return out
}

// prepared3D is a deduplicated, unit-box-normalized copy of a point set.
type prepared3D struct {
	norm []r3.Vec
	orig []int // index into the input for each entry of norm
}

func prepare3D(points pointcloud.PointSet) (*prepared3D, error) {
	if len(points) < 4 {
		return nil, fmt.Errorf("%w: 3D reconstruction needs 4 points, got %d", pointcloud.ErrInsufficientPoints, len(points))
	}
	for i, p := range points {
		if !p.IsFinite() {
			return nil, fmt.Errorf("%w: point %d is not finite", pointcloud.ErrDegenerateInput, i)
		}
	}

	lo, hi := points.Bounds()
	scale := math.Max(hi.X-lo.X, math.Max(hi.Y-lo.Y, hi.Z-lo.Z))
	if scale == 0 {
		return nil, fmt.Errorf("%w: all points coincide", pointcloud.ErrInsufficientPoints)
	}

	pp := &prepared3D{}
	seen := make(map[r3.Vec]struct{}, len(points))
	for i, p := range points {
		q := r3.Scale(1/scale, r3.Sub(p.Vec(), lo.Vec()))
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		pp.norm = append(pp.norm, q)
		pp.orig = append(pp.orig, i)
	}
	if coplanar3(pp.norm) {
		return nil, fmt.Errorf("%w: %d distinct points are coplanar", pointcloud.ErrInsufficientPoints, len(pp.norm))
	}
	return pp, nil
}

func coplanar3(pts []r3.Vec) bool {
	if len(pts) < 4 {
		return true
	}
	a := pts[0]
	b, best := -1, 0.0
	for i, p := range pts {
		if d := r3.Norm2(r3.Sub(p, a)); d > best {
			b, best = i, d
		}
	}
	if b < 0 {
		return true
	}
	c, best := -1, 0.0
	ab := r3.Sub(pts[b], a)
	for i, p := range pts {
		if d := r3.Norm2(r3.Cross(ab, r3.Sub(p, a))); d > best {
			c, best = i, d
		}
	}
	if c < 0 || best <= degenerateEps*degenerateEps {
		return true
	}
	for _, p := range pts {
		if math.Abs(orient3(a, pts[b], pts[c], p)) > degenerateEps {
			return false
		}
	}
	return true
}

// Tetrahedralize returns the 3D Delaunay tetrahedra of points as index
// quadruples into the input with positive orientation. Exact duplicate
// points take no part.
func Tetrahedralize(ctx context.Context, points pointcloud.PointSet) ([][4]int, error) {
	pp, err := prepare3D(points)
	if err != nil {
		return nil, err
	}
	return tetrahedralize(ctx, pp)
}

func tetrahedralize(ctx context.Context, pp *prepared3D) ([][4]int, error) {
	d := newDelaunay3D(pp.norm)
	for i := range pp.norm {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if err := d.insert(i); err != nil {
			return nil, err
		}
	}

	tets := d.tetrahedra()
	out := make([][4]int, len(tets))
	for i, t := range tets {
		out[i] = [4]int{pp.orig[t[0]], pp.orig[t[1]], pp.orig[t[2]], pp.orig[t[3]]}
	}
	return out, nil
}
