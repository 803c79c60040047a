package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// inCircleEps is the margin under which a point counts as on a circumcircle.
// inSphereEps is the margin a point must clear to count as strictly inside a
// circumsphere; near-ties such as cospherical lattice cubes are outside.
const (
	inCircleEps = 1e-12
	inSphereEps = 1e-12
)

type vec2 struct{ x, y float64 }

// orient2 is twice the signed area of (a, b, c); positive when
// counter-clockwise.
func orient2(a, b, c vec2) float64 {
	return (b.x-a.x)*(c.y-a.y) - (b.y-a.y)*(c.x-a.x)
}

// inCircle is positive when d lies inside the circumcircle of the
// counter-clockwise triangle (a, b, c).
func inCircle(a, b, c, d vec2) float64 {
	adx, ady := a.x-d.x, a.y-d.y
	bdx, bdy := b.x-d.x, b.y-d.y
	cdx, cdy := c.x-d.x, c.y-d.y

	alift := adx*adx + ady*ady
	blift := bdx*bdx + bdy*bdy
	clift := cdx*cdx + cdy*cdy

	return alift*(bdx*cdy-cdx*bdy) +
		blift*(cdx*ady-adx*cdy) +
		clift*(adx*bdy-bdx*ady)
}

// orient3 is six times the signed volume of (a, b, c, d): det[b-a, c-a, d-a].
func orient3(a, b, c, d r3.Vec) float64 {
	return r3.Dot(r3.Sub(b, a), r3.Cross(r3.Sub(c, a), r3.Sub(d, a)))
}

// inSphere is positive when e lies inside the circumsphere of (a, b, c, d),
// which must have positive orient3.
func inSphere(a, b, c, d, e r3.Vec) float64 {
	ae, be, ce, de := r3.Sub(a, e), r3.Sub(b, e), r3.Sub(c, e), r3.Sub(d, e)
	al, bl, cl, dl := r3.Dot(ae, ae), r3.Dot(be, be), r3.Dot(ce, ce), r3.Dot(de, de)

	// Laplace expansion of the 4x4 lifted determinant along the lift column.
	det := -al*r3.Dot(be, r3.Cross(ce, de)) +
		bl*r3.Dot(ae, r3.Cross(ce, de)) -
		cl*r3.Dot(ae, r3.Cross(be, de)) +
		dl*r3.Dot(ae, r3.Cross(be, ce))
	return -det
}

// circumradius returns the circumsphere radius of tetrahedron (a, b, c, d).
// It returns +Inf for a flat tetrahedron.
func circumradius(a, b, c, d r3.Vec) float64 {
	u, v, w := r3.Sub(b, a), r3.Sub(c, a), r3.Sub(d, a)
	den := 2 * r3.Dot(u, r3.Cross(v, w))
	if den == 0 {
		return math.Inf(1)
	}
	num := r3.Add(r3.Add(
		r3.Scale(r3.Dot(u, u), r3.Cross(v, w)),
		r3.Scale(r3.Dot(v, v), r3.Cross(w, u))),
		r3.Scale(r3.Dot(w, w), r3.Cross(u, v)))
	return r3.Norm(num) / math.Abs(den)
}
