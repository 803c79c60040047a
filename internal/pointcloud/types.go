package pointcloud

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Point3D is a Cartesian point. It has no identity beyond its coordinates.
type Point3D struct {
	X, Y, Z float64
}

// Vec returns the point as a gonum r3 vector.
func (p Point3D) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// FromVec converts a gonum r3 vector back to a point.
func FromVec(v r3.Vec) Point3D {
	return Point3D{X: v.X, Y: v.Y, Z: v.Z}
}

// Axis returns coordinate i (0=X, 1=Y, 2=Z).
func (p Point3D) Axis(i int) float64 {
	switch i {
	case 0:
		return p.X
	case 1:
		return p.Y
	default:
		return p.Z
	}
}

// Sub returns p - q.
func (p Point3D) Sub(q Point3D) Point3D {
	return Point3D{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// Add returns p + q.
func (p Point3D) Add(q Point3D) Point3D {
	return Point3D{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z + q.Z}
}

// Scale returns p * f.
func (p Point3D) Scale(f float64) Point3D {
	return Point3D{X: p.X * f, Y: p.Y * f, Z: p.Z * f}
}

// Norm returns the Euclidean length of p treated as a vector.
func (p Point3D) Norm() float64 {
	return r3.Norm(p.Vec())
}

// ApproxEqual reports whether every coordinate of p and q differs by at most tol.
func (p Point3D) ApproxEqual(q Point3D, tol float64) bool {
	return math.Abs(p.X-q.X) <= tol &&
		math.Abs(p.Y-q.Y) <= tol &&
		math.Abs(p.Z-q.Z) <= tol
}

// IsFinite reports whether all coordinates are finite.
func (p Point3D) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) &&
		!math.IsNaN(p.Z) && !math.IsInf(p.Z, 0)
}

// PointSet is an ordered sequence of points. Stages may drop or reorder
// elements but never duplicate them.
type PointSet []Point3D

// Clone returns an independent copy of ps. A nil set clones to an empty set.
func (ps PointSet) Clone() PointSet {
	out := make(PointSet, len(ps))
	copy(out, ps)
	return out
}

// Centroid returns the arithmetic mean of the set. The centroid of an empty
// set is the origin.
func (ps PointSet) Centroid() Point3D {
	if len(ps) == 0 {
		return Point3D{}
	}
	var sum r3.Vec
	for _, p := range ps {
		sum = r3.Add(sum, p.Vec())
	}
	return FromVec(r3.Scale(1/float64(len(ps)), sum))
}

// AxisValues returns coordinate i of every point, in order.
func (ps PointSet) AxisValues(i int) []float64 {
	vals := make([]float64, len(ps))
	for j, p := range ps {
		vals[j] = p.Axis(i)
	}
	return vals
}

// Bounds returns the axis-aligned bounding box of the set. Both corners are
// the origin for an empty set.
func (ps PointSet) Bounds() (min, max Point3D) {
	if len(ps) == 0 {
		return Point3D{}, Point3D{}
	}
	min, max = ps[0], ps[0]
	for _, p := range ps[1:] {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		min.Z = math.Min(min.Z, p.Z)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
		max.Z = math.Max(max.Z, p.Z)
	}
	return min, max
}
