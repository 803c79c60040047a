package pointcloud

import (
	"math"
	"sort"
)

// IQRFactor scales the interquartile range when deriving outlier bounds.
const IQRFactor = 1.5

// Bounds is an inclusive [Lower, Upper] interval on one axis.
type Bounds struct {
	Lower, Upper float64
}

// Contains reports whether v lies within the interval.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Lower && v <= b.Upper
}

// Quantile returns the p-quantile of an ascending slice using linear
// interpolation between closest ranks at position (n-1)*p. It returns NaN
// for an empty slice.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	if lo < 0 {
		return sorted[0]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// AxisBounds computes the Q1-1.5*IQR / Q3+1.5*IQR interval for each axis.
// The result is meaningless for an empty set.
func AxisBounds(points PointSet) [3]Bounds {
	var b [3]Bounds
	for axis := 0; axis < 3; axis++ {
		vals := points.AxisValues(axis)
		sort.Float64s(vals)
		q1 := Quantile(vals, 0.25)
		q3 := Quantile(vals, 0.75)
		iqr := q3 - q1
		b[axis] = Bounds{Lower: q1 - IQRFactor*iqr, Upper: q3 + IQRFactor*iqr}
	}
	return b
}

// FilterOutliers keeps the points that fall inside the IQR bounds on all
// three axes. Bounds are computed once from the full input; survivors keep
// their relative order. Empty input is returned unchanged.
func FilterOutliers(points PointSet) PointSet {
	if len(points) == 0 {
		return points.Clone()
	}

	b := AxisBounds(points)
	out := make(PointSet, 0, len(points))
	for _, p := range points {
		if b[0].Contains(p.X) && b[1].Contains(p.Y) && b[2].Contains(p.Z) {
			out = append(out, p)
		}
	}
	return out
}
