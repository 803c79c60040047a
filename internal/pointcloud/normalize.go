package pointcloud

import (
	"gonum.org/v1/gonum/stat"
)

// AxisStats holds the per-axis population mean and standard deviation of a
// point set.
type AxisStats struct {
	Mean [3]float64
	Std  [3]float64
}

// ComputeAxisStats returns per-axis population statistics. An axis with zero
// variance reports a standard deviation of 0; Normalize substitutes 1.
func ComputeAxisStats(points PointSet) AxisStats {
	var s AxisStats
	if len(points) == 0 {
		return s
	}
	for axis := 0; axis < 3; axis++ {
		s.Mean[axis], s.Std[axis] = stat.PopMeanStdDev(points.AxisValues(axis), nil)
	}
	return s
}

// Normalize standardizes every axis to zero mean and unit variance.
//
// An axis whose coordinates are all identical is only centered: its standard
// deviation is taken as 1 so the division stays defined. Empty input yields
// an empty set. Normalize never fails.
func Normalize(points PointSet) PointSet {
	out := make(PointSet, len(points))
	if len(points) == 0 {
		return out
	}

	s := ComputeAxisStats(points)
	for axis := 0; axis < 3; axis++ {
		if s.Std[axis] == 0 {
			s.Std[axis] = 1
		}
	}

	for i, p := range points {
		out[i] = Point3D{
			X: (p.X - s.Mean[0]) / s.Std[0],
			Y: (p.Y - s.Mean[1]) / s.Std[1],
			Z: (p.Z - s.Mean[2]) / s.Std[2],
		}
	}
	return out
}
