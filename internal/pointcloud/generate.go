package pointcloud

import (
	"math"
	"math/rand"
)

// RandomUniform returns n points drawn uniformly from the cube
// [minCoord, maxCoord)^3 using rng.
func RandomUniform(rng *rand.Rand, n int, minCoord, maxCoord float64) PointSet {
	span := maxCoord - minCoord
	out := make(PointSet, n)
	for i := range out {
		out[i] = Point3D{
			X: minCoord + rng.Float64()*span,
			Y: minCoord + rng.Float64()*span,
			Z: minCoord + rng.Float64()*span,
		}
	}
	return out
}

// Grid returns an nx-by-ny lattice on the plane z=0 with the given spacing,
// row by row starting at the origin.
func Grid(nx, ny int, spacing float64) PointSet {
	out := make(PointSet, 0, nx*ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			out = append(out, Point3D{X: float64(i) * spacing, Y: float64(j) * spacing})
		}
	}
	return out
}

// Lattice returns an n*n*n cubic lattice with the given spacing, x varying
// fastest.
func Lattice(n int, spacing float64) PointSet {
	out := make(PointSet, 0, n*n*n)
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				out = append(out, Point3D{X: float64(i) * spacing, Y: float64(j) * spacing, Z: float64(k) * spacing})
			}
		}
	}
	return out
}

// Sphere returns n points spread over a sphere of the given radius on a
// golden-angle spiral. The layout is deterministic.
func Sphere(n int, radius float64) PointSet {
	out := make(PointSet, n)
	if n == 0 {
		return out
	}
	golden := math.Pi * (3 - math.Sqrt(5))
	for i := range out {
		z := 1.0
		if n > 1 {
			z = 1 - 2*float64(i)/float64(n-1)
		}
		r := math.Sqrt(math.Max(0, 1-z*z))
		theta := golden * float64(i)
		out[i] = Point3D{X: radius * r * math.Cos(theta), Y: radius * r * math.Sin(theta), Z: radius * z}
	}
	return out
}

// AddNoise returns a copy of points with zero-mean Gaussian jitter of the
// given standard deviation on every axis.
func AddNoise(rng *rand.Rand, points PointSet, sigma float64) PointSet {
	out := points.Clone()
	for i := range out {
		out[i].X += rng.NormFloat64() * sigma
		out[i].Y += rng.NormFloat64() * sigma
		out[i].Z += rng.NormFloat64() * sigma
	}
	return out
}

// AddOutliers appends k points drawn uniformly from the bounding box of
// points scaled by factor about its centre.
func AddOutliers(rng *rand.Rand, points PointSet, k int, factor float64) PointSet {
	out := points.Clone()
	if len(points) == 0 || k <= 0 {
		return out
	}
	lo, hi := points.Bounds()
	c := lo.Add(hi).Scale(0.5)
	half := hi.Sub(lo).Scale(0.5 * factor)
	for i := 0; i < k; i++ {
		out = append(out, Point3D{
			X: c.X + (2*rng.Float64()-1)*half.X,
			Y: c.Y + (2*rng.Float64()-1)*half.Y,
			Z: c.Z + (2*rng.Float64()-1)*half.Z,
		})
	}
	return out
}
