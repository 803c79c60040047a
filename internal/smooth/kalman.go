package smooth

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/cloudmesh/internal/pointcloud"
)

// MinDeterminantThreshold is the minimum |det| of the innovation covariance
// accepted for inversion.
const MinDeterminantThreshold = 1e-6

// KalmanState is the transient estimate for one point.
type KalmanState struct {
	Estimate   pointcloud.Point3D
	Covariance *mat.Dense // 3x3
}

// NewKalmanState seeds a state at p with identity covariance.
func NewKalmanState(p pointcloud.Point3D) *KalmanState {
	return &KalmanState{
		Estimate:   p,
		Covariance: mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}),
	}
}

// Predict applies the static motion model: the estimate is unchanged and the
// covariance is inflated by q.
func (s *KalmanState) Predict(q mat.Matrix) {
	s.Covariance.Add(s.Covariance, q)
}

// Update folds observation z into the state with measurement noise r.
// It fails with pointcloud.ErrSingularCovariance when P + R cannot be
// inverted.
func (s *KalmanState) Update(z pointcloud.Point3D, r mat.Matrix) error {
	var sCov mat.Dense
	sCov.Add(s.Covariance, r)

	if det := mat.Det(&sCov); math.Abs(det) < MinDeterminantThreshold || math.IsNaN(det) {
		return fmt.Errorf("%w: det(P+R) = %g", pointcloud.ErrSingularCovariance, det)
	}
	var sInv mat.Dense
	if err := sInv.Inverse(&sCov); err != nil {
		return fmt.Errorf("%w: %v", pointcloud.ErrSingularCovariance, err)
	}

	// K = P (P+R)^-1
	var gain mat.Dense
	gain.Mul(s.Covariance, &sInv)

	innovation := mat.NewVecDense(3, []float64{
		z.X - s.Estimate.X,
		z.Y - s.Estimate.Y,
		z.Z - s.Estimate.Z,
	})
	var correction mat.VecDense
	correction.MulVec(&gain, innovation)
	s.Estimate = pointcloud.Point3D{
		X: s.Estimate.X + correction.AtVec(0),
		Y: s.Estimate.Y + correction.AtVec(1),
		Z: s.Estimate.Z + correction.AtVec(2),
	}

	// P = P - K P
	var kp mat.Dense
	kp.Mul(&gain, s.Covariance)
	s.Covariance.Sub(s.Covariance, &kp)
	return nil
}
