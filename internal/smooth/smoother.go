package smooth

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/cloudmesh/internal/pointcloud"
)

// Smoother holds the fixed diagonal noise covariances.
type Smoother struct {
	q *mat.DiagDense
	r *mat.DiagDense
}

// NewSmoother returns a Smoother with Q = q·I and R = r·I.
func NewSmoother(processNoise, measurementNoise float64) *Smoother {
	return NewSmootherDiag(
		[3]float64{processNoise, processNoise, processNoise},
		[3]float64{measurementNoise, measurementNoise, measurementNoise},
	)
}

// NewSmootherDiag returns a Smoother with per-axis diagonal covariances.
func NewSmootherDiag(processNoise, measurementNoise [3]float64) *Smoother {
	return &Smoother{
		q: mat.NewDiagDense(3, processNoise[:]),
		r: mat.NewDiagDense(3, measurementNoise[:]),
	}
}

// Gain returns the per-axis Kalman gain (1+q)/(1+q+r) applied to every point.
func (s *Smoother) Gain() [3]float64 {
	var k [3]float64
	for i := range k {
		q, r := s.q.At(i, i), s.r.At(i, i)
		k[i] = (1 + q) / (1 + q + r)
	}
	return k
}

// PosteriorVariance returns the per-axis variance (1+q)r/(1+q+r) left after
// the update.
func (s *Smoother) PosteriorVariance() [3]float64 {
	var v [3]float64
	for i := range v {
		q, r := s.q.At(i, i), s.r.At(i, i)
		v[i] = (1 + q) * r / (1 + q + r)
	}
	return v
}

func (s *Smoother) filter(p pointcloud.Point3D) (*KalmanState, error) {
	st := NewKalmanState(p)
	st.Predict(s.q)
	if err := st.Update(p, s.r); err != nil {
		return nil, err
	}
	return st, nil
}

// SmoothStates runs the filter on every point and returns the posterior
// states in input order.
func (s *Smoother) SmoothStates(points pointcloud.PointSet) ([]*KalmanState, error) {
	out := make([]*KalmanState, len(points))
	for i, p := range points {
		st, err := s.filter(p)
		if err != nil {
			return nil, fmt.Errorf("smooth point %d: %w", i, err)
		}
		out[i] = st
	}
	return out, nil
}

// Smooth returns the smoothed estimate of every point in input order.
func (s *Smoother) Smooth(points pointcloud.PointSet) (pointcloud.PointSet, error) {
	out := make(pointcloud.PointSet, len(points))
	for i, p := range points {
		st, err := s.filter(p)
		if err != nil {
			return nil, fmt.Errorf("smooth point %d: %w", i, err)
		}
		out[i] = st.Estimate
	}
	return out, nil
}
