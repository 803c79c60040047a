package refine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/cloudmesh/internal/pointcloud"
)

// Solver numerical constants. Not user-tunable.
const (
	initialDamping = 1e-3
	minDamping     = 1e-12
	maxDamping     = 1e12
	// minDiagonal floors the Marquardt scaling so parameters with a zero
	// Jacobian column still receive damping.
	minDiagonal = 1e-9
	// stepRelTolerance ends the solve when the accepted step no longer moves
	// the parameters.
	stepRelTolerance = 1e-15
)

// ResidualFunc writes the residual vector for params into dst.
type ResidualFunc func(dst, params []float64)

// SolverSettings bounds a LevenbergMarquardt run.
type SolverSettings struct {
	MaxIterations int     // outer iterations (Jacobian evaluations)
	Tolerance     float64 // target RMS residual
}

// SolverResult describes the final state of a solve.
type SolverResult struct {
	Params     []float64
	Iterations int
	RMS        float64
	Converged  bool
}

func rms(r []float64) float64 {
	if len(r) == 0 {
		return 0
	}
	return floats.Norm(r, 2) / math.Sqrt(float64(len(r)))
}

// LevenbergMarquardt minimizes the sum of squared residuals of f over the
// parameter vector starting at x0. f produces m residuals.
//
// Each iteration evaluates a central-difference Jacobian, solves the damped
// normal equations (JᵀJ + λ·diag(JᵀJ)) δ = Jᵀr by Cholesky and accepts the
// step only if the RMS residual decreases; λ shrinks on success and grows
// tenfold on rejection. The solve succeeds once the RMS residual is at or
// below Tolerance. It fails with pointcloud.ErrConvergence when the iteration
// budget is exhausted or no step can reduce the residual, and with the
// context's error when ctx is done. The result always carries the best
// parameters found.
func LevenbergMarquardt(ctx context.Context, f ResidualFunc, m int, x0 []float64, s SolverSettings) (SolverResult, error) {
	n := len(x0)
	x := append([]float64(nil), x0...)
	r := make([]float64, m)
	f(r, x)
	res := SolverResult{Params: x, RMS: rms(r)}

	if res.RMS <= s.Tolerance {
		res.Converged = true
		return res, nil
	}
	if n == 0 || m == 0 {
		return res, fmt.Errorf("%w: nothing to optimize (rms %.3g)", pointcloud.ErrConvergence, res.RMS)
	}

	jac := mat.NewDense(m, n, nil)
	jtj := mat.NewSymDense(n, nil)
	a := mat.NewSymDense(n, nil)
	var g, delta mat.VecDense
	xNew := make([]float64, n)
	rNew := make([]float64, m)
	lambda := initialDamping

	for res.Iterations < s.MaxIterations {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Iterations++

		fd.Jacobian(jac, f, x, &fd.JacobianSettings{
			Formula:     fd.Central,
			OriginValue: r,
		})
		jtj.SymOuterK(1, jac.T())
		g.MulVec(jac.T(), mat.NewVecDense(m, r))

		accepted := false
		for lambda <= maxDamping {
			a.CopySym(jtj)
			for i := 0; i < n; i++ {
				a.SetSym(i, i, jtj.At(i, i)+lambda*math.Max(jtj.At(i, i), minDiagonal))
			}

			var chol mat.Cholesky
			if !chol.Factorize(a) {
				lambda *= 10
				continue
			}
			// An ill-conditioned system still yields a usable step; the
			// residual test below decides whether it is accepted.
			if err := chol.SolveVecTo(&delta, &g); err != nil {
				var cond mat.Condition
				if !errors.As(err, &cond) {
					lambda *= 10
					continue
				}
			}

			for i := range xNew {
				xNew[i] = x[i] - delta.AtVec(i)
			}
			f(rNew, xNew)
			rmsNew := rms(rNew)
			if rmsNew < res.RMS {
				stepNorm := floats.Distance(x, xNew, 2)
				copy(x, xNew)
				copy(r, rNew)
				res.RMS = rmsNew
				lambda = math.Max(lambda/10, minDamping)
				accepted = true

				if res.RMS <= s.Tolerance {
					res.Converged = true
					return res, nil
				}
				if stepNorm <= stepRelTolerance*(floats.Norm(x, 2)+stepRelTolerance) {
					return res, fmt.Errorf("%w: stalled at rms %.3g after %d iterations",
						pointcloud.ErrConvergence, res.RMS, res.Iterations)
				}
				break
			}
			lambda *= 10
		}

		if !accepted {
			return res, fmt.Errorf("%w: no descent step at rms %.3g after %d iterations",
				pointcloud.ErrConvergence, res.RMS, res.Iterations)
		}
	}

	return res, fmt.Errorf("%w: rms %.3g above tolerance %.3g after %d iterations",
		pointcloud.ErrConvergence, res.RMS, s.Tolerance, res.Iterations)
}
