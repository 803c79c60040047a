package pointcloud

import "errors"

// Stage errors. Stages wrap these with context using fmt.Errorf("%w"), so
// callers match them with errors.Is.
var (
	// ErrDegenerateInput reports input whose geometry makes a stage undefined.
	ErrDegenerateInput = errors.New("degenerate input")

	// ErrConvergence reports a solver that did not reach its tolerance within
	// the iteration budget.
	ErrConvergence = errors.New("solver did not converge")

	// ErrSingularCovariance reports a covariance matrix that cannot be inverted.
	ErrSingularCovariance = errors.New("singular covariance")

	// ErrInsufficientPoints reports fewer points than a stage's geometric minimum.
	ErrInsufficientPoints = errors.New("insufficient points")
)
