// Package smooth implements the per-point recursive estimator stage.
//
// Each point is filtered on its own: a fresh KalmanState is seeded with the
// point and identity covariance, runs one static-model predict and one
// update against the same point, and is discarded once the estimate is
// emitted. No state crosses points, so the stage is a fixed per-axis blend
// and is idempotent for fixed noise covariances.
//
// Dependency rule: smooth imports pointcloud only. No I/O, no logging.
package smooth
