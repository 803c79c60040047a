// Package refine implements the geometric refinement stage.
//
// Responsibilities: the single-view radial-distortion CameraModel, a
// Levenberg-Marquardt least-squares solver, and the two interchangeable
// refinement strategies selected by configuration:
//
//   - reprojection: fit the camera model to the cloud by minimizing
//     reprojection error, then undistort every point through the fitted
//     model. One fit both measures and removes the distortion.
//   - radius_prune: drop points farther than gamma from the centroid. This
//     is a filter, not an optimizer, and never runs the solver.
//
// Dependency rule: refine may import pointcloud and config. It performs no
// I/O and does not log; callers observe it through the pipeline.
package refine
