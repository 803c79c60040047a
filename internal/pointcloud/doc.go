// Package pointcloud owns the point data model and the two statistical
// stages that run first in the pipeline.
//
// Responsibilities: Point3D/PointSet value types, the error taxonomy shared
// by every stage, per-axis z-score normalization and per-axis IQR outlier
// rejection, plus synthetic cloud generators used by tests and tooling.
//
// Dependency rule: pointcloud depends on no other internal package. Every
// stage package (refine, smooth, mesh) may import it.
// No I/O and no logging is allowed in this package.
package pointcloud
