// Package mesh implements the surface reconstruction stage and the mesh
// value it produces.
//
// Responsibilities: the Mesh/Face types and their invariants, planar 2D
// Delaunay triangulation of the XY projection, 3D Delaunay
// tetrahedralization and the alpha-shape boundary extracted from it, the
// convex hull used for unbounded alpha, and optional post-processing that
// prunes long-edged faces or flags small ones.
//
// Vertex order is always the input point order; faces index that order.
//
// Dependency rule: mesh imports pointcloud only. No I/O, no logging.
package mesh
