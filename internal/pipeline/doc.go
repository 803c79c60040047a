// Package pipeline is the composition root for the point cloud to mesh
// processing flow.
//
// It runs the stages in strict order (normalize, filter outliers, refine,
// smooth, reconstruct, post-process), checks for cancellation at every
// stage boundary, and reports each boundary to an injected Observer. The
// stage packages (pointcloud, refine, smooth, mesh) own the domain logic;
// none of them import pipeline.
//
// A Pipeline holds only immutable configuration, so one value may serve
// concurrent Run calls on independent point sets.
package pipeline
