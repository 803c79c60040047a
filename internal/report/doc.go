// Package report renders run results for humans: an interactive HTML page
// (go-echarts) with the input and processed clouds and stage timings, and a
// static wireframe image (gonum/plot) of the reconstructed mesh.
//
// Dependency rule: report reads pipeline results and never mutates them.
package report
