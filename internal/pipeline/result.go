package pipeline

import (
	"time"

	"github.com/banshee-data/cloudmesh/internal/mesh"
	"github.com/banshee-data/cloudmesh/internal/pointcloud"
	"github.com/banshee-data/cloudmesh/internal/refine"
)

// Result holds every intermediate point set of one run, the final mesh and
// the per-stage timings. Smoothed is nil when smoothing was skipped.
type Result struct {
	RunID     string
	StartedAt time.Time
	Elapsed   time.Duration
	Strategy  refine.Strategy
	MeshMode  mesh.Mode

	Input      pointcloud.PointSet
	Normalized pointcloud.PointSet
	Filtered   pointcloud.PointSet
	Refined    pointcloud.PointSet
	Smoothed   pointcloud.PointSet
	Mesh       *mesh.Mesh
	SmallFaces []bool

	// RefineFallback is set when the refiner failed to converge and the
	// filtered points were used unrefined.
	RefineFallback bool
	RefineError    string

	Timings []StageTiming

	// Completed is set once every stage has run.
	Completed bool
}

// StageSummary is the JSON form of a StageTiming.
type StageSummary struct {
	Stage      Stage   `json:"stage"`
	InputSize  int     `json:"input_size"`
	OutputSize int     `json:"output_size"`
	DurationMS float64 `json:"duration_ms"`
}

// Summary is the exported, JSON-friendly digest of a Result.
type Summary struct {
	RunID          string         `json:"run_id"`
	StartedAt      time.Time      `json:"started_at"`
	Strategy       string         `json:"refinement_strategy"`
	MeshMode       string         `json:"mesh_mode"`
	InputPoints    int            `json:"input_points"`
	FilteredPoints int            `json:"filtered_points"`
	RefinedPoints  int            `json:"refined_points"`
	Vertices       int            `json:"vertices"`
	Faces          int            `json:"faces"`
	SmallFaces     int            `json:"small_faces"`
	SurfaceArea    float64        `json:"surface_area"`
	RefineFallback bool           `json:"refine_fallback"`
	RefineError    string         `json:"refine_error,omitempty"`
	Stages         []StageSummary `json:"stages"`
	TotalMS        float64        `json:"total_ms"`
}

func durationMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Summary digests r for export.
func (r *Result) Summary() Summary {
	s := Summary{
		RunID:          r.RunID,
		StartedAt:      r.StartedAt,
		Strategy:       string(r.Strategy),
		MeshMode:       string(r.MeshMode),
		InputPoints:    len(r.Input),
		FilteredPoints: len(r.Filtered),
		RefinedPoints:  len(r.Refined),
		SmallFaces:     mesh.CountFlags(r.SmallFaces),
		RefineFallback: r.RefineFallback,
		RefineError:    r.RefineError,
		Stages:         make([]StageSummary, 0, len(r.Timings)),
		TotalMS:        durationMS(r.Elapsed),
	}
	if r.Mesh != nil {
		s.Vertices = len(r.Mesh.Vertices)
		s.Faces = len(r.Mesh.Faces)
		s.SurfaceArea = r.Mesh.SurfaceArea()
	}
	for _, t := range r.Timings {
		s.Stages = append(s.Stages, StageSummary{
			Stage:      t.Stage,
			InputSize:  t.InputSize,
			OutputSize: t.OutputSize,
			DurationMS: durationMS(t.Duration),
		})
	}
	return s
}

// MeshInput returns the point set handed to reconstruction.
func (r *Result) MeshInput() pointcloud.PointSet {
	if r.Smoothed != nil {
		return r.Smoothed
	}
	return r.Refined
}
