package pipeline

import (
	"time"

	"github.com/banshee-data/cloudmesh/internal/monitoring"
)

// Stage names a pipeline step.
type Stage string

const (
	StageNormalize   Stage = "normalize"
	StageFilter      Stage = "filter_outliers"
	StageRefine      Stage = "refine"
	StageSmooth      Stage = "smooth"
	StageReconstruct Stage = "reconstruct"
	StagePostProcess Stage = "postprocess"
)

// Observer receives stage boundary events. Implementations must be safe for
// concurrent use if the Pipeline is shared across goroutines.
type Observer interface {
	StageStarted(runID string, stage Stage, inputSize int)
	StageFinished(runID string, stage Stage, outputSize int, elapsed time.Duration, err error)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) StageStarted(string, Stage, int)                          {}
func (NopObserver) StageFinished(string, Stage, int, time.Duration, error) {}

// LogObserver reports stage completions through monitoring.Logf and stage
// starts through monitoring.Debugf.
type LogObserver struct{}

func (LogObserver) StageStarted(runID string, stage Stage, inputSize int) {
	monitoring.Debugf("[pipeline] run=%s stage=%s start in=%d", shortID(runID), stage, inputSize)
}

func (LogObserver) StageFinished(runID string, stage Stage, outputSize int, elapsed time.Duration, err error) {
	if err != nil {
		monitoring.Logf("[pipeline] run=%s stage=%s failed after %v: %v", shortID(runID), stage, elapsed, err)
		return
	}
	monitoring.Logf("[pipeline] run=%s stage=%s out=%d took=%v", shortID(runID), stage, outputSize, elapsed)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
