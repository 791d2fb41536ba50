// Package metrics records pipeline runs. Store keeps a bounded in-memory
// history for the CLI summary; Prometheus exports counters and histograms.
package metrics

import "time"

// RunRecord represents a single pipeline run.
type RunRecord struct {
	// ID is the correlation id of the run
	ID string `json:"id"`

	// Mode is "text-to-image" or "image-to-image"
	Mode string `json:"mode"`

	// Status is RunStatusSuccess or RunStatusError
	Status string `json:"status"`

	// Failure is the whole-batch failure kind, empty on success
	Failure string `json:"failure,omitempty"`

	Requested int `json:"requested"`
	Generated int `json:"generated"`
	Uploaded  int `json:"uploaded"`

	// Enhanced is true when the prompt went through the enhancer
	Enhanced bool `json:"enhanced"`

	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time,omitempty"`
	Duration  time.Duration `json:"duration"`

	// ErrorMsg contains error details if Status is "error"
	ErrorMsg string `json:"error_msg,omitempty"`
}

// RunMetrics is the aggregate view over every recorded run.
type RunMetrics struct {
	TotalRuns    int64 `json:"total_runs"`
	TotalSuccess int64 `json:"total_success"`
	TotalErrors  int64 `json:"total_errors"`

	// ByMode contains per-mode statistics
	ByMode map[string]*ModeMetrics `json:"by_mode"`

	Units   Counts `json:"units"`
	Uploads Counts `json:"uploads"`
	Cache   Counts `json:"cache"`
}

// ModeMetrics represents statistics for one generation mode.
type ModeMetrics struct {
	Count       int64         `json:"count"`
	SuccessRate float64       `json:"success_rate"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// Counts is a success/total pair. For the cache, Succeeded counts hits.
type Counts struct {
	Total     int64 `json:"total"`
	Succeeded int64 `json:"succeeded"`
}

// Status constants for RunRecord
const (
	RunStatusSuccess = "success"
	RunStatusError   = "error"
)

// Upload path labels.
const (
	UploadPathImmediate = "immediate"
	UploadPathBatch     = "batch"
	UploadPathFallback  = "fallback"
)
