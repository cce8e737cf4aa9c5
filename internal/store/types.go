package store

import (
	"time"
)

// RunConfig holds the configuration of an optimization run (result
// copy). Kept here rather than in the server package to avoid import
// cycles.
type RunConfig struct {
	TaskName     string `json:"taskName"`
	Dim          int    `json:"dim"`
	Algorithm    string `json:"algorithm"` // ga, pso, de, bo, mayfly
	DatasetPath  string `json:"datasetPath,omitempty"`
	Generations  int    `json:"generations"`
	PopSize      int    `json:"popSize"`
	NumSolutions int    `json:"numSolutions"`
	Seed         int64  `json:"seed"`
	SurrogateURL string `json:"surrogateUrl,omitempty"`
}

// RunResult is the persisted outcome of a completed run: the solution
// designs the searcher proposed plus the percentile report produced by
// evaluating them against the true objective.
type RunResult struct {
	// RunID is the unique identifier for this run
	RunID string `json:"runId"`

	// Solutions holds the proposed designs, one row per design
	Solutions [][]float64 `json:"solutions"`

	// Report maps percentile keys (and their normalized variants) to
	// scores under the true objective
	Report map[string]float64 `json:"report"`

	// BestScore is the best surrogate score seen during the search
	BestScore float64 `json:"bestScore"`

	// Stability is the trailing coefficient of variation of the
	// per-generation best scores; only set when the run tracked
	// population history
	Stability *float64 `json:"stability,omitempty"`

	// StartedAt / FinishedAt bracket the search wall-clock time
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	// Config holds the run configuration for reproducibility
	Config RunConfig `json:"config"`
}

// RunInfo contains metadata about a run without the full solution
// matrix. Used for listing runs without loading large payloads.
type RunInfo struct {
	RunID      string    `json:"runId"`
	TaskName   string    `json:"taskName"`
	Algorithm  string    `json:"algorithm"`
	BestScore  float64   `json:"bestScore"`
	Solutions  int       `json:"solutions"`
	FinishedAt time.Time `json:"finishedAt"`
}

// ToInfo converts a full RunResult to its listing metadata.
func (r *RunResult) ToInfo() RunInfo {
	return RunInfo{
		RunID:      r.RunID,
		TaskName:   r.Config.TaskName,
		Algorithm:  r.Config.Algorithm,
		BestScore:  r.BestScore,
		Solutions:  len(r.Solutions),
		FinishedAt: r.FinishedAt,
	}
}

// Validate checks that the result is complete enough to persist.
func (r *RunResult) Validate() error {
	if r.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if len(r.Solutions) == 0 {
		return &ValidationError{Field: "Solutions", Reason: "cannot be empty"}
	}
	dim := len(r.Solutions[0])
	for _, row := range r.Solutions {
		if len(row) != dim {
			return &ValidationError{Field: "Solutions", Reason: "rows have inconsistent dimensions"}
		}
	}
	if r.Config.TaskName == "" {
		return &ValidationError{Field: "Config.TaskName", Reason: "cannot be empty"}
	}
	if r.Config.Algorithm == "" {
		return &ValidationError{Field: "Config.Algorithm", Reason: "cannot be empty"}
	}
	if r.FinishedAt.IsZero() {
		return &ValidationError{Field: "FinishedAt", Reason: "cannot be zero"}
	}
	return nil
}

// ValidationError represents a run-result validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
