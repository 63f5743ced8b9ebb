package domain

import (
	"time"

	"cts/internal/logging"
)

// CaseResult is the outcome of executing one case query on a worker
type CaseResult struct {
	Query    string          `json:"query"`
	Result   *logging.Result `json:"result"`
	Error    string          `json:"error,omitempty"` // Host-side error (timeout, crash, bad query)
	WorkerID int             `json:"worker_id"`
	Duration time.Duration   `json:"-"`
}

// Status returns the case status, failed when no result was produced
func (r CaseResult) Status() logging.Status {
	if r.Result == nil {
		return logging.StatusFailed
	}
	return r.Result.Status
}

// RunMeta contains metadata about a test run
type RunMeta struct {
	Query           []string       `json:"query"`
	TotalCases      int            `json:"total_cases"`
	Counts          map[string]int `json:"counts"`
	Duration        string         `json:"duration"`
	DurationSeconds float64        `json:"duration_seconds"`
	Workers         int            `json:"workers"`
	Isolation       string         `json:"isolation"`
	Timestamp       string         `json:"timestamp"`
}

// RunOutput is the complete persisted record of a run
type RunOutput struct {
	Meta    RunMeta   `json:"meta"`
	Details []Failure `json:"details"`
}

// Summarize counts results by status
func Summarize(results []CaseResult) map[string]int {
	counts := make(map[string]int)
	for _, r := range results {
		counts[string(r.Status())]++
	}
	return counts
}

// NewRunOutput assembles the persisted record of a run
func NewRunOutput(queries []string, results []CaseResult, duration time.Duration, workers int, isolation string) *RunOutput {
	return &RunOutput{
		Meta: RunMeta{
			Query:           queries,
			TotalCases:      len(results),
			Counts:          Summarize(results),
			Duration:        duration.String(),
			DurationSeconds: duration.Seconds(),
			Workers:         workers,
			Isolation:       isolation,
			Timestamp:       time.Now().Format(time.RFC3339),
		},
		Details: FailuresOf(results),
	}
}
