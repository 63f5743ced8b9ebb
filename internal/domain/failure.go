package domain

import (
	"fmt"

	"cts/internal/logging"
)

// Failure represents a failed case of a run
type Failure struct {
	Query    string   `json:"query"`
	Status   string   `json:"status"`
	Messages []string `json:"messages"`
	Stack    []string `json:"stack,omitempty"` // Stack of the first failing message
	Resolved bool     `json:"resolved,omitempty"` // Track if the failure is marked as resolved
}

// FailuresOf extracts the failed cases of a run, in result order
func FailuresOf(results []CaseResult) []Failure {
	failures := []Failure{}
	for _, r := range results {
		if r.Status() != logging.StatusFailed {
			continue
		}
		f := Failure{Query: r.Query, Status: string(r.Status())}
		if r.Error != "" {
			f.Messages = append(f.Messages, r.Error)
		}
		if r.Result != nil {
			for _, m := range r.Result.Logs {
				if m.Name == logging.NameDebug || m.Name == logging.NameInfo {
					continue
				}
				msg := m.Name + ": " + m.Message
				if m.TimesSeen > 1 {
					msg += fmt.Sprintf(" (seen %d times)", m.TimesSeen)
				}
				f.Messages = append(f.Messages, msg)
				if f.Stack == nil && !m.StackHidden && len(m.Stack) > 0 {
					f.Stack = m.Stack
				}
			}
		}
		failures = append(failures, f)
	}
	return failures
}
