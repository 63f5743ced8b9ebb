package logging

// Status is the lifecycle state of a test case.
type Status string

const (
	StatusPending       Status = "pending"
	StatusRunning       Status = "running"
	StatusPassed        Status = "pass"
	StatusFailed        Status = "fail"
	StatusSkipped       Status = "skip"
	StatusWarned        Status = "warn"
	StatusUnimplemented Status = "unimplemented"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusSkipped, StatusWarned, StatusUnimplemented:
		return true
	}
	return false
}

// Result is the JSON-serializable outcome of one test case.
type Result struct {
	Status Status        `json:"status"`
	TimeMS float64       `json:"timems"`
	Logs   []*LogMessage `json:"logs,omitempty"`
}

// NewResult returns a pending Result.
func NewResult() *Result {
	return &Result{Status: StatusPending}
}

// FailedResult builds a failed Result carrying a single exception message.
// Used when a case could not be run at all.
func FailedResult(err error) *Result {
	return &Result{
		Status: StatusFailed,
		Logs:   []*LogMessage{newLogMessage(NameException, err.Error(), nil, true)},
	}
}
