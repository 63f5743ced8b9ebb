package logging

import (
	"fmt"
	"sync"
	"time"
)

type messageKey struct {
	name    string
	message string
}

// Recorder collects the events of one running test case into its Result.
// It is safe for use by multiple goroutines of the same test body.
type Recorder struct {
	mu     sync.Mutex
	result *Result
	debug  bool
	start  time.Time
	seen   map[messageKey]*LogMessage

	failed        bool
	warned        bool
	skipped       bool
	unimplemented bool
}

func newRecorder(result *Result, debug bool) *Recorder {
	return &Recorder{
		result: result,
		debug:  debug,
		seen:   make(map[messageKey]*LogMessage),
	}
}

// Start moves the result into the running state.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start = time.Now()
	r.result.Status = StatusRunning
}

// Finish computes the terminal status and elapsed time.
func (r *Recorder) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.start.IsZero() {
		r.result.TimeMS = float64(time.Since(r.start).Microseconds()) / 1000
	}
	switch {
	case r.unimplemented:
		r.result.Status = StatusUnimplemented
	case r.failed:
		r.result.Status = StatusFailed
	case r.skipped:
		r.result.Status = StatusSkipped
	case r.warned:
		r.result.Status = StatusWarned
	default:
		r.result.Status = StatusPassed
	}
}

// Debug records a message kept only in debug mode.
func (r *Recorder) Debug(msg string) {
	if r.debug {
		r.log(NameDebug, msg, nil, true)
	}
}

// Debugf is Debug with formatting.
func (r *Recorder) Debugf(format string, args ...any) {
	if r.debug {
		r.log(NameDebug, fmt.Sprintf(format, args...), nil, true)
	}
}

// Info records an informational message kept only in debug mode.
func (r *Recorder) Info(msg string) {
	if r.debug {
		r.log(NameInfo, msg, nil, true)
	}
}

// Warn records a warning; the case ends as warned unless it fails.
func (r *Recorder) Warn(msg string) {
	r.log(NameWarn, msg, captureStack(), false)
	r.mu.Lock()
	r.warned = true
	r.mu.Unlock()
}

// Fail records an expectation failure. The test body keeps running.
func (r *Recorder) Fail(msg string) {
	r.log(NameFail, msg, captureStack(), false)
	r.setFailed()
}

// Failf is Fail with formatting.
func (r *Recorder) Failf(format string, args ...any) {
	r.log(NameFail, fmt.Sprintf(format, args...), captureStack(), false)
	r.setFailed()
}

// Threw records an error or panic that escaped the test body.
func (r *Recorder) Threw(err error) {
	r.log(NameException, err.Error(), stackOf(err), false)
	r.setFailed()
}

// Skip only records a skip message; the case keeps its status and the
// body keeps running. Test bodies call T.Skip, which also stops the
// subcase. Whether the case ends as skipped is decided by MarkSkipped,
// since a case with several subcases may skip only some.
func (r *Recorder) Skip(msg string) {
	r.log(NameSkip, msg, nil, true)
}

// MarkSkipped makes the case end as skipped unless it also failed.
func (r *Recorder) MarkSkipped() {
	r.mu.Lock()
	r.skipped = true
	r.mu.Unlock()
}

// Unimplemented marks a placeholder case that has no body.
func (r *Recorder) Unimplemented() {
	r.log(NameUnimplemented, "test is not implemented", nil, true)
	r.mu.Lock()
	r.unimplemented = true
	r.mu.Unlock()
}

// Failed reports whether a failure has been recorded so far.
func (r *Recorder) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

func (r *Recorder) setFailed() {
	r.mu.Lock()
	r.failed = true
	r.mu.Unlock()
}

func (r *Recorder) log(name, msg string, stack []string, hidden bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := messageKey{name: name, message: msg}
	if existing, ok := r.seen[key]; ok {
		existing.IncrementTimesSeen()
		return
	}
	m := newLogMessage(name, msg, stack, hidden)
	r.seen[key] = m
	r.result.Logs = append(r.result.Logs, m)
}
