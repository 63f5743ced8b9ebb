package logging

import (
	"context"

	"cts/internal/syncutil"
)

// NamedResult pairs a case name (its query string) with its Result.
type NamedResult struct {
	Name   string  `json:"name"`
	Result *Result `json:"result"`
}

// Logger owns the Results of every case recorded during a run, in
// recording order.
type Logger struct {
	debug   bool
	mu      syncutil.AsyncMutex
	order   []string
	results map[string]*Result
}

// NewLogger creates a Logger. Debug and info messages are kept only when
// debug is true.
func NewLogger(debug bool) *Logger {
	return &Logger{
		debug:   debug,
		results: make(map[string]*Result),
	}
}

// Record opens a result slot for the case called name and returns the
// recorder that fills it. Recording a name again replaces its result.
func (l *Logger) Record(name string) (*Recorder, *Result) {
	result := NewResult()
	_ = l.mu.With(context.Background(), func() error {
		if _, ok := l.results[name]; !ok {
			l.order = append(l.order, name)
		}
		l.results[name] = result
		return nil
	})
	return newRecorder(result, l.debug), result
}

// Result returns the result recorded under name.
func (l *Logger) Result(name string) (*Result, bool) {
	r, _ := syncutil.With(context.Background(), &l.mu, func() (*Result, error) {
		return l.results[name], nil
	})
	return r, r != nil
}

// Results returns every recorded result in recording order.
func (l *Logger) Results() []NamedResult {
	out, _ := syncutil.With(context.Background(), &l.mu, func() ([]NamedResult, error) {
		out := make([]NamedResult, 0, len(l.order))
		for _, name := range l.order {
			out = append(out, NamedResult{Name: name, Result: l.results[name]})
		}
		return out, nil
	})
	return out
}
