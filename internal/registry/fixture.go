package registry

import (
	"context"
	"fmt"

	"cts/internal/logging"
	"cts/internal/params"
)

// TestFunc is the body of a test, or its BeforeAllSubcases hook. A returned
// error or a panic fails the case.
type TestFunc func(t *T) error

// skipSignal unwinds a test body after T.Skip.
type skipSignal struct {
	msg string
}

// T is handed to test bodies. It embeds the case's Recorder.
type T struct {
	*logging.Recorder

	ctx    context.Context
	params params.Spec
	shared *sharedValue
}

type sharedValue struct {
	v any
}

// Context returns the context of the run; it is cancelled when the case
// must stop.
func (t *T) Context() context.Context {
	return t.ctx
}

// Params returns the parameters of the running subcase.
func (t *T) Params() params.Spec {
	return t.params
}

// Param returns one parameter value, or nil if absent.
func (t *T) Param(key string) any {
	v, _ := t.params.Get(key)
	return v
}

// Share stores a value produced by BeforeAllSubcases for every subcase of the case.
func (t *T) Share(v any) {
	t.shared.v = v
}

// Shared returns the value stored by Share.
func (t *T) Shared() any {
	return t.shared.v
}

// Expect records a failure when cond is false and reports cond.
func (t *T) Expect(cond bool, format string, args ...any) bool {
	if !cond {
		t.Recorder.Fail(fmt.Sprintf(format, args...))
	}
	return cond
}

// Skip records msg and stops the current subcase. The case ends as
// skipped when every one of its subcases skipped.
func (t *T) Skip(msg string) {
	t.Recorder.Skip(msg)
	panic(skipSignal{msg: msg})
}

// Skipf is Skip with formatting.
func (t *T) Skipf(format string, args ...any) {
	t.Skip(fmt.Sprintf(format, args...))
}
