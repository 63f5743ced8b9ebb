package logging

import (
	"encoding/json"
	"fmt"
	"path"
	"reflect"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// Log message names
const (
	NameDebug         = "DEBUG"
	NameInfo          = "INFO"
	NameWarn          = "WARN"
	NameFail          = "EXPECTATION FAILED"
	NameException     = "EXCEPTION"
	NameSkip          = "SKIP"
	NameUnimplemented = "UNIMPLEMENTED"
)

// frameworkPrefix is the function-name prefix shared by every package of
// this module's internal tree, e.g. "cts/internal/".
var frameworkPrefix = path.Dir(reflect.TypeOf(LogMessage{}).PkgPath()) + "/"

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// LogMessage is one distinct (name, message) event recorded for a test case.
type LogMessage struct {
	Name        string   `json:"name"`
	Message     string   `json:"message"`
	Stack       []string `json:"stack,omitempty"`
	StackHidden bool     `json:"stackHidden,omitempty"`
	TimesSeen   int      `json:"timesSeen"`
}

func newLogMessage(name, message string, stack []string, hidden bool) *LogMessage {
	return &LogMessage{
		Name:        name,
		Message:     message,
		Stack:       stack,
		StackHidden: hidden,
		TimesSeen:   1,
	}
}

// IncrementTimesSeen marks an exact repeat of this message.
func (m *LogMessage) IncrementTimesSeen() {
	m.TimesSeen++
}

// MarshalJSON omits the stack of messages whose stack is hidden.
func (m *LogMessage) MarshalJSON() ([]byte, error) {
	type plain LogMessage
	out := plain(*m)
	if out.StackHidden {
		out.Stack = nil
	}
	return json.Marshal(out)
}

// String renders the message, its stack unless hidden, and a repeat count.
func (m *LogMessage) String() string {
	var b strings.Builder
	b.WriteString(m.Name)
	b.WriteString(": ")
	b.WriteString(m.Message)
	if m.TimesSeen > 1 {
		fmt.Fprintf(&b, " (seen %d times)", m.TimesSeen)
	}
	if !m.StackHidden {
		for _, line := range m.Stack {
			b.WriteString("\n    at ")
			b.WriteString(line)
		}
	}
	return b.String()
}

// captureStack records the calling goroutine's stack, trimmed to test code.
func captureStack() []string {
	return filterStack(errors.New("").(stackTracer).StackTrace())
}

// stackOf returns the stack carried by err, or the current stack.
func stackOf(err error) []string {
	var st stackTracer
	if errors.As(err, &st) {
		if lines := filterStack(st.StackTrace()); len(lines) > 0 {
			return lines
		}
	}
	return captureStack()
}

// filterStack drops leading framework and runtime frames, then keeps frames
// until control returns into the framework.
func filterStack(trace errors.StackTrace) []string {
	var lines []string
	for _, f := range trace {
		name := frameFunc(f)
		internal := isFrameworkFrame(name) || isRuntimeFrame(name)
		if len(lines) == 0 && internal {
			continue
		}
		if internal {
			break
		}
		lines = append(lines, fmt.Sprintf("%n (%s:%d)", f, f, f))
	}
	return lines
}

func frameFunc(f errors.Frame) string {
	fn := runtime.FuncForPC(uintptr(f) - 1)
	if fn == nil {
		return ""
	}
	return fn.Name()
}

func isFrameworkFrame(name string) bool {
	return strings.HasPrefix(name, frameworkPrefix)
}

func isRuntimeFrame(name string) bool {
	return name == "" || strings.HasPrefix(name, "runtime.") || strings.HasPrefix(name, "testing.")
}
