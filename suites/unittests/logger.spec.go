package unittests

import (
	"errors"
	"strings"

	"cts/internal/logging"
	"cts/internal/params"
	"cts/internal/registry"
)

const loggerDescription = `Result recording: status precedence, repeats and stacks.`

// record runs fn against a fresh recorder and returns the finished result.
func record(debug bool, fn func(rec *logging.Recorder)) *logging.Result {
	rec, res := logging.NewLogger(debug).Record("inner")
	rec.Start()
	fn(rec)
	rec.Finish()
	return res
}

func registerLogger(g *registry.Group) {
	g.Test("status").
		Desc("the worst event of a case decides its status").
		Params(params.List(
			params.MustOf("events", "", "want", "pass"),
			params.MustOf("events", "warn", "want", "warn"),
			params.MustOf("events", "skip", "want", "skip"),
			params.MustOf("events", "warn,skip", "want", "skip"),
			params.MustOf("events", "fail,warn", "want", "fail"),
			params.MustOf("events", "skip,fail", "want", "fail"),
			params.MustOf("events", "threw", "want", "fail"),
		)).
		Fn(func(t *registry.T) error {
			events := t.Param("events").(string)
			res := record(false, func(rec *logging.Recorder) {
				for _, e := range strings.Split(events, ",") {
					switch e {
					case "warn":
						rec.Warn("w")
					case "skip":
						rec.Skip("s")
						rec.MarkSkipped()
					case "fail":
						rec.Fail("f")
					case "threw":
						rec.Threw(errors.New("boom"))
					}
				}
			})
			want := logging.Status(t.Param("want").(string))
			t.Expect(res.Status == want, "%q ended as %s, want %s", events, res.Status, want)
			return nil
		})

	g.Test("repeats").
		Desc("identical messages are stored once with a count").
		Fn(func(t *registry.T) error {
			res := record(false, func(rec *logging.Recorder) {
				for i := 0; i < 3; i++ {
					rec.Fail("same")
				}
				rec.Fail("other")
			})
			if !t.Expect(len(res.Logs) == 2, "got %d messages, want 2", len(res.Logs)) {
				return nil
			}
			t.Expect(res.Logs[0].TimesSeen == 3, "first message seen %d times", res.Logs[0].TimesSeen)
			t.Expect(strings.Contains(res.Logs[0].String(), "(seen 3 times)"), "rendered as %q", res.Logs[0].String())
			return nil
		})

	g.Test("debug_messages").
		Subcases(params.Options("debug", false, true)).
		Fn(func(t *registry.T) error {
			debug := t.Param("debug").(bool)
			res := record(debug, func(rec *logging.Recorder) {
				rec.Debug("d")
				rec.Info("i")
			})
			want := 0
			if debug {
				want = 2
			}
			t.Expect(len(res.Logs) == want, "debug=%v kept %d messages", debug, len(res.Logs))
			t.Expect(res.Status == logging.StatusPassed, "status %s", res.Status)
			return nil
		})

	g.Test("stack").
		Desc("failure stacks start in test code").
		Fn(func(t *registry.T) error {
			res := record(false, func(rec *logging.Recorder) {
				rec.Fail("here")
				rec.Skip("no stack")
			})
			fail, skip := res.Logs[0], res.Logs[1]
			if t.Expect(len(fail.Stack) > 0, "failure has no stack") {
				t.Expect(strings.Contains(fail.Stack[0], "logger.spec.go"), "stack starts at %s", fail.Stack[0])
			}
			t.Expect(skip.StackHidden, "skip stack is shown")
			return nil
		})
}
