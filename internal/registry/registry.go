package registry

import (
	"context"
	"fmt"

	"cts/internal/logging"
	"cts/internal/params"
)

// Registry is the read-only set of tests of one built module.
type Registry struct {
	tests  []*Test
	byName map[string]*Test
}

func newRegistry(tests []*Test) *Registry {
	r := &Registry{
		tests:  tests,
		byName: make(map[string]*Test, len(tests)),
	}
	for _, t := range tests {
		r.byName[t.name] = t
	}
	return r
}

// Tests returns the tests in registration order
func (r *Registry) Tests() []*Test {
	out := make([]*Test, len(r.tests))
	copy(out, r.tests)
	return out
}

// Test looks a test up by name
func (r *Registry) Test(name string) (*Test, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Cases returns every case of every test in registration order
func (r *Registry) Cases() []*Case {
	var out []*Case
	for _, t := range r.tests {
		out = append(out, t.cases...)
	}
	return out
}

// Test is one registered test and its expanded cases.
type Test struct {
	name          string
	description   string
	unimplemented bool
	subcases      params.Iterable
	before        TestFunc
	fn            TestFunc
	cases         []*Case
}

// Name returns the test name
func (t *Test) Name() string {
	return t.name
}

// Description returns the text set with Desc
func (t *Test) Description() string {
	return t.description
}

// IsUnimplemented reports whether the test is a placeholder
func (t *Test) IsUnimplemented() bool {
	return t.unimplemented
}

// Cases returns the expanded cases in parameter order
func (t *Test) Cases() []*Case {
	return append([]*Case(nil), t.cases...)
}

// Case is one concrete (test, params) pair.
type Case struct {
	test   *Test
	params params.Spec
}

// Test returns the test the case belongs to
func (c *Case) Test() *Test {
	return c.test
}

// Params returns the case parameters (without subcase parameters)
func (c *Case) Params() params.Spec {
	return c.params
}

type outcome int

const (
	outcomePassed outcome = iota
	outcomeFailed
	outcomeSkipped
)

// Run executes the case, reporting everything through rec. Errors and
// panics of the test body are recorded, never propagated.
func (c *Case) Run(ctx context.Context, rec *logging.Recorder) {
	if c.test.unimplemented {
		rec.Unimplemented()
		rec.Finish()
		return
	}
	rec.Start()
	defer rec.Finish()

	shared := &sharedValue{}
	if c.test.before != nil {
		t := &T{Recorder: rec, ctx: ctx, params: c.params, shared: shared}
		switch call(t, c.test.before) {
		case outcomeSkipped:
			rec.MarkSkipped()
			return
		case outcomeFailed:
			return
		}
	}

	subcases := c.test.subcases
	if subcases == nil {
		subcases = params.Unit()
	}
	total, skipped := 0, 0
	for sub, err := range subcases {
		if err != nil {
			rec.Threw(fmt.Errorf("subcase params: %w", err))
			return
		}
		merged, err := params.Merge(c.params, sub)
		if err != nil {
			rec.Threw(fmt.Errorf("subcase params: %w", err))
			return
		}
		if err := ctx.Err(); err != nil {
			rec.Threw(err)
			return
		}
		total++
		t := &T{Recorder: rec, ctx: ctx, params: merged, shared: shared}
		if call(t, c.test.fn) == outcomeSkipped {
			skipped++
		}
	}

	if total == 0 {
		rec.Skip("case has no subcases")
	}
	if skipped == total {
		rec.MarkSkipped()
	}
}

func call(t *T, fn TestFunc) (out outcome) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if _, ok := p.(skipSignal); ok {
			out = outcomeSkipped
			return
		}
		if err, ok := p.(error); ok {
			t.Threw(fmt.Errorf("panic: %w", err))
		} else {
			t.Threw(fmt.Errorf("panic: %v", p))
		}
		out = outcomeFailed
	}()
	if err := fn(t); err != nil {
		t.Threw(err)
		return outcomeFailed
	}
	return outcomePassed
}
