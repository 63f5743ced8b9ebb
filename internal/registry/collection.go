package registry

import (
	"context"
	"fmt"

	"cts/internal/logging"
	"cts/internal/params"
)

// Collection is a flat list of parameterized cases run sequentially. It is
// the low-level form used by the framework's own unit tests; suites use Group.
type Collection struct {
	cases []*namedCase
	names map[string]bool
}

type namedCase struct {
	name string
	c    *Case
}

// NewCollection creates an empty Collection
func NewCollection() *Collection {
	return &Collection{names: make(map[string]bool)}
}

// Add expands it eagerly into one case per Spec, each named name or
// name:params. Registering a name twice fails immediately.
func (c *Collection) Add(name string, it params.Iterable, fn TestFunc) error {
	if c.names[name] {
		return fmt.Errorf("%w: %q", ErrDuplicateTest, name)
	}
	if fn == nil {
		return fmt.Errorf("test %q: nil test function", name)
	}
	test := &Test{name: name, fn: fn}
	cases, err := expandCases(test, it)
	if err != nil {
		return fmt.Errorf("test %q: %w", name, err)
	}
	c.names[name] = true
	test.cases = cases
	for _, tc := range cases {
		caseName := name
		if tc.params.Len() > 0 {
			caseName += ":" + tc.params.String()
		}
		c.cases = append(c.cases, &namedCase{name: caseName, c: tc})
	}
	return nil
}

// Names returns the case names in registration order
func (c *Collection) Names() []string {
	out := make([]string, len(c.cases))
	for i, nc := range c.cases {
		out[i] = nc.name
	}
	return out
}

// Run executes every case in order, one at a time, recording into logger.
// It returns an error naming the number of failed cases.
func (c *Collection) Run(ctx context.Context, logger *logging.Logger) error {
	failed := 0
	for _, nc := range c.cases {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, res := logger.Record(nc.name)
		nc.c.Run(ctx, rec)
		if res.Status == logging.StatusFailed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d cases failed", failed, len(c.cases))
	}
	return nil
}
