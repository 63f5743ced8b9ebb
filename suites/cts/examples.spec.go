package cts

import (
	"fmt"
	"strconv"
	"strings"

	"cts/internal/params"
	"cts/internal/registry"
)

const examplesDescription = `Examples of writing tests: params, subcases, hooks and statuses.`

func registerExamples(g *registry.Group) {
	g.Test("test_name").
		Desc("the simplest test: one unparameterized case").
		Fn(func(t *registry.T) error {
			t.Expect(strings.ToUpper("cts") == "CTS", "ToUpper")
			return nil
		})

	g.Test("basic_params").
		Desc("each spec of Params is one addressable case").
		Params(params.Combine(
			params.Options("x", 1, 10, 100),
			params.Options("base", 2, 10, 16),
		)).
		Fn(func(t *registry.T) error {
			x, base := t.Param("x").(int), t.Param("base").(int)
			text := strconv.FormatInt(int64(x), base)
			back, err := strconv.ParseInt(text, base, 64)
			if err != nil {
				return fmt.Errorf("parse %q: %w", text, err)
			}
			t.Expect(int(back) == x, "%d in base %d came back as %d", x, base, back)
			return nil
		})

	g.Test("dependent_params").
		Desc("later params may depend on earlier ones").
		Params(params.Expand(params.Options("width", 1, 2, 4), func(s params.Spec) params.Iterable {
			w, _ := s.Get("width")
			return params.Options("shift", 0, w.(int)*8-1)
		})).
		Fn(func(t *registry.T) error {
			width, shift := t.Param("width").(int), t.Param("shift").(int)
			limit := uint64(1)<<(width*8) - 1
			t.Expect(uint64(1)<<shift <= limit, "1<<%d overflows %d bytes", shift, width)
			return nil
		})

	g.Test("subcases").
		Desc("subcases share one case and its setup").
		Params(params.Options("sep", ",", ";")).
		Subcases(params.Options("n", 0, 1, 5)).
		BeforeAllSubcases(func(t *registry.T) error {
			t.Share(t.Param("sep").(string))
			return nil
		}).
		Fn(func(t *registry.T) error {
			sep := t.Shared().(string)
			n := t.Param("n").(int)
			parts := make([]string, n)
			joined := strings.Join(parts, sep)
			t.Expect(strings.Count(joined, sep) == max(n-1, 0), "joined %d parts into %q", n, joined)
			return nil
		})

	g.Test("skip_some").
		Desc("skipping some subcases still passes the case").
		Subcases(params.Options("feature", "core", "optional")).
		Fn(func(t *registry.T) error {
			if t.Param("feature") == "optional" {
				t.Skip("optional feature not supported")
			}
			return nil
		})

	g.Test("warns").
		Desc("a warning does not fail the case").
		Fn(func(t *registry.T) error {
			t.Warn("this result is allowed to vary")
			return nil
		})

	g.Test("planned").
		Desc("a placeholder for a test that is not written yet").
		Unimplemented()
}
