// Package framework tests test registration and case execution.
package framework

import (
	"context"
	"errors"
	"fmt"

	"cts/internal/logging"
	"cts/internal/params"
	"cts/internal/registry"
)

// TestGroupDescription describes the test_group module
const TestGroupDescription = `Registering tests in a group and running their cases.`

// runOnly builds g and runs its single case.
func runOnly(ctx context.Context, g *registry.Group) (*logging.Result, error) {
	reg, err := g.Build()
	if err != nil {
		return nil, err
	}
	cases := reg.Cases()
	if len(cases) != 1 {
		return nil, fmt.Errorf("built %d cases, want 1", len(cases))
	}
	rec, res := logging.NewLogger(false).Record("inner")
	cases[0].Run(ctx, rec)
	return res, nil
}

// RegisterTestGroup registers the test_group module
func RegisterTestGroup(g *registry.Group) {
	g.Test("duplicate_name").
		Desc("a name registered twice fails the build").
		Fn(func(t *registry.T) error {
			inner := registry.NewGroup()
			inner.Test("a").Fn(func(*registry.T) error { return nil })
			inner.Test("a").Fn(func(*registry.T) error { return nil })
			_, err := inner.Build()
			t.Expect(errors.Is(err, registry.ErrDuplicateTest), "Build returned %v", err)
			return nil
		})

	g.Test("duplicate_case").Fn(func(t *registry.T) error {
		inner := registry.NewGroup()
		inner.Test("a").
			Params(params.List(params.MustOf("x", 1), params.MustOf("x", 1))).
			Fn(func(*registry.T) error { return nil })
		_, err := inner.Build()
		t.Expect(errors.Is(err, registry.ErrDuplicateCase), "Build returned %v", err)
		return nil
	})

	g.Test("invalid_name").
		Subcases(params.Options("name", "", "a b", "a:b", "a,")).
		Fn(func(t *registry.T) error {
			inner := registry.NewGroup()
			inner.Test(t.Param("name").(string)).Fn(func(*registry.T) error { return nil })
			_, err := inner.Build()
			t.Expect(errors.Is(err, registry.ErrInvalidName), "Build returned %v", err)
			return nil
		})

	g.Test("case_order").
		Desc("cases keep registration order, then params order").
		Fn(func(t *registry.T) error {
			inner := registry.NewGroup()
			inner.Test("b").Params(params.Options("x", 2, 1)).Fn(func(*registry.T) error { return nil })
			inner.Test("a").Fn(func(*registry.T) error { return nil })
			reg, err := inner.Build()
			if err != nil {
				return err
			}
			var got []string
			for _, c := range reg.Cases() {
				got = append(got, c.Test().Name()+":"+c.Params().String())
			}
			want := []string{"b:x=2", "b:x=1", "a:"}
			t.Expect(fmt.Sprint(got) == fmt.Sprint(want), "cases %v, want %v", got, want)
			return nil
		})

	g.Test("subcases").
		Desc("subcases run inside one case and share the before hook").
		Params(params.Options("n", 1, 4)).
		Fn(func(t *registry.T) error {
			n := t.Param("n").(int)
			values := make([]any, n)
			for i := range values {
				values[i] = i
			}
			befores, runs := 0, 0
			inner := registry.NewGroup()
			inner.Test("a").
				Subcases(params.Options("i", values...)).
				BeforeAllSubcases(func(it *registry.T) error {
					befores++
					it.Share("shared")
					return nil
				}).
				Fn(func(it *registry.T) error {
					runs++
					if it.Shared() != "shared" {
						return errors.New("shared value missing")
					}
					return nil
				})
			res, err := runOnly(t.Context(), inner)
			if err != nil {
				return err
			}
			t.Expect(befores == 1, "before hook ran %d times", befores)
			t.Expect(runs == n, "body ran %d times, want %d", runs, n)
			t.Expect(res.Status == logging.StatusPassed, "status %s", res.Status)
			return nil
		})

	g.Test("skip").
		Desc("a case is skipped only when every subcase skips").
		Params(params.Options("skipped", 0, 1, 2)).
		Fn(func(t *registry.T) error {
			skipped := t.Param("skipped").(int)
			inner := registry.NewGroup()
			inner.Test("a").
				Subcases(params.Options("i", 0, 1)).
				Fn(func(it *registry.T) error {
					if it.Param("i").(int) < skipped {
						it.Skipf("subcase %d", it.Param("i"))
					}
					return nil
				})
			res, err := runOnly(t.Context(), inner)
			if err != nil {
				return err
			}
			want := logging.StatusPassed
			if skipped == 2 {
				want = logging.StatusSkipped
			}
			t.Expect(res.Status == want, "%d skipped subcases gave %s, want %s", skipped, res.Status, want)
			return nil
		})

	g.Test("body_errors").
		Desc("returned errors and panics fail the case without escaping it").
		Subcases(params.Options("how", "error", "panic", "expect")).
		Fn(func(t *registry.T) error {
			how := t.Param("how").(string)
			inner := registry.NewGroup()
			inner.Test("a").Fn(func(it *registry.T) error {
				switch how {
				case "error":
					return errors.New("returned")
				case "panic":
					panic("raised")
				}
				it.Expect(false, "expected")
				return nil
			})
			res, err := runOnly(t.Context(), inner)
			if err != nil {
				return err
			}
			t.Expect(res.Status == logging.StatusFailed, "%s gave %s", how, res.Status)
			return nil
		})

	g.Test("unimplemented").Fn(func(t *registry.T) error {
		inner := registry.NewGroup()
		inner.Test("todo").Unimplemented()
		res, err := runOnly(t.Context(), inner)
		if err != nil {
			return err
		}
		t.Expect(res.Status == logging.StatusUnimplemented, "status %s", res.Status)
		return nil
	})

	g.Test("collection").
		Desc("a collection names cases by test and params").
		Fn(func(t *registry.T) error {
			c := registry.NewCollection()
			if err := c.Add("plain", params.Unit(), func(*registry.T) error { return nil }); err != nil {
				return err
			}
			if err := c.Add("opts", params.Options("x", 1, 2), func(*registry.T) error { return nil }); err != nil {
				return err
			}
			want := []string{"plain", "opts:x=1", "opts:x=2"}
			t.Expect(fmt.Sprint(c.Names()) == fmt.Sprint(want), "names %v", c.Names())

			logger := logging.NewLogger(false)
			if err := c.Run(t.Context(), logger); err != nil {
				return err
			}
			t.Expect(len(logger.Results()) == 3, "recorded %d results", len(logger.Results()))

			err := c.Add("plain", params.Unit(), func(*registry.T) error { return nil })
			t.Expect(errors.Is(err, registry.ErrDuplicateTest), "second Add returned %v", err)
			return nil
		})
}
