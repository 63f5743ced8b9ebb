package unittests

import (
	"errors"

	"cts/internal/params"
	"cts/internal/registry"
)

const paramsDescription = `Parameter specs and the combinators that enumerate them.`

func registerParams(g *registry.Group) {
	g.Test("combine").
		Desc("Combine yields the cartesian product, first input slowest").
		Params(params.Options("n", 0, 1, 3)).
		Fn(func(t *registry.T) error {
			n := t.Param("n").(int)
			values := make([]any, n)
			for i := range values {
				values[i] = i
			}
			specs, err := params.Collect(params.Combine(
				params.Options("a", values...),
				params.Options("b", "x", "y"),
			))
			if err != nil {
				return err
			}
			if !t.Expect(len(specs) == 2*n, "got %d specs, want %d", len(specs), 2*n) || n == 0 {
				return nil
			}
			t.Expect(specs[0].String() == `a=0,b="x"`, "first spec is %s", specs[0])
			t.Expect(specs[1].String() == `a=0,b="y"`, "second spec is %s", specs[1])
			return nil
		})

	g.Test("combine_duplicate_key").
		Desc("merging two specs with the same key fails").
		Fn(func(t *registry.T) error {
			_, err := params.Collect(params.Combine(params.Options("x", 1), params.Options("x", 2)))
			var dup *params.DuplicateKeyError
			if t.Expect(errors.As(err, &dup), "expected DuplicateKeyError, got %v", err) {
				t.Expect(dup.Key == "x", "duplicate key is %q", dup.Key)
			}
			return nil
		})

	g.Test("filter").
		Params(params.Options("keep", "even", "odd")).
		Fn(func(t *registry.T) error {
			odd := t.Param("keep") == "odd"
			it := params.Filter(params.Options("i", 0, 1, 2, 3, 4), func(s params.Spec) bool {
				v, _ := s.Get("i")
				return (v.(int)%2 == 1) == odd
			})
			count, err := params.Count(it)
			if err != nil {
				return err
			}
			want := 3
			if odd {
				want = 2
			}
			t.Expect(count == want, "kept %d specs, want %d", count, want)
			return nil
		})

	g.Test("expand").
		Desc("Expand derives each inner domain from the outer spec").
		Fn(func(t *registry.T) error {
			it := params.Expand(params.Options("size", 1, 2, 3), func(s params.Spec) params.Iterable {
				size, _ := s.Get("size")
				var offsets []any
				for i := 0; i < size.(int); i++ {
					offsets = append(offsets, i)
				}
				return params.Options("offset", offsets...)
			})
			specs, err := params.Collect(it)
			if err != nil {
				return err
			}
			t.Expect(len(specs) == 6, "got %d specs, want 6", len(specs))
			t.Expect(specs[len(specs)-1].String() == "size=3,offset=2", "last spec is %s", specs[len(specs)-1])
			return nil
		})

	g.Test("stringify_parse").
		Desc("Parse inverts String for every JSON value kind").
		Subcases(params.List(
			params.MustOf("v", 1),
			params.MustOf("v", -2.5),
			params.MustOf("v", true),
			params.MustOf("v", nil),
			params.MustOf("v", "a,b=c"),
			params.MustOf("v", []any{1, "x"}),
			params.MustOf("v", map[string]any{"k": "v"}),
		)).
		Fn(func(t *registry.T) error {
			in := t.Params()
			out, err := params.Parse(in.String())
			if err != nil {
				return err
			}
			t.Expect(in.Equal(out), "%s parsed as %s", in, out)
			return nil
		})

	g.Test("parse_malformed").
		Subcases(params.Options("text", "x", "x=", "x=1,", `x="unterminated`, "1x=2")).
		Fn(func(t *registry.T) error {
			text := t.Param("text").(string)
			_, err := params.Parse(text)
			t.Expect(err != nil, "Parse(%q) succeeded", text)
			return nil
		})
}
