package unittests

import (
	"errors"

	"cts/internal/params"
	"cts/internal/query"
	"cts/internal/registry"
)

const queryDescription = `Parsing, printing and matching of test queries.`

func registerQuery(g *registry.Group) {
	g.Test("round_trip").
		Desc("String inverts Parse for well-formed queries").
		Params(params.Options("text",
			"suite",
			"suite:a",
			"suite:a,b,c",
			"suite:a:test",
			"suite:a,b:x,y",
			"suite:a:test:",
			`suite:a:test:x=1,s="p:q"`,
		)).
		Fn(func(t *registry.T) error {
			text := t.Param("text").(string)
			q, err := query.Parse(text)
			if err != nil {
				return err
			}
			t.Expect(q.String() == text, "%q printed as %q", text, q.String())
			again, err := query.Parse(q.String())
			if err != nil {
				return err
			}
			t.Expect(again.Equal(q), "reparsed %q differs", text)
			return nil
		})

	g.Test("malformed").
		Desc("malformed queries are rejected, not truncated").
		Subcases(params.Options("text", "", ":a", "suite:", "suite::t", "suite:a:", "suite:a,,b", "suite:a:t:x")).
		Fn(func(t *registry.T) error {
			text := t.Param("text").(string)
			_, err := query.Parse(text)
			t.Expect(errors.Is(err, query.ErrBadQuery), "Parse(%q) returned %v", text, err)
			return nil
		})

	g.Test("levels").Fn(func(t *registry.T) error {
		want := map[string]query.Level{
			"s":         query.LevelSuite,
			"s:g":       query.LevelGroup,
			"s:g:t":     query.LevelTest,
			"s:g:t:":    query.LevelCase,
			"s:g:t:x=1": query.LevelCase,
		}
		for text, level := range want {
			got := query.MustParse(text).Level()
			t.Expect(got == level, "%s is at level %s, want %s", text, got, level)
		}
		return nil
	})

	g.Test("contains").
		Params(params.List(
			params.MustOf("outer", "s", "inner", "s:a,b:t:x=1", "want", true),
			params.MustOf("outer", "s:a", "inner", "s:a,b:t:", "want", true),
			params.MustOf("outer", "s:a,b:t", "inner", "s:a,b:t:x=1", "want", true),
			params.MustOf("outer", "s:a,b:t:x=1", "inner", "s:a,b:t:x=1", "want", true),
			params.MustOf("outer", "s:a,b:t:x=1", "inner", "s:a,b:t:x=2", "want", false),
			params.MustOf("outer", "s:a,b:t", "inner", "s:a,b:u:", "want", false),
			params.MustOf("outer", "s:b", "inner", "s:a,b:t:", "want", false),
			params.MustOf("outer", "r", "inner", "s:a:t:", "want", false),
		)).
		Fn(func(t *registry.T) error {
			outer := query.MustParse(t.Param("outer").(string))
			inner := query.MustParse(t.Param("inner").(string))
			want := t.Param("want").(bool)
			t.Expect(outer.Contains(inner) == want, "%s contains %s: want %v", outer, inner, want)
			return nil
		})
}
