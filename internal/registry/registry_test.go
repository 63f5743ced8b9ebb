package registry

import (
	"context"
	"errors"
	"testing"

	"cts/internal/logging"
	"cts/internal/params"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pass(*T) error { return nil }

func runCase(t *testing.T, c *Case) *logging.Result {
	t.Helper()
	rec, res := logging.NewLogger(false).Record("case")
	c.Run(context.Background(), rec)
	return res
}

func TestGroup_BuildsCases(t *testing.T) {
	g := NewGroup()
	g.Test("combined").
		Desc("combined params").
		Params(params.Combine(params.Options("x", 1, 2), params.Options("y", "a"))).
		Fn(pass)
	g.Test("plain").Fn(pass)

	reg, err := g.Build()
	require.NoError(t, err)

	tests := reg.Tests()
	require.Len(t, tests, 2)
	assert.Equal(t, "combined", tests[0].Name())
	assert.Equal(t, "combined params", tests[0].Description())

	cases := reg.Cases()
	require.Len(t, cases, 3)
	assert.Equal(t, `x=1,y="a"`, cases[0].Params().String())
	assert.Equal(t, `x=2,y="a"`, cases[1].Params().String())
	assert.Equal(t, "", cases[2].Params().String())
	assert.Same(t, tests[1], cases[2].Test())

	found, ok := reg.Test("plain")
	require.True(t, ok)
	assert.Same(t, tests[1], found)
}

func TestGroup_RegistrationErrors(t *testing.T) {
	tests := []struct {
		name     string
		register func(g *Group)
		expected error
	}{
		{
			name: "duplicate test name",
			register: func(g *Group) {
				g.Test("dup").Fn(pass)
				g.Test("dup").Fn(pass)
			},
			expected: ErrDuplicateTest,
		},
		{
			name: "invalid test name",
			register: func(g *Group) {
				g.Test("has:colon").Fn(pass)
			},
			expected: ErrInvalidName,
		},
		{
			name: "duplicate case",
			register: func(g *Group) {
				g.Test("t").Params(params.Options("x", 1, 1)).Fn(pass)
			},
			expected: ErrDuplicateCase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGroup()
			tt.register(g)
			_, err := g.Build()
			assert.ErrorIs(t, err, tt.expected)
		})
	}

	t.Run("duplicate param key", func(t *testing.T) {
		g := NewGroup()
		g.Test("t").Params(params.Combine(params.Options("x", 1), params.Options("x", 2))).Fn(pass)
		_, err := g.Build()
		var dup *params.DuplicateKeyError
		assert.True(t, errors.As(err, &dup))
	})

	t.Run("build twice", func(t *testing.T) {
		g := NewGroup()
		_, err := g.Build()
		require.NoError(t, err)
		_, err = g.Build()
		assert.ErrorIs(t, err, ErrBuilt)
	})
}

func TestTestBuilder_IsImmutable(t *testing.T) {
	g := NewGroup()
	base := g.Test("a").Params(params.Options("x", 1, 2))
	base.Desc("first").Fn(pass)

	other := g.Test("b")
	other.Params(params.Options("y", 1, 2, 3))
	other.Fn(pass)

	reg, err := g.Build()
	require.NoError(t, err)

	a, _ := reg.Test("a")
	b, _ := reg.Test("b")
	assert.Len(t, a.Cases(), 2)
	assert.Len(t, b.Cases(), 1, "Params on a discarded copy must not affect the builder")
}

func TestCase_Run(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name     string
		build    func(g *Group)
		expected logging.Status
	}{
		{
			name:     "passing body",
			build:    func(g *Group) { g.Test("t").Fn(pass) },
			expected: logging.StatusPassed,
		},
		{
			name:     "returned error",
			build:    func(g *Group) { g.Test("t").Fn(func(*T) error { return boom }) },
			expected: logging.StatusFailed,
		},
		{
			name:     "panic",
			build:    func(g *Group) { g.Test("t").Fn(func(*T) error { panic("bad") }) },
			expected: logging.StatusFailed,
		},
		{
			name: "failed expectation",
			build: func(g *Group) {
				g.Test("t").Fn(func(t *T) error {
					t.Expect(1 == 2, "one is %d", 1)
					return nil
				})
			},
			expected: logging.StatusFailed,
		},
		{
			name: "warning",
			build: func(g *Group) {
				g.Test("t").Fn(func(t *T) error {
					t.Warn("careful")
					return nil
				})
			},
			expected: logging.StatusWarned,
		},
		{
			name: "skip",
			build: func(g *Group) {
				g.Test("t").Fn(func(t *T) error {
					t.Skip("not supported")
					return errors.New("unreachable")
				})
			},
			expected: logging.StatusSkipped,
		},
		{
			name:     "unimplemented",
			build:    func(g *Group) { g.Test("t").Unimplemented() },
			expected: logging.StatusUnimplemented,
		},
		{
			name: "skip in before hook",
			build: func(g *Group) {
				g.Test("t").BeforeAllSubcases(func(t *T) error {
					t.Skipf("missing %s", "feature")
					return nil
				}).Fn(func(*T) error { return boom })
			},
			expected: logging.StatusSkipped,
		},
		{
			name: "error in before hook",
			build: func(g *Group) {
				g.Test("t").BeforeAllSubcases(func(*T) error { return boom }).Fn(pass)
			},
			expected: logging.StatusFailed,
		},
		{
			name: "some subcases skipped",
			build: func(g *Group) {
				g.Test("t").Subcases(params.Options("i", 0, 1)).Fn(func(t *T) error {
					if t.Param("i") == 0 {
						t.Skip("zero")
					}
					return nil
				})
			},
			expected: logging.StatusPassed,
		},
		{
			name: "all subcases skipped",
			build: func(g *Group) {
				g.Test("t").Subcases(params.Options("i", 0, 1)).Fn(func(t *T) error {
					t.Skip("all")
					return nil
				})
			},
			expected: logging.StatusSkipped,
		},
		{
			name: "subcase key clashes with case key",
			build: func(g *Group) {
				g.Test("t").Params(params.Options("i", 0)).Subcases(params.Options("i", 1)).Fn(pass)
			},
			expected: logging.StatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGroup()
			tt.build(g)
			reg, err := g.Build()
			require.NoError(t, err)
			cases := reg.Cases()
			require.Len(t, cases, 1)
			res := runCase(t, cases[0])
			assert.Equal(t, tt.expected, res.Status)
		})
	}
}

func TestCase_SubcasesShareBeforeValue(t *testing.T) {
	var seen []string
	g := NewGroup()
	g.Test("t").
		Params(params.Options("mode", "a")).
		Subcases(params.Options("i", 1, 2)).
		BeforeAllSubcases(func(t *T) error {
			t.Share("fixture-" + t.Param("mode").(string))
			return nil
		}).
		Fn(func(t *T) error {
			seen = append(seen, t.Shared().(string)+"/"+t.Params().String())
			return nil
		})
	reg, err := g.Build()
	require.NoError(t, err)

	res := runCase(t, reg.Cases()[0])
	assert.Equal(t, logging.StatusPassed, res.Status)
	assert.Equal(t, []string{`fixture-a/mode="a",i=1`, `fixture-a/mode="a",i=2`}, seen)
}

func TestCase_UnimplementedNeverRuns(t *testing.T) {
	g := NewGroup()
	g.Test("later").Unimplemented()
	reg, err := g.Build()
	require.NoError(t, err)

	res := runCase(t, reg.Cases()[0])
	assert.Equal(t, logging.StatusUnimplemented, res.Status)
	assert.Zero(t, res.TimeMS)
}

func TestCase_CancelledContext(t *testing.T) {
	g := NewGroup()
	ran := false
	g.Test("t").Fn(func(*T) error {
		ran = true
		return nil
	})
	reg, err := g.Build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec, res := logging.NewLogger(false).Record("q")
	reg.Cases()[0].Run(ctx, rec)

	assert.False(t, ran)
	assert.Equal(t, logging.StatusFailed, res.Status)
}
