package params

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectStrings(t *testing.T, it Iterable) []string {
	t.Helper()
	specs, err := Collect(it)
	require.NoError(t, err)
	if len(specs) == 0 {
		return nil
	}
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.String()
	}
	return out
}

func TestOptions(t *testing.T) {
	got := collectStrings(t, Options("x", 1, 2, 3))
	assert.Equal(t, []string{"x=1", "x=2", "x=3"}, got)
}

func TestUnit(t *testing.T) {
	specs, err := Collect(Unit())
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, 0, specs[0].Len())
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name     string
		input    []Iterable
		expected []string
	}{
		{
			name:     "no inputs yields nothing",
			input:    nil,
			expected: nil,
		},
		{
			name:     "single input is unchanged",
			input:    []Iterable{Options("x", 1, 2)},
			expected: []string{"x=1", "x=2"},
		},
		{
			name:     "outer varies slowest",
			input:    []Iterable{Options("x", 1, 2), Options("y", "a", "b")},
			expected: []string{`x=1,y="a"`, `x=1,y="b"`, `x=2,y="a"`, `x=2,y="b"`},
		},
		{
			name:     "unit times unit is one empty spec",
			input:    []Iterable{Unit(), Unit()},
			expected: []string{""},
		},
		{
			name:     "empty factor empties the product",
			input:    []Iterable{Options("x", 1, 2), Options("y"), Options("z", true)},
			expected: nil,
		},
		{
			name:     "three factors",
			input:    []Iterable{Options("a", 0), Options("b", 1, 2), Options("c", nil)},
			expected: []string{"a=0,b=1,c=null", "a=0,b=2,c=null"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, collectStrings(t, Combine(tt.input...)))
		})
	}
}

func TestCombine_ProductSize(t *testing.T) {
	for a := 0; a <= 4; a++ {
		for b := 0; b <= 4; b++ {
			as := make([]any, a)
			bs := make([]any, b)
			for i := range as {
				as[i] = i
			}
			for i := range bs {
				bs[i] = i
			}
			n, err := Count(Combine(Options("a", as...), Options("b", bs...)))
			require.NoError(t, err)
			assert.Equal(t, a*b, n, "a=%d b=%d", a, b)
		}
	}
}

func TestCombine_DuplicateKey(t *testing.T) {
	_, err := Collect(Combine(Options("x", 1), Options("x", 2)))
	var dup *DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "x", dup.Key)
}

func TestCombine_IsLazy(t *testing.T) {
	pulled := 0
	counting := Iterable(func(yield func(Spec, error) bool) {
		for i := 0; i < 1000; i++ {
			pulled++
			if !yield(MustOf("i", i), nil) {
				return
			}
		}
	})

	for s, err := range Combine(counting, Options("j", 1, 2)) {
		require.NoError(t, err)
		assert.Equal(t, "i=0,j=1", s.String())
		break
	}
	assert.Equal(t, 1, pulled)
}

func TestCombine_Restartable(t *testing.T) {
	it := Combine(Options("x", 1, 2), Options("y", 3))
	first := collectStrings(t, it)
	second := collectStrings(t, it)
	assert.Equal(t, first, second)
}

func TestFilter(t *testing.T) {
	it := Filter(Combine(Options("x", 1, 2), Options("y", 1, 2)), func(s Spec) bool {
		x, _ := s.Get("x")
		y, _ := s.Get("y")
		return x != y
	})
	assert.Equal(t, []string{"x=1,y=2", "x=2,y=1"}, collectStrings(t, it))
}

func TestExpand(t *testing.T) {
	it := Expand(Options("n", 1, 2), func(s Spec) Iterable {
		n, _ := s.Get("n")
		values := make([]any, n.(int))
		for i := range values {
			values[i] = i
		}
		return Options("i", values...)
	})
	assert.Equal(t, []string{"n=1,i=0", "n=2,i=0", "n=2,i=1"}, collectStrings(t, it))
}

func TestExpand_DuplicateKey(t *testing.T) {
	it := Expand(Options("n", 1), func(Spec) Iterable { return Options("n", 2) })
	_, err := Collect(it)
	var dup *DuplicateKeyError
	assert.True(t, errors.As(err, &dup))
}
