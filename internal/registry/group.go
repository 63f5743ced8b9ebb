package registry

import (
	"errors"
	"fmt"
	"regexp"

	"cts/internal/params"
)

var (
	// ErrDuplicateTest is returned when a name is registered twice in one group
	ErrDuplicateTest = errors.New("duplicate test name")
	// ErrDuplicateCase is returned when a test's params produce the same case twice
	ErrDuplicateCase = errors.New("duplicate test case")
	// ErrInvalidName is returned for names that cannot be addressed by a query
	ErrInvalidName = errors.New("invalid test name")
	// ErrBuilt is returned when registering into a group that was already built
	ErrBuilt = errors.New("group already built")
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_]+(,[A-Za-z0-9_]+)*$`)

// Group collects the tests of one test module while the module initializes.
// Build turns it into a read-only Registry.
type Group struct {
	tests []*Test
	names map[string]bool
	errs  []error
	built bool
}

// NewGroup creates an empty Group
func NewGroup() *Group {
	return &Group{names: make(map[string]bool)}
}

// Test starts the definition of a test called name.
func (g *Group) Test(name string) TestBuilder {
	return TestBuilder{group: g, def: testDef{name: name}}
}

// Build validates every registration and returns the read-only registry.
// All registration errors are reported together.
func (g *Group) Build() (*Registry, error) {
	if g.built {
		return nil, ErrBuilt
	}
	g.built = true
	if err := errors.Join(g.errs...); err != nil {
		return nil, err
	}
	return newRegistry(g.tests), nil
}

func (g *Group) register(def testDef, fn TestFunc, unimplemented bool) {
	if g.built {
		g.errs = append(g.errs, fmt.Errorf("test %q: %w", def.name, ErrBuilt))
		return
	}
	if !namePattern.MatchString(def.name) {
		g.errs = append(g.errs, fmt.Errorf("%w: %q", ErrInvalidName, def.name))
		return
	}
	if g.names[def.name] {
		g.errs = append(g.errs, fmt.Errorf("%w: %q", ErrDuplicateTest, def.name))
		return
	}
	g.names[def.name] = true

	if !unimplemented && fn == nil {
		g.errs = append(g.errs, fmt.Errorf("test %q: nil test function", def.name))
		return
	}

	test := &Test{
		name:          def.name,
		description:   def.desc,
		unimplemented: unimplemented,
		subcases:      def.subcases,
		before:        def.before,
		fn:            fn,
	}
	cases, err := expandCases(test, def.params)
	if err != nil {
		g.errs = append(g.errs, fmt.Errorf("test %q: %w", def.name, err))
		return
	}
	test.cases = cases
	g.tests = append(g.tests, test)
}

func expandCases(test *Test, it params.Iterable) ([]*Case, error) {
	if it == nil {
		it = params.Unit()
	}
	seen := make(map[string]bool)
	var cases []*Case
	for spec, err := range it {
		if err != nil {
			return nil, err
		}
		key := spec.String()
		if seen[key] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCase, key)
		}
		seen[key] = true
		cases = append(cases, &Case{test: test, params: spec})
	}
	return cases, nil
}

type testDef struct {
	name     string
	desc     string
	params   params.Iterable
	subcases params.Iterable
	before   TestFunc
}

// TestBuilder is an immutable, partially configured test. Each method
// returns a new value; Fn or Unimplemented registers the test.
type TestBuilder struct {
	group *Group
	def   testDef
}

// Desc sets the description.
func (b TestBuilder) Desc(text string) TestBuilder {
	b.def.desc = text
	return b
}

// Params sets the case parameter space. Each Spec becomes one addressable case.
func (b TestBuilder) Params(it params.Iterable) TestBuilder {
	b.def.params = it
	return b
}

// Subcases sets the parameter space iterated inside every case.
func (b TestBuilder) Subcases(it params.Iterable) TestBuilder {
	b.def.subcases = it
	return b
}

// BeforeAllSubcases sets a hook run once per case before its subcases.
func (b TestBuilder) BeforeAllSubcases(fn TestFunc) TestBuilder {
	b.def.before = fn
	return b
}

// Fn registers the test with its body.
func (b TestBuilder) Fn(fn TestFunc) {
	b.group.register(b.def, fn, false)
}

// Unimplemented registers a placeholder that reports status unimplemented.
func (b TestBuilder) Unimplemented() {
	b.group.register(b.def, nil, true)
}
