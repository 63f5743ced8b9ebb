package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"cts/internal/params"
)

// ErrBadQuery is wrapped by every parse error
var ErrBadQuery = errors.New("malformed query")

var (
	segmentPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	testPattern    = regexp.MustCompile(`^[A-Za-z0-9_]+(,[A-Za-z0-9_]+)*$`)
)

// Level is how deep a query addresses the test tree.
type Level int

const (
	LevelSuite Level = iota + 1
	LevelGroup
	LevelTest
	LevelCase
)

func (l Level) String() string {
	switch l {
	case LevelSuite:
		return "suite"
	case LevelGroup:
		return "group"
	case LevelTest:
		return "test"
	case LevelCase:
		return "case"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Query addresses a suite, a subtree of test modules, one test, or one case:
//
//	suite[:group,group...[:test[:key=value,...]]]
//
// A query is a case query when it carries a params segment, which may be
// empty for an unparameterized case ("suite:g:test:").
type Query struct {
	Suite  string
	Group  []string
	Test   string
	Params params.Spec
	IsCase bool
}

// ForCase builds the case query of one concrete case.
func ForCase(suite string, group []string, test string, p params.Spec) Query {
	return Query{
		Suite:  suite,
		Group:  append([]string(nil), group...),
		Test:   test,
		Params: p,
		IsCase: true,
	}
}

// Level returns the depth addressed by q.
func (q Query) Level() Level {
	switch {
	case q.IsCase:
		return LevelCase
	case q.Test != "":
		return LevelTest
	case len(q.Group) > 0:
		return LevelGroup
	}
	return LevelSuite
}

// String serializes q; Parse is its inverse.
func (q Query) String() string {
	var b strings.Builder
	b.WriteString(q.Suite)
	level := q.Level()
	if level >= LevelGroup {
		b.WriteByte(':')
		b.WriteString(strings.Join(q.Group, ","))
	}
	if level >= LevelTest {
		b.WriteByte(':')
		b.WriteString(q.Test)
	}
	if level == LevelCase {
		b.WriteByte(':')
		b.WriteString(q.Params.String())
	}
	return b.String()
}

// Equal reports whether q and o address the same thing.
func (q Query) Equal(o Query) bool {
	if q.Suite != o.Suite || q.Test != o.Test || q.IsCase != o.IsCase || len(q.Group) != len(o.Group) {
		return false
	}
	for i := range q.Group {
		if q.Group[i] != o.Group[i] {
			return false
		}
	}
	return q.Params.Equal(o.Params)
}

// Contains reports whether o lies inside the subtree selected by q: same
// suite, q's group path is a prefix of o's, and, when q names them, the same
// test and params.
func (q Query) Contains(o Query) bool {
	if q.Suite != o.Suite || len(q.Group) > len(o.Group) {
		return false
	}
	for i := range q.Group {
		if q.Group[i] != o.Group[i] {
			return false
		}
	}
	level := q.Level()
	if level >= LevelTest {
		if len(q.Group) != len(o.Group) || q.Test != o.Test {
			return false
		}
	}
	if level == LevelCase {
		return o.IsCase && q.Params.Equal(o.Params)
	}
	return true
}

// ContainsGroup reports whether the module at path belongs to q's selection.
func (q Query) ContainsGroup(path []string) bool {
	if q.Level() >= LevelTest {
		if len(path) != len(q.Group) {
			return false
		}
	} else if len(q.Group) > len(path) {
		return false
	}
	for i := range q.Group {
		if q.Group[i] != path[i] {
			return false
		}
	}
	return true
}

// Parse parses the text form of a query.
func Parse(text string) (Query, error) {
	if text == "" {
		return Query{}, fmt.Errorf("%w: empty query", ErrBadQuery)
	}
	parts := strings.SplitN(text, ":", 4)

	var q Query
	q.Suite = parts[0]
	if q.Suite == "" {
		return Query{}, fmt.Errorf("%w: missing suite in %q", ErrBadQuery, text)
	}
	if !segmentPattern.MatchString(q.Suite) {
		return Query{}, fmt.Errorf("%w: invalid suite %q", ErrBadQuery, q.Suite)
	}
	if len(parts) == 1 {
		return q, nil
	}

	if parts[1] == "" {
		return Query{}, fmt.Errorf("%w: missing group in %q", ErrBadQuery, text)
	}
	for _, seg := range strings.Split(parts[1], ",") {
		if seg == "" {
			return Query{}, fmt.Errorf("%w: empty group segment in %q", ErrBadQuery, text)
		}
		if !segmentPattern.MatchString(seg) {
			return Query{}, fmt.Errorf("%w: invalid group segment %q", ErrBadQuery, seg)
		}
		q.Group = append(q.Group, seg)
	}
	if len(parts) == 2 {
		return q, nil
	}

	q.Test = parts[2]
	if q.Test == "" {
		return Query{}, fmt.Errorf("%w: missing test in %q", ErrBadQuery, text)
	}
	if !testPattern.MatchString(q.Test) {
		return Query{}, fmt.Errorf("%w: invalid test name %q", ErrBadQuery, q.Test)
	}
	if len(parts) == 3 {
		return q, nil
	}

	p, err := params.Parse(parts[3])
	if err != nil {
		return Query{}, fmt.Errorf("%w: %v", ErrBadQuery, err)
	}
	q.Params = p
	q.IsCase = true
	return q, nil
}

// MustParse is Parse that panics on error; for tests and constants.
func MustParse(text string) Query {
	q, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return q
}
