package loader

import (
	"maps"
	"slices"
	"strings"

	"cts/internal/registry"
)

// Entry describes one node of a suite's tree. Directories carry a Readme,
// test modules carry a Description.
type Entry struct {
	File        []string `json:"file"`
	Readme      *string  `json:"readme,omitempty"`
	Description *string  `json:"description,omitempty"`
}

// IsModule reports whether e names a test module.
func (e Entry) IsModule() bool {
	return e.Description != nil
}

// Path returns the slash-joined file path, the key of the module table.
func (e Entry) Path() string {
	return strings.Join(e.File, "/")
}

// Listing is the ordered index of a suite: every directory with a readme
// and every test module, sorted by path.
type Listing []Entry

// Modules returns the module entries of l.
func (l Listing) Modules() []Entry {
	var out []Entry
	for _, e := range l {
		if e.IsModule() {
			out = append(out, e)
		}
	}
	return out
}

func (l Listing) sort() {
	slices.SortStableFunc(l, func(a, b Entry) int {
		if c := slices.Compare(a.File, b.File); c != 0 {
			return c
		}
		// A directory sorts before a module of the same name.
		switch {
		case a.IsModule() == b.IsModule():
			return 0
		case a.IsModule():
			return 1
		}
		return -1
	})
}

// ModuleFunc registers a module's tests into g.
type ModuleFunc func(g *registry.Group)

// Module is one entry of a suite's module table.
type Module struct {
	Description string
	Register    ModuleFunc
}

// Suite binds a suite name to its source directory and its module table,
// keyed by slash-separated module path relative to Dir.
type Suite struct {
	Name    string
	Dir     string
	Modules map[string]Module
}

// Listing derives a listing from the module table alone. Readmes are only
// known to a crawl, so the result holds module entries only.
func (s *Suite) Listing() Listing {
	var l Listing
	for _, key := range slices.Sorted(maps.Keys(s.Modules)) {
		desc := s.Modules[key].Description
		l = append(l, Entry{File: strings.Split(key, "/"), Description: &desc})
	}
	l.sort()
	return l
}

// DiffListings returns one line per entry present in only one of want and
// got, prefixed with "-" (missing from got) or "+" (extra in got), plus "~"
// for entries whose text differs. An empty result means they agree.
func DiffListings(want, got Listing) []string {
	index := func(l Listing) map[string]Entry {
		m := make(map[string]Entry, len(l))
		for _, e := range l {
			m[entryKey(e)] = e
		}
		return m
	}
	w, g := index(want), index(got)

	var diff []string
	for _, e := range want {
		k := entryKey(e)
		other, ok := g[k]
		switch {
		case !ok:
			diff = append(diff, "- "+k)
		case text(e) != text(other):
			diff = append(diff, "~ "+k)
		}
	}
	for _, e := range got {
		if _, ok := w[entryKey(e)]; !ok {
			diff = append(diff, "+ "+entryKey(e))
		}
	}
	return diff
}

func entryKey(e Entry) string {
	if e.IsModule() {
		return e.Path()
	}
	return e.Path() + "/"
}

func text(e Entry) string {
	switch {
	case e.Description != nil:
		return *e.Description
	case e.Readme != nil:
		return *e.Readme
	}
	return ""
}
