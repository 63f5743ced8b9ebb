package discovery

import (
	"path"
	"strings"
)

// Filter filters case queries by name pattern
type Filter struct{}

// NewFilter creates a new Filter
func NewFilter() *Filter {
	return &Filter{}
}

// FilterByName filters query strings by pattern using wildcard matching.
// Supports patterns like "unittests:params:*" or "*combine*"; a pattern
// without wildcards matches as a substring.
func (f *Filter) FilterByName(queries []string, pattern string) []string {
	if pattern == "" {
		return queries
	}

	var filtered []string
	for _, q := range queries {
		if f.Match(q, pattern) {
			filtered = append(filtered, q)
		}
	}
	return filtered
}

// Match reports whether a single query string matches pattern.
func (f *Filter) Match(q, pattern string) bool {
	if pattern == "" {
		return true
	}

	// path.Match supports * and ? wildcards; "/" never occurs in queries
	if matched, err := path.Match(pattern, q); err == nil && matched {
		return true
	}

	if strings.Contains(pattern, "*") {
		// Every non-empty part must occur, in order
		rest := q
		hasNonEmptyPart := false
		for _, part := range strings.Split(pattern, "*") {
			if part == "" {
				continue
			}
			hasNonEmptyPart = true
			i := strings.Index(rest, part)
			if i < 0 {
				return false
			}
			rest = rest[i+len(part):]
		}
		return hasNonEmptyPart
	}

	// If no wildcards, do a simple contains check
	if !strings.Contains(pattern, "?") {
		return strings.Contains(q, pattern)
	}
	return false
}
