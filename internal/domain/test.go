package domain

// ListedTest is one test of a suite as shown by `cts list`
type ListedTest struct {
	Query         string // Test-level query
	Description   string
	Unimplemented bool
	Cases         []string // Case queries; empty for static listings
}
