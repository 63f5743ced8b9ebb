// Package suites is the table of test suites built into the cts binary.
// `cts gen` checks for this file to confirm it runs from the project root.
package suites

import (
	"cts/internal/loader"
	"cts/suites/cts"
	"cts/suites/unittests"
)

// All returns every suite the cts binary can run
func All() []*loader.Suite {
	return []*loader.Suite{
		cts.Suite(),
		unittests.Suite(),
	}
}
