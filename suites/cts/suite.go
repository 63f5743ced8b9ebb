// Package cts holds the conformance tests.
package cts

import "cts/internal/loader"

// Suite returns the cts suite
func Suite() *loader.Suite {
	return &loader.Suite{
		Name: "cts",
		Dir:  "suites/cts",
		Modules: map[string]loader.Module{
			"examples": {Description: examplesDescription, Register: registerExamples},
		},
	}
}
