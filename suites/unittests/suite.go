// Package unittests tests the test framework with itself.
package unittests

import (
	"cts/internal/loader"
	"cts/suites/unittests/framework"
)

// Suite returns the unittests suite
func Suite() *loader.Suite {
	return &loader.Suite{
		Name: "unittests",
		Dir:  "suites/unittests",
		Modules: map[string]loader.Module{
			"async_mutex":          {Description: asyncMutexDescription, Register: registerAsyncMutex},
			"framework/test_group": {Description: framework.TestGroupDescription, Register: framework.RegisterTestGroup},
			"logger":               {Description: loggerDescription, Register: registerLogger},
			"params":               {Description: paramsDescription, Register: registerParams},
			"query":                {Description: queryDescription, Register: registerQuery},
		},
	}
}
