package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"
)

const (
	exportDecl     = "export const listing"
	manifestHeader = "// AUTO-GENERATED - DO NOT EDIT. Regenerate with `cts gen %s`.\n\n"
)

// ManifestPath returns where the listing of suite is written below outDir.
func ManifestPath(outDir, suite string) string {
	return filepath.Join(outDir, "suites", suite, "index.js")
}

// WriteListing writes listing as an ES module exporting `listing` and
// removes any source map left next to it.
func WriteListing(path, suite string, listing Listing) error {
	if listing == nil {
		listing = Listing{}
	}
	data, err := json.MarshalIndent(listing, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal listing: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, manifestHeader, suite)
	b.WriteString(exportDecl)
	b.WriteString(" = ")
	b.Write(data)
	b.WriteString(";\n")

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write listing: %w", err)
	}

	if err := os.Remove(path + ".map"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale source map: %w", err)
	}
	return nil
}

// ReadListing evaluates a generated manifest and returns its listing.
func ReadListing(path string) (Listing, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing: %w", err)
	}
	script := string(src)
	if !strings.Contains(script, exportDecl) {
		return nil, fmt.Errorf("%s: no listing export", path)
	}
	// goja runs scripts, not modules; the export becomes a global.
	script = strings.Replace(script, exportDecl, "var listing", 1)

	vm := goja.New()
	if _, err := vm.RunScript(path, script); err != nil {
		return nil, fmt.Errorf("failed to evaluate %s: %w", path, err)
	}

	val := vm.Get("listing")
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, fmt.Errorf("%s: listing is undefined", path)
	}
	stringify, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("stringify"))
	if !ok {
		return nil, fmt.Errorf("%s: JSON.stringify unavailable", path)
	}
	out, err := stringify(goja.Undefined(), val)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize listing: %w", err)
	}

	var listing Listing
	if err := json.Unmarshal([]byte(out.String()), &listing); err != nil {
		return nil, fmt.Errorf("%s: malformed listing: %w", path, err)
	}
	for i, e := range listing {
		if e.File == nil {
			listing[i].File = []string{}
		}
	}
	return listing, nil
}
