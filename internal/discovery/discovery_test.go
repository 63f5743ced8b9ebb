package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestScanner_Scan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "README.txt"), "root")
	writeFile(t, filepath.Join(root, "params.spec.go"), "package x")
	writeFile(t, filepath.Join(root, "helpers.go"), "package x")
	writeFile(t, filepath.Join(root, "framework", "README.txt"), "fw")
	writeFile(t, filepath.Join(root, "framework", "test_group.spec.go"), "package x")
	writeFile(t, filepath.Join(root, ".hidden", "a.spec.go"), "package x")
	writeFile(t, filepath.Join(root, "vendor", "b.spec.go"), "package x")

	files, err := NewScanner([]string{"vendor"}).Scan(context.Background(), root)
	require.NoError(t, err)

	var got [][]string
	kinds := map[string]FileKind{}
	for _, f := range files {
		got = append(got, f.Segments())
		kinds[filepath.Base(f.Path)] = f.Kind
	}
	assert.ElementsMatch(t, [][]string{
		{},
		{"params"},
		{"framework"},
		{"framework", "test_group"},
	}, got)
	assert.Equal(t, KindModule, kinds["params.spec.go"])
	assert.Equal(t, KindReadme, kinds["README.txt"])
}

func TestScanner_Scan_Errors(t *testing.T) {
	s := NewScanner(nil)

	_, err := s.Scan(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "does not exist")

	file := filepath.Join(t.TempDir(), "file.txt")
	writeFile(t, file, "x")
	_, err = s.Scan(context.Background(), file)
	assert.ErrorContains(t, err, "not a directory")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Scan(ctx, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParser_FindDescription(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{"simple", "package x\n\nconst paramsDescription = `Combinator tests.`\n", "Combinator tests."},
		{"multiline", "const description = `\nLine one.\nLine two.\n`", "Line one.\nLine two."},
		{"missing", "package x\n", ""},
		{"first wins", "const aDescription = `a`\nconst bDescription = `b`", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".spec.go")
			writeFile(t, path, tt.content)
			got, err := NewParser().FindDescription(path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := NewParser().FindDescription(filepath.Join(dir, "nope.spec.go"))
	assert.Error(t, err)
}

func TestParser_FindTestNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.spec.go")
	writeFile(t, path, `package m
func Register(g *registry.Group) {
	g.Test("combine").Fn(nil)
	g.Test("options").
		Params(nil).
		Fn(nil)
	g.Test( "math,ulp" ).Unimplemented()
	g.Test("combine").Fn(nil)
	g.Test("nested").Fn(func(t *registry.T) error {
		inner := registry.NewGroup()
		inner.Test("hidden").Fn(nil)
		return nil
	})
}`)
	names, err := NewParser().FindTestNames(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"combine", "math,ulp", "nested", "options"}, names)
}

func TestParser_ReadReadme(t *testing.T) {
	path := filepath.Join(t.TempDir(), ReadmeName)
	writeFile(t, path, "\nFramework self-tests.\n\n")
	got, err := NewParser().ReadReadme(path)
	require.NoError(t, err)
	assert.Equal(t, "Framework self-tests.", got)
}

func TestFilter_FilterByName(t *testing.T) {
	queries := []string{
		"unittests:params:combine:",
		"unittests:params:options:x=1",
		"unittests:query:parse:",
		"unittests:framework,test_group:dup:",
	}
	tests := []struct {
		pattern  string
		expected []string
	}{
		{"", queries},
		{"unittests:params:*", queries[:2]},
		{"*parse*", queries[2:3]},
		{"test_group", queries[3:]},
		{"*params*x=1", queries[1:2]},
		{"nomatch", nil},
		{"*", queries},
	}
	f := NewFilter()
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.FilterByName(queries, tt.pattern))
		})
	}
}
