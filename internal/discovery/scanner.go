package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// ModuleSuffix marks a test module source file
	ModuleSuffix = ".spec.go"
	// ReadmeName is the per-directory description file
	ReadmeName = "README.txt"
)

// FileKind distinguishes test modules from directory readmes
type FileKind int

const (
	KindModule FileKind = iota
	KindReadme
)

// File is a discovered file of a suite directory
type File struct {
	Path string   // Path on disk
	Dir  []string // Directory segments relative to the suite root
	Name string   // Module name without ModuleSuffix; empty for readmes
	Kind FileKind
}

// Segments returns the listing path of the file: the directory for a readme,
// the directory plus module name for a module.
func (f File) Segments() []string {
	out := append([]string{}, f.Dir...)
	if f.Kind == KindModule {
		out = append(out, f.Name)
	}
	return out
}

// Scanner scans a suite directory for test modules and readmes
type Scanner struct {
	skipDirs map[string]bool
}

// NewScanner creates a new Scanner with the given directories to skip
func NewScanner(skipDirs []string) *Scanner {
	skipMap := make(map[string]bool)
	for _, dir := range skipDirs {
		skipMap[dir] = true
	}
	return &Scanner{skipDirs: skipMap}
}

// Scan finds all module and readme files below root
func (s *Scanner) Scan(ctx context.Context, root string) ([]File, error) {
	var files []File

	// Clean and validate the root path
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("suite path does not exist: %s", root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("suite path is not a directory: %s", root)
	}

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			name := d.Name()
			if path == root {
				return nil
			}
			// Skip hidden directories (starting with .)
			if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
				return filepath.SkipDir
			}
			if s.skipDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return err
		}
		dir := []string{}
		if rel != "." {
			dir = strings.Split(filepath.ToSlash(rel), "/")
		}

		switch name := d.Name(); {
		case strings.HasSuffix(name, ModuleSuffix):
			files = append(files, File{
				Path: path,
				Dir:  dir,
				Name: strings.TrimSuffix(name, ModuleSuffix),
				Kind: KindModule,
			})
		case name == ReadmeName:
			files = append(files, File{Path: path, Dir: dir, Kind: KindReadme})
		}
		return nil
	})

	return files, err
}
