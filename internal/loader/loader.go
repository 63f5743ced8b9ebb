package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cts/internal/logging"
	"cts/internal/query"
	"cts/internal/registry"
)

var (
	// ErrNotFound means a well-formed query selects no case.
	ErrNotFound = errors.New("no matching test cases")
	// ErrAmbiguous means a query that must select one case selects several.
	ErrAmbiguous = errors.New("query matches more than one case")
	// ErrStaleListing means the listing names a module the suite does not have.
	ErrStaleListing = errors.New("listing is out of date; run `cts gen`")
	// ErrUnknownSuite is a not-found error for the suite segment.
	ErrUnknownSuite = fmt.Errorf("%w: unknown suite", ErrNotFound)
)

// Source selects where a suite's listing comes from.
type Source string

const (
	// SourceAuto uses the manifest when present, else a live crawl, else
	// the module table.
	SourceAuto     Source = "auto"
	SourceManifest Source = "manifest"
	SourceCrawl    Source = "crawl"
	SourceTable    Source = "table"
)

// ParseSource validates a listing source name.
func ParseSource(s string) (Source, error) {
	switch src := Source(s); src {
	case SourceAuto, SourceManifest, SourceCrawl, SourceTable:
		return src, nil
	case "":
		return SourceAuto, nil
	}
	return "", fmt.Errorf("unknown listing source %q (want auto, manifest, crawl or table)", s)
}

// Options configures a Loader
type Options struct {
	// Root is the project directory Suite.Dir is relative to.
	Root string
	// OutDir holds generated manifests; relative paths are below Root.
	OutDir   string
	Source   Source
	SkipDirs []string
}

// TestCase is one resolved case and the query that addresses it.
type TestCase struct {
	Query query.Query
	Case  *registry.Case
}

// Name returns the case query string.
func (tc *TestCase) Name() string {
	return tc.Query.String()
}

// Run executes the case into rec.
func (tc *TestCase) Run(ctx context.Context, rec *logging.Recorder) {
	tc.Case.Run(ctx, rec)
}

// Loader resolves queries against suite listings and loads only the
// modules a query selects. Loaded modules are built once and cached.
type Loader struct {
	opts    Options
	suites  map[string]*Suite
	crawler *Crawler

	mu       sync.Mutex
	listings map[string]Listing
	modules  map[string]*registry.Registry
}

// New creates a Loader over the given suites
func New(suites []*Suite, opts Options) *Loader {
	if opts.Source == "" {
		opts.Source = SourceAuto
	}
	m := make(map[string]*Suite, len(suites))
	for _, s := range suites {
		m[s.Name] = s
	}
	return &Loader{
		opts:     opts,
		suites:   m,
		crawler:  NewCrawler(opts.SkipDirs),
		listings: make(map[string]Listing),
		modules:  make(map[string]*registry.Registry),
	}
}

// Suite returns the suite called name.
func (l *Loader) Suite(name string) (*Suite, error) {
	s, ok := l.suites[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownSuite, name)
	}
	return s, nil
}

// SuiteDir returns the on-disk source directory of s.
func (l *Loader) SuiteDir(s *Suite) string {
	if filepath.IsAbs(s.Dir) {
		return s.Dir
	}
	return filepath.Join(l.opts.Root, s.Dir)
}

// ManifestPath returns the manifest location of the named suite.
func (l *Loader) ManifestPath(suite string) string {
	out := l.opts.OutDir
	if out == "" {
		out = "out"
	}
	if !filepath.IsAbs(out) {
		out = filepath.Join(l.opts.Root, out)
	}
	return ManifestPath(out, suite)
}

// Crawl returns a live crawl of the named suite's directory.
func (l *Loader) Crawl(ctx context.Context, suite string) (Listing, error) {
	s, err := l.Suite(suite)
	if err != nil {
		return nil, err
	}
	return l.crawler.Crawl(ctx, l.SuiteDir(s))
}

// Listing returns the listing of the named suite from the configured source.
func (l *Loader) Listing(ctx context.Context, suite string) (Listing, error) {
	s, err := l.Suite(suite)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	cached, ok := l.listings[suite]
	l.mu.Unlock()
	if ok {
		return cached, nil
	}

	listing, err := l.resolveListing(ctx, s)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.listings[suite] = listing
	l.mu.Unlock()
	return listing, nil
}

func (l *Loader) resolveListing(ctx context.Context, s *Suite) (Listing, error) {
	switch l.opts.Source {
	case SourceManifest:
		return ReadListing(l.ManifestPath(s.Name))
	case SourceCrawl:
		return l.crawler.Crawl(ctx, l.SuiteDir(s))
	case SourceTable:
		return s.Listing(), nil
	}

	if _, err := os.Stat(l.ManifestPath(s.Name)); err == nil {
		return ReadListing(l.ManifestPath(s.Name))
	}
	if info, err := os.Stat(l.SuiteDir(s)); err == nil && info.IsDir() {
		return l.crawler.Crawl(ctx, l.SuiteDir(s))
	}
	return s.Listing(), nil
}

// Verify compares the suite's manifest against a live crawl and returns
// the differences. A missing manifest is reported as ErrStaleListing.
func (l *Loader) Verify(ctx context.Context, suite string) ([]string, error) {
	live, err := l.Crawl(ctx, suite)
	if err != nil {
		return nil, err
	}
	path := l.ManifestPath(suite)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s is missing", ErrStaleListing, path)
	}
	manifest, err := ReadListing(path)
	if err != nil {
		return nil, err
	}
	return DiffListings(live, manifest), nil
}

// LoadCases returns every case selected by q, in listing order then
// registration order.
func (l *Loader) LoadCases(ctx context.Context, q query.Query) ([]*TestCase, error) {
	s, err := l.Suite(q.Suite)
	if err != nil {
		return nil, err
	}
	listing, err := l.Listing(ctx, q.Suite)
	if err != nil {
		return nil, err
	}

	var out []*TestCase
	for _, entry := range listing.Modules() {
		if !q.ContainsGroup(entry.File) {
			continue
		}
		reg, err := l.loadModule(s, entry)
		if err != nil {
			return nil, err
		}
		for _, c := range reg.Cases() {
			cq := query.ForCase(s.Name, entry.File, c.Test().Name(), c.Params())
			if q.Contains(cq) {
				out = append(out, &TestCase{Query: cq, Case: c})
			}
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, q)
	}
	return out, nil
}

// LoadCase resolves q to exactly one case.
func (l *Loader) LoadCase(ctx context.Context, q query.Query) (*TestCase, error) {
	cases, err := l.LoadCases(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(cases) != 1 {
		return nil, fmt.Errorf("%w: %s matches %d cases", ErrAmbiguous, q, len(cases))
	}
	return cases[0], nil
}

func (l *Loader) loadModule(s *Suite, entry Entry) (*registry.Registry, error) {
	key := s.Name + ":" + entry.Path()

	l.mu.Lock()
	defer l.mu.Unlock()
	if reg, ok := l.modules[key]; ok {
		return reg, nil
	}

	mod, ok := s.Modules[entry.Path()]
	if !ok || mod.Register == nil {
		return nil, fmt.Errorf("%w: suite %s has no module %s", ErrStaleListing, s.Name, entry.Path())
	}
	g := registry.NewGroup()
	mod.Register(g)
	reg, err := g.Build()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	l.modules[key] = reg
	return reg, nil
}
