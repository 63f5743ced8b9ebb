package commands

import (
	"context"
	"strings"

	"cts/internal/discovery"
	"cts/internal/domain"
	"cts/internal/loader"
	"cts/internal/query"
	"cts/internal/storage"
	"cts/internal/ui"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// ListCommand handles the list command
type ListCommand struct {
	env       *environment
	filter    *discovery.Filter
	parser    *discovery.Parser
	formatter *ui.Formatter
}

// NewListCommand creates a new ListCommand
func NewListCommand(
	env *environment,
	filter *discovery.Filter,
	parser *discovery.Parser,
	formatter *ui.Formatter,
) *ListCommand {
	return &ListCommand{
		env:       env,
		filter:    filter,
		parser:    parser,
		formatter: formatter,
	}
}

// Execute runs the command
func (lc *ListCommand) Execute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	l, err := lc.env.loader()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		args = suiteNames(lc.env.suites)
	}

	showListing, _ := cmd.Flags().GetBool("listing")
	static, _ := cmd.Flags().GetBool("static")
	showCases, _ := cmd.Flags().GetBool("cases")

	if showListing {
		for _, text := range args {
			q, err := query.Parse(text)
			if err != nil {
				return err
			}
			listing, err := l.Listing(ctx, q.Suite)
			if err != nil {
				return err
			}
			lc.formatter.PrintListing(q.Suite, listing)
		}
		return nil
	}

	var tests []domain.ListedTest
	if static {
		tests, err = lc.staticTests(ctx, l, args)
		showCases = false
	} else {
		tests, err = lc.loadedTests(ctx, l, args)
	}
	if err != nil {
		return err
	}

	if len(tests) == 0 {
		color.Yellow("No tests found")
		return nil
	}

	// Failures from the last run are marked when available
	var failed map[string]struct{}
	if last, err := storage.NewJSONStorage(lc.env.config).Load(); err == nil {
		failed = failedSet(last)
	}
	lc.formatter.PrintTestList(tests, showCases, failed)
	return nil
}

// loadedTests loads the modules the queries select and groups their cases
// by test.
func (lc *ListCommand) loadedTests(ctx context.Context, l *loader.Loader, texts []string) ([]domain.ListedTest, error) {
	var tests []domain.ListedTest
	index := make(map[string]int)
	seen := make(map[string]bool)
	for _, text := range texts {
		q, err := query.Parse(text)
		if err != nil {
			return nil, err
		}
		cases, err := l.LoadCases(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, tc := range cases {
			name := tc.Name()
			if seen[name] || !lc.filter.Match(name, lc.env.config.Flags.Filter) {
				continue
			}
			seen[name] = true

			testQuery := query.Query{Suite: tc.Query.Suite, Group: tc.Query.Group, Test: tc.Query.Test}.String()
			i, ok := index[testQuery]
			if !ok {
				test := tc.Case.Test()
				i = len(tests)
				index[testQuery] = i
				tests = append(tests, domain.ListedTest{
					Query:         testQuery,
					Description:   test.Description(),
					Unimplemented: test.IsUnimplemented(),
				})
			}
			tests[i].Cases = append(tests[i].Cases, name)
		}
	}
	return tests, nil
}

// staticTests reads test names from module sources. Parameterized cases are
// not expanded since no module code runs.
func (lc *ListCommand) staticTests(ctx context.Context, l *loader.Loader, texts []string) ([]domain.ListedTest, error) {
	scanner := discovery.NewScanner(lc.env.config.PathsToIgnore)
	var tests []domain.ListedTest
	for _, text := range texts {
		q, err := query.Parse(text)
		if err != nil {
			return nil, err
		}
		s, err := l.Suite(q.Suite)
		if err != nil {
			return nil, err
		}
		files, err := scanner.Scan(ctx, l.SuiteDir(s))
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if f.Kind != discovery.KindModule || !q.ContainsGroup(f.Segments()) {
				continue
			}
			names, err := lc.parser.FindTestNames(f.Path)
			if err != nil {
				return nil, err
			}
			description, err := lc.parser.FindDescription(f.Path)
			if err != nil {
				return nil, err
			}
			for _, name := range names {
				tq := query.Query{Suite: q.Suite, Group: f.Segments(), Test: name}
				if q.Test != "" && q.Test != name {
					continue
				}
				text := tq.String()
				if !lc.filter.Match(text, lc.env.config.Flags.Filter) {
					continue
				}
				tests = append(tests, domain.ListedTest{Query: text, Description: firstLine(description)})
			}
		}
	}
	return tests, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
