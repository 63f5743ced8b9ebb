package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"cts/internal/domain"
	"cts/internal/loader"
	"cts/internal/logging"
	"cts/internal/query"

	"github.com/fatih/color"
)

var (
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	white  = color.New(color.FgWhite)
	gray   = color.New(color.FgHiBlack)
)

// Formatter formats and displays output
type Formatter struct {
	out io.Writer
}

// NewFormatter creates a new Formatter writing to the color-aware stdout
func NewFormatter() *Formatter {
	return &Formatter{out: color.Output}
}

// NewFormatterTo creates a new Formatter writing to w
func NewFormatterTo(w io.Writer) *Formatter {
	return &Formatter{out: w}
}

// statusColor picks the color a status is printed in
func statusColor(s logging.Status) *color.Color {
	switch s {
	case logging.StatusPassed:
		return green
	case logging.StatusFailed:
		return red
	case logging.StatusWarned, logging.StatusUnimplemented:
		return yellow
	case logging.StatusSkipped:
		return gray
	}
	return white
}

// PrintResults prints one block per case, grouped by query. Passed cases
// are listed only when verbose; their logs never are.
func (f *Formatter) PrintResults(results []domain.CaseResult, verbose bool) {
	sorted := make([]domain.CaseResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Query < sorted[j].Query })

	for _, r := range sorted {
		status := r.Status()
		if status == logging.StatusPassed && !verbose {
			continue
		}
		statusColor(status).Fprintf(f.out, "[%s] ", status)
		fmt.Fprint(f.out, r.Query)
		if r.Result != nil && r.Result.TimeMS > 0 {
			gray.Fprintf(f.out, " (%.1fms)", r.Result.TimeMS)
		}
		fmt.Fprintln(f.out)

		if r.Error != "" {
			red.Fprintf(f.out, "  - %s\n", r.Error)
		}
		if r.Result == nil || (status == logging.StatusPassed && !verbose) {
			continue
		}
		for _, m := range r.Result.Logs {
			// LogMessage.String appends "(seen N times)" for repeats.
			lines := strings.Split(m.String(), "\n")
			fmt.Fprintf(f.out, "  - %s\n", lines[0])
			for _, line := range lines[1:] {
				gray.Fprintf(f.out, "  %s\n", line)
			}
		}
	}
}

// PrintMetaStats displays the statistics of a run
func (f *Formatter) PrintMetaStats(output *domain.RunOutput) {
	meta := output.Meta

	// Print header
	fmt.Fprint(f.out, "\n")
	cyan.Fprintln(f.out, "╔═══════════════════════════════════════════════════════════════╗")
	cyan.Fprintln(f.out, "║                    Test Execution Statistics                  ║")
	cyan.Fprintln(f.out, "╚═══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(f.out)

	// Print table
	fmt.Fprintln(f.out, "┌─────────────────────────────────┬─────────────────────────────┐")
	row := func(label string, c *color.Color, value any) {
		fmt.Fprintf(f.out, "│ %-31s │ ", label)
		c.Fprintf(f.out, "%-27v", value)
		fmt.Fprintln(f.out, " │")
	}
	sep := func() {
		fmt.Fprintln(f.out, "├─────────────────────────────────┼─────────────────────────────┤")
	}

	row("Total Cases", white, meta.TotalCases)
	for _, s := range []logging.Status{
		logging.StatusPassed,
		logging.StatusFailed,
		logging.StatusWarned,
		logging.StatusSkipped,
		logging.StatusUnimplemented,
	} {
		sep()
		row(strings.ToUpper(string(s)[:1])+string(s)[1:], statusColor(s), meta.Counts[string(s)])
	}
	sep()
	row("Duration", white, fmt.Sprintf("%.2fs", meta.DurationSeconds))
	sep()
	row("Workers", white, fmt.Sprintf("%d (%s)", meta.Workers, meta.Isolation))
	sep()
	row("Timestamp", white, meta.Timestamp)
	fmt.Fprintln(f.out, "└─────────────────────────────────┴─────────────────────────────┘")

	// Print summary line
	fmt.Fprintln(f.out)
	failed := meta.Counts[string(logging.StatusFailed)]
	if failed == 0 {
		green.Fprintln(f.out, "✓ All cases passed!")
	} else {
		red.Fprintf(f.out, "✗ %d of %d case(s) failed\n", failed, meta.TotalCases)
		fmt.Fprintln(f.out)
		f.printFailedCasesTree(output.Details)
	}
}

// TreeNode represents a node of the query tree
type TreeNode struct {
	Name     string
	Children map[string]*TreeNode
	Failures []domain.Failure
	IsTest   bool
}

// printFailedCasesTree prints failed cases below their suite, group path
// and test.
func (f *Formatter) printFailedCasesTree(failures []domain.Failure) {
	if len(failures) == 0 {
		return
	}

	root := &TreeNode{Children: make(map[string]*TreeNode)}
	for _, failure := range failures {
		parts := []string{failure.Query}
		if q, err := query.Parse(failure.Query); err == nil {
			parts = append(append([]string{q.Suite}, q.Group...), q.Test)
		}

		current := root
		for i, part := range parts {
			if current.Children[part] == nil {
				current.Children[part] = &TreeNode{
					Name:     part,
					Children: make(map[string]*TreeNode),
					IsTest:   i == len(parts)-1,
				}
			}
			current = current.Children[part]
		}
		current.Failures = append(current.Failures, failure)
	}

	f.printTreeNode(root, "")
}

func (f *Formatter) printTreeNode(node *TreeNode, prefix string) {
	// Sort children for consistent output
	var keys []string
	for key := range node.Children {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for i, key := range keys {
		child := node.Children[key]
		last := i == len(keys)-1

		connector, childPrefix := "├── ", "│   "
		if last {
			connector, childPrefix = "└── ", "    "
		}

		if child.IsTest {
			yellow.Fprintf(f.out, "%s%s%s\n", prefix, connector, child.Name)
		} else {
			cyan.Fprintf(f.out, "%s%s%s\n", prefix, connector, child.Name)
		}

		for j, failure := range child.Failures {
			caseConnector := "├── "
			if j == len(child.Failures)-1 && len(child.Children) == 0 {
				caseConnector = "└── "
			}
			name := failure.Query
			if q, err := query.Parse(failure.Query); err == nil {
				name = q.Params.String()
				if name == "" {
					name = "(no params)"
				}
			}
			marker := ""
			if failure.Resolved {
				marker = " " + green.Sprint("[resolved]")
			}
			red.Fprintf(f.out, "%s%s%s%s\n", prefix+childPrefix, caseConnector, name, marker)
		}

		f.printTreeNode(child, prefix+childPrefix)
	}
}

// PrintListing prints a suite listing as a tree of directories and modules
func (f *Formatter) PrintListing(suite string, listing loader.Listing) {
	cyan.Fprintln(f.out, suite)
	for _, e := range listing {
		depth := len(e.File)
		if depth == 0 {
			if e.Readme != nil && *e.Readme != "" {
				gray.Fprintf(f.out, "  %s\n", firstLine(*e.Readme))
			}
			continue
		}
		indent := strings.Repeat("  ", depth)
		name := e.File[depth-1]
		if e.IsModule() {
			yellow.Fprintf(f.out, "%s%s", indent, name)
			if *e.Description != "" {
				gray.Fprintf(f.out, "  %s", firstLine(*e.Description))
			}
		} else {
			cyan.Fprintf(f.out, "%s%s/", indent, name)
			if e.Readme != nil && *e.Readme != "" {
				gray.Fprintf(f.out, "  %s", firstLine(*e.Readme))
			}
		}
		fmt.Fprintln(f.out)
	}
}

// PrintTestList prints tests, optionally with their cases. failed is
// optional; cases in it are marked with [F] in red (from last run).
func (f *Formatter) PrintTestList(tests []domain.ListedTest, showCases bool, failed map[string]struct{}) {
	green.Fprintf(f.out, "Found %d test(s):\n\n", len(tests))

	for i, test := range tests {
		isLastTest := i == len(tests)-1
		branch, stem := "├── ", "│   "
		if isLastTest {
			branch, stem = "└── ", "    "
		}

		marker := ""
		if test.Unimplemented {
			marker = " " + yellow.Sprint("[unimplemented]")
		}
		if !showCases {
			for _, c := range test.Cases {
				if _, ok := failed[c]; ok {
					marker += " " + red.Sprint("[F]")
					break
				}
			}
		}
		cyan.Fprintf(f.out, "%s%s", branch, test.Query)
		fmt.Fprintln(f.out, marker)

		if !showCases {
			continue
		}
		if len(test.Cases) == 0 {
			fmt.Fprintf(f.out, "%s└── %s\n", stem, red.Sprint("(no cases)"))
			continue
		}
		for j, c := range test.Cases {
			caseBranch := "├── "
			if j == len(test.Cases)-1 {
				caseBranch = "└── "
			}
			caseMarker := ""
			if _, ok := failed[c]; ok {
				caseMarker = " " + red.Sprint("[F]")
			}
			fmt.Fprintf(f.out, "%s%s%s%s\n", stem, caseBranch, yellow.Sprint(c), caseMarker)
		}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
