package ui

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"cts/internal/domain"
	"cts/internal/storage"

	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Viewer shows the failures of a run
type Viewer interface {
	View(results *domain.RunOutput) error
}

// ErrorViewer displays failed cases in an interactive TUI
type ErrorViewer struct {
	storage storage.Storage
}

// NewErrorViewer creates a new ErrorViewer saving resolved marks to st
func NewErrorViewer(st storage.Storage) *ErrorViewer {
	return &ErrorViewer{storage: st}
}

// View displays failed cases in an interactive TUI
func (ev *ErrorViewer) View(results *domain.RunOutput) error {
	if len(results.Details) == 0 {
		color.Green("✓ No failed cases found!")
		return nil
	}
	b := &failureBrowser{output: results, storage: ev.storage}

	app := tview.NewApplication()
	header := tview.NewTextView().SetTextAlign(tview.AlignCenter).SetDynamicColors(true)
	stats := tview.NewTextView().SetDynamicColors(true)
	details := tview.NewTextView().SetDynamicColors(true).SetWordWrap(true)
	list := tview.NewList().ShowSecondaryText(false).SetHighlightFullLine(true)
	list.SetSelectedTextColor(tcell.ColorWhite).SetSelectedBackgroundColor(tcell.ColorDarkCyan)
	for i := range results.Details {
		list.AddItem(b.itemText(i), "", 0, nil)
	}

	show := func(i int) {
		if i < 0 || i >= len(results.Details) {
			return
		}
		stats.SetText(ev.formatFailureStats(results.Details[i], i+1))
		details.SetText(ev.formatFailureDetails(results.Details[i]))
	}
	list.SetChangedFunc(func(i int, _, _ string, _ rune) { show(i) })

	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyEnter || event.Key() == tcell.KeyRight:
			app.SetFocus(details)
			return nil
		case event.Key() == tcell.KeyRune && (event.Rune() == 'r' || event.Rune() == 'R'):
			i := list.GetCurrentItem()
			err := b.toggle(i)
			list.SetItemText(i, b.itemText(i), "")
			header.SetText(b.header())
			show(i)
			if err != nil {
				stats.SetText(fmt.Sprintf("[red]failed to save: %s[white]", tview.Escape(err.Error())))
			}
			return nil
		}
		return event
	})
	details.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyLeft || event.Key() == tcell.KeyEsc {
			app.SetFocus(list)
			return nil
		}
		return event
	})

	header.SetText(b.header())
	show(0)

	// List on the left third, case header and details on the right
	grid := tview.NewGrid().
		SetRows(1, 3, 0).
		SetColumns(0, 0, 0).
		SetGap(0, 2).
		AddItem(header, 0, 0, 1, 3, 0, 0, false).
		AddItem(list, 1, 0, 2, 1, 0, 0, true).
		AddItem(stats, 1, 1, 1, 2, 0, 0, false).
		AddItem(details, 2, 1, 1, 2, 0, 0, false)

	if err := app.SetRoot(grid, true).SetFocus(list).Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// failureBrowser is the state behind the viewer's widgets.
type failureBrowser struct {
	output  *domain.RunOutput
	storage storage.Storage
}

// toggle flips the resolved mark of failure i and saves it.
func (b *failureBrowser) toggle(i int) error {
	if i < 0 || i >= len(b.output.Details) {
		return nil
	}
	b.output.Details[i].Resolved = !b.output.Details[i].Resolved
	return b.storage.SaveOutput(b.output)
}

func (b *failureBrowser) unresolved() int {
	n := 0
	for _, f := range b.output.Details {
		if !f.Resolved {
			n++
		}
	}
	return n
}

func (b *failureBrowser) header() string {
	return fmt.Sprintf(" Failed Cases (%d total, %d unresolved) | ↑↓ navigate, [yellow]R[white] mark resolved, → details, ← back, Ctrl+C exit ",
		len(b.output.Details), b.unresolved())
}

func (b *failureBrowser) itemText(i int) string {
	name := tview.Escape(caseLabel(b.output.Details[i], i+1))
	if b.output.Details[i].Resolved {
		return fmt.Sprintf("[gray]✓ [yellow]%d.[gray] %s[white]", i+1, name)
	}
	return fmt.Sprintf("[yellow]%d.[white] %s", i+1, name)
}

// formatFailureDetails formats a failed case for display using tview color tags ([red], [cyan], etc.)
func (ev *ErrorViewer) formatFailureDetails(failure domain.Failure) string {
	var builder strings.Builder
	w := tabwriter.NewWriter(&builder, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "[red]✗ Case: %s[white]\n\n", tview.Escape(failure.Query))
	fmt.Fprintf(w, "[cyan]Status: %s[white]\n\n", failure.Status)

	// Log messages, repeats already carry their "seen N times" suffix
	if len(failure.Messages) > 0 {
		fmt.Fprintf(w, "[yellow]Messages:[white]\n")
		for _, msg := range failure.Messages {
			fmt.Fprintf(w, "  %s\n", tview.Escape(msg))
		}
		fmt.Fprintf(w, "\n")
	}

	// Stack trace
	if len(failure.Stack) > 0 {
		fmt.Fprintf(w, "[yellow]Stack Trace:[white]\n")
		for i, frame := range failure.Stack {
			if i < 10 {
				fmt.Fprintf(w, "  %s\n", tview.Escape(frame))
			}
		}
		if len(failure.Stack) > 10 {
			fmt.Fprintf(w, "  [gray]... and %d more lines[white]\n", len(failure.Stack)-10)
		}
	}

	w.Flush()
	return builder.String()
}

// formatFailureStats formats the stats header for a failed case
func (ev *ErrorViewer) formatFailureStats(failure domain.Failure, number int) string {
	return fmt.Sprintf("[cyan]case:[white] [yellow]%s[white]\n", tview.Escape(caseLabel(failure, number)))
}

func caseLabel(failure domain.Failure, number int) string {
	if failure.Query == "" {
		return fmt.Sprintf("Case %d", number)
	}
	return failure.Query
}
