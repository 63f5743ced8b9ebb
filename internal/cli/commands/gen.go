package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cts/internal/loader"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// ErrStale is returned by `gen --check` when a manifest is out of date
var ErrStale = errors.New("listing manifests are out of date; run `cts gen`")

// GenCommand writes listing manifests
type GenCommand struct {
	env *environment
}

// NewGenCommand creates a new GenCommand
func NewGenCommand(env *environment) *GenCommand {
	return &GenCommand{env: env}
}

// Execute runs the command
func (gc *GenCommand) Execute(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Usage()
	}

	cfg := gc.env.config
	marker := cfg.GetRootMarkerPath()
	if _, err := os.Stat(marker); err != nil {
		return fmt.Errorf("gen must be run from the project root: %s not found", marker)
	}

	l, err := gc.env.loader()
	if err != nil {
		return err
	}
	check, _ := cmd.Flags().GetBool("check")

	stale := false
	for _, suite := range args {
		s, err := l.Suite(suite)
		if err != nil {
			return err
		}
		listing, err := l.Crawl(cmd.Context(), suite)
		if err != nil {
			return err
		}
		for _, e := range listing.Modules() {
			if _, ok := s.Modules[e.Path()]; !ok {
				color.Yellow("warning: %s:%s is not in the module table", suite, e.Path())
			}
		}

		path := l.ManifestPath(suite)
		rel, err := filepath.Rel(cfg.ProjectPath, path)
		if err != nil {
			rel = path
		}

		if check {
			diff, err := l.Verify(cmd.Context(), suite)
			if errors.Is(err, loader.ErrStaleListing) {
				color.Red("✗ %s: %v", suite, err)
				stale = true
				continue
			}
			if err != nil {
				return err
			}
			if len(diff) > 0 {
				color.Red("✗ %s is out of date:", rel)
				for _, line := range diff {
					fmt.Fprintf(cmd.OutOrStdout(), "    %s\n", line)
				}
				stale = true
				continue
			}
			color.Green("✓ %s is up to date", rel)
			continue
		}

		if err := loader.WriteListing(path, suite, listing); err != nil {
			return err
		}
		color.Green("✓ Wrote %s (%d modules)", rel, len(listing.Modules()))
	}

	if stale {
		return ErrStale
	}
	return nil
}
