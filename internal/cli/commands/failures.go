package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// FailuresCommand handles the failures command
type FailuresCommand struct {
	env *environment
}

// NewFailuresCommand creates a new FailuresCommand
func NewFailuresCommand(env *environment) *FailuresCommand {
	return &FailuresCommand{env: env}
}

// Execute runs the command
func (fc *FailuresCommand) Execute(cmd *cobra.Command, args []string) error {
	st, closeStorage, err := fc.env.storage(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStorage()

	results, err := st.Load()
	if err != nil {
		return err
	}
	if len(results.Details) == 0 {
		color.Green("✓ The last run had no failures")
		return nil
	}

	return fc.env.viewer(st).View(results)
}
