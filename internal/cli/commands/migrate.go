package commands

import (
	"cts/internal/migration"

	"github.com/spf13/cobra"
)

// MigrateCommand handles the migrate command
type MigrateCommand struct {
	migrator migration.Migrator
}

// NewMigrateCommand creates a new MigrateCommand
func NewMigrateCommand(migrator migration.Migrator) *MigrateCommand {
	return &MigrateCommand{
		migrator: migrator,
	}
}

// Execute runs the command
func (mc *MigrateCommand) Execute(cmd *cobra.Command, args []string) error {
	_, err := mc.migrator.Run(cmd.Context())
	return err
}
