package domain

// MigrationResult represents the outcome of applying one schema migration
type MigrationResult struct {
	Version int
	Name    string
	Applied bool // False when the migration was already recorded
	Error   error
}
