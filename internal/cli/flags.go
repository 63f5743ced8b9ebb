package cli

import (
	"time"

	"cts/internal/config"
)

// Flags holds command-line flags
type Flags struct {
	ProjectPath    string
	Workers        int
	Isolation      string
	CaseTimeout    time.Duration
	CaseTimeoutSet bool // --case-timeout was given, zero included
	Debug          bool
	ListingSource  string
	Filter         string
	FailFast       bool
	ShardIndex     int
	ShardCount     int
	OnlyFailed     bool
	OpenFailures   bool
	SaveDB         bool
	Verbose        bool
	ShowCases      bool
	Static         bool
	ShowListing    bool
	Check          bool
}

// ToConfigFlags converts CLI flags to config flags
func (f *Flags) ToConfigFlags() config.Flags {
	return config.Flags{
		ProjectPath:    f.ProjectPath,
		Workers:        f.Workers,
		Isolation:      f.Isolation,
		CaseTimeout:    f.CaseTimeout,
		CaseTimeoutSet: f.CaseTimeoutSet,
		Debug:          f.Debug,
		ListingSource:  f.ListingSource,
		Filter:         f.Filter,
		FailFast:       f.FailFast,
		ShardIndex:     f.ShardIndex,
		ShardCount:     f.ShardCount,
		OnlyFailed:     f.OnlyFailed,
		OpenFailures:   f.OpenFailures,
		SaveDB:         f.SaveDB,
	}
}
