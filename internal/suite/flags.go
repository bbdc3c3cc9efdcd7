package suite

import "time"

// Flags are the command-line options shared by every command that resolves
// a package. A flag overrides the settings file only when it is given.
type Flags struct {
	Settings         string         `help:"Settings file. Defaults to hosttest.yaml in the package directory." type:"path"`
	Deferred         *bool          `help:"Use the deferring runner, which supports deferrable cases"`
	LegacyRunner     *bool          `help:"Detect completion of deferrable cases by polling"`
	CaptureConsole   *bool          `help:"Copy console output and log records into the report"`
	ReportVerbosity  *int           `help:"Report verbosity: 0 summary only, 1 one character per case, 2 one line per case"`
	Pattern          *string        `help:"File name pattern of test modules"`
	TestsDir         *string        `help:"Directory of test modules, relative to the package"`
	Output           *string        `short:"o" help:"Write the report to this file instead of the console" type:"path"`
	FailFast         *bool          `name:"failfast" help:"Stop at the first bad case"`
	PollInterval     *time.Duration `help:"Interval between cleanup checks"`
	PollCeiling      *int           `help:"Number of cleanup checks before the run is forced to finish"`
	ConditionTimeout *time.Duration `help:"Default timeout of waiting script steps"`
}

// Overrides returns the configuration values set on the command line.
func (f *Flags) Overrides() map[string]any {
	out := make(map[string]any)

	if f.Deferred != nil {
		out["deferred"] = *f.Deferred
	}
	if f.LegacyRunner != nil {
		out["legacy_runner"] = *f.LegacyRunner
	}
	if f.CaptureConsole != nil {
		out["capture_console"] = *f.CaptureConsole
	}
	if f.ReportVerbosity != nil {
		out["verbosity"] = *f.ReportVerbosity
	}
	if f.Pattern != nil {
		out["pattern"] = *f.Pattern
	}
	if f.TestsDir != nil {
		out["tests_dir"] = *f.TestsDir
	}
	if f.Output != nil {
		out["output"] = *f.Output
	}
	if f.FailFast != nil {
		out["failfast"] = *f.FailFast
	}
	if f.PollInterval != nil {
		out["poll_interval"] = *f.PollInterval
	}
	if f.PollCeiling != nil {
		out["poll_ceiling"] = *f.PollCeiling
	}
	if f.ConditionTimeout != nil {
		out["condition_timeout"] = *f.ConditionTimeout
	}

	return out
}

// Resolve resolves the package at dir with these flags applied.
func (f *Flags) Resolve(dir string) (Package, error) {
	return Resolve(dir, f.Settings, f.Overrides())
}
