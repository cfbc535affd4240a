package logger

// Output controls what categories of information the CLI prints at each
// verbosity level.
//
// Unlike log levels (which filter by severity), output categories control
// WHAT types of information are displayed regardless of severity.
//
//	0 (default) - rows, errors with hints, final status
//	1 (-v)      - + summaries (row counts, reconcile totals)
//	2 (-vv)     - + timing, config sources, generated SQL

// OutputCategory defines a category of output that can be enabled/disabled
type OutputCategory int

const (
	OutputResults    OutputCategory = iota // Rows, schemas, command output
	OutputErrors                           // Errors with hints
	OutputUserStatus                       // Final success/failure status

	OutputSummary // Row counts, reconcile totals

	OutputTiming // Operation timing
	OutputConfig // Config sources consulted
	OutputSQL    // Statements as sent to the engine
)

var categoryLevels = map[OutputCategory]int{
	OutputResults:    VerbosityUser,
	OutputErrors:     VerbosityUser,
	OutputUserStatus: VerbosityUser,

	OutputSummary: VerbosityInfo,

	OutputTiming: VerbosityDebug,
	OutputConfig: VerbosityDebug,
	OutputSQL:    VerbosityDebug,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		return verbosity >= VerbosityDebug
	}
	return verbosity >= minLevel
}

var categoryNames = map[OutputCategory]string{
	OutputResults:    "results",
	OutputErrors:     "errors",
	OutputUserStatus: "status",
	OutputSummary:    "summary",
	OutputTiming:     "timing",
	OutputConfig:     "config",
	OutputSQL:        "sql",
}

// CategoryName returns the human-readable name for an output category
func CategoryName(category OutputCategory) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return "unknown"
}
