package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/rowdb/am"
	"github.com/teranos/rowdb/cmd/rowdb/commands"
	"github.com/teranos/rowdb/db"
	"github.com/teranos/rowdb/errors"
	"github.com/teranos/rowdb/logger"
)

var rootCmd = &cobra.Command{
	Use:   "rowdb",
	Short: "rowdb - schema-driven tables over SQLite",
	Long: `rowdb - schema-driven tables over SQLite.

Inspect and maintain databases written by rowdb: list tables, compare live
schemas, read rows and reconcile file-backed columns.

Available commands:
  am      - Manage rowdb configuration ("I am")
  tables  - List tables
  inspect - Show a table's reflected schema
  select  - Read rows from a table
  files   - Maintain file-backed columns
  version - Show version information

Examples:
  rowdb am show                      # Show current configuration
  rowdb tables                       # List tables with row counts
  rowdb inspect users --format yaml  # Reflected schema as YAML
  rowdb select users --limit 5       # First five rows
  rowdb files reconcile docs body    # Delete unreferenced payload files`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonOutput := false
		// Config problems surface in the command itself; logging still starts
		cfg, cfgErr := am.Load()
		if cfgErr == nil {
			verbosity = max(verbosity, cfg.Log.Verbosity)
			jsonOutput = cfg.Log.JSON
		}
		if err := logger.Initialize(jsonOutput, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if cfgErr != nil {
			logger.Warnw("Configuration not loaded", logger.FieldError, cfgErr)
		}
		logger.Debugw("Logger initialized", "verbosity", logger.LevelName(verbosity))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().String("db", "", "Database path (overrides database.path)")

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.TablesCmd)
	rootCmd.AddCommand(commands.InspectCmd)
	rootCmd.AddCommand(commands.SelectCmd)
	rootCmd.AddCommand(commands.FilesCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.WithWriter(os.Stderr).Println(err)
		for _, d := range errors.GetAllDetails(err) {
			fmt.Fprintf(os.Stderr, "  %s\n", d)
		}
		for _, h := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "  hint: %s\n", h)
		}
		if hint := engineHint(err); hint != "" {
			fmt.Fprintf(os.Stderr, "  hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

// engineHint explains SQLite failures the command cannot attach a hint to.
func engineHint(err error) string {
	switch {
	case db.IsBusy(err):
		return "another process holds the database lock; raise database.busy_timeout_ms"
	case db.IsReadonly(err):
		return "the database was opened read-only; unset database.readonly"
	case db.IsDatabaseClosed(err):
		return "the connection closed before the command finished"
	}
	return ""
}
