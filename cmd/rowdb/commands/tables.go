package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/rowdb/logger"
	"github.com/teranos/rowdb/query"
	"github.com/teranos/rowdb/sym"
	"github.com/teranos/rowdb/table"
)

// TablesCmd lists the tables of the configured database
var TablesCmd = &cobra.Command{
	Use:   "tables",
	Short: sym.DB + " List tables",
	Long: sym.DB + ` tables - List the tables of the database with their row counts.

Internal sqlite_* tables are not listed.

Examples:
  rowdb tables
  rowdb tables --db other.db --format json`,
	Args: cobra.NoArgs,
	RunE: runTables,
}

var tablesFormat string

func init() {
	TablesCmd.Flags().StringVar(&tablesFormat, "format", "table", "Output format: table, json, yaml")
}

type tableSummary struct {
	Name    string `json:"name" yaml:"name"`
	Columns int    `json:"columns" yaml:"columns"`
	Rows    int64  `json:"rows" yaml:"rows"`
}

func runTables(cmd *cobra.Command, args []string) error {
	database, cfg, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := operationContext(cmd, "tables")
	names, err := table.Tables(ctx, database)
	if err != nil {
		return err
	}

	summaries := make([]tableSummary, 0, len(names))
	for _, name := range names {
		h, err := table.Reflect(ctx, database, name, table.WithReadonly(), table.WithLogger(logger.ComponentLogger("table")))
		if err != nil {
			return err
		}
		n, err := h.Count(ctx, query.Predicate{})
		if err != nil {
			return err
		}
		summaries = append(summaries, tableSummary{Name: name, Columns: len(h.Schema().Columns()), Rows: n})
	}

	logger.DBInfow("Listed tables", logger.FieldCount, len(summaries))

	if tablesFormat != "table" {
		return writeStructured(cmd.OutOrStdout(), tablesFormat, summaries)
	}
	if len(summaries) == 0 {
		pterm.Info.Println("No tables")
		return nil
	}
	data := pterm.TableData{{"TABLE", "COLUMNS", "ROWS"}}
	for _, s := range summaries {
		data = append(data, []string{s.Name, fmt.Sprint(s.Columns), fmt.Sprint(s.Rows)})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	if logger.ShouldOutput(verbosity(cmd, cfg), logger.OutputSummary) {
		pterm.Info.Printf("%d tables\n", len(summaries))
	}
	return nil
}
