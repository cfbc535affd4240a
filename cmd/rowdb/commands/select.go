package commands

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/rowdb/logger"
	"github.com/teranos/rowdb/query"
	"github.com/teranos/rowdb/row"
	"github.com/teranos/rowdb/sym"
	"github.com/teranos/rowdb/table"
)

// SelectCmd reads rows from a table without a compiled schema
var SelectCmd = &cobra.Command{
	Use:   "select <table>",
	Short: sym.Query + " Read rows from a table",
	Long: sym.Query + ` select - Read rows from a reflected table.

Values are shown as stored: file-backed columns show their file reference.
--where takes a SQL fragment with ? placeholders bound by --arg, in order.

Examples:
  rowdb select users --limit 10
  rowdb select users --columns id,name --order name
  rowdb select users --where "age > ?" --arg 30 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runSelect,
}

var (
	selectColumns  []string
	selectWhere    string
	selectArgs     []string
	selectOrder    []string
	selectLimit    int
	selectOffset   int
	selectDistinct bool
	selectFormat   string
)

func init() {
	SelectCmd.Flags().StringSliceVarP(&selectColumns, "columns", "c", nil, "Columns to read (default: all)")
	SelectCmd.Flags().StringVarP(&selectWhere, "where", "w", "", "SQL predicate with ? placeholders")
	SelectCmd.Flags().StringArrayVar(&selectArgs, "arg", nil, "Placeholder value for --where (repeatable)")
	SelectCmd.Flags().StringSliceVar(&selectOrder, "order", nil, "ORDER BY terms")
	SelectCmd.Flags().IntVarP(&selectLimit, "limit", "n", 0, "Maximum rows (0 for no limit)")
	SelectCmd.Flags().IntVar(&selectOffset, "offset", 0, "Rows to skip")
	SelectCmd.Flags().BoolVar(&selectDistinct, "distinct", false, "Drop duplicate rows")
	SelectCmd.Flags().StringVar(&selectFormat, "format", "table", "Output format: table, json, yaml")
}

func runSelect(cmd *cobra.Command, args []string) error {
	database, cfg, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := operationContext(cmd, "select")
	h, err := table.Reflect(ctx, database, args[0], table.WithReadonly(), table.WithLogger(logger.ComponentLogger("table")))
	if err != nil {
		return err
	}

	q := table.Query{
		Columns:  selectColumns,
		OrderBy:  selectOrder,
		Limit:    selectLimit,
		Offset:   selectOffset,
		Distinct: selectDistinct,
	}
	if selectWhere != "" {
		bound := make([]any, len(selectArgs))
		for i, a := range selectArgs {
			bound[i] = a
		}
		q.Where = query.Where(selectWhere, bound...)
	}

	start := time.Now()
	rows, err := h.SelectRaw(ctx, q)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if selectFormat != "table" {
		return writeStructured(cmd.OutOrStdout(), selectFormat, rows)
	}

	columns := selectColumns
	if len(columns) == 0 {
		columns = h.Schema().ColumnNames()
	}
	if err := renderRows(columns, rowsOrEmpty(rows)); err != nil {
		return err
	}

	v := verbosity(cmd, cfg)
	if logger.ShouldOutput(v, logger.OutputSummary) {
		pterm.Info.Printf("%d rows\n", len(rows))
	}
	if logger.ShouldOutput(v, logger.OutputTiming) {
		pterm.Info.Printf("query took %s\n", elapsed.Round(time.Microsecond))
	}
	return nil
}

func rowsOrEmpty(rows []row.Values) []row.Values {
	if rows == nil {
		return []row.Values{}
	}
	return rows
}
