package commands

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/rowdb/logger"
	"github.com/teranos/rowdb/schema"
	"github.com/teranos/rowdb/sym"
	"github.com/teranos/rowdb/table"
)

// InspectCmd shows the reflected schema of one table
var InspectCmd = &cobra.Command{
	Use:   "inspect <table>",
	Short: sym.Schema + " Show a table's reflected schema",
	Long: sym.Schema + ` inspect - Reconstruct a table's schema from the live database.

Shows columns with storage type, nullability, keys, defaults and foreign
keys, followed by indices.

Examples:
  rowdb inspect users
  rowdb inspect users --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

var inspectFormat string

func init() {
	InspectCmd.Flags().StringVar(&inspectFormat, "format", "table", "Output format: table, json, yaml")
}

type schemaView struct {
	Table   string          `json:"table" yaml:"table"`
	Columns []schema.Column `json:"columns" yaml:"columns"`
	Indices []schema.Index  `json:"indices,omitempty" yaml:"indices,omitempty"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	database, _, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	h, err := table.Reflect(operationContext(cmd, "inspect"), database, args[0], table.WithReadonly(), table.WithLogger(logger.ComponentLogger("table")))
	if err != nil {
		return err
	}
	s := h.Schema()
	view := schemaView{Table: s.Name(), Columns: s.Columns(), Indices: s.Indices()}

	if inspectFormat != "table" {
		return writeStructured(cmd.OutOrStdout(), inspectFormat, view)
	}

	pterm.DefaultSection.Println(view.Table)
	data := pterm.TableData{{"COLUMN", "TYPE", "NULL", "KEY", "DEFAULT", "REFERENCES"}}
	for _, c := range view.Columns {
		data = append(data, []string{c.Name, c.Type.SQL(), yesNo(c.Nullable), keyFlags(c), c.Default, reference(c)})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}

	if len(view.Indices) > 0 {
		pterm.Println()
		ix := pterm.TableData{{"INDEX", "COLUMNS", "UNIQUE"}}
		for _, i := range view.Indices {
			ix = append(ix, []string{i.Name, strings.Join(i.Columns, ", "), yesNo(i.Unique)})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(ix).Render()
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func keyFlags(c schema.Column) string {
	var flags []string
	if c.PrimaryKey {
		flags = append(flags, "pk")
	}
	if c.AutoIncrement {
		flags = append(flags, "autoincrement")
	}
	if c.Unique {
		flags = append(flags, "unique")
	}
	return strings.Join(flags, ",")
}

func reference(c schema.Column) string {
	if c.ForeignKey == nil {
		return ""
	}
	ref := c.ForeignKey.Table + "." + c.ForeignKey.Column
	if c.ForeignKey.OnDelete != "" {
		ref += " on delete " + strings.ToLower(c.ForeignKey.OnDelete)
	}
	return ref
}
