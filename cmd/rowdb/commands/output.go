package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/rowdb/am"
	"github.com/teranos/rowdb/logger"
	"github.com/teranos/rowdb/row"
)

// verbosity is the -v count, raised to log.verbosity from config.
func verbosity(cmd *cobra.Command, cfg *am.Config) int {
	v, _ := cmd.Flags().GetCount("verbose")
	if cfg != nil {
		v = max(v, cfg.Log.Verbosity)
	}
	return v
}

// operationContext tags statement logs issued by a command.
func operationContext(cmd *cobra.Command, op string) context.Context {
	return logger.WithOperation(logger.WithComponent(cmd.Context(), "cli"), op)
}

// writeStructured renders v as json or yaml. Any other format is an error.
func writeStructured(out io.Writer, format string, v any) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		fmt.Fprint(out, string(data))
	default:
		return fmt.Errorf("unsupported format: %s (supported: table, json, yaml)", format)
	}
	return nil
}

// renderRows prints rows as a table with the given column order.
func renderRows(columns []string, rows []row.Values) error {
	data := pterm.TableData{columns}
	for _, r := range rows {
		line := make([]string, len(columns))
		for i, c := range columns {
			line[i] = cell(r[c])
		}
		data = append(data, line)
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
