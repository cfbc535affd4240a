package commands

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/rowdb/logger"
	"github.com/teranos/rowdb/sym"
	"github.com/teranos/rowdb/table"
)

// FilesCmd groups maintenance of file-backed columns
var FilesCmd = &cobra.Command{
	Use:   "files",
	Short: sym.Files + " Maintain file-backed columns",
	Long: sym.Files + ` files - Maintain columns whose values are stored as files.

The folder defaults to <files.root>/<column> and the codec to files.codec.

Examples:
  rowdb files reconcile docs body
  rowdb files reconcile docs body --folder ./payloads --codec cbor
  rowdb files ls docs body`,
}

var filesReconcileCmd = &cobra.Command{
	Use:   "reconcile <table> <column>",
	Short: "Delete files no row references",
	Long: `Delete files in the column's folder that no row references, along with
temp files left by interrupted writes.

If a row references a file that does not exist, nothing is deleted and the
affected rows are reported.`,
	Args: cobra.ExactArgs(2),
	RunE: runFilesReconcile,
}

var filesLsCmd = &cobra.Command{
	Use:   "ls <table> <column>",
	Short: "List stored files",
	Args:  cobra.ExactArgs(2),
	RunE:  runFilesLs,
}

var (
	filesFolder string
	filesCodec  string
	filesFormat string
)

func init() {
	FilesCmd.PersistentFlags().StringVar(&filesFolder, "folder", "", "Folder holding the column's files")
	FilesCmd.PersistentFlags().StringVar(&filesCodec, "codec", "", "Codec the files were written with: json, cbor, raw")
	filesReconcileCmd.Flags().StringVar(&filesFormat, "format", "table", "Output format: table, json, yaml")

	FilesCmd.AddCommand(filesReconcileCmd)
	FilesCmd.AddCommand(filesLsCmd)
}

func openFileColumn(ctx context.Context, cmd *cobra.Command, name, column string, readonly bool) (*table.Handle, func(), error) {
	database, cfg, err := openDatabase(cmd)
	if err != nil {
		return nil, nil, err
	}

	folder := filesFolder
	if folder == "" {
		folder = filepath.Join(cfg.GetFilesRoot(), column)
	}
	codec := filesCodec
	if codec == "" {
		codec = cfg.GetCodec()
	}

	opts := []table.Option{
		table.WithLogger(logger.ComponentLogger("table")),
		table.WithFileColumn(column, folder, codec),
	}
	if readonly || cfg.Database.Readonly {
		opts = append(opts, table.WithReadonly())
	}
	h, err := table.Reflect(ctx, database, name, opts...)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return h, func() { database.Close() }, nil
}

func runFilesReconcile(cmd *cobra.Command, args []string) error {
	ctx := operationContext(cmd, "reconcile")
	h, done, err := openFileColumn(ctx, cmd, args[0], args[1], false)
	if err != nil {
		return err
	}
	defer done()

	report, err := h.ReconcileFileColumn(ctx, args[1])
	if err != nil {
		return err
	}
	logger.FilesInfow("Reconcile finished",
		logger.FieldTable, args[0],
		logger.FieldColumn, args[1],
		logger.FieldDeleted, len(report.Deleted))

	if filesFormat != "table" {
		return writeStructured(cmd.OutOrStdout(), filesFormat, report)
	}
	pterm.Success.Printf("Reconciled %s.%s\n", args[0], args[1])
	pterm.Printf("  Referenced files: %d\n", report.Live)
	pterm.Printf("  Deleted:          %d\n", len(report.Deleted))
	pterm.Printf("  Temp removed:     %d\n", report.TempRemoved)
	if len(report.Deleted) > 0 {
		pterm.Printf("  %s\n", strings.Join(report.Deleted, "\n  "))
	}
	return nil
}

func runFilesLs(cmd *cobra.Command, args []string) error {
	h, done, err := openFileColumn(operationContext(cmd, "ls"), cmd, args[0], args[1], true)
	if err != nil {
		return err
	}
	defer done()

	store, _ := h.Files(args[1])
	refs, err := store.Refs()
	if err != nil {
		return err
	}
	for _, ref := range refs {
		pterm.Println(ref)
	}
	return nil
}
