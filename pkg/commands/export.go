package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"UsageForecaster/pkg/exporting"
)

var exportFormat string

// NewExportCmd creates the export subcommand.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Aliases: []string{"x"},
		Use:     "export <output-file>",
		Short:   "Write the dataset with derived metrics to another format",
		Long: `Stream every valid row of the dataset to a new file, adding the cpu usage
percentage and memory in GB. A <name>_summary.json with the dataset
statistics is written next to it.

Supported output formats: csv, tsv, jsonl, parquet

Example:
  forecaster export output/derived.parquet
  forecaster export -d data.csv derived.out --format jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}

	Cfg.AddDataFlags(cmd)
	cmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Output format (from the file extension if empty)")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	Cfg.ApplyDefaults()

	n, err := exporting.ExportDataset(Cfg.DataPath, args[0], exportFormat)
	if err != nil {
		return fmt.Errorf("failed to export %s: %w", Cfg.DataPath, err)
	}
	slog.Info("Export complete", "rows", n, "path", args[0])
	return nil
}
