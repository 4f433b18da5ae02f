package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"UsageForecaster/pkg/graphing"
)

// NewGraphCmd creates the graph subcommand.
func NewGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Aliases: []string{"g"},
		Use:     "graph",
		Short:   "Render PNG charts into the output directory",
		Long: `Render the cpu histogram, the hourly cpu pattern and the cpu/memory
correlation of the dataset as PNG files. They are written to the output
directory, where the visualization listing picks them up.

Example:
  forecaster graph
  forecaster graph -d data.parquet -o ./output --buckets 30`,
		Args: cobra.NoArgs,
		RunE: runGraph,
	}

	Cfg.AddDataFlags(cmd)
	cmd.Flags().IntVar(&Cfg.CorrelationWindow, "correlation-window", Cfg.CorrelationWindow, "Samples used for the cpu/memory correlation")

	return cmd
}

func runGraph(cmd *cobra.Command, args []string) error {
	Cfg.ApplyDefaults()

	samples, err := loadSamples(Cfg.DataLimit)
	if err != nil {
		return fmt.Errorf("failed to load data: %w", err)
	}

	gen, err := graphing.NewGenerator(Cfg.OutputDir, graphing.Options{
		TimeSeriesWindow:  Cfg.TimeSeriesWindow,
		CorrelationWindow: Cfg.CorrelationWindow,
		HistogramBuckets:  Cfg.HistogramBuckets,
	}, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	paths, err := gen.Generate(samples)
	if err != nil {
		return fmt.Errorf("failed to generate graphs: %w", err)
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}
