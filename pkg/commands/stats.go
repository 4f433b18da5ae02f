package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"UsageForecaster/pkg/aggregating"
	"UsageForecaster/pkg/formatting"
	"UsageForecaster/pkg/metrics"
)

var (
	statsAll       bool
	statsHistogram bool
	statsHourly    bool
	statsOutput    string
)

type statsReport struct {
	aggregating.Summary
	Histogram []aggregating.Bucket          `json:"histogram,omitempty"`
	Hourly    []aggregating.HourlyAggregate `json:"hourly,omitempty"`
}

// NewStatsCmd creates the stats subcommand.
func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stats",
		Aliases: []string{"st"},
		Short:   "Print dataset statistics",
		Long: `Summarize the dataset and print the result as JSON.

By default the first --limit rows are summarized, as the HTTP API does.
--all streams the whole file instead.

Example:
  forecaster stats
  forecaster stats --all --histogram --hourly --out stats.json`,
		RunE: runStats,
	}

	Cfg.AddDataFlags(cmd)

	cmd.Flags().BoolVar(&statsAll, "all", false, "Summarize every row of the dataset")
	cmd.Flags().BoolVar(&statsHistogram, "histogram", false, "Include the cpu usage histogram")
	cmd.Flags().BoolVar(&statsHourly, "hourly", false, "Include the hourly cpu pattern")
	cmd.Flags().StringVar(&statsOutput, "out", "", "Output file (default: stdout)")

	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	Cfg.ApplyDefaults()

	var report statsReport
	if statsAll && !statsHistogram && !statsHourly {
		var b aggregating.SummaryBuilder
		for rec, err := range formatting.Records(Cfg.DataPath) {
			if err != nil {
				return err
			}
			b.Add(metrics.ParseSample(rec))
		}
		report.Summary = b.Summary()
		if report.DataPoints == 0 {
			return formatting.ErrNoData
		}
		return writeJSON(cmd.OutOrStdout(), statsOutput, report)
	}

	limit := Cfg.DataLimit
	if statsAll {
		limit = 0
	}
	samples, err := loadSamples(limit)
	if err != nil {
		return fmt.Errorf("failed to load data: %w", err)
	}

	report.Summary = aggregating.Summarize(samples)
	if statsHistogram {
		report.Histogram = aggregating.Histogram(aggregating.CPUPercents(samples), Cfg.HistogramBuckets)
	}
	if statsHourly {
		report.Hourly = aggregating.Hourly(samples)
	}
	return writeJSON(cmd.OutOrStdout(), statsOutput, report)
}
