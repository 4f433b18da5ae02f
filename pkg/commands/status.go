package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"UsageForecaster/pkg/models"
	"UsageForecaster/pkg/storing"
)

var (
	statusRuns   int
	statusOutput string
)

type statusReport struct {
	Models      []models.ModelStatus `json:"models"`
	Predictions []models.Artifact    `json:"predictions"`
	Runs        []models.RunResult   `json:"runs,omitempty"`
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which models have produced results",
		Long: `Print every catalog model with its state, the prediction files found in
the output directory and, with --run-log, the most recent logged runs.

Example:
  forecaster status
  forecaster status --run-log runs.db --runs 5`,
		RunE: runStatus,
	}

	Cfg.AddDataFlags(cmd)
	Cfg.AddRunFlags(cmd)

	cmd.Flags().IntVar(&statusRuns, "runs", 10, "Logged runs to show")
	cmd.Flags().StringVar(&statusOutput, "out", "", "Output file (default: stdout)")

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	Cfg.ApplyDefaults()

	catalog, err := loadCatalog()
	if err != nil {
		return err
	}

	var report statusReport
	if report.Models, err = catalog.Status(Cfg.OutputDir); err != nil {
		return fmt.Errorf("failed to check model status: %w", err)
	}
	if report.Predictions, err = catalog.Predictions(Cfg.OutputDir); err != nil {
		return fmt.Errorf("failed to load predictions: %w", err)
	}
	if report.Predictions == nil {
		report.Predictions = []models.Artifact{}
	}

	if Cfg.RunLogPath != "" && statusRuns > 0 {
		store, err := newStore()
		if err != nil {
			return err
		}
		defer store.Close()
		if report.Runs, err = store.List(cmd.Context(), storing.Filter{Limit: statusRuns}); err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
	}

	return writeJSON(cmd.OutOrStdout(), statusOutput, report)
}
