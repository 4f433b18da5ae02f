// Package commands provides CLI command implementations.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"UsageForecaster/pkg/config"
	"UsageForecaster/pkg/utils"
)

// Cfg is the shared configuration instance.
var Cfg = config.New()

// NewRootCmd creates the root command with all subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "forecaster",
		Short: "Cloud resource usage dashboard and forecasting model runner",
		Long: `UsageForecaster serves statistics over a VM resource usage dataset and
runs external forecasting model scripts on demand.

Commands:
  serve    Run the HTTP API and dashboard
  stats    Print dataset statistics
  run      Run a forecasting model and wait for it
  status   Show which models have produced results
  graph    Render PNG charts into the output directory
  export   Write the dataset with derived metrics to another format`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			utils.NewLogger(cmd.ErrOrStderr(), Cfg.LogLevel, Cfg.LogJSON)
		},
	}

	Cfg.AddLogFlags(root)

	root.AddCommand(
		NewServeCmd(),
		NewStatsCmd(),
		NewRunCmd(),
		NewStatusCmd(),
		NewGraphCmd(),
		NewExportCmd(),
	)

	return root
}

// Execute runs the root command. Environment variables are applied before
// flags are registered so that flags override them.
func Execute() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	Cfg = cfg

	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
