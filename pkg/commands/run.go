package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"UsageForecaster/pkg/models"
	"UsageForecaster/pkg/running"
)

var runOutput string

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Aliases: []string{"r"},
		Use:     "run <model>",
		Short:   "Run a forecasting model and wait for it",
		Long: `Run a model script from the catalog and print the run result as JSON.
The model is named by its key (arima, lstm, deepar) or script file name.
Interrupting the command kills the script's process group.

Example:
  forecaster run arima
  forecaster run lstm --run-timeout 30m --run-log runs.db`,
		Args: cobra.ExactArgs(1),
		RunE: runModel,
	}

	Cfg.AddRunFlags(cmd)

	cmd.Flags().StringVar(&runOutput, "out", "", "Output file (default: stdout)")

	return cmd
}

func runModel(cmd *cobra.Command, args []string) error {
	Cfg.ApplyDefaults()
	if err := Cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	orch, store, err := newOrchestrator(nil)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run, err := orch.Start(ctx, args[0])
	if err != nil {
		return err
	}
	slog.Info("Running model", "model", run.Model(), "run_id", run.ID(), "interpreter", orch.Interpreter())

	result, err := run.Wait(ctx)
	if errors.Is(err, running.ErrStartFailed) {
		return err
	}
	if err != nil {
		slog.Info("Interrupted, stopping model", "model", run.Model())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), Cfg.ShutdownTimeout)
		defer cancel()
		if err := orch.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop model: %w", err)
		}
		result = run.Result()
	}

	if err := writeJSON(cmd.OutOrStdout(), runOutput, result); err != nil {
		return err
	}
	if result.Status != models.RunCompleted {
		return fmt.Errorf("model %s %s with exit code %d", result.Model, result.Status, result.ExitCode)
	}
	return nil
}
