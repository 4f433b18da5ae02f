package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"UsageForecaster/pkg/running"
	"UsageForecaster/pkg/serving"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Run the HTTP API and dashboard",
		Long: `Run an HTTP server exposing the dataset statistics, the model
artifacts and on-demand model runs.

Endpoints:
  /api/data, /api/table, /api/stats         Dataset rows and summary
  /api/histogram, /api/hourly               CPU distribution and daily pattern
  /api/correlation, /api/timeseries         Windowed series
  /api/visualizations, /api/models/*        Artifacts and model runs
  /dashboard                                Interactive charts
  /metrics, /health                         Prometheus metrics and liveness

Example:
  forecaster serve --port 8080 --data output/processed_data.csv
  forecaster serve --run-log runs.db --schedule "arima=0 * * * *"`,
		RunE: runServe,
	}

	Cfg.AddServerFlags(cmd)
	Cfg.AddDataFlags(cmd)
	Cfg.AddRunFlags(cmd)
	Cfg.AddScheduleFlags(cmd)

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	Cfg.ApplyDefaults()
	if err := Cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := slog.Default()
	metrics := serving.NewMetrics()

	orch, store, err := newOrchestrator(metrics)
	if err != nil {
		return err
	}
	defer store.Close()

	scheduler := running.NewScheduler(orch, logger)
	for _, s := range Cfg.Schedules {
		sch, err := running.ParseSchedule(s)
		if err != nil {
			return err
		}
		if err := scheduler.Add(sch); err != nil {
			return fmt.Errorf("failed to schedule %q: %w", s, err)
		}
	}

	server := serving.New(serving.OptionsFromConfig(Cfg), orch, metrics, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, Cfg.Addr(), Cfg.ShutdownTimeout)
	})
	if scheduler.Len() > 0 {
		g.Go(func() error {
			return scheduler.Run(gctx)
		})
	}
	serveErr := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), Cfg.ShutdownTimeout)
	defer cancel()
	if err := orch.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Model runs did not stop in time", "error", err)
	}

	if serveErr != nil {
		return serveErr
	}
	logger.Info("Server stopped")
	return nil
}
