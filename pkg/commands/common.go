package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"UsageForecaster/pkg/formatting"
	"UsageForecaster/pkg/metrics"
	"UsageForecaster/pkg/models"
	"UsageForecaster/pkg/running"
	"UsageForecaster/pkg/storing"
)

func loadCatalog() (*models.Catalog, error) {
	if Cfg.CatalogPath == "" {
		return models.DefaultCatalog(), nil
	}
	catalog, err := models.LoadCatalog(Cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return catalog, nil
}

func newStore() (storing.Store, error) {
	if Cfg.RunLogPath == "" {
		return storing.NewMemoryStore(storing.DefaultListLimit), nil
	}
	store, err := storing.NewSQLiteStore(Cfg.RunLogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	return store, nil
}

// newOrchestrator builds the orchestrator and the store it logs runs to.
// The caller closes the store after shutting the orchestrator down.
func newOrchestrator(observer running.Observer) (*running.Orchestrator, storing.Store, error) {
	catalog, err := loadCatalog()
	if err != nil {
		return nil, nil, err
	}
	store, err := newStore()
	if err != nil {
		return nil, nil, err
	}
	orch := running.New(catalog, store, running.Options{
		VenvInterpreter:   Cfg.VenvInterpreter,
		SystemInterpreter: Cfg.SystemInterpreter,
		Timeout:           Cfg.RunTimeout,
		Observer:          observer,
	}, slog.Default())
	return orch, store, nil
}

func loadSamples(limit int) ([]metrics.Sample, error) {
	records, err := formatting.Load(Cfg.DataPath, limit)
	if err != nil {
		return nil, err
	}
	return metrics.ParseSamples(records), nil
}

// writeJSON prints data as indented JSON to w, or to path when set.
func writeJSON(w io.Writer, path string, data interface{}) error {
	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if path == "" {
		_, err = fmt.Fprintln(w, string(output))
		return err
	}

	if err := os.WriteFile(path, output, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	slog.Info("Written", "path", path)
	return nil
}
