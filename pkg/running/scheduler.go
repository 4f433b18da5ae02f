package running

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"
)

// Schedule binds a model key to a standard five-field cron spec.
type Schedule struct {
	Model string
	Spec  string
}

// ParseSchedule parses "key=spec", e.g. "arima=0 * * * *".
func ParseSchedule(s string) (Schedule, error) {
	key, spec, ok := strings.Cut(s, "=")
	key, spec = strings.TrimSpace(key), strings.TrimSpace(spec)
	if !ok || key == "" || spec == "" {
		return Schedule{}, fmt.Errorf("invalid schedule %q: want key=<cron spec>", s)
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return Schedule{}, fmt.Errorf("invalid cron spec for %s: %w", key, err)
	}
	return Schedule{Model: key, Spec: spec}, nil
}

// Scheduler periodically starts model runs through an Orchestrator.
// A tick that finds the model still running is skipped.
type Scheduler struct {
	cron   *cron.Cron
	orch   *Orchestrator
	logger *slog.Logger
}

func NewScheduler(orch *Orchestrator, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(),
		orch:   orch,
		logger: logger,
	}
}

// Add registers a schedule. The model must exist in the catalog.
func (s *Scheduler) Add(sch Schedule) error {
	desc, err := s.orch.Catalog().Resolve(sch.Model)
	if err != nil {
		return err
	}
	_, err = s.cron.AddFunc(sch.Spec, func() { s.trigger(desc.Key) })
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", desc.Key, err)
	}
	s.logger.Info("Scheduled model", "model", desc.Key, "spec", sch.Spec)
	return nil
}

// Len returns the number of registered schedules.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) trigger(key string) {
	run, err := s.orch.Start(context.Background(), key)
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.Info("Skipping scheduled run, model busy", "model", key)
		return
	case err != nil:
		s.logger.Warn("Scheduled run not started", "model", key, "error", err)
		return
	}
	s.logger.Info("Scheduled run started", "model", key, "run_id", run.ID())
}

// Run fires schedules until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}
