package serving

import (
	"context"
	"errors"
	"net/http"
	"path"

	"UsageForecaster/pkg/models"
	"UsageForecaster/pkg/storing"
)

func (s *Server) handleVisualizations(w http.ResponseWriter, r *http.Request) {
	images, err := models.Visualizations(s.opts.OutputDir)
	if err != nil {
		s.logger.Warn("Failed to list visualizations", "dir", s.opts.OutputDir, "error", err)
		writeError(w, "Failed to load visualizations", err)
		return
	}
	if images == nil {
		images = []models.Artifact{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"images": images})
}

func (s *Server) handleModelStatus(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.orch.Catalog().Status(s.opts.OutputDir)
	if err != nil {
		s.logger.Warn("Failed to check model status", "dir", s.opts.OutputDir, "error", err)
		writeError(w, "Failed to check model status", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"models": statuses})
}

func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	preds, err := s.orch.Catalog().Predictions(s.opts.OutputDir)
	if err != nil {
		s.logger.Warn("Failed to list predictions", "dir", s.opts.OutputDir, "error", err)
		writeError(w, "Failed to load predictions", err)
		return
	}
	if preds == nil {
		preds = []models.Artifact{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"predictions": preds})
}

type runAccepted struct {
	ID     string           `json:"run_id"`
	Model  string           `json:"model"`
	Status models.RunStatus `json:"status"`
}

// handleRunModel runs a model and replies with its result. With ?async=true
// it replies 202 as soon as the process has started.
func (s *Server) handleRunModel(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	async, err := boolParam(r, "async")
	if err != nil {
		writeError(w, "Invalid async", err)
		return
	}

	run, err := s.orch.Start(r.Context(), name)
	if err != nil {
		writeError(w, runErrorMessage(err), err)
		return
	}

	if async {
		w.Header().Set("Location", path.Join("/api/models/runs", run.ID()))
		writeJSON(w, http.StatusAccepted, runAccepted{ID: run.ID(), Model: run.Model(), Status: models.RunRunning})
		return
	}

	result, err := run.Wait(r.Context())
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		s.logger.Info("Client left before run finished", "model", run.Model(), "run_id", run.ID())
		return
	case err != nil:
		writeError(w, runErrorMessage(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func runErrorMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrModelNotFound):
		return "Model not found"
	case errors.Is(err, storing.ErrRunNotFound):
		return "Run not found"
	default:
		return "Failed to run model"
	}
}

type runsResponse struct {
	Runs     []models.RunResult `json:"runs"`
	Count    int                `json:"count"`
	InFlight int                `json:"in_flight"`
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", storing.DefaultListLimit)
	if err != nil {
		writeError(w, "Invalid limit", err)
		return
	}
	filter := storing.Filter{Limit: limit}
	if key := r.URL.Query().Get("model"); key != "" {
		desc, err := s.orch.Catalog().Resolve(key)
		if err != nil {
			writeError(w, "Model not found", err)
			return
		}
		filter.Model = desc.Key
	}

	runs, err := s.orch.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("Failed to list runs", "error", err)
		writeError(w, "Failed to list runs", err)
		return
	}
	if runs == nil {
		runs = []models.RunResult{}
	}
	writeJSON(w, http.StatusOK, runsResponse{Runs: runs, Count: len(runs), InFlight: len(s.orch.InFlight())})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	result, err := s.orch.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, runErrorMessage(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.orch.Cancel(r.Context(), id); err != nil {
		writeError(w, runErrorMessage(err), err)
		return
	}
	s.logger.Info("Run cancel requested", "run_id", id)
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": id, "status": "canceling"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"in_flight": len(s.orch.InFlight()),
	})
}
