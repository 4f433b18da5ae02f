// Package serving exposes the usage aggregates and model runs over HTTP.
package serving

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"UsageForecaster/pkg/aggregating"
	"UsageForecaster/pkg/config"
	"UsageForecaster/pkg/running"
)

// Options configures the data and artifact locations served.
type Options struct {
	DataPath          string
	OutputDir         string
	DataLimit         int
	TimeSeriesWindow  int
	CorrelationWindow int
	TableWindow       int
	HistogramBuckets  int
}

// OptionsFromConfig copies the serving settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DataPath:          cfg.DataPath,
		OutputDir:         cfg.OutputDir,
		DataLimit:         cfg.DataLimit,
		TimeSeriesWindow:  cfg.TimeSeriesWindow,
		CorrelationWindow: cfg.CorrelationWindow,
		TableWindow:       cfg.TableWindow,
		HistogramBuckets:  cfg.HistogramBuckets,
	}
}

func (o *Options) applyDefaults() {
	if o.DataPath == "" {
		o.DataPath = config.DefaultDataPath
	}
	if o.OutputDir == "" {
		o.OutputDir = config.DefaultOutputDir
	}
	if o.TimeSeriesWindow <= 0 {
		o.TimeSeriesWindow = aggregating.TimeSeriesWindow
	}
	if o.CorrelationWindow <= 0 {
		o.CorrelationWindow = aggregating.CorrelationWindow
	}
	if o.TableWindow <= 0 {
		o.TableWindow = aggregating.TableWindow
	}
	if o.HistogramBuckets <= 0 {
		o.HistogramBuckets = aggregating.DefaultBuckets
	}
}

// Server handles the HTTP API. Every data request re-reads the dataset and
// every status request re-scans the output directory.
type Server struct {
	opts    Options
	orch    *running.Orchestrator
	metrics *Metrics
	logger  *slog.Logger
	handler http.Handler
}

// New builds the server and its routes. A nil metrics disables /metrics.
func New(opts Options, orch *running.Orchestrator, metrics *Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	opts.applyDefaults()

	s := &Server{
		opts:    opts,
		orch:    orch,
		metrics: metrics,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/data", s.handleData)
	mux.HandleFunc("GET /api/table", s.handleTable)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/histogram", s.handleHistogram)
	mux.HandleFunc("GET /api/hourly", s.handleHourly)
	mux.HandleFunc("GET /api/correlation", s.handleCorrelation)
	mux.HandleFunc("GET /api/timeseries", s.handleTimeSeries)
	mux.HandleFunc("GET /api/visualizations", s.handleVisualizations)
	mux.HandleFunc("GET /api/models/status", s.handleModelStatus)
	mux.HandleFunc("POST /api/models/run/{name}", s.handleRunModel)
	mux.HandleFunc("GET /api/models/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/models/runs/{id}", s.handleGetRun)
	mux.HandleFunc("DELETE /api/models/runs/{id}", s.handleCancelRun)
	mux.HandleFunc("GET /api/models/predictions", s.handlePredictions)
	mux.Handle("GET /output/", http.StripPrefix("/output/", http.FileServer(http.Dir(opts.OutputDir))))
	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("GET /health", s.handleHealth)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	var handler http.Handler = mux
	handler = SecurityHeadersMiddleware(handler)
	handler = LoggingMiddleware(logger, metrics, handler)
	s.handler = handler

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Run serves on addr until ctx is done, then drains in-flight requests for
// up to shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", "addr", ln.Addr().String(), "data", s.opts.DataPath, "output_dir", s.opts.OutputDir)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	s.logger.Info("Shutting down server", "timeout", shutdownTimeout)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
