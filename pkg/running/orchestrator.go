// Package running launches model scripts as child processes and tracks their runs.
package running

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"UsageForecaster/pkg/models"
	"UsageForecaster/pkg/storing"
)

var (
	// ErrRunInProgress is returned when the model already has a run in flight.
	ErrRunInProgress = errors.New("model run already in progress")
	// ErrShuttingDown is returned by Start after Shutdown was called.
	ErrShuttingDown = errors.New("orchestrator is shutting down")
	// ErrRunFinished is returned when cancelling a run that already ended.
	ErrRunFinished = errors.New("run already finished")
	// ErrStartFailed is returned by Wait when the script's process could not
	// be spawned. The run is still recorded as failed.
	ErrStartFailed = errors.New("model process failed to start")
)

// Defaults for Options.
const (
	DefaultVenvInterpreter   = "backend/.venv/bin/python"
	DefaultSystemInterpreter = "python3"
	DefaultTailChars         = 500
)

// Options configures an Orchestrator.
type Options struct {
	// VenvInterpreter is used when it exists on disk, checked on every run.
	VenvInterpreter   string
	SystemInterpreter string
	// Timeout kills runs that take longer. Zero means no limit.
	Timeout   time.Duration
	TailChars int
	Observer  Observer
}

func (o *Options) applyDefaults() {
	if o.VenvInterpreter == "" {
		o.VenvInterpreter = DefaultVenvInterpreter
	}
	if o.SystemInterpreter == "" {
		o.SystemInterpreter = DefaultSystemInterpreter
	}
	if o.TailChars <= 0 {
		o.TailChars = DefaultTailChars
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
}

// Observer is notified about run lifecycle events.
type Observer interface {
	RunStarted(model string)
	RunFinished(result models.RunResult)
}

type nopObserver struct{}

func (nopObserver) RunStarted(string)            {}
func (nopObserver) RunFinished(models.RunResult) {}

// Orchestrator resolves model keys through the catalog and runs their
// scripts, at most one run per model at a time.
type Orchestrator struct {
	catalog *models.Catalog
	store   storing.Store
	opts    Options
	logger  *slog.Logger

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	inflight map[string]*Run
	runs     map[string]*Run
}

// New creates an orchestrator. A nil store keeps runs in memory.
func New(catalog *models.Catalog, store storing.Store, opts Options, logger *slog.Logger) *Orchestrator {
	opts.applyDefaults()
	if store == nil {
		store = storing.NewMemoryStore(storing.DefaultListLimit)
	}
	if logger == nil {
		logger = slog.Default()
	}
	base, stop := context.WithCancel(context.Background())
	return &Orchestrator{
		catalog:  catalog,
		store:    store,
		opts:     opts,
		logger:   logger,
		base:     base,
		stop:     stop,
		inflight: make(map[string]*Run),
		runs:     make(map[string]*Run),
	}
}

// Catalog returns the model catalog runs are resolved against.
func (o *Orchestrator) Catalog() *models.Catalog {
	return o.catalog
}

// Interpreter returns the venv interpreter if it exists right now, else the
// system interpreter.
func (o *Orchestrator) Interpreter() string {
	if info, err := os.Stat(o.opts.VenvInterpreter); err == nil && !info.IsDir() {
		return o.opts.VenvInterpreter
	}
	return o.opts.SystemInterpreter
}

// Start launches the model's script and returns immediately. The run keeps
// the values of ctx but not its cancellation: it ends when the script exits,
// on timeout, on Cancel, or on Shutdown.
func (o *Orchestrator) Start(ctx context.Context, key string) (*Run, error) {
	desc, err := o.catalog.Resolve(key)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrShuttingDown
	}
	if _, busy := o.inflight[desc.Key]; busy {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, desc.Key)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stopAfter := context.AfterFunc(o.base, cancel)
	if o.opts.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, o.opts.Timeout)
		inner := cancel
		cancel = func() {
			cancelTimeout()
			inner()
		}
	}

	run := newRun(uuid.NewString(), desc.Key, cancel)
	o.inflight[desc.Key] = run
	o.runs[run.id] = run
	o.wg.Add(1)
	o.mu.Unlock()

	o.save(run.Result())
	o.opts.Observer.RunStarted(desc.Key)

	go func() {
		defer o.wg.Done()
		defer stopAfter()
		defer cancel()

		result, err := o.execute(runCtx, run.Result(), desc)
		o.save(result)

		o.mu.Lock()
		delete(o.inflight, desc.Key)
		delete(o.runs, run.id)
		o.mu.Unlock()

		run.finish(result, err)
		o.opts.Observer.RunFinished(result)
	}()

	return run, nil
}

// Run starts the model and waits for it. If ctx ends first the wait is
// abandoned with ctx's error, and the run carries on.
func (o *Orchestrator) Run(ctx context.Context, key string) (models.RunResult, error) {
	run, err := o.Start(ctx, key)
	if err != nil {
		return models.RunResult{}, err
	}
	return run.Wait(ctx)
}

// execute runs the script to completion. The error is non-nil only when the
// process never started.
func (o *Orchestrator) execute(ctx context.Context, result models.RunResult, desc models.Descriptor) (models.RunResult, error) {
	interpreter := o.Interpreter()
	logger := o.logger.With("model", desc.Key, "run_id", result.ID)
	logger.Info("Starting model run", "interpreter", interpreter, "script", desc.Script)

	stdout := newTailBuffer(o.opts.TailChars)
	stderr := newTailBuffer(o.opts.TailChars)

	cmd := exec.CommandContext(ctx, interpreter, desc.Script)
	setProcessGroup(cmd)

	outPipe, err := cmd.StdoutPipe()
	if err != nil {
		return o.fail(logger, result, fmt.Errorf("failed to create stdout pipe: %w", err))
	}
	errPipe, err := cmd.StderrPipe()
	if err != nil {
		return o.fail(logger, result, fmt.Errorf("failed to create stderr pipe: %w", err))
	}

	if err := cmd.Start(); err != nil {
		return o.fail(logger, result, fmt.Errorf("failed to start %s: %w", interpreter, err))
	}

	// both pipes must be drained before Wait closes them
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(stdout, outPipe)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(stderr, errPipe)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Debug("Output capture ended early", "error", err)
	}
	waitErr := cmd.Wait()

	finished := time.Now()
	result.FinishedAt = &finished
	result.Output = stdout.String()
	if stderr.Len() > 0 {
		tail := stderr.String()
		result.Error = &tail
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		result.Status = models.RunCompleted
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.Status = models.RunFailed
		result.Failure = fmt.Sprintf("timed out after %s", o.opts.Timeout)
	case ctx.Err() != nil:
		result.Status = models.RunFailed
		result.Failure = "canceled"
	case errors.As(waitErr, &exitErr):
		result.Status = models.RunFailed
		result.Failure = exitErr.Error()
	default:
		result.Status = models.RunFailed
		result.Failure = waitErr.Error()
	}

	logger.Info("Model run finished",
		"status", result.Status,
		"exit_code", result.ExitCode,
		"duration", result.Duration(),
		"stdout_bytes", stdout.Len(),
		"stderr_bytes", stderr.Len(),
	)
	return result, nil
}

func (o *Orchestrator) fail(logger *slog.Logger, result models.RunResult, err error) (models.RunResult, error) {
	finished := time.Now()
	result.Status = models.RunFailed
	result.Failure = err.Error()
	result.FinishedAt = &finished
	logger.Error("Model run failed to start", "error", err)
	return result, fmt.Errorf("%w: %v", ErrStartFailed, err)
}

func (o *Orchestrator) save(result models.RunResult) {
	if err := o.store.Save(context.Background(), result); err != nil {
		o.logger.Error("Failed to record run", "run_id", result.ID, "error", err)
	}
}

// Get returns the current state of a run, in flight or logged.
func (o *Orchestrator) Get(ctx context.Context, id string) (models.RunResult, error) {
	o.mu.Lock()
	run, ok := o.runs[id]
	o.mu.Unlock()
	if ok {
		return run.Result(), nil
	}
	return o.store.Get(ctx, id)
}

// List returns logged runs, newest first.
func (o *Orchestrator) List(ctx context.Context, filter storing.Filter) ([]models.RunResult, error) {
	return o.store.List(ctx, filter)
}

// Cancel stops an in-flight run.
func (o *Orchestrator) Cancel(ctx context.Context, id string) error {
	o.mu.Lock()
	run, ok := o.runs[id]
	o.mu.Unlock()
	if ok {
		run.Cancel()
		return nil
	}
	if _, err := o.store.Get(ctx, id); err != nil {
		return err
	}
	return ErrRunFinished
}

// InFlight returns the runs currently executing.
func (o *Orchestrator) InFlight() []models.RunResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]models.RunResult, 0, len(o.inflight))
	for _, run := range o.inflight {
		out = append(out, run.Result())
	}
	return out
}

// Shutdown refuses new runs, kills the running ones and waits for them to
// be recorded, or for ctx to end.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.stop()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
