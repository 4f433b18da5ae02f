package running

import (
	"context"
	"sync"
	"time"

	"UsageForecaster/pkg/models"
)

// Run is the handle of one model execution. It is safe for concurrent use.
type Run struct {
	id     string
	model  string
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.RWMutex
	result models.RunResult
	err    error
}

func newRun(id, model string, cancel context.CancelFunc) *Run {
	return &Run{
		id:     id,
		model:  model,
		cancel: cancel,
		done:   make(chan struct{}),
		result: models.RunResult{
			ID:        id,
			Model:     model,
			Status:    models.RunRunning,
			ExitCode:  -1,
			StartedAt: time.Now(),
		},
	}
}

func (r *Run) ID() string    { return r.id }
func (r *Run) Model() string { return r.model }

// Done is closed once the run has finished.
func (r *Run) Done() <-chan struct{} { return r.done }

// Result returns a snapshot of the run's state.
func (r *Run) Result() models.RunResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.result
}

// Cancel kills the process group of the run. It has no effect once the run
// has finished.
func (r *Run) Cancel() { r.cancel() }

// Wait blocks until the run finishes or ctx is done. Giving up on the wait
// does not stop the run. A run whose process never started returns its
// failed result with an error wrapping ErrStartFailed.
func (r *Run) Wait(ctx context.Context) (models.RunResult, error) {
	select {
	case <-r.done:
		r.mu.RLock()
		defer r.mu.RUnlock()
		return r.result, r.err
	case <-ctx.Done():
		return r.Result(), ctx.Err()
	}
}

func (r *Run) finish(result models.RunResult, err error) {
	r.mu.Lock()
	r.result = result
	r.err = err
	r.mu.Unlock()
	close(r.done)
}
