package running

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"UsageForecaster/pkg/models"
	"UsageForecaster/pkg/storing"
)

type fixture struct {
	dir   string
	orch  *Orchestrator
	store *storing.MemoryStore
}

// newFixture writes one shell script per model and runs them with /bin/sh.
func newFixture(t *testing.T, opts Options, scripts map[string]string) *fixture {
	t.Helper()
	dir := t.TempDir()

	var descs []models.Descriptor
	for key, body := range scripts {
		path := filepath.Join(dir, key+".sh")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		descs = append(descs, models.Descriptor{Key: key, Script: path, OutputFile: key + "_pred.png"})
	}
	catalog, err := models.NewCatalog(descs, "")
	require.NoError(t, err)

	if opts.VenvInterpreter == "" {
		opts.VenvInterpreter = filepath.Join(dir, "venv", "bin", "python")
	}
	if opts.SystemInterpreter == "" {
		opts.SystemInterpreter = "/bin/sh"
	}

	store := storing.NewMemoryStore(0)
	orch := New(catalog, store, opts, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = orch.Shutdown(ctx)
	})
	return &fixture{dir: dir, orch: orch, store: store}
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRunCompleted(t *testing.T) {
	f := newFixture(t, Options{}, map[string]string{
		"arima": "echo hello\necho warn >&2\n",
	})

	result, err := f.orch.Run(waitCtx(t), "ARIMA")
	require.NoError(t, err)
	assert.Equal(t, models.RunCompleted, result.Status)
	assert.Equal(t, "arima", result.Model)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "hello\n", result.Output)
	require.NotNil(t, result.Error)
	assert.Equal(t, "warn\n", *result.Error)
	assert.NotNil(t, result.FinishedAt)
	assert.NotEmpty(t, result.ID)
}

func TestRunEmptyStderrIsNull(t *testing.T) {
	f := newFixture(t, Options{}, map[string]string{"arima": "echo ok\n"})

	result, err := f.orch.Run(waitCtx(t), "arima")
	require.NoError(t, err)
	assert.Nil(t, result.Error)
}

func TestRunNonZeroExitFails(t *testing.T) {
	f := newFixture(t, Options{}, map[string]string{
		"lstm": "echo partial\nexit 3\n",
	})

	result, err := f.orch.Run(waitCtx(t), "lstm")
	require.NoError(t, err)
	assert.Equal(t, models.RunFailed, result.Status)
	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "partial\n", result.Output)
	assert.Contains(t, result.Failure, "exit status 3")
}

func TestRunStderrDoesNotFail(t *testing.T) {
	f := newFixture(t, Options{}, map[string]string{
		"deepar": "echo 'Traceback: warning only' >&2\nexit 0\n",
	})

	result, err := f.orch.Run(waitCtx(t), "deepar")
	require.NoError(t, err)
	assert.Equal(t, models.RunCompleted, result.Status)
	require.NotNil(t, result.Error)
}

func TestRunOutputTail(t *testing.T) {
	script := `i=0
while [ $i -lt 100 ]; do printf '0123456789'; i=$((i+1)); done
printf END
i=0
while [ $i -lt 60 ]; do printf 'abcdefghij' >&2; i=$((i+1)); done
`
	f := newFixture(t, Options{}, map[string]string{"arima": script})

	result, err := f.orch.Run(waitCtx(t), "arima")
	require.NoError(t, err)
	assert.Len(t, result.Output, DefaultTailChars)
	assert.True(t, strings.HasSuffix(result.Output, "789END"))
	require.NotNil(t, result.Error)
	assert.Len(t, *result.Error, DefaultTailChars)
	assert.True(t, strings.HasPrefix(*result.Error, "abcdefghij"))
}

func TestRunUnknownModelHasNoSideEffects(t *testing.T) {
	f := newFixture(t, Options{}, map[string]string{
		"arima": "touch \"$(dirname \"$0\")/side_effect\"\n",
	})

	_, err := f.orch.Run(waitCtx(t), "unknown_key")
	assert.ErrorIs(t, err, models.ErrModelNotFound)

	runs, err := f.orch.List(context.Background(), storing.Filter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.Empty(t, f.orch.InFlight())
	assert.NoFileExists(t, filepath.Join(f.dir, "side_effect"))
}

func TestInterpreterResolvedPerCall(t *testing.T) {
	f := newFixture(t, Options{}, map[string]string{"arima": "exit 0\n"})
	venv := filepath.Join(f.dir, "venv", "bin", "python")

	assert.Equal(t, "/bin/sh", f.orch.Interpreter())

	require.NoError(t, os.MkdirAll(filepath.Dir(venv), 0o755))
	require.NoError(t, os.WriteFile(venv, []byte("#!/bin/sh\n"), 0o755))
	assert.Equal(t, venv, f.orch.Interpreter())

	require.NoError(t, os.Remove(venv))
	assert.Equal(t, "/bin/sh", f.orch.Interpreter())
}

func TestRunStartFailure(t *testing.T) {
	f := newFixture(t, Options{SystemInterpreter: "/nonexistent/python3"}, map[string]string{"arima": "exit 0\n"})

	result, err := f.orch.Run(waitCtx(t), "arima")
	require.ErrorIs(t, err, ErrStartFailed)
	assert.Contains(t, err.Error(), "/nonexistent/python3")
	assert.Equal(t, models.RunFailed, result.Status)
	assert.Equal(t, -1, result.ExitCode)
	assert.Contains(t, result.Failure, "failed to start")

	// the failure is still logged
	logged, err := f.store.Get(waitCtx(t), result.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunFailed, logged.Status)
}

func TestSecondRunOfSameModelRejected(t *testing.T) {
	f := newFixture(t, Options{}, map[string]string{
		"arima": "sleep 30\n",
		"lstm":  "exit 0\n",
	})
	ctx := waitCtx(t)

	run, err := f.orch.Start(ctx, "arima")
	require.NoError(t, err)

	_, err = f.orch.Start(ctx, "arima")
	assert.ErrorIs(t, err, ErrRunInProgress)

	// other models are not blocked
	other, err := f.orch.Run(ctx, "lstm")
	require.NoError(t, err)
	assert.Equal(t, models.RunCompleted, other.Status)

	inflight, err := f.orch.Get(ctx, run.ID())
	require.NoError(t, err)
	assert.Equal(t, models.RunRunning, inflight.Status)

	require.NoError(t, f.orch.Cancel(ctx, run.ID()))
	result, err := run.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RunFailed, result.Status)
	assert.Equal(t, "canceled", result.Failure)

	assert.ErrorIs(t, f.orch.Cancel(ctx, run.ID()), ErrRunFinished)
	assert.ErrorIs(t, f.orch.Cancel(ctx, "nope"), storing.ErrRunNotFound)

	// the lock is released once the run has finished
	again, err := f.orch.Start(ctx, "arima")
	require.NoError(t, err)
	again.Cancel()
	_, err = again.Wait(ctx)
	require.NoError(t, err)
}

func TestRunTimeoutKillsProcessGroup(t *testing.T) {
	f := newFixture(t, Options{Timeout: 200 * time.Millisecond}, map[string]string{
		"arima": "sleep 30 &\nsleep 30\n",
	})

	start := time.Now()
	result, err := f.orch.Run(waitCtx(t), "arima")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, models.RunFailed, result.Status)
	assert.Contains(t, result.Failure, "timed out")
}

func TestRequestContextDoesNotCancelRun(t *testing.T) {
	f := newFixture(t, Options{}, map[string]string{
		"arima": "sleep 0.3\necho finished\n",
	})

	reqCtx, cancel := context.WithCancel(context.Background())
	run, err := f.orch.Start(reqCtx, "arima")
	require.NoError(t, err)
	cancel()

	result, err := run.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, models.RunCompleted, result.Status)
	assert.Equal(t, "finished\n", result.Output)
}

func TestWaitAbandonedByCaller(t *testing.T) {
	f := newFixture(t, Options{}, map[string]string{"arima": "sleep 0.5\n"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	result, err := f.orch.Run(ctx, "arima")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, models.RunRunning, result.Status)

	runs, err := f.orch.List(context.Background(), storing.Filter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
}

func TestRunsAreLogged(t *testing.T) {
	f := newFixture(t, Options{}, map[string]string{"arima": "exit 1\n"})
	ctx := waitCtx(t)

	result, err := f.orch.Run(ctx, "arima")
	require.NoError(t, err)

	logged, err := f.orch.Get(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunFailed, logged.Status)
	assert.Equal(t, 1, logged.ExitCode)

	runs, err := f.store.List(ctx, storing.Filter{Model: "arima"})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestShutdownKillsRunsAndRefusesNew(t *testing.T) {
	f := newFixture(t, Options{}, map[string]string{"arima": "sleep 30\n"})
	ctx := waitCtx(t)

	run, err := f.orch.Start(ctx, "arima")
	require.NoError(t, err)

	require.NoError(t, f.orch.Shutdown(ctx))
	result, err := run.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RunFailed, result.Status)

	_, err = f.orch.Start(ctx, "arima")
	assert.ErrorIs(t, err, ErrShuttingDown)
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []string
	finished []models.RunStatus
}

func (r *recordingObserver) RunStarted(model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, model)
}

func (r *recordingObserver) RunFinished(result models.RunResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, result.Status)
}

func TestObserverNotified(t *testing.T) {
	obs := &recordingObserver{}
	f := newFixture(t, Options{Observer: obs}, map[string]string{"arima": "exit 0\n"})

	_, err := f.orch.Run(waitCtx(t), "arima")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		obs.mu.Lock()
		defer obs.mu.Unlock()
		return len(obs.finished) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"arima"}, obs.started)
	assert.Equal(t, []models.RunStatus{models.RunCompleted}, obs.finished)
}

func TestParseSchedule(t *testing.T) {
	s, err := ParseSchedule("arima = 0 * * * *")
	require.NoError(t, err)
	assert.Equal(t, Schedule{Model: "arima", Spec: "0 * * * *"}, s)

	for _, bad := range []string{"arima", "=0 * * * *", "arima=", "arima=not a spec"} {
		_, err := ParseSchedule(bad)
		assert.Error(t, err, bad)
	}
}

func TestSchedulerAdd(t *testing.T) {
	f := newFixture(t, Options{}, map[string]string{"arima": "exit 0\n"})
	s := NewScheduler(f.orch, nil)

	require.NoError(t, s.Add(Schedule{Model: "ARIMA", Spec: "@every 1h"}))
	assert.Equal(t, 1, s.Len())

	err := s.Add(Schedule{Model: "prophet", Spec: "@every 1h"})
	assert.ErrorIs(t, err, models.ErrModelNotFound)
}

func TestSchedulerRunStopsWithContext(t *testing.T) {
	f := newFixture(t, Options{}, map[string]string{"arima": "exit 0\n"})
	s := NewScheduler(f.orch, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestLastRunes(t *testing.T) {
	assert.Equal(t, "héllo", lastRunes("héllo", 10))
	assert.Equal(t, "llo", lastRunes("héllo", 3))
	assert.Equal(t, "éllo", lastRunes("héllo", 4))
	assert.Equal(t, "", lastRunes("abc", 0))

	tb := newTailBuffer(3)
	for i := 0; i < 1000; i++ {
		_, _ = tb.Write([]byte("日本"))
	}
	assert.Equal(t, "本日本", tb.String())
	assert.Equal(t, int64(6000), tb.Len())
}
