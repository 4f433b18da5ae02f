package storing

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"UsageForecaster/pkg/models"
)

func newRun(id, model string, started time.Time) models.RunResult {
	return models.RunResult{
		ID:        id,
		Model:     model,
		Status:    models.RunRunning,
		ExitCode:  -1,
		StartedAt: started,
	}
}

func finish(r models.RunResult, code int, stderr string) models.RunResult {
	at := r.StartedAt.Add(2 * time.Second)
	r.FinishedAt = &at
	r.ExitCode = code
	r.Output = "done"
	r.Status = models.RunCompleted
	if code != 0 {
		r.Status = models.RunFailed
	}
	if stderr != "" {
		r.Error = &stderr
	}
	return r
}

func storeFactories(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore(0) },
		"sqlite": func() Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
			require.NoError(t, err)
			return s
		},
	}
}

func TestStoreLifecycle(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory()
			defer s.Close()

			run := newRun("r1", "arima", base)
			require.NoError(t, s.Save(ctx, run))

			got, err := s.Get(ctx, "r1")
			require.NoError(t, err)
			assert.Equal(t, models.RunRunning, got.Status)
			assert.Nil(t, got.FinishedAt)
			assert.Nil(t, got.Error)

			done := finish(run, 1, "Traceback")
			require.NoError(t, s.Save(ctx, done))

			got, err = s.Get(ctx, "r1")
			require.NoError(t, err)
			assert.Equal(t, models.RunFailed, got.Status)
			assert.Equal(t, 1, got.ExitCode)
			require.NotNil(t, got.Error)
			assert.Equal(t, "Traceback", *got.Error)
			require.NotNil(t, got.FinishedAt)
			assert.Equal(t, 2*time.Second, got.Duration())

			_, err = s.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrRunNotFound)
		})
	}
}

func TestStoreList(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory()
			defer s.Close()

			require.NoError(t, s.Save(ctx, finish(newRun("a", "arima", base), 0, "")))
			require.NoError(t, s.Save(ctx, finish(newRun("b", "lstm", base.Add(time.Minute)), 0, "")))
			require.NoError(t, s.Save(ctx, newRun("c", "arima", base.Add(2*time.Minute))))

			runs, err := s.List(ctx, Filter{})
			require.NoError(t, err)
			require.Len(t, runs, 3)
			assert.Equal(t, []string{"c", "b", "a"}, ids(runs))

			runs, err = s.List(ctx, Filter{Model: "arima"})
			require.NoError(t, err)
			assert.Equal(t, []string{"c", "a"}, ids(runs))

			runs, err = s.List(ctx, Filter{Limit: 1})
			require.NoError(t, err)
			assert.Equal(t, []string{"c"}, ids(runs))
		})
	}
}

func ids(runs []models.RunResult) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}

func TestMemoryStoreEvictsFinishedRuns(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(2)

	require.NoError(t, s.Save(ctx, newRun("running", "arima", base)))
	require.NoError(t, s.Save(ctx, finish(newRun("old", "lstm", base.Add(time.Second)), 0, "")))
	require.NoError(t, s.Save(ctx, finish(newRun("new", "lstm", base.Add(2*time.Second)), 0, "")))

	_, err := s.Get(ctx, "running")
	assert.NoError(t, err)
	_, err = s.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = s.Get(ctx, "new")
	assert.NoError(t, err)
}

func TestSQLiteStoreClosesInterruptedRuns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, newRun("r1", "deepar", time.Now())))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.RunFailed, got.Status)
	assert.Equal(t, "interrupted by restart", got.Failure)
	assert.NotNil(t, got.FinishedAt)
}
