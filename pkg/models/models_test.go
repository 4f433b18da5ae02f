package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, []string{"arima", "lstm", "deepar"}, c.Keys())
	assert.Equal(t, "deepar", c.Fallback().Key)

	d, ok := c.Lookup("LSTM")
	require.True(t, ok)
	assert.Equal(t, "backend/models/lstm_model.py", d.Script)
	assert.Equal(t, "lstm_act_pred.png", d.OutputFile)

	_, err := c.Resolve("prophet")
	assert.ErrorIs(t, err, ErrModelNotFound)
	assert.ErrorContains(t, err, "prophet (valid: arima, lstm, deepar)")
}

func TestCatalogModelsIsCopy(t *testing.T) {
	c := DefaultCatalog()
	m := c.Models()
	m[0].Script = "evil.py"
	d, _ := c.Lookup("arima")
	assert.Equal(t, "backend/models/arima_model.py", d.Script)
}

func TestNewCatalogValidation(t *testing.T) {
	_, err := NewCatalog(nil, "")
	assert.Error(t, err)

	_, err = NewCatalog([]Descriptor{{Key: "a", Script: "a.py", OutputFile: "a.png"}, {Key: "A", Script: "b.py", OutputFile: "b.png"}}, "")
	assert.Error(t, err, "keys are case-insensitive")

	_, err = NewCatalog([]Descriptor{{Key: "a", OutputFile: "a.png"}}, "")
	assert.Error(t, err)

	_, err = NewCatalog([]Descriptor{{Key: "a", Script: "a.py", OutputFile: "a.png"}}, "b")
	assert.Error(t, err)

	c, err := NewCatalog([]Descriptor{{Key: "a", Script: "a.py", OutputFile: "a.png"}, {Key: "b", Script: "b.py", OutputFile: "b.png"}}, "")
	require.NoError(t, err)
	assert.Equal(t, "b", c.Fallback().Key)
	assert.Equal(t, "B", c.Fallback().DisplayName)
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	content := `{"fallback":"naive","models":[
		{"key":"prophet","name":"Prophet","script":"m/prophet.py","output":"prophet_pred.png"},
		{"key":"naive","script":"m/naive.py","output":"naive_pred.png"}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"prophet", "naive"}, c.Keys())
	assert.Equal(t, "NAIVE", c.Fallback().DisplayName)

	_, err = LoadCatalog(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestStatusTogglesWithFile(t *testing.T) {
	c := DefaultCatalog()
	dir := t.TempDir()

	state := func(key string) State {
		statuses, err := c.Status(dir)
		require.NoError(t, err)
		for _, s := range statuses {
			if s.Key == key {
				return s.Status
			}
		}
		t.Fatalf("model %s missing from status", key)
		return ""
	}

	assert.Equal(t, StateNotRun, state("arima"))
	touch(t, dir, "arima_act_pred.png")
	assert.Equal(t, StateCompleted, state("arima"))
	assert.Equal(t, StateNotRun, state("lstm"))
	require.NoError(t, os.Remove(filepath.Join(dir, "arima_act_pred.png")))
	assert.Equal(t, StateNotRun, state("arima"))
}

func TestStatusMissingDir(t *testing.T) {
	_, err := DefaultCatalog().Status(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrOutputUnavailable)
}

func TestPredictions(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"arima_act_pred.png",
		"lstm_act_pred.png",
		"deepar_pred.png",
		"model_comparison.png",
		"arima_lstm_comparison.png",
		"cpu_histogram.png",
		"processed_data.csv",
	} {
		touch(t, dir, name)
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "pred_dir"), 0o755))

	preds, err := DefaultCatalog().Predictions(dir)
	require.NoError(t, err)

	byFile := make(map[string]Artifact)
	for _, p := range preds {
		byFile[p.File] = p
	}
	require.Len(t, byFile, 5)
	assert.Equal(t, "ARIMA", byFile["arima_act_pred.png"].Type)
	assert.Equal(t, "LSTM", byFile["lstm_act_pred.png"].Type)
	assert.Equal(t, "DeepAR", byFile["deepar_pred.png"].Type)
	assert.Equal(t, "DeepAR", byFile["model_comparison.png"].Type)
	assert.Equal(t, "ARIMA", byFile["arima_lstm_comparison.png"].Type)
	assert.Equal(t, "/output/arima_act_pred.png", byFile["arima_act_pred.png"].Path)
	assert.Equal(t, "ARIMA ACT PRED", byFile["arima_act_pred.png"].Name)
}

func TestVisualizations(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "cpu_usage_histogram.png")
	touch(t, dir, "notes.txt")
	touch(t, dir, "hourly.png.bak")

	images, err := Visualizations(dir)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, Artifact{
		Name: "CPU USAGE HISTOGRAM",
		File: "cpu_usage_histogram.png",
		Path: "/output/cpu_usage_histogram.png",
	}, images[0])

	_, err = Visualizations(filepath.Join(dir, "nope"))
	assert.ErrorIs(t, err, ErrOutputUnavailable)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "HOURLY CPU PATTERN", DisplayName("hourly_cpu_pattern.png"))
	assert.Equal(t, "A.PNG B", DisplayName("a.png.png_b"))
}
