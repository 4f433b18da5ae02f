package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	c := New()
	assert.Equal(t, 3000, c.Port)
	assert.Equal(t, "output/processed_data.csv", c.DataPath)
	assert.Equal(t, "output", c.OutputDir)
	assert.Equal(t, 1000, c.DataLimit)
	assert.Equal(t, 100, c.TimeSeriesWindow)
	assert.Equal(t, 200, c.CorrelationWindow)
	assert.Equal(t, 50, c.TableWindow)
	assert.Equal(t, 20, c.HistogramBuckets)
	assert.Zero(t, c.RunTimeout)
	assert.Equal(t, ":3000", c.Addr())
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvPort:       "8080",
		EnvData:       "data/usage.parquet",
		EnvRunTimeout: "90s",
		EnvLogLevel:   "debug",
		EnvRunLog:     "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	c := New()
	require.NoError(t, c.ApplyEnv(lookup))
	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, "data/usage.parquet", c.DataPath)
	assert.Equal(t, 90*time.Second, c.RunTimeout)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Empty(t, c.RunLogPath)
	assert.Equal(t, "output", c.OutputDir)
}

func TestApplyEnvInvalid(t *testing.T) {
	for _, tc := range []struct{ key, val string }{
		{EnvPort, "http"},
		{EnvRunTimeout, "soon"},
	} {
		lookup := func(k string) (string, bool) {
			if k == tc.key {
				return tc.val, true
			}
			return "", false
		}
		err := New().ApplyEnv(lookup)
		require.Error(t, err, tc.key)
		assert.Contains(t, err.Error(), tc.key)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvPort, "4000")
	t.Setenv(EnvOutputDir, "results")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 4000, c.Port)
	assert.Equal(t, "results", c.OutputDir)
}

func TestApplyDefaults(t *testing.T) {
	c := &Config{DataLimit: 0}
	c.ApplyDefaults()
	assert.Equal(t, New(), c)
	require.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"defaults", func(*Config) {}, ""},
		{"port zero", func(c *Config) { c.Port = 0 }, "port"},
		{"port high", func(c *Config) { c.Port = 70000 }, "port"},
		{"negative limit", func(c *Config) { c.DataLimit = -1 }, "data limit"},
		{"zero buckets", func(c *Config) { c.HistogramBuckets = 0 }, "histogram buckets"},
		{"too many buckets", func(c *Config) { c.HistogramBuckets = 1001 }, "at most 1000"},
		{"negative timeout", func(c *Config) { c.RunTimeout = -time.Second }, "run timeout"},
		{"unknown format", func(c *Config) { c.DataPath = "data.xlsx" }, "unsupported dataset format"},
		{"output is file", func(c *Config) { c.OutputDir = file }, "not a directory"},
		{"output missing", func(c *Config) { c.OutputDir = filepath.Join(dir, "later") }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			tt.mutate(c)
			err := c.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestFlags(t *testing.T) {
	c := New()
	cmd := &cobra.Command{Use: "serve", RunE: func(*cobra.Command, []string) error { return nil }}
	c.AddServerFlags(cmd)
	c.AddDataFlags(cmd)
	c.AddRunFlags(cmd)
	c.AddScheduleFlags(cmd)
	c.AddLogFlags(cmd)

	cmd.SetArgs([]string{
		"-p", "9000",
		"--data", "usage.jsonl",
		"--run-timeout", "5m",
		"--schedule", "arima=0 * * * *",
		"--schedule", "lstm=@daily",
		"--log-level", "warn",
	})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, 9000, c.Port)
	assert.Equal(t, "usage.jsonl", c.DataPath)
	assert.Equal(t, 5*time.Minute, c.RunTimeout)
	assert.Equal(t, []string{"arima=0 * * * *", "lstm=@daily"}, c.Schedules)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, 200, c.CorrelationWindow)
}
