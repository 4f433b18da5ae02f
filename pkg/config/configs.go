// Package config provides configuration management for the forecaster.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"UsageForecaster/pkg/aggregating"
	"UsageForecaster/pkg/formatting"
)

// Config holds all forecaster configuration options.
type Config struct {
	// Server settings
	Host            string
	Port            int
	ShutdownTimeout time.Duration

	// Data settings
	DataPath          string
	OutputDir         string
	DataLimit         int
	TimeSeriesWindow  int
	CorrelationWindow int
	TableWindow       int
	HistogramBuckets  int

	// Model run settings
	CatalogPath       string
	VenvInterpreter   string
	SystemInterpreter string
	RunTimeout        time.Duration
	RunLogPath        string
	Schedules         []string

	// Logging
	LogLevel string
	LogJSON  bool
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Port:              DefaultPort,
		ShutdownTimeout:   DefaultShutdownTimeout,
		DataPath:          DefaultDataPath,
		OutputDir:         DefaultOutputDir,
		DataLimit:         DefaultDataLimit,
		TimeSeriesWindow:  DefaultTimeSeriesWindow,
		CorrelationWindow: DefaultCorrelationWindow,
		TableWindow:       DefaultTableWindow,
		HistogramBuckets:  DefaultHistogramBuckets,
		VenvInterpreter:   DefaultVenvInterpreter,
		SystemInterpreter: DefaultSystemInterpreter,
		LogLevel:          DefaultLogLevel,
	}
}

// FromEnv creates a Config with defaults overridden by the environment.
// Flags registered afterwards take these values as their defaults.
func FromEnv() (*Config, error) {
	c := New()
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyEnv overrides fields from environment variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		c.Port = port
	}
	if v, ok := lookup(EnvRunTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvRunTimeout, v, err)
		}
		c.RunTimeout = d
	}

	strs := map[string]*string{
		EnvData:      &c.DataPath,
		EnvOutputDir: &c.OutputDir,
		EnvCatalog:   &c.CatalogPath,
		EnvRunLog:    &c.RunLogPath,
		EnvLogLevel:  &c.LogLevel,
	}
	for name, field := range strs {
		if v, ok := lookup(name); ok && v != "" {
			*field = v
		}
	}
	return nil
}

// ApplyDefaults fills in any missing values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.DataPath == "" {
		c.DataPath = DefaultDataPath
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.TimeSeriesWindow == 0 {
		c.TimeSeriesWindow = DefaultTimeSeriesWindow
	}
	if c.CorrelationWindow == 0 {
		c.CorrelationWindow = DefaultCorrelationWindow
	}
	if c.TableWindow == 0 {
		c.TableWindow = DefaultTableWindow
	}
	if c.HistogramBuckets == 0 {
		c.HistogramBuckets = DefaultHistogramBuckets
	}
	if c.VenvInterpreter == "" {
		c.VenvInterpreter = DefaultVenvInterpreter
	}
	if c.SystemInterpreter == "" {
		c.SystemInterpreter = DefaultSystemInterpreter
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.DataLimit < 0 {
		return fmt.Errorf("data limit cannot be negative, got %d", c.DataLimit)
	}
	for name, v := range map[string]int{
		"time series window": c.TimeSeriesWindow,
		"correlation window": c.CorrelationWindow,
		"table window":       c.TableWindow,
		"histogram buckets":  c.HistogramBuckets,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	if c.HistogramBuckets > aggregating.MaxBuckets {
		return fmt.Errorf("histogram buckets must be at most %d, got %d", aggregating.MaxBuckets, c.HistogramBuckets)
	}
	if c.RunTimeout < 0 {
		return fmt.Errorf("run timeout cannot be negative, got %v", c.RunTimeout)
	}
	if _, ok := formatting.GetByPath(c.DataPath); !ok {
		return fmt.Errorf("unsupported dataset format: %s (valid: %v)", c.DataPath, formatting.Names())
	}

	if c.OutputDir != "" {
		if info, err := os.Stat(c.OutputDir); err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("cannot access output directory: %w", err)
			}
		} else if !info.IsDir() {
			return fmt.Errorf("output path is not a directory: %s", c.OutputDir)
		}
	}

	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
