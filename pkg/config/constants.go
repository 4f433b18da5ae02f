package config

import "time"

// Environment variables read by FromEnv.
const (
	EnvPort       = "PORT"
	EnvData       = "FORECASTER_DATA"
	EnvOutputDir  = "FORECASTER_OUTPUT_DIR"
	EnvCatalog    = "FORECASTER_CATALOG"
	EnvRunLog     = "FORECASTER_RUN_LOG"
	EnvRunTimeout = "FORECASTER_RUN_TIMEOUT"
	EnvLogLevel   = "FORECASTER_LOG_LEVEL"
)

// Default configuration values.
const (
	DefaultPort              = 3000
	DefaultDataPath          = "output/processed_data.csv"
	DefaultOutputDir         = "output"
	DefaultDataLimit         = 1000
	DefaultTimeSeriesWindow  = 100
	DefaultCorrelationWindow = 200
	DefaultTableWindow       = 50
	DefaultHistogramBuckets  = 20
	DefaultLogLevel          = "info"
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultVenvInterpreter   = "backend/.venv/bin/python"
	DefaultSystemInterpreter = "python3"
)
