package config

import (
	"github.com/spf13/cobra"
)

// AddServerFlags adds HTTP server flags to a command.
func (c *Config) AddServerFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&c.Host, "host", c.Host, "Listen host (all interfaces if empty)")
	flags.IntVarP(&c.Port, "port", "p", c.Port, "Listen port (env "+EnvPort+")")
	flags.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", c.ShutdownTimeout, "Grace period for in-flight requests and runs")
	flags.IntVar(&c.TimeSeriesWindow, "timeseries-window", c.TimeSeriesWindow, "Samples shown in time series charts")
	flags.IntVar(&c.CorrelationWindow, "correlation-window", c.CorrelationWindow, "Samples used for the cpu/memory correlation")
	flags.IntVar(&c.TableWindow, "table-window", c.TableWindow, "Rows shown in the dashboard table")
}

// AddDataFlags adds dataset and output directory flags to a command.
func (c *Config) AddDataFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&c.DataPath, "data", "d", c.DataPath, "Dataset file (csv, tsv, jsonl, parquet)")
	flags.StringVarP(&c.OutputDir, "output-dir", "o", c.OutputDir, "Directory holding model outputs and charts")
	flags.IntVar(&c.DataLimit, "limit", c.DataLimit, "Rows loaded from the dataset (0 for all)")
	flags.IntVar(&c.HistogramBuckets, "buckets", c.HistogramBuckets, "Histogram bucket count")
}

// AddRunFlags adds model execution flags to a command.
func (c *Config) AddRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&c.CatalogPath, "catalog", c.CatalogPath, "Model catalog JSON file (built-in catalog if empty)")
	flags.StringVar(&c.VenvInterpreter, "venv-python", c.VenvInterpreter, "Interpreter used when it exists")
	flags.StringVar(&c.SystemInterpreter, "python", c.SystemInterpreter, "Fallback interpreter")
	flags.DurationVar(&c.RunTimeout, "run-timeout", c.RunTimeout, "Kill model runs after this long (0 for no limit)")
	flags.StringVar(&c.RunLogPath, "run-log", c.RunLogPath, "SQLite file for the run log (in memory if empty)")
}

// AddScheduleFlags adds periodic run flags to a command.
func (c *Config) AddScheduleFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&c.Schedules, "schedule", c.Schedules, "Run a model periodically, as key=<cron spec> (repeatable)")
}

// AddLogFlags adds logging flags to a command's persistent flags.
func (c *Config) AddLogFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
	flags.BoolVar(&c.LogJSON, "log-json", c.LogJSON, "Log as JSON")
}
