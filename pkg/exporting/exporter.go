// Package exporting writes parsed samples and their derived metrics to any
// registered dataset format.
package exporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"UsageForecaster/pkg/aggregating"
	"UsageForecaster/pkg/formatting"
	"UsageForecaster/pkg/metrics"
)

// Exporter streams samples to a file, one row per sample.
type Exporter struct {
	path    string
	format  string
	writer  formatting.Writer
	summary aggregating.SummaryBuilder
	rows    int
}

// NewExporter creates an exporter for path. An empty format is chosen from
// the file extension.
func NewExporter(path, format string) (*Exporter, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var (
		f  formatting.Format
		ok bool
	)
	if format == "" {
		f, ok = formatting.GetByPath(path)
	} else {
		f, ok = formatting.Get(format)
	}
	if !ok {
		return nil, fmt.Errorf("unsupported format for %s (valid: %s)", path, strings.Join(formatting.Names(), ", "))
	}

	writer := f.Writer()
	if err := writer.Init(path, metrics.DerivedColumns); err != nil {
		return nil, fmt.Errorf("failed to initialize writer: %w", err)
	}

	return &Exporter{
		path:   path,
		format: f.Name(),
		writer: writer,
	}, nil
}

// Path returns the output file path.
func (e *Exporter) Path() string {
	return e.path
}

// Format returns the output format name.
func (e *Exporter) Format() string {
	return e.format
}

// Rows returns the number of rows written so far.
func (e *Exporter) Rows() int {
	return e.rows
}

// Write writes a single sample with its derived metrics.
func (e *Exporter) Write(s metrics.Sample) error {
	if err := e.writer.Write(metrics.DerivedRow(s)); err != nil {
		return fmt.Errorf("failed to write row %d: %w", e.rows, err)
	}
	e.summary.Add(s)
	e.rows++
	return nil
}

// Flush ensures all buffered data is written.
func (e *Exporter) Flush() error {
	return e.writer.Flush()
}

// Close finalizes and closes the exporter.
func (e *Exporter) Close() error {
	return e.writer.Close()
}

// Summary returns the statistics of the rows written so far.
func (e *Exporter) Summary() aggregating.Summary {
	return e.summary.Summary()
}

// SummaryPath is the JSON file written next to the export by WriteSummary.
func (e *Exporter) SummaryPath() string {
	base := strings.TrimSuffix(e.path, filepath.Ext(e.path))
	return base + "_summary.json"
}

// WriteSummary writes the summary of the exported rows to SummaryPath.
func (e *Exporter) WriteSummary() error {
	data, err := json.MarshalIndent(e.Summary(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	return os.WriteFile(e.SummaryPath(), data, 0644)
}

// ExportDataset streams every valid row of src through an Exporter writing
// to dst, and returns the number of rows written.
func ExportDataset(src, dst, format string) (int, error) {
	exp, err := NewExporter(dst, format)
	if err != nil {
		return 0, err
	}

	for rec, err := range formatting.Records(src) {
		if err != nil {
			_ = exp.Close()
			return exp.Rows(), err
		}
		if err := exp.Write(metrics.ParseSample(rec)); err != nil {
			_ = exp.Close()
			return exp.Rows(), err
		}
	}

	if err := exp.Close(); err != nil {
		return exp.Rows(), fmt.Errorf("failed to close exporter: %w", err)
	}
	if exp.Rows() == 0 {
		return 0, formatting.ErrNoData
	}
	return exp.Rows(), exp.WriteSummary()
}
