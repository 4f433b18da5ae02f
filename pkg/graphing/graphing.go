// Package graphing renders usage charts: PNG artifacts into the output
// directory and an interactive dashboard page.
package graphing

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"UsageForecaster/pkg/aggregating"
	"UsageForecaster/pkg/metrics"
)

const (
	defaultWidth  = 12 * vg.Inch
	defaultHeight = 4 * vg.Inch
)

// Artifact file names written by Generator.
const (
	HistogramFile   = "cpu_histogram.png"
	HourlyFile      = "hourly_cpu_pattern.png"
	CorrelationFile = "cpu_memory_correlation.png"
)

// ErrNothingToPlot is returned when no sample has a usable cpu percentage.
var ErrNothingToPlot = errors.New("no usable cpu samples to plot")

// Options sets the windows and bucket count used for charts.
type Options struct {
	TimeSeriesWindow  int
	CorrelationWindow int
	HistogramBuckets  int
}

func (o *Options) applyDefaults() {
	if o.TimeSeriesWindow <= 0 {
		o.TimeSeriesWindow = aggregating.TimeSeriesWindow
	}
	if o.CorrelationWindow <= 0 {
		o.CorrelationWindow = aggregating.CorrelationWindow
	}
	if o.HistogramBuckets <= 0 {
		o.HistogramBuckets = aggregating.DefaultBuckets
	}
}

// Generator creates PNG charts from parsed samples.
type Generator struct {
	outputDir string
	opts      Options
	logger    *slog.Logger
}

// NewGenerator creates a new graph generator.
func NewGenerator(outputDir string, opts Options, logger *slog.Logger) (*Generator, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts.applyDefaults()
	return &Generator{outputDir: outputDir, opts: opts, logger: logger}, nil
}

// Generate writes the histogram, hourly and correlation charts and returns
// the paths written. A chart that fails to render is logged and skipped.
func (g *Generator) Generate(samples []metrics.Sample) ([]string, error) {
	cpu := aggregating.CPUPercents(samples)
	if len(cpu) == 0 {
		return nil, ErrNothingToPlot
	}

	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	renders := []struct {
		file   string
		render func(path string) error
	}{
		{HistogramFile, func(path string) error {
			return renderHistogram(aggregating.Histogram(cpu, g.opts.HistogramBuckets), path)
		}},
		{HourlyFile, func(path string) error {
			return renderHourly(aggregating.Hourly(samples), path)
		}},
		{CorrelationFile, func(path string) error {
			return renderCorrelation(aggregating.Correlation(samples, g.opts.CorrelationWindow), path)
		}},
	}

	var written []string
	for _, r := range renders {
		path := filepath.Join(g.outputDir, r.file)
		if err := r.render(path); err != nil {
			g.logger.Warn("Failed to render chart", "file", r.file, "error", err)
			continue
		}
		written = append(written, path)
	}

	g.logger.Info("Generated charts", "dir", g.outputDir, "count", len(written))
	return written, nil
}

func renderHistogram(buckets []aggregating.Bucket, path string) error {
	if len(buckets) == 0 {
		return ErrNothingToPlot
	}
	p := plot.New()
	p.Title.Text = "CPU Usage Distribution"
	p.X.Label.Text = "CPU usage (%)"
	p.Y.Label.Text = "Samples"

	values := make(plotter.Values, len(buckets))
	labels := make([]string, len(buckets))
	for i, b := range buckets {
		values[i] = float64(b.Count)
		labels[i] = b.Label
	}

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return err
	}
	bars.Color = plotutil.Color(0)
	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = 0.8
	p.X.Tick.Label.XAlign = -0.8

	return p.Save(defaultWidth, defaultHeight, path)
}

func renderHourly(hours []aggregating.HourlyAggregate, path string) error {
	p := plot.New()
	p.Title.Text = "Average CPU Usage by Hour"
	p.X.Label.Text = "Hour"
	p.Y.Label.Text = "CPU usage (%)"

	values := make(plotter.Values, len(hours))
	labels := make([]string, len(hours))
	for i, h := range hours {
		values[i] = h.AverageCPUPercent
		labels[i] = h.Label
	}

	bars, err := plotter.NewBarChart(values, vg.Points(15))
	if err != nil {
		return err
	}
	bars.Color = plotutil.Color(1)
	p.Add(bars)
	p.Add(plotter.NewGrid())
	p.NominalX(labels...)

	return p.Save(defaultWidth, defaultHeight, path)
}

func renderCorrelation(points []aggregating.Point, path string) error {
	if len(points) == 0 {
		return ErrNothingToPlot
	}
	p := plot.New()
	p.Title.Text = "CPU vs Memory Usage"
	if r, ok := aggregating.Pearson(points); ok {
		p.Title.Text = fmt.Sprintf("CPU vs Memory Usage (r = %.3f)", r)
	}
	p.X.Label.Text = "CPU usage (%)"
	p.Y.Label.Text = "Memory (GB)"

	pts := make(plotter.XYs, len(points))
	for i, pt := range points {
		pts[i] = plotter.XY{X: pt.CPUPercent, Y: pt.MemoryGB}
	}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	scatter.Color = plotutil.Color(2)
	p.Add(scatter)
	p.Add(plotter.NewGrid())

	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}
