package graphing

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"UsageForecaster/pkg/aggregating"
	"UsageForecaster/pkg/metrics"
)

// Dashboard holds the aggregates shown on the interactive charts page.
type Dashboard struct {
	Title       string
	Summary     aggregating.Summary
	Series      aggregating.TimeSeries
	Histogram   []aggregating.Bucket
	Hourly      []aggregating.HourlyAggregate
	Points      []aggregating.Point
	Coefficient *float64
}

// NewDashboard aggregates samples for display.
func NewDashboard(title string, samples []metrics.Sample, o Options) *Dashboard {
	o.applyDefaults()
	d := &Dashboard{
		Title:     title,
		Summary:   aggregating.Summarize(samples),
		Series:    aggregating.BuildTimeSeries(samples, o.TimeSeriesWindow),
		Histogram: aggregating.Histogram(aggregating.CPUPercents(samples), o.HistogramBuckets),
		Hourly:    aggregating.Hourly(samples),
		Points:    aggregating.Correlation(samples, o.CorrelationWindow),
	}
	if r, ok := aggregating.Pearson(d.Points); ok {
		d.Coefficient = &r
	}
	return d
}

// Render writes the dashboard as a standalone HTML page.
func (d *Dashboard) Render(w io.Writer) error {
	labels := d.Series.Labels

	page := components.NewPage()
	page.SetPageTitle(d.Title)
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(
		createLineChart("CPU Usage (%)", d.summaryLine(), labels,
			namedSeries{"CPU %", d.Series.CPUPercent}),
		createLineChart("Memory (GB)", "", labels,
			namedSeries{"Memory GB", d.Series.MemoryGB}),
		createLineChart("Network Throughput (KB/s)", "", labels,
			namedSeries{"Received", d.Series.NetRxKBps},
			namedSeries{"Transmitted", d.Series.NetTxKBps}),
		createLineChart("Disk Throughput (KB/s)", "", labels,
			namedSeries{"Read", d.Series.DiskReadKBps},
			namedSeries{"Write", d.Series.DiskWriteKBps}),
		createHistogramChart(d.Histogram),
		createScatterChart(d.Points, d.Coefficient),
		createHourlyChart(d.Hourly),
	)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	return nil
}

func (d *Dashboard) summaryLine() string {
	s := d.Summary
	return fmt.Sprintf("avg %.2f%%, max %.2f%%, avg memory %.2f GB over %d samples",
		s.AvgCPUPercent, s.MaxCPUPercent, s.AvgMemoryGB, s.DataPoints)
}

type namedSeries struct {
	name   string
	values []*float64
}

// createLineChart creates a line chart with one line per series.
func createLineChart(title, subtitle string, labels []string, series ...namedSeries) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(len(series) > 1), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", AxisLabel: &opts.AxisLabel{Rotate: 45}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px"}),
	)

	line.SetXAxis(labels)
	for _, s := range series {
		line.AddSeries(s.name, lineData(s.values),
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(false)}),
		)
	}
	return line
}

// lineData maps absent values to "-", which echarts draws as a gap.
func lineData(values []*float64) []opts.LineData {
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		if v == nil {
			data[i] = opts.LineData{Value: "-"}
			continue
		}
		data[i] = opts.LineData{Value: *v}
	}
	return data
}

// createHistogramChart creates a bar chart of the cpu usage distribution.
func createHistogramChart(buckets []aggregating.Bucket) *charts.Bar {
	bar := charts.NewBar()

	var total int
	xLabels := make([]string, len(buckets))
	data := make([]opts.BarData, len(buckets))
	for i, b := range buckets {
		xLabels[i] = b.Label
		data[i] = opts.BarData{Value: b.Count}
		total += b.Count
	}

	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "CPU Usage Distribution",
			Subtitle: fmt.Sprintf("Total: %d", total),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", AxisLabel: &opts.AxisLabel{Rotate: 45}}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px"}),
	)

	bar.SetXAxis(xLabels).AddSeries("Samples", data)
	return bar
}

// createHourlyChart creates a bar chart of the average cpu usage per hour.
func createHourlyChart(hours []aggregating.HourlyAggregate) *charts.Bar {
	bar := charts.NewBar()

	xLabels := make([]string, len(hours))
	data := make([]opts.BarData, len(hours))
	for i, h := range hours {
		xLabels[i] = h.Label
		data[i] = opts.BarData{Value: h.AverageCPUPercent}
	}

	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Average CPU Usage by Hour"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category"}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px"}),
	)

	bar.SetXAxis(xLabels).AddSeries("CPU %", data)
	return bar
}

// createScatterChart plots memory against cpu usage.
func createScatterChart(points []aggregating.Point, coefficient *float64) *charts.Scatter {
	scatter := charts.NewScatter()

	subtitle := "not enough data for a coefficient"
	if coefficient != nil {
		subtitle = fmt.Sprintf("Pearson r = %.3f", *coefficient)
	}

	data := make([]opts.ScatterData, len(points))
	for i, p := range points {
		data[i] = opts.ScatterData{Name: p.Timestamp, Value: []float64{p.CPUPercent, p.MemoryGB}}
	}

	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "CPU vs Memory", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "CPU %", Scale: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "GB", Scale: opts.Bool(true)}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px"}),
	)

	scatter.AddSeries("Samples", data)
	return scatter
}
