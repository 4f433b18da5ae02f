package aggregating

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"UsageForecaster/pkg/metrics"
)

// Window sizes used by the display endpoints.
const (
	TimeSeriesWindow  = 100
	CorrelationWindow = 200
	TableWindow       = 50
)

// Head returns the first k items. k <= 0 or k past the end returns all items.
func Head[T any](items []T, k int) []T {
	if k <= 0 || k >= len(items) {
		return items
	}
	return items[:k]
}

// Point pairs the cpu usage and memory of one sample.
type Point struct {
	Timestamp  string  `json:"timestamp"`
	CPUPercent float64 `json:"cpu_percent"`
	MemoryGB   float64 `json:"memory_gb"`
}

// Correlation emits (cpu %, memory GB) pairs over the first k samples.
// A pair is dropped when either value is absent or non-finite, or when the
// cpu percentage is not positive.
func Correlation(samples []metrics.Sample, k int) []Point {
	var points []Point
	for _, s := range Head(samples, k) {
		cpu, ok := metrics.CPUUsagePercent(s)
		if !ok || !finite(cpu) || cpu <= 0 {
			continue
		}
		mem, ok := metrics.MemoryGB(s)
		if !ok || !finite(mem) {
			continue
		}
		points = append(points, Point{Timestamp: s.Timestamp, CPUPercent: cpu, MemoryGB: mem})
	}
	return points
}

// Pearson returns the correlation coefficient of the points. It reports
// false with fewer than two points or when either axis has no variance.
func Pearson(points []Point) (float64, bool) {
	if len(points) < 2 {
		return 0, false
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.CPUPercent
		ys[i] = p.MemoryGB
	}
	r := stat.Correlation(xs, ys, nil)
	if !finite(r) {
		return 0, false
	}
	return r, true
}

// TimeSeries holds aligned per-sample series for charting. Absent values are
// nil and encode as JSON null.
type TimeSeries struct {
	Labels        []string   `json:"labels"`
	Timestamps    []string   `json:"timestamps"`
	CPUPercent    []*float64 `json:"cpu_percent"`
	MemoryGB      []*float64 `json:"memory_gb"`
	NetRxKBps     []*float64 `json:"net_rx_kbps"`
	NetTxKBps     []*float64 `json:"net_tx_kbps"`
	DiskReadKBps  []*float64 `json:"disk_read_kbps"`
	DiskWriteKBps []*float64 `json:"disk_write_kbps"`
}

// BuildTimeSeries projects the first k samples onto chart series.
func BuildTimeSeries(samples []metrics.Sample, k int) TimeSeries {
	window := Head(samples, k)
	ts := TimeSeries{
		Labels:        make([]string, len(window)),
		Timestamps:    make([]string, len(window)),
		CPUPercent:    make([]*float64, len(window)),
		MemoryGB:      make([]*float64, len(window)),
		NetRxKBps:     make([]*float64, len(window)),
		NetTxKBps:     make([]*float64, len(window)),
		DiskReadKBps:  make([]*float64, len(window)),
		DiskWriteKBps: make([]*float64, len(window)),
	}
	for i, s := range window {
		ts.Labels[i] = metrics.ClockLabel(s.Timestamp)
		ts.Timestamps[i] = s.Timestamp
		ts.CPUPercent[i] = ptr(metrics.CPUUsagePercent(s))
		ts.MemoryGB[i] = ptr(metrics.MemoryGB(s))
		ts.NetRxKBps[i] = s.NetRxKBps.Ptr()
		ts.NetTxKBps[i] = s.NetTxKBps.Ptr()
		ts.DiskReadKBps[i] = s.DiskReadKBps.Ptr()
		ts.DiskWriteKBps[i] = s.DiskWriteKBps.Ptr()
	}
	return ts
}

func ptr(v float64, ok bool) *float64 {
	if !ok || !finite(v) {
		return nil
	}
	return &v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
