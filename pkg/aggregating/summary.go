// Package aggregating computes statistics, histograms and windowed series
// over parsed samples.
package aggregating

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"UsageForecaster/pkg/metrics"
)

// Summary holds the headline statistics of a set of samples. DataPoints
// counts every sample passed in, usable or not.
type Summary struct {
	AvgCPUPercent float64 `json:"avg_cpu_percent"`
	MaxCPUPercent float64 `json:"max_cpu_percent"`
	AvgMemoryGB   float64 `json:"avg_memory_gb"`
	DataPoints    int     `json:"data_points"`
	CPUSamples    int     `json:"cpu_samples"`
	MemorySamples int     `json:"memory_samples"`
}

// SummaryBuilder accumulates a Summary one sample at a time, so a whole
// dataset can be summarized while its records are streamed.
type SummaryBuilder struct {
	count  int
	cpu    []float64
	memory []float64
}

// Add folds one sample into the running summary.
func (b *SummaryBuilder) Add(s metrics.Sample) {
	b.count++
	if v, ok := metrics.CPUUsagePercent(s); metrics.Usable(v, ok) {
		b.cpu = append(b.cpu, v)
	}
	if v, ok := metrics.MemoryGB(s); metrics.Usable(v, ok) {
		b.memory = append(b.memory, v)
	}
}

// Summary returns the statistics gathered so far. Empty sets yield zeros.
func (b *SummaryBuilder) Summary() Summary {
	sum := Summary{
		DataPoints:    b.count,
		CPUSamples:    len(b.cpu),
		MemorySamples: len(b.memory),
	}
	if len(b.cpu) > 0 {
		sum.AvgCPUPercent = stat.Mean(b.cpu, nil)
		sum.MaxCPUPercent = floats.Max(b.cpu)
	}
	if len(b.memory) > 0 {
		sum.AvgMemoryGB = stat.Mean(b.memory, nil)
	}
	return sum
}

// Summarize computes the Summary of samples.
func Summarize(samples []metrics.Sample) Summary {
	var b SummaryBuilder
	for _, s := range samples {
		b.Add(s)
	}
	return b.Summary()
}

// CPUPercents returns the usable cpu usage percentages in sample order.
func CPUPercents(samples []metrics.Sample) []float64 {
	var out []float64
	for _, s := range samples {
		if v, ok := metrics.CPUUsagePercent(s); metrics.Usable(v, ok) {
			out = append(out, v)
		}
	}
	return out
}

// MemoryGBs returns the usable memory readings in GB in sample order.
func MemoryGBs(samples []metrics.Sample) []float64 {
	var out []float64
	for _, s := range samples {
		if v, ok := metrics.MemoryGB(s); metrics.Usable(v, ok) {
			out = append(out, v)
		}
	}
	return out
}
