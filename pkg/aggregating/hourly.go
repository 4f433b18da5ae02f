package aggregating

import (
	"fmt"

	"UsageForecaster/pkg/metrics"
)

const hoursPerDay = 24

// HourlyAggregate is the mean cpu usage of samples taken during one hour of day.
type HourlyAggregate struct {
	Hour              int     `json:"hour"`
	Label             string  `json:"label"`
	AverageCPUPercent float64 `json:"average_cpu_percent"`
	Samples           int     `json:"samples"`
}

// Hourly groups usable cpu percentages by the hour in each timestamp. It
// always returns 24 entries ordered 0..23; hours without samples average 0.
func Hourly(samples []metrics.Sample) []HourlyAggregate {
	var (
		sums   [hoursPerDay]float64
		counts [hoursPerDay]int
	)
	for _, s := range samples {
		h, ok := metrics.Hour(s.Timestamp)
		if !ok {
			continue
		}
		v, ok := metrics.CPUUsagePercent(s)
		if !metrics.Usable(v, ok) {
			continue
		}
		sums[h] += v
		counts[h]++
	}

	out := make([]HourlyAggregate, hoursPerDay)
	for h := range out {
		out[h] = HourlyAggregate{
			Hour:    h,
			Label:   fmt.Sprintf("%02d:00", h),
			Samples: counts[h],
		}
		if counts[h] > 0 {
			out[h].AverageCPUPercent = sums[h] / float64(counts[h])
		}
	}
	return out
}
