package aggregating

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"UsageForecaster/pkg/utils"
)

// Bucket counts accepted by Histogram.
const (
	DefaultBuckets = 20
	MaxBuckets     = 1000
)

// Bucket is one equal-width histogram bin.
type Bucket struct {
	Label string  `json:"label"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram distributes values over n equal-width buckets spanning
// [min, max]. The maximum lands in the last bucket. When every value is the
// same the width is zero and all values fall into bucket 0. Non-finite values
// are ignored; empty input or n <= 0 yields no buckets, and n is capped at
// MaxBuckets.
func Histogram(values []float64, n int) []Bucket {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 || n <= 0 {
		return nil
	}
	n = min(n, MaxBuckets)

	// Work in halves so that hi-lo cannot overflow for values near MaxFloat64.
	lo, hi := floats.Min(finite), floats.Max(finite)
	halfWidth := (hi/2 - lo/2) / float64(n)
	bound := func(i int) float64 {
		if i == n {
			return hi
		}
		return lo + float64(i)*halfWidth + float64(i)*halfWidth
	}

	buckets := make([]Bucket, n)
	for i := range buckets {
		lower, upper := bound(i), bound(i+1)
		if halfWidth == 0 {
			upper = lower
		}
		buckets[i] = Bucket{
			Label: utils.RoundLabel(lower) + "-" + utils.RoundLabel(upper),
			Lower: lower,
			Upper: upper,
		}
	}

	for _, v := range finite {
		idx := 0
		if halfWidth > 0 {
			idx = int(math.Floor((v/2 - lo/2) / halfWidth))
			idx = max(0, min(idx, n-1))
		}
		buckets[idx].Count++
	}
	return buckets
}
