package graphing

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"UsageForecaster/pkg/metrics"
)

func ok(v float64) metrics.Reading { return metrics.Reading{Value: v, OK: true} }

func testSamples(n int) []metrics.Sample {
	samples := make([]metrics.Sample, n)
	for i := range samples {
		samples[i] = metrics.Sample{
			Timestamp:      fmt.Sprintf("2024-01-01 %02d:%02d:00", i%24, i%60),
			CPUUsageMHz:    ok(float64(10 + i)),
			CPUCapacityMHz: ok(100),
			MemoryKB:       ok(float64(1048576 + i*1024)),
			NetRxKBps:      ok(float64(i)),
			DiskReadKBps:   ok(float64(2 * i)),
		}
	}
	return samples
}

func TestGenerate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	gen, err := NewGenerator(dir, Options{HistogramBuckets: 5}, nil)
	require.NoError(t, err)

	written, err := gen.Generate(testSamples(30))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, HistogramFile),
		filepath.Join(dir, HourlyFile),
		filepath.Join(dir, CorrelationFile),
	}, written)

	for _, path := range written {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), path)
	}
}

func TestGenerateNoCPU(t *testing.T) {
	gen, err := NewGenerator(t.TempDir(), Options{}, nil)
	require.NoError(t, err)

	samples := testSamples(3)
	for i := range samples {
		samples[i].CPUCapacityMHz = ok(0)
	}
	_, err = gen.Generate(samples)
	assert.ErrorIs(t, err, ErrNothingToPlot)
}

func TestNewGeneratorRequiresDir(t *testing.T) {
	_, err := NewGenerator("", Options{}, nil)
	assert.Error(t, err)
}

func TestDashboard(t *testing.T) {
	samples := testSamples(150)
	d := NewDashboard("Usage", samples, Options{TimeSeriesWindow: 40})

	assert.Len(t, d.Series.Labels, 40)
	assert.Len(t, d.Histogram, 20)
	assert.Len(t, d.Hourly, 24)
	assert.Len(t, d.Points, 150)
	require.NotNil(t, d.Coefficient)
	assert.InDelta(t, 1, *d.Coefficient, 1e-9)
	assert.Equal(t, 150, d.Summary.DataPoints)

	var buf bytes.Buffer
	require.NoError(t, d.Render(&buf))
	html := buf.String()
	assert.Contains(t, html, "<title>Usage</title>")
	assert.Contains(t, html, "CPU Usage Distribution")
	assert.Contains(t, html, "Average CPU Usage by Hour")
	assert.Contains(t, html, "Pearson r = 1.000")
}

func TestDashboardEmpty(t *testing.T) {
	d := NewDashboard("Empty", nil, Options{})
	assert.Nil(t, d.Coefficient)
	assert.Empty(t, d.Histogram)

	var buf bytes.Buffer
	require.NoError(t, d.Render(&buf))
	assert.Contains(t, buf.String(), "not enough data for a coefficient")
}

func TestLineDataGaps(t *testing.T) {
	v := 1.5
	data := lineData([]*float64{&v, nil})
	require.Len(t, data, 2)
	assert.Equal(t, 1.5, data[0].Value)
	assert.Equal(t, "-", data[1].Value)
}
