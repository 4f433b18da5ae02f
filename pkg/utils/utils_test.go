package utils

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToFloat64Ok(t *testing.T) {
	tests := []struct {
		in   interface{}
		want float64
		ok   bool
	}{
		{nil, 0, false},
		{1.5, 1.5, true},
		{int64(3), 3, true},
		{" 7", 0, false},
		{"7.25", 7.25, true},
		{"", 0, false},
		{"abc", 0, false},
		{json.Number("42"), 42, true},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, ok := ToFloat64Ok(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestRoundLabel(t *testing.T) {
	assert.Equal(t, "0", RoundLabel(-0.4))
	assert.Equal(t, "13", RoundLabel(12.5))
	assert.Equal(t, "-3", RoundLabel(-2.6))
}

func TestFormatValue(t *testing.T) {
	v := 2.5
	var missing *float64
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "2.5", FormatValue(&v))
	assert.Equal(t, "", FormatValue(missing))
	assert.Equal(t, "100", FormatValue(100.0))
	assert.Equal(t, "true", FormatValue(true))
	assert.Equal(t, "x", FormatValue("x"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", true)
	logger.Info("hidden")
	slog.Warn("shown", "model", "arima")

	var line map[string]interface{}
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "arima", line["model"])
}
