package metrics

import (
	"math"
	"strings"

	"UsageForecaster/pkg/utils"
)

// Reading is a parsed numeric field. OK is false when the raw value was
// missing or not a finite number; Value is then meaningless.
type Reading struct {
	Value float64
	OK    bool
}

// ParseReading parses a raw column value.
func ParseReading(raw string, present bool) Reading {
	if !present {
		return Reading{}
	}
	f, ok := utils.ToFloat64Ok(strings.TrimSpace(raw))
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return Reading{}
	}
	return Reading{Value: f, OK: true}
}

// Ptr returns the value as a pointer, nil when absent. Used for JSON nulls.
func (r Reading) Ptr() *float64 {
	if !r.OK {
		return nil
	}
	v := r.Value
	return &v
}

// Sample is the typed projection of a RawRecord.
type Sample struct {
	Timestamp      string
	CPUUsageMHz    Reading
	CPUCapacityMHz Reading
	MemoryKB       Reading
	DiskReadKBps   Reading
	DiskWriteKBps  Reading
	NetRxKBps      Reading
	NetTxKBps      Reading
}

// ParseSample projects a raw record onto a Sample. It never fails: every
// numeric column is parsed independently.
func ParseSample(r RawRecord) Sample {
	ts, _ := r.Get(ColTimestamp)
	return Sample{
		Timestamp:      strings.TrimSpace(ts),
		CPUUsageMHz:    reading(r, ColCPUUsage),
		CPUCapacityMHz: reading(r, ColCPUCapacity),
		MemoryKB:       reading(r, ColMemory),
		DiskReadKBps:   reading(r, ColDiskRead),
		DiskWriteKBps:  reading(r, ColDiskWrite),
		NetRxKBps:      reading(r, ColNetRx),
		NetTxKBps:      reading(r, ColNetTx),
	}
}

// ParseSamples projects every record.
func ParseSamples(records []RawRecord) []Sample {
	samples := make([]Sample, len(records))
	for i, r := range records {
		samples[i] = ParseSample(r)
	}
	return samples
}

func reading(r RawRecord, column string) Reading {
	raw, ok := r.Get(column)
	return ParseReading(raw, ok)
}
