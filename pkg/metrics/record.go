// Package metrics holds the typed telemetry records and the per-sample derived metrics.
package metrics

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Dataset column names consumed by the engine.
const (
	ColTimestamp   = "Timestamp"
	ColCPUUsage    = "CPU usage [MHZ]"
	ColCPUCapacity = "CPU capacity provisioned [MHZ]"
	ColMemory      = "Memory usage [KB]"
	ColDiskRead    = "Disk read throughput [KB/s]"
	ColDiskWrite   = "Disk write throughput [KB/s]"
	ColNetRx       = "Network received throughput [KB/s]"
	ColNetTx       = "Network transmitted throughput [KB/s]"
)

// RawRecord is one data row bound positionally to the dataset header.
// Header slices are shared between all records of a dataset.
type RawRecord struct {
	header []string
	values []string
}

// NewRawRecord binds values to header. Headers past the end of values are missing.
func NewRawRecord(header, values []string) RawRecord {
	if len(values) > len(header) {
		values = values[:len(header)]
	}
	return RawRecord{header: header, values: values}
}

// RecordFromMap builds a record with the given column order from a keyed row.
// Interior columns absent from row become empty strings; trailing ones are missing.
func RecordFromMap(header []string, row map[string]string) RawRecord {
	values := make([]string, len(header))
	n := 0
	for i, h := range header {
		if v, ok := row[h]; ok {
			values[i] = v
			n = i + 1
		}
	}
	return RawRecord{header: header, values: values[:n]}
}

// Get returns the raw value of a column and whether it is present.
func (r RawRecord) Get(column string) (string, bool) {
	for i, h := range r.header {
		if h != column {
			continue
		}
		if i < len(r.values) {
			return r.values[i], true
		}
		return "", false
	}
	return "", false
}

// Columns returns the header in dataset order.
func (r RawRecord) Columns() []string {
	return r.header
}

// Len returns the number of present values.
func (r RawRecord) Len() int {
	return len(r.values)
}

// Valid reports whether the record carries a non-empty timestamp.
func (r RawRecord) Valid() bool {
	ts, ok := r.Get(ColTimestamp)
	return ok && strings.TrimSpace(ts) != ""
}

// MarshalJSON writes the present columns as an object in header order.
func (r RawRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range r.values {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(r.header[i])
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
