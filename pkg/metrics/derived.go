package metrics

import (
	"math"
	"strconv"
	"strings"
)

const kbPerGB = 1024 * 1024

// CPUUsagePercent returns usage/capacity*100. It is absent unless both
// readings parsed and the capacity is strictly positive.
func CPUUsagePercent(s Sample) (float64, bool) {
	if !s.CPUUsageMHz.OK || !s.CPUCapacityMHz.OK || s.CPUCapacityMHz.Value <= 0 {
		return 0, false
	}
	return s.CPUUsageMHz.Value / s.CPUCapacityMHz.Value * 100, true
}

// MemoryGB converts the memory reading from KB to GB.
func MemoryGB(s Sample) (float64, bool) {
	if !s.MemoryKB.OK {
		return 0, false
	}
	return s.MemoryKB.Value / kbPerGB, true
}

// Usable is the exclusion rule for statistics: a value carries signal only
// when it is finite and strictly positive.
func Usable(v float64, ok bool) bool {
	return ok && !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// Hour returns the hour of day from a "YYYY-MM-DD HH:MM:SS" timestamp.
// Only a two-digit hour in 00..23 is accepted.
func Hour(timestamp string) (int, bool) {
	_, clock, found := strings.Cut(timestamp, " ")
	if !found {
		return 0, false
	}
	hh, _, found := strings.Cut(clock, ":")
	if !found || len(hh) != 2 || !isDigit(hh[0]) || !isDigit(hh[1]) {
		return 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// ClockLabel returns the time part of a timestamp, or "" when there is none.
func ClockLabel(timestamp string) string {
	_, clock, found := strings.Cut(timestamp, " ")
	if !found {
		return ""
	}
	return clock
}

// Columns added by DerivedRow.
const (
	ColCPUPercent = "CPU usage [%]"
	ColMemoryGB   = "Memory usage [GB]"
)

// DerivedColumns is the column layout of DerivedRow: the dataset columns
// followed by the derived metrics.
var DerivedColumns = []string{
	ColTimestamp, ColCPUUsage, ColCPUCapacity, ColMemory,
	ColDiskRead, ColDiskWrite, ColNetRx, ColNetTx,
	ColCPUPercent, ColMemoryGB,
}

// DerivedRow flattens a sample and its derived metrics for export. Absent
// values are nil *float64.
func DerivedRow(s Sample) []interface{} {
	return []interface{}{
		s.Timestamp,
		s.CPUUsageMHz.Ptr(),
		s.CPUCapacityMHz.Ptr(),
		s.MemoryKB.Ptr(),
		s.DiskReadKBps.Ptr(),
		s.DiskWriteKBps.Ptr(),
		s.NetRxKBps.Ptr(),
		s.NetTxKBps.Ptr(),
		derivedPtr(CPUUsagePercent(s)),
		derivedPtr(MemoryGB(s)),
	}
}

func derivedPtr(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}
