package utils

import (
	"sync"
	"time"
)

// Tracks performance metrics across the system
type MetricsCollector struct {
	mu           sync.RWMutex
	requestCount uint64
	errorCount   uint64

	// Maps operation name to list of latencies in nanoseconds
	operationTimes map[string][]int64

	systemStartTime time.Time
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		operationTimes:  make(map[string][]int64),
		systemStartTime: time.Now(),
	}
}

func (mc *MetricsCollector) IncrementRequests() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.requestCount++
}

func (mc *MetricsCollector) IncrementErrors() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.errorCount++
}

func (mc *MetricsCollector) AddOperationLatency(operationName string, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, exists := mc.operationTimes[operationName]; !exists {
		mc.operationTimes[operationName] = make([]int64, 0)
	}
	mc.operationTimes[operationName] = append(
		mc.operationTimes[operationName],
		duration.Nanoseconds(),
	)
}

// Snapshot returns the request/error counters and the system uptime.
func (mc *MetricsCollector) Snapshot() (requests, errors uint64, uptime time.Duration) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.requestCount, mc.errorCount, time.Since(mc.systemStartTime)
}

// OperationStats summarises the recorded latencies for one operation.
type OperationStats struct {
	Count     int64 `json:"count"`
	AverageMs int64 `json:"averageMs"`
	MaxMs     int64 `json:"maxMs"`
}

// OperationSnapshot returns per-operation latency stats keyed by operation name.
func (mc *MetricsCollector) OperationSnapshot() map[string]OperationStats {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	stats := make(map[string]OperationStats, len(mc.operationTimes))
	for name, samples := range mc.operationTimes {
		if len(samples) == 0 {
			continue
		}
		var total, max int64
		for _, ns := range samples {
			total += ns
			if ns > max {
				max = ns
			}
		}
		stats[name] = OperationStats{
			Count:     int64(len(samples)),
			AverageMs: total / int64(len(samples)) / int64(time.Millisecond),
			MaxMs:     max / int64(time.Millisecond),
		}
	}
	return stats
}
