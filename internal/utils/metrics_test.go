package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	mc := NewMetricsCollector()
	mc.IncrementRequests()
	mc.IncrementRequests()
	mc.IncrementErrors()

	requests, errors, uptime := mc.Snapshot()
	assert.Equal(t, uint64(2), requests)
	assert.Equal(t, uint64(1), errors)
	assert.GreaterOrEqual(t, uptime, time.Duration(0))
}

func TestOperationSnapshot(t *testing.T) {
	mc := NewMetricsCollector()
	mc.AddOperationLatency("send_message", 10*time.Millisecond)
	mc.AddOperationLatency("send_message", 30*time.Millisecond)
	mc.AddOperationLatency("vote_post", 5*time.Millisecond)

	stats := mc.OperationSnapshot()
	assert.Len(t, stats, 2)
	assert.Equal(t, int64(2), stats["send_message"].Count)
	assert.Equal(t, int64(20), stats["send_message"].AverageMs)
	assert.Equal(t, int64(30), stats["send_message"].MaxMs)
	assert.Equal(t, int64(1), stats["vote_post"].Count)
}
