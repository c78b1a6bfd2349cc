package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounter_IncAndAdd(t *testing.T) {
	c := &Counter{name: "test_counter"}
	c.Inc()
	c.Add(4)
	assert.Equal(t, int64(5), c.Value())
	assert.Equal(t, "test_counter", c.Name())
}

func TestGauge_Set(t *testing.T) {
	g := &Gauge{name: "test_gauge"}
	g.Set(10)
	assert.Equal(t, int64(10), g.Value())
	g.Set(3)
	assert.Equal(t, int64(3), g.Value())
}

func TestTake_SnapshotsRegisteredCountersAndGauges(t *testing.T) {
	before := Take()
	SkippedDuplicate.Inc()
	PendingQueueDepth.Set(before.Gauges["pending_queue_depth"] + 7)

	after := Take()
	assert.Equal(t, before.Counters["skipped_duplicate"]+1, after.Counters["skipped_duplicate"])
	assert.Equal(t, before.Gauges["pending_queue_depth"]+7, after.Gauges["pending_queue_depth"])
}
