package metrics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_TracksRecordCounts(t *testing.T) {
	// Given a collector observing a small run
	c := NewCollector()
	c.ObserveIn()
	c.ObserveIn()
	c.ObserveOut()
	c.ObserveSuppressed()
	c.ObserveExpanded(3)

	// When finishing
	m := c.Finish(5 * time.Second)

	// Then the snapshot reflects what was observed
	assert.Equal(t, 2, m.RecordsIn)
	assert.Equal(t, 1, m.RecordsOut)
	assert.Equal(t, 1, m.Suppressed)
	assert.Equal(t, 3, m.Expanded)
	assert.Equal(t, 5*time.Second, m.TotalDuration)
}

func TestCollector_StageCounterIsLiveHandle(t *testing.T) {
	// Given a stage counter handle registered on a collector
	c := NewCollector()
	counter := c.StageCounter("uppercase")
	counter.Ran = 4
	counter.Suppressed = 1

	// Then Finish reflects mutations made through the handle afterward
	m := c.Finish(0)
	require.Len(t, m.Stages, 1)
	assert.Equal(t, "uppercase", m.Stages[0].Label)
	assert.Equal(t, 4, m.Stages[0].Ran)
	assert.Equal(t, 1, m.Stages[0].Suppressed)
}

func TestRunMetrics_MarshalJSONIncludesComputedDuration(t *testing.T) {
	// Given a RunMetrics snapshot
	m := NewRunMetrics(10, 8, 2, 0, nil, 1500*time.Millisecond)

	// When marshaled to JSON
	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	// Then the computed seconds field and raw counters are both present
	assert.Equal(t, 1.5, decoded["total_duration_seconds"])
	assert.Equal(t, float64(10), decoded["records_in"])
	assert.Equal(t, float64(8), decoded["records_out"])
}
