package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memReporter records everything reported through the facade.
type memReporter struct {
	mu      sync.Mutex
	records []Record
}

func (m *memReporter) Report(r Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *r.Clone())
}

func (m *memReporter) all() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

func TestCounterReporting(t *testing.T) {
	rep := &memReporter{}
	SetMetricsReporters([]Reporter{rep})
	defer SetMetricsReporters(nil)

	IncrCounterWithGroup("net", "pkg_total", 1)
	IncrCounterWithGroup("net", "pkg_total", 2)

	records := rep.all()
	require.Len(t, records, 2)
	assert.Equal(t, "pkg_total", records[0].Metrics().Name())
	assert.Equal(t, "net", records[0].Metrics().Group())
	assert.Equal(t, PolicySum, records[0].Metrics().Policy())
	assert.Equal(t, Value(2), records[1].Value())
}

func TestCounterWithDimensions(t *testing.T) {
	rep := &memReporter{}
	SetMetricsReporters([]Reporter{rep})
	defer SetMetricsReporters(nil)

	IncrCounterWithDimGroup("net", "anomaly_total", 1, Dimension{"role": "backend"})

	records := rep.all()
	require.Len(t, records, 1)
	assert.Equal(t, "backend", records[0].Dimensions()["role"])
}

func TestGaugeReporting(t *testing.T) {
	rep := &memReporter{}
	SetMetricsReporters([]Reporter{rep})
	defer SetMetricsReporters(nil)

	UpdateGaugeWithGroup("net", "open_conns", 7)

	records := rep.all()
	require.Len(t, records, 1)
	assert.Equal(t, PolicySet, records[0].Metrics().Policy())
	assert.Equal(t, Value(7), records[0].Value())
}

func TestMetricInstancesReused(t *testing.T) {
	c1 := getCounter("pkg_total", "net")
	c2 := getCounter("pkg_total", "net")
	assert.Same(t, c1, c2)

	g1 := getGauge("open_conns", "net")
	g2 := getGauge("open_conns", "net")
	assert.Same(t, g1, g2)
}

func TestNoReportersIsSafe(t *testing.T) {
	SetMetricsReporters(nil)
	assert.NotPanics(t, func() {
		IncrCounterWithGroup("net", "pkg_total", 1)
		UpdateGaugeWithGroup("net", "open_conns", 1)
	})
}
