package metrics

import (
	"sync"
)

var (
	_counters     = map[string]Counter{}
	_lockCounters = sync.RWMutex{}

	_gauges     = map[string]Gauge{}
	_lockGauges = sync.RWMutex{}
)

// IncrCounterWithGroup increases a counter metric with the specified group
// and value.
func IncrCounterWithGroup(group string, key string, value Value) {
	if c := getCounter(key, group); c != nil {
		c.Incr(value)
	}
}

// IncrCounterWithDimGroup increases a counter metric with the specified
// group, value, and dimensions.
func IncrCounterWithDimGroup(group string, key string, value Value, dimensions Dimension) {
	if c := getCounter(key, group); c != nil {
		c.IncrWithDim(value, dimensions)
	}
}

// UpdateGaugeWithGroup updates a gauge metric with the specified group and
// value.
func UpdateGaugeWithGroup(group string, key string, value Value) {
	if g := getGauge(key, group); g != nil {
		g.Update(value)
	}
}

// UpdateGaugeWithDimGroup updates a gauge metric with the specified group,
// value, and dimensions.
func UpdateGaugeWithDimGroup(group string, key string, value Value, dimensions Dimension) {
	if g := getGauge(key, group); g != nil {
		g.UpdateWithDim(value, dimensions)
	}
}

func metricKey(key, group string) string {
	return group + "." + key
}

func getCounter(key, group string) Counter {
	mk := metricKey(key, group)

	_lockCounters.RLock()
	c, ok := _counters[mk]
	_lockCounters.RUnlock()
	if ok {
		return c
	}

	_lockCounters.Lock()
	defer _lockCounters.Unlock()
	if c, ok = _counters[mk]; ok {
		return c
	}
	c = &counter{name: key, group: group}
	_counters[mk] = c
	return c
}

func getGauge(key, group string) Gauge {
	mk := metricKey(key, group)

	_lockGauges.RLock()
	g, ok := _gauges[mk]
	_lockGauges.RUnlock()
	if ok {
		return g
	}

	_lockGauges.Lock()
	defer _lockGauges.Unlock()
	if g, ok = _gauges[mk]; ok {
		return g
	}
	g = &gauge{name: key, group: group}
	_gauges[mk] = g
	return g
}
