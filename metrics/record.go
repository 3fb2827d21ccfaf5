package metrics

// Record is one reported measurement: the metric it belongs to, the value,
// and optional dimensions.
type Record struct {
	metrics    Metrics
	value      Value
	dimensions Dimension
}

// Clone creates a deep copy of the Record including its dimensions.
func (r *Record) Clone() *Record {
	cp := &Record{
		metrics: r.metrics,
		value:   r.value,
	}
	cp.dimensions = make(Dimension, len(r.dimensions))
	for k, v := range r.dimensions {
		cp.dimensions[k] = v
	}
	return cp
}

// Metrics returns the metric definition associated with this record.
func (r *Record) Metrics() Metrics {
	return r.metrics
}

// Value returns the measured value.
func (r *Record) Value() Value {
	return r.value
}

// Dimensions returns the record's labels.
func (r *Record) Dimensions() Dimension {
	return r.dimensions
}
