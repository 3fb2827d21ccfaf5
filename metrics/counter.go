package metrics

// Counter accumulates values over time: package counts, byte totals,
// anomaly counts.
type Counter interface {
	Metrics
	// IncrWithDim increments the counter by delta with specified dimensions.
	IncrWithDim(delta Value, dimensions Dimension)
	// Incr increments the counter by delta without dimensions.
	Incr(delta Value)
}

type counter struct {
	name  string
	group string
}

func (c *counter) Name() string {
	return c.name
}

func (c *counter) Group() string {
	return c.group
}

func (c *counter) Policy() Policy {
	return PolicySum
}

func (c *counter) Incr(v Value) {
	c.IncrWithDim(v, nil)
}

// IncrWithDim reports the increment to every registered reporter.
func (c *counter) IncrWithDim(v Value, dimensions Dimension) {
	r := Record{
		metrics:    c,
		value:      v,
		dimensions: dimensions,
	}
	for _, reporter := range _Reporters {
		reporter.Report(r)
	}
}
