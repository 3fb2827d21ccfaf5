package metrics

// Gauge tracks a point-in-time value that can go up or down, such as the
// number of open connections.
type Gauge interface {
	Metrics
	// Update sets the gauge's absolute value.
	Update(value Value)
	// UpdateWithDim sets the gauge's absolute value with specified dimensions.
	UpdateWithDim(value Value, dimensions Dimension)
}

type gauge struct {
	name  string
	group string
}

func (g *gauge) Name() string {
	return g.name
}

func (g *gauge) Group() string {
	return g.group
}

func (g *gauge) Policy() Policy {
	return PolicySet
}

func (g *gauge) Update(v Value) {
	g.UpdateWithDim(v, nil)
}

// UpdateWithDim reports the new value to every registered reporter.
func (g *gauge) UpdateWithDim(v Value, dimensions Dimension) {
	r := Record{
		metrics:    g,
		value:      v,
		dimensions: dimensions,
	}
	for _, reporter := range _Reporters {
		reporter.Report(r)
	}
}
