package metrics

// Policy defines the aggregation policy for metric values.
// It determines how multiple values for the same metric should be combined over time.
type Policy int

const (
	PolicyNone Policy = iota // No specific policy specified
	PolicySet                // Instantaneous value - last value wins
	PolicySum                // Sum of all values
	PolicyAvg                // Average of all values
	PolicyMax                // Maximum value
	PolicyMin                // Minimum value
)

// Value represents a metric value as a float64.
type Value float64

// Dimension represents metric dimensions as key-value pairs.
// Dimensions add contextual information to metrics, such as connection role,
// listener address, or error type.
type Dimension map[string]string

// Metrics is the base interface for all metric types.
type Metrics interface {
	// Name returns the metric name
	Name() string
	// Group returns the metric group for categorization
	Group() string
	// Policy returns the aggregation policy for this metric
	Policy() Policy
}
