package metrics

var _Reporters []Reporter

// Reporter is implemented by metric reporting backends such as the
// Prometheus reporter in this package.
type Reporter interface {
	Report(r Record)
}

// SetMetricsReporters sets the global list of metric reporters. All metrics
// are reported to these reporters when updated.
func SetMetricsReporters(reports []Reporter) {
	_Reporters = reports
}
