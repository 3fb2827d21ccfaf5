package metrics

import (
	"context"
	"net"
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const _metricsChanSize = 65536

// PrometheusReporterConfig configures the Prometheus reporter.
type PrometheusReporterConfig struct {
	// HTTPListenAddr is the exposition endpoint address. An empty host or a
	// zero port is allowed; the kernel picks a free port.
	HTTPListenAddr string `mapstructure:"httpListenAddr"`
	// MetricPath is the HTTP path serving the exposition format.
	MetricPath string `mapstructure:"metricPath"`
	// ExtLabels are constant labels attached to every exported metric.
	ExtLabels map[string]string `mapstructure:"extLabels"`
}

// PrometheusReporter converts records from the metrics facade to Prometheus
// collectors and serves them over HTTP. Records are handed off on a channel
// so the reporting call sites never block on registry work.
type PrometheusReporter struct {
	cfg         *PrometheusReporterConfig
	registry    *prometheus.Registry
	promSvr     *http.Server
	listenAddr  net.Addr
	metricsChan chan Record
	counters    map[string]prometheus.Counter
	gauges      map[string]prometheus.Gauge
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewPrometheusReporter creates and starts a Prometheus reporter. The
// exposition endpoint address is available through ListenAddr once the
// constructor returns.
func NewPrometheusReporter(cfg *PrometheusReporterConfig) (*PrometheusReporter, error) {
	if cfg == nil {
		cfg = &PrometheusReporterConfig{}
	}
	if cfg.MetricPath == "" {
		cfg.MetricPath = "/metrics"
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &PrometheusReporter{
		cfg:         cfg,
		registry:    prometheus.NewRegistry(),
		metricsChan: make(chan Record, _metricsChanSize),
		counters:    map[string]prometheus.Counter{},
		gauges:      map[string]prometheus.Gauge{},
		ctx:         ctx,
		cancel:      cancel,
	}

	if err := p.startHTTPSvr(); err != nil {
		cancel()
		return nil, err
	}
	go p.aggregate()

	return p, nil
}

// Report queues one record. Drops the record when the channel is full rather
// than stalling a connection goroutine.
func (x *PrometheusReporter) Report(r Record) {
	select {
	case x.metricsChan <- r:
	default:
	}
}

// ListenAddr returns the address the exposition endpoint is bound to.
func (x *PrometheusReporter) ListenAddr() net.Addr {
	return x.listenAddr
}

// Stop shuts down the aggregation goroutine and the HTTP server.
func (x *PrometheusReporter) Stop() {
	if x.cancel != nil {
		x.cancel()
		x.cancel = nil
	}
	if x.promSvr != nil {
		_ = x.promSvr.Close()
		x.promSvr = nil
	}
}

func (x *PrometheusReporter) aggregate() {
	for {
		select {
		case <-x.ctx.Done():
			return
		case r := <-x.metricsChan:
			x.merge(&r)
		}
	}
}

// merge applies one record to the matching collector, creating it on first
// sight.
func (x *PrometheusReporter) merge(rc *Record) {
	key := x.collectorKey(rc)

	switch rc.Metrics().Policy() {
	case PolicySum:
		c, ok := x.counters[key]
		if !ok {
			c = prometheus.NewCounter(prometheus.CounterOpts{
				Subsystem:   sanitizeName(rc.Metrics().Group()),
				Name:        sanitizeName(rc.Metrics().Name()),
				ConstLabels: x.constLabels(rc),
			})
			if err := x.registry.Register(c); err != nil {
				return
			}
			x.counters[key] = c
		}
		c.Add(float64(rc.Value()))
	default:
		g, ok := x.gauges[key]
		if !ok {
			g = prometheus.NewGauge(prometheus.GaugeOpts{
				Subsystem:   sanitizeName(rc.Metrics().Group()),
				Name:        sanitizeName(rc.Metrics().Name()),
				ConstLabels: x.constLabels(rc),
			})
			if err := x.registry.Register(g); err != nil {
				return
			}
			x.gauges[key] = g
		}
		g.Set(float64(rc.Value()))
	}
}

func (x *PrometheusReporter) constLabels(rc *Record) map[string]string {
	labels := make(map[string]string, len(rc.Dimensions())+len(x.cfg.ExtLabels))
	for k, v := range x.cfg.ExtLabels {
		labels[k] = v
	}
	for k, v := range rc.Dimensions() {
		labels[k] = v
	}
	return labels
}

// collectorKey identifies one collector: metric identity plus sorted label
// pairs.
func (x *PrometheusReporter) collectorKey(rc *Record) string {
	var sb strings.Builder
	sb.WriteString(rc.Metrics().Group())
	sb.WriteByte('.')
	sb.WriteString(rc.Metrics().Name())

	dims := rc.Dimensions()
	if len(dims) > 0 {
		keys := make([]string, 0, len(dims))
		for k := range dims {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteByte('|')
			sb.WriteString(k)
			sb.WriteByte('=')
			sb.WriteString(dims[k])
		}
	}
	return sb.String()
}

func (x *PrometheusReporter) startHTTPSvr() error {
	addr := x.cfg.HTTPListenAddr
	if addr == "" {
		addr = "127.0.0.1:0"
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	x.listenAddr = l.Addr()

	mux := http.NewServeMux()
	mux.Handle(x.cfg.MetricPath, promhttp.HandlerFor(x.registry, promhttp.HandlerOpts{}))

	x.promSvr = &http.Server{Handler: mux}
	go func() {
		_ = x.promSvr.Serve(l)
	}()
	return nil
}

func sanitizeName(s string) string {
	return strings.ReplaceAll(s, ".", "_")
}
