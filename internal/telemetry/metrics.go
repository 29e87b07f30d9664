package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Download outcomes
const (
	OutcomeSuccess      = "success"
	OutcomeInvalid      = "invalid"
	OutcomeToolFailed   = "tool_failed"
	OutcomeTransmission = "transmission_failed"
)

// Metrics groups the download counters exported on /metrics.
type Metrics struct {
	registry    *prometheus.Registry
	downloads   *prometheus.CounterVec
	duration    prometheus.Histogram
	bytesServed prometheus.Counter
}

// NewMetrics registers the download metrics plus the Go and process
// collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "downloads_total",
			Help: "Download requests by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "download_duration_seconds",
			Help:    "Time spent fetching media with the external tool.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		bytesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "download_bytes_served_total",
			Help: "Bytes of media streamed to clients.",
		}),
	}

	reg.MustRegister(
		m.downloads,
		m.duration,
		m.bytesServed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveOutcome counts a finished request.
func (m *Metrics) ObserveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.downloads.WithLabelValues(outcome).Inc()
}

// ObserveFetch records how long the tool ran.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}

// AddBytes counts streamed bytes.
func (m *Metrics) AddBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesServed.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
