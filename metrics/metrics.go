// Package metrics exposes Prometheus instrumentation for derivative
// generation and request-time resolution.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Derivative kinds used as label values.
const (
	KindWebp    = "webp"
	KindGallery = "gallery"
)

// Resolve results used as label values.
const (
	ResolveHit         = "hit"
	ResolveGenerated   = "generated"
	ResolvePassthrough = "passthrough"
	ResolveDegraded    = "degraded"
)

// Metrics groups the collectors of one pipeline instance. Each instance owns
// its registry, so tests and multiple pipelines never collide.
type Metrics struct {
	Registry *prometheus.Registry

	Generated         *prometheus.CounterVec
	Skipped           *prometheus.CounterVec
	Missing           prometheus.Counter
	TransformDuration *prometheus.HistogramVec
	Resolves          *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Generated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "siteimg_derivatives_generated_total",
				Help: "Derivative files written",
			},
			[]string{"kind"},
		),
		Skipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "siteimg_derivatives_skipped_total",
				Help: "Derivatives already present on disk",
			},
			[]string{"kind"},
		),
		Missing: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "siteimg_missing_sources_total",
				Help: "Referenced source images not found under the public directory",
			},
		),
		TransformDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "siteimg_transform_duration_seconds",
				Help:    "Time spent decoding, resizing and encoding one derivative",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"kind"},
		),
		Resolves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "siteimg_resolve_total",
				Help: "Request-time resolutions by result",
			},
			[]string{"result"},
		),
	}
	m.Registry.MustRegister(m.Generated, m.Skipped, m.Missing, m.TransformDuration, m.Resolves)
	return m
}

// ObserveTransform records the duration of one transform.
func (m *Metrics) ObserveTransform(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.TransformDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// IncGenerated counts a written derivative.
func (m *Metrics) IncGenerated(kind string) {
	if m == nil {
		return
	}
	m.Generated.WithLabelValues(kind).Inc()
}

// IncSkipped counts a cache hit.
func (m *Metrics) IncSkipped(kind string) {
	if m == nil {
		return
	}
	m.Skipped.WithLabelValues(kind).Inc()
}

// IncMissing counts a missing source.
func (m *Metrics) IncMissing() {
	if m == nil {
		return
	}
	m.Missing.Inc()
}

// IncResolve counts a request-time resolution.
func (m *Metrics) IncResolve(result string) {
	if m == nil {
		return
	}
	m.Resolves.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
