// Package monitoring records build metrics with Prometheus collectors.
//
// Metrics live in their own registry rather than the global default one
// so that every build starts from zero and tests can run in parallel.
// A build writes them out in the node-exporter textfile format.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/conneroisu/htmt/internal/diagnostics"
)

const namespace = "htmt"

// Page results.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Metrics holds the collectors of one build. It implements
// diagnostics.Sink, counting diagnostics by kind.
type Metrics struct {
	registry *prometheus.Registry

	pages         *prometheus.CounterVec
	diagnostics   *prometheus.CounterVec
	elements      prometheus.Gauge
	buildDuration prometheus.Histogram
	pageDuration  prometheus.Histogram
}

// NewMetrics creates the build collectors in a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_total",
				Help:      "Pages processed, by result.",
			},
			[]string{"result"},
		),
		diagnostics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diagnostics_total",
				Help:      "Non-fatal findings reported while expanding elements, by kind.",
			},
			[]string{"kind"},
		),
		elements: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "elements",
			Help:      "Element definitions registered for the build.",
		}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Wall time of a whole build.",
			Buckets:   prometheus.DefBuckets,
		}),
		pageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_duration_seconds",
			Help:      "Time spent expanding a single page.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}

	m.registry.MustRegister(m.pages, m.diagnostics, m.elements, m.buildDuration, m.pageDuration)

	// Expose every kind and result from the start so a clean build still
	// reports zeros.
	for _, k := range diagnostics.Kinds {
		m.diagnostics.WithLabelValues(k.String())
	}
	m.pages.WithLabelValues(ResultOK)
	m.pages.WithLabelValues(ResultFailed)

	return m
}

// Registry returns the registry holding the build collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// PageDone records one processed page.
func (m *Metrics) PageDone(err error, elapsed time.Duration) {
	result := ResultOK
	if err != nil {
		result = ResultFailed
	}
	m.pages.WithLabelValues(result).Inc()
	m.pageDuration.Observe(elapsed.Seconds())
}

// SetElements records the number of registered elements.
func (m *Metrics) SetElements(n int) {
	m.elements.Set(float64(n))
}

// BuildDone records the duration of a finished build.
func (m *Metrics) BuildDone(elapsed time.Duration) {
	m.buildDuration.Observe(elapsed.Seconds())
}

// WriteTextfile writes the current metrics to path in the Prometheus text
// exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) count(kind diagnostics.Kind) {
	m.diagnostics.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) AttributeUnused(string, int, int, string) {
	m.count(diagnostics.KindAttributeUnused)
}

func (m *Metrics) PlaceholderUnused(string, int, int, string, string) {
	m.count(diagnostics.KindPlaceholderUnused)
}

func (m *Metrics) MissingInnerHTML(string, int, int, string) {
	m.count(diagnostics.KindMissingInnerHTML)
}

func (m *Metrics) InnerHTMLPlaceholderMissing(string, int, int, string) {
	m.count(diagnostics.KindInnerHTMLPlaceholderMissing)
}

var _ diagnostics.Sink = (*Metrics)(nil)
