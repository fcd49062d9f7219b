// Package metrics holds the Prometheus collectors for trace analysis and
// report generation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ppiankov/harspectre/internal/models"
)

const namespace = "harspectre"

type Metrics struct {
	registry           *prometheus.Registry
	GenerationOutcomes *prometheus.CounterVec
	GenerationDuration prometheus.Histogram
	EntriesParsed      prometheus.Counter
	FindingsTotal      *prometheus.CounterVec
	HTTPRequestsTotal  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		GenerationOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_outcomes_total",
			Help:      "Completed report generations by degradation outcome",
		}, []string{"outcome"}),
		GenerationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Time spent waiting on the generation capability",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 120},
		}),
		EntriesParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_parsed_total",
			Help:      "Total HAR entries normalized",
		}),
		FindingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Local findings reported by type",
		}, []string{"type"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served by endpoint and status code",
		}, []string{"endpoint", "code"}),
	}
	r.MustRegister(m.GenerationOutcomes, m.GenerationDuration, m.EntriesParsed, m.FindingsTotal, m.HTTPRequestsTotal)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveGeneration records one completed generation. It matches the
// observer signature the generator accepts.
func (m *Metrics) ObserveGeneration(outcome models.GenerationOutcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.GenerationOutcomes.WithLabelValues(string(outcome)).Inc()
	m.GenerationDuration.Observe(elapsed.Seconds())
}

// ObserveAnalysis records the size and findings of one analyzed trace.
func (m *Metrics) ObserveAnalysis(entries int, findings []models.Finding) {
	if m == nil {
		return
	}
	m.EntriesParsed.Add(float64(entries))
	for _, finding := range findings {
		m.FindingsTotal.WithLabelValues(finding.Type).Inc()
	}
}
