package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for table fetches. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	fetchTotal    *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	items         prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		gatherer: reg,
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventfeed",
			Name:      "fetch_total",
			Help:      "Table API fetches by outcome",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "eventfeed",
			Name:      "fetch_duration_seconds",
			Help:      "Time spent on table API fetches",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		items: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "eventfeed",
			Name:      "items",
			Help:      "Rows returned by the last successful fetch",
		}),
	}
	reg.MustRegister(m.fetchTotal, m.fetchDuration, m.items)
	return m
}

// ObserveFetch records one fetch. outcome is "ok" or an error kind.
func (m *Metrics) ObserveFetch(outcome string, took time.Duration, items int) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(outcome).Inc()
	m.fetchDuration.Observe(took.Seconds())
	if outcome == "ok" {
		m.items.Set(float64(items))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
