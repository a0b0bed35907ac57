// Package observability holds the Prometheus metrics of the map service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters, histograms and gauges of the dataset pipeline.
type Metrics struct {
	DatasetLoads        *prometheus.CounterVec // labels: outcome={success,network_error,validation_error}
	DatasetLoadDuration prometheus.Histogram
	FeaturesRendered    prometheus.Gauge
	FeaturesNoValue     prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		DatasetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "choropleth",
			Name:      "dataset_loads_total",
			Help:      "Dataset loads by outcome.",
		}, []string{"outcome"}),
		DatasetLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "choropleth",
			Name:      "dataset_load_duration_seconds",
			Help:      "Duration of the dataset fetch and render pipeline.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		FeaturesRendered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "choropleth",
			Name:      "features_rendered",
			Help:      "Number of features on the map after the last successful load.",
		}),
		FeaturesNoValue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "choropleth",
			Name:      "features_missing_value_total",
			Help:      "Features whose value is not a number, painted with the no-data color.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.DatasetLoads,
		m.DatasetLoadDuration,
		m.FeaturesRendered,
		m.FeaturesNoValue,
	}
}

// NewMetrics creates and registers all metrics with reg. A nil reg selects
// the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
