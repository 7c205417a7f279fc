// Package telemetry exposes simulation counters in Prometheus format.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the anatomy counters on a private registry so tests and
// multiple simulations in one process do not collide.
type Metrics struct {
	Registry *prometheus.Registry

	BodiesBuilt     prometheus.Counter
	BodiesDestroyed prometheus.Counter
	Removals        prometheus.Counter
	PartsRemoved    *prometheus.CounterVec // by kind
	PartsPruned     prometheus.Counter
	Severity        prometheus.Histogram
	LiveCreatures   prometheus.Gauge
	SnapshotsSaved  prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		BodiesBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "anatomy",
			Name:      "bodies_built_total",
			Help:      "Bodies built from a definition or restored from a snapshot.",
		}),
		BodiesDestroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "anatomy",
			Name:      "bodies_destroyed_total",
			Help:      "Bodies whose last part was removed.",
		}),
		Removals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "anatomy",
			Name:      "removals_total",
			Help:      "Remove operations that erased at least one part.",
		}),
		PartsRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anatomy",
			Name:      "parts_removed_total",
			Help:      "Parts erased, including cascades and pruning.",
		}, []string{"kind"}),
		PartsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "anatomy",
			Name:      "parts_pruned_total",
			Help:      "Body parts erased because they became empty.",
		}),
		Severity: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "anatomy",
			Name:      "removal_severity",
			Help:      "Severity score of each removal.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}),
		LiveCreatures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "anatomy",
			Name:      "live_creatures",
			Help:      "Creatures whose body still has parts.",
		}),
		SnapshotsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "anatomy",
			Name:      "snapshots_saved_total",
			Help:      "Body snapshots written to the database.",
		}),
	}
	m.Registry.MustRegister(
		m.BodiesBuilt, m.BodiesDestroyed, m.Removals, m.PartsRemoved,
		m.PartsPruned, m.Severity, m.LiveCreatures, m.SnapshotsSaved,
	)
	return m
}

// Handler serves the registry at /metrics.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	return mux
}
