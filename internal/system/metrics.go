package system

import (
	"time"

	"github.com/rmdgo/anatomy/internal/core/event"
	coresys "github.com/rmdgo/anatomy/internal/core/system"
	"github.com/rmdgo/anatomy/internal/telemetry"
)

// MetricsSystem feeds body events into the Prometheus counters and keeps the
// live creature gauge current. Phase 2 (PostUpdate).
type MetricsSystem struct {
	deps    *Deps
	metrics *telemetry.Metrics
}

func NewMetricsSystem(deps *Deps, m *telemetry.Metrics) *MetricsSystem {
	event.Subscribe(deps.Bus, func(e event.BodyBuilt) {
		m.BodiesBuilt.Inc()
	})
	event.Subscribe(deps.Bus, func(e event.PartsRemoved) {
		m.Removals.Inc()
		for kind, n := range e.Kinds {
			m.PartsRemoved.WithLabelValues(kind.String()).Add(float64(n))
		}
		m.PartsPruned.Add(float64(len(e.Removal.Pruned)))
		m.Severity.Observe(e.Severity)
	})
	event.Subscribe(deps.Bus, func(e event.BodyDestroyed) {
		m.BodiesDestroyed.Inc()
	})
	return &MetricsSystem{deps: deps, metrics: m}
}

func (s *MetricsSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *MetricsSystem) Update(_ time.Duration) {
	s.metrics.LiveCreatures.Set(float64(s.deps.Creatures.Len()))
}
