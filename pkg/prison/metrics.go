package prison

// metrics.go is a thin abstraction over Prometheus so that an Arena can be
// used with or without metrics. When the caller passes a *prometheus.Registry
// via WithMetrics, we create gauges/counters and register them; otherwise a
// no-op sink is used and the hot path does not pay for metric updates. This
// follows the same sink-interface shape as a per-shard cache metrics module,
// generalised from per-shard counters to per-arena slot/refcount gauges.
//
// ┌────────────────────────────┬───────┐
// │ Metric                     │ Type  │
// ├─────────────────────────────┼───────┤
// │ prison_occupied             │ Gauge │
// │ prison_active_refs          │ Gauge │
// │ prison_generation           │ Gauge │
// │ prison_major_malfunction_total │ Ctr│
// └────────────────────────────┴───────┘
//
// © 2025 prison authors. MIT License.

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metricsSink abstracts the concrete backend (Prometheus vs noop). Not
// exposed outside the package.
type metricsSink interface {
	setOccupied(n int)
	setActiveRefs(n int64)
	setGeneration(g uint32)
	incMalfunction()
}

type noopMetrics struct{}

func (noopMetrics) setOccupied(int)      {}
func (noopMetrics) setActiveRefs(int64)  {}
func (noopMetrics) setGeneration(uint32) {}
func (noopMetrics) incMalfunction()      {}

type promMetrics struct {
	occupied     prometheus.Gauge
	activeRefs   prometheus.Gauge
	generation   prometheus.Gauge
	malfunctions prometheus.Counter
}

func newPromMetrics(reg *prometheus.Registry) *promMetrics {
	pm := &promMetrics{
		occupied: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "prison",
			Name:      "occupied",
			Help:      "Number of occupied slots in the arena.",
		}),
		activeRefs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "prison",
			Name:      "active_refs",
			Help:      "Total outstanding references across all slots.",
		}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "prison",
			Name:      "generation",
			Help:      "Current monotonic generation counter.",
		}),
		malfunctions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prison",
			Name:      "major_malfunction_total",
			Help:      "Number of invariant violations observed.",
		}),
	}
	reg.MustRegister(pm.occupied, pm.activeRefs, pm.generation, pm.malfunctions)
	return pm
}

func (m *promMetrics) setOccupied(n int)      { m.occupied.Set(float64(n)) }
func (m *promMetrics) setActiveRefs(n int64)  { m.activeRefs.Set(float64(n)) }
func (m *promMetrics) setGeneration(g uint32) { m.generation.Set(float64(g)) }
func (m *promMetrics) incMalfunction()        { m.malfunctions.Inc() }

func newMetricsSink(reg *prometheus.Registry) metricsSink {
	if reg == nil {
		return noopMetrics{}
	}
	return newPromMetrics(reg)
}
