// Package metrics exposes Prometheus instrumentation of routing decisions,
// patches and policy mixes. A nil *Metrics records nothing.
package metrics

import (
	"audio-policy/internal/common/errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "audiopolicy"

// Routing decision paths
const (
	PathMix      = "mix"
	PathMSD      = "msd"
	PathStrategy = "strategy"
)

// Metrics holds the policy engine collectors
type Metrics struct {
	decisions     *prometheus.CounterVec
	rejected      *prometheus.CounterVec
	activePatches prometheus.Gauge
	mixes         prometheus.Gauge
	generation    prometheus.Gauge
	openStreams   *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "decisions_total",
			Help:      "Routing decisions by direction and selection path",
		}, []string{"direction", "path"}),

		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_requests_total",
			Help:      "Rejected requests by operation and error type",
		}, []string{"operation", "type"}),

		activePatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "patch",
			Name:      "active",
			Help:      "Number of active patches",
		}),

		mixes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "policy_mix",
			Name:      "registered",
			Help:      "Number of registered policy mixes",
		}),

		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "topology",
			Name:      "generation",
			Help:      "Current topology generation",
		}),

		openStreams: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "open",
			Help:      "Client streams currently allocated by direction",
		}, []string{"direction"}),
	}

	reg.MustRegister(
		m.decisions,
		m.rejected,
		m.activePatches,
		m.mixes,
		m.generation,
		m.openStreams,
	)
	return m
}

// RoutingDecision counts a successful device selection
func (m *Metrics) RoutingDecision(direction, path string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(direction, path).Inc()
}

// Rejected counts a failed operation by the type of err
func (m *Metrics) Rejected(operation string, err error) {
	if m == nil || err == nil {
		return
	}
	m.rejected.WithLabelValues(operation, string(errors.GetType(err))).Inc()
}

// SetActivePatches records the size of the patch table
func (m *Metrics) SetActivePatches(n int) {
	if m == nil {
		return
	}
	m.activePatches.Set(float64(n))
}

// SetRegisteredMixes records the number of registered policy mixes
func (m *Metrics) SetRegisteredMixes(n int) {
	if m == nil {
		return
	}
	m.mixes.Set(float64(n))
}

// SetTopologyGeneration records the topology generation counter
func (m *Metrics) SetTopologyGeneration(gen uint32) {
	if m == nil {
		return
	}
	m.generation.Set(float64(gen))
}

// SetOpenStreams records the number of allocated streams of a direction
func (m *Metrics) SetOpenStreams(direction string, n int) {
	if m == nil {
		return
	}
	m.openStreams.WithLabelValues(direction).Set(float64(n))
}
