// Package metrics registers the Prometheus collectors Consumer 4's
// consolidation pass and the rest of the pipeline report against.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every collector the pipeline emits. One instance is
// built at startup and shared across consumers.
type Metrics struct {
	ConsolidationLagSeconds prometheus.Gauge
	EnrichmentLagSeconds    prometheus.Gauge
	ReconsolidationLastRun  prometheus.Gauge
	GraphNodesTotal         *prometheus.GaugeVec
	GraphNodesPrunedTotal   *prometheus.CounterVec
	ReflectionTriggersTotal prometheus.Counter
	DecayScoreP50           prometheus.Gauge
}

// New builds a Metrics instance and registers its collectors against
// registerer. Pass nil to skip registration (tests that build Metrics
// without a live registry).
func New(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConsolidationLagSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "consolidation_lag_seconds",
			Help: "Seconds since the consolidation consumer last completed a run.",
		}),
		EnrichmentLagSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "enrichment_lag_seconds",
			Help: "Seconds between an event's occurred_at and its enrichment write.",
		}),
		ReconsolidationLastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reconsolidation_last_run",
			Help: "Unix timestamp of the last completed consolidation run.",
		}),
		GraphNodesTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "graph_nodes_total",
			Help: "Current node count in the Graph Store, by node kind.",
		}, []string{"kind"}),
		GraphNodesPrunedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graph_nodes_pruned_total",
			Help: "Nodes removed by active forgetting, by node kind and tier.",
		}, []string{"kind", "tier"}),
		ReflectionTriggersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reflection_triggers_total",
			Help: "Number of times cumulative importance crossed the reflection threshold.",
		}),
		DecayScoreP50: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "decay_score_p50",
			Help: "Median composite decay score across the last retrieval response.",
		}),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.ConsolidationLagSeconds,
			m.EnrichmentLagSeconds,
			m.ReconsolidationLastRun,
			m.GraphNodesTotal,
			m.GraphNodesPrunedTotal,
			m.ReflectionTriggersTotal,
			m.DecayScoreP50,
		)
	}

	return m
}
