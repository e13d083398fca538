package engine

import "github.com/prometheus/client_golang/prometheus"

// Cycle metrics, registered on the default registry and served by the
// status server at /metrics.
var (
	mtxCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendengine_cycles_total",
			Help: "Engine cycles run",
		},
		[]string{"instrument", "phase"},
	)
	mtxSignals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendengine_signals_total",
			Help: "Evaluator signals by action",
		},
		[]string{"action"},
	)
	mtxActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendengine_actions_total",
			Help: "Order actions emitted by the coordinator",
		},
		[]string{"kind"},
	)
	mtxRiskBlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendengine_risk_blocks_total",
			Help: "Entries blocked by the risk governor",
		},
		[]string{"code"},
	)
	mtxTransportFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendengine_transport_failures_total",
			Help: "Order actions the transport rejected",
		},
		[]string{"kind"},
	)
	mtxCycleSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trendengine_cycle_seconds",
			Help:    "Wall time of one engine cycle",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
	)
	mtxSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendengine_cycles_skipped_total",
			Help: "Cycles skipped for exceeding their budget",
		},
		[]string{"instrument"},
	)
)

func init() {
	prometheus.MustRegister(mtxCycles, mtxSignals, mtxActions)
	prometheus.MustRegister(mtxRiskBlocks, mtxTransportFailures)
	prometheus.MustRegister(mtxCycleSeconds, mtxSkipped)
}
