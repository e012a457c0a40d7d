package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	EstimatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slipsentinel_estimates_total",
		Help: "Slippage estimates by outcome",
	}, []string{"outcome"})

	ProbeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slipsentinel_probe_failures_total",
		Help: "Per-exchange pair probes that failed",
	})

	HistoryFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slipsentinel_history_failures_total",
		Help: "Swap history queries that degraded to empty",
	})

	EstimateLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "slipsentinel_estimate_latency_seconds",
		Help:    "Time to produce a slippage recommendation",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		EstimatesTotal,
		ProbeFailures,
		HistoryFailures,
		EstimateLatency,
	)
}
