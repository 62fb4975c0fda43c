// Package metrics exposes Prometheus instruments for settlement runs and RPCs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Settlement run results.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

var (
	SettlementRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dutch",
		Name:      "settlement_runs_total",
		Help:      "Settlement recomputations by result.",
	}, []string{"result"})

	SettlementTransfers = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dutch",
		Name:      "settlement_transfers",
		Help:      "Number of transfers produced by a successful settlement run.",
		Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
	})

	SettlementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dutch",
		Name:      "settlement_duration_seconds",
		Help:      "Time spent validating, calculating and replacing a settlement.",
		Buckets:   prometheus.DefBuckets,
	})

	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dutch",
		Name:      "rpc_duration_seconds",
		Help:      "Unary RPC latency by procedure and code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"procedure", "code"})
)
