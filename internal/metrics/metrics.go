package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ⭐ SSOT: 모든 Prometheus 메트릭은 이 파일에서만 정의
var (
	OperationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stratfolio",
		Name:      "operation_total",
		Help:      "Engine operations by outcome",
	}, []string{"operation", "status"})

	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stratfolio",
		Name:      "operation_duration_seconds",
		Help:      "Latency of engine operations",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"operation"})

	TradesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stratfolio",
		Name:      "trades_ingested_total",
		Help:      "Trades accepted from uploaded logs",
	}, []string{"format"})

	RowsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stratfolio",
		Name:      "rows_skipped_total",
		Help:      "Malformed trade log rows dropped",
	}, []string{"format"})

	MonteCarloPaths = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stratfolio",
		Name:      "montecarlo_paths_total",
		Help:      "Simulated Monte Carlo paths",
	})

	MarginRateLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stratfolio",
		Name:      "margin_rate_lookups_total",
		Help:      "Margin rate lookups by resolution tier",
	}, []string{"margin_type", "tier"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stratfolio",
		Name:      "ws_connections",
		Help:      "Active Monte Carlo progress websocket connections",
	})

	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stratfolio",
		Name:      "job_runs_total",
		Help:      "Scheduled job executions by outcome",
	}, []string{"job", "status"})
)

// Margin rate resolution tiers
const (
	TierCache    = "cache"
	TierSource   = "source"
	TierStale    = "stale"
	TierFallback = "fallback"
)

// ObserveOperation records one operation's latency and outcome
func ObserveOperation(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	OperationTotal.WithLabelValues(operation, status).Inc()
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
