package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the signal service.
type Metrics struct {
	// Analysis runner
	AnalysesTotal    *prometheus.CounterVec // labels: strategy, status=ok|error
	TradesTotal      *prometheus.CounterVec // labels: strategy
	RejectedTrades   prometheus.Counter
	ForcedExits      prometheus.Counter
	AnalysisDur      prometheus.Histogram
	BatchDur         prometheus.Histogram
	CumulativeReturn *prometheus.GaugeVec // labels: strategy, symbol
	LastBatchUnix    prometheus.Gauge

	// Storage
	PriceReadDur  prometheus.Histogram
	RedisWriteDur prometheus.Histogram

	// Result publishing
	PublishFailures          prometheus.Counter
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter

	// Notifications
	AlertsTotal *prometheus.CounterVec // labels: level
}

// NewMetrics creates all metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in binaries and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signals_analyses_total",
			Help: "Analyses completed, by strategy and outcome",
		}, []string{"strategy", "status"}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signals_trades_total",
			Help: "Simulated round trips, by strategy",
		}, []string{"strategy"}),
		RejectedTrades: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signals_rejected_trades_total",
			Help: "Trades excluded from evaluation for non-positive prices",
		}),
		ForcedExits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signals_forced_exits_total",
			Help: "Open positions marked to the last close at series end",
		}),
		AnalysisDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signals_analysis_duration_seconds",
			Help:    "Per-symbol analysis latency including the price read",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		BatchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signals_batch_duration_seconds",
			Help:    "Wall time of a full batch run",
			Buckets: prometheus.DefBuckets,
		}),
		CumulativeReturn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signals_cumulative_return_pct",
			Help: "Compounded return of the latest analysis",
		}, []string{"strategy", "symbol"}),
		LastBatchUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signals_last_batch_timestamp_seconds",
			Help: "Unix time the last batch finished",
		}),

		PriceReadDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signals_price_read_duration_seconds",
			Help:    "Close-history read latency per symbol",
			Buckets: prometheus.DefBuckets,
		}),
		RedisWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signals_redis_write_duration_seconds",
			Help:    "Redis publish pipeline latency",
			Buckets: prometheus.DefBuckets,
		}),

		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signals_publish_failures_total",
			Help: "Summaries that could not be published to Redis",
		}),
		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signals_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signals_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),

		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signals_alerts_total",
			Help: "Alerts sent, by level",
		}, []string{"level"}),
	}

	reg.MustRegister(
		m.AnalysesTotal,
		m.TradesTotal,
		m.RejectedTrades,
		m.ForcedExits,
		m.AnalysisDur,
		m.BatchDur,
		m.CumulativeReturn,
		m.LastBatchUnix,
		m.PriceReadDur,
		m.RedisWriteDur,
		m.PublishFailures,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.AlertsTotal,
	)

	return m
}
