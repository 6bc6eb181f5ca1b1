package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for stockrank
// ⭐ SSOT: 메트릭 정의는 여기서만
type Registry struct {
	registry *prometheus.Registry

	RankingDuration *prometheus.HistogramVec
	RankedTickers   prometheus.Gauge
	RankingRuns     *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	BrokerRequests  *prometheus.CounterVec
}

// New creates a registry with every stockrank metric registered
func New() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		RankingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockrank_stage_duration_seconds",
				Help:    "Duration of each report stage in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),

		RankedTickers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockrank_ranked_tickers",
				Help: "Number of tickers with a composite score in the last run",
			},
		),

		RankingRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockrank_runs_total",
				Help: "Total number of report runs by result",
			},
			[]string{"result"},
		),

		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockrank_cache_lookups_total",
				Help: "Stock data cache lookups by backend and outcome (hit, stale, miss, bypass)",
			},
			[]string{"backend", "outcome"},
		),

		BrokerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockrank_broker_requests_total",
				Help: "Brokerage API requests by endpoint and status code",
			},
			[]string{"endpoint", "status"},
		),
	}

	r.registry.MustRegister(
		r.RankingDuration,
		r.RankedTickers,
		r.RankingRuns,
		r.CacheLookups,
		r.BrokerRequests,
		collectors.NewGoCollector(),
	)

	return r
}

// Handler exposes the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveStage records the duration of a report stage
func (r *Registry) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.RankingDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRun counts a finished run
func (r *Registry) RecordRun(success bool, ranked int) {
	if r == nil {
		return
	}
	if success {
		r.RankingRuns.WithLabelValues("success").Inc()
		r.RankedTickers.Set(float64(ranked))
		return
	}
	r.RankingRuns.WithLabelValues("failure").Inc()
}

// RecordCache counts a cache lookup outcome
func (r *Registry) RecordCache(backend, outcome string) {
	if r == nil {
		return
	}
	r.CacheLookups.WithLabelValues(backend, outcome).Inc()
}

// RecordBrokerRequest counts a brokerage API call
func (r *Registry) RecordBrokerRequest(endpoint string, status int) {
	if r == nil {
		return
	}
	r.BrokerRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}
