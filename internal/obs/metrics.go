package obs

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hotelsearch"

// Fetch triggers, used as the "trigger" label of remote fetch metrics.
const (
	TriggerSearch  = "search"
	TriggerFilters = "filters"
	TriggerRestore = "restore"
	TriggerRetry   = "retry"
)

// Metrics holds the application's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry
	logger   *slog.Logger

	requests         prometheus.Counter
	cacheHits        prometheus.Counter
	providerErrors   *prometheus.CounterVec
	remoteFetches    *prometheus.CounterVec
	fetchDuration    *prometheus.HistogramVec
	localRecomputes  prometheus.Counter
	skippedRefetches prometheus.Counter
	staleDiscarded   prometheus.Counter
	sessions         prometheus.Gauge
	wsClients        prometheus.Gauge
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		logger:   logger,
		requests: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of API requests",
		}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of hotel search cache hits",
		}),
		providerErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Total number of remote provider errors",
		}, []string{"provider"}),
		remoteFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "remote_fetches_total",
			Help:      "Remote hotel fetches issued by search stores",
		}, []string{"trigger"}),
		fetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "fetch_duration_seconds",
			Help:      "Remote hotel fetch latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"trigger", "status"}),
		localRecomputes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "local_recomputes_total",
			Help:      "Filter changes served without a remote fetch",
		}),
		skippedRefetches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "skipped_refetches_total",
			Help:      "Remote filter changes ignored because no search was submitted yet",
		}),
		staleDiscarded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "stale_responses_total",
			Help:      "Remote responses discarded because a newer fetch was issued",
		}),
		sessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Number of live search sessions",
		}),
		wsClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Number of connected websocket clients",
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requests.Inc()
}

// IncCacheHits increments the cache hits counter.
func (m *Metrics) IncCacheHits() {
	m.cacheHits.Inc()
}

// IncProviderErrors increments the provider errors counter.
func (m *Metrics) IncProviderErrors(provider string) {
	m.providerErrors.WithLabelValues(provider).Inc()
}

// ObserveFetch records one remote fetch issued for trigger.
func (m *Metrics) ObserveFetch(trigger string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.remoteFetches.WithLabelValues(trigger).Inc()
	m.fetchDuration.WithLabelValues(trigger, status).Observe(d.Seconds())
}

// IncLocalRecomputes counts displayed lists rebuilt from a local filter change.
func (m *Metrics) IncLocalRecomputes() {
	m.localRecomputes.Inc()
}

// IncSkippedRefetches counts remote filter changes dropped because no search
// had run yet.
func (m *Metrics) IncSkippedRefetches() {
	m.skippedRefetches.Inc()
}

// IncStaleDiscarded counts responses of superseded fetches that were dropped.
func (m *Metrics) IncStaleDiscarded() {
	m.staleDiscarded.Inc()
}

// SetSessions sets the live session gauge.
func (m *Metrics) SetSessions(n int) {
	m.sessions.Set(float64(n))
}

// AddWSClients adjusts the websocket client gauge by delta.
func (m *Metrics) AddWSClients(delta int) {
	m.wsClients.Add(float64(delta))
}

// HealthHandler returns a handler for /healthz requests.
func HealthHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health response", "error", err)
		}
	}
}

// MetricsHandler returns a handler for /metrics requests in Prometheus format.
func (m *Metrics) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(m.logger.Handler(), slog.LevelError),
	})
}
