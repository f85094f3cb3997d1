package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the operator console.
type Metrics struct {
	registry           *prometheus.Registry
	requestsTotal      prometheus.Counter
	errorsTotal        prometheus.Counter
	requestDuration    *prometheus.HistogramVec
	pollCyclesTotal    *prometheus.CounterVec
	pollFailuresInARow prometheus.Gauge
	mutationsTotal     *prometheus.CounterVec
	upstreamRequests   *prometheus.CounterVec
	configuredPaths    prometheus.Gauge
	activePaths        prometheus.Gauge
	readers            prometheus.Gauge
	eventSubscribers   prometheus.Gauge
}

// New creates and registers Prometheus metrics for the console.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mtx_console_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mtx_console_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mtx_console_request_duration_seconds",
			Help:    "HTTP request latency by method, route pattern and status class",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		pollCyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mtx_console_poll_cycles_total",
			Help: "Reconciliation cycles by result (success, failure, skipped)",
		}, []string{"result"}),
		pollFailuresInARow: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mtx_console_poll_consecutive_failures",
			Help: "Number of consecutive failed reconciliation cycles",
		}),
		mutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mtx_console_mutations_total",
			Help: "Path config mutations by operation and result",
		}, []string{"op", "result"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mtx_console_upstream_requests_total",
			Help: "MediaMTX API calls by operation and outcome kind",
		}, []string{"op", "outcome"}),
		configuredPaths: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mtx_console_configured_paths",
			Help: "Declared paths in the last snapshot, catch-all excluded",
		}),
		activePaths: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mtx_console_active_paths",
			Help: "Declared paths currently live",
		}),
		readers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mtx_console_readers",
			Help: "Total readers across declared paths",
		}),
		eventSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mtx_console_event_subscribers",
			Help: "Open dashboard event streams",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.requestDuration,
		m.pollCyclesTotal,
		m.pollFailuresInARow,
		m.mutationsTotal,
		m.upstreamRequests,
		m.configuredPaths,
		m.activePaths,
		m.readers,
		m.eventSubscribers,
	)
	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// ObserveRequest records one request's latency. route is the matched pattern
// (e.g. /api/paths/{name}), never the raw URL, so path names do not become labels.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status/100)+"xx").Observe(d.Seconds())
}

// IncPollCycles counts one reconciliation cycle outcome.
func (m *Metrics) IncPollCycles(result string) {
	m.pollCyclesTotal.WithLabelValues(result).Inc()
}

// SetConsecutivePollFailures sets the consecutive poll failure gauge.
func (m *Metrics) SetConsecutivePollFailures(n int) {
	m.pollFailuresInARow.Set(float64(n))
}

// SetPathGauges sets the snapshot gauges.
func (m *Metrics) SetPathGauges(total, active, readers int) {
	m.configuredPaths.Set(float64(total))
	m.activePaths.Set(float64(active))
	m.readers.Set(float64(readers))
}

// IncMutations counts one mutation outcome.
func (m *Metrics) IncMutations(op, result string) {
	m.mutationsTotal.WithLabelValues(op, result).Inc()
}

// IncUpstream counts one MediaMTX API call; outcome is "ok" or an error kind.
func (m *Metrics) IncUpstream(op, outcome string) {
	m.upstreamRequests.WithLabelValues(op, outcome).Inc()
}

// AddEventSubscribers adjusts the open event stream gauge.
func (m *Metrics) AddEventSubscribers(delta int) {
	m.eventSubscribers.Add(float64(delta))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
