package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
)

const namespace = "replay"

// Metrics is the Prometheus Recorder. It owns its registry so several
// instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry
	history  RunHistory

	runsTotal          *prometheus.CounterVec
	runDuration        prometheus.Histogram
	readingsTotal      *prometheus.CounterVec
	emitFailures       *prometheus.CounterVec
	sessionTransitions *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	breakerState       *prometheus.GaugeVec
}

// New creates and registers the replay metrics. Runs are also appended to
// history when it is non-nil.
func New(history RunHistory) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		history:  history,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Orchestrator runs by trigger source and outcome.",
		}, []string{"source", "status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Histogram of orchestrator run durations.",
			Buckets:   prometheus.DefBuckets,
		}),
		readingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_sent_total",
			Help:      "Dataset rows delivered to the ingestion API.",
		}, []string{"device_type"}),
		emitFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emit_failures_total",
			Help:      "Rows the ingestion API did not accept.",
		}, []string{"device_type"}),
		sessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session status changes by target status.",
		}, []string{"status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open).",
		}, []string{"target"}),
	}

	m.registry.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.readingsTotal,
		m.emitFailures,
		m.sessionTransitions,
		m.httpRequests,
		m.httpDuration,
		m.breakerState,
	)

	return m
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(run *models.CronRun) {
	m.runsTotal.WithLabelValues(string(run.TriggerSource), string(run.Status)).Inc()
	m.runDuration.Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())

	if m.history != nil {
		m.history.Add(run)
	}
}

// ReadingsSent counts delivered rows.
func (m *Metrics) ReadingsSent(deviceType models.DeviceType, n int) {
	m.readingsTotal.WithLabelValues(string(deviceType)).Add(float64(n))
}

// EmitFailed counts one rejected row.
func (m *Metrics) EmitFailed(deviceType models.DeviceType) {
	m.emitFailures.WithLabelValues(string(deviceType)).Inc()
}

// SessionTransition counts a status change.
func (m *Metrics) SessionTransition(to models.SessionStatus) {
	m.sessionTransitions.WithLabelValues(string(to)).Inc()
}

// BreakerState publishes a circuit breaker state by name.
func (m *Metrics) BreakerState(target, state string) {
	var v float64

	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}

	m.breakerState.WithLabelValues(target).Set(v)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler instruments next under a fixed route label.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		m.httpRequests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
