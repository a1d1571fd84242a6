// Package telemetry exposes the service's Prometheus metrics. A nil
// *Metrics is valid and records nothing, so tests can leave it unset.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quill"

type Metrics struct {
	registry *prometheus.Registry

	signingActions  *prometheus.CounterVec
	conflictRetries *prometheus.CounterVec
	completed       prometheus.Counter
	previewAccess   *prometheus.CounterVec
	grantsIssued    prometheus.Counter
	outboxJobs      *prometheus.CounterVec
	outboxDepth     *prometheus.GaugeVec
	gatewayDenied   prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.signingActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signing_actions_total",
			Help:      "Signer actions by kind and outcome",
		},
		[]string{"action", "outcome"},
	)
	m.conflictRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "version_conflict_retries_total",
			Help:      "Optimistic concurrency retries by aggregate",
		},
		[]string{"aggregate"},
	)
	m.completed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signature_requests_completed_total",
		Help:      "Signature requests that reached completed",
	})
	m.previewAccess = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preview_access_total",
			Help:      "Preview access attempts by outcome",
		},
		[]string{"outcome"},
	)
	m.grantsIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "preview_grants_issued_total",
		Help:      "Preview grants issued or rotated",
	})
	m.outboxJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_jobs_total",
			Help:      "Processed outbox jobs by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
	m.outboxDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_jobs",
			Help:      "Outbox jobs currently stored, by status",
		},
		[]string{"status"},
	)
	m.gatewayDenied = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_denied_total",
		Help:      "Requests to protected routes refused for a missing or wrong gateway key",
	})
	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)
	m.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.signingActions,
		m.conflictRetries,
		m.completed,
		m.previewAccess,
		m.grantsIssued,
		m.outboxJobs,
		m.outboxDepth,
		m.gatewayDenied,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry is exposed for tests that gather values directly.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SigningAction(action, outcome string) {
	if m == nil {
		return
	}
	m.signingActions.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) ConflictRetry(aggregate string) {
	if m == nil {
		return
	}
	m.conflictRetries.WithLabelValues(aggregate).Inc()
}

func (m *Metrics) RequestCompleted() {
	if m == nil {
		return
	}
	m.completed.Inc()
}

func (m *Metrics) PreviewAccess(outcome string) {
	if m == nil {
		return
	}
	m.previewAccess.WithLabelValues(outcome).Inc()
}

func (m *Metrics) GrantsIssued(n int) {
	if m == nil {
		return
	}
	m.grantsIssued.Add(float64(n))
}

func (m *Metrics) OutboxJob(kind domain.JobKind, outcome string) {
	if m == nil {
		return
	}
	m.outboxJobs.WithLabelValues(string(kind), outcome).Inc()
}

// OutboxDepth replaces the per-status gauge values.
func (m *Metrics) OutboxDepth(counts map[domain.JobStatus]int) {
	if m == nil {
		return
	}
	for _, s := range []domain.JobStatus{domain.JobQueued, domain.JobRunning, domain.JobCompleted, domain.JobDead} {
		m.outboxDepth.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}

// GatewayDenied matches httpx.GatewayConfig.OnDenied.
func (m *Metrics) GatewayDenied(*http.Request) {
	if m == nil {
		return
	}
	m.gatewayDenied.Inc()
}

// HTTPMiddleware records request counts and latency keyed by route, which
// route reports after the router has matched.
func (m *Metrics) HTTPMiddleware(route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			pattern := route(r)
			m.httpRequests.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
			m.httpDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
