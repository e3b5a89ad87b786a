// Package metrics provides Prometheus instrumentation for the Action API,
// worker loop, sync services, and optimization jobs, grounded on the
// teacher's internal/app/metrics.go Registry-plus-counters shape, stripped
// of the teacher's blockchain-specific hooks (functions/automation/CCIP/
// VRF/datastream) since this platform has no equivalent dispatchers.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "roadmap",
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "Current number of in-flight HTTP requests.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadmap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests handled.",
	}, []string{"method", "path", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "roadmap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"method", "path"})

	// syncUpserts counts rows written per sync service tab outcome
	// (upserted, skipped, unlocked, failed) — spec.md §4.5's RowOutcome
	// statuses.
	syncUpserts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadmap",
		Subsystem: "sync",
		Name:      "rows_total",
		Help:      "Total number of sync rows processed, by tab and outcome.",
	}, []string{"tab", "outcome"})

	syncDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "roadmap",
		Subsystem: "sync",
		Name:      "duration_seconds",
		Help:      "Duration of a sync service run.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"tab"})

	// scoringRuns counts scoring invocations by framework and outcome.
	scoringRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadmap",
		Subsystem: "scoring",
		Name:      "runs_total",
		Help:      "Total number of scoring engine invocations.",
	}, []string{"framework", "outcome"})

	// actionClaimDuration measures the time an ActionRun spends queued
	// before a worker claims it (spec.md §5 claim protocol).
	actionClaimDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "roadmap",
		Subsystem: "action",
		Name:      "claim_latency_seconds",
		Help:      "Time between an ActionRun's creation and its claim by a worker.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"action"})

	actionRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadmap",
		Subsystem: "action",
		Name:      "runs_total",
		Help:      "Total number of ActionRuns executed, by action and outcome.",
	}, []string{"action", "outcome"})

	// solverInvocations counts optimization solver calls by status
	// (optimal, feasible, infeasible, error) — spec.md §4.12.
	solverInvocations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadmap",
		Subsystem: "optimize",
		Name:      "solver_runs_total",
		Help:      "Total number of optimization solver invocations, by status.",
	}, []string{"status"})

	solverDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "roadmap",
		Subsystem: "optimize",
		Name:      "solver_duration_seconds",
		Help:      "Duration of an optimization solver invocation.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"status"})
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		syncUpserts,
		syncDuration,
		scoringRuns,
		actionClaimDuration,
		actionRuns,
		solverInvocations,
		solverDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus
// metrics, mounted at /metrics alongside the Action API.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps an http.Handler with request-count/duration/
// in-flight collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordSyncRow records one row outcome for a sync service run on tab.
func RecordSyncRow(tab, outcome string) {
	syncUpserts.WithLabelValues(tab, outcome).Inc()
}

// RecordSyncRun records the wall-clock duration of one sync service run.
func RecordSyncRun(tab string, duration time.Duration) {
	syncDuration.WithLabelValues(tab).Observe(duration.Seconds())
}

// RecordScoringRun records one scoring engine invocation.
func RecordScoringRun(framework string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	scoringRuns.WithLabelValues(framework, outcome).Inc()
}

// RecordActionClaim records the time an ActionRun waited in the queue
// before being claimed.
func RecordActionClaim(action string, waited time.Duration) {
	if waited < 0 {
		waited = 0
	}
	actionClaimDuration.WithLabelValues(action).Observe(waited.Seconds())
}

// RecordActionRun records one ActionRun's terminal outcome.
func RecordActionRun(action, status string) {
	actionRuns.WithLabelValues(action, status).Inc()
}

// RecordSolverRun records one optimization solver invocation.
func RecordSolverRun(status string, duration time.Duration) {
	solverInvocations.WithLabelValues(status).Inc()
	solverDuration.WithLabelValues(status).Observe(duration.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses the Action API's single dynamic segment
// (/actions/run/{run_id}) into a constant label so label cardinality does
// not grow per run_id.
func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) >= 2 && parts[0] == "actions" && parts[1] == "run" {
		if len(parts) == 3 {
			return "/actions/run/:run_id"
		}
		return "/actions/run"
	}
	return "/" + parts[0]
}
