package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the process-wide metrics container.
type Metrics struct {
	// Dispatch API
	DispatchJobsServed   *prometheus.CounterVec
	DispatchResultsTotal *prometheus.CounterVec
	DispatchRequestsInFlight prometheus.Gauge

	// Probe workers
	ProbeTotal    *prometheus.CounterVec
	ProbeDuration *prometheus.HistogramVec

	// Discovery
	DiscoveryRunsTotal   *prometheus.CounterVec
	DiscoveryTargetsSeen *prometheus.GaugeVec

	// Query / render layer
	QueryDuration    *prometheus.HistogramVec
	RenderCacheHits  *prometheus.CounterVec

	// Store
	StoreQueryDuration *prometheus.HistogramVec
	StoreErrorsTotal   *prometheus.CounterVec

	// Runtime
	MemoryUsage *prometheus.GaugeVec
	Goroutines  prometheus.Gauge

	// Service info
	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics builds and registers all metrics under namespace/subsystem.
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		DispatchJobsServed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "dispatch_jobs_served_total",
				Help:      "Total number of probe jobs handed out via GET /jobs",
			},
			[]string{"module"},
		),

		DispatchResultsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "dispatch_results_total",
				Help:      "Total number of probe results accepted via POST /results",
			},
			[]string{"module", "status"},
		),

		DispatchRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "dispatch_requests_in_flight",
				Help:      "Current number of in-flight dispatch API requests",
			},
		),

		ProbeTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "probe_total",
				Help:      "Total number of endpoint probes performed",
			},
			[]string{"module", "status"},
		),

		ProbeDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "probe_duration_seconds",
				Help:      "Duration of a single endpoint probe",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
			},
			[]string{"module"},
		),

		DiscoveryRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "discovery_runs_total",
				Help:      "Total number of discovery reconciliation runs",
			},
			[]string{"source", "status"},
		),

		DiscoveryTargetsSeen: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "discovery_targets_seen",
				Help:      "Number of targets known to a discovery source as of the last run",
			},
			[]string{"source"},
		),

		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "query_duration_seconds",
				Help:      "Duration of a query-layer render (dashboard, detail, explorers)",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"view"},
		),

		RenderCacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "render_cache_requests_total",
				Help:      "Render cache lookups by outcome",
			},
			[]string{"view", "outcome"},
		),

		StoreQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "store_query_duration_seconds",
				Help:      "Duration of queries against the result store",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"operation"},
		),

		StoreErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "store_errors_total",
				Help:      "Total number of result store errors",
			},
			[]string{"operation"},
		),

		MemoryUsage: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "memory_usage_bytes",
				Help:      "Current memory usage",
			},
			[]string{"type"},
		),

		Goroutines: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "goroutines",
				Help:      "Current number of goroutines",
			},
		),

		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service build information",
			},
			[]string{"version", "environment"},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the process-wide metrics, lazily initializing with
// defaults if no role has called InitMetrics yet.
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("hosh", "")
	}
	return defaultMetrics
}

// RecordDispatchJob records a job handed out by GET /jobs.
func (m *Metrics) RecordDispatchJob(module string) {
	m.DispatchJobsServed.WithLabelValues(module).Inc()
}

// RecordDispatchResult records a POST /results submission.
func (m *Metrics) RecordDispatchResult(module, status string) {
	m.DispatchResultsTotal.WithLabelValues(module, status).Inc()
}

// RecordProbe records the outcome and duration of one endpoint probe.
func (m *Metrics) RecordProbe(module, status string, duration time.Duration) {
	m.ProbeTotal.WithLabelValues(module, status).Inc()
	m.ProbeDuration.WithLabelValues(module).Observe(duration.Seconds())
}

// RecordDiscoveryRun records one discovery reconciliation pass.
func (m *Metrics) RecordDiscoveryRun(source, status string, targetsSeen int) {
	m.DiscoveryRunsTotal.WithLabelValues(source, status).Inc()
	m.DiscoveryTargetsSeen.WithLabelValues(source).Set(float64(targetsSeen))
}

// RecordQuery records the duration of a query-layer render.
func (m *Metrics) RecordQuery(view string, duration time.Duration) {
	m.QueryDuration.WithLabelValues(view).Observe(duration.Seconds())
}

// RecordCacheOutcome records a render cache hit or miss for a view.
func (m *Metrics) RecordCacheOutcome(view, outcome string) {
	m.RenderCacheHits.WithLabelValues(view, outcome).Inc()
}

// RecordStoreQuery records the duration of a result store operation.
func (m *Metrics) RecordStoreQuery(operation string, duration time.Duration, err error) {
	m.StoreQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.StoreErrorsTotal.WithLabelValues(operation).Inc()
	}
}

// SetServiceInfo records the running build's version and environment.
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler returns the HTTP handler serving /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer runs a standalone HTTP server exposing /metrics and
// /health, used by roles that don't otherwise mount a web server.
func StartMetricsServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
