package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests                *prometheus.CounterVec
	CounterHandleRequestPanic      prometheus.Counter
	CounterRateLimitedRequests     prometheus.Counter
	CounterEnrollmentsCreated      prometheus.Counter
	CounterDuplicateEnrollments    prometheus.Counter
	CounterEnrollmentIncrementFail prometheus.Counter
	CounterRatingsSubmitted        prometheus.Counter

	// gauges
	GaugeRequests        prometheus.Gauge
	GaugeEnrollmentDrift prometheus.Gauge
	GaugeDriftedPrograms prometheus.Gauge

	// histograms
	HistogramRequestDuration *prometheus.HistogramVec
	HistDriftAuditDuration   prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("gym", "test_server", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("gym", "test_server", reg), reg
}

// SetupPrometheus creates a registry with the Go runtime and process collectors.
func SetupPrometheus() *prometheus.Registry {
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promRegistry
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})
	counterHandleRequestPanic := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "handle_request_panic",
		Help:      "The total number of serve request panics",
	})
	counterRateLimitedRequests := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "rate_limited_requests",
		Help:      "The total number of rate limited requests",
	})
	counterEnrollmentsCreated := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "enrollments_created",
		Help:      "The total number of created enrollments",
	})
	counterDuplicateEnrollments := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "enrollments_duplicate",
		Help:      "The total number of rejected duplicate enrollments",
	})
	counterEnrollmentIncrementFail := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "enrollment_counter_increment_failures",
		Help:      "Enrollments created whose program counter could not be incremented",
	})
	counterRatingsSubmitted := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "ratings_submitted",
		Help:      "The total number of rating upserts",
	})

	gaugeRequests := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "current_requests",
		Help:      "Current number of requests served",
	})
	gaugeEnrollmentDrift := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "enrollment_counter_drift",
		Help:      "Sum over programs of the absolute difference between stored and counted enrollments",
	})
	gaugeDriftedPrograms := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "enrollment_counter_drifted_programs",
		Help:      "Number of programs whose stored enrollment counter differs from the counted one",
	})

	histogramRequestDuration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_duration_seconds",
		Help:      "Histogram of response time for requests in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"route", "method", "status_code"})
	histDriftAuditDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "drift_audit_duration_seconds",
		Help:      "Duration of a single enrollment counter drift audit in seconds",
		Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
	})

	return &Manager{
		CounterRequests:                counterRequests,
		CounterHandleRequestPanic:      counterHandleRequestPanic,
		CounterRateLimitedRequests:     counterRateLimitedRequests,
		CounterEnrollmentsCreated:      counterEnrollmentsCreated,
		CounterDuplicateEnrollments:    counterDuplicateEnrollments,
		CounterEnrollmentIncrementFail: counterEnrollmentIncrementFail,
		CounterRatingsSubmitted:        counterRatingsSubmitted,
		GaugeRequests:                  gaugeRequests,
		GaugeEnrollmentDrift:           gaugeEnrollmentDrift,
		GaugeDriftedPrograms:           gaugeDriftedPrograms,
		HistogramRequestDuration:       histogramRequestDuration,
		HistDriftAuditDuration:         histDriftAuditDuration,
	}
}
