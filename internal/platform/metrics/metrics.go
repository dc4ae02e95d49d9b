package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the verification subsystem.
type Metrics struct {
	VerificationsStarted   *prometheus.CounterVec
	VerificationsCompleted *prometheus.CounterVec
	ForcedCompletions      prometheus.Counter
	UploadFailures         *prometheus.CounterVec
	PollAttempts           prometheus.Histogram
	BackendCallLatency     *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		VerificationsStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "guestpass_verifications_started_total",
			Help: "Total number of verification flows started, labeled by method",
		}, []string{"method"}),
		VerificationsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "guestpass_verifications_completed_total",
			Help: "Total number of verification flows reaching a terminal state, labeled by result",
		}, []string{"result"}),
		ForcedCompletions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "guestpass_forced_completions_total",
			Help: "Total number of hosted KYC sessions force-completed after the poll budget",
		}),
		UploadFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "guestpass_upload_failures_total",
			Help: "Total number of failed document uploads, labeled by reason",
		}, []string{"reason"}),
		PollAttempts: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "guestpass_poll_attempts_per_session",
			Help:    "Number of status polls issued before a hosted session reached a terminal state",
			Buckets: []float64{1, 2, 5, 10, 20, 40, 80, 200},
		}),
		BackendCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "guestpass_backend_call_latency_seconds",
			Help:    "Latency of backend API calls in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

// IncrementVerificationsStarted increments the started counter with method label.
func (m *Metrics) IncrementVerificationsStarted(method string) {
	m.VerificationsStarted.WithLabelValues(method).Inc()
}

// IncrementVerificationsCompleted increments the completed counter with result label.
func (m *Metrics) IncrementVerificationsCompleted(result string) {
	m.VerificationsCompleted.WithLabelValues(result).Inc()
}

// IncrementForcedCompletions increments the forced completion counter by 1.
func (m *Metrics) IncrementForcedCompletions() {
	m.ForcedCompletions.Inc()
}

// IncrementUploadFailures increments the upload failure counter with reason label.
func (m *Metrics) IncrementUploadFailures(reason string) {
	m.UploadFailures.WithLabelValues(reason).Inc()
}

// ObservePollAttempts records how many polls one hosted session needed.
func (m *Metrics) ObservePollAttempts(attempts int) {
	m.PollAttempts.Observe(float64(attempts))
}

// ObserveBackendCallLatency records the latency for a given backend endpoint.
func (m *Metrics) ObserveBackendCallLatency(endpoint string, durationSeconds float64) {
	m.BackendCallLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}
