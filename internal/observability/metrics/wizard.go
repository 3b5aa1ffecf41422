package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// WizardMetrics exposes counters/histograms for the booking wizard.
type WizardMetrics struct {
	transitions       *prometheus.CounterVec
	validationFailure *prometheus.CounterVec
	submissions       *prometheus.CounterVec
	apiLatency        *prometheus.HistogramVec
	persistErrors     *prometheus.CounterVec
}

func NewWizardMetrics(reg prometheus.Registerer) *WizardMetrics {
	m := &WizardMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "counseling",
			Subsystem: "wizard",
			Name:      "step_transitions_total",
			Help:      "Wizard step transitions by direction and resulting step",
		}, []string{"direction", "step"}),
		validationFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "counseling",
			Subsystem: "wizard",
			Name:      "validation_failures_total",
			Help:      "Blocked step advances and submissions by step",
		}, []string{"step"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "counseling",
			Subsystem: "wizard",
			Name:      "submissions_total",
			Help:      "Booking submissions by outcome",
		}, []string{"outcome"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "counseling",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Latency of booking API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "status"}),
		persistErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "counseling",
			Subsystem: "wizard",
			Name:      "draft_persistence_errors_total",
			Help:      "Draft store failures that were logged and ignored",
		}, []string{"op"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitions, m.validationFailure, m.submissions, m.apiLatency, m.persistErrors)
	return m
}

func (m *WizardMetrics) ObserveTransition(direction string, step int) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(direction, strconv.Itoa(step)).Inc()
}

func (m *WizardMetrics) ObserveValidationFailure(step int) {
	if m == nil {
		return
	}
	m.validationFailure.WithLabelValues(strconv.Itoa(step)).Inc()
}

func (m *WizardMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *WizardMetrics) ObserveAPICall(endpoint, status string, seconds float64) {
	if m == nil {
		return
	}
	m.apiLatency.WithLabelValues(endpoint, status).Observe(seconds)
}

func (m *WizardMetrics) ObservePersistError(op string) {
	if m == nil {
		return
	}
	m.persistErrors.WithLabelValues(op).Inc()
}
