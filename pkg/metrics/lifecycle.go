package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics tracks request transitions and commission activity.
type LifecycleMetrics struct {
	transitions   *prometheus.CounterVec
	conflicts     *prometheus.CounterVec
	distributions *prometheus.CounterVec
	creditFailed  prometheus.Counter
}

// NewLifecycleMetrics registers the lifecycle metrics on the provided registerer.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	if reg == nil {
		return &LifecycleMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "request_transitions_total",
		Help: "Service request status transitions applied.",
	}, []string{"from_status", "to_status"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "request_transition_conflicts_total",
		Help: "Transitions rejected because the request status moved underneath the caller.",
	}, []string{"to_status"})
	distributions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "commission_distributions_total",
		Help: "Commission distribution runs by outcome.",
	}, []string{"outcome"})
	creditFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "commission_credit_failures_total",
		Help: "Wallet credits that fell back to pending_credit.",
	})
	reg.MustRegister(transitions, conflicts, distributions, creditFailed)
	return &LifecycleMetrics{
		transitions:   transitions,
		conflicts:     conflicts,
		distributions: distributions,
		creditFailed:  creditFailed,
	}
}

// IncTransition records one applied status transition.
func (m *LifecycleMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncConflict records a compare-and-set transition failure.
func (m *LifecycleMetrics) IncConflict(to string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(to)).Inc()
}

// IncDistribution records a distribution run outcome ("created" or "skipped").
func (m *LifecycleMetrics) IncDistribution(outcome string) {
	if m == nil || m.distributions == nil {
		return
	}
	m.distributions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncCreditFailure records a wallet credit that could not be applied.
func (m *LifecycleMetrics) IncCreditFailure() {
	if m == nil || m.creditFailed == nil {
		return
	}
	m.creditFailed.Inc()
}
