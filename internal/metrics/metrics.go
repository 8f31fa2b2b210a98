// Package metrics exposes Prometheus instrumentation for the audit engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	EventsRecorded      *prometheus.CounterVec
	ViolationsRaised    *prometheus.CounterVec
	AuditRunsTotal      prometheus.Counter
	AlertFailuresTotal  prometheus.Counter
	RuleEvalFailures    prometheus.Counter
	EventRecordFailures prometheus.Counter
}

// New registers and returns the engine metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		EventsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_audit_events_recorded_total",
			Help: "Total number of audit events recorded, by risk level",
		}, []string{"risk_level"}),
		ViolationsRaised: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_compliance_violations_total",
			Help: "Total number of compliance violations raised, by framework",
		}, []string{"framework"}),
		AuditRunsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_compliance_audit_runs_total",
			Help: "Total number of completed batch compliance audit runs",
		}),
		AlertFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_alert_dispatch_failures_total",
			Help: "Total number of failed best-effort alert dispatches",
		}),
		RuleEvalFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_rule_evaluation_failures_total",
			Help: "Total number of rules skipped due to evaluation errors",
		}),
		EventRecordFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_audit_record_failures_total",
			Help: "Total number of audit events that failed to persist",
		}),
	}
}

// The increment helpers are nil-safe so services can run without metrics
// (e.g. under test) without guarding every call site.

func (m *Metrics) IncEventsRecorded(riskLevel string) {
	if m == nil {
		return
	}
	m.EventsRecorded.WithLabelValues(riskLevel).Inc()
}

func (m *Metrics) IncViolationsRaised(framework string) {
	if m == nil {
		return
	}
	m.ViolationsRaised.WithLabelValues(framework).Inc()
}

func (m *Metrics) IncAuditRuns() {
	if m == nil {
		return
	}
	m.AuditRunsTotal.Inc()
}

func (m *Metrics) IncAlertFailures() {
	if m == nil {
		return
	}
	m.AlertFailuresTotal.Inc()
}

func (m *Metrics) IncRuleEvalFailures() {
	if m == nil {
		return
	}
	m.RuleEvalFailures.Inc()
}

func (m *Metrics) IncEventRecordFailures() {
	if m == nil {
		return
	}
	m.EventRecordFailures.Inc()
}
