// Package observability exposes engine activity as Prometheus metrics.
// Collectors are fed through domain.LifecycleHooks, so the engine core
// stays free of metrics plumbing and deployments that do not scrape
// simply omit the hooks.
package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/caseflow/playbook/pkg/domain"
)

// Metrics holds the Prometheus collectors for session lifecycle activity.
type Metrics struct {
	sessionsStarted    *prometheus.CounterVec
	decisionsRecorded  *prometheus.CounterVec
	sessionsCompleted  *prometheus.CounterVec
	sessionsReset      *prometheus.CounterVec
	decisionConfidence *prometheus.HistogramVec
	sessionSteps       *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors. Pass nil to register on
// the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		sessionsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playbook_sessions_started_total",
				Help: "Total number of decision sessions started",
			},
			[]string{"playbook_id"},
		),
		decisionsRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playbook_decisions_total",
				Help: "Total number of decisions recorded",
			},
			[]string{"playbook_id"},
		),
		sessionsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playbook_sessions_completed_total",
				Help: "Total number of sessions that reached a terminal point",
			},
			[]string{"playbook_id", "risk_level"},
		),
		sessionsReset: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playbook_sessions_reset_total",
				Help: "Total number of sessions reset to the graph root",
			},
			[]string{"playbook_id"},
		),
		decisionConfidence: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "playbook_decision_confidence",
				Help: "Confidence scores attached to recorded decisions",
				// Confidence lives in [0,1]; default buckets are built
				// for latencies and would lump everything together.
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 9),
			},
			[]string{"playbook_id"},
		),
		sessionSteps: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playbook_session_steps",
				Help:    "Decision path lengths of completed sessions",
				Buckets: prometheus.LinearBuckets(1, 2, 10),
			},
			[]string{"playbook_id"},
		),
	}
	reg.MustRegister(
		m.sessionsStarted,
		m.decisionsRecorded,
		m.sessionsCompleted,
		m.sessionsReset,
		m.decisionConfidence,
		m.sessionSteps,
	)
	return m
}

// Hooks returns lifecycle hooks that update the collectors. Merge them with
// other hooks to observe the same engine from several consumers.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(_ context.Context, e *domain.SessionEvent) {
			m.sessionsStarted.WithLabelValues(e.PlaybookID).Inc()
		},
		OnDecision: func(_ context.Context, e *domain.SessionEvent) {
			m.decisionsRecorded.WithLabelValues(e.PlaybookID).Inc()
			m.decisionConfidence.WithLabelValues(e.PlaybookID).Observe(e.Confidence)
		},
		OnComplete: func(_ context.Context, e *domain.SessionEvent) {
			m.sessionsCompleted.WithLabelValues(e.PlaybookID, string(e.RiskLevel)).Inc()
			m.sessionSteps.WithLabelValues(e.PlaybookID).Observe(float64(e.Steps))
		},
		OnReset: func(_ context.Context, e *domain.SessionEvent) {
			m.sessionsReset.WithLabelValues(e.PlaybookID).Inc()
		},
	}
}
