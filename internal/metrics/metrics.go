// Package metrics holds the Prometheus collectors of the triage pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Analysis outcomes.
const (
	OutcomeAnalyzed = "analyzed"
	OutcomeFallback = "fallback"
	OutcomeFailed   = "failed"
)

// Mutation results.
const (
	ResultOK           = "ok"
	ResultInvalid      = "invalid"
	ResultUnauthorized = "unauthorized"
	ResultError        = "error"
)

// Metrics groups every collector the backend exports.
type Metrics struct {
	ComplaintsSubmitted  prometheus.Counter
	AnalysisTotal        *prometheus.CounterVec
	AnalysisSeconds      prometheus.Histogram
	MutationsTotal       *prometheus.CounterVec
	AuditWriteFailures   prometheus.Counter
	NotificationsEmitted *prometheus.CounterVec
	ConnectedDashboards  prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ComplaintsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "complaints_submitted_total",
			Help: "Complaints accepted by submit",
		}),
		AnalysisTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "complaint_analysis_total",
			Help: "Analysis attachments by outcome",
		}, []string{"outcome"}),
		AnalysisSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "complaint_analysis_seconds",
			Help:    "Latency of the analysis step",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		MutationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "complaint_mutations_total",
			Help: "Complaint mutations by operation and result",
		}, []string{"op", "result"}),
		AuditWriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Audit or system log writes that failed and went to the dead-letter channel",
		}),
		NotificationsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_emitted_total",
			Help: "In-app notifications raised by kind",
		}, []string{"kind"}),
		ConnectedDashboards: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_connections",
			Help: "Currently connected websocket dashboards",
		}),
	}
}

// NewNop returns collectors registered on a private registry, for tests and CLIs.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
