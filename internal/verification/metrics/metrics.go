package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the verification backend collectors.
type Metrics struct {
	SessionsCreated  *prometheus.CounterVec
	ProofSubmissions *prometheus.CounterVec
	AuditAppended    prometheus.Counter
	AuditPublishFail prometheus.Counter
	AuditListLatency prometheus.Histogram
	SessionsPruned   prometheus.Counter
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// so suites do not collide on the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SessionsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediguard_verification_sessions_created_total",
			Help: "Verification sessions created, by provider type",
		}, []string{"provider_type"}),
		ProofSubmissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediguard_proof_submissions_total",
			Help: "Completed proof submissions, by result",
		}, []string{"result"}),
		AuditAppended: f.NewCounter(prometheus.CounterOpts{
			Name: "mediguard_audit_records_appended_total",
			Help: "Audit records appended to the trail",
		}),
		AuditPublishFail: f.NewCounter(prometheus.CounterOpts{
			Name: "mediguard_audit_publish_failures_total",
			Help: "Audit records that could not be fanned out to the message bus",
		}),
		AuditListLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "mediguard_audit_list_duration_seconds",
			Help:    "Latency of audit trail listing",
			Buckets: prometheus.DefBuckets,
		}),
		SessionsPruned: f.NewCounter(prometheus.CounterOpts{
			Name: "mediguard_verification_sessions_pruned_total",
			Help: "Sessions removed by the retention worker",
		}),
	}
}

func (m *Metrics) IncSessionCreated(providerType string) {
	if m == nil {
		return
	}
	if providerType == "" {
		providerType = "unknown"
	}
	m.SessionsCreated.WithLabelValues(providerType).Inc()
}

func (m *Metrics) IncProofSubmission(verified bool) {
	if m == nil {
		return
	}
	result := "failed"
	if verified {
		result = "verified"
	}
	m.ProofSubmissions.WithLabelValues(result).Inc()
}

func (m *Metrics) IncAuditAppended() {
	if m == nil {
		return
	}
	m.AuditAppended.Inc()
}

func (m *Metrics) IncAuditPublishFailure() {
	if m == nil {
		return
	}
	m.AuditPublishFail.Inc()
}

func (m *Metrics) ObserveAuditList(start time.Time) {
	if m == nil {
		return
	}
	m.AuditListLatency.Observe(time.Since(start).Seconds())
}

func (m *Metrics) AddSessionsPruned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsPruned.Add(float64(n))
}
