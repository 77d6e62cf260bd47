package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the verification pipeline and the
// retention sweeper. All methods tolerate a nil receiver so wiring metrics
// stays optional in tests.
type Metrics struct {
	VerificationAttempts *prometheus.CounterVec
	VerificationResults  *prometheus.CounterVec
	LockoutsTotal        *prometheus.CounterVec
	KYCCompletedTotal    prometheus.Counter
	DocumentsUploaded    prometheus.Counter
	SweeperDeletions     *prometheus.CounterVec
	SweeperPassFailures  *prometheus.CounterVec
}

// New creates and registers all metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		VerificationAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycd_verification_attempts_total",
			Help: "Verification attempts consumed, by verification type",
		}, []string{"type"}),
		VerificationResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycd_verification_results_total",
			Help: "Verification outcomes, by verification type and status",
		}, []string{"type", "status"}),
		LockoutsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycd_lockouts_total",
			Help: "Cooldown locks applied after exhausting the attempt budget",
		}, []string{"type"}),
		KYCCompletedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "kycd_kyc_completed_total",
			Help: "Profiles that reached COMPLETED KYC status",
		}),
		DocumentsUploaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "kycd_documents_uploaded_total",
			Help: "Document uploads accepted",
		}),
		SweeperDeletions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycd_sweeper_deletions_total",
			Help: "Rows removed by the retention sweeper, by pass",
		}, []string{"pass"}),
		SweeperPassFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycd_sweeper_pass_failures_total",
			Help: "Sweeper passes that failed and were skipped until the next interval",
		}, []string{"pass"}),
	}
}

func (m *Metrics) IncrementAttempts(verificationType string) {
	if m == nil {
		return
	}
	m.VerificationAttempts.WithLabelValues(verificationType).Inc()
}

func (m *Metrics) IncrementResult(verificationType, status string) {
	if m == nil {
		return
	}
	m.VerificationResults.WithLabelValues(verificationType, status).Inc()
}

func (m *Metrics) IncrementLockouts(verificationType string) {
	if m == nil {
		return
	}
	m.LockoutsTotal.WithLabelValues(verificationType).Inc()
}

func (m *Metrics) IncrementKYCCompleted() {
	if m == nil {
		return
	}
	m.KYCCompletedTotal.Inc()
}

func (m *Metrics) IncrementDocumentsUploaded() {
	if m == nil {
		return
	}
	m.DocumentsUploaded.Inc()
}

func (m *Metrics) AddSweeperDeletions(pass string, n int64) {
	if m == nil {
		return
	}
	m.SweeperDeletions.WithLabelValues(pass).Add(float64(n))
}

func (m *Metrics) IncrementSweeperFailure(pass string) {
	if m == nil {
		return
	}
	m.SweeperPassFailures.WithLabelValues(pass).Inc()
}
