package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the ledger service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	transactionsTotal *prometheus.CounterVec
	rejectionsTotal   *prometheus.CounterVec
	commitsTotal      *prometheus.CounterVec
	authFailures      prometheus.Counter
}

// LedgerSnapshot is the aggregate view served by GET /v1/metrics/ledger.
type LedgerSnapshot struct {
	Deposits       int64   `json:"deposits"`
	Withdrawals    int64   `json:"withdrawals"`
	Transfers      int64   `json:"transfers"`
	Rejections     int64   `json:"rejections"`
	CommitFailures int64   `json:"commit_failures"`
	AuthFailures   int64   `json:"auth_failures"`
	RejectionRate  float64 `json:"rejection_rate"`
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Duration of ledger operations by name.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		transactionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_transactions_total",
				Help: "Total transactions appended, by kind.",
			},
			[]string{"kind"},
		),
		rejectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_rejections_total",
				Help: "Total operations rejected by a business rule.",
			},
			[]string{"rule"},
		),
		commitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_commits_total",
				Help: "Total persistence commits by outcome.",
			},
			[]string{"outcome"},
		),
		authFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_auth_failures_total",
				Help: "Total failed PIN verifications.",
			},
		),
	}
}

// RecordOperationDuration records the duration of a ledger operation.
func (m *Metrics) RecordOperationDuration(operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrTransaction counts an appended transaction by kind.
func (m *Metrics) IncrTransaction(kind string) {
	m.transactionsTotal.WithLabelValues(kind).Inc()
}

// IncrRejection counts a business-rule rejection.
func (m *Metrics) IncrRejection(rule string) {
	m.rejectionsTotal.WithLabelValues(rule).Inc()
}

// IncrCommit counts a persistence commit by outcome ("success"/"failure").
func (m *Metrics) IncrCommit(outcome string) {
	m.commitsTotal.WithLabelValues(outcome).Inc()
}

// IncrAuthFailure counts a failed PIN verification.
func (m *Metrics) IncrAuthFailure() {
	m.authFailures.Inc()
}

// GetLedgerSnapshot returns a snapshot of ledger counters for the
// GET /v1/metrics/ledger endpoint.
func (m *Metrics) GetLedgerSnapshot() *LedgerSnapshot {
	deposits := getCounterValue(m.transactionsTotal, "Deposit")
	withdrawals := getCounterValue(m.transactionsTotal, "Withdraw")
	transfers := getCounterValue(m.transactionsTotal, "Transfer")

	var rejections float64
	for _, rule := range []string{"invalid_amount", "insufficient_funds", "below_minimum_balance", "monthly_limit", "ineligible_age", "busy"} {
		rejections += getCounterValue(m.rejectionsTotal, rule)
	}

	total := deposits + withdrawals + transfers + rejections
	rejectionRate := float64(0)
	if total > 0 {
		rejectionRate = rejections / total
	}

	var authFailures float64
	pb := &dto.Metric{}
	if err := m.authFailures.Write(pb); err == nil && pb.Counter != nil && pb.Counter.Value != nil {
		authFailures = *pb.Counter.Value
	}

	return &LedgerSnapshot{
		Deposits:       int64(deposits),
		Withdrawals:    int64(withdrawals),
		Transfers:      int64(transfers),
		Rejections:     int64(rejections),
		CommitFailures: int64(getCounterValue(m.commitsTotal, "failure")),
		AuthFailures:   int64(authFailures),
		RejectionRate:  rejectionRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
