package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics records outcomes of ledger commit attempts.
type LedgerMetrics struct {
	commits        *prometheus.CounterVec
	retries        *prometheus.CounterVec
	lockWait       *prometheus.HistogramVec
	commitDuration *prometheus.HistogramVec
}

// NewLedgerMetrics registers ledger commit metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	commits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_commits_total",
		Help: "Ledger commit attempts by operation and outcome.",
	}, []string{"operation", "outcome"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_commit_retries_total",
		Help: "Ledger commit retries after version conflicts.",
	}, []string{"operation"})
	lockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_lock_wait_seconds",
		Help:    "Time spent waiting for account locks.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 3},
	}, []string{"operation"})
	commitDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_commit_duration_seconds",
		Help:    "Duration of ledger commit transactions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(commits, retries, lockWait, commitDuration)
	return &LedgerMetrics{
		commits:        commits,
		retries:        retries,
		lockWait:       lockWait,
		commitDuration: commitDuration,
	}
}

// IncCommit records a commit attempt outcome ("ok", "rejected", "error").
func (l *LedgerMetrics) IncCommit(operation, outcome string) {
	if l == nil || l.commits == nil {
		return
	}
	l.commits.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// IncRetry records a retry caused by a version conflict.
func (l *LedgerMetrics) IncRetry(operation string) {
	if l == nil || l.retries == nil {
		return
	}
	l.retries.WithLabelValues(normalizeLabel(operation)).Inc()
}

// ObserveLockWait records the time an operation spent acquiring account locks.
func (l *LedgerMetrics) ObserveLockWait(operation string, wait time.Duration) {
	if l == nil || l.lockWait == nil {
		return
	}
	l.lockWait.WithLabelValues(normalizeLabel(operation)).Observe(wait.Seconds())
}

// ObserveCommitDuration records the duration of the commit transaction.
func (l *LedgerMetrics) ObserveCommitDuration(operation string, duration time.Duration) {
	if l == nil || l.commitDuration == nil {
		return
	}
	l.commitDuration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}
