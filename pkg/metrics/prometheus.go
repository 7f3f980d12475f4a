package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	decisionsRecorded *prometheus.CounterVec
	checksTotal       *prometheus.CounterVec
	conflictsTotal    *prometheus.CounterVec
	resetsTotal       *prometheus.CounterVec
	latency           *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		decisionsRecorded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "biasguard_decisions_recorded_total",
				Help: "Total number of decisions appended to the ledger",
			},
			[]string{"type", "symbol"},
		),
		checksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "biasguard_consistency_checks_total",
				Help: "Total number of consistency checks by recommendation",
			},
			[]string{"recommendation"},
		),
		conflictsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "biasguard_conflicts_total",
				Help: "Total number of conflicts detected by rule and severity",
			},
			[]string{"rule", "severity"},
		),
		resetsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "biasguard_resets_total",
				Help: "Total number of symbol resets by result",
			},
			[]string{"result"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "biasguard_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordDecision records a decision appended to the ledger.
func (r *Recorder) RecordDecision(decisionType, symbol string) {
	r.decisionsRecorded.WithLabelValues(decisionType, symbol).Inc()
}

// RecordCheck records a consistency check outcome.
func (r *Recorder) RecordCheck(recommendation string) {
	r.checksTotal.WithLabelValues(recommendation).Inc()
}

// RecordConflict records a detected conflict.
func (r *Recorder) RecordConflict(rule, severity string) {
	r.conflictsTotal.WithLabelValues(rule, severity).Inc()
}

// RecordReset records a symbol reset outcome.
func (r *Recorder) RecordReset(result string) {
	r.resetsTotal.WithLabelValues(result).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
