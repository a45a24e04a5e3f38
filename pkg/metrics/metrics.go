// Package metrics holds the Prometheus collectors of the lifecycle engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lifecycle_engine"

// Outcome labels of a user evaluation.
const (
	OutcomeEvaluated    = "evaluated"
	OutcomeTransitioned = "transitioned"
	OutcomeSkipped      = "skipped"
	OutcomeFailed       = "failed"
	OutcomeInvalidState = "invalid_state"
)

// Dispatch labels.
const (
	DispatchDelivered   = "delivered"
	DispatchFailed      = "failed"
	DispatchRedelivered = "redelivered"
	DispatchDropped     = "dropped"
)

// Recorder groups the engine's collectors. A nil *Recorder records nothing.
type Recorder struct {
	evaluations   *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	dispatches    *prometheus.CounterVec
	riskScores    *prometheus.HistogramVec
	cycleDuration prometheus.Histogram
	cycleUsers    prometheus.Gauge
}

// NewRecorder creates unregistered collectors.
func NewRecorder() *Recorder {
	return &Recorder{
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "user_evaluations_total",
				Help:      "Total number of per-user evaluations by outcome",
			},
			[]string{"outcome"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "state_transitions_total",
				Help:      "Total number of applied lifecycle transitions",
			},
			[]string{"from", "to", "rule_id"},
		),
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "intervention_dispatches_total",
				Help:      "Total number of intervention dispatch attempts by surface and result",
			},
			[]string{"surface", "result"},
		),
		riskScores: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "churn_risk_score",
				Help:      "Distribution of computed churn risk scores",
				Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 85, 100},
			},
			[]string{"category"},
		),
		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Duration of a full evaluation pass",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		cycleUsers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cycle_users",
				Help:      "Number of users listed in the last evaluation pass",
			},
		),
	}
}

// MustRegister registers every collector with reg.
func (r *Recorder) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		r.evaluations,
		r.transitions,
		r.dispatches,
		r.riskScores,
		r.cycleDuration,
		r.cycleUsers,
	)
}

func (r *Recorder) Evaluation(outcome string) {
	if r == nil {
		return
	}
	r.evaluations.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Transition(from, to, ruleID string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(from, to, ruleID).Inc()
}

func (r *Recorder) Dispatch(surface, result string) {
	if r == nil {
		return
	}
	r.dispatches.WithLabelValues(surface, result).Inc()
}

func (r *Recorder) RiskScore(category string, score float64) {
	if r == nil {
		return
	}
	r.riskScores.WithLabelValues(category).Observe(score)
}

func (r *Recorder) Cycle(users int, d time.Duration) {
	if r == nil {
		return
	}
	r.cycleUsers.Set(float64(users))
	r.cycleDuration.Observe(d.Seconds())
}
