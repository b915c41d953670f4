package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	outcomesTotal *prometheus.CounterVec
	failuresTotal *prometheus.CounterVec
	roundsScored  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	ensembleProb  *prometheus.GaugeVec
	weightEntropy *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		outcomesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecastbench_outcomes_total",
				Help: "Total number of round outcomes recorded per model and horizon",
			},
			[]string{"model", "horizon"},
		),
		failuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecastbench_failures_total",
				Help: "Total number of failed prediction attempts per model and failure type",
			},
			[]string{"model", "type"},
		),
		roundsScored: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecastbench_rounds_scored_total",
				Help: "Total number of rounds with a resolved label per horizon",
			},
			[]string{"horizon"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecastbench_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		ensembleProb: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "forecastbench_ensemble_probability",
				Help: "Latest ensemble probability per horizon",
			},
			[]string{"horizon"},
		),
		weightEntropy: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "forecastbench_weight_entropy",
				Help: "Shannon entropy of the latest ensemble weights per horizon",
			},
			[]string{"horizon"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forecastbench_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordOutcome records one recorded round outcome.
func (r *Recorder) RecordOutcome(model, horizon string) {
	r.outcomesTotal.WithLabelValues(model, horizon).Inc()
}

// RecordFailure records a failed prediction attempt.
func (r *Recorder) RecordFailure(model, failureType string) {
	r.failuresTotal.WithLabelValues(model, failureType).Inc()
}

// RecordRoundScored records a round reaching a resolved label.
func (r *Recorder) RecordRoundScored(horizon string) {
	r.roundsScored.WithLabelValues(horizon).Inc()
}

// RecordEnsembleProbability records the latest ensemble output.
func (r *Recorder) RecordEnsembleProbability(horizon string, p float64) {
	r.ensembleProb.WithLabelValues(horizon).Set(p)
}

// RecordWeightEntropy records the entropy of the latest ensemble weights.
func (r *Recorder) RecordWeightEntropy(horizon string, entropy float64) {
	r.weightEntropy.WithLabelValues(horizon).Set(entropy)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
