// Package metrics provides Prometheus metrics collection for the draw
// learning pipeline. It defines the training, scoring, prediction and
// ingestion metrics exposed via the Prometheus metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "drawcast"

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// Training metrics
	RetrainRuns     prometheus.Counter   // Completed full retrains
	RetrainDuration prometheus.Histogram // Full retrain wall time
	RetrainPairs    prometheus.Gauge     // Pairs used by the latest retrain
	RetrainLoss     prometheus.Gauge     // Final epoch loss of the latest retrain

	// Scoring loop metrics
	LearnTrained prometheus.Counter   // Predictions scored with a training step
	LearnSkipped prometheus.Counter   // Predictions retired on a malformed outcome
	LearnPending prometheus.Gauge     // Unscored predictions still waiting for an outcome
	HitRate      prometheus.Histogram // Share of positions whose outcome digit was a candidate

	// Prediction metrics
	Predictions prometheus.Counter // Generated next-day predictions

	// Ingestion metrics
	DrawsIngested prometheus.Counter   // New draw events written
	DrawsDup      prometheus.Counter   // Draw events already present
	FetchErrors   prometheus.Counter   // Failed result feed requests
	FetchLatency  prometheus.Histogram // Result feed request latency

	// System metrics
	ErrorsTotal prometheus.Counter // Failed pipeline operations
}

// New creates and registers all metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		RetrainRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrain_runs_total",
			Help:      "Total number of completed full retrains",
		}),
		RetrainDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrain_duration_seconds",
			Help:      "Duration of full retrains in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		RetrainPairs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "retrain_pairs",
			Help:      "Training pairs used by the latest full retrain",
		}),
		RetrainLoss: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "retrain_final_loss",
			Help:      "Mean squared error of the last epoch of the latest full retrain",
		}),
		LearnTrained: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "learn_trained_total",
			Help:      "Total number of predictions scored with a training step",
		}),
		LearnSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "learn_skipped_total",
			Help:      "Total number of predictions retired because of a malformed outcome",
		}),
		LearnPending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "learn_pending",
			Help:      "Unscored predictions waiting for their outcome after the latest learn run",
		}),
		HitRate: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_hit_rate",
			Help:      "Share of positions whose realized digit was among the predicted candidates",
			Buckets:   prometheus.LinearBuckets(0, 0.2, 6),
		}),
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Total number of generated next-day predictions",
		}),
		DrawsIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draws_ingested_total",
			Help:      "Total number of new draw events stored",
		}),
		DrawsDup: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draws_duplicate_total",
			Help:      "Total number of draw events that were already stored",
		}),
		FetchErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Total number of failed result feed requests",
		}),
		FetchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_latency_seconds",
			Help:      "Result feed request latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of failed pipeline operations",
		}),
	}
}

// RetrainObserve records a completed full retrain.
func (m *Metrics) RetrainObserve(pairs int, loss, seconds float64) {
	m.RetrainRuns.Inc()
	m.RetrainDuration.Observe(seconds)
	m.RetrainPairs.Set(float64(pairs))
	m.RetrainLoss.Set(loss)
}

// LearnObserve records the counts of one incremental learn run.
func (m *Metrics) LearnObserve(trained, skipped, pending int) {
	m.LearnTrained.Add(float64(trained))
	m.LearnSkipped.Add(float64(skipped))
	m.LearnPending.Set(float64(pending))
}

// HitRateObserve records how well a scored prediction matched its outcome.
func (m *Metrics) HitRateObserve(rate float64) {
	m.HitRate.Observe(rate)
}

// PredictionsInc counts a generated prediction.
func (m *Metrics) PredictionsInc() {
	m.Predictions.Inc()
}

// ErrorsInc counts a failed pipeline operation.
func (m *Metrics) ErrorsInc() {
	m.ErrorsTotal.Inc()
}
