package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithRegistry_RegistersEverything(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry)

	m.RetrainObserve(120, 0.21, 3.5)
	m.LearnObserve(2, 1, 4)
	m.HitRateObserve(0.6)
	m.PredictionsInc()
	m.ErrorsInc()

	families, err := registry.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"drawcast_retrain_runs_total",
		"drawcast_retrain_duration_seconds",
		"drawcast_retrain_pairs",
		"drawcast_retrain_final_loss",
		"drawcast_learn_trained_total",
		"drawcast_learn_skipped_total",
		"drawcast_learn_pending",
		"drawcast_prediction_hit_rate",
		"drawcast_predictions_total",
		"drawcast_errors_total",
	} {
		assert.True(t, names[want], "missing metric %s", want)
	}
}

func TestPipelineObservations(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.RetrainObserve(120, 0.21, 3.5)
	m.RetrainObserve(130, 0.19, 3.7)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RetrainRuns))
	assert.Equal(t, 130.0, testutil.ToFloat64(m.RetrainPairs))
	assert.Equal(t, 0.19, testutil.ToFloat64(m.RetrainLoss))

	m.LearnObserve(2, 1, 4)
	m.LearnObserve(1, 0, 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.LearnTrained))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LearnSkipped))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.LearnPending))

	m.PredictionsInc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Predictions))

	m.ErrorsInc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal))
}
