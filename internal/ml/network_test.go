package ml

import (
	"testing"

	"drawcast/internal/features"
	"drawcast/internal/sequence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() Config {
	return Config{Window: 2, FeatureDim: 3, Hidden: 4, LearningRate: 0.5, Seed: 42}
}

func smallWindow() sequence.Window {
	return sequence.Window{
		features.Vector{0.1, 0.5, 0.9},
		features.Vector{0.3, 0.0, 0.7},
	}
}

func smallPair(t *testing.T) sequence.Pair {
	target, err := sequence.NewTarget("23456")
	require.NoError(t, err)
	return sequence.Pair{Window: smallWindow(), Target: target}
}

func TestNewNetwork_InitRange(t *testing.T) {
	n, err := NewNetwork(smallConfig())
	require.NoError(t, err)

	require.Len(t, n.w1, 4)
	require.Len(t, n.w1[0], 6)
	require.Len(t, n.w2, sequence.TargetLen)
	require.Len(t, n.b2, sequence.TargetLen)

	for _, row := range append(append([][]float64{}, n.w1...), n.w2...) {
		for _, w := range row {
			assert.GreaterOrEqual(t, w, -1.0)
			assert.LessOrEqual(t, w, 1.0)
		}
	}
	assert.Equal(t, int64(42), n.Meta().Seed)
}

func TestNewNetwork_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero window", Config{Window: 0, FeatureDim: 3, Hidden: 4, LearningRate: 0.1}},
		{"zero hidden", Config{Window: 2, FeatureDim: 3, Hidden: 0, LearningRate: 0.1}},
		{"zero learning rate", Config{Window: 2, FeatureDim: 3, Hidden: 4}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewNetwork(tc.cfg)
			assert.Error(t, err)
		})
	}
}

func TestNetwork_SeedIsReproducible(t *testing.T) {
	a, err := NewNetwork(smallConfig())
	require.NoError(t, err)
	b, err := NewNetwork(smallConfig())
	require.NoError(t, err)

	outA, err := a.Predict(smallWindow())
	require.NoError(t, err)
	outB, err := b.Predict(smallWindow())
	require.NoError(t, err)
	assert.Equal(t, outA, outB)

	cfg := smallConfig()
	cfg.Seed = 7
	c, err := NewNetwork(cfg)
	require.NoError(t, err)
	outC, err := c.Predict(smallWindow())
	require.NoError(t, err)
	assert.NotEqual(t, outA, outC)
}

func TestNetwork_PredictShape(t *testing.T) {
	n, err := NewNetwork(smallConfig())
	require.NoError(t, err)

	out, err := n.Predict(smallWindow())
	require.NoError(t, err)
	require.Len(t, out, sequence.TargetLen)
	for _, o := range out {
		assert.Greater(t, o, 0.0)
		assert.Less(t, o, 1.0)
	}
}

func TestNetwork_DimensionMismatch(t *testing.T) {
	n, err := NewNetwork(smallConfig())
	require.NoError(t, err)

	_, err = n.Predict(sequence.Window{features.Vector{0.1, 0.2, 0.3}})
	assert.ErrorIs(t, err, sequence.ErrDataIntegrity)

	_, err = n.Predict(sequence.Window{features.Vector{0.1, 0.2}, features.Vector{0.1, 0.2}})
	assert.ErrorIs(t, err, sequence.ErrDataIntegrity)

	err = n.TrainStep(sequence.Pair{Window: smallWindow(), Target: sequence.Target{0.5}})
	assert.ErrorIs(t, err, sequence.ErrDataIntegrity)
}

func TestNetwork_TrainingReducesLoss(t *testing.T) {
	n, err := NewNetwork(smallConfig())
	require.NoError(t, err)
	pair := smallPair(t)

	first, err := n.TrainBatch([]sequence.Pair{pair})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Samples)

	var last TrainingSummary
	for i := 0; i < 3000; i++ {
		last, err = n.TrainBatch([]sequence.Pair{pair})
		require.NoError(t, err)
	}
	assert.Less(t, last.Loss, first.Loss)
	assert.Equal(t, int64(3001), n.Meta().Updates)

	out, err := n.Predict(pair.Window)
	require.NoError(t, err)
	top, err := Decode(out, 1)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"2"}, {"3"}, {"4"}, {"5"}, {"6"}}, top)
}

func TestNetwork_TrainStepMatchesSingleBatch(t *testing.T) {
	a, err := NewNetwork(smallConfig())
	require.NoError(t, err)
	b, err := NewNetwork(smallConfig())
	require.NoError(t, err)
	pair := smallPair(t)

	require.NoError(t, a.TrainStep(pair))
	_, err = b.TrainBatch([]sequence.Pair{pair})
	require.NoError(t, err)

	outA, _ := a.Predict(pair.Window)
	outB, _ := b.Predict(pair.Window)
	assert.Equal(t, outA, outB)
}

func TestNetwork_EmptyBatch(t *testing.T) {
	n, err := NewNetwork(smallConfig())
	require.NoError(t, err)

	s, err := n.TrainBatch(nil)
	require.NoError(t, err)
	assert.Equal(t, TrainingSummary{}, s)
	assert.Equal(t, int64(0), n.Meta().Updates)
}

func TestSigmoid(t *testing.T) {
	assert.Equal(t, 0.5, sigmoid(0))
	assert.InDelta(t, 1.0, sigmoid(40), 1e-12)
	assert.InDelta(t, 0.0, sigmoid(-40), 1e-12)
}
