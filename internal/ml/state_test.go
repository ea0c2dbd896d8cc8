package ml

import (
	"encoding/json"
	"testing"
	"time"

	"drawcast/internal/sequence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_RoundTripPredictions(t *testing.T) {
	n, err := NewNetwork(smallConfig())
	require.NoError(t, err)
	require.NoError(t, n.TrainStep(smallPair(t)))
	n.Meta().Name = "positional-digit"
	n.Meta().TrainedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	before, err := n.Predict(smallWindow())
	require.NoError(t, err)

	blob, err := n.MarshalBinary()
	require.NoError(t, err)

	restored, err := MLP{}.Load(blob)
	require.NoError(t, err)

	after, err := restored.Predict(smallWindow())
	require.NoError(t, err)
	assert.InDeltaSlice(t, before, after, 1e-12)

	w, d := restored.Shape()
	assert.Equal(t, 2, w)
	assert.Equal(t, 3, d)
	assert.Equal(t, "positional-digit", restored.Meta().Name)
	assert.Equal(t, int64(1), restored.Meta().Updates)
	assert.True(t, restored.Meta().TrainedAt.Equal(n.Meta().TrainedAt))
}

func TestState_RejectsInconsistentShapes(t *testing.T) {
	n, err := NewNetwork(smallConfig())
	require.NoError(t, err)
	blob, err := n.MarshalBinary()
	require.NoError(t, err)

	var st networkState
	require.NoError(t, json.Unmarshal(blob, &st))
	st.FeatureDim = 4
	bad, err := json.Marshal(st)
	require.NoError(t, err)

	_, err = UnmarshalNetwork(bad)
	assert.ErrorIs(t, err, sequence.ErrDataIntegrity)

	st.FeatureDim = 3
	st.B2 = st.B2[:10]
	bad, err = json.Marshal(st)
	require.NoError(t, err)
	_, err = UnmarshalNetwork(bad)
	assert.ErrorIs(t, err, sequence.ErrDataIntegrity)
}

func TestState_RejectsGarbage(t *testing.T) {
	_, err := UnmarshalNetwork([]byte("not json"))
	assert.Error(t, err)

	_, err = UnmarshalNetwork([]byte(`{"version": 99}`))
	assert.Error(t, err)
}
