package ml

import (
	"encoding/json"
	"fmt"
	"time"

	"drawcast/internal/sequence"
)

const stateVersion = 1

// Meta is the bookkeeping persisted with a model's parameters.
type Meta struct {
	Name      string    `json:"name"`
	Seed      int64     `json:"seed"`
	Updates   int64     `json:"updates"`
	Pairs     int       `json:"pairs"`
	TrainedAt time.Time `json:"trained_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type networkState struct {
	Version      int         `json:"version"`
	Meta         Meta        `json:"meta"`
	Window       int         `json:"window"`
	FeatureDim   int         `json:"feature_dim"`
	Hidden       int         `json:"hidden"`
	LearningRate float64     `json:"learning_rate"`
	W1           [][]float64 `json:"w1"`
	B1           []float64   `json:"b1"`
	W2           [][]float64 `json:"w2"`
	B2           []float64   `json:"b2"`
}

// MarshalBinary encodes the parameters and metadata as JSON. Float values
// round-trip exactly.
func (n *Network) MarshalBinary() ([]byte, error) {
	return json.Marshal(networkState{
		Version:      stateVersion,
		Meta:         n.meta,
		Window:       n.cfg.Window,
		FeatureDim:   n.cfg.FeatureDim,
		Hidden:       n.cfg.Hidden,
		LearningRate: n.cfg.LearningRate,
		W1:           n.w1,
		B1:           n.b1,
		W2:           n.w2,
		B2:           n.b2,
	})
}

// UnmarshalNetwork restores a network written by MarshalBinary.
func UnmarshalNetwork(blob []byte) (*Network, error) {
	var st networkState
	if err := json.Unmarshal(blob, &st); err != nil {
		return nil, fmt.Errorf("decode model state: %w", err)
	}
	if st.Version != stateVersion {
		return nil, fmt.Errorf("unsupported model state version %d", st.Version)
	}

	cfg := Config{
		Window:       st.Window,
		FeatureDim:   st.FeatureDim,
		Hidden:       st.Hidden,
		LearningRate: st.LearningRate,
		Seed:         st.Meta.Seed,
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", sequence.ErrDataIntegrity, err)
	}

	in := cfg.Window * cfg.FeatureDim
	if err := checkMatrix("w1", st.W1, cfg.Hidden, in); err != nil {
		return nil, err
	}
	if err := checkMatrix("w2", st.W2, sequence.TargetLen, cfg.Hidden); err != nil {
		return nil, err
	}
	if len(st.B1) != cfg.Hidden || len(st.B2) != sequence.TargetLen {
		return nil, fmt.Errorf("%w: bias lengths %d/%d", sequence.ErrDataIntegrity, len(st.B1), len(st.B2))
	}

	return &Network{
		cfg:  cfg,
		w1:   st.W1,
		b1:   st.B1,
		w2:   st.W2,
		b2:   st.B2,
		meta: st.Meta,
	}, nil
}

func checkMatrix(name string, m [][]float64, rows, cols int) error {
	if len(m) != rows {
		return fmt.Errorf("%w: %s has %d rows, expected %d", sequence.ErrDataIntegrity, name, len(m), rows)
	}
	for i, r := range m {
		if len(r) != cols {
			return fmt.Errorf("%w: %s row %d has %d columns, expected %d", sequence.ErrDataIntegrity, name, i, len(r), cols)
		}
	}
	return nil
}

// MLP is the Strategy for the reference network.
type MLP struct{}

// New creates a randomly initialized network.
func (MLP) New(cfg Config) (Model, error) {
	n, err := NewNetwork(cfg)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Load restores a persisted network.
func (MLP) Load(blob []byte) (Model, error) {
	n, err := UnmarshalNetwork(blob)
	if err != nil {
		return nil, err
	}
	return n, nil
}
