package ml

import (
	"fmt"
	"math"
	"math/rand"

	"drawcast/internal/sequence"
)

// Config shapes a network.
type Config struct {
	Window       int
	FeatureDim   int
	Hidden       int
	LearningRate float64
	Seed         int64
}

func (c Config) validate() error {
	if c.Window <= 0 || c.FeatureDim <= 0 {
		return fmt.Errorf("invalid input shape %dx%d", c.Window, c.FeatureDim)
	}
	if c.Hidden <= 0 {
		return fmt.Errorf("hidden size must be positive, got %d", c.Hidden)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %f", c.LearningRate)
	}
	return nil
}

// Network is a single hidden layer feed-forward network with sigmoid
// activations on both layers.
type Network struct {
	cfg Config

	w1 [][]float64 // hidden x input
	b1 []float64
	w2 [][]float64 // output x hidden
	b2 []float64

	meta Meta
}

// NewNetwork initializes every weight and bias uniformly in [-1, 1] from a
// source seeded with cfg.Seed.
func NewNetwork(cfg Config) (*Network, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	uniform := func() float64 { return rng.Float64()*2 - 1 }

	in := cfg.Window * cfg.FeatureDim
	n := &Network{
		cfg:  cfg,
		w1:   matrix(cfg.Hidden, in, uniform),
		b1:   vector(cfg.Hidden, uniform),
		w2:   matrix(sequence.TargetLen, cfg.Hidden, uniform),
		b2:   vector(sequence.TargetLen, uniform),
		meta: Meta{Seed: cfg.Seed},
	}
	return n, nil
}

// Shape returns the window length and per-day vector dimension.
func (n *Network) Shape() (int, int) {
	return n.cfg.Window, n.cfg.FeatureDim
}

// Meta returns the network's bookkeeping.
func (n *Network) Meta() *Meta {
	return &n.meta
}

// Predict runs a forward pass.
func (n *Network) Predict(w sequence.Window) ([]float64, error) {
	x, err := n.input(w)
	if err != nil {
		return nil, err
	}
	_, out := n.forward(x)
	return out, nil
}

// TrainBatch applies one stochastic gradient step per pair.
func (n *Network) TrainBatch(pairs []sequence.Pair) (TrainingSummary, error) {
	var total float64
	for i, p := range pairs {
		loss, err := n.step(p)
		if err != nil {
			return TrainingSummary{}, fmt.Errorf("pair %d: %w", i, err)
		}
		total += loss
	}
	s := TrainingSummary{Samples: len(pairs)}
	if len(pairs) > 0 {
		s.Loss = total / float64(len(pairs))
	}
	return s, nil
}

// TrainStep applies a single update.
func (n *Network) TrainStep(p sequence.Pair) error {
	_, err := n.TrainBatch([]sequence.Pair{p})
	return err
}

func (n *Network) step(p sequence.Pair) (float64, error) {
	x, err := n.input(p.Window)
	if err != nil {
		return 0, err
	}
	if len(p.Target) != sequence.TargetLen {
		return 0, fmt.Errorf("%w: target length %d, expected %d", sequence.ErrDataIntegrity, len(p.Target), sequence.TargetLen)
	}

	hidden, out := n.forward(x)

	var loss float64
	outDelta := make([]float64, len(out))
	for k, o := range out {
		e := p.Target[k] - o
		loss += e * e
		outDelta[k] = e * o * (1 - o)
	}
	loss /= float64(len(out))

	// propagate through the weights as they were before this update
	hiddenDelta := make([]float64, len(hidden))
	for j, h := range hidden {
		var sum float64
		for k := range outDelta {
			sum += n.w2[k][j] * outDelta[k]
		}
		hiddenDelta[j] = sum * h * (1 - h)
	}

	lr := n.cfg.LearningRate
	for k, d := range outDelta {
		row := n.w2[k]
		for j, h := range hidden {
			row[j] += lr * d * h
		}
		n.b2[k] += lr * d
	}
	for j, d := range hiddenDelta {
		if d == 0 {
			continue
		}
		row := n.w1[j]
		for i, xi := range x {
			row[i] += lr * d * xi
		}
		n.b1[j] += lr * d
	}

	n.meta.Updates++
	return loss, nil
}

func (n *Network) forward(x []float64) (hidden, out []float64) {
	hidden = make([]float64, len(n.w1))
	for j, row := range n.w1 {
		hidden[j] = sigmoid(dot(row, x) + n.b1[j])
	}
	out = make([]float64, len(n.w2))
	for k, row := range n.w2 {
		out[k] = sigmoid(dot(row, hidden) + n.b2[k])
	}
	return hidden, out
}

func (n *Network) input(w sequence.Window) ([]float64, error) {
	if len(w) != n.cfg.Window {
		return nil, fmt.Errorf("%w: window length %d, model expects %d", sequence.ErrDataIntegrity, len(w), n.cfg.Window)
	}
	for i, v := range w {
		if len(v) != n.cfg.FeatureDim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, model expects %d", sequence.ErrDataIntegrity, i, len(v), n.cfg.FeatureDim)
		}
	}
	return w.Flatten(), nil
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func matrix(rows, cols int, gen func() float64) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = vector(cols, gen)
	}
	return m
}

func vector(n int, gen func() float64) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = gen()
	}
	return v
}
