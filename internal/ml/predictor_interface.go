// Package ml provides the positional digit predictor: a trainable function
// from a window of daily feature vectors to one score per digit per position.
//
// The reference model is a single hidden layer sigmoid network trained by
// plain backpropagation. Other approximators can replace it by implementing
// Model and Strategy; the training pipeline depends on nothing else.
package ml

import (
	"encoding"
	"errors"

	"drawcast/internal/sequence"
)

// ErrModelNotInitialized is returned when a serving path finds no trained
// predictor state. Only a full retrain creates one.
var ErrModelNotInitialized = errors.New("model not initialized")

// TrainingSummary reports one pass over a batch.
type TrainingSummary struct {
	Samples int     `json:"samples"`
	Loss    float64 `json:"loss"` // mean squared error before each update
}

// Predictor is the contract the training pipeline relies on.
type Predictor interface {
	// Predict returns sequence.TargetLen scores for the window.
	Predict(w sequence.Window) ([]float64, error)

	// TrainBatch applies one update per pair, in order.
	TrainBatch(pairs []sequence.Pair) (TrainingSummary, error)

	// TrainStep is TrainBatch with a single pair.
	TrainStep(p sequence.Pair) error
}

// Model is a Predictor that can be persisted and checked against the
// current feature configuration.
type Model interface {
	Predictor
	encoding.BinaryMarshaler

	// Shape returns the window length and per-day vector dimension.
	Shape() (window, dim int)

	// Meta exposes the bookkeeping stored alongside the parameters.
	Meta() *Meta
}

// Strategy creates fresh models and restores persisted ones.
type Strategy interface {
	New(cfg Config) (Model, error)
	Load(blob []byte) (Model, error)
}
