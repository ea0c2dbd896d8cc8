package training

import (
	"context"
	"time"

	"drawcast/internal/draw"
	"drawcast/internal/prediction"
)

// DrawStore is the read side of draw persistence.
type DrawStore interface {
	ListDays(ctx context.Context, from, to time.Time) ([]draw.Day, error)
	FindDraw(ctx context.Context, date time.Time, tier draw.Tier) (draw.Event, bool, error)
}

// PredictionStore persists prediction records.
type PredictionStore interface {
	UpsertPrediction(ctx context.Context, rec prediction.Record) error
	GetPrediction(ctx context.Context, date time.Time) (prediction.Record, error)
	ListUnscored(ctx context.Context) ([]prediction.Record, error)
	MarkScored(ctx context.Context, date time.Time) error
}

// StateStore persists predictor state blobs by model name.
type StateStore interface {
	LoadModel(ctx context.Context, name string) ([]byte, bool, error)
	SaveModel(ctx context.Context, name string, blob []byte) error
}

// MetricsInterface defines the metrics the controller reports. A nil value
// disables reporting.
type MetricsInterface interface {
	RetrainObserve(pairs int, loss, seconds float64)
	LearnObserve(trained, skipped, pending int)
	HitRateObserve(rate float64)
	PredictionsInc()
	ErrorsInc()
}

// Notifier receives pipeline events.
type Notifier interface {
	Publish(eventType string, payload any)
}

// Event types passed to Notifier.
const (
	EventRetrain    = "retrain"
	EventLearn      = "learn"
	EventPrediction = "prediction"
)
